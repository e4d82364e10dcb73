package cmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	api "github.com/apitester/runtests/client"
	"github.com/apitester/runtests/internal/logger"
	"github.com/apitester/runtests/runner"
	"github.com/apitester/runtests/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var debug bool

var rootCmd = &cobra.Command{
	Use:   "runtests",
	Short: "Run API tester configurations from the terminal",
	Long: `runtests drives the test runner of an API tester server. It runs
configured tests, shows their results and saves or copies a test's
configuration back to the server.`,
	// Version should match the Git tag
	Version: "v0.3.1",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		closeLog, err := logger.Setup(logger.Config{
			Dir:   filepath.Join(home, ".runtests", "logs"),
			Debug: debug,
		})
		if err != nil {
			// logging is optional, keep going with a discarded logger
			return nil
		}
		cobra.OnFinalize(func() { closeLog() })
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	info := version.FetchUpdateInfo(rootCmd.Version)
	defer info.PromptUpdateIfAvailable()
	ctx := version.WithContext(context.Background(), &info)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.runtests.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug entries to the log file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
		err := viper.ReadInConfig()
		cobra.CheckErr(err)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".runtests" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".runtests")
		if err := viper.ReadInConfig(); err != nil {
			viper.SafeWriteConfigAs(path.Join(home, ".runtests.yaml"))
			err = viper.ReadInConfig()
			cobra.CheckErr(err)
		}
	}

	viper.SetEnvPrefix("rt")
	viper.AutomaticEnv() // read in environment variables that match
}

func setDefaults() {
	viper.SetDefault("base_url", defaultBaseURL)
	viper.SetDefault("csrf_token", "")
	viper.SetDefault("session_id", "")
	viper.SetDefault("profile_id", "")
	viper.SetDefault("index_url_template", api.DefaultIndexURLTemplate)
	viper.SetDefault("run_url_template", api.DefaultRunURLTemplate)
	viper.SetDefault("test_url_template", api.DefaultTestURLTemplate)
	viper.SetDefault("runners_file", "runners.yaml")
	viper.SetDefault("timeout", api.DefaultTimeout)
	viper.SetDefault("reload_delay", runner.DefaultReloadDelay)
}

// clientConfig maps the viper settings onto the API client configuration.
func clientConfig() api.Config {
	return api.Config{
		BaseURL:          viper.GetString("base_url"),
		AntiForgeryToken: viper.GetString("csrf_token"),
		CurrentProfileID: viper.GetString("profile_id"),
		SessionID:        viper.GetString("session_id"),
		IndexURLTemplate: viper.GetString("index_url_template"),
		RunURLTemplate:   viper.GetString("run_url_template"),
		TestURLTemplate:  viper.GetString("test_url_template"),
		Timeout:          viper.GetDuration("timeout"),
	}
}

func newClient() *api.Client {
	return api.New(clientConfig(), api.WithLogger(logger.L()))
}

// loadBoard reads the runners file into a fresh board.
func loadBoard() (*runner.Board, runner.Source, error) {
	src := runner.FileSource{Path: viper.GetString("runners_file")}
	runners, err := src.Load()
	if err != nil {
		return nil, nil, err
	}
	return runner.NewBoard(runners), src, nil
}

func newController(client *api.Client, board *runner.Board, view runner.View, src runner.Source) *runner.Controller {
	delay := viper.GetDuration("reload_delay")
	if delay <= 0 {
		delay = runner.DefaultReloadDelay
	}
	return runner.NewController(client, board, view,
		runner.WithSource(src),
		runner.WithReloadDelay(delay),
		runner.WithLogger(logger.L()),
	)
}

// selectRunners checks the runners named by args, or every runner when
// all is set. It fails on a name that matches no runner.
func selectRunners(board *runner.Board, args []string, all bool) error {
	if all {
		board.SetAll(true)
		return nil
	}
	if len(args) == 0 {
		return nil
	}
	board.SetAll(false)
	for _, id := range args {
		i, err := board.Find(id)
		if err != nil {
			return err
		}
		if r, _ := board.Get(i); r.Checked {
			continue
		}
		if err := board.Toggle(i); err != nil {
			return err
		}
	}
	return nil
}

func promptLoginAndExitIf(condition bool) {
	if condition {
		fmt.Println("You must be logged in to use that command.")
		fmt.Println("Please run 'runtests login' first.")
		os.Exit(1)
	}
}

// Call this function at the beginning of a command handler
// if you need to make authenticated requests.
func requireAuth(cmd *cobra.Command, args []string) {
	promptLoginAndExitIf(viper.GetString("session_id") == "")
	promptLoginAndExitIf(viper.GetString("csrf_token") == "")
}

func requireUpdated(cmd *cobra.Command, args []string) {
	info := version.FromContext(cmd.Context())
	if info == nil || info.FailedToFetch != nil {
		return
	}
	if info.IsUpdateRequired {
		info.PromptUpdateIfAvailable()
		os.Exit(1)
	}
}

func compose(fns ...func(*cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		for _, fn := range fns {
			fn(cmd, args)
		}
	}
}
