package cmd

import (
	"fmt"

	"github.com/apitester/runtests/internal/logger"
	"github.com/apitester/runtests/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, server and CLI version status",
	Long:  "Display whether a session is stored, whether the server accepts it and whether the CLI is up to date",
	Run: func(cmd *cobra.Command, args []string) {
		checkAuthStatus(cmd)
		fmt.Println() // Blank line for readability
		checkVersionStatus(cmd)
		if line := logStatus(); line != "" {
			fmt.Println(line)
		}
	},
}

func checkAuthStatus(cmd *cobra.Command) {
	fmt.Printf("Server: %s\n", viper.GetString("base_url"))
	if viper.GetString("session_id") == "" {
		fmt.Println("Not logged in")
		fmt.Println("Run 'runtests login' to authenticate")
		return
	}

	// A CSRF cookie is only handed out when the server is reachable.
	_, err := newClient().FetchCSRFToken(cmd.Context())
	if err != nil {
		fmt.Println("Server unreachable or session rejected")
		fmt.Printf("Error: %s\n", err)
		fmt.Println("Run 'runtests login' to re-authenticate")
		return
	}

	fmt.Println("Logged in")
	if profile := viper.GetString("profile_id"); profile != "" {
		fmt.Printf("Profile: %s\n", profile)
	}
}

func checkVersionStatus(cmd *cobra.Command) {
	info := version.FromContext(cmd.Context())
	if info == nil || info.FailedToFetch != nil {
		fmt.Println("Unable to check version status")
		if info != nil && info.FailedToFetch != nil {
			fmt.Printf("Error: %s\n", info.FailedToFetch.Error())
		}
		return
	}

	if info.IsOutdated {
		fmt.Printf("CLI outdated: %s → %s available\n", info.CurrentVersion, info.LatestVersion)
		fmt.Println("Run 'runtests upgrade' to update")
	} else {
		fmt.Printf("CLI up to date (%s)\n", info.CurrentVersion)
	}
}

func logStatus() string {
	path := logger.Path()
	if path == "" {
		return ""
	}
	return "Log file: " + path
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
