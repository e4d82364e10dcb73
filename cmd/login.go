package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	api "github.com/apitester/runtests/client"
	"github.com/apitester/runtests/internal/logger"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var loginProfile string

var sessionRe = regexp.MustCompile(`[^A-Za-z0-9]`)

// readSession reads the session cookie value, hiding it when stdin is a
// terminal.
func readSession() (string, error) {
	fmt.Print("\nPaste the value of your sessionid cookie: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	text, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && text == "" {
		return "", err
	}
	return text, nil
}

var loginCmd = &cobra.Command{
	Use:          "login",
	Aliases:      []string{"auth", "authenticate", "signin"},
	Short:        "Connect the CLI to your API tester session",
	SilenceUsage: true,
	PreRun:       requireUpdated,
	RunE: func(cmd *cobra.Command, args []string) error {
		bold := lipgloss.NewStyle().Bold(true)
		fmt.Println(bold.Render("Welcome to runtests!"))

		cfg := clientConfig()
		loginURL := strings.TrimRight(cfg.BaseURL, "/") + "/"
		fmt.Println("Sign in at:\n" + loginURL)
		fmt.Println("then copy the sessionid cookie from your browser.")

		// attempt to open the browser
		go func() {
			browser.Stdout = nil
			browser.Stderr = nil
			browser.OpenURL(loginURL)
		}()

		text, err := readSession()
		if err != nil {
			return err
		}
		session := sessionRe.ReplaceAllString(text, "")
		if session == "" {
			return errors.New("no session id entered")
		}

		cfg.SessionID = session
		token, err := api.New(cfg, api.WithLogger(logger.L())).FetchCSRFToken(cmd.Context())
		if err != nil {
			return err
		}

		viper.Set("session_id", session)
		viper.Set("csrf_token", token)
		if loginProfile != "" {
			viper.Set("profile_id", loginProfile)
		}

		err = viper.WriteConfig()
		if err != nil {
			return err
		}

		fmt.Println("Logged in successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginProfile, "profile", "", "API tester profile id to store configurations under")
}
