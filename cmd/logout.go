package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func logout() error {
	viper.Set("session_id", "")
	viper.Set("csrf_token", "")
	return viper.WriteConfig()
}

var logoutCmd = &cobra.Command{
	Use:          "logout",
	Aliases:      []string{"signout"},
	Short:        "Forget the stored session",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logout(); err != nil {
			return fmt.Errorf("failed to write config: %v", err)
		}
		fmt.Println("Logged out successfully.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
