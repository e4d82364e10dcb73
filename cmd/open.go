package cmd

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open [config_pk]",
	Args:  cobra.RangeArgs(0, 1),
	Short: "Open the test runner page in the browser",
	Long:  "Open the test runner index, or the page of one test configuration when its pk is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		pk := ""
		if len(args) == 1 {
			pk = args[0]
		}
		url := newClient().IndexURL(pk)
		fmt.Println("Opening " + url)
		browser.Stdout = nil
		browser.Stderr = nil
		return browser.OpenURL(url)
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
