package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apitester/runtests/render"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	runAll      bool
	runExpand   bool
	runJQ       string
	runHTMLFile string
	runOpen     bool
	runPlain    bool
	runOutFile  string
)

var errTestsFailed = errors.New("one or more tests failed")

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runAll, "all", "a", false, "run every runner, ignoring the checked state in the runners file")
	runCmd.Flags().BoolVarP(&runExpand, "expand", "e", false, "show the response body of passing tests")
	runCmd.Flags().StringVar(&runJQ, "jq", "", "jq query applied to JSON response bodies")
	runCmd.Flags().StringVar(&runHTMLFile, "html", "", "write an HTML report to this file")
	runCmd.Flags().BoolVar(&runOpen, "open", false, "open the HTML report in the browser")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "disable colors and borders")
	runCmd.Flags().StringVarP(&runOutFile, "out", "o", "", "write results to this file instead of stdout")
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:          "run [operation_id...]",
	Short:        "Run the selected tests and print their results",
	Long:         "Run the checked runners of the runners file, or the ones named by operation id or test name.",
	PreRun:       compose(requireUpdated, requireAuth),
	SilenceUsage: true,
	RunE:         runHandler,
}

func runHandler(cmd *cobra.Command, args []string) error {
	board, src, err := loadBoard()
	if err != nil {
		return err
	}
	if err := selectRunners(board, args, runAll); err != nil {
		return err
	}
	if len(board.Checked()) == 0 {
		return errors.New("no runner selected: check runners in the runners file, name them or pass --all")
	}

	var w io.Writer = cmd.OutOrStdout()
	plain := runPlain || !term.IsTerminal(int(os.Stdout.Fd()))
	if runOutFile != "" {
		f, err := os.Create(runOutFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
		plain = true
	}

	render.InitStyles()
	view := render.NewTextView(w, board, render.TextOptions{
		Expanded: runExpand,
		JQ:       runJQ,
	}, plain)
	ctrl := newController(newClient(), board, view, src)
	ctrl.RunSelected(cmd.Context())

	entries := view.Entries()
	summary := render.SummaryTable(entries)
	if plain {
		summary = render.Plain(summary)
	}
	if err := view.Err(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if _, err := fmt.Fprint(w, summary); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if runHTMLFile != "" || runOpen {
		report, err := writeReport(entries)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", report)
		if runOpen {
			browser.Stdout = nil
			browser.Stderr = nil
			if err := browser.OpenFile(report); err != nil {
				return fmt.Errorf("couldn't open the report: %w", err)
			}
		}
	}

	if view.Failed() {
		return errTestsFailed
	}
	return nil
}

func writeReport(entries []render.Entry) (string, error) {
	path := runHTMLFile
	if path == "" {
		path = filepath.Join(os.TempDir(), "runtests-report.html")
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := render.WriteReport(f, "Test runs", entries); err != nil {
		return "", err
	}
	return path, nil
}
