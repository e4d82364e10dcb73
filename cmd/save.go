package cmd

import (
	"context"
	"os"

	"github.com/apitester/runtests/render"
	"github.com/apitester/runtests/runner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	saveBody    string
	saveBodyAt  string
	saveRemark  string
	saveOrder   int
	saveReplica int
	savePlain   bool
)

func init() {
	for _, c := range []*cobra.Command{saveCmd, copyCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVarP(&saveBody, "body", "b", "", "JSON body to store instead of the one in the runners file")
		c.Flags().StringVar(&saveBodyAt, "body-file", "", "read the JSON body from this file")
		c.Flags().StringVar(&saveRemark, "remark", "", "remark stored with the configuration")
		c.Flags().IntVar(&saveOrder, "order", 0, "run order stored with the configuration")
		c.Flags().IntVar(&saveReplica, "replica", 0, "replica id stored with the configuration")
		c.Flags().BoolVar(&savePlain, "plain", false, "disable colors")
	}
}

var saveCmd = &cobra.Command{
	Use:          "save OPERATION_ID",
	Args:         cobra.ExactArgs(1),
	Short:        "Save a runner's configuration to the server",
	PreRun:       compose(requireUpdated, requireAuth),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return persistHandler(cmd, args[0], (*runner.Controller).SaveConfig)
	},
}

var copyCmd = &cobra.Command{
	Use:          "copy OPERATION_ID",
	Args:         cobra.ExactArgs(1),
	Short:        "Store a copy of a runner's configuration on the server",
	PreRun:       compose(requireUpdated, requireAuth),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return persistHandler(cmd, args[0], (*runner.Controller).CopyConfig)
	},
}

func persistHandler(
	cmd *cobra.Command,
	id string,
	persist func(*runner.Controller, context.Context, int) error,
) error {
	board, src, err := loadBoard()
	if err != nil {
		return err
	}
	index, err := board.Find(id)
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, board, index); err != nil {
		return err
	}

	render.InitStyles()
	plain := savePlain || !term.IsTerminal(int(os.Stdout.Fd()))
	view := render.NewTextView(cmd.OutOrStdout(), board, render.TextOptions{}, plain)
	ctrl := newController(newClient(), board, view, src)
	return persist(ctrl, cmd.Context(), index)
}

// applyOverrides replaces runner fields with the ones given on the command
// line.
func applyOverrides(cmd *cobra.Command, board *runner.Board, index int) error {
	body := saveBody
	if saveBodyAt != "" {
		b, err := os.ReadFile(saveBodyAt)
		if err != nil {
			return err
		}
		body = string(b)
	}
	if body != "" {
		if err := board.SetPayload(index, body); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if !flags.Changed("remark") && !flags.Changed("order") && !flags.Changed("replica") {
		return nil
	}
	runners := board.Runners()
	r := &runners[index]
	if flags.Changed("remark") {
		r.Remark = saveRemark
	}
	if flags.Changed("order") {
		r.Order = saveOrder
	}
	if flags.Changed("replica") {
		r.ReplicaID = saveReplica
	}
	board.Replace(runners)
	return nil
}
