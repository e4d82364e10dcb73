package cmd

import (
	"context"

	"github.com/apitester/runtests/render"
	"github.com/spf13/cobra"
)

var uiJQ string

func init() {
	rootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringVar(&uiJQ, "jq", "", "jq query applied to JSON response bodies")
}

var uiCmd = &cobra.Command{
	Use:          "ui",
	Aliases:      []string{"board"},
	Short:        "Open the interactive runner board",
	PreRun:       compose(requireUpdated, requireAuth),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		board, src, err := loadBoard()
		if err != nil {
			return err
		}
		view := render.NewChanView()
		ctrl := newController(newClient(), board, view, src)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		model := render.NewBoardModel(board, uiJQ)
		ctrl.BindTo(ctx, &model)

		err = render.RunBoard(ctx, model, view)
		// abandon requests still in flight once the board is gone
		cancel()
		ctrl.Wait()
		return err
	},
}
