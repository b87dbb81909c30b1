package cli

import (
	"github.com/spf13/cobra"

	"trialscope/internal/ui"
)

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [DATASET]",
		Short: "Open the interactive browser",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var initial string
			if len(args) == 1 {
				initial = args[0]
			}
			return ui.Run(cmd.Context(), a.cfg, initial)
		},
	}
}
