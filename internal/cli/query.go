package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) queryCmd() *cobra.Command {
	var (
		vf   viewFlags
		page int
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "query DATASET",
		Short: "Filter and sort a dataset and print one page",
		Example: `  trialscope query lb.json --filter 'LBTESTCD in ("ALT", "AST")' --sort "USUBJID, LBSEQ desc"
  trialscope query adsl --columns USUBJID,AGE --page 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds, err := a.load(ctx, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rows, proj, res, err := vf.apply(ctx, ds, a.cfg.FilterSlice)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
			size := a.cfg.PageSize
			if all {
				page, size = 1, max(1, len(rows))
			}
			printPage(cmd.OutOrStdout(), a.cfg.Theme, proj, rows, page, size)
			return nil
		},
	}
	vf.bind(cmd.Flags())
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to print (clamped to the last page)")
	cmd.Flags().BoolVar(&all, "all", false, "print every row on one page")
	return cmd
}
