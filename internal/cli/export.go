package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trialscope/internal/export"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		vf     viewFlags
		out    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export DATASET",
		Short: "Write the filtered, sorted view to csv, ndjson, json or xlsx",
		Example: `  trialscope export lb.json -f 'LBSEQ > 10' -o alt.xlsx
  trialscope export lb.ndjson -c USUBJID,LBTESTCD --format csv -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			var (
				f   export.Format
				err error
			)
			switch {
			case format != "":
				f, err = export.ParseFormat(format)
			case out == "-":
				f = export.FormatCSV
			default:
				f, err = export.FormatFromPath(out)
			}
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ds, err := a.load(ctx, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rows, proj, _, err := vf.apply(ctx, ds, a.cfg.FilterSlice)
			if err != nil {
				return err
			}
			t, err := export.NewTable(ds, rows, proj.Visible())
			if err != nil {
				return err
			}
			if out == "-" {
				return export.Write(cmd.OutOrStdout(), f, t)
			}
			if err := export.ToFile(out, f, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	vf.bind(cmd.Flags())
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file, or "-" for stdout`)
	cmd.Flags().StringVar(&format, "format", "", "csv|ndjson|json|xlsx (default from the --out extension)")
	return cmd
}
