package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"trialscope/internal/config"
	"trialscope/internal/export"
	"trialscope/internal/freq"
)

func (a *app) valuesCmd() *cobra.Command {
	var (
		filterText string
		columns    []string
		format     string
	)
	cmd := &cobra.Command{
		Use:   "values DATASET",
		Short: "Show the most frequent values of each column",
		Long: `values counts distinct values per column. A column with more distinct values
than --value-cap is reported as exceeding the limit instead of listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds, err := a.load(ctx, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rows, _, _, err := viewFlags{filter: filterText}.apply(ctx, ds, a.cfg.FilterSlice)
			if err != nil {
				return err
			}
			idx, err := freq.Build(ctx, ds.Columns, rows, a.cfg.ValueCap)
			if err != nil {
				return err
			}
			sum := idx.Summary()
			if len(columns) > 0 {
				keep := map[string]bool{}
				for _, c := range columns {
					if _, ok := ds.Index(c); !ok {
						return fmt.Errorf("unknown column: %s", c)
					}
					keep[c] = true
				}
				var cols []freq.ColumnSummary
				for _, c := range sum.Columns {
					if keep[c.Name] {
						cols = append(cols, c)
					}
				}
				sum.Columns = cols
			}
			if format == "table" {
				printValues(cmd.OutOrStdout(), a.cfg.Theme, sum)
				return nil
			}
			return export.WriteValues(cmd.OutOrStdout(), format, sum)
		},
	}
	cmd.Flags().StringVarP(&filterText, "filter", "f", "", "count only rows matching this filter")
	cmd.Flags().StringSliceVarP(&columns, "columns", "c", nil, "columns to report (default all)")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table|yaml|json)")
	return cmd
}

func printValues(w io.Writer, theme config.Theme, sum freq.Summary) {
	for _, c := range sum.Columns {
		kind := "text"
		if c.Numeric {
			kind = "numeric"
		}
		if c.ExceedsLimit {
			fmt.Fprintf(w, "%s (%s): more than %d distinct values\n\n", c.Name, kind, sum.Cap)
			continue
		}
		fmt.Fprintf(w, "%s (%s): %d distinct values in %d rows\n", c.Name, kind, c.DistinctCount, sum.Rows)
		rows := make([][]string, len(c.Values))
		for i, v := range c.Values {
			rows[i] = []string{
				truncate(v.Label, maxCell),
				strconv.Itoa(v.Frequency),
				strconv.FormatFloat(v.Percent, 'f', 1, 64) + "%",
			}
		}
		printTable(w, theme, []string{"Value", "Count", "Share"}, rows)
		fmt.Fprintln(w)
	}
}
