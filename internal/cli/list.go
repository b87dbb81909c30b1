package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the dataset files under --dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cat.Entries) == 0 {
				fmt.Fprintf(out, "(no datasets matching %s under %s)\n", a.cfg.Pattern, cat.Root)
				return nil
			}
			folders := cat.Folders()
			rows := make([][]string, 0, len(cat.Entries))
			for _, f := range folders {
				for i, e := range cat.InFolder(f) {
					folder := ""
					if i == 0 {
						folder = f
					}
					rows = append(rows, []string{folder, e.Name(), string(e.Format), e.Compression.String(), humanSize(e.Size)})
				}
			}
			printTable(out, a.cfg.Theme, []string{"Folder", "Dataset", "Format", "Compression", "Size"}, rows)
			fmt.Fprintf(out, "%d datasets in %d folders\n", len(cat.Entries), len(folders))
			if a.cfg.MaxFiles > 0 && len(cat.Entries) >= a.cfg.MaxFiles {
				fmt.Fprintf(out, "(stopped at --max-files %d)\n", a.cfg.MaxFiles)
			}
			return nil
		},
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
