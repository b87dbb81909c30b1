// Package cli wires the commands of the trialscope binary.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"trialscope/internal/config"
	"trialscope/internal/util/logx"
)

type app struct {
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds a fresh command tree. Every call has its own flag
// state, so tests can run several commands in one process.
func NewRootCmd() *cobra.Command {
	a := &app{}
	d := config.Default()
	root := &cobra.Command{
		Use:   "trialscope",
		Short: "Browse, filter and export clinical-trial datasets",
		Long: `trialscope loads Dataset-JSON (.json) and NDJSON (.ndjson) files, optionally
compressed, and lets you filter, sort, page through and export them from the
terminal. Run without a subcommand to open the interactive browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = c
			if l, ok := logx.ParseLevel(c.LogLevel); ok {
				logx.SetLevel(l)
			}
			logx.Debugf("cli: %s", c.String())
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.trialscope/trialscope.yaml)")
	pf.String("dir", d.Dir, "study directory searched for dataset names")
	pf.String("pattern", d.Pattern, "doublestar pattern selecting dataset files under --dir")
	pf.StringSlice("exclude", d.Exclude, "doublestar patterns of dataset files to skip")
	pf.Int("max-files", d.MaxFiles, "stop listing after this many datasets (0 = no limit)")
	pf.String("input-format", d.InputFormat, "force json or ndjson for dataset paths (default: from name, then content)")
	pf.Int("max-rows", d.MaxRows, "row ceiling; larger files load columns only")
	pf.Int("page-size", d.PageSize, "rows per page")
	pf.Int("value-cap", d.ValueCap, "distinct values tracked per column")
	pf.String("theme", string(d.Theme), "color theme (dark|light)")
	pf.String("log-level", d.LogLevel, "log level (debug|info|warn|error)")
	pf.Bool("offline", d.Offline, "never call the filter assistant")

	browse := a.browseCmd()
	root.RunE = browse.RunE
	root.Args = browse.Args
	root.AddCommand(
		browse,
		a.listCmd(),
		a.queryCmd(),
		a.valuesCmd(),
		a.exportCmd(),
		a.askCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the command line against ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
