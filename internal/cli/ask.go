package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trialscope/internal/ai"
	"trialscope/internal/freq"
)

func (a *app) askCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "ask DATASET QUESTION...",
		Short: "Draft a filter from a plain-language question (OpenAI)",
		Long: `ask sends the column names, labels and common values of a dataset together
with your question to the configured OpenAI model and prints the filter it
suggests. Suggestions that do not compile against the dataset are rejected.
Requires OPENAI_API_KEY and no --offline.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.AIEnabled() {
				return errors.New("assistant disabled: set OPENAI_API_KEY and do not pass --offline")
			}
			ctx := cmd.Context()
			ds, err := a.load(ctx, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			idx, err := freq.Build(ctx, ds.Columns, ds.Rows, a.cfg.ValueCap)
			if err != nil {
				return err
			}
			client := ai.NewOpenAIClient(a.cfg.OpenAIKey(), a.cfg.OpenAIBase, a.cfg.OpenAIModel, a.cfg.OpenAITimeout()).WithCache(ai.DefaultCacheDir())
			sug, err := client.SuggestFilter(ctx, strings.Join(args[1:], " "), ds, idx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sug.Filter)
			if sug.Explanation != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), sug.Explanation)
			}
			if !apply {
				return nil
			}
			rows, proj, res, err := viewFlags{filter: sug.Filter}.apply(ctx, ds, a.cfg.FilterSlice)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
			printPage(out, a.cfg.Theme, proj, rows, 1, a.cfg.PageSize)
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "run the suggested filter and print the first page")
	return cmd
}
