package filter

import (
	"context"
	"fmt"
	"strings"

	"trialscope/internal/model"
)

const DefaultSliceSize = 5000

type ApplyOptions struct {
	SliceSize  int
	OnProgress func(done, total int) // called between slices
}

// Apply scans rows in SliceSize slices and returns the matching rows in
// their original order. ctx is checked between slices.
func Apply(ctx context.Context, rows []model.Row, pred Predicate, opts ApplyOptions) ([]model.Row, error) {
	if pred == nil {
		pred = All
	}
	size := opts.SliceSize
	if size <= 0 {
		size = DefaultSliceSize
	}
	out := make([]model.Row, 0, len(rows))
	for start := 0; start < len(rows); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(rows))
		for _, r := range rows[start:end] {
			if pred(r) {
				out = append(out, r)
			}
		}
		if opts.OnProgress != nil {
			opts.OnProgress(end, len(rows))
		}
	}
	return out, nil
}

// Result is what a filter attempt reports back to the user.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Run compiles query against ds and applies it. On failure the returned
// rows are nil and the caller keeps its previous filtered set.
func Run(ctx context.Context, query string, ds *model.Dataset, opts ApplyOptions) ([]model.Row, Result) {
	var rows []model.Row
	if ds != nil {
		rows = ds.Rows
	}
	if strings.TrimSpace(query) == "" {
		return rows, Result{Success: true, Message: "Filter cleared. Showing all rows."}
	}
	pred, err := Compile(query, ds)
	if err != nil {
		return nil, Result{Message: err.Error()}
	}
	out, err := Apply(ctx, rows, pred, opts)
	if err != nil {
		return nil, Result{Message: fmt.Sprintf("Filter interrupted: %v", err)}
	}
	return out, Result{
		Success: true,
		Message: fmt.Sprintf("Filter applied successfully. Showing %d of %d rows.", len(out), len(rows)),
	}
}
