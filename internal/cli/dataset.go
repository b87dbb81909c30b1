package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"trialscope/internal/catalog"
	"trialscope/internal/filter"
	"trialscope/internal/ingest"
	"trialscope/internal/model"
	"trialscope/internal/util/logx"
	"trialscope/internal/view"
)

func (a *app) catalog() (*catalog.Catalog, error) {
	return catalog.Discover(a.cfg.Dir, a.cfg.CatalogOptions())
}

// source resolves name as a file path first, then as a dataset in the
// study directory.
func (a *app) source(name string) (ingest.Source, error) {
	if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
		f, err := ingest.NewFile(name, a.cfg.SourceFormat())
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	cat, err := a.catalog()
	if err != nil {
		return nil, err
	}
	e, err := cat.Find(name)
	if err != nil {
		return nil, err
	}
	f, err := e.Source()
	if err != nil {
		return nil, err
	}
	return f, nil
}

// load reads a dataset. Going over the row ceiling is reported on warn and
// the column-only dataset is returned.
func (a *app) load(ctx context.Context, name string, warn io.Writer) (*model.Dataset, error) {
	src, err := a.source(name)
	if err != nil {
		return nil, err
	}
	ds, err := ingest.Load(ctx, src, a.cfg.IngestOptions(), func(p ingest.Progress) {
		logx.Debugf("cli: %s %d%% %s", src.Name(), p.Current, p.Message)
	})
	var limit *ingest.RowLimitError
	if errors.As(err, &limit) {
		fmt.Fprintln(warn, "warning:", limit.Error())
		return ds, nil
	}
	return ds, err
}

// viewFlags select the rows and columns a headless command works on.
type viewFlags struct {
	filter  string
	sort    string
	columns []string
}

func (v *viewFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&v.filter, "filter", "f", "", `filter expression, e.g. 'LBTESTCD = "ALT" and LBSEQ > 2'`)
	fs.StringVarP(&v.sort, "sort", "s", "", `sort keys, e.g. "USUBJID asc, LBSEQ desc"`)
	fs.StringSliceVarP(&v.columns, "columns", "c", nil, "columns to show, in dataset order (default all)")
}

// apply filters, sorts and projects ds. A rejected filter is an error
// carrying the filter message.
func (v viewFlags) apply(ctx context.Context, ds *model.Dataset, slice int) ([]model.Row, *view.Projection, filter.Result, error) {
	rows, res := filter.Run(ctx, v.filter, ds, filter.ApplyOptions{SliceSize: slice})
	if !res.Success {
		return nil, nil, res, errors.New(res.Message)
	}
	spec, err := view.ParseSortSpec(v.sort)
	if err != nil {
		return nil, nil, res, err
	}
	for _, k := range spec {
		if _, ok := ds.Index(k.Column); !ok {
			return nil, nil, res, fmt.Errorf("unknown sort column: %s", k.Column)
		}
	}
	rows = view.Sort(rows, spec, ds)
	proj := view.NewProjection(ds)
	if len(v.columns) > 0 {
		var names []string
		for _, c := range v.columns {
			c = strings.TrimSpace(c)
			if _, ok := ds.Index(c); !ok {
				return nil, nil, res, fmt.Errorf("unknown column: %s", c)
			}
			names = append(names, c)
		}
		proj.SetVisible(names)
	}
	return rows, proj, res, nil
}
