// Package session holds the browsing state of one analyst session and the
// pure transitions between states. Long work runs in tasks that report
// back through events; an event from a superseded load or filter is
// dropped by Reduce.
package session

import (
	"errors"

	"trialscope/internal/filter"
	"trialscope/internal/freq"
	"trialscope/internal/ingest"
	"trialscope/internal/model"
	"trialscope/internal/view"
)

type State struct {
	File string
	// LoadGen identifies the current file selection; FilterGen the current
	// filter request within it.
	LoadGen   uint64
	FilterGen uint64

	Loading  bool
	Progress ingest.Progress
	Dataset  *model.Dataset
	Values   *freq.Index
	// Notice is a non-fatal message such as the row limit warning.
	Notice string
	Err    string

	Filter       string // text of the filter currently applied
	PendingQuery string // text of the filter being computed
	Filtering    bool
	FilterResult *filter.Result
	Filtered     []model.Row

	Sort       view.SortSpec
	Sorted     []model.Row
	Page       int
	PageSize   int
	Projection *view.Projection
}

// New returns the empty state with the given page size.
func New(pageSize int) State {
	if pageSize <= 0 {
		pageSize = view.DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize}
}

// Window is the current page of sorted rows.
func (s State) Window() ([]model.Row, view.PageInfo) {
	return view.Paginate(s.Sorted, s.Page, s.PageSize)
}

func (s State) Busy() bool { return s.Loading || s.Filtering }

// Ready reports a loaded dataset with no load in flight.
func (s State) Ready() bool { return s.Dataset != nil && !s.Loading }

type Event interface{ event() }

// FileSelected starts a new load generation and resets everything derived
// from the previous file.
type FileSelected struct{ File string }

type LoadProgressed struct {
	Gen      uint64
	Progress ingest.Progress
}

type LoadFinished struct {
	Gen     uint64
	Dataset *model.Dataset
	Values  *freq.Index
	Err     error
}

// FilterStarted opens a new filter generation for Query.
type FilterStarted struct{ Query string }

type FilterProgressed struct {
	Gen, FilterGen uint64
	Done, Total    int
}

type FilterFinished struct {
	Gen, FilterGen uint64
	Query          string
	Rows           []model.Row
	Result         filter.Result
}

// SortRequested toggles Column through asc, desc and off.
type SortRequested struct{ Column string }

// SortChanged replaces the whole spec (reorder, remove, direction edits).
type SortChanged struct{ Spec view.SortSpec }

type PageRequested struct{ Page int }

type ColumnToggled struct{ Column string }

type ColumnMoved struct {
	Column string
	To     int
}

func (FileSelected) event()     {}
func (LoadProgressed) event()   {}
func (LoadFinished) event()     {}
func (FilterStarted) event()    {}
func (FilterProgressed) event() {}
func (FilterFinished) event()   {}
func (SortRequested) event()    {}
func (SortChanged) event()      {}
func (PageRequested) event()    {}
func (ColumnToggled) event()    {}
func (ColumnMoved) event()      {}

// Reduce returns the state after e. It never mutates s.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case FileSelected:
		next := New(s.PageSize)
		next.File = e.File
		next.LoadGen = s.LoadGen + 1
		next.FilterGen = s.FilterGen
		next.Loading = true
		next.Progress = ingest.Progress{Phase: ingest.PhaseReading, Message: "Loading " + e.File}
		return next

	case LoadProgressed:
		if e.Gen != s.LoadGen || !s.Loading {
			return s
		}
		if e.Progress.Current >= s.Progress.Current {
			s.Progress = e.Progress
		}
		return s

	case LoadFinished:
		if e.Gen != s.LoadGen || !s.Loading {
			return s
		}
		s.Loading = false
		var limit *ingest.RowLimitError
		switch {
		case errors.As(e.Err, &limit):
			s.Notice = limit.Error()
		case e.Err != nil || e.Dataset == nil:
			s.Err = "load failed"
			if e.Err != nil {
				s.Err = e.Err.Error()
			}
			s.Progress = ingest.Progress{Current: 100, Phase: ingest.PhaseDone, Message: "Load failed"}
			return s
		}
		s.Dataset = e.Dataset
		s.Values = e.Values
		s.Projection = view.NewProjection(e.Dataset)
		s.Filtered = e.Dataset.Rows
		s.Sorted = s.Filtered
		s.Page = 1
		s.Progress = ingest.Progress{Current: 100, Phase: ingest.PhaseDone, Message: "Loaded"}
		return s

	case FilterStarted:
		if s.Dataset == nil || s.Loading {
			return s
		}
		s.FilterGen++
		s.Filtering = true
		s.PendingQuery = e.Query
		return s

	case FilterProgressed:
		return s

	case FilterFinished:
		if e.Gen != s.LoadGen || e.FilterGen != s.FilterGen || !s.Filtering {
			return s
		}
		s.Filtering = false
		s.PendingQuery = ""
		res := e.Result
		s.FilterResult = &res
		if !res.Success {
			return s
		}
		s.Filter = e.Query
		s.Filtered = e.Rows
		s.Sorted = view.Sort(s.Filtered, s.Sort, s.Dataset)
		s.Page = 1
		return s

	case SortRequested:
		if s.Dataset == nil {
			return s
		}
		if _, ok := s.Dataset.Index(e.Column); !ok {
			return s
		}
		return s.withSort(s.Sort.Toggle(e.Column))

	case SortChanged:
		if s.Dataset == nil {
			return s
		}
		spec := make(view.SortSpec, 0, len(e.Spec))
		for _, k := range e.Spec {
			if _, ok := s.Dataset.Index(k.Column); ok {
				spec = append(spec, k)
			}
		}
		return s.withSort(spec)

	case PageRequested:
		s.Page = view.ClampPage(e.Page, len(s.Sorted), s.PageSize)
		return s

	case ColumnToggled:
		if s.Projection == nil {
			return s
		}
		s.Projection = s.Projection.Clone()
		s.Projection.Toggle(e.Column)
		return s

	case ColumnMoved:
		if s.Projection == nil {
			return s
		}
		s.Projection = s.Projection.Clone()
		s.Projection.Move(e.Column, e.To)
		return s
	}
	return s
}

func (s State) withSort(spec view.SortSpec) State {
	s.Sort = spec
	s.Sorted = view.Sort(s.Filtered, spec, s.Dataset)
	s.Page = 1
	return s
}
