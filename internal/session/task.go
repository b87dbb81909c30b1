package session

import (
	"context"
	"errors"
	"sync"

	"trialscope/internal/filter"
	"trialscope/internal/freq"
	"trialscope/internal/ingest"
	"trialscope/internal/model"
	"trialscope/internal/util/logx"
)

// Emit delivers an event to the state owner.
type Emit func(Event)

// LoadTask reads one file and indexes its values.
type LoadTask struct {
	Gen      uint64
	Source   ingest.Source
	Options  ingest.Options
	ValueCap int
}

func (t LoadTask) Run(ctx context.Context, emit Emit) {
	ds, err := ingest.Load(ctx, t.Source, t.Options, func(p ingest.Progress) {
		emit(LoadProgressed{Gen: t.Gen, Progress: p})
	})
	var limit *ingest.RowLimitError
	if err != nil && !errors.As(err, &limit) {
		logx.Warnf("session: load %s failed: %v", t.Source.Name(), err)
		emit(LoadFinished{Gen: t.Gen, Err: err})
		return
	}
	idx, ierr := freq.Build(ctx, ds.Columns, ds.Rows, t.ValueCap)
	if ierr != nil {
		emit(LoadFinished{Gen: t.Gen, Err: ierr})
		return
	}
	emit(LoadFinished{Gen: t.Gen, Dataset: ds, Values: idx, Err: err})
}

// FilterTask compiles and applies one query against a loaded dataset.
type FilterTask struct {
	Gen, FilterGen uint64
	Query          string
	Dataset        *model.Dataset
	SliceSize      int
}

func (t FilterTask) Run(ctx context.Context, emit Emit) {
	rows, res := filter.Run(ctx, t.Query, t.Dataset, filter.ApplyOptions{
		SliceSize: t.SliceSize,
		OnProgress: func(done, total int) {
			emit(FilterProgressed{Gen: t.Gen, FilterGen: t.FilterGen, Done: done, Total: total})
		},
	})
	if !res.Success {
		logx.Infof("session: filter %q rejected: %s", t.Query, res.Message)
	}
	emit(FilterFinished{Gen: t.Gen, FilterGen: t.FilterGen, Query: t.Query, Rows: rows, Result: res})
}

// Runner starts tasks on their own goroutines and funnels their events into
// one channel. Starting a load cancels the previous load and filter;
// starting a filter cancels the previous filter. Events a task sends after
// being superseded are dropped by Reduce through their generation.
type Runner struct {
	events chan Event

	mu           sync.Mutex
	ctx          context.Context
	cancelLoad   context.CancelFunc
	cancelFilter context.CancelFunc
	wg           sync.WaitGroup
}

func NewRunner(ctx context.Context) *Runner {
	return &Runner{ctx: ctx, events: make(chan Event, 64)}
}

// Events is read by the state owner, which applies each event with Reduce.
func (r *Runner) Events() <-chan Event { return r.events }

// emitter sends events until ctx, the task's own context, is cancelled.
func (r *Runner) emitter(ctx context.Context) Emit {
	return func(e Event) {
		switch e.(type) {
		case LoadProgressed, FilterProgressed:
			// progress is advisory; drop it rather than block the task
			select {
			case r.events <- e:
			default:
			}
		default:
			select {
			case r.events <- e:
			case <-ctx.Done():
			}
		}
	}
}

func (r *Runner) StartLoad(t LoadTask) {
	r.mu.Lock()
	if r.cancelFilter != nil {
		r.cancelFilter()
		r.cancelFilter = nil
	}
	if r.cancelLoad != nil {
		r.cancelLoad()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancelLoad = cancel
	r.mu.Unlock()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t.Run(ctx, r.emitter(ctx))
	}()
}

func (r *Runner) StartFilter(t FilterTask) {
	r.mu.Lock()
	if r.cancelFilter != nil {
		r.cancelFilter()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancelFilter = cancel
	r.mu.Unlock()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t.Run(ctx, r.emitter(ctx))
	}()
}

// Stop cancels running tasks and waits for them to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.cancelLoad != nil {
		r.cancelLoad()
	}
	if r.cancelFilter != nil {
		r.cancelFilter()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
