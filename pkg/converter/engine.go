package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Engine is the batch scheduler. It owns a bounded worker pool, fans a
// request list out across it, collects outcomes in completion order, and
// supports cooperative cancellation.
//
// Lifecycle: Idle -> Running -> {Completed, Cancelling -> Cancelled}.
// Run may be called again once a terminal state is reached.
type Engine struct {
	opts     *Options
	logger   *slog.Logger
	workers  int
	conv     *fileConverter
	resolver *Resolver

	state atomic.Int32

	mu        sync.Mutex
	runCancel context.CancelFunc // non-nil while a run is dispatching
	cancelled bool
}

// NewEngine validates opts and creates an Engine. A zero Workers value
// selects runtime.NumCPU().
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger cannot be nil", ErrConfigValidation)
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("%w: Codec cannot be nil", ErrConfigValidation)
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path cannot be empty", ErrConfigValidation)
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return nil, fmt.Errorf("%w: quality %d outside 1..100", ErrConfigValidation, opts.Quality)
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: workers cannot be negative", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = NoOpHooks{}
	}

	workers := opts.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))
	resolver := NewResolver(opts.Clock, opts.Logger)
	e := &Engine{
		opts:     &opts,
		logger:   logger,
		workers:  workers,
		resolver: resolver,
		conv:     newFileConverter(opts.Codec, resolver, opts.Logger),
	}
	e.state.Store(int32(StateIdle))
	return e, nil
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Cancel requests cooperative cancellation of the running batch.
// Requests not yet handed to a worker are never dispatched; conversions
// already executing run to completion so no partially written output is
// left behind. Cancel is a no-op unless the engine is Running.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if State(e.state.Load()) != StateRunning || e.runCancel == nil {
		return
	}
	e.cancelled = true
	e.state.Store(int32(StateCancelling))
	e.runCancel()
	e.logger.Info("cancellation requested, waiting for in-flight conversions to finish")
}

// Run converts the given requests and blocks until the batch reaches a
// terminal state. It returns ErrAlreadyRunning when invoked while a
// batch is in flight, and a batch-level error when the output root
// cannot be created (before any dispatch). Per-file failures never
// surface here; they are recorded in the Report.
//
// Cancellation of ctx is treated like Cancel(): no new work starts,
// in-flight conversions drain, and the report marks the run cancelled.
func (e *Engine) Run(ctx context.Context, requests []Request) (Report, error) {
	if !e.beginRun() {
		return Report{}, ErrAlreadyRunning
	}
	startTime := time.Now()

	if err := os.MkdirAll(e.opts.OutputPath, 0o755); err != nil {
		e.finishRun(false)
		return Report{}, fmt.Errorf("%w '%s': %v", ErrOutputRoot, e.opts.OutputPath, err)
	}

	e.logger.Info("starting batch conversion",
		slog.Int("files", len(requests)),
		slog.Int("workers", e.workers))

	// dispatchCtx only gates dispatching. Workers receive a context that
	// never cancels so an in-flight encode is never interrupted mid-write.
	dispatchCtx, dispatchCancel := context.WithCancel(context.Background())
	e.armCancel(dispatchCancel)

	runDone := make(chan struct{})
	defer close(runDone)
	go func() {
		select {
		case <-ctx.Done():
			e.Cancel()
		case <-runDone:
		}
	}()

	tracker := newBatchTracker(len(requests))
	workCh := make(chan Request)
	resultsCh := make(chan Outcome, e.workers)
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for req := range workCh {
				resultsCh <- e.conv.convert(workCtx, req)
			}
		}(i)
	}

	aggDone := make(chan struct{})
	go e.aggregate(tracker, resultsCh, aggDone)

	// Dispatch loop: the cancellation flag is checked before every
	// unstarted request, including while blocked on worker availability.
	dispatched := 0
dispatch:
	for _, req := range requests {
		select {
		case <-dispatchCtx.Done():
			break dispatch
		default:
		}
		select {
		case workCh <- req:
			dispatched++
		case <-dispatchCtx.Done():
			break dispatch
		}
	}
	close(workCh)

	// Requests never handed to a worker still get exactly one outcome.
	for _, req := range requests[dispatched:] {
		resultsCh <- Outcome{SourcePath: req.SourcePath, Status: StatusSkipped}
	}

	wg.Wait()
	close(resultsCh)
	<-aggDone

	cancelled := e.finishRun(true)
	if cancelled {
		tracker.markCancelled()
	}

	report := tracker.finalize(e.opts, e.workers, startTime)
	e.logger.Info("batch conversion finished",
		slog.Int("total", report.Summary.Total),
		slog.Int("succeeded", report.Summary.Succeeded),
		slog.Int("failed", report.Summary.Failed),
		slog.Int("skipped", report.Summary.Skipped),
		slog.Bool("cancelled", report.Summary.Cancelled),
		slog.Duration("took", time.Since(startTime)))

	if err := e.opts.EventHooks.OnRunComplete(report); err != nil {
		e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", err.Error()))
	}
	return report, nil
}

// aggregate receives outcomes from the workers, records them, and fires
// the progress hook. Running on a single goroutine keeps record calls
// and hook invocations linearizable.
func (e *Engine) aggregate(tracker *batchTracker, resultsCh <-chan Outcome, done chan<- struct{}) {
	defer close(done)
	for o := range resultsCh {
		completed := tracker.record(o)
		if o.Status == StatusSkipped {
			continue
		}
		if err := e.opts.EventHooks.OnProgress(completed, tracker.total, o.SourcePath); err != nil {
			e.logger.Warn("OnProgress hook returned an error",
				slog.String("source", o.SourcePath),
				slog.String("error", err.Error()))
		}
	}
}

// beginRun transitions Idle/Completed/Cancelled -> Running. It returns
// false when a batch is already in flight.
func (e *Engine) beginRun() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch State(e.state.Load()) {
	case StateRunning, StateCancelling:
		return false
	}
	e.state.Store(int32(StateRunning))
	e.cancelled = false
	e.runCancel = nil
	return true
}

func (e *Engine) armCancel(cancel context.CancelFunc) {
	e.mu.Lock()
	e.runCancel = cancel
	e.mu.Unlock()
}

// finishRun moves the engine to its terminal state and reports whether
// the run was cancelled. drained is false only when the run aborted
// before any dispatch, in which case the engine returns to Idle.
func (e *Engine) finishRun(drained bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runCancel != nil {
		e.runCancel()
		e.runCancel = nil
	}
	cancelled := e.cancelled
	switch {
	case !drained:
		e.state.Store(int32(StateIdle))
	case cancelled:
		e.state.Store(int32(StateCancelled))
	default:
		e.state.Store(int32(StateCompleted))
	}
	return cancelled
}
