package converter

import (
	"sync"
	"time"
)

// Summary holds the aggregated counters of one batch run.
//
// Completed == Succeeded + Failed at every observation point; Skipped
// counts requests excluded by cancellation, which contribute to neither.
type Summary struct {
	InputPath       string    `json:"inputPath,omitempty" yaml:"inputPath,omitempty"`
	OutputPath      string    `json:"outputPath" yaml:"outputPath"`
	Total           int       `json:"total" yaml:"total"`
	Completed       int       `json:"completed" yaml:"completed"`
	Succeeded       int       `json:"succeeded" yaml:"succeeded"`
	Failed          int       `json:"failed" yaml:"failed"`
	Skipped         int       `json:"skipped" yaml:"skipped"`
	Cancelled       bool      `json:"cancelled" yaml:"cancelled"`
	Workers         int       `json:"workers" yaml:"workers"`
	DurationSeconds float64   `json:"durationSeconds" yaml:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
}

// Report is the final result of a batch run: the summary plus the
// per-file detail log in completion order.
type Report struct {
	Summary   Summary   `json:"summary" yaml:"summary"`
	Converted []Outcome `json:"converted" yaml:"converted"`
	Errors    []Outcome `json:"errors" yaml:"errors"`
}

// batchTracker accumulates outcomes during a run. record is the only
// mutator and is safe to call from concurrent completions; it is the
// single synchronization point of the engine.
type batchTracker struct {
	mu        sync.Mutex
	total     int
	completed int
	succeeded int
	failed    int
	skipped   int
	cancelled bool
	converted []Outcome
	errors    []Outcome
}

func newBatchTracker(total int) *batchTracker {
	return &batchTracker{
		total:     total,
		converted: make([]Outcome, 0, total),
	}
}

// record accounts for exactly one outcome. It returns the completed
// count after the update so callers can report progress without a second
// lock acquisition.
func (t *batchTracker) record(o Outcome) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch o.Status {
	case StatusSuccess:
		t.completed++
		t.succeeded++
		t.converted = append(t.converted, o)
	case StatusFailed:
		t.completed++
		t.failed++
		t.errors = append(t.errors, o)
	case StatusSkipped:
		t.skipped++
	}
	return t.completed
}

func (t *batchTracker) markCancelled() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// snapshot returns a consistent point-in-time copy of the counters,
// usable for progress display while the run is in flight.
func (t *batchTracker) snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		Total:     t.total,
		Completed: t.completed,
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Skipped:   t.skipped,
		Cancelled: t.cancelled,
	}
}

// finalize compiles the immutable final report. The engine calls it once,
// after the aggregation goroutine has observed every recorded outcome.
func (t *batchTracker) finalize(opts *Options, workers int, startTime time.Time) Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	converted := make([]Outcome, len(t.converted))
	copy(converted, t.converted)
	errs := make([]Outcome, len(t.errors))
	copy(errs, t.errors)
	return Report{
		Summary: Summary{
			InputPath:       opts.InputPath,
			OutputPath:      opts.OutputPath,
			Total:           t.total,
			Completed:       t.completed,
			Succeeded:       t.succeeded,
			Failed:          t.failed,
			Skipped:         t.skipped,
			Cancelled:       t.cancelled,
			Workers:         workers,
			DurationSeconds: time.Since(startTime).Seconds(),
			Timestamp:       time.Now().UTC(),
		},
		Converted: converted,
		Errors:    errs,
	}
}
