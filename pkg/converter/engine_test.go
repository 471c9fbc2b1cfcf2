package converter_test

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Panchajanya1999/heif2jpeg/internal/testutil"
	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
)

func testOptions(t *testing.T, codec converter.Codec) converter.Options {
	t.Helper()
	return converter.Options{
		OutputPath: t.TempDir(),
		Quality:    90,
		Workers:    2,
		Logger:     slog.NewTextHandler(io.Discard, nil),
		Codec:      codec,
	}
}

// happyCodec returns a mock that decodes and encodes everything.
func happyCodec() *testutil.MockCodec {
	codec := &testutil.MockCodec{}
	codec.On("Decode", mock.Anything, mock.Anything).Return(image.NewRGBA(image.Rect(0, 0, 1, 1)), nil)
	codec.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			w := args.Get(2).(io.Writer)
			_, _ = w.Write([]byte("x"))
		}).Return(nil)
	return codec
}

func makeRequests(opts *converter.Options, paths ...string) []converter.Request {
	reqs := make([]converter.Request, len(paths))
	for i, p := range paths {
		reqs[i] = opts.Request(p)
	}
	return reqs
}

func TestEngineRunConvertsAll(t *testing.T) {
	opts := testOptions(t, happyCodec())
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	report, err := engine.Run(context.Background(),
		makeRequests(&opts, "/src/a.heic", "/src/b.heic", "/src/c.heic", "/src/d.heic", "/src/e.heic"))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Summary.Total)
	assert.Equal(t, 5, report.Summary.Succeeded)
	assert.Equal(t, 5, report.Summary.Completed)
	assert.Zero(t, report.Summary.Failed)
	assert.Zero(t, report.Summary.Skipped)
	assert.False(t, report.Summary.Cancelled)
	assert.Len(t, report.Converted, 5)
	assert.Equal(t, converter.StateCompleted, engine.State())
}

func TestEngineRunRecordsFailures(t *testing.T) {
	codec := &testutil.MockCodec{}
	codec.On("Decode", mock.Anything, "/src/bad.heic").Return(nil, errors.New("corrupt"))
	codec.On("Decode", mock.Anything, mock.Anything).Return(image.NewRGBA(image.Rect(0, 0, 1, 1)), nil)
	codec.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			w := args.Get(2).(io.Writer)
			_, _ = w.Write([]byte("x"))
		}).Return(nil)

	opts := testOptions(t, codec)
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	report, err := engine.Run(context.Background(),
		makeRequests(&opts, "/src/a.heic", "/src/bad.heic", "/src/c.heic"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.Succeeded)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, report.Summary.Completed, report.Summary.Succeeded+report.Summary.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "/src/bad.heic", report.Errors[0].SourcePath)
	assert.Contains(t, report.Errors[0].Reason, "corrupt")
	assert.Equal(t, converter.StateCompleted, engine.State())
}

func TestEngineProgressHook(t *testing.T) {
	var mu sync.Mutex
	var progress []int

	hooks := &testutil.MockHooks{}
	hooks.On("OnProgress", mock.Anything, 3, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			progress = append(progress, args.Int(0))
			mu.Unlock()
		}).Return(nil)
	hooks.On("OnRunComplete", mock.Anything).Return(nil)

	opts := testOptions(t, happyCodec())
	opts.Workers = 1
	opts.EventHooks = hooks
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(),
		makeRequests(&opts, "/src/a.heic", "/src/b.heic", "/src/c.heic"))
	require.NoError(t, err)

	// A single worker completes in order, so progress is strictly 1..3.
	assert.Equal(t, []int{1, 2, 3}, progress)
	hooks.AssertNumberOfCalls(t, "OnRunComplete", 1)
}

func TestEngineRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})

	codec := &testutil.MockCodec{}
	codec.On("Decode", mock.Anything, mock.Anything).Return(image.NewRGBA(image.Rect(0, 0, 1, 1)), nil)
	codec.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			once.Do(func() { close(started) })
			<-release
			w := args.Get(2).(io.Writer)
			_, _ = w.Write([]byte("x"))
		}).Return(nil)

	opts := testOptions(t, codec)
	opts.Workers = 1
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = engine.Run(context.Background(), makeRequests(&opts, "/src/a.heic"))
	}()

	<-started
	assert.Equal(t, converter.StateRunning, engine.State())
	_, err = engine.Run(context.Background(), nil)
	assert.ErrorIs(t, err, converter.ErrAlreadyRunning)

	close(release)
	<-done
	assert.Equal(t, converter.StateCompleted, engine.State())
}

func TestEngineCancelSkipsUndispatched(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})

	codec := &testutil.MockCodec{}
	codec.On("Decode", mock.Anything, mock.Anything).Return(image.NewRGBA(image.Rect(0, 0, 1, 1)), nil)
	codec.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			once.Do(func() { close(started) })
			<-release
			w := args.Get(2).(io.Writer)
			_, _ = w.Write([]byte("x"))
		}).Return(nil)

	opts := testOptions(t, codec)
	opts.Workers = 1
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	reports := make(chan converter.Report, 1)
	go func() {
		report, runErr := engine.Run(context.Background(),
			makeRequests(&opts, "/src/a.heic", "/src/b.heic", "/src/c.heic"))
		assert.NoError(t, runErr)
		reports <- report
	}()

	// The single worker is parked inside the first encode; nothing else
	// has been dispatched when Cancel lands.
	<-started
	engine.Cancel()
	close(release)

	report := <-reports
	assert.True(t, report.Summary.Cancelled)
	assert.Equal(t, 1, report.Summary.Succeeded)
	assert.Equal(t, 2, report.Summary.Skipped)
	assert.Equal(t, report.Summary.Total,
		report.Summary.Succeeded+report.Summary.Failed+report.Summary.Skipped)
	assert.Equal(t, converter.StateCancelled, engine.State())

	// The in-flight conversion was allowed to finish.
	require.Len(t, report.Converted, 1)
	assert.Equal(t, "/src/a.heic", report.Converted[0].SourcePath)
}

func TestEngineContextCancellation(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})

	codec := &testutil.MockCodec{}
	codec.On("Decode", mock.Anything, mock.Anything).Return(image.NewRGBA(image.Rect(0, 0, 1, 1)), nil)
	codec.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			once.Do(func() { close(started) })
			<-release
			w := args.Get(2).(io.Writer)
			_, _ = w.Write([]byte("x"))
		}).Return(nil)

	opts := testOptions(t, codec)
	opts.Workers = 1
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reports := make(chan converter.Report, 1)
	go func() {
		report, runErr := engine.Run(ctx, makeRequests(&opts, "/src/a.heic", "/src/b.heic"))
		assert.NoError(t, runErr)
		reports <- report
	}()

	<-started
	cancel()
	// Cancellation propagates through a watcher goroutine; give it a
	// moment before unblocking the worker.
	require.Eventually(t, func() bool {
		return engine.State() == converter.StateCancelling
	}, 2*time.Second, 5*time.Millisecond)
	close(release)

	report := <-reports
	assert.True(t, report.Summary.Cancelled)
	assert.Equal(t, 1, report.Summary.Skipped)
	assert.Equal(t, converter.StateCancelled, engine.State())
}

func TestEngineRunAgainAfterCompletion(t *testing.T) {
	opts := testOptions(t, happyCodec())
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		report, runErr := engine.Run(context.Background(), makeRequests(&opts, "/src/a.heic"))
		require.NoError(t, runErr)
		assert.Equal(t, 1, report.Summary.Succeeded)
		assert.Equal(t, converter.StateCompleted, engine.State())
	}
}

func TestEngineEmptyBatch(t *testing.T) {
	opts := testOptions(t, &testutil.MockCodec{})
	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	report, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Summary.Total)
	assert.Equal(t, converter.StateCompleted, engine.State())
}

func TestNewEngineValidation(t *testing.T) {
	base := testOptions(t, &testutil.MockCodec{})

	cases := []struct {
		name   string
		mutate func(*converter.Options)
	}{
		{"nil logger", func(o *converter.Options) { o.Logger = nil }},
		{"nil codec", func(o *converter.Options) { o.Codec = nil }},
		{"empty output", func(o *converter.Options) { o.OutputPath = "" }},
		{"quality too low", func(o *converter.Options) { o.Quality = 0 }},
		{"quality too high", func(o *converter.Options) { o.Quality = 101 }},
		{"negative workers", func(o *converter.Options) { o.Workers = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := base
			tc.mutate(&opts)
			_, err := converter.NewEngine(opts)
			assert.ErrorIs(t, err, converter.ErrConfigValidation)
		})
	}
}

func TestEngineOutputRootFailure(t *testing.T) {
	opts := testOptions(t, &testutil.MockCodec{})
	// A file where the output root should be.
	opts.OutputPath = filepath.Join(opts.OutputPath, "occupied")
	require.NoError(t, os.WriteFile(opts.OutputPath, []byte("x"), 0o644))

	engine, err := converter.NewEngine(opts)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), makeRequests(&opts, "/src/a.heic"))
	assert.ErrorIs(t, err, converter.ErrOutputRoot)
	// The engine returns to Idle; a corrected run must be possible.
	assert.Equal(t, converter.StateIdle, engine.State())
}
