// Package cli orchestrates the application logic after configuration
// loading: directory scanning, engine execution, progress display, and
// final report rendering.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
	"github.com/Panchajanya1999/heif2jpeg/pkg/converter/codec"
)

// Exit codes returned to the shell.
const (
	ExitOK      = 0 // every file converted (or nothing to do)
	ExitFatal   = 1 // batch-level failure before/while running
	ExitPartial = 2 // batch ran, but at least one file failed
)

// Run scans the input directory, converts the batch, and renders the
// final report to stdout. It returns the process exit code.
func Run(ctx context.Context, opts converter.Options, logger *slog.Logger) (int, error) {
	if opts.Codec == nil {
		opts.Codec = codec.NewImageCodec()
	}

	files, err := converter.FindFiles(opts.InputPath, opts.Recursive, opts.Logger)
	if err != nil {
		return ExitFatal, fmt.Errorf("scanning '%s': %w", opts.InputPath, err)
	}
	if len(files) == 0 {
		logger.Info("no HEIF files found", slog.String("input", opts.InputPath))
		fmt.Fprintln(os.Stdout, "No HEIF files found.")
		return ExitOK, nil
	}

	if opts.EventHooks == nil && progressWanted(&opts) {
		opts.EventHooks = newProgressHooks(len(files))
	}

	engine, err := converter.NewEngine(opts)
	if err != nil {
		return ExitFatal, err
	}

	requests := make([]converter.Request, len(files))
	for i, f := range files {
		requests[i] = opts.Request(f)
	}

	report, err := engine.Run(ctx, requests)
	if err != nil {
		return ExitFatal, err
	}

	if err := renderReport(os.Stdout, opts.OutputFormat, report); err != nil {
		return ExitFatal, fmt.Errorf("rendering report: %w", err)
	}
	if report.Summary.Failed > 0 {
		return ExitPartial, nil
	}
	return ExitOK, nil
}

// progressWanted reports whether the interactive progress bar should be
// shown: it needs a terminal on stderr and is suppressed under
// --verbose, where it would interleave with debug logs.
func progressWanted(opts *converter.Options) bool {
	return opts.ProgressEnabled && !opts.Verbose && term.IsTerminal(int(os.Stderr.Fd()))
}

// progressHooks drives a terminal progress bar from engine callbacks.
type progressHooks struct {
	bar *progressbar.ProgressBar
}

func newProgressHooks(total int) *progressHooks {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressHooks{bar: bar}
}

func (h *progressHooks) OnProgress(completed, total int, sourcePath string) error {
	h.bar.Describe(filepath.Base(sourcePath))
	return h.bar.Set(completed)
}

func (h *progressHooks) OnRunComplete(report converter.Report) error {
	return h.bar.Finish()
}

// renderReport writes the final report to w in the requested format.
func renderReport(w io.Writer, format converter.OutputFormat, report converter.Report) error {
	switch format {
	case converter.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case converter.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(report)
	default:
		return renderText(w, report)
	}
}

func renderText(w io.Writer, report converter.Report) error {
	s := report.Summary
	fmt.Fprintln(w, "Conversion complete.")
	fmt.Fprintf(w, "  Total:     %d\n", s.Total)
	fmt.Fprintf(w, "  Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(w, "  Failed:    %d\n", s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:   %d\n", s.Skipped)
	}
	if s.Cancelled {
		fmt.Fprintln(w, "  Run was cancelled before all files were processed.")
	}
	fmt.Fprintf(w, "  Duration:  %.2fs (%d workers)\n", s.DurationSeconds, s.Workers)
	fmt.Fprintf(w, "  Output:    %s\n", s.OutputPath)
	if len(report.Errors) > 0 {
		fmt.Fprintln(w, "Failures:")
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s: %s\n", e.SourcePath, e.Reason)
		}
	}
	return nil
}
