package converter

import (
	"context"
	"image"
	"io"
	"log/slog"
	"time"
)

// Codec decodes source images and encodes JPEG output. Implementations
// must be safe for concurrent use; every worker shares one Codec.
//
// The default implementation lives in pkg/converter/codec.
type Codec interface {
	// Decode reads and decodes the image at path.
	Decode(ctx context.Context, path string) (image.Image, error)
	// ReadMetadata returns the raw EXIF payload of the source, or
	// ErrNoMetadata when the source carries none.
	ReadMetadata(ctx context.Context, path string) ([]byte, error)
	// Encode writes img to w as JPEG at the given quality, attaching the
	// EXIF payload when exif is non-nil.
	Encode(ctx context.Context, img image.Image, w io.Writer, quality int, exif []byte) error
}

// Hooks receives engine callbacks. Implementations must be safe for
// concurrent use; the engine invokes them from its aggregation goroutine.
// A hook error is logged and never aborts the batch.
type Hooks interface {
	// OnProgress is invoked after each completed outcome with the number
	// of files finished so far, the batch total, and the source file.
	OnProgress(completed, total int, sourcePath string) error
	// OnRunComplete is invoked exactly once with the final report, after
	// every outcome has been recorded.
	OnRunComplete(report Report) error
}

// NoOpHooks is the default do-nothing Hooks implementation.
type NoOpHooks struct{}

func (NoOpHooks) OnProgress(completed, total int, sourcePath string) error { return nil }
func (NoOpHooks) OnRunComplete(report Report) error                        { return nil }

// Options configures an Engine.
type Options struct {
	// InputPath is the directory scanned for HEIF files. Required by the
	// CLI; the library itself only needs it for reporting when requests
	// are supplied directly.
	InputPath string `mapstructure:"input"`
	// OutputPath is the directory converted JPEGs are written under.
	// Required. Created by Run before any dispatch.
	OutputPath string `mapstructure:"output"`

	// Quality is the JPEG quality, 1..100.
	Quality int `mapstructure:"quality"`
	// Workers bounds the conversion pool. 0 selects runtime.NumCPU().
	Workers int `mapstructure:"workers"`
	// PreserveMetadata carries source EXIF into the output when readable.
	PreserveMetadata bool `mapstructure:"preserveMetadata"`
	// Recursive scans subdirectories of InputPath.
	Recursive bool `mapstructure:"recursive"`
	// PreserveStructure mirrors the source directory layout under
	// OutputPath.
	PreserveStructure bool `mapstructure:"preserveStructure"`
	// RenamePattern is the optional output-name template ({name},
	// {timestamp}, {counter}). Empty keeps the source base name.
	RenamePattern string `mapstructure:"renamePattern"`

	// OutputFormat selects the CLI's final report rendering.
	OutputFormat OutputFormat `mapstructure:"outputFormat"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
	// LogFile duplicates log output to a file when non-empty.
	LogFile string `mapstructure:"logFile"`
	// ProgressEnabled is a hint for the CLI progress bar.
	ProgressEnabled bool `mapstructure:"-"`
	// ConfigFilePath records the loaded config file for reporting.
	ConfigFilePath string `mapstructure:"-"`

	// Logger is the logging backend. Required.
	Logger slog.Handler `mapstructure:"-"`
	// EventHooks receives progress and completion callbacks. Defaults to
	// NoOpHooks.
	EventHooks Hooks `mapstructure:"-"`
	// Codec performs the image work. Required.
	Codec Codec `mapstructure:"-"`
	// Clock supplies the timestamp used by the {timestamp} rename
	// placeholder. Defaults to time.Now. Injected for tests.
	Clock func() time.Time `mapstructure:"-"`
}

// Request builds the per-file conversion request for one source path
// under these options.
func (o *Options) Request(sourcePath string) Request {
	return Request{
		SourcePath:        sourcePath,
		OutputRoot:        o.OutputPath,
		Quality:           o.Quality,
		PreserveMetadata:  o.PreserveMetadata,
		PreserveStructure: o.PreserveStructure,
		RenamePattern:     o.RenamePattern,
	}
}
