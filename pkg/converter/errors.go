package converter

import "errors"

// Error variables returned by the library. Callers can check against
// these with errors.Is. Per-file decode/encode failures never surface as
// errors from Run; they are captured into Outcomes and the Report.

var (
	// ErrAlreadyRunning is returned by Run when the engine is not idle.
	// The call is rejected without touching engine state.
	ErrAlreadyRunning = errors.New("a conversion batch is already running")

	// ErrConfigValidation indicates the provided Options failed the
	// checks performed by NewEngine.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrOutputRoot indicates the output root directory could not be
	// created. It is fatal to the batch and occurs before any dispatch.
	ErrOutputRoot = errors.New("cannot create output directory")

	// ErrMkdirFailed indicates a per-request output subdirectory could
	// not be created. It fails that request only, not the batch.
	ErrMkdirFailed = errors.New("failed to create output subdirectory")

	// ErrDecode indicates the source image could not be decoded.
	ErrDecode = errors.New("failed to decode source image")

	// ErrEncode indicates the target JPEG could not be encoded or
	// written. Nothing remains at the output path when this occurs.
	ErrEncode = errors.New("failed to encode output image")

	// ErrNoMetadata is returned by a Codec when the source carries no
	// readable EXIF data. The worker degrades to writing the output
	// without metadata rather than failing the conversion.
	ErrNoMetadata = errors.New("no metadata available")
)
