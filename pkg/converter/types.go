package converter

// Status is the terminal state of a single file's conversion attempt.
type Status string

const (
	// StatusSuccess means the output file was written.
	StatusSuccess Status = "success"
	// StatusFailed means decode, encode, or path resolution failed; the
	// reason is recorded in the outcome.
	StatusFailed Status = "failed"
	// StatusSkipped means the request was never dispatched because the
	// batch was cancelled first.
	StatusSkipped Status = "skipped"
)

// State is the lifecycle state of an Engine.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCancelling
	StateCancelled
	StateCompleted
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// OutputFormat selects how the CLI renders the final report.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Request describes one file to convert. It is immutable once submitted;
// the Engine builds one per input file from its Options.
type Request struct {
	// SourcePath is the path of the image to convert.
	SourcePath string
	// OutputRoot is the directory converted files are written under.
	OutputRoot string
	// Quality is the JPEG quality, 1..100.
	Quality int
	// PreserveMetadata carries EXIF from the source into the output when
	// the codec can read it.
	PreserveMetadata bool
	// PreserveStructure mirrors the source directory layout under
	// OutputRoot instead of writing a flat directory.
	PreserveStructure bool
	// RenamePattern is an optional output-name template supporting the
	// {name}, {timestamp} and {counter} placeholders. Empty means keep
	// the source base name.
	RenamePattern string
}

// Outcome is the result of exactly one request. The Engine produces one
// Outcome per request it ever accepted, in completion order.
type Outcome struct {
	SourcePath string `json:"sourcePath" yaml:"sourcePath"`
	Status     Status `json:"status" yaml:"status"`
	// OutputPath is set when Status is StatusSuccess.
	OutputPath string `json:"outputPath,omitempty" yaml:"outputPath,omitempty"`
	// Reason is a short human-readable failure description, set when
	// Status is StatusFailed. Callers surface it directly.
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
}
