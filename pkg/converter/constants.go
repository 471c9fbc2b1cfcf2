package converter

// Default option values shared by the library and the CLI flag set.
const (
	DefaultQuality           = 90
	DefaultWorkers           = 0 // auto: runtime.NumCPU()
	DefaultPreserveMetadata  = true
	DefaultRecursive         = false
	DefaultPreserveStructure = true
	DefaultOutputFormat      = OutputFormatText

	// TargetExtension is the fixed extension of converted files.
	TargetExtension = ".jpg"

	// TimestampLayout formats the {timestamp} rename placeholder as
	// YYYYMMDD_HHMMSS.
	TimestampLayout = "20060102_150405"
)

// SourceExtensions lists the recognized HEIF extensions, matched
// case-insensitively by the walker.
var SourceExtensions = []string{".heif", ".heic", ".hif"}
