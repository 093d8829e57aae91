package ir

// Version constants recorded with every analysis run.
const (
	// FormatVersion is the program description format version.
	FormatVersion = "1"

	// AnalyzerVersion is the live-range analyzer version.
	AnalyzerVersion = "0.1.0"
)
