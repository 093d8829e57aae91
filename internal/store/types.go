package store

// Run is one recorded analysis. Instructions, Spans and Ranges are empty
// for runs listed by ListRuns.
type Run struct {
	ID              string   `json:"id"`
	Seq             int64    `json:"seq"`
	ProgramHash     string   `json:"program_hash"`
	Module          string   `json:"module"`
	Computation     string   `json:"computation"`
	ModuleScoped    bool     `json:"module_scoped"`
	TotallyOrdered  bool     `json:"totally_ordered"`
	ScheduleEnd     int64    `json:"schedule_end"`
	PeakTime        int64    `json:"peak_time"`
	PeakBytes       int64    `json:"peak_bytes"`
	Report          string   `json:"report"`
	Warnings        []string `json:"warnings"`
	AnalyzerVersion string   `json:"analyzer_version"`
	FormatVersion   string   `json:"format_version"`

	Instructions []RunInstruction `json:"instructions,omitempty"`
	Spans        []RunSpan        `json:"spans,omitempty"`
	Ranges       []RunRange       `json:"ranges,omitempty"`
}

// RunInstruction is one entry of the flattened order.
type RunInstruction struct {
	Position    int64  `json:"position"`
	Name        string `json:"name"`
	Computation string `json:"computation"`
}

// RunSpan is the [Start, End) range of one flattened computation.
type RunSpan struct {
	Computation string `json:"computation"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
}

// RunRange is the final live range of one value, in value order.
type RunRange struct {
	Value       string `json:"value"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	EndPosition string `json:"end_position"`
	Size        int64  `json:"size"`
}
