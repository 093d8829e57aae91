package harness

import "github.com/roach88/liverange/internal/liverange"

// RangeResult is the final live range of one value as recorded for a run.
type RangeResult struct {
	Value string `json:"value"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Size  int64  `json:"size"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations and assertions match.
	Pass bool `json:"pass"`

	// RunID is the fixed run ID the scenario was recorded under.
	RunID string `json:"run_id"`

	TotallyOrdered bool           `json:"totally_ordered"`
	ScheduleEnd    int64          `json:"schedule_end"`
	Peak           liverange.Peak `json:"peak"`

	// Sequence is the flattened instruction order, one name per timestamp.
	Sequence []string `json:"sequence"`

	// Ranges are read back from the store in value order.
	Ranges []RangeResult `json:"ranges"`

	// Report is the rendered text report.
	Report string `json:"report"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Sequence: []string{},
		Ranges:   []RangeResult{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Range returns the recorded range of a value ("name" or "name{i}").
func (r *Result) Range(value string) (RangeResult, bool) {
	value = normalizeValueName(value)
	for _, rr := range r.Ranges {
		if rr.Value == value {
			return rr, true
		}
	}
	return RangeResult{}, false
}

// LiveAt returns the values whose range contains t, in value order.
func (r *Result) LiveAt(t int64) []string {
	live := []string{}
	for _, rr := range r.Ranges {
		if rr.Start <= t && t <= rr.End {
			live = append(live, rr.Value)
		}
	}
	return live
}
