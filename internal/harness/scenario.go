package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/liverange/internal/dataflow"
)

// Scenario defines a live-range test scenario.
// A scenario analyzes one program and checks the flattened order, ranges
// and peak against expectations and assertions.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path to a CUE program file or directory.
	// Relative paths are resolved against the scenario file location.
	Program string `yaml:"program"`

	// Computation to analyze. Empty means the module entry.
	Computation string `yaml:"computation,omitempty"`

	// ModuleScoped inlines called computations into the flattened order.
	ModuleScoped bool `yaml:"module_scoped,omitempty"`

	// Expect holds exact expectations on the analysis result.
	Expect Expectation `yaml:"expect"`

	// Assertions validate properties of the result.
	// Supported types: sequence_order, live_at, live_count, disjoint
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Expectation lists exact values the analysis must produce. Omitted
// fields are not checked.
type Expectation struct {
	TotallyOrdered *bool            `yaml:"totally_ordered,omitempty"`
	ScheduleEnd    *int64           `yaml:"schedule_end,omitempty"`
	PeakTime       *int64           `yaml:"peak_time,omitempty"`
	PeakBytes      *int64           `yaml:"peak_bytes,omitempty"`
	Sequence       []string         `yaml:"sequence,omitempty"`
	Ranges         []ExpectedRange  `yaml:"ranges,omitempty"`
}

// ExpectedRange is the exact live range one value must have.
type ExpectedRange struct {
	// Value is "name" or "name{i,j}".
	Value string `yaml:"value"`
	Start int64  `yaml:"start"`
	End   int64  `yaml:"end"`
}

// isEmpty reports whether no expectation is set.
func (e Expectation) isEmpty() bool {
	return e.TotallyOrdered == nil && e.ScheduleEnd == nil && e.PeakTime == nil &&
		e.PeakBytes == nil && len(e.Sequence) == 0 && len(e.Ranges) == 0
}

// Assertion validates a property of the analysis result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sequence_order": Check instructions are flattened in this relative order
	// - "live_at": Check values are all live at Time
	// - "live_count": Check exactly Count values are live at Time
	// - "disjoint": Check the ranges of Values do not overlap
	Type string `yaml:"type"`

	// Instructions is the expected relative order (used by sequence_order).
	Instructions []string `yaml:"instructions,omitempty"`

	// Values are value refs (used by live_at and disjoint).
	Values []string `yaml:"values,omitempty"`

	// Time is the instant to inspect (used by live_at and live_count).
	Time *int64 `yaml:"time,omitempty"`

	// Count is the expected number of live values (used by live_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSequenceOrder = "sequence_order"
	AssertLiveAt        = "live_at"
	AssertLiveCount     = "live_count"
	AssertDisjoint      = "disjoint"
)

// DefaultRunID is used when a scenario does not set run_id.
const DefaultRunID = "test-run-default"

// LoadScenario reads and parses a scenario YAML file, resolving the
// program path relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the program path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve program path relative to base path BEFORE validation
	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) && basePath != "" {
		scenario.Program = filepath.Join(basePath, scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program not found: %s", s.Program)
	}

	if s.Expect.isEmpty() && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i, r := range s.Expect.Ranges {
		if _, err := dataflow.ParseValueRef(r.Value); err != nil {
			return fmt.Errorf("expect.ranges[%d]: %w", i, err)
		}
		if r.Start > r.End {
			return fmt.Errorf("expect.ranges[%d]: start %d is after end %d", i, r.Start, r.End)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSequenceOrder:
		if len(a.Instructions) < 2 {
			return fmt.Errorf("assertions[%d]: at least two instructions are required for sequence_order", index)
		}
	case AssertLiveAt:
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for live_at", index)
		}
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for live_at", index)
		}
	case AssertLiveCount:
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for live_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for live_count", index)
		}
	case AssertDisjoint:
		if len(a.Values) < 2 {
			return fmt.Errorf("assertions[%d]: at least two values are required for disjoint", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for _, v := range a.Values {
		if _, err := dataflow.ParseValueRef(v); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}

	return nil
}
