package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Ranges   []RangeResult // All recorded ranges for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Ranges) > 0 {
		fmt.Fprintf(&buf, "\nRecorded ranges:\n")
		for _, r := range e.Ranges {
			fmt.Fprintf(&buf, "  %s %d-%d\n", r.Value, r.Start, r.End)
		}
	}

	return buf.String()
}

// checkExpectations compares the result against exact expectations.
// Returns one message per mismatch.
func checkExpectations(result *Result, expect Expectation) []string {
	var errs []string
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if expect.TotallyOrdered != nil && *expect.TotallyOrdered != result.TotallyOrdered {
		addf("totally_ordered: expected %t, got %t", *expect.TotallyOrdered, result.TotallyOrdered)
	}
	if expect.ScheduleEnd != nil && *expect.ScheduleEnd != result.ScheduleEnd {
		addf("schedule_end: expected %d, got %d", *expect.ScheduleEnd, result.ScheduleEnd)
	}
	if expect.PeakTime != nil && *expect.PeakTime != result.Peak.Time {
		addf("peak_time: expected %d, got %d", *expect.PeakTime, result.Peak.Time)
	}
	if expect.PeakBytes != nil && *expect.PeakBytes != result.Peak.Bytes {
		addf("peak_bytes: expected %d, got %d", *expect.PeakBytes, result.Peak.Bytes)
	}
	if len(expect.Sequence) > 0 && !slices.Equal(expect.Sequence, result.Sequence) {
		addf("sequence: expected %v, got %v", expect.Sequence, result.Sequence)
	}
	for _, want := range expect.Ranges {
		got, ok := result.Range(want.Value)
		switch {
		case !ok:
			addf("range %s: expected %d-%d, not recorded", want.Value, want.Start, want.End)
		case got.Start != want.Start || got.End != want.End:
			addf("range %s: expected %d-%d, got %d-%d", want.Value, want.Start, want.End, got.Start, got.End)
		}
	}
	return errs
}

// assertSequenceOrder checks that instructions were flattened in the given
// relative order. They need not be adjacent.
func assertSequenceOrder(result *Result, assertion Assertion) error {
	positions := make(map[string]int, len(assertion.Instructions))
	for _, name := range assertion.Instructions {
		idx := slices.Index(result.Sequence, name)
		if idx < 0 {
			return &AssertionError{
				Type:     AssertSequenceOrder,
				Expected: fmt.Sprintf("all instructions present: %v", assertion.Instructions),
				Actual:   fmt.Sprintf("missing instruction: %s (sequence %v)", name, result.Sequence),
			}
		}
		positions[name] = idx
	}

	for i := 1; i < len(assertion.Instructions); i++ {
		prev := assertion.Instructions[i-1]
		curr := assertion.Instructions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertSequenceOrder,
				Expected: fmt.Sprintf("instructions in order: %v", assertion.Instructions),
				Actual: fmt.Sprintf("%s (time %d) should be before %s (time %d)",
					prev, positions[prev], curr, positions[curr]),
			}
		}
	}

	return nil
}

// assertLiveAt checks that every listed value is live at the given time.
func assertLiveAt(result *Result, assertion Assertion) error {
	t := *assertion.Time
	for _, value := range assertion.Values {
		r, ok := result.Range(value)
		if !ok {
			return &AssertionError{
				Type:     AssertLiveAt,
				Expected: fmt.Sprintf("%s live at %d", value, t),
				Actual:   "value has no recorded range",
				Ranges:   result.Ranges,
			}
		}
		if r.Start > t || t > r.End {
			return &AssertionError{
				Type:     AssertLiveAt,
				Expected: fmt.Sprintf("%s live at %d", value, t),
				Actual:   fmt.Sprintf("%s is live %d-%d", r.Value, r.Start, r.End),
				Ranges:   result.Ranges,
			}
		}
	}
	return nil
}

// assertLiveCount checks the exact number of values live at a time.
func assertLiveCount(result *Result, assertion Assertion) error {
	live := result.LiveAt(*assertion.Time)
	if len(live) != assertion.Count {
		return &AssertionError{
			Type:     AssertLiveCount,
			Expected: fmt.Sprintf("%d values live at %d", assertion.Count, *assertion.Time),
			Actual:   fmt.Sprintf("%d values live: %v", len(live), live),
			Ranges:   result.Ranges,
		}
	}
	return nil
}

// assertDisjoint checks that no two listed values overlap in time.
func assertDisjoint(result *Result, assertion Assertion) error {
	ranges := make([]RangeResult, 0, len(assertion.Values))
	for _, value := range assertion.Values {
		r, ok := result.Range(value)
		if !ok {
			return &AssertionError{
				Type:     AssertDisjoint,
				Expected: fmt.Sprintf("recorded range for %s", value),
				Actual:   "value has no recorded range",
				Ranges:   result.Ranges,
			}
		}
		ranges = append(ranges, r)
	}

	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.Start <= b.End && b.Start <= a.End {
				return &AssertionError{
					Type:     AssertDisjoint,
					Expected: fmt.Sprintf("%s and %s disjoint", a.Value, b.Value),
					Actual:   fmt.Sprintf("%s %d-%d overlaps %s %d-%d", a.Value, a.Start, a.End, b.Value, b.Start, b.End),
					Ranges:   result.Ranges,
				}
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSequenceOrder:
			err = assertSequenceOrder(result, assertion)
		case AssertLiveAt:
			if assertion.Time == nil {
				err = fmt.Errorf("assertion[%d]: live_at requires time", i)
			} else {
				err = assertLiveAt(result, assertion)
			}
		case AssertLiveCount:
			if assertion.Time == nil {
				err = fmt.Errorf("assertion[%d]: live_count requires time", i)
			} else {
				err = assertLiveCount(result, assertion)
			}
		case AssertDisjoint:
			err = assertDisjoint(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
