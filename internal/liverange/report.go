package liverange

import (
	"fmt"
	"strings"
)

// Report renders a diagnostic listing: the flattened instruction order,
// one live range per value, and the values live at the peak instant with
// their sizes. The format is for humans and is not stable.
func (lr *LiveRange) Report(sizeOf SizeFunc) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "LiveRange (max %d):\n", lr.ScheduleEndTime())
	if !lr.TotallyOrdered() {
		fmt.Fprintf(&b, "  %s\n", ErrNotTotallyOrdered)
		return b.String(), nil
	}

	fmt.Fprintf(&b, "  InstructionSequence:\n")
	for i, inst := range lr.timeline.sequence {
		fmt.Fprintf(&b, "    %d:%s\n", i, inst.Name)
	}

	fmt.Fprintf(&b, "  BufferLiveRange:\n")
	for _, v := range lr.values {
		bound := lr.bounds[v]
		fmt.Fprintf(&b, "    %s%s:%d-%d\n", v.Instruction().Name, v.Index(), bound.Start, bound.End)
	}

	peak, err := lr.PeakMemoryMoment(sizeOf)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(&b, "  Live ranges at %d (peak):\n", peak.Time)
	for _, v := range lr.values {
		if !lr.bounds[v].Contains(peak.Time) {
			continue
		}
		size, err := sizeOf(v)
		if err != nil {
			return "", fmt.Errorf("size of %s: %w", v, err)
		}
		fmt.Fprintf(&b, "    %s: %d bytes\n", v, size)
	}

	return b.String(), nil
}
