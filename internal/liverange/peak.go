package liverange

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/liverange/internal/ir"
)

// PointerSize is the tuple-slot width used by DefaultSizeFunc.
const PointerSize = 8

// SizeFunc returns the byte size of a value's buffer. It may fail on a
// malformed shape; the failure is returned to the caller, not raised.
type SizeFunc func(v *ir.Value) (int64, error)

// DefaultSizeFunc sizes a value from its shape with 8-byte tuple slots.
func DefaultSizeFunc(v *ir.Value) (int64, error) {
	shape, err := v.Shape()
	if err != nil {
		return 0, err
	}
	return ir.ByteSizeOf(shape, PointerSize)
}

// Peak is the instant of maximum concurrently-live bytes.
type Peak struct {
	Time  int64 `json:"time"`
	Bytes int64 `json:"bytes"`
}

// memoryEvent is an allocation (+size at start) or a release (-size at
// end+1).
type memoryEvent struct {
	time  int64
	delta int64
	end   bool
	order int
}

// PeakMemoryMoment sweeps the bounds of values and returns the earliest
// time at which the running total of live bytes reaches its maximum.
// Values without a bound are ignored. With no events the peak is {0, 0}.
//
// Events at the same time apply releases before allocations, so the
// reported total never counts a value that ended the tick before.
func PeakMemoryMoment(values []*ir.Value, bounds map[*ir.Value]TimeBound, sizeOf SizeFunc) (Peak, error) {
	events, err := memoryEvents(values, bounds, sizeOf)
	if err != nil {
		return Peak{}, err
	}
	peak, _ := sweep(events)
	return peak, nil
}

// memoryEvents lists an allocation at each value's start and a release one
// tick past its end, sorted by time with releases first at equal times.
// Ordering allocations first, as the pass this analysis derives from does,
// would report a value in the tick after it died.
func memoryEvents(values []*ir.Value, bounds map[*ir.Value]TimeBound, sizeOf SizeFunc) ([]memoryEvent, error) {
	events := make([]memoryEvent, 0, 2*len(values))
	for i, v := range values {
		b, ok := bounds[v]
		if !ok {
			continue
		}
		size, err := sizeOf(v)
		if err != nil {
			return nil, fmt.Errorf("size of %s: %w", v, err)
		}
		events = append(events,
			memoryEvent{time: b.Start, delta: size, order: i},
			memoryEvent{time: b.End + 1, delta: -size, end: true, order: i},
		)
	}
	slices.SortFunc(events, func(a, b memoryEvent) int {
		if c := cmp.Compare(a.time, b.time); c != 0 {
			return c
		}
		if a.end != b.end {
			if a.end {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.order, b.order)
	})
	return events, nil
}

// sweep accumulates events in order and returns the peak and the final
// running total, which is zero for a balanced event list.
func sweep(events []memoryEvent) (Peak, int64) {
	var usage int64
	var peak Peak
	for _, e := range events {
		usage += e.delta
		if usage > peak.Bytes {
			peak = Peak{Time: e.time, Bytes: usage}
		}
	}
	return peak, usage
}
