package liverange

import (
	"cmp"
	"slices"

	"github.com/roach88/liverange/internal/ir"
)

// normalizeAliasedBuffers removes improper overlap among the bounds of
// values sharing a buffer. Bounds are sorted by (start, end) and each
// adjacent pair is visited once, left to right:
//
//   - equal starts: the first range takes the second's end
//   - disjoint: unchanged
//   - overlapping: the second range absorbs the later end and the first
//     ends one tick before the second starts
//
// The equal-start case is meant to make the first value disappear (end at
// its start) but has always widened it to the second's end instead.
// Allocators depend on that arithmetic, so it is kept as is.
func normalizeAliasedBuffers(buffers []*ir.Buffer, bounds map[*ir.Value]TimeBound) {
	for _, buf := range buffers {
		var owners []*ir.Value
		var ranges []TimeBound
		for _, v := range buf.Values() {
			if b, ok := bounds[v]; ok {
				owners = append(owners, v)
				ranges = append(ranges, b)
			}
		}
		if len(ranges) < 2 {
			continue
		}

		order := make([]int, len(ranges))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			if c := cmp.Compare(ranges[a].Start, ranges[b].Start); c != 0 {
				return c
			}
			return cmp.Compare(ranges[a].End, ranges[b].End)
		})

		for k := 0; k+1 < len(order); k++ {
			r1 := &ranges[order[k]]
			r2 := &ranges[order[k+1]]
			if r1.Start == r2.Start {
				r1.End = r2.End
				continue
			}
			if r1.End < r2.Start {
				continue
			}
			r2.End = max(r1.End, r2.End)
			r1.End = r2.Start - 1
		}

		for i, v := range owners {
			bounds[v] = ranges[i]
		}
	}
}
