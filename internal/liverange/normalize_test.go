package liverange

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/liverange/internal/ir"
)

// boundedValues makes one value per range, each defined by its own
// instruction, and returns the values and their bounds.
func boundedValues(ranges ...[2]int64) ([]*ir.Value, map[*ir.Value]TimeBound) {
	m := ir.NewModule("ranges")
	c := m.MustAddComputation("main")
	values := make([]*ir.Value, len(ranges))
	bounds := make(map[*ir.Value]TimeBound, len(ranges))
	for i, r := range ranges {
		inst := addInst(c, fmt.Sprintf("v%d", i), ir.OpConstant)
		values[i] = ir.NewValue(int64(i), inst, ir.ShapeIndex{})
		bounds[values[i]] = TimeBound{Start: r[0], End: r[1]}
	}
	return values, bounds
}

func startEnd(bounds map[*ir.Value]TimeBound, values []*ir.Value) [][2]int64 {
	out := make([][2]int64, len(values))
	for i, v := range values {
		out[i] = [2]int64{bounds[v].Start, bounds[v].End}
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   [][2]int64
		want [][2]int64
	}{
		{
			name: "disjoint ranges unchanged",
			in:   [][2]int64{{0, 2}, {3, 5}},
			want: [][2]int64{{0, 2}, {3, 5}},
		},
		{
			name: "overlap splits at second start",
			in:   [][2]int64{{0, 5}, {3, 10}},
			want: [][2]int64{{0, 2}, {3, 10}},
		},
		{
			name: "second range absorbs the later end",
			in:   [][2]int64{{0, 8}, {3, 5}},
			want: [][2]int64{{0, 2}, {3, 8}},
		},
		{
			name: "equal start widens first to second end",
			in:   [][2]int64{{2, 2}, {2, 9}},
			want: [][2]int64{{2, 9}, {2, 9}},
		},
		{
			name: "touching ranges are overlapping",
			in:   [][2]int64{{0, 3}, {3, 6}},
			want: [][2]int64{{0, 2}, {3, 6}},
		},
		{
			name: "input order does not matter",
			in:   [][2]int64{{3, 10}, {0, 5}},
			want: [][2]int64{{3, 10}, {0, 2}},
		},
		{
			name: "chain of three",
			in:   [][2]int64{{0, 4}, {2, 6}, {5, 9}},
			want: [][2]int64{{0, 1}, {2, 4}, {5, 9}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, bounds := boundedValues(tt.in...)
			buf := ir.NewBuffer(0, values...)

			normalizeAliasedBuffers([]*ir.Buffer{buf}, bounds)

			assert.Equal(t, tt.want, startEnd(bounds, values))
		})
	}
}

func TestNormalize_ResultDoesNotOverlap(t *testing.T) {
	values, bounds := boundedValues(
		[2]int64{0, 7}, [2]int64{1, 3}, [2]int64{4, 12}, [2]int64{8, 9}, [2]int64{13, 20},
	)
	normalizeAliasedBuffers([]*ir.Buffer{ir.NewBuffer(0, values...)}, bounds)

	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			a, b := bounds[values[i]], bounds[values[j]]
			assert.False(t, a.Overlaps(b), "%s and %s overlap", a, b)
		}
	}
}

func TestNormalize_SingleValueBufferUntouched(t *testing.T) {
	values, bounds := boundedValues([2]int64{0, 5}, [2]int64{3, 10})
	buffers := []*ir.Buffer{ir.NewBuffer(0, values[0]), ir.NewBuffer(1, values[1])}

	normalizeAliasedBuffers(buffers, bounds)

	assert.Equal(t, [][2]int64{{0, 5}, {3, 10}}, startEnd(bounds, values))
}

func TestNormalize_UnboundedValuesIgnored(t *testing.T) {
	values, bounds := boundedValues([2]int64{0, 5}, [2]int64{3, 10})
	delete(bounds, values[1])

	normalizeAliasedBuffers([]*ir.Buffer{ir.NewBuffer(0, values...)}, bounds)

	assert.Len(t, bounds, 1)
	assert.Equal(t, TimeBound{Start: 0, End: 5}, bounds[values[0]])
}

func TestNormalize_ThroughRun(t *testing.T) {
	m := ir.NewModule("aliased")
	main := m.MustAddComputation("main")
	a := addInst(main, "a", ir.OpConstant)
	b := addInst(main, "b", "negate", a)
	c := addInst(main, "c", "negate", b)
	addInst(main, "d", "add", a, c)

	values, byName := simpleValues(m)
	buf := ir.NewBuffer(0, byName["a"], byName["b"])

	lr, err := Run(ir.DeclarationOrderSchedule(m), &aliasSet{values: values, buffers: []*ir.Buffer{buf}}, main, false)
	assert.NoError(t, err)

	// before: a 0-3, b 1-2
	ba, _ := lr.Bound(byName["a"])
	bb, _ := lr.Bound(byName["b"])
	assert.Equal(t, "0-0", ba.String())
	assert.Equal(t, "1-3", bb.String())
}
