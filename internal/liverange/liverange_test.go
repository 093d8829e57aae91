package liverange

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liverange/internal/ir"
)

func TestRun_NotTotallyOrdered(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	cond, _ := m.Computation("cond")
	values, _ := simpleValues(m)

	schedule := ir.DeclarationOrderSchedule(m)
	schedule.Remove(cond)

	lr, err := Run(schedule, &aliasSet{values: values}, main, true)
	require.NoError(t, err)

	assert.False(t, lr.TotallyOrdered())
	assert.ErrorIs(t, lr.Check(), ErrNotTotallyOrdered)
	assert.Empty(t, lr.Values())
	assert.Empty(t, lr.BufferLiveRanges())

	peak, err := lr.PeakMemoryMoment(DefaultSizeFunc)
	require.NoError(t, err)
	assert.Equal(t, Peak{}, peak)
}

func TestRun_CalleeMissingComputationScopedIsOrdered(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	body, _ := m.Computation("body")
	values, _ := simpleValues(m)

	schedule := ir.DeclarationOrderSchedule(m)
	schedule.Remove(body)

	lr, err := Run(schedule, &aliasSet{values: values}, main, false)
	require.NoError(t, err)
	assert.True(t, lr.TotallyOrdered(), "callees are not walked without module scope")
	assert.NoError(t, lr.Check())
}

func TestRun_ValuesKeepAnalysisOrder(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	values, _ := simpleValues(m)

	lr, err := Run(ir.DeclarationOrderSchedule(m), &aliasSet{values: values}, main, true)
	require.NoError(t, err)

	got := lr.Values()
	require.Len(t, got, len(values))
	for i := range values {
		assert.Same(t, values[i], got[i])
	}

	// returned slices are copies
	got[0] = nil
	assert.NotNil(t, lr.Values()[0])
}

func TestRun_BufferLiveRangesIsACopy(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	values, byName := simpleValues(m)

	lr, err := Run(ir.DeclarationOrderSchedule(m), &aliasSet{values: values}, main, true)
	require.NoError(t, err)

	ranges := lr.BufferLiveRanges()
	ranges[byName["o"]] = TimeBound{Start: 99, End: 99}

	bound, _ := lr.Bound(byName["o"])
	assert.Equal(t, int64(0), bound.Start)
}

func TestRun_LogsWhileSubstitution(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	values, _ := simpleValues(m)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(ir.DeclarationOrderSchedule(m), &aliasSet{values: values}, main, true, WithLogger(logger))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "moved value to while body parameter")
	assert.Contains(t, buf.String(), "parameter=bp")
}

func TestRun_Deterministic(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	values, _ := simpleValues(m)
	schedule := ir.DeclarationOrderSchedule(m)

	first, err := Run(schedule, &aliasSet{values: values}, main, true)
	require.NoError(t, err)
	second, err := Run(schedule, &aliasSet{values: values}, main, true)
	require.NoError(t, err)

	assert.Equal(t, first.BufferLiveRanges(), second.BufferLiveRanges())
	assert.Equal(t, first.ScheduleEndTime(), second.ScheduleEndTime())
}

func TestRun_InvariantErrorReturnsNoResult(t *testing.T) {
	m := ir.NewModule("dup")
	main := m.MustAddComputation("main")
	a := addInst(main, "a", ir.OpConstant)
	v := ir.NewValue(0, a, ir.ShapeIndex{})

	lr, err := Run(ir.DeclarationOrderSchedule(m), &aliasSet{values: []*ir.Value{v, v}}, main, false)
	assert.Nil(t, lr)
	assert.True(t, IsInvariantError(err))
}

func TestInvariantError_Format(t *testing.T) {
	tests := []struct {
		err  *InvariantError
		want string
	}{
		{
			err:  &InvariantError{Code: ErrCodeStartAfterEnd, Message: "m", Value: "a{}", Instruction: "a"},
			want: "START_AFTER_END: m (value=a{}, instruction=a)",
		},
		{
			err:  &InvariantError{Code: ErrCodeDuplicateInstruction, Message: "m", Instruction: "a"},
			want: "DUPLICATE_INSTRUCTION: m (instruction=a)",
		},
		{
			err:  &InvariantError{Code: ErrCodeDuplicateValue, Message: "m", Value: "a{}"},
			want: "DUPLICATE_VALUE: m (value=a{})",
		},
		{
			err:  &InvariantError{Code: ErrCodeDuplicateValue, Message: "m"},
			want: "DUPLICATE_VALUE: m",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}
