package liverange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liverange/internal/ir"
)

func TestFlatten_ComputationScoped(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	body, _ := m.Computation("body")

	tl, err := Flatten(main, ir.DeclarationOrderSchedule(m), false)
	require.NoError(t, err)

	assert.True(t, tl.TotallyOrdered())
	assert.False(t, tl.ModuleScoped())
	assert.Equal(t, []string{"o", "w"}, instructionNamesOf(tl.Sequence()))
	assert.Equal(t, int64(2), tl.EndTime())

	span, ok := tl.Span(main)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 0, End: 2}, span)

	_, ok = tl.Span(body)
	assert.False(t, ok, "body is not inlined in computation-scoped mode")
}

func TestFlatten_ModuleScopedWhile(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	cond, _ := m.Computation("cond")
	body, _ := m.Computation("body")

	tl, err := Flatten(main, ir.DeclarationOrderSchedule(m), true)
	require.NoError(t, err)

	// condition first, then body, then the while itself
	assert.Equal(t, []string{"o", "cp", "c", "bp", "b", "w"}, instructionNamesOf(tl.Sequence()))

	for i, inst := range tl.Sequence() {
		ts, ok := tl.Time(inst)
		require.True(t, ok)
		assert.Equal(t, int64(i), ts, "timestamp of %s", inst.Name)
	}

	spans := map[*ir.Computation]Span{
		cond: {Start: 1, End: 3},
		body: {Start: 3, End: 5},
		main: {Start: 0, End: 6},
	}
	for c, want := range spans {
		got, ok := tl.Span(c)
		require.True(t, ok, c.Name())
		assert.Equal(t, want, got, c.Name())
	}
}

func TestFlatten_SharedComputationExpandedOnce(t *testing.T) {
	m := ir.NewModule("shared")
	main := m.MustAddComputation("main")
	f := m.MustAddComputation("f")
	g := m.MustAddComputation("g")

	addInst(g, "ga", "negate")
	fa := addInst(f, "fa", "negate")
	addCall(f, "fg", ir.OpCall, []*ir.Computation{g}, fa)

	a := addInst(main, "a", ir.OpConstant)
	c1 := addCall(main, "call_f", ir.OpCall, []*ir.Computation{f}, a)
	addCall(main, "call_g", ir.OpCall, []*ir.Computation{g}, c1)

	tl, err := Flatten(main, ir.DeclarationOrderSchedule(m), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "fa", "ga", "fg", "call_f", "call_g"}, instructionNamesOf(tl.Sequence()))

	gSpan, ok := tl.Span(g)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 2, End: 3}, gSpan, "g keeps the span of its first expansion")

	fSpan, _ := tl.Span(f)
	assert.Equal(t, Span{Start: 1, End: 4}, fSpan)
}

func TestFlatten_ConditionalBranchesInOrder(t *testing.T) {
	m := ir.NewModule("cond")
	main := m.MustAddComputation("main")
	tb := m.MustAddComputation("on_true")
	fb := m.MustAddComputation("on_false")
	addInst(tb, "ta", "negate")
	addInst(fb, "fa", "abs")
	p := addInst(main, "p", ir.OpConstant)
	addCall(main, "sel", ir.OpConditional, []*ir.Computation{tb, fb}, p)

	tl, err := Flatten(main, ir.DeclarationOrderSchedule(m), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "ta", "fa", "sel"}, instructionNamesOf(tl.Sequence()))
}

func TestFlatten_RecursiveCallTerminates(t *testing.T) {
	m := ir.NewModule("recursive")
	main := m.MustAddComputation("main")
	x := addInst(main, "x", ir.OpConstant)
	addCall(main, "self", ir.OpCall, []*ir.Computation{main}, x)

	tl, err := Flatten(main, ir.DeclarationOrderSchedule(m), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "self"}, instructionNamesOf(tl.Sequence()))
}

func TestFlatten_EmptyComputationSpan(t *testing.T) {
	m := ir.NewModule("empty")
	main := m.MustAddComputation("main")
	callee := m.MustAddComputation("callee")
	addCall(main, "call", ir.OpCall, []*ir.Computation{callee})

	tl, err := Flatten(main, ir.DeclarationOrderSchedule(m), true)
	require.NoError(t, err)

	span, ok := tl.Span(callee)
	require.True(t, ok)
	assert.Equal(t, Span{Start: 0, End: 0}, span)
}

func TestFlatten_RootNotScheduled(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")

	tl, err := Flatten(main, ir.NewSchedule(), true)
	require.NoError(t, err)

	assert.False(t, tl.TotallyOrdered())
	assert.Empty(t, tl.Sequence())
	assert.Equal(t, int64(0), tl.EndTime())
	_, ok := tl.Span(main)
	assert.False(t, ok)
}

func TestFlatten_CalleeNotScheduled(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	body, _ := m.Computation("body")

	schedule := ir.DeclarationOrderSchedule(m)
	schedule.Remove(body)

	tl, err := Flatten(main, schedule, true)
	require.NoError(t, err)

	assert.False(t, tl.TotallyOrdered())
	assert.Equal(t, []string{"o", "cp", "c", "w"}, instructionNamesOf(tl.Sequence()))
}

func TestFlatten_DuplicateInstructionIsInvariantError(t *testing.T) {
	m := ir.NewModule("dup")
	main := m.MustAddComputation("main")
	a := addInst(main, "a", ir.OpConstant)

	schedule := ir.NewSchedule()
	schedule.SetSequence(main, []*ir.Instruction{a, a})

	_, err := Flatten(main, schedule, false)
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))
	assert.Contains(t, err.Error(), string(ErrCodeDuplicateInstruction))
	assert.Contains(t, err.Error(), "instruction=a")
}

func TestFlatten_Deterministic(t *testing.T) {
	m := whileModule()
	main, _ := m.Computation("main")
	schedule := ir.DeclarationOrderSchedule(m)

	first, err := Flatten(main, schedule, true)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Flatten(main, schedule, true)
		require.NoError(t, err)
		assert.Equal(t, instructionNamesOf(first.Sequence()), instructionNamesOf(again.Sequence()))
		for _, inst := range first.Sequence() {
			t1, _ := first.Time(inst)
			t2, _ := again.Time(inst)
			assert.Equal(t, t1, t2)
		}
	}
}

func TestFlatten_UsesScheduleOrderNotDeclarationOrder(t *testing.T) {
	m := ir.NewModule("order")
	main := m.MustAddComputation("main")
	a := addInst(main, "a", ir.OpConstant)
	b := addInst(main, "b", ir.OpConstant)
	c := addInst(main, "c", "add", a, b)

	schedule := ir.NewSchedule()
	schedule.SetSequence(main, []*ir.Instruction{b, a, c})

	tl, err := Flatten(main, schedule, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, instructionNamesOf(tl.Sequence()))
}
