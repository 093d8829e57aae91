package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_AddComputation(t *testing.T) {
	m := NewModule("m")
	main, err := m.AddComputation("main")
	require.NoError(t, err)
	body, err := m.AddComputation("body")
	require.NoError(t, err)

	assert.Same(t, main, m.Entry(), "first computation is the entry")
	assert.NotEqual(t, main.ID(), body.ID())
	assert.Same(t, m, body.Parent())

	_, err = m.AddComputation("main")
	assert.ErrorContains(t, err, "duplicate name")
	_, err = m.AddComputation("")
	assert.Error(t, err)

	require.NoError(t, m.SetEntry(body))
	assert.Same(t, body, m.Entry())

	other := NewModule("other").MustAddComputation("x")
	assert.Error(t, m.SetEntry(other))

	got, ok := m.Computation("body")
	require.True(t, ok)
	assert.Same(t, body, got)
	_, ok = m.Computation("missing")
	assert.False(t, ok)
}

func TestComputation_AddInstruction(t *testing.T) {
	m := NewModule("m")
	c := m.MustAddComputation("main")
	p := c.MustAddInstruction(&Instruction{Name: "p", Opcode: OpParameter, Shape: ArrayShape(F32, 4)})

	assert.Same(t, c, p.Parent())
	assert.Same(t, p, c.ParameterInstruction(0))
	assert.Nil(t, c.ParameterInstruction(1))
	assert.Equal(t, 1, c.NumParameters())

	_, err := c.AddInstruction(&Instruction{Name: "p", Opcode: "add"})
	assert.ErrorContains(t, err, "duplicate instruction name")

	_, err = c.AddInstruction(&Instruction{Name: "q", Opcode: OpParameter})
	assert.ErrorContains(t, err, "duplicate parameter number")

	_, err = c.AddInstruction(&Instruction{Name: "r", Opcode: OpParameter, ParameterNumber: -1})
	assert.ErrorContains(t, err, "negative parameter number")

	_, err = c.AddInstruction(&Instruction{Opcode: "add"})
	assert.ErrorContains(t, err, "name is required")

	_, err = m.MustAddComputation("other").AddInstruction(p)
	assert.ErrorContains(t, err, "already owned")

	// names are unique across the module, not per computation
	_, err = m.MustAddComputation("third").AddInstruction(&Instruction{Name: "p", Opcode: "add"})
	assert.Error(t, err)

	got, ok := m.Instruction("p")
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestComputation_Root(t *testing.T) {
	m := NewModule("m")
	c := m.MustAddComputation("main")
	assert.Nil(t, c.Root())

	a := c.MustAddInstruction(&Instruction{Name: "a", Opcode: OpConstant})
	b := c.MustAddInstruction(&Instruction{Name: "b", Opcode: OpConstant})
	assert.Same(t, b, c.Root(), "last instruction is the default root")
	assert.True(t, b.IsRoot())
	assert.False(t, a.IsRoot())

	require.NoError(t, c.SetRoot(a))
	assert.Same(t, a, c.Root())
	assert.True(t, a.IsRoot())

	foreign := m.MustAddComputation("other").MustAddInstruction(&Instruction{Name: "x", Opcode: OpConstant})
	assert.Error(t, c.SetRoot(foreign))

	detached := &Instruction{Name: "d"}
	assert.False(t, detached.IsRoot())
}

func TestInstruction_WhileAccessors(t *testing.T) {
	m := NewModule("m")
	main := m.MustAddComputation("main")
	cond := m.MustAddComputation("cond")
	body := m.MustAddComputation("body")

	w := main.MustAddInstruction(&Instruction{
		Name:               "w",
		Opcode:             OpWhile,
		CalledComputations: []*Computation{cond, body},
	})
	assert.Same(t, cond, w.WhileCondition())
	assert.Same(t, body, w.WhileBody())
	assert.Equal(t, "w", w.String())

	call := main.MustAddInstruction(&Instruction{
		Name:               "call",
		Opcode:             OpCall,
		CalledComputations: []*Computation{cond, body},
	})
	assert.Nil(t, call.WhileCondition())
	assert.Nil(t, call.WhileBody())

	assert.True(t, OpWhile.CallsComputations())
	assert.True(t, OpConditional.CallsComputations())
	assert.False(t, OpTuple.CallsComputations())
}

func TestAliasConfig(t *testing.T) {
	a := NewAliasConfig()
	require.NoError(t, a.SetUpAlias(ShapeIndex{0}, 1, ShapeIndex{}))
	require.NoError(t, a.SetUpAlias(ShapeIndex{1}, 0, ShapeIndex{1}))

	assert.True(t, a.ParameterHasAlias(1, ShapeIndex{}))
	assert.True(t, a.ParameterHasAlias(1, nil))
	assert.True(t, a.ParameterHasAlias(0, ShapeIndex{1}))
	assert.False(t, a.ParameterHasAlias(0, ShapeIndex{}))
	assert.False(t, a.ParameterHasAlias(2, ShapeIndex{}))

	err := a.SetUpAlias(ShapeIndex{0}, 2, ShapeIndex{})
	assert.ErrorContains(t, err, "already aliased")

	assert.Error(t, a.SetUpAlias(ShapeIndex{2}, -1, ShapeIndex{}))
	assert.Len(t, a.Entries(), 2)
}

func TestSchedule(t *testing.T) {
	m := NewModule("m")
	c := m.MustAddComputation("main")
	a := c.MustAddInstruction(&Instruction{Name: "a", Opcode: OpConstant})
	b := c.MustAddInstruction(&Instruction{Name: "b", Opcode: OpConstant})
	other := m.MustAddComputation("other")

	s := DeclarationOrderSchedule(m)
	seq, ok := s.Sequence(c)
	require.True(t, ok)
	assert.Equal(t, []*Instruction{a, b}, seq)
	assert.True(t, s.Has(other), "empty computations are scheduled too")

	order := []*Instruction{b, a}
	s.SetSequence(c, order)
	order[0] = nil
	seq, _ = s.Sequence(c)
	assert.Same(t, b, seq[0], "SetSequence copies its input")

	s.Remove(other)
	assert.False(t, s.Has(other))
	_, ok = NewSchedule().Sequence(c)
	assert.False(t, ok)
}

func TestValue(t *testing.T) {
	m := NewModule("m")
	c := m.MustAddComputation("main")
	tup := c.MustAddInstruction(&Instruction{
		Name:   "t",
		Opcode: OpTuple,
		Shape:  MustParseShape("(f32[4], s32[])"),
	})
	gte := c.MustAddInstruction(&Instruction{
		Name:       "g",
		Opcode:     OpGetTupleElement,
		Shape:      MustParseShape("s32[]"),
		Operands:   []*Instruction{tup},
		TupleIndex: 1,
	})
	user := c.MustAddInstruction(&Instruction{Name: "u", Opcode: "negate", Operands: []*Instruction{gte}})

	v := NewValue(7, tup, ShapeIndex{1})
	v.AddPosition(gte, ShapeIndex{})
	v.AddUse(user, 0, ShapeIndex{})

	assert.Equal(t, int64(7), v.ID())
	assert.Same(t, tup, v.Instruction())
	assert.Equal(t, "t{1}", v.String())
	assert.Equal(t, []string{"t{1}", "g{}"}, []string{v.Positions()[0].String(), v.Positions()[1].String()})
	require.Len(t, v.Uses(), 1)
	assert.Same(t, user, v.Uses()[0].Instruction)

	shape, err := v.Shape()
	require.NoError(t, err)
	assert.Equal(t, "s32[]", shape.String())

	assert.Equal(t, "<none>", Position{}.String())

	buf := NewBuffer(3, v)
	buf.AddValue(NewValue(8, gte, ShapeIndex{}))
	assert.Equal(t, int64(3), buf.ID())
	assert.Len(t, buf.Values(), 2)
}
