package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashFixture() (*Module, *Schedule) {
	m := NewModule("hash")
	c := m.MustAddComputation("main")
	p := c.MustAddInstruction(&Instruction{Name: "p", Opcode: OpParameter, Shape: MustParseShape("f32[4]")})
	c.MustAddInstruction(&Instruction{Name: "n", Opcode: "negate", Shape: MustParseShape("f32[4]"), Operands: []*Instruction{p}})
	return m, DeclarationOrderSchedule(m)
}

func TestProgramHash_Deterministic(t *testing.T) {
	m1, s1 := hashFixture()
	m2, s2 := hashFixture()

	h1, err := ProgramHash(m1, s1, nil)
	require.NoError(t, err)
	h2, err := ProgramHash(m2, s2, nil)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "identical programs must hash equal")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestProgramHash_ChangesWithSchedule(t *testing.T) {
	m, s := hashFixture()
	base := MustProgramHash(m, s, nil)

	c, _ := m.Computation("main")
	p, _ := m.Instruction("p")
	n, _ := m.Instruction("n")
	reordered := NewSchedule()
	reordered.SetSequence(c, []*Instruction{n, p})

	assert.NotEqual(t, base, MustProgramHash(m, reordered, nil))
	assert.NotEqual(t, base, MustProgramHash(m, NewSchedule(), nil), "unscheduled differs from scheduled")
	assert.NotEqual(t, base, MustProgramHash(m, nil, nil))
}

func TestProgramHash_ChangesWithAlias(t *testing.T) {
	m, s := hashFixture()
	base := MustProgramHash(m, s, nil)

	require.NoError(t, m.AliasConfig().SetUpAlias(ShapeIndex{}, 0, ShapeIndex{}))
	assert.NotEqual(t, base, MustProgramHash(m, s, nil))
}

func TestProgramHash_ChangesWithBuffers(t *testing.T) {
	m, s := hashFixture()
	base := MustProgramHash(m, s, nil)

	grouped := MustProgramHash(m, s, [][]string{{"p", "n"}})
	assert.NotEqual(t, base, grouped)
	assert.Equal(t, base, MustProgramHash(m, s, [][]string{}), "no groups and an empty list hash equal")
	assert.Equal(t, grouped, MustProgramHash(m, s, [][]string{{"p", "n"}}))
	assert.NotEqual(t, grouped, MustProgramHash(m, s, [][]string{{"n", "p"}}))
	assert.NotEqual(t, grouped, MustProgramHash(m, s, [][]string{{"p"}, {"n"}}))
}

func TestProgramHash_ChangesWithShape(t *testing.T) {
	m1, s1 := hashFixture()
	m2, s2 := hashFixture()
	n, _ := m2.Instruction("n")
	n.Shape = MustParseShape("f32[8]")

	assert.NotEqual(t, MustProgramHash(m1, s1, nil), MustProgramHash(m2, s2, nil))
}

func TestHashWithDomain_Separation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainProgram, data), hashWithDomain("other/v1", data))
	assert.Equal(t, hashWithDomain(DomainProgram, data), hashWithDomain(DomainProgram, data))
}
