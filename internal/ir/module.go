package ir

import (
	"fmt"
)

// Opcode tags what an instruction does. Only the control-flow opcodes and
// the tuple forwarding opcodes carry meaning for live-range analysis; any
// other string is a valid "other" opcode.
type Opcode string

const (
	OpParameter       Opcode = "parameter"
	OpCall            Opcode = "call"
	OpConditional     Opcode = "conditional"
	OpWhile           Opcode = "while"
	OpTuple           Opcode = "tuple"
	OpGetTupleElement Opcode = "get-tuple-element"
	OpConstant        Opcode = "constant"
)

// CallsComputations reports whether instructions with this opcode carry
// called computations.
func (o Opcode) CallsComputations() bool {
	return o == OpCall || o == OpConditional || o == OpWhile
}

// Instruction is one node of a computation.
//
// CalledComputations holds the callee for a call, the branches in order for
// a conditional, and [condition, body] for a while.
type Instruction struct {
	Name               string
	Opcode             Opcode
	Shape              Shape
	Operands           []*Instruction
	CalledComputations []*Computation
	ParameterNumber    int64 // parameter only
	TupleIndex         int64 // get-tuple-element only

	parent *Computation
}

// Parent returns the computation that owns the instruction, or nil if the
// instruction has not been added to one.
func (i *Instruction) Parent() *Computation {
	return i.parent
}

// WhileCondition returns the condition computation of a while.
func (i *Instruction) WhileCondition() *Computation {
	if i.Opcode != OpWhile || len(i.CalledComputations) < 1 {
		return nil
	}
	return i.CalledComputations[0]
}

// WhileBody returns the body computation of a while.
func (i *Instruction) WhileBody() *Computation {
	if i.Opcode != OpWhile || len(i.CalledComputations) < 2 {
		return nil
	}
	return i.CalledComputations[1]
}

// IsRoot reports whether the instruction is the root of its computation.
func (i *Instruction) IsRoot() bool {
	return i.parent != nil && i.parent.Root() == i
}

func (i *Instruction) String() string {
	return i.Name
}

// Computation is an ordered set of instructions with a distinguished root.
type Computation struct {
	id           int64
	name         string
	instructions []*Instruction
	root         *Instruction
	params       map[int64]*Instruction
	parent       *Module
}

// ID returns the module-unique identity of the computation.
func (c *Computation) ID() int64 { return c.id }

// Name returns the computation name.
func (c *Computation) Name() string { return c.name }

// Parent returns the owning module.
func (c *Computation) Parent() *Module { return c.parent }

// Instructions returns the instructions in declaration order.
// The slice is shared; callers must not modify it.
func (c *Computation) Instructions() []*Instruction { return c.instructions }

// Root returns the root instruction. Without an explicit root the last
// instruction added is the root.
func (c *Computation) Root() *Instruction {
	if c.root != nil {
		return c.root
	}
	if len(c.instructions) == 0 {
		return nil
	}
	return c.instructions[len(c.instructions)-1]
}

// SetRoot marks inst as the root. inst must belong to c.
func (c *Computation) SetRoot(inst *Instruction) error {
	if inst.parent != c {
		return fmt.Errorf("set root of %s: instruction %s belongs to another computation", c.name, inst.Name)
	}
	c.root = inst
	return nil
}

// ParameterInstruction returns the parameter with the given number, or nil.
func (c *Computation) ParameterInstruction(number int64) *Instruction {
	return c.params[number]
}

// NumParameters returns how many parameters the computation declares.
func (c *Computation) NumParameters() int {
	return len(c.params)
}

// AddInstruction appends inst to the computation. Instruction names are
// unique across the module and parameter numbers unique per computation.
func (c *Computation) AddInstruction(inst *Instruction) (*Instruction, error) {
	if inst.parent != nil {
		return nil, fmt.Errorf("add %s to %s: already owned by %s", inst.Name, c.name, inst.parent.name)
	}
	if inst.Name == "" {
		return nil, fmt.Errorf("add instruction to %s: name is required", c.name)
	}
	if _, dup := c.parent.instructions[inst.Name]; dup {
		return nil, fmt.Errorf("add %s to %s: duplicate instruction name", inst.Name, c.name)
	}
	if inst.Opcode == OpParameter {
		if inst.ParameterNumber < 0 {
			return nil, fmt.Errorf("add %s to %s: negative parameter number %d", inst.Name, c.name, inst.ParameterNumber)
		}
		if _, dup := c.params[inst.ParameterNumber]; dup {
			return nil, fmt.Errorf("add %s to %s: duplicate parameter number %d", inst.Name, c.name, inst.ParameterNumber)
		}
		c.params[inst.ParameterNumber] = inst
	}
	inst.parent = c
	c.instructions = append(c.instructions, inst)
	c.parent.instructions[inst.Name] = inst
	return inst, nil
}

// MustAddInstruction is like AddInstruction but panics on error.
// Use only in tests or when inputs are known to be valid.
func (c *Computation) MustAddInstruction(inst *Instruction) *Instruction {
	out, err := c.AddInstruction(inst)
	if err != nil {
		panic(err)
	}
	return out
}

// Module is a program: a set of computations with one entry.
type Module struct {
	name         string
	computations []*Computation
	byName       map[string]*Computation
	instructions map[string]*Instruction
	entry        *Computation
	nextID       int64
	aliasConfig  *AliasConfig
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:         name,
		byName:       make(map[string]*Computation),
		instructions: make(map[string]*Instruction),
		aliasConfig:  NewAliasConfig(),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// AddComputation creates a computation with a module-unique name and ID.
// The first computation added becomes the entry until SetEntry is called.
func (m *Module) AddComputation(name string) (*Computation, error) {
	if name == "" {
		return nil, fmt.Errorf("add computation: name is required")
	}
	if _, dup := m.byName[name]; dup {
		return nil, fmt.Errorf("add computation %s: duplicate name", name)
	}
	c := &Computation{
		id:     m.nextID,
		name:   name,
		params: make(map[int64]*Instruction),
		parent: m,
	}
	m.nextID++
	m.computations = append(m.computations, c)
	m.byName[name] = c
	if m.entry == nil {
		m.entry = c
	}
	return c, nil
}

// MustAddComputation is like AddComputation but panics on error.
func (m *Module) MustAddComputation(name string) *Computation {
	c, err := m.AddComputation(name)
	if err != nil {
		panic(err)
	}
	return c
}

// SetEntry marks c as the entry computation.
func (m *Module) SetEntry(c *Computation) error {
	if c.parent != m {
		return fmt.Errorf("set entry: computation %s belongs to another module", c.name)
	}
	m.entry = c
	return nil
}

// Entry returns the entry computation.
func (m *Module) Entry() *Computation { return m.entry }

// Computations returns computations in declaration order.
func (m *Module) Computations() []*Computation { return m.computations }

// Computation looks up a computation by name.
func (m *Module) Computation(name string) (*Computation, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// Instruction looks up an instruction by its module-unique name.
func (m *Module) Instruction(name string) (*Instruction, bool) {
	inst, ok := m.instructions[name]
	return inst, ok
}

// AliasConfig returns the input/output alias table.
func (m *Module) AliasConfig() *AliasConfig { return m.aliasConfig }

// AliasEntry records that an entry parameter (sub-)buffer may be reused for
// an output (sub-)buffer.
type AliasEntry struct {
	OutputIndex     ShapeIndex
	ParameterNumber int64
	ParameterIndex  ShapeIndex
}

// AliasConfig is the entry computation's input/output alias table.
// Entry parameters without an alias are read-only.
type AliasConfig struct {
	entries []AliasEntry
}

// NewAliasConfig creates an empty alias table.
func NewAliasConfig() *AliasConfig {
	return &AliasConfig{}
}

// SetUpAlias adds an alias. Each output index may be aliased at most once.
func (a *AliasConfig) SetUpAlias(output ShapeIndex, param int64, paramIndex ShapeIndex) error {
	if param < 0 {
		return fmt.Errorf("alias output %s: negative parameter number %d", output, param)
	}
	for _, e := range a.entries {
		if e.OutputIndex.Equal(output) {
			return fmt.Errorf("alias output %s: already aliased to parameter %d%s", output, e.ParameterNumber, e.ParameterIndex)
		}
	}
	a.entries = append(a.entries, AliasEntry{OutputIndex: output, ParameterNumber: param, ParameterIndex: paramIndex})
	return nil
}

// ParameterHasAlias reports whether parameter param at index is aliased
// with some output.
func (a *AliasConfig) ParameterHasAlias(param int64, index ShapeIndex) bool {
	for _, e := range a.entries {
		if e.ParameterNumber == param && e.ParameterIndex.Equal(index) {
			return true
		}
	}
	return false
}

// Entries returns the alias entries in insertion order.
func (a *AliasConfig) Entries() []AliasEntry {
	return a.entries
}
