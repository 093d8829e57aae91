package liverange

import (
	"github.com/roach88/liverange/internal/ir"
)

// aliasSet is a fixed AliasAnalysis for tests.
type aliasSet struct {
	values  []*ir.Value
	buffers []*ir.Buffer
}

func (a *aliasSet) Values() []*ir.Value   { return a.values }
func (a *aliasSet) Buffers() []*ir.Buffer { return a.buffers }

// addInst appends an f32[4] instruction to c.
func addInst(c *ir.Computation, name string, op ir.Opcode, operands ...*ir.Instruction) *ir.Instruction {
	return c.MustAddInstruction(&ir.Instruction{
		Name:     name,
		Opcode:   op,
		Shape:    ir.ArrayShape(ir.F32, 4),
		Operands: operands,
	})
}

// addParam appends parameter n to c.
func addParam(c *ir.Computation, name string, n int64) *ir.Instruction {
	return c.MustAddInstruction(&ir.Instruction{
		Name:            name,
		Opcode:          ir.OpParameter,
		Shape:           ir.ArrayShape(ir.F32, 4),
		ParameterNumber: n,
	})
}

// addCall appends an instruction calling comps.
func addCall(c *ir.Computation, name string, op ir.Opcode, comps []*ir.Computation, operands ...*ir.Instruction) *ir.Instruction {
	return c.MustAddInstruction(&ir.Instruction{
		Name:               name,
		Opcode:             op,
		Shape:              ir.ArrayShape(ir.F32, 4),
		Operands:           operands,
		CalledComputations: comps,
	})
}

// simpleValues defines one value per instruction of m and records a use
// for every operand. Values are returned in declaration order, keyed by
// instruction name as well.
func simpleValues(m *ir.Module) ([]*ir.Value, map[string]*ir.Value) {
	var values []*ir.Value
	byName := make(map[string]*ir.Value)
	var id int64
	for _, c := range m.Computations() {
		for _, inst := range c.Instructions() {
			v := ir.NewValue(id, inst, ir.ShapeIndex{})
			id++
			values = append(values, v)
			byName[inst.Name] = v
		}
	}
	for _, c := range m.Computations() {
		for _, inst := range c.Instructions() {
			for i, op := range inst.Operands {
				byName[op.Name].AddUse(inst, int64(i), ir.ShapeIndex{})
			}
		}
	}
	return values, byName
}

// whileModule builds:
//
//	main: o = constant; w = while(o) condition=cond body=body   (root w)
//	cond: cp = parameter(0); c = compare(cp)                      (root c)
//	body: bp = parameter(0); b = add(bp)                          (root b)
func whileModule() *ir.Module {
	m := ir.NewModule("loop")
	main := m.MustAddComputation("main")
	cond := m.MustAddComputation("cond")
	body := m.MustAddComputation("body")

	cp := addParam(cond, "cp", 0)
	addInst(cond, "c", "compare", cp)
	bp := addParam(body, "bp", 0)
	addInst(body, "b", "add", bp)

	o := addInst(main, "o", ir.OpConstant)
	addCall(main, "w", ir.OpWhile, []*ir.Computation{cond, body}, o)
	return m
}

func instructionNamesOf(insts []*ir.Instruction) []string {
	out := make([]string, len(insts))
	for i, inst := range insts {
		out[i] = inst.Name
	}
	return out
}
