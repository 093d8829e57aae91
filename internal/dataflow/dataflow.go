// Package dataflow derives values, uses and buffers from an ir.Module.
//
// Every instruction except tuple and get-tuple-element defines one value
// per index of its shape. Tuples and get-tuple-element only forward the
// values of their operands to new positions. Non-forwarding instructions
// record a use of every value they read.
//
// Buffers group values that share storage: a while's operand, condition
// and body parameter 0, body root and result; a call's operands and callee
// parameters, and its result and callee root; a conditional's result and
// each branch root; plus any explicit groups supplied by the caller.
package dataflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/liverange/internal/ir"
)

// ErrUnknownValue is returned when a ref or position does not hold a value.
var ErrUnknownValue = errors.New("no value at position")

// ErrCycle is returned when operands form a cycle inside a computation.
var ErrCycle = errors.New("operand cycle")

type positionKey struct {
	inst  *ir.Instruction
	index string
}

func keyOf(inst *ir.Instruction, index ir.ShapeIndex) positionKey {
	return positionKey{inst: inst, index: index.String()}
}

// Analysis is the dataflow of one module. It satisfies
// liverange.AliasAnalysis.
type Analysis struct {
	module    *ir.Module
	values    []*ir.Value
	positions map[positionKey]*ir.Value
	buffers   []*ir.Buffer
	bufferOf  map[*ir.Value]*ir.Buffer
}

// Build runs dataflow over every computation of m and groups values into
// buffers. groups lists extra alias groups as value refs.
func Build(m *ir.Module, groups [][]string) (*Analysis, error) {
	a := &Analysis{
		module:    m,
		positions: make(map[positionKey]*ir.Value),
		bufferOf:  make(map[*ir.Value]*ir.Buffer),
	}

	for _, c := range m.Computations() {
		order, err := topologicalOrder(c)
		if err != nil {
			return nil, err
		}
		for _, inst := range order {
			if err := a.define(inst); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range m.Computations() {
		for _, inst := range c.Instructions() {
			a.addUses(inst)
		}
	}

	if err := a.groupBuffers(groups); err != nil {
		return nil, err
	}
	return a, nil
}

// Module returns the analyzed module.
func (a *Analysis) Module() *ir.Module { return a.module }

// Values returns every value in definition order.
func (a *Analysis) Values() []*ir.Value { return a.values }

// Buffers returns every buffer ordered by its lowest value ID.
func (a *Analysis) Buffers() []*ir.Buffer { return a.buffers }

// BufferOf returns the buffer holding v.
func (a *Analysis) BufferOf(v *ir.Value) *ir.Buffer { return a.bufferOf[v] }

// ValueAtPosition returns the value visible at inst[index].
func (a *Analysis) ValueAtPosition(inst *ir.Instruction, index ir.ShapeIndex) (*ir.Value, bool) {
	v, ok := a.positions[keyOf(inst, index)]
	return v, ok
}

// ValueAt resolves a value ref such as "add" or "t{1}".
func (a *Analysis) ValueAt(ref string) (*ir.Value, error) {
	r, err := ParseValueRef(ref)
	if err != nil {
		return nil, err
	}
	inst, ok := a.module.Instruction(r.Instruction)
	if !ok {
		return nil, fmt.Errorf("value ref %q: unknown instruction: %w", ref, ErrUnknownValue)
	}
	v, ok := a.ValueAtPosition(inst, r.Index)
	if !ok {
		return nil, fmt.Errorf("value ref %q: %w", ref, ErrUnknownValue)
	}
	return v, nil
}

func (a *Analysis) newValue(inst *ir.Instruction, index ir.ShapeIndex) {
	v := ir.NewValue(int64(len(a.values)), inst, index)
	a.values = append(a.values, v)
	a.positions[keyOf(inst, index)] = v
}

func (a *Analysis) forward(v *ir.Value, inst *ir.Instruction, index ir.ShapeIndex) {
	v.AddPosition(inst, index)
	a.positions[keyOf(inst, index)] = v
}

func (a *Analysis) define(inst *ir.Instruction) error {
	switch inst.Opcode {
	case ir.OpTuple:
		a.newValue(inst, ir.ShapeIndex{})
		for i, op := range inst.Operands {
			for _, idx := range op.Shape.Indices() {
				v, ok := a.ValueAtPosition(op, idx)
				if !ok {
					return fmt.Errorf("tuple %s operand %d: %s%s: %w", inst.Name, i, op.Name, idx, ErrUnknownValue)
				}
				a.forward(v, inst, ir.ShapeIndex{int64(i)}.Concat(idx))
			}
		}
	case ir.OpGetTupleElement:
		if len(inst.Operands) != 1 {
			return fmt.Errorf("get-tuple-element %s: want 1 operand, got %d", inst.Name, len(inst.Operands))
		}
		op := inst.Operands[0]
		sub, err := op.Shape.Subshape(ir.ShapeIndex{inst.TupleIndex})
		if err != nil {
			return fmt.Errorf("get-tuple-element %s: %w", inst.Name, err)
		}
		for _, idx := range sub.Indices() {
			v, ok := a.ValueAtPosition(op, ir.ShapeIndex{inst.TupleIndex}.Concat(idx))
			if !ok {
				return fmt.Errorf("get-tuple-element %s: %s{%d}: %w", inst.Name, op.Name, inst.TupleIndex, ErrUnknownValue)
			}
			a.forward(v, inst, idx)
		}
	default:
		for _, idx := range inst.Shape.Indices() {
			a.newValue(inst, idx)
		}
	}
	return nil
}

func (a *Analysis) addUses(inst *ir.Instruction) {
	if inst.Opcode == ir.OpTuple || inst.Opcode == ir.OpGetTupleElement {
		return
	}
	for i, op := range inst.Operands {
		for _, idx := range op.Shape.Indices() {
			if v, ok := a.ValueAtPosition(op, idx); ok {
				v.AddUse(inst, int64(i), idx)
			}
		}
	}
}

func (a *Analysis) groupBuffers(groups [][]string) error {
	sets := newDisjointSets(len(a.values))

	// unite joins the values at index of every position that has one.
	unite := func(index ir.ShapeIndex, insts ...*ir.Instruction) {
		var first *ir.Value
		for _, inst := range insts {
			if inst == nil {
				continue
			}
			v, ok := a.ValueAtPosition(inst, index)
			if !ok {
				continue
			}
			if first == nil {
				first = v
				continue
			}
			sets.union(first.ID(), v.ID())
		}
	}

	for _, c := range a.module.Computations() {
		for _, inst := range c.Instructions() {
			switch inst.Opcode {
			case ir.OpWhile:
				var operand, condParam, bodyParam, bodyRoot *ir.Instruction
				if len(inst.Operands) > 0 {
					operand = inst.Operands[0]
				}
				if cond := inst.WhileCondition(); cond != nil {
					condParam = cond.ParameterInstruction(0)
				}
				if body := inst.WhileBody(); body != nil {
					bodyParam = body.ParameterInstruction(0)
					bodyRoot = body.Root()
				}
				for _, idx := range inst.Shape.Indices() {
					unite(idx, inst, operand, condParam, bodyParam, bodyRoot)
				}
			case ir.OpCall:
				for _, callee := range inst.CalledComputations {
					for i, op := range inst.Operands {
						param := callee.ParameterInstruction(int64(i))
						for _, idx := range op.Shape.Indices() {
							unite(idx, op, param)
						}
					}
					for _, idx := range inst.Shape.Indices() {
						unite(idx, inst, callee.Root())
					}
				}
			case ir.OpConditional:
				for _, branch := range inst.CalledComputations {
					for _, idx := range inst.Shape.Indices() {
						unite(idx, inst, branch.Root())
					}
				}
			}
		}
	}

	for gi, group := range groups {
		var first *ir.Value
		for _, ref := range group {
			v, err := a.ValueAt(ref)
			if err != nil {
				return fmt.Errorf("buffer group %d: %w", gi, err)
			}
			if first == nil {
				first = v
				continue
			}
			sets.union(first.ID(), v.ID())
		}
	}

	byRoot := make(map[int64]*ir.Buffer)
	for _, v := range a.values {
		root := sets.find(v.ID())
		buf, ok := byRoot[root]
		if !ok {
			buf = ir.NewBuffer(int64(len(a.buffers)))
			byRoot[root] = buf
			a.buffers = append(a.buffers, buf)
		}
		buf.AddValue(v)
		a.bufferOf[v] = buf
	}
	return nil
}

// topologicalOrder returns the instructions of c with every operand before
// its users, keeping declaration order where operands allow.
func topologicalOrder(c *ir.Computation) ([]*ir.Instruction, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*ir.Instruction]int, len(c.Instructions()))
	order := make([]*ir.Instruction, 0, len(c.Instructions()))

	var visit func(inst *ir.Instruction) error
	visit = func(inst *ir.Instruction) error {
		switch state[inst] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("computation %s at %s: %w", c.Name(), inst.Name, ErrCycle)
		}
		state[inst] = visiting
		for _, op := range inst.Operands {
			if op.Parent() != c {
				return fmt.Errorf("%s: operand %s is not in computation %s", inst.Name, op.Name, c.Name())
			}
			if err := visit(op); err != nil {
				return err
			}
		}
		state[inst] = done
		order = append(order, inst)
		return nil
	}

	for _, inst := range c.Instructions() {
		if err := visit(inst); err != nil {
			return nil, err
		}
	}
	return slices.Clip(order), nil
}
