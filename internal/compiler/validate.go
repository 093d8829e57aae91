package compiler

import (
	"fmt"

	"github.com/roach88/liverange/internal/dataflow"
	"github.com/roach88/liverange/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// Control flow (E201-E204)
	ErrWhileShape       = "E201" // while needs one operand, condition and body
	ErrCallArity        = "E202" // call needs one callee and matching operand count
	ErrConditionalArity = "E203" // conditional needs at least one branch
	ErrCalleeParameter  = "E204" // called computation lacks the parameter it is passed

	// Tuples (E210-E211)
	ErrTupleShape      = "E210" // tuple shape must list one element per operand
	ErrGetTupleElement = "E211" // get-tuple-element index or operand invalid

	// Parameters and aliasing (E220-E222)
	ErrParameterNumbers = "E220" // parameter numbers must be dense from 0
	ErrAliasParameter   = "E221" // alias names a missing entry parameter or index
	ErrAliasOutput      = "E222" // alias names an index missing from the entry root

	// Schedule (E230-E231)
	ErrScheduleIncomplete = "E230" // scheduled computation omits an instruction
	ErrScheduleDuplicate  = "E231" // instruction scheduled twice

	// Buffers (E240)
	ErrBufferRef = "E240" // explicit buffer group names no value
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled program for structural problems the analysis
// cannot recover from. Returns all errors found (does not fail-fast).
//
// A computation left out of the schedule is not an error: the analysis
// reports such programs as not totally ordered.
func Validate(p *Program) []ValidationError {
	var errs []ValidationError
	m := p.Module

	for _, c := range m.Computations() {
		errs = append(errs, validateParameters(c)...)
		for _, inst := range c.Instructions() {
			errs = append(errs, validateInstruction(inst)...)
		}
		errs = append(errs, validateSchedule(c, p.Schedule)...)
	}

	errs = append(errs, validateAliases(m)...)
	errs = append(errs, validateBufferRefs(p)...)
	return errs
}

func instField(inst *ir.Instruction, field string) string {
	return fmt.Sprintf("computation.%s.%s.%s", inst.Parent().Name(), inst.Name, field)
}

func validateInstruction(inst *ir.Instruction) []ValidationError {
	var errs []ValidationError

	switch inst.Opcode {
	case ir.OpWhile:
		if len(inst.Operands) != 1 {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "operands"),
				Message: fmt.Sprintf("while takes exactly one operand, got %d", len(inst.Operands)),
				Code:    ErrWhileShape,
			})
		}
		if len(inst.CalledComputations) != 2 {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "body"),
				Message: "while requires a condition and a body",
				Code:    ErrWhileShape,
			})
			break
		}
		for _, c := range inst.CalledComputations {
			if c.ParameterInstruction(0) == nil {
				errs = append(errs, ValidationError{
					Field:   instField(inst, "calls"),
					Message: fmt.Sprintf("computation %s has no parameter 0", c.Name()),
					Code:    ErrCalleeParameter,
				})
			}
		}

	case ir.OpCall:
		if len(inst.CalledComputations) != 1 {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "calls"),
				Message: fmt.Sprintf("call takes exactly one computation, got %d", len(inst.CalledComputations)),
				Code:    ErrCallArity,
			})
			break
		}
		callee := inst.CalledComputations[0]
		if callee.NumParameters() != len(inst.Operands) {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "operands"),
				Message: fmt.Sprintf("%d operands passed to %s, which takes %d parameters", len(inst.Operands), callee.Name(), callee.NumParameters()),
				Code:    ErrCallArity,
			})
		}

	case ir.OpConditional:
		if len(inst.CalledComputations) == 0 {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "calls"),
				Message: "conditional requires at least one branch",
				Code:    ErrConditionalArity,
			})
		}

	case ir.OpTuple:
		if !inst.Shape.IsTuple() || len(inst.Shape.TupleShapes) != len(inst.Operands) {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "shape"),
				Message: fmt.Sprintf("tuple shape %s does not match %d operands", inst.Shape, len(inst.Operands)),
				Code:    ErrTupleShape,
			})
		}

	case ir.OpGetTupleElement:
		if len(inst.Operands) != 1 {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "operands"),
				Message: "get-tuple-element takes exactly one operand",
				Code:    ErrGetTupleElement,
			})
			break
		}
		if _, err := inst.Operands[0].Shape.Subshape(ir.ShapeIndex{inst.TupleIndex}); err != nil {
			errs = append(errs, ValidationError{
				Field:   instField(inst, "index"),
				Message: err.Error(),
				Code:    ErrGetTupleElement,
			})
		}
	}

	if inst.Opcode != ir.OpWhile && inst.Opcode != ir.OpCall && inst.Opcode != ir.OpConditional && len(inst.CalledComputations) > 0 {
		errs = append(errs, ValidationError{
			Field:   instField(inst, "calls"),
			Message: fmt.Sprintf("opcode %s does not call computations", inst.Opcode),
			Code:    ErrCallArity,
		})
	}

	return errs
}

func validateParameters(c *ir.Computation) []ValidationError {
	n := c.NumParameters()
	for i := 0; i < n; i++ {
		if c.ParameterInstruction(int64(i)) == nil {
			return []ValidationError{{
				Field:   fmt.Sprintf("computation.%s", c.Name()),
				Message: fmt.Sprintf("parameter numbers must be 0..%d, missing %d", n-1, i),
				Code:    ErrParameterNumbers,
			}}
		}
	}
	return nil
}

func validateSchedule(c *ir.Computation, s *ir.Schedule) []ValidationError {
	seq, ok := s.Sequence(c)
	if !ok {
		return nil
	}

	var errs []ValidationError
	seen := make(map[*ir.Instruction]bool, len(seq))
	for _, inst := range seq {
		if seen[inst] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("computation.%s.schedule", c.Name()),
				Message: fmt.Sprintf("instruction %s scheduled more than once", inst.Name),
				Code:    ErrScheduleDuplicate,
			})
		}
		seen[inst] = true
	}
	for _, inst := range c.Instructions() {
		if !seen[inst] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("computation.%s.schedule", c.Name()),
				Message: fmt.Sprintf("instruction %s is not scheduled", inst.Name),
				Code:    ErrScheduleIncomplete,
			})
		}
	}
	return errs
}

func validateAliases(m *ir.Module) []ValidationError {
	var errs []ValidationError
	entry := m.Entry()
	for i, a := range m.AliasConfig().Entries() {
		field := fmt.Sprintf("module.alias[%d]", i)

		param := entry.ParameterInstruction(a.ParameterNumber)
		if param == nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("entry %s has no parameter %d", entry.Name(), a.ParameterNumber),
				Code:    ErrAliasParameter,
			})
		} else if _, err := param.Shape.Subshape(a.ParameterIndex); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrAliasParameter,
			})
		}

		if root := entry.Root(); root != nil {
			if _, err := root.Shape.Subshape(a.OutputIndex); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: err.Error(),
					Code:    ErrAliasOutput,
				})
			}
		}
	}
	return errs
}

func validateBufferRefs(p *Program) []ValidationError {
	if len(p.AliasGroups) == 0 {
		return nil
	}
	df, err := dataflow.Build(p.Module, nil)
	if err != nil {
		// Structural errors are reported by the other checks.
		return nil
	}
	var errs []ValidationError
	for gi, group := range p.AliasGroups {
		for ri, ref := range group {
			if _, err := df.ValueAt(ref); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("buffers[%d][%d]", gi, ri),
					Message: err.Error(),
					Code:    ErrBufferRef,
				})
			}
		}
	}
	return errs
}
