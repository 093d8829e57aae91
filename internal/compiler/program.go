package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/liverange/internal/ir"
)

// Program is a compiled program description: the module, its schedule and
// any explicit alias groups.
type Program struct {
	Module   *ir.Module
	Schedule *ir.Schedule

	// AliasGroups lists value refs ("name" or "name{i}") that share a
	// buffer in addition to the groups dataflow derives itself.
	AliasGroups [][]string
}

// pendingInstruction holds the name references of an instruction until
// every computation and instruction of the module exists.
type pendingInstruction struct {
	inst      *ir.Instruction
	pos       token.Pos
	operands  []string
	calls     []string
	condition string
	body      string
}

// CompileProgram parses a CUE value into a Program.
// Uses CUE SDK's Go API directly.
//
// The value is the whole program, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`module: {name: "m"} computation: main: {...}`)
//	prog, err := CompileProgram(v)
func CompileProgram(v cue.Value) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	modVal := v.LookupPath(cue.ParsePath("module"))
	if !modVal.Exists() {
		return nil, &CompileError{Field: "module", Message: "module is required", Pos: v.Pos()}
	}
	name, err := requiredString(modVal, "name", "module.name")
	if err != nil {
		return nil, err
	}
	m := ir.NewModule(name)

	compsVal := v.LookupPath(cue.ParsePath("computation"))
	if !compsVal.Exists() {
		return nil, &CompileError{Field: "computation", Message: "at least one computation is required", Pos: v.Pos()}
	}
	iter, err := compsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var pending []pendingInstruction
	compVals := make(map[*ir.Computation]cue.Value)
	for iter.Next() {
		c, err := m.AddComputation(iter.Label())
		if err != nil {
			return nil, &CompileError{Field: "computation", Message: err.Error(), Pos: iter.Value().Pos()}
		}
		compVals[c] = iter.Value()

		insts, err := parseInstructions(c, iter.Value())
		if err != nil {
			return nil, err
		}
		pending = append(pending, insts...)
	}
	if len(m.Computations()) == 0 {
		return nil, &CompileError{Field: "computation", Message: "at least one computation is required", Pos: compsVal.Pos()}
	}

	for _, p := range pending {
		if err := resolveInstruction(m, p); err != nil {
			return nil, err
		}
	}

	schedule := ir.NewSchedule()
	for _, c := range m.Computations() {
		if err := compileComputation(c, compVals[c], schedule); err != nil {
			return nil, err
		}
	}

	if entryVal := modVal.LookupPath(cue.ParsePath("entry")); entryVal.Exists() {
		entry, err := entryVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c, ok := m.Computation(entry)
		if !ok {
			return nil, &CompileError{Field: "module.entry", Message: fmt.Sprintf("unknown computation %q", entry), Pos: entryVal.Pos()}
		}
		if err := m.SetEntry(c); err != nil {
			return nil, &CompileError{Field: "module.entry", Message: err.Error(), Pos: entryVal.Pos()}
		}
	}

	if err := parseAliases(m, modVal); err != nil {
		return nil, err
	}

	groups, err := parseBufferGroups(v)
	if err != nil {
		return nil, err
	}

	return &Program{Module: m, Schedule: schedule, AliasGroups: groups}, nil
}

// parseInstructions adds the instructions of one computation, in list
// order, and returns their unresolved references.
func parseInstructions(c *ir.Computation, v cue.Value) ([]pendingInstruction, error) {
	instsVal := v.LookupPath(cue.ParsePath("instructions"))
	if !instsVal.Exists() {
		return nil, nil
	}
	list, err := instsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []pendingInstruction
	for list.Next() {
		iv := list.Value()
		p, err := parseInstruction(iv)
		if err != nil {
			return nil, err
		}
		if _, err := c.AddInstruction(p.inst); err != nil {
			return nil, &CompileError{Field: "instructions", Message: err.Error(), Pos: iv.Pos()}
		}
		out = append(out, p)
	}
	return out, nil
}

func parseInstruction(v cue.Value) (pendingInstruction, error) {
	p := pendingInstruction{pos: v.Pos()}

	name, err := requiredString(v, "name", "instruction.name")
	if err != nil {
		return p, err
	}
	opcode, err := requiredString(v, "opcode", "instruction.opcode")
	if err != nil {
		return p, err
	}
	shapeText, err := requiredString(v, "shape", "instruction.shape")
	if err != nil {
		return p, err
	}
	shape, err := ir.ParseShape(shapeText)
	if err != nil {
		return p, &CompileError{Field: "instruction.shape", Message: fmt.Sprintf("%s: %v", name, err), Pos: v.Pos()}
	}

	inst := &ir.Instruction{Name: name, Opcode: ir.Opcode(opcode), Shape: shape}

	if p.operands, err = optionalStrings(v, "operands"); err != nil {
		return p, err
	}
	if p.calls, err = optionalStrings(v, "calls"); err != nil {
		return p, err
	}
	if p.condition, err = optionalString(v, "condition"); err != nil {
		return p, err
	}
	if p.body, err = optionalString(v, "body"); err != nil {
		return p, err
	}

	switch inst.Opcode {
	case ir.OpParameter:
		n, err := requiredInt(v, "parameter", "instruction.parameter")
		if err != nil {
			return p, err
		}
		inst.ParameterNumber = n
	case ir.OpGetTupleElement:
		n, err := requiredInt(v, "index", "instruction.index")
		if err != nil {
			return p, err
		}
		inst.TupleIndex = n
	case ir.OpWhile:
		if p.condition == "" || p.body == "" {
			return p, &CompileError{Field: "instruction.while", Message: fmt.Sprintf("%s: while requires condition and body", name), Pos: v.Pos()}
		}
	}

	p.inst = inst
	return p, nil
}

// resolveInstruction turns operand and computation names into pointers.
func resolveInstruction(m *ir.Module, p pendingInstruction) error {
	for _, name := range p.operands {
		op, ok := m.Instruction(name)
		if !ok {
			return &CompileError{Field: "instruction.operands", Message: fmt.Sprintf("%s: unknown operand %q", p.inst.Name, name), Pos: p.pos}
		}
		p.inst.Operands = append(p.inst.Operands, op)
	}

	calls := p.calls
	if p.inst.Opcode == ir.OpWhile {
		calls = []string{p.condition, p.body}
	}
	for _, name := range calls {
		c, ok := m.Computation(name)
		if !ok {
			return &CompileError{Field: "instruction.calls", Message: fmt.Sprintf("%s: unknown computation %q", p.inst.Name, name), Pos: p.pos}
		}
		p.inst.CalledComputations = append(p.inst.CalledComputations, c)
	}
	return nil
}

// compileComputation applies root, schedule and unscheduled.
func compileComputation(c *ir.Computation, v cue.Value, schedule *ir.Schedule) error {
	if rootVal := v.LookupPath(cue.ParsePath("root")); rootVal.Exists() {
		name, err := rootVal.String()
		if err != nil {
			return formatCUEError(err)
		}
		inst, ok := c.Parent().Instruction(name)
		if !ok {
			return &CompileError{Field: "computation.root", Message: fmt.Sprintf("%s: unknown instruction %q", c.Name(), name), Pos: rootVal.Pos()}
		}
		if err := c.SetRoot(inst); err != nil {
			return &CompileError{Field: "computation.root", Message: err.Error(), Pos: rootVal.Pos()}
		}
	}

	unscheduled := false
	if uv := v.LookupPath(cue.ParsePath("unscheduled")); uv.Exists() {
		b, err := uv.Bool()
		if err != nil {
			return formatCUEError(err)
		}
		unscheduled = b
	}
	if unscheduled {
		return nil
	}

	names, err := optionalStrings(v, "schedule")
	if err != nil {
		return err
	}
	if names == nil {
		schedule.SetSequence(c, c.Instructions())
		return nil
	}
	seq := make([]*ir.Instruction, 0, len(names))
	for _, name := range names {
		inst, ok := c.Parent().Instruction(name)
		if !ok || inst.Parent() != c {
			return &CompileError{Field: "computation.schedule", Message: fmt.Sprintf("%s: %q is not an instruction of this computation", c.Name(), name), Pos: v.Pos()}
		}
		seq = append(seq, inst)
	}
	schedule.SetSequence(c, seq)
	return nil
}

// parseAliases reads module.alias entries into the module's alias config.
func parseAliases(m *ir.Module, modVal cue.Value) error {
	aliasVal := modVal.LookupPath(cue.ParsePath("alias"))
	if !aliasVal.Exists() {
		return nil
	}
	list, err := aliasVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for list.Next() {
		av := list.Value()
		output, err := optionalIndex(av, "output")
		if err != nil {
			return err
		}
		param, err := requiredInt(av, "parameter", "module.alias.parameter")
		if err != nil {
			return err
		}
		paramIndex, err := optionalIndex(av, "parameter_index")
		if err != nil {
			return err
		}
		if err := m.AliasConfig().SetUpAlias(output, param, paramIndex); err != nil {
			return &CompileError{Field: "module.alias", Message: err.Error(), Pos: av.Pos()}
		}
	}
	return nil
}

// parseBufferGroups reads the top-level buffers list of value refs.
func parseBufferGroups(v cue.Value) ([][]string, error) {
	bufVal := v.LookupPath(cue.ParsePath("buffers"))
	if !bufVal.Exists() {
		return nil, nil
	}
	list, err := bufVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var groups [][]string
	for list.Next() {
		var refs []string
		if err := list.Value().Decode(&refs); err != nil {
			return nil, &CompileError{Field: "buffers", Message: "each buffer group must be a list of value refs", Pos: list.Value().Pos()}
		}
		groups = append(groups, refs)
	}
	return groups, nil
}

func requiredString(v cue.Value, field, errField string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: errField, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{Field: errField, Message: field + " must be non-empty", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// optionalStrings returns nil when the field is absent and an empty,
// non-nil slice for an empty list.
func optionalStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	out := []string{}
	if err := fv.Decode(&out); err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

func requiredInt(v cue.Value, field, errField string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: errField, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

// optionalIndex reads a shape index written as a list of ints. Absent is {}.
func optionalIndex(v cue.Value, field string) (ir.ShapeIndex, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return ir.ShapeIndex{}, nil
	}
	idx := ir.ShapeIndex{}
	if err := fv.Decode(&idx); err != nil {
		return nil, formatCUEError(err)
	}
	return idx, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
