package liverange

import (
	"io"
	"log/slog"

	"github.com/roach88/liverange/internal/ir"
)

// Span is the half-open time range [Start, End) a computation occupies in
// the flattened order.
type Span struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Timeline is the frozen output of flattening: one global instruction
// order, a timestamp per instruction, and a span per flattened computation.
// It is built once by Flatten and only read afterwards.
type Timeline struct {
	sequence       []*ir.Instruction
	times          map[*ir.Instruction]int64
	spans          map[*ir.Computation]Span
	totallyOrdered bool
	moduleScoped   bool
}

// Sequence returns a copy of the flattened instruction order.
func (t *Timeline) Sequence() []*ir.Instruction {
	out := make([]*ir.Instruction, len(t.sequence))
	copy(out, t.sequence)
	return out
}

// Time returns the timestamp of inst, or false if inst was not flattened.
func (t *Timeline) Time(inst *ir.Instruction) (int64, bool) {
	ts, ok := t.times[inst]
	return ts, ok
}

// Span returns the span of c, or false if c was not flattened.
func (t *Timeline) Span(c *ir.Computation) (Span, bool) {
	s, ok := t.spans[c]
	return s, ok
}

// EndTime is the length of the flattened sequence, one past the last
// timestamp.
func (t *Timeline) EndTime() int64 {
	return int64(len(t.sequence))
}

// TotallyOrdered reports whether every computation reached during
// flattening had a sequence in the schedule.
func (t *Timeline) TotallyOrdered() bool {
	return t.totallyOrdered
}

// ModuleScoped reports whether called computations were inlined.
func (t *Timeline) ModuleScoped() bool {
	return t.moduleScoped
}

// Flatten walks the schedule of root and assigns every instruction one
// timestamp in a single global order.
//
// With moduleScoped set, the bodies of calls and conditionals, and the
// condition then body of whiles, are flattened in line just before the
// instruction that calls them. A computation is expanded only the first
// time it is reached; later call sites reuse its single span.
//
// A root (or callee) missing from the schedule does not fail the walk: the
// returned timeline reports TotallyOrdered() == false.
func Flatten(root *ir.Computation, schedule *ir.Schedule, moduleScoped bool) (*Timeline, error) {
	return flatten(root, schedule, moduleScoped, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// flattenFrame is one computation being walked. Frames live on an explicit
// stack so deeply nested control flow does not grow the Go stack.
type flattenFrame struct {
	comp     *ir.Computation
	seq      []*ir.Instruction
	next     int   // index of the next instruction to timestamp
	expanded bool  // callees of seq[next] already pushed
	started  bool  // schedule looked up and visited marked
	start    int64 // first timestamp of this computation
}

// timelineBuilder owns the mutable maps while Flatten runs.
type timelineBuilder struct {
	schedule *ir.Schedule
	visited  map[int64]bool
	logger   *slog.Logger
	tl       *Timeline
}

func flatten(root *ir.Computation, schedule *ir.Schedule, moduleScoped bool, logger *slog.Logger) (*Timeline, error) {
	b := &timelineBuilder{
		schedule: schedule,
		visited:  make(map[int64]bool),
		logger:   logger,
		tl: &Timeline{
			times:          make(map[*ir.Instruction]int64),
			spans:          make(map[*ir.Computation]Span),
			totallyOrdered: true,
			moduleScoped:   moduleScoped,
		},
	}

	if !schedule.Has(root) {
		logger.Debug("root computation not scheduled", "computation", root.Name())
		b.tl.totallyOrdered = false
		return b.tl, nil
	}

	if err := b.walk(root); err != nil {
		return nil, err
	}
	return b.tl, nil
}

func (b *timelineBuilder) walk(root *ir.Computation) error {
	stack := []*flattenFrame{{comp: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if !f.started {
			seq, ok := b.schedule.Sequence(f.comp)
			if !ok {
				b.logger.Debug("called computation not scheduled", "computation", f.comp.Name())
				b.tl.totallyOrdered = false
				stack = stack[:len(stack)-1]
				continue
			}
			if b.visited[f.comp.ID()] {
				stack = stack[:len(stack)-1]
				continue
			}
			b.visited[f.comp.ID()] = true
			f.seq = seq
			f.started = true
			f.start = int64(len(b.tl.sequence))
		}

		if f.next == len(f.seq) {
			b.tl.spans[f.comp] = Span{Start: f.start, End: int64(len(b.tl.sequence))}
			stack = stack[:len(stack)-1]
			continue
		}

		inst := f.seq[f.next]
		if b.tl.moduleScoped && !f.expanded {
			f.expanded = true
			callees := flattenedCallees(inst)
			// Pushed in reverse so the first callee is walked first.
			for i := len(callees) - 1; i >= 0; i-- {
				stack = append(stack, &flattenFrame{comp: callees[i]})
			}
			if len(callees) > 0 {
				continue
			}
		}

		if _, dup := b.tl.times[inst]; dup {
			return &InvariantError{
				Code:        ErrCodeDuplicateInstruction,
				Message:     "instruction appears twice in the flattened schedule",
				Instruction: inst.Name,
			}
		}
		b.tl.times[inst] = int64(len(b.tl.sequence))
		b.tl.sequence = append(b.tl.sequence, inst)
		f.next++
		f.expanded = false
	}
	return nil
}

// flattenedCallees returns the computations inlined before inst in
// module-scoped mode, in walk order.
func flattenedCallees(inst *ir.Instruction) []*ir.Computation {
	switch inst.Opcode {
	case ir.OpCall, ir.OpConditional:
		return inst.CalledComputations
	case ir.OpWhile:
		var out []*ir.Computation
		if cond := inst.WhileCondition(); cond != nil {
			out = append(out, cond)
		}
		if body := inst.WhileBody(); body != nil {
			out = append(out, body)
		}
		return out
	}
	return nil
}
