package liverange

import (
	"fmt"
	"log/slog"

	"github.com/roach88/liverange/internal/ir"
)

// TimeBound is the closed interval [Start, End] during which a value's
// buffer must stay allocated. EndPosition is the position responsible for
// End.
type TimeBound struct {
	Start       int64       `json:"start"`
	End         int64       `json:"end"`
	EndPosition ir.Position `json:"-"`
}

// Contains reports whether t lies inside the closed interval.
func (b TimeBound) Contains(t int64) bool {
	return b.Start <= t && t <= b.End
}

// Overlaps reports whether the two closed intervals share an instant.
func (b TimeBound) Overlaps(o TimeBound) bool {
	return b.Start <= o.End && o.Start <= b.End
}

func (b TimeBound) String() string {
	return fmt.Sprintf("%d-%d", b.Start, b.End)
}

// calculateBounds computes one TimeBound per value that has a timestamped
// defining instruction. Values outside the timeline are skipped.
func calculateBounds(tl *Timeline, values []*ir.Value, logger *slog.Logger) (map[*ir.Value]TimeBound, error) {
	bounds := make(map[*ir.Value]TimeBound, len(values))

	for _, v := range values {
		def := v.Instruction()
		start, ok := tl.Time(def)
		if !ok {
			continue
		}

		// Parameters are live from the start of their computation so nothing
		// scheduled ahead of the parameter can clobber its buffer.
		if def.Opcode == ir.OpParameter {
			if span, ok := tl.Span(def.Parent()); ok {
				start = min(start, span.Start)
			}
		}

		end := start
		for _, use := range v.Uses() {
			used := use.Instruction
			// A loop-carried input is dead once the body starts.
			if tl.ModuleScoped() && used.Opcode == ir.OpWhile {
				if param := whileBodyParameter(used); param != nil {
					logger.Debug("moved value to while body parameter",
						"value", v.String(),
						"while", used.Name,
						"parameter", param.Name,
					)
					used = param
				}
			}
			// Uses outside the flattened scope are not tracked.
			if t, ok := tl.Time(used); ok {
				end = max(end, t)
			}
		}

		endPosition := latestPosition(tl, v)
		for _, pos := range v.Positions() {
			comp := pos.Instruction.Parent()
			if comp == nil || pos.Instruction != comp.Root() {
				continue
			}
			// Live-out: the value survives to the end of the computation.
			if span, ok := tl.Span(comp); ok && end < span.End {
				end = span.End
				endPosition = pos
			}
		}

		if isReadOnlyEntryParameter(v) {
			end = tl.EndTime()
		}

		if start > end {
			return nil, &InvariantError{
				Code:        ErrCodeStartAfterEnd,
				Message:     fmt.Sprintf("start %d is after end %d", start, end),
				Value:       v.String(),
				Instruction: def.Name,
			}
		}
		if _, dup := bounds[v]; dup {
			return nil, &InvariantError{
				Code:        ErrCodeDuplicateValue,
				Message:     "value live range already calculated",
				Value:       v.String(),
				Instruction: def.Name,
			}
		}
		bounds[v] = TimeBound{Start: start, End: end, EndPosition: endPosition}
	}

	return bounds, nil
}

// latestPosition returns the timestamped position of v with the greatest
// timestamp. Ties go to the later position in iteration order.
func latestPosition(tl *Timeline, v *ir.Value) ir.Position {
	best := v.DefiningPosition()
	bestTime := int64(-1)
	for _, pos := range v.Positions() {
		if t, ok := tl.Time(pos.Instruction); ok && t >= bestTime {
			bestTime = t
			best = pos
		}
	}
	return best
}

// whileBodyParameter returns parameter 0 of the while body, or nil.
func whileBodyParameter(while *ir.Instruction) *ir.Instruction {
	body := while.WhileBody()
	if body == nil {
		return nil
	}
	return body.ParameterInstruction(0)
}

// isReadOnlyEntryParameter reports whether v is an entry-computation
// parameter (sub-)buffer that no output aliases. Such values are live for
// the whole program.
func isReadOnlyEntryParameter(v *ir.Value) bool {
	def := v.Instruction()
	if def.Opcode != ir.OpParameter {
		return false
	}
	comp := def.Parent()
	if comp == nil || comp.Parent() == nil {
		return false
	}
	module := comp.Parent()
	if comp != module.Entry() {
		return false
	}
	return !module.AliasConfig().ParameterHasAlias(def.ParameterNumber, v.Index())
}
