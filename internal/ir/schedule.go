package ir

// Schedule maps each computation to its instruction order. It may be
// partial: a computation without a sequence is unscheduled.
type Schedule struct {
	sequences map[int64][]*Instruction
}

// NewSchedule creates an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{sequences: make(map[int64][]*Instruction)}
}

// DeclarationOrderSchedule schedules every computation of m in the order
// its instructions were added.
func DeclarationOrderSchedule(m *Module) *Schedule {
	s := NewSchedule()
	for _, c := range m.Computations() {
		s.SetSequence(c, c.Instructions())
	}
	return s
}

// SetSequence sets the instruction order of c. The slice is copied.
func (s *Schedule) SetSequence(c *Computation, seq []*Instruction) {
	cp := make([]*Instruction, len(seq))
	copy(cp, seq)
	s.sequences[c.ID()] = cp
}

// Sequence returns the instruction order of c and whether c is scheduled.
func (s *Schedule) Sequence(c *Computation) ([]*Instruction, bool) {
	seq, ok := s.sequences[c.ID()]
	return seq, ok
}

// Has reports whether c is scheduled.
func (s *Schedule) Has(c *Computation) bool {
	_, ok := s.sequences[c.ID()]
	return ok
}

// Remove drops c from the schedule.
func (s *Schedule) Remove(c *Computation) {
	delete(s.sequences, c.ID())
}
