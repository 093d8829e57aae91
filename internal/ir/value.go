package ir

// Position is a place where a value is observable: an instruction output at
// a shape index.
type Position struct {
	Instruction *Instruction
	Index       ShapeIndex
}

func (p Position) String() string {
	if p.Instruction == nil {
		return "<none>"
	}
	return p.Instruction.Name + p.Index.String()
}

// Use is an instruction reading a value through one operand slot.
type Use struct {
	Instruction   *Instruction
	OperandNumber int64
	OperandIndex  ShapeIndex
}

// Value is one logical buffer instance: defined once, observable at one or
// more positions, read by zero or more uses.
type Value struct {
	id        int64
	defining  Position
	positions []Position
	uses      []Use
}

// NewValue creates a value defined by inst at index. The defining position
// is the first position.
func NewValue(id int64, inst *Instruction, index ShapeIndex) *Value {
	def := Position{Instruction: inst, Index: index}
	return &Value{
		id:        id,
		defining:  def,
		positions: []Position{def},
	}
}

// ID returns the value identity assigned by the dataflow builder.
func (v *Value) ID() int64 { return v.id }

// Instruction returns the defining instruction.
func (v *Value) Instruction() *Instruction { return v.defining.Instruction }

// Index returns the defining shape index.
func (v *Value) Index() ShapeIndex { return v.defining.Index }

// DefiningPosition returns where the value is defined.
func (v *Value) DefiningPosition() Position { return v.defining }

// Positions returns every position of the value, defining position first.
func (v *Value) Positions() []Position { return v.positions }

// Uses returns the uses of the value in insertion order.
func (v *Value) Uses() []Use { return v.uses }

// AddPosition records that the value is also observable at inst[index].
func (v *Value) AddPosition(inst *Instruction, index ShapeIndex) {
	v.positions = append(v.positions, Position{Instruction: inst, Index: index})
}

// AddUse records that inst reads the value through operand operandNumber.
func (v *Value) AddUse(inst *Instruction, operandNumber int64, operandIndex ShapeIndex) {
	v.uses = append(v.uses, Use{Instruction: inst, OperandNumber: operandNumber, OperandIndex: operandIndex})
}

// Shape returns the sub-shape of the defining instruction at the defining
// index.
func (v *Value) Shape() (Shape, error) {
	return v.defining.Instruction.Shape.Subshape(v.defining.Index)
}

// String renders the value as name{index}, e.g. "add{}" or "t{1}".
func (v *Value) String() string {
	return v.defining.String()
}

// Buffer is a set of values that may share one physical allocation at
// different times.
type Buffer struct {
	id     int64
	values []*Value
}

// NewBuffer creates a buffer holding values.
func NewBuffer(id int64, values ...*Value) *Buffer {
	return &Buffer{id: id, values: values}
}

// ID returns the buffer identity.
func (b *Buffer) ID() int64 { return b.id }

// Values returns the aliased values.
func (b *Buffer) Values() []*Value { return b.values }

// AddValue adds v to the buffer.
func (b *Buffer) AddValue(v *Value) {
	b.values = append(b.values, v)
}
