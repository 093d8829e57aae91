package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PrimitiveType is the element type of an array shape.
type PrimitiveType int

const (
	PrimitiveInvalid PrimitiveType = iota
	Pred
	S8
	S16
	S32
	S64
	U8
	U16
	U32
	U64
	F16
	BF16
	F32
	F64
	C64
	C128
	Token
	Tuple
)

var primitiveNames = map[PrimitiveType]string{
	Pred:  "pred",
	S8:    "s8",
	S16:   "s16",
	S32:   "s32",
	S64:   "s64",
	U8:    "u8",
	U16:   "u16",
	U32:   "u32",
	U64:   "u64",
	F16:   "f16",
	BF16:  "bf16",
	F32:   "f32",
	F64:   "f64",
	C64:   "c64",
	C128:  "c128",
	Token: "token",
	Tuple: "tuple",
}

var primitiveWidths = map[PrimitiveType]int64{
	Pred:  1,
	S8:    1,
	S16:   2,
	S32:   4,
	S64:   8,
	U8:    1,
	U16:   2,
	U32:   4,
	U64:   8,
	F16:   2,
	BF16:  2,
	F32:   4,
	F64:   8,
	C64:   8,
	C128:  16,
	Token: 0,
}

// String returns the lower-case type name used in shape text ("f32", "pred").
func (p PrimitiveType) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return fmt.Sprintf("invalid(%d)", int(p))
}

// ParsePrimitiveType maps a type name back to its PrimitiveType.
// The tuple pseudo-type is not accepted; tuples are written as "(...)".
func ParsePrimitiveType(name string) (PrimitiveType, bool) {
	for p, n := range primitiveNames {
		if n == name && p != Tuple {
			return p, true
		}
	}
	return PrimitiveInvalid, false
}

// ShapeError reports a shape that cannot be parsed or sized.
// Size computation returns it instead of panicking so a single bad
// shape fails one value, not the whole run.
type ShapeError struct {
	Shape  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Shape == "" {
		return fmt.Sprintf("invalid shape: %s", e.Reason)
	}
	return fmt.Sprintf("invalid shape %q: %s", e.Shape, e.Reason)
}

// Shape is either an array of ElementType with Dimensions, or a tuple of
// TupleShapes when ElementType is Tuple.
type Shape struct {
	ElementType PrimitiveType
	Dimensions  []int64
	TupleShapes []Shape
}

// ArrayShape builds an array shape.
func ArrayShape(t PrimitiveType, dims ...int64) Shape {
	return Shape{ElementType: t, Dimensions: dims}
}

// TupleShape builds a tuple shape from its elements.
func TupleShape(elems ...Shape) Shape {
	return Shape{ElementType: Tuple, TupleShapes: elems}
}

// IsTuple reports whether the shape is a tuple.
func (s Shape) IsTuple() bool {
	return s.ElementType == Tuple
}

// String renders the shape in the same text form ParseShape accepts.
func (s Shape) String() string {
	var b strings.Builder
	s.writeTo(&b)
	return b.String()
}

func (s Shape) writeTo(b *strings.Builder) {
	if s.IsTuple() {
		b.WriteByte('(')
		for i, elem := range s.TupleShapes {
			if i > 0 {
				b.WriteString(", ")
			}
			elem.writeTo(b)
		}
		b.WriteByte(')')
		return
	}
	b.WriteString(s.ElementType.String())
	b.WriteByte('[')
	for i, d := range s.Dimensions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(d, 10))
	}
	b.WriteByte(']')
}

// Subshape returns the shape found by walking index through nested tuples.
func (s Shape) Subshape(index ShapeIndex) (Shape, error) {
	cur := s
	for depth, i := range index {
		if !cur.IsTuple() {
			return Shape{}, &ShapeError{Shape: s.String(), Reason: fmt.Sprintf("index %s descends into non-tuple at depth %d", index, depth)}
		}
		if i < 0 || i >= int64(len(cur.TupleShapes)) {
			return Shape{}, &ShapeError{Shape: s.String(), Reason: fmt.Sprintf("index %s out of range at depth %d", index, depth)}
		}
		cur = cur.TupleShapes[i]
	}
	return cur, nil
}

// Indices lists every index of the shape in pre-order: {} first, then the
// tuple elements depth first.
func (s Shape) Indices() []ShapeIndex {
	var out []ShapeIndex
	var walk func(sh Shape, prefix ShapeIndex)
	walk = func(sh Shape, prefix ShapeIndex) {
		out = append(out, prefix)
		if !sh.IsTuple() {
			return
		}
		for i, elem := range sh.TupleShapes {
			walk(elem, prefix.Append(int64(i)))
		}
	}
	walk(s, ShapeIndex{})
	return out
}

// ByteSizeOf returns the storage size of a shape. Arrays take element width
// times element count, tuples take one pointer per element, tokens take none.
func ByteSizeOf(s Shape, pointerSize int64) (int64, error) {
	if s.IsTuple() {
		return pointerSize * int64(len(s.TupleShapes)), nil
	}
	width, ok := primitiveWidths[s.ElementType]
	if !ok {
		return 0, &ShapeError{Shape: s.String(), Reason: "unsupported element type"}
	}
	count := int64(1)
	for _, d := range s.Dimensions {
		if d < 0 {
			return 0, &ShapeError{Shape: s.String(), Reason: fmt.Sprintf("negative dimension %d", d)}
		}
		if d != 0 && count > math.MaxInt64/d {
			return 0, &ShapeError{Shape: s.String(), Reason: "element count overflows int64"}
		}
		count *= d
	}
	if width != 0 && count > math.MaxInt64/width {
		return 0, &ShapeError{Shape: s.String(), Reason: "byte size overflows int64"}
	}
	return count * width, nil
}

// ParseShape parses shape text such as "f32[2,3]", "s32[]", "token[]" or
// "(f32[4], (s32[], pred[]))".
func ParseShape(text string) (Shape, error) {
	p := &shapeParser{src: text}
	s, err := p.parse()
	if err != nil {
		return Shape{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Shape{}, p.errorf("unexpected trailing input %q", p.src[p.pos:])
	}
	return s, nil
}

// MustParseShape is like ParseShape but panics on error.
// Use only in tests or for literal shapes.
func MustParseShape(text string) Shape {
	s, err := ParseShape(text)
	if err != nil {
		panic(err)
	}
	return s
}

type shapeParser struct {
	src string
	pos int
}

func (p *shapeParser) errorf(format string, args ...any) error {
	return &ShapeError{Shape: p.src, Reason: fmt.Sprintf(format, args...)}
}

func (p *shapeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *shapeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *shapeParser) parse() (Shape, error) {
	p.skipSpace()
	if p.peek() == '(' {
		return p.parseTuple()
	}
	return p.parseArray()
}

func (p *shapeParser) parseTuple() (Shape, error) {
	p.pos++ // '('
	elems := []Shape{}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return TupleShape(elems...), nil
	}
	for {
		elem, err := p.parse()
		if err != nil {
			return Shape{}, err
		}
		elems = append(elems, elem)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return TupleShape(elems...), nil
		default:
			return Shape{}, p.errorf("expected ',' or ')' at offset %d", p.pos)
		}
	}
}

func (p *shapeParser) parseArray() (Shape, error) {
	start := p.pos
	for p.pos < len(p.src) && isTypeNameByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return Shape{}, p.errorf("expected element type at offset %d", start)
	}
	elem, ok := ParsePrimitiveType(name)
	if !ok {
		return Shape{}, p.errorf("unknown element type %q", name)
	}
	p.skipSpace()
	if p.peek() != '[' {
		if elem == Token {
			return ArrayShape(Token), nil
		}
		return Shape{}, p.errorf("expected '[' after %q", name)
	}
	p.pos++
	dims := []int64{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			break
		}
		numStart := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] == '-' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
			p.pos++
		}
		d, err := strconv.ParseInt(p.src[numStart:p.pos], 10, 64)
		if err != nil {
			return Shape{}, p.errorf("bad dimension at offset %d", numStart)
		}
		dims = append(dims, d)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if p.peek() != ']' {
			return Shape{}, p.errorf("expected ',' or ']' at offset %d", p.pos)
		}
	}
	return ArrayShape(elem, dims...), nil
}

func isTypeNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// ShapeIndex addresses a sub-shape inside nested tuples. The empty index
// is the whole shape.
type ShapeIndex []int64

// String renders the index as "{}" or "{0,1}".
func (i ShapeIndex) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for k, v := range i {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	b.WriteByte('}')
	return b.String()
}

// Equal reports element-wise equality. nil and empty are equal.
func (i ShapeIndex) Equal(o ShapeIndex) bool {
	if len(i) != len(o) {
		return false
	}
	for k := range i {
		if i[k] != o[k] {
			return false
		}
	}
	return true
}

// Append returns a new index with k appended; i is not modified.
func (i ShapeIndex) Append(k int64) ShapeIndex {
	out := make(ShapeIndex, len(i), len(i)+1)
	copy(out, i)
	return append(out, k)
}

// Concat returns i followed by suffix as a new index.
func (i ShapeIndex) Concat(suffix ShapeIndex) ShapeIndex {
	out := make(ShapeIndex, 0, len(i)+len(suffix))
	out = append(out, i...)
	return append(out, suffix...)
}

// HasPrefix reports whether i starts with prefix.
func (i ShapeIndex) HasPrefix(prefix ShapeIndex) bool {
	if len(prefix) > len(i) {
		return false
	}
	return i[:len(prefix)].Equal(prefix)
}

// ParseShapeIndex parses "{}", "{0}" or "{1,0}". An empty string is the
// empty index.
func ParseShapeIndex(text string) (ShapeIndex, error) {
	s := strings.TrimSpace(text)
	if s == "" || s == "{}" {
		return ShapeIndex{}, nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("shape index %q: must be wrapped in braces", text)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	out := make(ShapeIndex, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("shape index %q: bad element %q", text, part)
		}
		out = append(out, v)
	}
	return out, nil
}
