package dataflow

import (
	"fmt"
	"strings"

	"github.com/roach88/liverange/internal/ir"
)

// ValueRef names a value by the instruction that holds it and a shape index,
// written "name" or "name{1,0}". A ref may point at a forwarding position;
// it resolves to whichever value is visible there.
type ValueRef struct {
	Instruction string
	Index       ir.ShapeIndex
}

// String renders the ref in the same form ParseValueRef accepts.
func (r ValueRef) String() string {
	return r.Instruction + r.Index.String()
}

// ParseValueRef parses "name" or "name{i,j}". A bare name is the {} index.
func ParseValueRef(text string) (ValueRef, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return ValueRef{}, fmt.Errorf("value ref: empty")
	}
	brace := strings.IndexByte(s, '{')
	if brace < 0 {
		return ValueRef{Instruction: s, Index: ir.ShapeIndex{}}, nil
	}
	if brace == 0 {
		return ValueRef{}, fmt.Errorf("value ref %q: missing instruction name", text)
	}
	idx, err := ir.ParseShapeIndex(s[brace:])
	if err != nil {
		return ValueRef{}, fmt.Errorf("value ref %q: %w", text, err)
	}
	return ValueRef{Instruction: s[:brace], Index: idx}, nil
}

// MustParseValueRef is like ParseValueRef but panics on error.
// Use only in tests.
func MustParseValueRef(text string) ValueRef {
	r, err := ParseValueRef(text)
	if err != nil {
		panic(err)
	}
	return r
}
