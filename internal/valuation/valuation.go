// Package valuation provides the ordered named-field product types used
// for machine inputs and states: a Shape names and widths a fixed set of
// fields, and a generic Record pairs a Shape with a slice of per-field
// values of any type, reused for both bitvector valuations (Input, State)
// and mark sets (machine.MaskRecord).
package valuation

import "fmt"

// PanicFieldName is the reserved field name carrying a State's panic
// indicator, a "__panic" field folded into the state shape so the panic
// component can be addressed by the same property grammar that addresses
// ordinary state fields (e.g. AG[__panic == 0]).
const PanicFieldName = "__panic"

// Field names a single component of a Shape.
type Field struct {
	Name  string
	Width uint8
}

// Shape is an ordered, named list of fields shared by every Record built
// over it. Shapes are immutable once constructed and are typically held
// once per machine and reused for every Input/State.
type Shape struct {
	fields []Field
	index  map[string]int
}

// NewShape builds a Shape from an ordered field list. Panics on a
// duplicate field name, a programming error in the machine definition.
func NewShape(fields ...Field) *Shape {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, exists := index[f.Name]; exists {
			panic(fmt.Sprintf("valuation: duplicate field name %q", f.Name))
		}
		index[f.Name] = i
	}
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return &Shape{fields: cp, index: index}
}

func (s *Shape) Fields() []Field { return s.fields }
func (s *Shape) Len() int        { return len(s.fields) }

// IndexOf returns the position of the named field and true, or -1 and
// false if no such field exists.
func (s *Shape) IndexOf(name string) (int, bool) {
	i, ok := s.index[name]
	if !ok {
		return -1, false
	}
	return i, true
}

// WithField returns a new Shape with an additional field appended — used
// to derive a state Shape from a machine's declared fields plus the
// reserved panic field.
func (s *Shape) WithField(f Field) *Shape {
	fields := append(append([]Field{}, s.fields...), f)
	return NewShape(fields...)
}

// Record is a Shape paired with one value of type T per field, in Shape
// order. T is typically abstr.Bitvector (a valuation) or mark.Mark (a
// mask over that valuation).
type Record[T any] struct {
	Shape  *Shape
	Values []T
}

// NewRecord constructs a Record, panicking if values does not match the
// shape's field count — a programming-error guard, since every Record is
// built internally from a Shape-directed loop, never from free-form
// external input.
func NewRecord[T any](shape *Shape, values []T) Record[T] {
	if len(values) != shape.Len() {
		panic(fmt.Sprintf("valuation: record has %d values, shape has %d fields", len(values), shape.Len()))
	}
	return Record[T]{Shape: shape, Values: values}
}

// Get returns the named field's value. ok is false if the field does not
// exist in the shape.
func (r Record[T]) Get(name string) (value T, ok bool) {
	i, found := r.Shape.IndexOf(name)
	if !found {
		return value, false
	}
	return r.Values[i], true
}

// MustGet is Get but panics on a missing field, for call sites that have
// already validated the field exists (e.g. a machine reading the fields
// of its own declared shape).
func (r Record[T]) MustGet(name string) T {
	v, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("valuation: field %q not present", name))
	}
	return v
}

// With returns a copy of r with the named field replaced by value.
func (r Record[T]) With(name string, value T) Record[T] {
	i, ok := r.Shape.IndexOf(name)
	if !ok {
		panic(fmt.Sprintf("valuation: field %q not present", name))
	}
	values := make([]T, len(r.Values))
	copy(values, r.Values)
	values[i] = value
	return Record[T]{Shape: r.Shape, Values: values}
}

// Map applies f to every field value, producing a Record of a possibly
// different value type over the same shape.
func Map[T, U any](r Record[T], f func(Field, T) U) Record[U] {
	values := make([]U, len(r.Values))
	for i, v := range r.Values {
		values[i] = f(r.Shape.fields[i], v)
	}
	return Record[U]{Shape: r.Shape, Values: values}
}

// Zip combines two Records sharing a Shape pairwise via f.
func Zip[T, U, V any](a Record[T], b Record[U], f func(Field, T, U) V) Record[V] {
	values := make([]V, len(a.Values))
	for i := range a.Values {
		values[i] = f(a.Shape.fields[i], a.Values[i], b.Values[i])
	}
	return Record[V]{Shape: a.Shape, Values: values}
}
