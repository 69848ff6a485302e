// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package rotsim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EnumValue is a named legal value of a Field.
//
type EnumValue struct {
	Name  string
	Value uint32
}

// A Field is a named bit range within a 32 bits register.
//
type Field struct {
	Name   string
	Offset uint
	Width  uint
	// Values lists the legal values of the field. An empty list means that any
	// value that fits is legal.
	Values []EnumValue
}

// Mask returns the mask of the field bits, in place.
//
func (f Field) Mask() uint32 {
	if f.Width >= 32 {
		return ^uint32(0) << f.Offset
	}
	return (uint32(1)<<f.Width - 1) << f.Offset
}

// Val returns the field value v. Bits of v beyond the field width are
// discarded.
//
func (f Field) Val(v uint32) FieldValue {
	m := f.Mask()
	return FieldValue{Mask: m, Value: v << f.Offset & m}
}

// Set returns the field value with all field bits set. This is mostly useful
// for single bit flags.
//
func (f Field) Set() FieldValue {
	m := f.Mask()
	return FieldValue{Mask: m, Value: m}
}

// Clear returns the field value with all field bits cleared.
//
func (f Field) Clear() FieldValue {
	return FieldValue{Mask: f.Mask()}
}

// lookup returns the index in f.Values of value v or -1.
//
func (f Field) lookup(v uint32) int {
	for i := range f.Values {
		if f.Values[i].Value == v {
			return i
		}
	}
	return -1
}

// Enum returns the field value v. It fails if v is not one of the field's
// declared values.
//
func (f Field) Enum(v uint32) (FieldValue, error) {
	if v > f.Mask()>>f.Offset {
		return FieldValue{}, errors.Errorf("value %#x does not fit in field %s", v, f.Name)
	}
	if len(f.Values) > 0 && f.lookup(v) < 0 {
		return FieldValue{}, errors.Errorf("value %#x is not a legal value for field %s", v, f.Name)
	}
	return f.Val(v), nil
}

// Named returns the field value for the enumerated value called name.
//
func (f Field) Named(name string) (FieldValue, error) {
	for _, e := range f.Values {
		if e.Name == name {
			return f.Val(e.Value), nil
		}
	}
	return FieldValue{}, errors.Errorf("field %s has no value named %s", f.Name, name)
}

// A FieldValue is a value for one or more fields of a register, together with
// the mask of the bits it covers.
//
type FieldValue struct {
	Mask  uint32
	Value uint32
}

// Plus combines v and o. Fields do not overlap within a layout, so the
// operation is commutative and associative.
//
func (v FieldValue) Plus(o FieldValue) FieldValue {
	return FieldValue{Mask: v.Mask | o.Mask, Value: v.Value&^o.Mask | o.Value}
}

// Combine returns the combination of all vs.
//
func Combine(vs ...FieldValue) FieldValue {
	var r FieldValue
	for _, v := range vs {
		r = r.Plus(v)
	}
	return r
}

// Layout describes the fields of a register.
//
type Layout struct {
	Name   string
	fields []Field
}

// NewLayout returns a new layout with the given fields. Fields must fit in 32
// bits and must not overlap. Enumerated values must fit in their field.
//
func NewLayout(name string, fields ...Field) (*Layout, error) {
	var used uint32
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, errors.New(name + ": empty field name")
		}
		if names[f.Name] {
			return nil, errors.Errorf("%s: duplicate field name %s", name, f.Name)
		}
		names[f.Name] = true
		if f.Width == 0 || f.Offset >= 32 || f.Width > 32-f.Offset {
			return nil, errors.Errorf("%s: field %s [%d:%d] does not fit in 32 bits", name, f.Name, f.Offset, f.Offset+f.Width)
		}
		if used&f.Mask() != 0 {
			return nil, errors.Errorf("%s: field %s overlaps another field", name, f.Name)
		}
		used |= f.Mask()
		seen := make(map[string]bool, len(f.Values))
		for _, e := range f.Values {
			if e.Value > f.Mask()>>f.Offset {
				return nil, errors.Errorf("%s: value %s=%#x does not fit in field %s", name, e.Name, e.Value, f.Name)
			}
			if seen[e.Name] {
				return nil, errors.Errorf("%s: duplicate value name %s in field %s", name, e.Name, f.Name)
			}
			seen[e.Name] = true
		}
	}
	return &Layout{Name: name, fields: fields}, nil
}

// Fields returns the fields of the layout.
//
func (l *Layout) Fields() []Field {
	return l.fields
}

// Field returns the field called name. It panics if no such field exists.
//
func (l *Layout) Field(name string) Field {
	for _, f := range l.fields {
		if f.Name == name {
			return f
		}
	}
	panic("field " + name + " does not exist in " + l.Name)
}

// Register is an in-memory 32 bits register.
//
type Register struct {
	raw    uint32
	layout *Layout
}

// NewRegister returns a register with layout l and initial value v.
//
func NewRegister(l *Layout, v uint32) *Register {
	return &Register{raw: v, layout: l}
}

// Get returns the raw register value.
//
func (r *Register) Get() uint32 { return r.raw }

// Set sets the raw register value.
//
func (r *Register) Set(v uint32) { r.raw = v }

// Read returns the value of field f.
//
func (r *Register) Read(f Field) uint32 {
	return r.raw & f.Mask() >> f.Offset
}

// ReadEnum returns the value of field f and whether that value is one of the
// field's declared values.
//
func (r *Register) ReadEnum(f Field) (uint32, bool) {
	v := r.Read(f)
	return v, f.lookup(v) >= 0
}

// IsSet reports whether any bit of field f is set.
//
func (r *Register) IsSet(f Field) bool {
	return r.raw&f.Mask() != 0
}

// Write replaces the whole register with v. Bits outside of v.Mask are
// cleared.
//
func (r *Register) Write(v FieldValue) {
	r.raw = v.Value
}

// Modify updates the fields covered by v and leaves other bits untouched.
//
func (r *Register) Modify(v FieldValue) {
	r.raw = r.raw&^v.Mask | v.Value
}

// Matches reports whether all fields covered by v have the values in v.
//
func (r *Register) Matches(v FieldValue) bool {
	return r.raw&v.Mask == v.Value
}

// String returns the register fields in a human readable form, like
// "CMD=CLEAR_SECRETS DEST=0x0 FLOW_DONE=0x1".
//
func (r *Register) String() string {
	if r.layout == nil {
		return "0x" + strconv.FormatUint(uint64(r.raw), 16)
	}
	var b strings.Builder
	for _, f := range r.layout.fields {
		if b.Len() > 0 {
			b.WriteRune(' ')
		}
		b.WriteString(f.Name)
		b.WriteRune('=')
		v := r.Read(f)
		if i := f.lookup(v); i >= 0 {
			b.WriteString(f.Values[i].Name)
		} else {
			b.WriteString("0x")
			b.WriteString(strconv.FormatUint(uint64(v), 16))
		}
	}
	return b.String()
}
