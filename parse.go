// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package rotsim

import (
	"github.com/db47h/rotsim/internal/layout"
	"github.com/pkg/errors"
)

// reserved is the field name used to skip bits in a layout description.
const reserved = "_"

// ParseLayout builds a register layout from a textual description. Fields are
// listed from the least significant bit upward and separated by commas. A
// field is a name with an optional width in brackets (1 bit if omitted) and an
// optional list of enumerated values in braces. Values are numbered from 0
// unless given explicitly. Fields named _ reserve bits.
//
// For example:
//
//	ParseLayout("Control", "CMD[2]{IDLE, UDS, FE, CLEAR=0b11}, DEST[3], FLOW_DONE")
//
// describes CMD in bits 0-1, DEST in bits 2-4 and FLOW_DONE in bit 5.
//
func ParseLayout(name, desc string) (*Layout, error) {
	var (
		fields []Field
		off    uint
	)

	l := layout.New(desc)
	i := l.Lex()
	if i.Type == layout.EOF {
		return nil, parseError(desc, i.Pos, "empty layout")
	}
	for {
		if i.Type != layout.Ident {
			return nil, parseError(desc, i.Pos, "expected field name")
		}
		f := Field{Name: i.Value.(string), Offset: off, Width: 1}
		i = l.Lex()
		if i.Type == layout.BracketOpen {
			i = l.Lex()
			if i.Type != layout.Int || i.Value.(uint32) == 0 {
				return nil, parseError(desc, i.Pos, "expected field width")
			}
			f.Width = uint(i.Value.(uint32))
			if i = l.Lex(); i.Type != layout.BracketClose {
				return nil, parseError(desc, i.Pos, "missing close bracket")
			}
			i = l.Lex()
		}
		if i.Type == layout.BraceOpen {
			var err error
			if f.Values, err = parseValues(l, desc); err != nil {
				return nil, err
			}
			i = l.Lex()
		}
		off += f.Width
		if f.Name != reserved {
			fields = append(fields, f)
		}
		if i.Type == layout.EOF {
			break
		}
		if i.Type != layout.Comma {
			return nil, parseError(desc, i.Pos, "expected comma or end of input")
		}
		i = l.Lex()
	}
	return NewLayout(name, fields...)
}

// parseValues parses an enumeration up to and including the closing brace.
//
func parseValues(l *layout.Lexer, desc string) ([]EnumValue, error) {
	var (
		vs   []EnumValue
		next uint32
	)
	for {
		i := l.Lex()
		if i.Type != layout.Ident {
			return nil, parseError(desc, i.Pos, "expected value name")
		}
		e := EnumValue{Name: i.Value.(string), Value: next}
		i = l.Lex()
		if i.Type == layout.Equal {
			if i = l.Lex(); i.Type != layout.Int {
				return nil, parseError(desc, i.Pos, "expected integer value")
			}
			e.Value = i.Value.(uint32)
			i = l.Lex()
		}
		next = e.Value + 1
		vs = append(vs, e)
		switch i.Type {
		case layout.BraceClose:
			return vs, nil
		case layout.Comma:
		default:
			return nil, parseError(desc, i.Pos, "expected comma or closing brace")
		}
	}
}

// MustLayout is like ParseLayout but panics if desc cannot be parsed.
//
func MustLayout(name, desc string) *Layout {
	l, err := ParseLayout(name, desc)
	if err != nil {
		panic(err)
	}
	return l
}

func parseError(in string, pos int, msg string) error {
	return errors.Errorf("in %q at pos %d: %s", in, pos+1, msg)
}
