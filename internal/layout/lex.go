// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package layout implements a lexer for register layout descriptions like:
//
//	CMD[2]{IDLE, UDS, FE, CLEAR}, DEST[3], _[1], FLOW_DONE
//
package layout

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/db47h/lex"
)

// Type is a token type.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Raw
	Ident
	Int
	BracketOpen
	BracketClose
	BraceOpen
	BraceClose
	Comma
	Equal
)

var typeNames = [...]string{
	EOF:          "end of input",
	Raw:          "character",
	Ident:        "identifier",
	Int:          "integer",
	BracketOpen:  "'['",
	BracketClose: "']'",
	BraceOpen:    "'{'",
	BraceClose:   "'}'",
	Comma:        "','",
	Equal:        "'='",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

// Item is a lexed token. For Int tokens, Value holds the uint32 value; for
// other tokens it holds the token text.
//
type Item struct {
	Type  Type
	Pos   int
	Value interface{}
}

// Lexer splits a layout description into tokens.
//
type Lexer struct {
	l *lex.Lexer
}

// New returns a new lexer for input.
//
func New(input string) *Lexer {
	f := lex.NewFile("layout", strings.NewReader(input))
	return &Lexer{l: lex.NewLexer(f, lexInit)}
}

// Lex returns the next token.
//
func (l *Lexer) Lex() Item {
	t, pos, v := l.l.Lex()
	if t < 0 {
		// lexer error or end of input
		return Item{EOF, pos, nil}
	}
	return Item{Type(t), pos, v}
}

func emit(s *lex.State, pos int, t Type, v interface{}) {
	s.Emit(pos, lex.Token(t), v)
}

func lexInit(s *lex.State) lex.StateFn {
	r := s.Next()
	pos := s.Pos()
	switch {
	case r < 0:
		return lexEOF
	case unicode.IsSpace(r):
		return lexInit
	case unicode.IsLetter(r) || r == '_':
		return lexIdent(r, pos)
	case '0' <= r && r <= '9':
		return lexNumber(r, pos)
	case r == '[':
		emit(s, pos, BracketOpen, "[")
	case r == ']':
		emit(s, pos, BracketClose, "]")
	case r == '{':
		emit(s, pos, BraceOpen, "{")
	case r == '}':
		emit(s, pos, BraceClose, "}")
	case r == ',':
		emit(s, pos, Comma, ",")
	case r == '=':
		emit(s, pos, Equal, "=")
	default:
		emit(s, pos, Raw, string(r))
		return lexEOF
	}
	return lexInit
}

// lexNumber reads a Go style integer literal: decimal, 0x, 0o or 0b prefixed,
// with optional _ separators.
//
func lexNumber(first rune, pos int) lex.StateFn {
	return func(s *lex.State) lex.StateFn {
		var buf strings.Builder
		buf.WriteRune(first)
		r := s.Next()
		for unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			buf.WriteRune(r)
			r = s.Next()
		}
		if r >= 0 {
			s.Backup()
		}
		txt := buf.String()
		v, err := strconv.ParseUint(strings.Replace(txt, "_", "", -1), 0, 32)
		if err != nil {
			emit(s, pos, Raw, txt)
			return lexEOF
		}
		emit(s, pos, Int, uint32(v))
		return lexInit
	}
}

func lexIdent(first rune, pos int) lex.StateFn {
	return func(s *lex.State) lex.StateFn {
		var buf strings.Builder
		buf.Grow(8)
		buf.WriteRune(first)
		r := s.Next()
		for unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			buf.WriteRune(r)
			r = s.Next()
		}
		if r >= 0 {
			s.Backup()
		}
		emit(s, pos, Ident, buf.String())
		return lexInit
	}
}

// lexEOF places the lexer in End-Of-File state.
// Once in this state, the lexer will only emit EOF.
//
func lexEOF(s *lex.State) lex.StateFn {
	emit(s, s.Pos(), EOF, "end of input")
	return lexEOF
}
