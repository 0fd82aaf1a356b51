package core

import (
	"encoding/json"
	"strconv"
)

type LiteralKind int

const (
	StringKind LiteralKind = iota
	IntegerKind
	FloatKind
)

func (kind LiteralKind) String() string {
	switch kind {
	case IntegerKind:
		return "Integer"
	case FloatKind:
		return "Float"
	default:
		return "String"
	}
}

// Literal is a typed scalar value. The zero value is the empty String.
type Literal struct {
	kind LiteralKind
	f    float64
	i    int64
	s    string
}

func FloatLiteral(value float64) Literal {
	return Literal{kind: FloatKind, f: value}
}

func IntegerLiteral(value int64) Literal {
	return Literal{kind: IntegerKind, i: value}
}

func StringLiteral(value string) Literal {
	return Literal{kind: StringKind, s: value}
}

func (literal Literal) Kind() LiteralKind {
	return literal.kind
}

func (literal Literal) Float() (float64, bool) {
	return literal.f, literal.kind == FloatKind
}

func (literal Literal) Integer() (int64, bool) {
	return literal.i, literal.kind == IntegerKind
}

func (literal Literal) Str() (string, bool) {
	return literal.s, literal.kind == StringKind
}

// Value returns the literal as float64, int64 or string.
func (literal Literal) Value() any {
	switch literal.kind {
	case FloatKind:
		return literal.f
	case IntegerKind:
		return literal.i
	default:
		return literal.s
	}
}

func (literal Literal) String() string {
	switch literal.kind {
	case FloatKind:
		return strconv.FormatFloat(literal.f, 'g', -1, 64)
	case IntegerKind:
		return strconv.FormatInt(literal.i, 10)
	default:
		return literal.s
	}
}

func (literal Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(literal.Value())
}
