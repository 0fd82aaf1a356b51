package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is a schemaless record: an unordered mapping of field name to value.
type Document map[string]any

// Operator is a native document-store comparison operator.
type Operator string

const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
)

type Comparison struct {
	Operator Operator
	Operand  Literal
}

func (comparison Comparison) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Literal{string(comparison.Operator): comparison.Operand})
}

func (comparison Comparison) String() string {
	return fmt.Sprintf("{%s: %s}", comparison.Operator, comparison.Operand)
}

// Predicate holds at most one comparison per field; all of them must hold.
type Predicate map[string]Comparison

// Fields returns the constrained field names in sorted order.
func (predicate Predicate) Fields() []string {
	fields := make([]string, 0, len(predicate))
	for field := range predicate {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Matches reports whether doc satisfies every comparison in the predicate.
func (predicate Predicate) Matches(doc Document) bool {
	for field, comparison := range predicate {
		value, exists := doc[field]
		if !exists || value == nil {
			if comparison.Operator == OpNe {
				continue
			}
			return false
		}
		if !comparison.matches(value) {
			return false
		}
	}
	return true
}

func (comparison Comparison) matches(value any) bool {
	order, comparable := compareValue(value, comparison.Operand)
	switch comparison.Operator {
	case OpEq:
		return comparable && order == 0
	case OpNe:
		return !comparable || order != 0
	case OpGt:
		return comparable && order > 0
	case OpGte:
		return comparable && order >= 0
	case OpLt:
		return comparable && order < 0
	case OpLte:
		return comparable && order <= 0
	}
	return false
}

// Equals reports whether value equals the literal under the same rules as
// $eq, so 4 and 4.0 are equal.
func (literal Literal) Equals(value any) bool {
	order, comparable := compareValue(value, literal)
	return comparable && order == 0
}

// compareValue orders a stored value against a literal. Numbers compare
// numerically regardless of int/float representation, strings compare
// bytewise, and any other pairing is not comparable.
func compareValue(value any, operand Literal) (int, bool) {
	if operand.kind == StringKind {
		s, ok := value.(string)
		if !ok {
			return 0, false
		}
		switch {
		case s < operand.s:
			return -1, true
		case s > operand.s:
			return 1, true
		}
		return 0, true
	}

	if operand.kind == IntegerKind {
		if i, ok := toInt(value); ok {
			switch {
			case i < operand.i:
				return -1, true
			case i > operand.i:
				return 1, true
			}
			return 0, true
		}
	}

	f, ok := toFloat(value)
	if !ok {
		return 0, false
	}
	target := operand.f
	if operand.kind == IntegerKind {
		target = float64(operand.i)
	}
	switch {
	case f < target:
		return -1, true
	case f > target:
		return 1, true
	}
	return 0, true
}

func toInt(v any) (int64, bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true
	case int32:
		return int64(i), true
	case int64:
		return i, true
	case json.Number:
		n, err := i.Int64()
		return n, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch i := v.(type) {
	case float64:
		return i, true
	case float32:
		return float64(i), true
	case int:
		return float64(i), true
	case int32:
		return float64(i), true
	case int64:
		return float64(i), true
	case json.Number:
		f, err := i.Float64()
		return f, err == nil
	}
	return 0, false
}
