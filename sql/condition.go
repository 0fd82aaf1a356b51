package sql

import (
	"fmt"
	"strings"

	"github.com/nickyhof/DocQL/core"
)

// Warning records a WHERE segment that was skipped during translation.
type Warning struct {
	Segment string `json:"segment"`
	Reason  string `json:"reason"`
}

func (warning Warning) String() string {
	if warning.Reason == unbalancedQuotes {
		return fmt.Sprintf("%q: %s", warning.Segment, warning.Reason)
	}
	return fmt.Sprintf("skipped condition %q: %s", warning.Segment, warning.Reason)
}

// TranslateWhere converts a conjunction of simple comparisons into a
// predicate. A later comparison on the same field replaces an earlier one.
// Segments without a comparison operator, or without a field name, are not
// errors: they are dropped and reported as warnings. A clause whose quotes
// do not pair up is split on every AND and also reported.
func TranslateWhere(clause string) (core.Predicate, []Warning) {
	predicate := core.Predicate{}
	var warnings []Warning

	if strings.TrimSpace(clause) == "" {
		return predicate, nil
	}

	segments, plain := splitConjunction(clause)
	if plain {
		warnings = append(warnings, Warning{Segment: strings.TrimSpace(clause), Reason: unbalancedQuotes})
	}

	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			warnings = append(warnings, Warning{Segment: segment, Reason: "empty condition"})
			continue
		}

		entry, index, found := findOperator(segment)
		if !found {
			warnings = append(warnings, Warning{Segment: segment, Reason: "no comparison operator"})
			continue
		}

		field := strings.TrimSpace(segment[:index])
		if field == "" {
			warnings = append(warnings, Warning{Segment: segment, Reason: "missing field name"})
			continue
		}

		literal := strings.TrimSpace(segment[index+len(entry.Symbol):])
		predicate[field] = core.Comparison{Operator: entry.Operator, Operand: Coerce(literal)}
	}

	return predicate, warnings
}
