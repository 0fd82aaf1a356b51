package sql

import "github.com/nickyhof/DocQL/core"

type operatorEntry struct {
	Symbol   string
	Operator core.Operator
}

// operatorTable is scanned in order. Two-character symbols come before the
// single-character symbols they start with so that ">=" is never read as ">".
var operatorTable = []operatorEntry{
	{">=", core.OpGte},
	{"<=", core.OpLte},
	{"!=", core.OpNe},
	{"=", core.OpEq},
	{">", core.OpGt},
	{"<", core.OpLt},
}

// LookupOperator maps an exact comparison symbol to its operator.
func LookupOperator(symbol string) (core.Operator, bool) {
	for _, entry := range operatorTable {
		if entry.Symbol == symbol {
			return entry.Operator, true
		}
	}
	return "", false
}

// findOperator returns the first table entry whose symbol occurs in segment
// outside of quoted text, and the byte offset of its first such occurrence.
// A segment with unpaired quotes is searched as plain text.
func findOperator(segment string) (operatorEntry, int, bool) {
	for _, entry := range operatorTable {
		if index := indexSymbol(segment, entry.Symbol); index >= 0 {
			return entry, index, true
		}
	}
	return operatorEntry{}, -1, false
}
