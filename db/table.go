package db

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SimpleTable renders rows as a boxed, fixed-width text table. Numeric cells
// are right-aligned, everything else is left-aligned.
type SimpleTable struct {
	writer  io.Writer
	headers []string
	rows    [][]string
}

func NewTable(w io.Writer) *SimpleTable {
	return &SimpleTable{writer: w}
}

func (t *SimpleTable) Header(headers []string) {
	t.headers = headers
}

func (t *SimpleTable) Row(row []string) {
	t.rows = append(t.rows, row)
}

func (t *SimpleTable) Bulk(rows [][]string) {
	t.rows = append(t.rows, rows...)
}

func (t *SimpleTable) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}

	widths := t.widths()
	rule := ruleLine(widths)

	var out strings.Builder
	out.WriteString(rule)
	if len(t.headers) > 0 {
		writeCells(&out, t.headers, widths, false)
		out.WriteString(rule)
	}
	for _, row := range t.rows {
		writeCells(&out, row, widths, true)
	}
	out.WriteString(rule)

	io.WriteString(t.writer, out.String())
}

func (t *SimpleTable) widths() []int {
	columns := len(t.headers)
	for _, row := range t.rows {
		columns = max(columns, len(row))
	}

	widths := make([]int, columns)
	for i := range widths {
		widths[i] = 1
	}
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], cellWidth(cell))
		}
	}
	return widths
}

func ruleLine(widths []int) string {
	var line strings.Builder
	for _, w := range widths {
		line.WriteString("+")
		line.WriteString(strings.Repeat("-", w+2))
	}
	line.WriteString("+\n")
	return line.String()
}

func writeCells(out *strings.Builder, row []string, widths []int, alignNumbers bool) {
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := strings.Repeat(" ", w-cellWidth(cell))

		out.WriteString("| ")
		if alignNumbers && isNumeric(cell) {
			out.WriteString(pad + cell)
		} else {
			out.WriteString(cell + pad)
		}
		out.WriteString(" ")
	}
	out.WriteString("|\n")
}

func isNumeric(cell string) bool {
	_, err := strconv.ParseFloat(cell, 64)
	return err == nil
}

// cellWidth counts runes so that non-ASCII restaurant names stay aligned.
func cellWidth(cell string) int {
	return utf8.RuneCountInString(cell)
}
