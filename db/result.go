package db

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/sql"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	InsertResultType
	UpdateResultType
	DeleteResultType
)

func (t ResultType) String() string {
	switch t {
	case QueryResultType:
		return "query"
	case InsertResultType:
		return "insert"
	case UpdateResultType:
		return "update"
	case DeleteResultType:
		return "delete"
	default:
		return "unknown"
	}
}

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

type QueryResult struct {
	Collection       string          `json:"collection"`
	Fields           []string        `json:"fields,omitempty"`
	Documents        []core.Document `json:"documents"`
	Warnings         []sql.Warning   `json:"warnings,omitempty"`
	ExecutionTimeSec float64         `json:"execution_time_sec"`
}

type InsertResult struct {
	Collection       string        `json:"collection"`
	InsertedID       string        `json:"inserted_id"`
	Warnings         []sql.Warning `json:"warnings,omitempty"`
	ExecutionTimeSec float64       `json:"execution_time_sec"`
}

type UpdateResult struct {
	Collection       string        `json:"collection"`
	ModifiedCount    int64         `json:"modified_count"`
	Warnings         []sql.Warning `json:"warnings,omitempty"`
	ExecutionTimeSec float64       `json:"execution_time_sec"`
}

type DeleteResult struct {
	Collection       string        `json:"collection"`
	DeletedCount     int64         `json:"deleted_count"`
	Warnings         []sql.Warning `json:"warnings,omitempty"`
	ExecutionTimeSec float64       `json:"execution_time_sec"`
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result InsertResult) Type() ResultType {
	return InsertResultType
}

func (result UpdateResult) Type() ResultType {
	return UpdateResultType
}

func (result DeleteResult) Type() ResultType {
	return DeleteResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

// Columns returns the display columns: the requested fields, or every field
// seen across the documents with the identifier first.
func (result QueryResult) Columns() []string {
	if result.Fields != nil {
		columns := []string{IDField}
		for _, field := range result.Fields {
			if field != IDField {
				columns = append(columns, field)
			}
		}
		return columns
	}

	seen := map[string]bool{}
	var columns []string
	for _, document := range result.Documents {
		for field := range document {
			if !seen[field] && field != IDField {
				seen[field] = true
				columns = append(columns, field)
			}
		}
	}
	sort.Strings(columns)
	return append([]string{IDField}, columns...)
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Documents) > 0 {
		columns := result.Columns()
		table := NewTable(w)
		rows := make([][]string, 0, len(result.Documents))
		for _, document := range result.Documents {
			row := make([]string, len(columns))
			for i, column := range columns {
				row[i] = formatValue(document[column])
			}
			rows = append(rows, row)
		}
		table.Header(columns)
		table.Bulk(rows)
		table.Render()
	}

	displayWarnings(w, result.Warnings)
	fmt.Fprintf(w, "%d document(s) (%s)\n", len(result.Documents), result.ExecutionTime())
}

func (result InsertResult) Display(w io.Writer) {
	displayWarnings(w, result.Warnings)
	fmt.Fprintf(w, "inserted %s into %s (%s)\n", result.InsertedID, result.Collection, formatDuration(result.ExecutionTimeSec))
}

func (result UpdateResult) Display(w io.Writer) {
	displayWarnings(w, result.Warnings)
	fmt.Fprintf(w, "%d document(s) modified (%s)\n", result.ModifiedCount, formatDuration(result.ExecutionTimeSec))
}

func (result DeleteResult) Display(w io.Writer) {
	displayWarnings(w, result.Warnings)
	fmt.Fprintf(w, "%d document(s) deleted (%s)\n", result.DeletedCount, formatDuration(result.ExecutionTimeSec))
}

func displayWarnings(w io.Writer, warnings []sql.Warning) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
