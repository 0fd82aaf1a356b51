package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nickyhof/DocQL/db"
	"github.com/nickyhof/DocQL/ps"
)

// writeValue renders v as JSON or YAML. YAML keys follow the JSON tags.
func writeValue(w io.Writer, format string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(generic); err != nil {
			return err
		}
		return encoder.Close()
	default:
		var indented bytes.Buffer
		if err := json.Indent(&indented, data, "", "  "); err != nil {
			return err
		}
		indented.WriteByte('\n')
		_, err = indented.WriteTo(w)
		return err
	}
}

func writeResult(w io.Writer, format string, result db.Result) error {
	if format == "text" {
		result.Display(w)
		return nil
	}
	return writeValue(w, format, struct {
		Type   string    `json:"type"`
		Result db.Result `json:"result"`
	}{result.Type().String(), result})
}

func writeTransactions(w io.Writer, format string, transactions []ps.Transaction) error {
	if format != "text" {
		return writeValue(w, format, transactions)
	}

	if len(transactions) == 0 {
		fmt.Fprintln(w, "no transactions")
		return nil
	}

	table := db.NewTable(w)
	table.Header([]string{"id", "when", "author", "message"})
	for _, txn := range transactions {
		table.Row([]string{shortID(txn.Id), txn.When.Format("2006-01-02 15:04:05"), txn.Author, txn.Message})
	}
	table.Render()
	return nil
}

func writeTransaction(w io.Writer, format, verb string, txn ps.Transaction) error {
	if format != "text" {
		return writeValue(w, format, txn)
	}
	_, err := fmt.Fprintf(w, "%s %s (%s)\n", verb, shortID(txn.Id), txn.Message)
	return err
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
