package sql

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nickyhof/DocQL/core"
)

func TestParser(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected Statement
	}{
		{
			"select wildcard",
			"SELECT * FROM restaurants",
			SelectStatement{
				Collection: "restaurants",
				Projection: "*",
				Where:      core.Predicate{},
			},
		},
		{
			"select fields",
			"SELECT name, avg_rating FROM restaurants",
			SelectStatement{
				Collection: "restaurants",
				Projection: "name, avg_rating",
				Fields:     []string{"name", "avg_rating"},
				Where:      core.Predicate{},
			},
		},
		{
			"select with where float",
			"SELECT * FROM restaurants WHERE avg_rating>=4.5",
			SelectStatement{
				Collection: "restaurants",
				Projection: "*",
				Where: core.Predicate{
					"avg_rating": {Operator: core.OpGte, Operand: core.FloatLiteral(4.5)},
				},
			},
		},
		{
			"select lowercase keywords",
			"select * from restaurants where name = 'Cafe X'",
			SelectStatement{
				Collection: "restaurants",
				Projection: "*",
				Where: core.Predicate{
					"name": {Operator: core.OpEq, Operand: core.StringLiteral("Cafe X")},
				},
			},
		},
		{
			"select trailing semicolon",
			"SELECT * FROM audit WHERE rating != 3;",
			SelectStatement{
				Collection: "audit",
				Projection: "*",
				Where: core.Predicate{
					"rating": {Operator: core.OpNe, Operand: core.IntegerLiteral(3)},
				},
			},
		},
		{
			"insert",
			"INSERT INTO restaurants (name, avg_rating) VALUES ('Cafe X', '4.5')",
			InsertStatement{
				Collection: "restaurants",
				Fields:     []string{"name", "avg_rating"},
				Values:     []string{"Cafe X", "4.5"},
			},
		},
		{
			"insert unquoted values stay strings",
			`INSERT INTO audit (username, rating) VALUES ("jane", 4)`,
			InsertStatement{
				Collection: "audit",
				Fields:     []string{"username", "rating"},
				Values:     []string{"jane", "4"},
			},
		},
		{
			"insert comma inside quotes",
			"INSERT INTO restaurants (name, review) VALUES ('Cafe X', 'good, not great')",
			InsertStatement{
				Collection: "restaurants",
				Fields:     []string{"name", "review"},
				Values:     []string{"Cafe X", "good, not great"},
			},
		},
		{
			"update",
			"UPDATE restaurants SET (avg_rating=4.8) WHERE restaurant_id='abc123'",
			UpdateStatement{
				Collection:  "restaurants",
				Assignments: []Assignment{{Field: "avg_rating", Value: core.FloatLiteral(4.8)}},
				Where: core.Predicate{
					"restaurant_id": {Operator: core.OpEq, Operand: core.StringLiteral("abc123")},
				},
			},
		},
		{
			"update quoted number is coerced",
			"UPDATE restaurants SET (visits = '12', name = 'Cafe Y')",
			UpdateStatement{
				Collection: "restaurants",
				Assignments: []Assignment{
					{Field: "visits", Value: core.IntegerLiteral(12)},
					{Field: "name", Value: core.StringLiteral("Cafe Y")},
				},
				Where: core.Predicate{},
			},
		},
		{
			"delete all",
			"DELETE FROM users",
			DeleteStatement{
				Collection: "users",
				Where:      core.Predicate{},
			},
		},
		{
			"delete with where",
			"DELETE FROM users WHERE age<18 AND name='x'",
			DeleteStatement{
				Collection: "users",
				Where: core.Predicate{
					"age":  {Operator: core.OpLt, Operand: core.IntegerLiteral(18)},
					"name": {Operator: core.OpEq, Operand: core.StringLiteral("x")},
				},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			parser := NewParser(test.sql)
			statement, err := parser.Parse()
			if err != nil {
				t.Fatalf("Failed to parse statement: %v", err)
			}

			if !reflect.DeepEqual(statement, test.expected) {
				t.Errorf("Expected %+v, got %+v", test.expected, statement)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind StatementType
	}{
		{"select without from", "SELECT FROM", SelectStatementType},
		{"select without collection", "SELECT * FROM", SelectStatementType},
		{"select no from keyword", "SELECT * restaurants", SelectStatementType},
		{"select trailing text", "SELECT * FROM restaurants LIMIT 5", SelectStatementType},
		{"select empty where", "SELECT * FROM restaurants WHERE ", SelectStatementType},
		{"insert missing into", "INSERT restaurants (a) VALUES (1)", InsertStatementType},
		{"insert missing values", "INSERT INTO restaurants (a)", InsertStatementType},
		{"insert unterminated", "INSERT INTO restaurants (a, b", InsertStatementType},
		{"insert count mismatch", "INSERT INTO restaurants (a, b) VALUES ('x')", InsertStatementType},
		{"insert extra values", "INSERT INTO restaurants (a) VALUES ('x', 'y')", InsertStatementType},
		{"insert empty field", "INSERT INTO restaurants (a, ) VALUES ('x', 'y')", InsertStatementType},
		{"update missing set list", "UPDATE x SET", UpdateStatementType},
		{"update no parens", "UPDATE x SET a=1", UpdateStatementType},
		{"update missing collection", "UPDATE SET (a=1)", UpdateStatementType},
		{"update assignment without equals", "UPDATE x SET (a)", UpdateStatementType},
		{"update empty field", "UPDATE x SET (=1)", UpdateStatementType},
		{"delete missing from", "DELETE users", DeleteStatementType},
		{"delete missing collection", "DELETE FROM", DeleteStatementType},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewParser(test.sql).Parse()
			if err == nil {
				t.Fatalf("Expected error for %q", test.sql)
			}
			if !errors.Is(err, ErrMalformedStatement) {
				t.Fatalf("Expected malformed statement error, got %v", err)
			}
			var malformedErr *MalformedStatementError
			if !errors.As(err, &malformedErr) {
				t.Fatalf("Expected *MalformedStatementError, got %T", err)
			}
			if malformedErr.Kind != test.kind {
				t.Errorf("Expected kind %s, got %s", test.kind, malformedErr.Kind)
			}
		})
	}
}

func TestParserUnsupported(t *testing.T) {
	tests := []struct {
		sql   string
		token string
	}{
		{"FOO BAR", "FOO"},
		{"drop table restaurants", "drop"},
		{"SELECT*FROM x", "SELECT*FROM"},
		{"   ", ""},
	}

	for _, test := range tests {
		_, err := NewParser(test.sql).Parse()
		if !errors.Is(err, ErrUnsupportedOperation) {
			t.Fatalf("Expected unsupported operation for %q, got %v", test.sql, err)
		}
		var unsupported *UnsupportedOperationError
		if !errors.As(err, &unsupported) || unsupported.Token != test.token {
			t.Errorf("Expected token %q, got %v", test.token, err)
		}
	}
}

func TestParserWarnings(t *testing.T) {
	statement, warnings, err := Parse("SELECT * FROM restaurants WHERE rating LIKE 4 AND avg_rating>4")
	if err != nil {
		t.Fatalf("Failed to parse statement: %v", err)
	}

	where := statement.(SelectStatement).Where
	if len(where) != 1 {
		t.Fatalf("Expected 1 condition, got %d", len(where))
	}
	if len(warnings) != 1 || warnings[0].Segment != "rating LIKE 4" {
		t.Errorf("Expected warning for skipped segment, got %v", warnings)
	}
}

func TestInsertDocument(t *testing.T) {
	statement, _, err := Parse("INSERT INTO restaurants (name, avg_rating) VALUES ('Cafe X', '4.5')")
	if err != nil {
		t.Fatalf("Failed to parse statement: %v", err)
	}

	document := statement.(InsertStatement).Document()
	expected := core.Document{"name": "Cafe X", "avg_rating": "4.5"}
	if !reflect.DeepEqual(document, expected) {
		t.Errorf("Expected %v, got %v", expected, document)
	}
}

func TestUpdateSetLastWins(t *testing.T) {
	statement, _, err := Parse("UPDATE restaurants SET (avg_rating=4.1, avg_rating=4.2)")
	if err != nil {
		t.Fatalf("Failed to parse statement: %v", err)
	}

	set := statement.(UpdateStatement).Set()
	if len(set) != 1 || set["avg_rating"] != core.FloatLiteral(4.2) {
		t.Errorf("Expected avg_rating=4.2, got %v", set)
	}
}

func TestParserUnpairedApostrophe(t *testing.T) {
	statement, warnings, err := Parse("SELECT * FROM restaurants WHERE name='Joe's Pizza' AND avg_rating>4")
	if err != nil {
		t.Fatalf("Failed to parse statement: %v", err)
	}
	where := statement.(SelectStatement).Where
	if where["name"].Operand != core.StringLiteral("Joe's Pizza") {
		t.Errorf("Expected name Joe's Pizza, got %v", where["name"])
	}
	if where["avg_rating"] != (core.Comparison{Operator: core.OpGt, Operand: core.IntegerLiteral(4)}) {
		t.Errorf("Expected avg_rating>4, got %v", where["avg_rating"])
	}
	if len(warnings) != 1 || warnings[0].Reason != unbalancedQuotes {
		t.Errorf("Expected one unbalanced quotes warning, got %v", warnings)
	}

	statement, warnings, err = Parse("INSERT INTO restaurants (name, avg_rating) VALUES ('Joe's Pizza', '4.5')")
	if err != nil {
		t.Fatalf("Failed to parse statement: %v", err)
	}
	document := statement.(InsertStatement).Document()
	expected := core.Document{"name": "Joe's Pizza", "avg_rating": "4.5"}
	if !reflect.DeepEqual(document, expected) {
		t.Errorf("Expected %v, got %v", expected, document)
	}
	if len(warnings) != 1 {
		t.Errorf("Expected one warning, got %v", warnings)
	}

	statement, _, err = Parse("UPDATE restaurants SET (name='Joe's Diner', avg_rating=4.5) WHERE name='Joe's Pizza'")
	if err != nil {
		t.Fatalf("Failed to parse statement: %v", err)
	}
	update := statement.(UpdateStatement)
	set := update.Set()
	if set["name"] != core.StringLiteral("Joe's Diner") || set["avg_rating"] != core.FloatLiteral(4.5) {
		t.Errorf("Unexpected assignments %v", set)
	}
	if update.Where["name"].Operand != core.StringLiteral("Joe's Pizza") {
		t.Errorf("Unexpected where %v", update.Where)
	}
}

func TestParserBareWhereIsMalformed(t *testing.T) {
	for _, query := range []string{
		"SELECT * FROM restaurants WHERE",
		"UPDATE restaurants SET (avg_rating=4) WHERE   ",
		"DELETE FROM restaurants WHERE;",
	} {
		_, _, err := Parse(query)
		if !errors.Is(err, ErrMalformedStatement) {
			t.Errorf("%q: expected malformed statement, got %v", query, err)
		}
	}
}
