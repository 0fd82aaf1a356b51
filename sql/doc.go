// Package sql parses the SQL-like statements accepted by DocQL and translates
// their WHERE clauses into document-store predicates.
//
// Four statement shapes are recognised. Keywords are case-insensitive;
// collection names, field names and literals keep their case.
//
//	SELECT <fields|*> FROM <collection> [WHERE <conditions>]
//	INSERT INTO <collection> (<field>, ...) VALUES (<value>, ...)
//	UPDATE <collection> SET (<field>=<value>, ...) [WHERE <conditions>]
//	DELETE FROM <collection> [WHERE <conditions>]
//
// Conditions are simple comparisons (=, !=, >, >=, <, <=) joined by the
// upper-case keyword AND. There is no OR and no grouping.
//
// # Parser Usage
//
//	parser := sql.NewParser("SELECT * FROM restaurants WHERE avg_rating>=4.5")
//	statement, err := parser.Parse()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, warning := range parser.Warnings() {
//	    log.Println(warning)
//	}
//
// # Literals
//
// WHERE operands and UPDATE values are coerced with Coerce: a token with a
// '.' becomes a float when it parses as one, other tokens become integers
// when they parse as one, and everything else is a string with one pair of
// surrounding quotes removed. INSERT values are only unquoted and always stay
// strings.
//
// # Errors
//
// Parse returns *UnsupportedOperationError for an unknown leading keyword and
// *MalformedStatementError when the clauses do not fit the statement's shape.
// Both match their sentinel (ErrUnsupportedOperation, ErrMalformedStatement)
// with errors.Is.
package sql
