package sql

import (
	"strings"

	"github.com/nickyhof/DocQL/core"
)

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	UpdateStatementType
	DeleteStatementType
)

func (t StatementType) String() string {
	switch t {
	case SelectStatementType:
		return "SELECT"
	case InsertStatementType:
		return "INSERT"
	case UpdateStatementType:
		return "UPDATE"
	case DeleteStatementType:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

func (t StatementType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Statement is one parsed query. Statements are not modified after parsing.
type Statement interface {
	Type() StatementType
	Target() string
}

type SelectStatement struct {
	Collection string         `json:"collection"`
	Projection string         `json:"projection"`
	Fields     []string       `json:"fields,omitempty"` // nil selects every field
	Where      core.Predicate `json:"where"`
}

type InsertStatement struct {
	Collection string   `json:"collection"`
	Fields     []string `json:"fields"`
	Values     []string `json:"values"`
}

type UpdateStatement struct {
	Collection  string         `json:"collection"`
	Assignments []Assignment   `json:"assignments"`
	Where       core.Predicate `json:"where"`
}

type Assignment struct {
	Field string       `json:"field"`
	Value core.Literal `json:"value"`
}

type DeleteStatement struct {
	Collection string         `json:"collection"`
	Where      core.Predicate `json:"where"`
}

func (s SelectStatement) Type() StatementType {
	return SelectStatementType
}

func (s InsertStatement) Type() StatementType {
	return InsertStatementType
}

func (s UpdateStatement) Type() StatementType {
	return UpdateStatementType
}

func (s DeleteStatement) Type() StatementType {
	return DeleteStatementType
}

func (s SelectStatement) Target() string { return s.Collection }
func (s InsertStatement) Target() string { return s.Collection }
func (s UpdateStatement) Target() string { return s.Collection }
func (s DeleteStatement) Target() string { return s.Collection }

// Document zips the field and value lists. Values stay strings.
func (s InsertStatement) Document() core.Document {
	document := make(core.Document, len(s.Fields))
	for i, field := range s.Fields {
		document[field] = s.Values[i]
	}
	return document
}

// Set returns the assignments keyed by field; a repeated field keeps its last value.
func (s UpdateStatement) Set() map[string]core.Literal {
	set := make(map[string]core.Literal, len(s.Assignments))
	for _, assignment := range s.Assignments {
		set[assignment.Field] = assignment.Value
	}
	return set
}

type Parser struct {
	sql      string
	lexer    *Lexer
	current  Token
	warnings []Warning
}

func NewParser(sql string) *Parser {
	sql = strings.TrimSpace(sql)
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}
	return &Parser{sql: sql, lexer: NewLexer(sql)}
}

// Parse is shorthand for NewParser(query).Parse() that also returns the
// parser warnings.
func Parse(query string) (Statement, []Warning, error) {
	parser := NewParser(query)
	statement, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}
	return statement, parser.Warnings(), nil
}

// Warnings returns what the last Parse call skipped or split without quote
// handling.
func (parser *Parser) Warnings() []Warning {
	return parser.warnings
}

func (parser *Parser) next() Token {
	parser.current = parser.lexer.NextToken()
	return parser.current
}

func (parser *Parser) Parse() (Statement, error) {
	fields := strings.Fields(parser.sql)
	if len(fields) == 0 {
		return nil, &UnsupportedOperationError{}
	}

	switch toUpper(fields[0]) {
	case "SELECT":
		parser.next()
		return ParseSelect(parser)
	case "INSERT":
		parser.next()
		return ParseInsert(parser)
	case "UPDATE":
		parser.next()
		return ParseUpdate(parser)
	case "DELETE":
		parser.next()
		return ParseDelete(parser)
	default:
		return nil, &UnsupportedOperationError{Token: fields[0]}
	}
}

func ParseSelect(parser *Parser) (Statement, error) {
	var selectStatement SelectStatement
	keyword := parser.current

	for {
		token := parser.next()
		if token.Type == EOF {
			return nil, malformed(SelectStatementType, "expected FROM <collection>")
		}
		if token.Type == From {
			break
		}
	}

	selectStatement.Projection = strings.TrimSpace(parser.sql[keyword.End:parser.current.Pos])
	if selectStatement.Projection == "" {
		return nil, malformed(SelectStatementType, "expected field list before FROM")
	}
	selectStatement.Fields = projectionFields(selectStatement.Projection)

	collection, ok := collectionName(parser.next())
	if !ok {
		return nil, malformed(SelectStatementType, "expected collection name after FROM")
	}
	selectStatement.Collection = collection

	where, err := parseWhereTail(parser, SelectStatementType)
	if err != nil {
		return nil, err
	}
	selectStatement.Where = where

	return selectStatement, nil
}

func ParseInsert(parser *Parser) (Statement, error) {
	var insertStatement InsertStatement

	if parser.next().Type != Into {
		return nil, malformed(InsertStatementType, "expected INTO after INSERT")
	}

	collection, ok := collectionName(parser.next())
	if !ok {
		return nil, malformed(InsertStatementType, "expected collection name after INSERT INTO")
	}
	insertStatement.Collection = collection

	fieldList, err := parseList(parser, InsertStatementType, "field list")
	if err != nil {
		return nil, err
	}

	if parser.next().Type != Values {
		return nil, malformed(InsertStatementType, "expected VALUES after field list")
	}

	valueList, err := parseList(parser, InsertStatementType, "value list")
	if err != nil {
		return nil, err
	}

	if token := parser.next(); token.Type != EOF {
		return nil, malformed(InsertStatementType, "unexpected %q after value list", token.Value)
	}

	fields, plain := splitList(fieldList, ',')
	parser.warnUnbalanced(fieldList, plain)
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, malformed(InsertStatementType, "empty field name in field list")
		}
		insertStatement.Fields = append(insertStatement.Fields, field)
	}

	values, plain := splitList(valueList, ',')
	parser.warnUnbalanced(valueList, plain)
	for _, value := range values {
		insertStatement.Values = append(insertStatement.Values, StripQuotes(strings.TrimSpace(value)))
	}

	if len(insertStatement.Fields) != len(insertStatement.Values) {
		return nil, malformed(InsertStatementType, "%d fields but %d values",
			len(insertStatement.Fields), len(insertStatement.Values))
	}

	return insertStatement, nil
}

func ParseUpdate(parser *Parser) (Statement, error) {
	var updateStatement UpdateStatement

	collection, ok := collectionName(parser.next())
	if !ok {
		return nil, malformed(UpdateStatementType, "expected collection name after UPDATE")
	}
	updateStatement.Collection = collection

	if parser.next().Type != Set {
		return nil, malformed(UpdateStatementType, "expected SET after collection name")
	}

	setList, err := parseList(parser, UpdateStatementType, "assignment list")
	if err != nil {
		return nil, err
	}

	items, plain := splitList(setList, ',')
	parser.warnUnbalanced(setList, plain)
	for _, item := range items {
		index := indexSymbol(item, "=")
		if index < 0 {
			return nil, malformed(UpdateStatementType, "expected field=value, got %q", strings.TrimSpace(item))
		}
		field := strings.TrimSpace(item[:index])
		if field == "" {
			return nil, malformed(UpdateStatementType, "empty field name in assignment %q", strings.TrimSpace(item))
		}
		value := StripQuotes(strings.TrimSpace(item[index+1:]))
		updateStatement.Assignments = append(updateStatement.Assignments, Assignment{
			Field: field,
			Value: Coerce(value),
		})
	}

	where, err := parseWhereTail(parser, UpdateStatementType)
	if err != nil {
		return nil, err
	}
	updateStatement.Where = where

	return updateStatement, nil
}

func ParseDelete(parser *Parser) (Statement, error) {
	var deleteStatement DeleteStatement

	if parser.next().Type != From {
		return nil, malformed(DeleteStatementType, "expected FROM after DELETE")
	}

	collection, ok := collectionName(parser.next())
	if !ok {
		return nil, malformed(DeleteStatementType, "expected collection name after FROM")
	}
	deleteStatement.Collection = collection

	where, err := parseWhereTail(parser, DeleteStatementType)
	if err != nil {
		return nil, err
	}
	deleteStatement.Where = where

	return deleteStatement, nil
}

// parseList consumes "( ... )" and returns the raw text between the
// parentheses. Parentheses inside quoted values do not close the list. When
// an unpaired quote swallows the closing parenthesis, the list ends at the
// first ')' instead.
func parseList(parser *Parser, kind StatementType, what string) (string, error) {
	open := parser.next()
	if open.Type != ParenOpen {
		return "", malformed(kind, "expected '(' to open %s", what)
	}
	for {
		token := parser.next()
		switch token.Type {
		case ParenClose:
			return parser.sql[open.End:token.Pos], nil
		case EOF:
			end := strings.IndexByte(parser.sql[open.End:], ')')
			if end < 0 {
				return "", malformed(kind, "unterminated %s", what)
			}
			parser.lexer.pos = open.End + end + 1
			return parser.sql[open.End : open.End+end], nil
		}
	}
}

func (parser *Parser) warnUnbalanced(text string, plain bool) {
	if plain {
		parser.warnings = append(parser.warnings, Warning{Segment: strings.TrimSpace(text), Reason: unbalancedQuotes})
	}
}

// parseWhereTail reads the optional WHERE clause that ends a statement. The
// clause text is taken verbatim up to the end of the statement.
func parseWhereTail(parser *Parser, kind StatementType) (core.Predicate, error) {
	token := parser.next()
	switch token.Type {
	case EOF:
		return core.Predicate{}, nil
	case Where:
		clause := parser.sql[token.End:]
		if strings.TrimSpace(clause) == "" {
			return nil, malformed(kind, "empty WHERE clause")
		}
		predicate, warnings := TranslateWhere(clause)
		parser.warnings = append(parser.warnings, warnings...)
		return predicate, nil
	default:
		return nil, malformed(kind, "unexpected %q after collection name", token.Value)
	}
}

// collectionName accepts any bare word as a collection name, keywords included.
func collectionName(token Token) (string, bool) {
	switch token.Type {
	case Identifier, Int, Select, From, Where, Insert, Into, Values, Update, Set, Delete:
		return token.Value, true
	}
	return "", false
}

func projectionFields(projection string) []string {
	var fields []string
	for _, field := range splitUnquoted(projection, ',') {
		field = strings.TrimSpace(field)
		if field == "*" {
			return nil
		}
		if field != "" {
			fields = append(fields, field)
		}
	}
	return fields
}
