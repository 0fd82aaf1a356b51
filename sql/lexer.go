package sql

import "strings"

// Token is a lexical unit of a statement. Pos and End are byte offsets into
// the source so that clause text can be sliced out verbatim.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
	End   int
}

type TokenType int

const (
	Identifier TokenType = iota
	Wildcard
	String
	Int
	Float
	Comma
	Semicolon
	ParenOpen
	ParenClose
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Select
	From
	Where
	Insert
	Into
	Values
	Update
	Set
	Delete
	EOF
	Unknown
)

var tokenNames = [...]string{
	Identifier:         "Identifier",
	Wildcard:           "Wildcard",
	String:             "String",
	Int:                "Int",
	Float:              "Float",
	Comma:              "Comma",
	Semicolon:          "Semicolon",
	ParenOpen:          "ParenOpen",
	ParenClose:         "ParenClose",
	Equals:             "Equals",
	NotEquals:          "NotEquals",
	LessThan:           "LessThan",
	GreaterThan:        "GreaterThan",
	LessThanOrEqual:    "LessThanOrEqual",
	GreaterThanOrEqual: "GreaterThanOrEqual",
	Select:             "Select",
	From:               "From",
	Where:              "Where",
	Insert:             "Insert",
	Into:               "Into",
	Values:             "Values",
	Update:             "Update",
	Set:                "Set",
	Delete:             "Delete",
	EOF:                "EOF",
	Unknown:            "Unknown",
}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenNames) {
		return "Unknown"
	}
	return tokenNames[t]
}

func (token Token) String() string {
	switch token.Type {
	case Identifier, String, Int, Float, Unknown:
		return token.Type.String() + "(" + token.Value + ")"
	}
	return token.Type.String()
}

var keywords = map[string]TokenType{
	"SELECT": Select,
	"FROM":   From,
	"WHERE":  Where,
	"INSERT": Insert,
	"INTO":   Into,
	"VALUES": Values,
	"UPDATE": Update,
	"SET":    Set,
	"DELETE": Delete,
}

var punctuation = map[byte]TokenType{
	',': Comma,
	';': Semicolon,
	'(': ParenOpen,
	')': ParenClose,
	'*': Wildcard,
}

var comparisons = map[string]TokenType{
	"=":  Equals,
	"!=": NotEquals,
	"<":  LessThan,
	">":  GreaterThan,
	"<=": LessThanOrEqual,
	">=": GreaterThanOrEqual,
}

// Lexer splits a statement into tokens. Keywords are recognised
// case-insensitively; every other token keeps its source text.
type Lexer struct {
	sql string
	pos int
}

func NewLexer(sql string) *Lexer {
	return &Lexer{sql: sql}
}

func (lexer *Lexer) NextToken() Token {
	for lexer.pos < len(lexer.sql) && isSpace(lexer.sql[lexer.pos]) {
		lexer.pos++
	}

	start := lexer.pos
	token := lexer.scan()
	token.Pos = start
	token.End = lexer.pos
	return token
}

// PeekToken returns the next token without consuming it.
func (lexer *Lexer) PeekToken() Token {
	saved := lexer.pos
	token := lexer.NextToken()
	lexer.pos = saved
	return token
}

func (lexer *Lexer) scan() Token {
	if lexer.pos >= len(lexer.sql) {
		return Token{Type: EOF}
	}

	ch := lexer.sql[lexer.pos]
	if kind, ok := punctuation[ch]; ok {
		lexer.pos++
		return Token{Type: kind, Value: string(ch)}
	}

	switch {
	case ch == '\'' || ch == '"':
		return lexer.scanString(ch)
	case isOperator(ch):
		symbol := lexer.take(isOperator)
		if kind, ok := comparisons[symbol]; ok {
			return Token{Type: kind, Value: symbol}
		}
		return Token{Type: Unknown, Value: symbol}
	case isDigit(ch):
		digits := lexer.take(isDigit)
		if lexer.pos < len(lexer.sql) && lexer.sql[lexer.pos] == '.' {
			lexer.pos++
			return Token{Type: Float, Value: digits + "." + lexer.take(isDigit)}
		}
		return Token{Type: Int, Value: digits}
	case isIdentifierChar(ch):
		word := lexer.take(isIdentifierChar)
		if kind, ok := keywords[toUpper(word)]; ok {
			return Token{Type: kind, Value: word}
		}
		return Token{Type: Identifier, Value: word}
	}

	lexer.pos++
	return Token{Type: Unknown, Value: string(ch)}
}

// scanString reads a quoted string. The token value excludes the quotes; an
// unterminated string runs to the end of input and is reported as Unknown.
func (lexer *Lexer) scanString(quote byte) Token {
	lexer.pos++
	end := strings.IndexByte(lexer.sql[lexer.pos:], quote)
	if end < 0 {
		value := lexer.sql[lexer.pos:]
		lexer.pos = len(lexer.sql)
		return Token{Type: Unknown, Value: value}
	}

	value := lexer.sql[lexer.pos : lexer.pos+end]
	lexer.pos += end + 1
	return Token{Type: String, Value: value}
}

func (lexer *Lexer) take(accept func(byte) bool) string {
	start := lexer.pos
	for lexer.pos < len(lexer.sql) && accept(lexer.sql[lexer.pos]) {
		lexer.pos++
	}
	return lexer.sql[start:lexer.pos]
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isIdentifierChar(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

// toUpper is strings.ToUpper for ASCII keywords without allocating when the
// word is already upper case.
func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if 'a' <= s[i] && s[i] <= 'z' {
			return strings.ToUpper(s)
		}
	}
	return s
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token
	for {
		token := lexer.NextToken()
		tokens = append(tokens, token)
		if token.Type == EOF {
			return tokens
		}
	}
}
