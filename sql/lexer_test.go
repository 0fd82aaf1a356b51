package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexer(t *testing.T) {
	tokens := tokenize(`select name FROM restaurants WHERE avg_rating >= 4.5, "x" 'y' ; != <`)

	types := make([]TokenType, len(tokens))
	for i, token := range tokens {
		types[i] = token.Type
	}

	assert.Equal(t, []TokenType{
		Select, Identifier, From, Identifier, Where, Identifier, GreaterThanOrEqual, Float,
		Comma, String, String, Semicolon, NotEquals, LessThan, EOF,
	}, types)
	assert.Equal(t, "x", tokens[9].Value)
	assert.Equal(t, "y", tokens[10].Value)
}

func TestLexerPositions(t *testing.T) {
	source := "UPDATE restaurants SET ('a', 4)"
	lexer := NewLexer(source)

	update := lexer.NextToken()
	assert.Equal(t, 0, update.Pos)
	assert.Equal(t, 6, update.End)

	collection := lexer.NextToken()
	assert.Equal(t, "restaurants", source[collection.Pos:collection.End])

	lexer.NextToken() // SET
	lexer.NextToken() // (
	quoted := lexer.NextToken()
	assert.Equal(t, String, quoted.Type)
	assert.Equal(t, "'a'", source[quoted.Pos:quoted.End])

	peek := lexer.PeekToken()
	assert.Equal(t, Comma, peek.Type)
	assert.Equal(t, Comma, lexer.NextToken().Type)
}

func TestLexerUnterminatedString(t *testing.T) {
	tokens := tokenize("name = 'open")
	assert.Equal(t, Unknown, tokens[2].Type)
	assert.Equal(t, "open", tokens[2].Value)
	assert.Equal(t, EOF, tokens[3].Type)
}
