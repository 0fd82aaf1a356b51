package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nickyhof/DocQL/core"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		token string
		want  core.Literal
	}{
		{"4.5", core.FloatLiteral(4.5)},
		{"-0.25", core.FloatLiteral(-0.25)},
		{"5.", core.FloatLiteral(5)},
		{".5", core.FloatLiteral(0.5)},
		{"42", core.IntegerLiteral(42)},
		{"-7", core.IntegerLiteral(-7)},
		{"+7", core.IntegerLiteral(7)},
		{"0", core.IntegerLiteral(0)},
		{"abc123", core.StringLiteral("abc123")},
		{"'Cafe X'", core.StringLiteral("Cafe X")},
		{`"Cafe X"`, core.StringLiteral("Cafe X")},
		{`"3.5 stars"`, core.StringLiteral("3.5 stars")},
		{"3.5 stars", core.StringLiteral("3.5 stars")},
		{"'123'", core.StringLiteral("123")},
		{"'mismatched\"", core.StringLiteral("'mismatched\"")},
		{"''", core.StringLiteral("")},
		{"", core.StringLiteral("")},
		{"99999999999999999999", core.StringLiteral("99999999999999999999")},
		{"1.2.3", core.StringLiteral("1.2.3")},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.token))
		})
	}
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "x", StripQuotes("'x'"))
	assert.Equal(t, "x", StripQuotes(`"x"`))
	assert.Equal(t, "'x'", StripQuotes(`"'x'"`))
	assert.Equal(t, "'", StripQuotes("'"))
	assert.Equal(t, "x'", StripQuotes("x'"))
	assert.Equal(t, "plain", StripQuotes("plain"))
}
