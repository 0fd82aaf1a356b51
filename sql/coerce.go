package sql

import (
	"strconv"
	"strings"

	"github.com/nickyhof/DocQL/core"
)

// Coerce converts a literal token into a typed literal. A token containing a
// '.' is tried as a float; any other token is tried as an integer. Tokens
// that parse as neither become strings with one pair of matching quotes
// removed.
func Coerce(token string) core.Literal {
	if strings.Contains(token, ".") {
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return core.FloatLiteral(f)
		}
	} else if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return core.IntegerLiteral(i)
	}
	return core.StringLiteral(StripQuotes(token))
}

// StripQuotes removes a single pair of matching surrounding quote characters.
func StripQuotes(token string) string {
	if len(token) >= 2 {
		first, last := token[0], token[len(token)-1]
		if first == last && (first == '\'' || first == '"') {
			return token[1 : len(token)-1]
		}
	}
	return token
}
