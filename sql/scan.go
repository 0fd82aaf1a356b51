package sql

import "strings"

// quoteScanner walks a string byte by byte and tracks whether the current
// byte sits inside a single- or double-quoted run.
type quoteScanner struct {
	quote byte
}

// step reports whether ch is outside quotes, updating the quote state.
// Quote characters themselves are never reported as outside.
func (scanner *quoteScanner) step(ch byte) bool {
	if scanner.quote != 0 {
		if ch == scanner.quote {
			scanner.quote = 0
		}
		return false
	}
	if ch == '\'' || ch == '"' {
		scanner.quote = ch
		return false
	}
	return true
}

// unbalancedQuotes is the warning reason for text whose quotes do not pair
// up, as in 'Joe's Pizza'. Such text is split on every separator.
const unbalancedQuotes = "unbalanced quotes, split without quote handling"

// quotesBalanced reports whether every quote opened in s is closed again.
func quotesBalanced(s string) bool {
	var scanner quoteScanner
	for i := 0; i < len(s); i++ {
		scanner.step(s[i])
	}
	return scanner.quote == 0
}

// indexSymbol finds substr outside quotes, or anywhere when the quotes in s
// do not pair up.
func indexSymbol(s, substr string) int {
	if quotesBalanced(s) {
		return indexUnquoted(s, substr)
	}
	return strings.Index(s, substr)
}

// splitList splits s around sep outside quotes. When the quotes in s do not
// pair up it splits on every sep and reports plain.
func splitList(s string, sep byte) (parts []string, plain bool) {
	if quotesBalanced(s) {
		return splitUnquoted(s, sep), false
	}
	return strings.Split(s, string(sep)), true
}

// indexUnquoted is strings.Index restricted to matches that start outside
// quoted text.
func indexUnquoted(s, substr string) int {
	var scanner quoteScanner
	for i := 0; i < len(s); i++ {
		if scanner.step(s[i]) && strings.HasPrefix(s[i:], substr) {
			return i
		}
	}
	return -1
}

// splitUnquoted splits s around every sep byte found outside quotes.
func splitUnquoted(s string, sep byte) []string {
	var parts []string
	var scanner quoteScanner
	start := 0
	for i := 0; i < len(s); i++ {
		if scanner.step(s[i]) && s[i] == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// splitConjunction splits a WHERE clause around the keyword AND. The keyword
// is matched case-sensitively and as a whole word. It is never matched inside
// quotes unless the quotes do not pair up, in which case plain is true.
func splitConjunction(clause string) (parts []string, plain bool) {
	const keyword = "AND"
	plain = !quotesBalanced(clause)
	var scanner quoteScanner
	start := 0
	for i := 0; i < len(clause); i++ {
		if !plain && !scanner.step(clause[i]) {
			continue
		}
		if !strings.HasPrefix(clause[i:], keyword) {
			continue
		}
		end := i + len(keyword)
		if i > 0 && isIdentifierChar(clause[i-1]) {
			continue
		}
		if end < len(clause) && isIdentifierChar(clause[end]) {
			continue
		}
		parts = append(parts, clause[start:i])
		start = end
		i = end - 1
	}
	return append(parts, clause[start:]), plain
}

// stripComments removes "--" line comments that start outside quotes.
func stripComments(script string) string {
	plain := !quotesBalanced(script)
	var out strings.Builder
	var scanner quoteScanner
	for i := 0; i < len(script); i++ {
		outside := scanner.step(script[i]) || plain
		if outside && strings.HasPrefix(script[i:], "--") {
			for i < len(script) && script[i] != '\n' {
				i++
			}
			if i < len(script) {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(script[i])
	}
	return out.String()
}

// SplitStatements splits a script into statements on semicolons that are not
// inside quotes. "--" comments and blank statements are dropped. A script
// with unpaired quotes is split on every semicolon.
func SplitStatements(script string) []string {
	var statements []string
	parts, _ := splitList(stripComments(script), ';')
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}
