package scoring

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases s, removes every rune that is not a letter, digit,
// combining mark, underscore or whitespace, and splits the rest on runs of
// whitespace. Empty tokens never appear in the result.
func Tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case r == '_', unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, s)
	return strings.Fields(cleaned)
}
