// Package tokenizer splits text into the lowercase word tokens shared by the
// lexical index, the question classifier, and the entity extractor. All three
// must agree on token boundaries, so this is the only tokenizer in the
// service.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize lowercases the input and splits it on every non-alphanumeric rune.
// No stopword removal and no stemming: the index ranks raw surface tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
