// Package names derives and uniquifies every identifier the generator emits:
// type names, field and parameter names, enum and sum variants, operation
// ids. User overrides from the configuration always win over derivation.
package names

import (
	"strings"
	"unicode"
)

// splitWords breaks an arbitrary string into words. Non-identifier characters
// (':', '-', '/', '.', '_', whitespace, braces) act as separators, and
// lower-to-upper camel boundaries start a new word.
func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	runes := []rune(s)
	var prev rune
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			boundary := current.Len() > 0 && unicode.IsUpper(r) &&
				(unicode.IsLower(prev) || unicode.IsDigit(prev) ||
					(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])))
			if boundary {
				flush()
			}
			current.WriteRune(r)
			prev = r
		default:
			flush()
			prev = 0
		}
	}
	flush()
	return words
}

// ToUpperCamel converts any string to UpperCamelCase.
func ToUpperCamel(s string) string {
	var b strings.Builder
	for _, w := range splitWords(s) {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(strings.ToLower(w[1:]))
	}
	return b.String()
}

// ToSnake converts any string to snake_case.
func ToSnake(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// Pluralize returns a naive English plural of the last word, used when an
// anonymous array type is named after the field that holds it.
func Pluralize(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "s"):
		// Already plural-looking; leave it alone.
		return s
	case strings.HasSuffix(s, "x"), strings.HasSuffix(s, "z"),
		strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	case strings.HasSuffix(s, "y") && len(s) > 1 && !isVowel(rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
