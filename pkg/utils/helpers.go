package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	nonDigit      = regexp.MustCompile(`[^0-9]`)
	nonSlug       = regexp.MustCompile(`[^a-z0-9]+`)
	parenthetical = regexp.MustCompile(`\(([^)]*)\)`)
)

// Slugify converts an arbitrary string into a lowercase hyphenated slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DigitsOnly strips every non-digit character from s.
func DigitsOnly(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// TitleCase upper-cases the first letter of every word in s.
func TitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// StripParentheticals removes every parenthesized substring from s and
// returns the cleaned string plus the extracted inner contents in order.
func StripParentheticals(s string) (string, []string) {
	var inner []string
	for _, m := range parenthetical.FindAllStringSubmatch(s, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			inner = append(inner, v)
		}
	}
	cleaned := parenthetical.ReplaceAllString(s, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return cleaned, inner
}
