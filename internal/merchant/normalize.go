// Package merchant resolves raw merchant strings to a stable display
// identity and spending category through a user-editable alias table.
package merchant

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Normalize derives the canonical join key from a raw merchant string:
// case-folded, whitespace-collapsed, trimmed. It is a pure function;
// the same raw text always normalizes identically.
func Normalize(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// FormatDisplayName formats a merchant key for display when no alias
// exists: title case long words, upper-case short ones.
func FormatDisplayName(raw string) string {
	words := strings.Fields(raw)
	for i, word := range words {
		if len(word) > 2 {
			words[i] = titleCaser.String(strings.ToLower(word))
		} else {
			words[i] = strings.ToUpper(word)
		}
	}

	result := strings.Join(words, " ")
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}
