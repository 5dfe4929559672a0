// Package strcase converts Go identifiers into snake_case.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts an identifier such as "NewPassword" or "UserID" into
// "new_password" or "user_id". Runs of capitals are kept as one word.
func ToLowerSnake(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// word starts after a lower/digit, or at the last capital of an acronym
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
