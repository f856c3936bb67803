package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts a string to snake_case (initialism-safe).
//
// Non-alphanumeric runes (spaces, dashes, dots) are treated as word
// separators, so "ChangePassword", "change-password" and "change password"
// all produce "change_password".
func ToLowerSnake(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(strings.TrimSpace(s))
	lastUnderscore := true // suppress a leading underscore

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
			continue
		}

		// Add underscore at case boundaries:
		// 1) lower/digit -> upper  (e.g., userID -> user_ID)
		// 2) acronym -> word       (e.g., HTTPServer -> HTTP_Server)
		if i > 0 && unicode.IsUpper(r) && !lastUnderscore {
			prev := runes[i-1]
			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}

			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteRune('_')
			} else if unicode.IsUpper(prev) && next != 0 && unicode.IsLower(next) {
				b.WriteRune('_')
			}
		}

		b.WriteRune(unicode.ToLower(r))
		lastUnderscore = false
	}

	return strings.TrimSuffix(b.String(), "_")
}
