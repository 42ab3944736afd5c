// Package email holds the helpers used to turn free-form email input into the
// canonical correlation key shared by every directory source.
package email

import (
	"strings"
	"unicode"
)

// Canonical lower-cases and trims an address. Empty input stays empty.
func Canonical(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// LooksLikeEmail reports whether value has a non-empty local part and a dotted domain.
func LooksLikeEmail(value string) bool {
	value = strings.TrimSpace(value)
	at := strings.IndexByte(value, '@')
	if at <= 0 || at != strings.LastIndexByte(value, '@') {
		return false
	}
	domain := value[at+1:]
	if strings.ContainsAny(value, " \t") {
		return false
	}
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// LocalPart returns the part before '@', or the whole value when there is none.
func LocalPart(address string) string {
	if at := strings.IndexByte(address, '@'); at > 0 {
		return address[:at]
	}
	return address
}

// DeriveDisplayName builds a "First Last" preview from an address such as
// jane.q.doe@example.com. Used when a source has an email but no display name.
func DeriveDisplayName(address string) string {
	parts := strings.FieldsFunc(LocalPart(address), func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return ""
	}

	first := capitalize(parts[0])
	if len(parts) == 1 {
		return first
	}
	return first + " " + capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
