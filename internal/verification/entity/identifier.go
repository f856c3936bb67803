package entity

import "strings"

// IdentifierType classifies a submitted identifier.
type IdentifierType int8

const (
	IdentifierUnknown IdentifierType = iota
	IdentifierEmail
	IdentifierPhone
)

// String returns the string representation of the identifier type.
func (t IdentifierType) String() string {
	switch t {
	case IdentifierEmail:
		return "email"
	case IdentifierPhone:
		return "phone"
	default:
		return "unknown"
	}
}

// Identifier is a classified, canonicalized contact address.
//
// For phones the canonical form is the 13-digit 880-prefixed mobile number;
// for emails it is the lowercased address. Raw preserves the submitted
// spelling because historical issuance may have hashed it verbatim.
type Identifier struct {
	Type      IdentifierType
	Canonical string
	Raw       string
}

// Mobile operator prefixes assigned in Bangladesh. 11 is the retired Citycell
// range, still present on legacy rows.
var allowedOperatorPrefixes = map[string]struct{}{
	"11": {}, "13": {}, "14": {}, "15": {},
	"16": {}, "17": {}, "18": {}, "19": {},
}

// NormalizeIdentifier classifies raw input as an email or a Bangladeshi
// mobile number and produces its canonical form. The second return value is
// false when the input fits neither shape.
func NormalizeIdentifier(raw string) (Identifier, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier{}, false
	}

	if strings.Contains(trimmed, "@") {
		return normalizeEmail(trimmed)
	}

	return normalizePhone(trimmed)
}

func normalizeEmail(raw string) (Identifier, bool) {
	at := strings.LastIndex(raw, "@")
	local, domain := raw[:at], raw[at+1:]
	if local == "" || !domainLike(domain) {
		return Identifier{}, false
	}

	return Identifier{
		Type:      IdentifierEmail,
		Canonical: strings.ToLower(raw),
		Raw:       raw,
	}, true
}

func domainLike(domain string) bool {
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	// TLD of at least two letters.
	if len(domain)-dot-1 < 2 {
		return false
	}
	return !strings.ContainsAny(domain, " \t")
}

// normalizePhone applies the repair rules, in order, that reconcile every
// historical spelling of a Bangladeshi mobile number:
//
//	01712345678, +8801712345678, 008801712345678, 88001712345678,
//	08801712345678, 1712345678
//
// all canonicalize to 8801712345678.
func normalizePhone(raw string) (Identifier, bool) {
	s := keepDigitsAndLeadingPlus(raw)

	// International call prefix.
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	// "+0..." is a mistyped local number, not an international one.
	if strings.HasPrefix(s, "+0") {
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "+")

	switch {
	// Legacy double-country-code rows: 8800 + the 10-digit trunk.
	case len(s) == 14 && strings.HasPrefix(s, "8800"):
		s = "880" + s[4:]
	// Trunk zero written before the country code.
	case len(s) == 14 && strings.HasPrefix(s, "0880"):
		s = "880" + s[4:]
	case len(s) == 15 && strings.HasPrefix(s, "00880"):
		s = "880" + s[5:]
	// Plain local spelling.
	case len(s) == 11 && s[0] == '0':
		s = "880" + s[1:]
	// Bare trunk without the leading zero.
	case len(s) == 10 && s[0] == '1':
		s = "880" + s
	}

	if !canonicalBDMobile(s) {
		return Identifier{}, false
	}

	return Identifier{
		Type:      IdentifierPhone,
		Canonical: s,
		Raw:       raw,
	}, true
}

func keepDigitsAndLeadingPlus(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func canonicalBDMobile(s string) bool {
	if len(s) != 13 || !strings.HasPrefix(s, "8801") {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	_, ok := allowedOperatorPrefixes[s[3:5]]
	return ok
}
