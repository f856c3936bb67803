package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// Scheme tests a candidate message against a stored hash value.
//
// Implementations must be constant time for any comparison against the stored
// value and must fail closed: a stored value the scheme cannot parse is a
// non-match, never an error.
type Scheme interface {
	// Name identifies the scheme for diagnostics.
	Name() string
	// Matches reports whether message hashes to stored under this scheme.
	Matches(stored, message string) bool
}

// Schemes returns the full ordered list of supported hash schemes for the
// given HMAC secret: bcrypt, HMAC-SHA256 (hex, base64, base64url), then raw
// legacy equality.
func Schemes(secret string) []Scheme {
	key := []byte(secret)
	return []Scheme{
		bcryptScheme{},
		hmacScheme{name: "hmac-hex", key: key, encode: hex.EncodeToString},
		hmacScheme{name: "hmac-base64", key: key, encode: base64.StdEncoding.EncodeToString},
		hmacScheme{name: "hmac-base64url", key: key, encode: base64.RawURLEncoding.EncodeToString},
		rawScheme{},
	}
}

// MatchAny tries each scheme in order and returns the name of the first one
// that matches.
func MatchAny(schemes []Scheme, stored, message string) (string, bool) {
	for _, s := range schemes {
		if s.Matches(stored, message) {
			return s.Name(), true
		}
	}
	return "", false
}

var reBcrypt = regexp.MustCompile(`^\$2[aby]?\$\d{2}\$[./A-Za-z0-9]{53}$`)

type bcryptScheme struct{}

func (bcryptScheme) Name() string { return "bcrypt" }

func (bcryptScheme) Matches(stored, message string) bool {
	if !reBcrypt.MatchString(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(message)) == nil
}

type hmacScheme struct {
	name   string
	key    []byte
	encode func([]byte) string
}

func (s hmacScheme) Name() string { return s.name }

func (s hmacScheme) Matches(stored, message string) bool {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(message))
	expected := s.encode(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(stored), []byte(expected)) == 1
}

// rawScheme matches legacy/dev rows where the issuance stored the message
// unhashed.
type rawScheme struct{}

func (rawScheme) Name() string { return "raw" }

func (rawScheme) Matches(stored, message string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(message)) == 1
}
