package sessiontoken

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the cookie carrying the verification session token.
	CookieName = "otp_session"

	// FormatVersion is stamped into the token header so the wire format can
	// evolve without breaking downstream validators.
	FormatVersion = 1

	// minTTL is the floor applied to the token lifetime.
	minTTL = time.Second
)

var (
	// ErrSecretRequired is returned when the signing secret is empty.
	ErrSecretRequired = errors.New("sessiontoken: signing secret is required")

	// ErrInvalidSigningMethod is returned when the signing method is not supported.
	ErrInvalidSigningMethod = errors.New("sessiontoken: invalid signing method")

	// ErrTokenExpired is returned when the token has expired.
	ErrTokenExpired = errors.New("sessiontoken: token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("sessiontoken: invalid token")
)

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// Claims is the verification-session payload.
type Claims struct {
	libJWT.RegisteredClaims

	// UserID is the verified user identifier.
	UserID int64 `json:"uid,string"`
	// Identifier is the canonical email or phone that was verified.
	Identifier string `json:"idn"`
	// Purpose is the effective purpose the code authorized.
	Purpose string `json:"pur"`
}

// Config defines the inputs for building an Issuer.
type Config struct {
	// Secret is the HMAC signing key.
	Secret []byte
	// MaxTTL caps the token lifetime regardless of the remaining code TTL.
	MaxTTL time.Duration
	// SecureCookie marks the cookie Secure (production).
	SecureCookie bool
	// Clock provides the current time source.
	Clock clocker
	// SessionID generates fresh session ids.
	SessionID generator
}

// Issuer mints and validates verification session tokens.
type Issuer struct {
	secret       []byte
	maxTTL       time.Duration
	secureCookie bool
	clock        clocker
	sid          generator
}

// NewIssuer constructs an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSecretRequired
	}

	maxTTL := cfg.MaxTTL
	if maxTTL < minTTL {
		maxTTL = minTTL
	}

	return &Issuer{
		secret:       cfg.Secret,
		maxTTL:       maxTTL,
		secureCookie: cfg.SecureCookie,
		clock:        cfg.Clock,
		sid:          cfg.SessionID,
	}, nil
}

// Issue creates a signed token for the verified user.
//
// The token lifetime is min(remaining, configured maximum), floored at one
// second; remaining is the time left on the matched code.
func (i *Issuer) Issue(userID int64, identifier, purpose string, remaining time.Duration) (string, time.Duration, error) {
	ttl := remaining
	if ttl > i.maxTTL {
		ttl = i.maxTTL
	}
	if ttl < minTTL {
		ttl = minTTL
	}

	now := i.clock.Now()

	token := libJWT.NewWithClaims(libJWT.SigningMethodHS256, Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        i.sid.Generate(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(ttl)),
		},
		UserID:     userID,
		Identifier: identifier,
		Purpose:    purpose,
	})
	token.Header["ver"] = FormatVersion

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}

	return signed, ttl, nil
}

// Verify parses and validates a token string.
func (i *Issuer) Verify(tokenStr string) (Claims, error) {
	var claims Claims

	token, err := libJWT.ParseWithClaims(tokenStr, &claims,
		func(t *libJWT.Token) (any, error) {
			if t.Method != libJWT.SigningMethodHS256 {
				return nil, ErrInvalidSigningMethod
			}
			return i.secret, nil
		},
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS256.Alg()}),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, libJWT.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// Cookie describes the transport cookie for a freshly issued token.
func (i *Issuer) Cookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   i.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
