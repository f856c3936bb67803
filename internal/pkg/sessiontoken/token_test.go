package sessiontoken

import (
	"net/http"
	"testing"
	"time"

	"github.com/dhakamart/verifyd/internal/pkg/clock"
)

type staticSID string

func (s staticSID) Generate() string { return string(s) }

func newTestIssuer(t *testing.T, maxTTL time.Duration) (*Issuer, time.Time) {
	t.Helper()

	// Verify validates expiry against the wall clock, so the issuer clock
	// must be the real present for round trips.
	now := time.Now()
	iss, err := NewIssuer(Config{
		Secret:    []byte("unit-test-secret"),
		MaxTTL:    maxTTL,
		Clock:     clock.Static{T: now},
		SessionID: staticSID("sid-1"),
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss, now
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	iss, _ := newTestIssuer(t, 5*time.Minute)

	token, ttl, err := iss.Issue(42, "8801712345678", "login", 2*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if ttl != 2*time.Minute {
		t.Fatalf("ttl = %v, want 2m", ttl)
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("uid = %d, want 42", claims.UserID)
	}
	if claims.Identifier != "8801712345678" {
		t.Fatalf("idn = %q", claims.Identifier)
	}
	if claims.Purpose != "login" {
		t.Fatalf("pur = %q", claims.Purpose)
	}
	if claims.Subject != "42" {
		t.Fatalf("sub = %q", claims.Subject)
	}
	if claims.ID != "sid-1" {
		t.Fatalf("sid = %q", claims.ID)
	}
}

func TestIssueClampsTTL(t *testing.T) {
	iss, _ := newTestIssuer(t, 5*time.Minute)

	t.Run("capped at max", func(t *testing.T) {
		_, ttl, err := iss.Issue(1, "a@b.co", "login", time.Hour)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if ttl != 5*time.Minute {
			t.Fatalf("ttl = %v, want 5m", ttl)
		}
	})

	t.Run("floored at one second", func(t *testing.T) {
		_, ttl, err := iss.Issue(1, "a@b.co", "login", 0)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if ttl != time.Second {
			t.Fatalf("ttl = %v, want 1s", ttl)
		}
	})
}

func TestVerifyRejectsTampering(t *testing.T) {
	iss, _ := newTestIssuer(t, 5*time.Minute)

	token, _, err := iss.Issue(7, "a@b.co", "signup", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := iss.Verify(token + "x"); err == nil {
		t.Fatal("tampered token verified")
	}

	other, _ := NewIssuer(Config{
		Secret:    []byte("another-secret"),
		MaxTTL:    5 * time.Minute,
		Clock:     clock.Static{T: time.Now()},
		SessionID: staticSID("sid-2"),
	})
	if _, err := other.Verify(token); err == nil {
		t.Fatal("token verified with wrong secret")
	}
}

func TestCookieAttributes(t *testing.T) {
	iss, _ := newTestIssuer(t, 5*time.Minute)

	c := iss.Cookie("tok", 90*time.Second)
	if c.Name != CookieName {
		t.Fatalf("name = %q", c.Name)
	}
	if c.Value != "tok" {
		t.Fatalf("value = %q", c.Value)
	}
	if c.Path != "/" {
		t.Fatalf("path = %q", c.Path)
	}
	if c.MaxAge != 90 {
		t.Fatalf("max age = %d", c.MaxAge)
	}
	if !c.HttpOnly {
		t.Fatal("cookie must be http-only")
	}
	if c.Secure {
		t.Fatal("secure must follow the issuer config, off here")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatal("same-site must be lax")
	}
}
