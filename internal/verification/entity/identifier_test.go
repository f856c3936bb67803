package entity

import "testing"

func TestNormalizeIdentifierPhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local with trunk zero", "01712345678", "8801712345678"},
		{"e164", "+8801712345678", "8801712345678"},
		{"double zero prefix", "008801712345678", "8801712345678"},
		{"double country code", "88001712345678", "8801712345678"},
		{"trunk zero before country code", "08801712345678", "8801712345678"},
		{"spaces in the middle", "0880 1712345678", "8801712345678"},
		{"bare trunk", "1712345678", "8801712345678"},
		{"dashes", "017-1234-5678", "8801712345678"},
		{"plus double zero", "+008801712345678", "8801712345678"},
		{"retired citycell range", "01112345678", "8801112345678"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeIdentifier(tc.in)
			if !ok {
				t.Fatalf("NormalizeIdentifier(%q) not ok", tc.in)
			}
			if got.Type != IdentifierPhone {
				t.Fatalf("type = %s, want phone", got.Type)
			}
			if got.Canonical != tc.want {
				t.Fatalf("canonical = %q, want %q", got.Canonical, tc.want)
			}
			if got.Raw != tc.in {
				t.Fatalf("raw = %q, want %q", got.Raw, tc.in)
			}
		})
	}
}

func TestNormalizeIdentifierPhoneRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"unassigned operator prefix", "8801212345678"},
		{"too short", "017123"},
		{"too long", "88017123456789"},
		{"not bd country code", "+14155550123"},
		{"empty", "   "},
		{"letters", "call-me-maybe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := NormalizeIdentifier(tc.in); ok {
				t.Fatalf("NormalizeIdentifier(%q) ok, want rejection", tc.in)
			}
		})
	}
}

func TestNormalizeIdentifierEmail(t *testing.T) {
	got, ok := NormalizeIdentifier("Customer.One@Example.COM")
	if !ok {
		t.Fatal("expected ok")
	}
	if got.Type != IdentifierEmail {
		t.Fatalf("type = %s, want email", got.Type)
	}
	if got.Canonical != "customer.one@example.com" {
		t.Fatalf("canonical = %q", got.Canonical)
	}

	for _, bad := range []string{"@example.com", "user@", "user@nodot", "user@ex ample.com", "user@example.c"} {
		if _, ok := NormalizeIdentifier(bad); ok {
			t.Fatalf("NormalizeIdentifier(%q) ok, want rejection", bad)
		}
	}
}
