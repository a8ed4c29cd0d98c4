package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	issuer, err := NewIssuer(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authcore-test",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return issuer
}

func TestIssuePairRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair("acct-1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	access, err := issuer.ParseAccess(pair.Access)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if access.Subject != "acct-1" {
		t.Fatalf("expected subject acct-1, got %q", access.Subject)
	}
	if access.Use != UseAccess {
		t.Fatalf("expected use %q, got %q", UseAccess, access.Use)
	}

	refresh, err := issuer.ParseRefresh(pair.Refresh)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if refresh.Subject != "acct-1" {
		t.Fatalf("expected subject acct-1, got %q", refresh.Subject)
	}
	if refresh.ID == access.ID {
		t.Fatal("expected distinct jti per credential")
	}
}

func TestParseRejectsWrongUse(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair("acct-1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := issuer.ParseRefresh(pair.Access); !errors.Is(err, ErrWrongUse) {
		t.Fatalf("expected ErrWrongUse for access token in refresh role, got %v", err)
	}
	if _, err := issuer.ParseAccess(pair.Refresh); !errors.Is(err, ErrWrongUse) {
		t.Fatalf("expected ErrWrongUse for refresh token in access role, got %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer(t)
	other := newTestIssuer(t)

	pair, err := other.IssuePair("acct-1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := issuer.ParseAccess(pair.Access); err == nil {
		t.Fatal("expected token signed by a different key to fail")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t)

	if _, err := issuer.ParseAccess("not.a.jwt"); err == nil {
		t.Fatal("expected malformed token to fail")
	}
	if _, err := issuer.ParseRefresh(""); err == nil {
		t.Fatal("expected empty token to fail")
	}
}

func TestNewIssuerValidation(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{
			name: "access TTL not shorter than refresh",
			cfg: Config{
				AccessTTL:     time.Hour,
				RefreshTTL:    time.Hour,
				SigningMethod: MethodEd25519,
				PrivateKey:    priv,
				PublicKey:     pub,
			},
		},
		{
			name: "missing public key",
			cfg: Config{
				AccessTTL:     time.Minute,
				RefreshTTL:    time.Hour,
				SigningMethod: MethodEd25519,
				PrivateKey:    priv,
			},
		},
		{
			name: "hs256 without key",
			cfg: Config{
				AccessTTL:     time.Minute,
				RefreshTTL:    time.Hour,
				SigningMethod: MethodHS256,
			},
		},
		{
			name: "unsupported method",
			cfg: Config{
				AccessTTL:     time.Minute,
				RefreshTTL:    time.Hour,
				SigningMethod: "rs256",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewIssuer(tc.cfg); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}

func TestHS256RoundTrip(t *testing.T) {
	issuer, err := NewIssuer(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	access, err := issuer.IssueAccess("acct-2")
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	claims, err := issuer.ParseAccess(access)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.Subject != "acct-2" {
		t.Fatalf("expected subject acct-2, got %q", claims.Subject)
	}
}
