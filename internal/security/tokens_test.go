package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newClockedIssuer(t *testing.T) (*TokenIssuer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	p, err := NewTokenIssuer(TestTokenConfig(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return p, clock
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	p, clock := newClockedIssuer(t)
	display := Display{Handle: "alice", Email: "a@x.com", FullName: "Alice A"}

	tok, err := p.IssueAccess("acc-1", display)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if tok.Value == "" || tok.ID == "" {
		t.Fatal("access token or jti empty")
	}
	if want := clock.t.Add(15 * time.Minute); !tok.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}

	claims, err := p.VerifyAccess(tok.Value)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "acc-1" || claims.Handle != "alice" || claims.Email != "a@x.com" || claims.FullName != "Alice A" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID != tok.ID || claims.Type != TokenTypeAccess || claims.Version != ClaimsVersion {
		t.Errorf("claims id/type/version = %q/%q/%d", claims.ID, claims.Type, claims.Version)
	}
}

func TestTokenIssuer_RefreshRoundTrip(t *testing.T) {
	p, _ := newClockedIssuer(t)
	tok, err := p.IssueRefresh("acc-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	claims, err := p.VerifyRefresh(tok.Value)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.Subject != "acc-1" || claims.ID != tok.ID || claims.Type != TokenTypeRefresh {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenIssuer_RefreshTokensAreUnique(t *testing.T) {
	p, _ := newClockedIssuer(t)
	a, _ := p.IssueRefresh("acc-1")
	b, _ := p.IssueRefresh("acc-1")
	if a.Value == b.Value || a.ID == b.ID {
		t.Error("two refresh tokens issued at the same instant must differ")
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	p, clock := newClockedIssuer(t)
	tok, _ := p.IssueAccess("acc-1", Display{})
	ref, _ := p.IssueRefresh("acc-1")

	clock.t = clock.t.Add(15*time.Minute - time.Second)
	if _, err := p.VerifyAccess(tok.Value); err != nil {
		t.Fatalf("VerifyAccess just before expiry: %v", err)
	}

	clock.t = clock.t.Add(2 * time.Second)
	if _, err := p.VerifyAccess(tok.Value); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyAccess after expiry: want ErrTokenExpired, got %v", err)
	}

	clock.t = clock.t.Add(240 * time.Hour)
	if _, err := p.VerifyRefresh(ref.Value); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyRefresh after expiry: want ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuer_Leeway(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := TestTokenConfig(clock.Now)
	cfg.Leeway = 30 * time.Second
	p, err := NewTokenIssuer(cfg)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	tok, _ := p.IssueAccess("acc-1", Display{})
	clock.t = clock.t.Add(15*time.Minute + 10*time.Second)
	if _, err := p.VerifyAccess(tok.Value); err != nil {
		t.Errorf("VerifyAccess within leeway: %v", err)
	}
}

func TestTokenIssuer_ClassesDoNotCross(t *testing.T) {
	p, _ := newClockedIssuer(t)
	access, _ := p.IssueAccess("acc-1", Display{})
	refresh, _ := p.IssueRefresh("acc-1")

	if _, err := p.VerifyRefresh(access.Value); !errors.Is(err, ErrTokenSignature) {
		t.Errorf("VerifyRefresh(access): want ErrTokenSignature, got %v", err)
	}
	if _, err := p.VerifyAccess(refresh.Value); !errors.Is(err, ErrTokenSignature) {
		t.Errorf("VerifyAccess(refresh): want ErrTokenSignature, got %v", err)
	}
}

func TestTokenIssuer_WrongTypeWithRightSecret(t *testing.T) {
	p, clock := newClockedIssuer(t)
	// A refresh-shaped claim set signed with the access secret must still be rejected.
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			Subject:   "acc-1",
			Issuer:    "videotube-auth",
			Audience:  jwt.ClaimStrings{"videotube-api"},
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
		Type:    TokenTypeRefresh,
		Version: ClaimsVersion,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := p.VerifyAccess(s); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("VerifyAccess(refresh typ): want ErrTokenMalformed, got %v", err)
	}
}

func TestTokenIssuer_Malformed(t *testing.T) {
	p, _ := newClockedIssuer(t)
	for _, in := range []string{"", "   ", "invalid-token", "a.b.c"} {
		if _, err := p.VerifyAccess(in); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("VerifyAccess(%q): want ErrTokenMalformed, got %v", in, err)
		}
	}
}

func TestTokenIssuer_TamperedSignature(t *testing.T) {
	p, _ := newClockedIssuer(t)
	tok, _ := p.IssueAccess("acc-1", Display{})
	parts := strings.Split(tok.Value, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	if _, err := p.VerifyAccess(tampered); !errors.Is(err, ErrTokenSignature) {
		t.Errorf("VerifyAccess(tampered): want ErrTokenSignature, got %v", err)
	}
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	p, clock := newClockedIssuer(t)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "x", Subject: "acc-1", Issuer: "videotube-auth",
			Audience:  jwt.ClaimStrings{"videotube-api"},
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
		Type: TokenTypeAccess, Version: ClaimsVersion,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := p.VerifyAccess(s); err == nil {
		t.Error("VerifyAccess must reject alg=none")
	}
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	cfg := TestTokenConfig(nil)
	cfg.RefreshSecret = cfg.AccessSecret
	if _, err := NewTokenIssuer(cfg); !errors.Is(err, ErrSharedSecret) {
		t.Errorf("shared secrets: want ErrSharedSecret, got %v", err)
	}
	cfg = TestTokenConfig(nil)
	cfg.AccessSecret = ""
	if _, err := NewTokenIssuer(cfg); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("empty secret: want ErrMissingSecret, got %v", err)
	}
	cfg = TestTokenConfig(nil)
	cfg.AccessTTL = 0
	if _, err := NewTokenIssuer(cfg); err == nil {
		t.Error("zero ttl should be rejected")
	}
}

func TestTokenIssuer_IssueRequiresAccountID(t *testing.T) {
	p, _ := newClockedIssuer(t)
	if _, err := p.IssueRefresh(" "); err == nil {
		t.Error("IssueRefresh with blank account id should fail")
	}
}
