package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"videotube/backend/internal/apperr"
)

func TestAccount_Validate(t *testing.T) {
	valid := Account{Handle: "alice", Email: "a@x.com", FullName: "Alice"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		name string
		mod  func(a *Account)
	}{
		{"blank handle", func(a *Account) { a.Handle = "" }},
		{"handle with space", func(a *Account) { a.Handle = "al ice" }},
		{"handle with at", func(a *Account) { a.Handle = "a@x" }},
		{"blank email", func(a *Account) { a.Email = "" }},
		{"bad email", func(a *Account) { a.Email = "not-an-email" }},
		{"display-name email", func(a *Account) { a.Email = "Alice <a@x.com>" }},
		{"blank full name", func(a *Account) { a.FullName = "  " }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := valid
			tc.mod(&a)
			if err := a.Validate(); !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("Validate = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeHandle("  Alice "); got != "alice" {
		t.Errorf("NormalizeHandle = %q", got)
	}
	if got := NormalizeEmail(" A@X.com"); got != "a@x.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestProfile_OmitsSecrets(t *testing.T) {
	a := &Account{
		ID: "acc-1", Handle: "alice", Email: "a@x.com", FullName: "Alice",
		PasswordHash: "$2a$10$secret", RefreshTokenHash: "deadbeef",
	}
	b, err := json.Marshal(a.Profile())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "secret") || strings.Contains(out, "deadbeef") {
		t.Errorf("profile JSON leaks secrets: %s", out)
	}
	if !strings.Contains(out, `"userName":"alice"`) {
		t.Errorf("profile JSON missing handle: %s", out)
	}
	var nilAcc *Account
	if nilAcc.Profile() != nil {
		t.Error("nil account should have nil profile")
	}
}

func TestAccount_HasSession(t *testing.T) {
	a := &Account{}
	if a.HasSession() {
		t.Error("empty refresh hash must mean no session")
	}
	a.RefreshTokenHash = "h"
	if !a.HasSession() {
		t.Error("non-empty refresh hash means a session")
	}
}
