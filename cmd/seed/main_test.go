package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"videotube/backend/internal/account/repository"
	"videotube/backend/internal/identity/service"
	"videotube/backend/internal/security"
)

func TestSeed_IsIdempotent(t *testing.T) {
	tokens, err := security.NewTestTokenIssuer()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewMemoryRepository()
	var out bytes.Buffer
	svc := service.NewAuthService(repo, security.NewHasher(4), tokens, service.Options{})
	ctx := context.Background()

	if err := seed(ctx, svc, &out); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if strings.Count(out.String(), "account registered") != len(devAccounts) {
		t.Errorf("first run output:\n%s", out.String())
	}

	out.Reset()
	if err := seed(ctx, svc, &out); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if strings.Count(out.String(), "skipping") != len(devAccounts) {
		t.Errorf("second run output:\n%s", out.String())
	}

	if _, err := svc.Login(ctx, "dev@example.com", devPassword); err != nil {
		t.Errorf("login as seeded dev account: %v", err)
	}
}
