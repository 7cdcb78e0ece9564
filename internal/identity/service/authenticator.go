package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"videotube/backend/internal/account/domain"
	"videotube/backend/internal/account/repository"
	"videotube/backend/internal/apperr"
	"videotube/backend/internal/security"
)

// AccountLookup is the read-only part of the account repository the Authenticator needs.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// Authenticator resolves an access token to the profile of a live account. It never
// reads the refresh reference and never writes.
type Authenticator struct {
	accounts AccountLookup
	tokens   *security.TokenIssuer
	logger   *slog.Logger
}

// NewAuthenticator returns an Authenticator. A nil logger uses slog.Default.
func NewAuthenticator(accounts AccountLookup, tokens *security.TokenIssuer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{accounts: accounts, tokens: tokens, logger: logger}
}

// Authenticate verifies accessToken and loads its account. Missing, expired, malformed or
// badly signed tokens and deleted accounts all fail with apperr.ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, accessToken string) (*domain.Profile, error) {
	if accessToken == "" {
		return nil, apperr.ErrUnauthorized
	}
	claims, err := a.tokens.VerifyAccess(accessToken)
	if err != nil {
		a.logger.DebugContext(ctx, "access token rejected", "reason", err)
		return nil, apperr.ErrUnauthorized
	}
	acc, err := a.accounts.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, oops.In("auth").With("account_id", claims.Subject).Wrapf(err, "resolve token subject")
	}
	return acc.Profile(), nil
}
