package interceptors

import (
	"context"

	"videotube/backend/internal/account/domain"
)

type contextKey struct{ name string }

var (
	identityKey   = contextKey{"identity"}
	requestLogKey = contextKey{"request-log"}
)

// requestLog holds fields learned by inner handlers that the request logger reports
// once the call returns. It is only touched by the goroutine serving the request.
type requestLog struct {
	accountID string
}

func withRequestLog(ctx context.Context) (context.Context, *requestLog) {
	rl := &requestLog{}
	return context.WithValue(ctx, requestLogKey, rl), rl
}

// WithIdentity returns a context carrying the authenticated account profile.
// Handlers and the ownership authorizer read it via IdentityFromContext.
// An enclosing request logger also records the account id.
func WithIdentity(ctx context.Context, p *domain.Profile) context.Context {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok && p != nil {
		rl.accountID = p.ID
	}
	return context.WithValue(ctx, identityKey, p)
}

// IdentityFromContext returns the authenticated profile and true if set; otherwise nil, false.
func IdentityFromContext(ctx context.Context) (*domain.Profile, bool) {
	p, ok := ctx.Value(identityKey).(*domain.Profile)
	return p, ok && p != nil
}

// GetAccountID returns the authenticated account id and true if set; otherwise "", false.
func GetAccountID(ctx context.Context) (string, bool) {
	p, ok := IdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return p.ID, true
}
