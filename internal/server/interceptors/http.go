package interceptors

import (
	"log/slog"
	"net/http"

	"videotube/backend/internal/apperr"
	"videotube/backend/internal/server/respond"
)

// Authenticate is HTTP middleware that requires a valid access token (see TokenFromRequest)
// and attaches the caller's profile to the request context. Failures answer 401 with the error envelope.
func Authenticate(auth TokenAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				respond.Error(w, r, logger, apperr.ErrUnauthorized)
				return
			}
			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				respond.Error(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), p)))
		})
	}
}
