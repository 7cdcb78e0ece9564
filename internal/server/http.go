// Package server wires the HTTP router and the gRPC server.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	healthhandler "videotube/backend/internal/health/handler"
	identityhandler "videotube/backend/internal/identity/handler"
	"videotube/backend/internal/server/interceptors"
)

// HTTPDeps holds what the REST router needs.
type HTTPDeps struct {
	Users  *identityhandler.UserHandler
	Health *healthhandler.Handler
	Auth   interceptors.TokenAuthenticator
	Logger *slog.Logger
	// CORSOrigin enables credentialed CORS for one origin. Empty disables CORS headers.
	CORSOrigin string
}

// NewRouter returns the chi router serving /api/v1.
func NewRouter(deps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(interceptors.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	if deps.CORSOrigin != "" {
		r.Use(cors(deps.CORSOrigin))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodGet, "/healthcheck", deps.Health)
		r.Route("/users", func(r chi.Router) {
			deps.Users.Routes(r, interceptors.Authenticate(deps.Auth, deps.Logger))
		})
	})
	return r
}

func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") == origin {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
