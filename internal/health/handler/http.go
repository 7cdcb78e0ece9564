package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"videotube/backend/internal/server/respond"
)

// Pinger checks that a dependency is reachable (e.g. *pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves GET /api/v1/healthcheck.
type Handler struct {
	pinger  Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewHandler returns a health handler. If pinger is nil (in-memory store) the check always passes.
func NewHandler(pinger Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pinger: pinger, timeout: 2 * time.Second, logger: logger}
}

// Check pings the store within the handler timeout.
func (h *Handler) Check(ctx context.Context) error {
	if h.pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.pinger.Ping(ctx)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Check(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, "database unreachable")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"}, "OK")
}
