// Package rbac holds the ownership checks resource handlers run before mutating comments,
// tweets, videos and playlists. Those handlers live in the content services that mount
// behind interceptors.Authenticate; a typical call is
//
//	if _, err := rbac.RequireOwnerOf(r.Context(), videos, chi.URLParam(r, "videoId")); err != nil {
//		respond.Error(w, r, logger, err)
//		return
//	}
package rbac

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"videotube/backend/internal/account/domain"
	"videotube/backend/internal/apperr"
	"videotube/backend/internal/server/interceptors"
)

// Decision is the outcome of an ownership check.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Authorize allows only when identityID and ownerID are equal and non-empty.
func Authorize(identityID, ownerID string) Decision {
	if identityID == "" || ownerID == "" || identityID != ownerID {
		return Denied
	}
	return Allowed
}

// RequireOwner ensures the caller is authenticated and owns a resource recorded as owned by ownerID.
// Returns the caller's profile on success; apperr.ErrUnauthorized when no identity is in context and
// apperr.ErrForbidden when the caller is not the owner.
func RequireOwner(ctx context.Context, ownerID string) (*domain.Profile, error) {
	p, ok := interceptors.IdentityFromContext(ctx)
	if !ok || p.ID == "" {
		return nil, apperr.ErrUnauthorized
	}
	if Authorize(p.ID, ownerID) != Allowed {
		return nil, apperr.ErrForbidden
	}
	return p, nil
}

// OwnerGetter returns the owner account id of a resource. Implementations return apperr.ErrNotFound
// for unknown resources.
type OwnerGetter interface {
	OwnerOf(ctx context.Context, resourceID string) (string, error)
}

// RequireOwnerOf resolves the owner of resourceID through getter and applies RequireOwner.
func RequireOwnerOf(ctx context.Context, getter OwnerGetter, resourceID string) (*domain.Profile, error) {
	if _, ok := interceptors.IdentityFromContext(ctx); !ok {
		return nil, apperr.ErrUnauthorized
	}
	ownerID, err := getter.OwnerOf(ctx, resourceID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, oops.In("rbac").With("resource_id", resourceID).Wrapf(err, "resolve resource owner")
	}
	return RequireOwner(ctx, ownerID)
}
