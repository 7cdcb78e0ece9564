package repository

import (
	"context"
	"errors"

	"videotube/backend/internal/account/domain"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned when a handle or email is already taken.
	ErrDuplicate = errors.New("account handle or email already exists")
)

// Repository defines persistence for accounts. Every method is a single-row
// operation; refresh reference changes are one atomic write each.
type Repository interface {
	// GetByHandleOrEmail matches identifier against the handle or the email, case-insensitively.
	GetByHandleOrEmail(ctx context.Context, identifier string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// ExistsByHandleOrEmail reports whether handle or email is taken by any account.
	ExistsByHandleOrEmail(ctx context.Context, handle, email string) (bool, error)
	Create(ctx context.Context, a *domain.Account) error
	// UpdateDetails sets full name and email.
	UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.Account, error)
	// UpdateImages sets the avatar and cover image URLs. An empty URL keeps the stored value.
	UpdateImages(ctx context.Context, id, avatarURL, coverImageURL string) (*domain.Account, error)
	// UpdatePasswordHash replaces the password hash; when revokeSession is true the
	// refresh reference is cleared in the same write.
	UpdatePasswordHash(ctx context.Context, id, hash string, revokeSession bool) error
	// UpdateRefreshReference unconditionally stores hash as the account's refresh reference.
	UpdateRefreshReference(ctx context.Context, id, hash string) error
	// SwapRefreshReference stores next only if the current reference equals expected.
	// It returns false when the reference had already changed.
	SwapRefreshReference(ctx context.Context, id, expected, next string) (bool, error)
	// ClearRefreshReference removes the refresh reference. Clearing an absent reference is not an error.
	ClearRefreshReference(ctx context.Context, id string) error
}
