package repository

import (
	"context"
	"sync"
	"time"

	"videotube/backend/internal/account/domain"
)

// MemoryRepository is an in-process Repository used by tests and by the
// server when no DATABASE_URL is configured. A single mutex serialises every
// read-modify-write, which gives SwapRefreshReference its compare-and-swap semantics.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[string]*domain.Account
	now  func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.Account), now: time.Now}
}

func (r *MemoryRepository) GetByHandleOrEmail(ctx context.Context, identifier string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, email := domain.NormalizeHandle(identifier), domain.NormalizeEmail(identifier)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Handle == handle || a.Email == email {
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) ExistsByHandleOrEmail(ctx context.Context, handle, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takenLocked("", handle, email), nil
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; ok {
		return ErrDuplicate
	}
	if r.takenLocked("", a.Handle, a.Email) {
		return ErrDuplicate
	}
	r.byID[a.ID] = clone(a)
	return nil
}

func (r *MemoryRepository) UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.takenLocked(id, "", email) {
		return nil, ErrDuplicate
	}
	a.FullName = fullName
	a.Email = email
	a.UpdatedAt = r.now().UTC()
	return clone(a), nil
}

func (r *MemoryRepository) UpdateImages(ctx context.Context, id, avatarURL, coverImageURL string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if avatarURL != "" {
		a.AvatarURL = avatarURL
	}
	if coverImageURL != "" {
		a.CoverImageURL = coverImageURL
	}
	a.UpdatedAt = r.now().UTC()
	return clone(a), nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id, hash string, revokeSession bool) error {
	return r.mutate(ctx, id, func(a *domain.Account) {
		a.PasswordHash = hash
		if revokeSession {
			a.RefreshTokenHash = ""
		}
	})
}

func (r *MemoryRepository) UpdateRefreshReference(ctx context.Context, id, hash string) error {
	return r.mutate(ctx, id, func(a *domain.Account) { a.RefreshTokenHash = hash })
}

func (r *MemoryRepository) SwapRefreshReference(ctx context.Context, id, expected, next string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if expected == "" || a.RefreshTokenHash != expected {
		return false, nil
	}
	a.RefreshTokenHash = next
	a.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemoryRepository) ClearRefreshReference(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(a *domain.Account) { a.RefreshTokenHash = "" })
}

func (r *MemoryRepository) mutate(ctx context.Context, id string, fn func(a *domain.Account)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(a)
	a.UpdatedAt = r.now().UTC()
	return nil
}

// takenLocked reports whether any account other than exceptID uses handle or email.
// Empty arguments are not matched. Caller holds r.mu.
func (r *MemoryRepository) takenLocked(exceptID, handle, email string) bool {
	for id, a := range r.byID {
		if id == exceptID {
			continue
		}
		if (handle != "" && a.Handle == handle) || (email != "" && a.Email == email) {
			return true
		}
	}
	return false
}

func clone(a *domain.Account) *domain.Account {
	c := *a
	return &c
}
