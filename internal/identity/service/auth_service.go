package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"videotube/backend/internal/account/domain"
	"videotube/backend/internal/account/repository"
	"videotube/backend/internal/apperr"
	"videotube/backend/internal/security"
)

const instrumentationName = "videotube/backend/internal/identity/service"

// dummyPassword is verified against a throwaway hash when the login identifier is unknown,
// so both failure paths pay for one bcrypt comparison.
const dummyPassword = "videotube-login-timing-equalizer"

// Session is the token pair returned by Login and Refresh.
type Session struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Account          *domain.Profile
}

// RegisterInput carries the identity fields and password for Register.
type RegisterInput struct {
	Handle        string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

// Options tunes AuthService behaviour.
type Options struct {
	// RevokeSessionsOnPasswordChange clears the refresh reference in the same write as a password change.
	RevokeSessionsOnPasswordChange bool
	Logger                         *slog.Logger
	// Now overrides the clock for account timestamps; nil uses time.Now.
	Now func() time.Time
}

// AuthService implements register, login, refresh-token rotation, logout and password change
// over a single refresh reference per account.
type AuthService struct {
	repo         repository.Repository
	hasher       *security.Hasher
	tokens       *security.TokenIssuer
	revokeOnPwd  bool
	logger       *slog.Logger
	now          func() time.Time
	tracer       trace.Tracer
	loginCount   metric.Int64Counter
	refreshCount metric.Int64Counter
	registerCnt  metric.Int64Counter

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(repo repository.Repository, hasher *security.Hasher, tokens *security.TokenIssuer, opts Options) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	meter := otel.Meter(instrumentationName)
	s := &AuthService{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		revokeOnPwd: opts.RevokeSessionsOnPasswordChange,
		logger:      logger.With("component", "auth"),
		now:         now,
		tracer:      otel.Tracer(instrumentationName),
	}
	// Errors here only report invalid instrument names.
	s.loginCount, _ = meter.Int64Counter("auth.login", metric.WithDescription("Login attempts by result"))
	s.refreshCount, _ = meter.Int64Counter("auth.refresh", metric.WithDescription("Refresh attempts by result"))
	s.registerCnt, _ = meter.Int64Counter("auth.register", metric.WithDescription("Registrations by result"))
	return s
}

// Register creates an account with a hashed password. Blank fields fail with ErrInvalidInput;
// a taken handle or email fails with ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ *domain.Profile, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer func() { s.finish(ctx, span, s.registerCnt, err) }()

	password := strings.TrimSpace(in.Password)
	if password == "" {
		return nil, apperr.Invalid("password is required")
	}
	now := s.now().UTC()
	a := &domain.Account{
		ID:            uuid.New().String(),
		Handle:        domain.NormalizeHandle(in.Handle),
		Email:         domain.NormalizeEmail(in.Email),
		FullName:      strings.TrimSpace(in.FullName),
		AvatarURL:     strings.TrimSpace(in.AvatarURL),
		CoverImageURL: strings.TrimSpace(in.CoverImageURL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	taken, err := s.repo.ExistsByHandleOrEmail(ctx, a.Handle, a.Email)
	if err != nil {
		return nil, oops.In("auth").With("handle", a.Handle).Wrapf(err, "check existing account")
	}
	if taken {
		return nil, apperr.ErrConflict
	}
	a.PasswordHash, err = s.hasher.Hash([]byte(in.Password))
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return nil, apperr.Invalid("password must be at most 72 bytes")
		}
		return nil, oops.In("auth").Wrapf(err, "hash password")
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ErrConflict
		}
		return nil, oops.In("auth").With("handle", a.Handle).Wrapf(err, "create account")
	}
	span.SetAttributes(attribute.String("account.id", a.ID))
	s.logger.InfoContext(ctx, "account registered", "account_id", a.ID, "handle", a.Handle)
	return a.Profile(), nil
}

// Login authenticates identifier (handle or email) with password and starts a session,
// replacing any refresh reference already stored. Unknown accounts and wrong passwords
// both fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (_ *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer func() { s.finish(ctx, span, s.loginCount, err) }()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperr.Invalid("username or email is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apperr.Invalid("password is required")
	}
	a, err := s.repo.GetByHandleOrEmail(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		s.burnVerify(password)
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, oops.In("auth").Wrapf(err, "look up account")
	}
	ok, err := s.hasher.Verify(a.PasswordHash, []byte(password))
	if err != nil {
		return nil, oops.In("auth").With("account_id", a.ID).Wrapf(err, "verify password")
	}
	if !ok {
		s.logger.InfoContext(ctx, "login rejected", "account_id", a.ID)
		return nil, apperr.ErrInvalidCredentials
	}
	sess, err := s.issue(a)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRefreshReference(ctx, a.ID, security.HashRefreshToken(sess.RefreshToken)); err != nil {
		return nil, oops.In("auth").With("account_id", a.ID).Wrapf(err, "store refresh reference")
	}
	span.SetAttributes(attribute.String("account.id", a.ID))
	s.logger.InfoContext(ctx, "login succeeded", "account_id", a.ID)
	return sess, nil
}

// Refresh rotates refreshToken: it must verify, belong to an existing account, and match that
// account's stored reference. The stored reference is replaced with a compare-and-swap on the old
// value, so of two concurrent refreshes with the same token exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *Session, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer func() { s.finish(ctx, span, s.refreshCount, err) }()

	if refreshToken == "" {
		return nil, apperr.ErrUnauthorized
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", "reason", err)
		return nil, apperr.ErrUnauthorized
	}
	a, err := s.repo.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, oops.In("auth").Wrapf(err, "look up account")
	}
	if !security.RefreshTokenHashEqual(refreshToken, a.RefreshTokenHash) {
		s.logger.WarnContext(ctx, "stale refresh token presented", "account_id", a.ID)
		return nil, apperr.ErrStaleRefreshToken
	}
	sess, err := s.issue(a)
	if err != nil {
		return nil, err
	}
	swapped, err := s.repo.SwapRefreshReference(ctx, a.ID, a.RefreshTokenHash, security.HashRefreshToken(sess.RefreshToken))
	if err != nil {
		return nil, oops.In("auth").With("account_id", a.ID).Wrapf(err, "rotate refresh reference")
	}
	if !swapped {
		s.logger.WarnContext(ctx, "refresh lost rotation race", "account_id", a.ID)
		return nil, apperr.ErrStaleRefreshToken
	}
	span.SetAttributes(attribute.String("account.id", a.ID))
	return sess, nil
}

// Logout clears the stored refresh reference. Logging out without a session is not an error.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	err := s.repo.ClearRefreshReference(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrUnauthorized
	}
	if err != nil {
		span.RecordError(err)
		return oops.In("auth").With("account_id", accountID).Wrapf(err, "clear refresh reference")
	}
	s.logger.InfoContext(ctx, "logged out", "account_id", accountID)
	return nil
}

// ChangePassword replaces the password hash after verifying oldPassword.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	if strings.TrimSpace(newPassword) == "" {
		return apperr.Invalid("new password is required")
	}
	a, err := s.repo.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrUnauthorized
	}
	if err != nil {
		return oops.In("auth").Wrapf(err, "look up account")
	}
	ok, err := s.hasher.Verify(a.PasswordHash, []byte(oldPassword))
	if err != nil {
		return oops.In("auth").With("account_id", a.ID).Wrapf(err, "verify password")
	}
	if !ok {
		return apperr.ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return apperr.Invalid("password must be at most 72 bytes")
		}
		return oops.In("auth").Wrapf(err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, a.ID, hash, s.revokeOnPwd); err != nil {
		return oops.In("auth").With("account_id", a.ID).Wrapf(err, "update password")
	}
	s.logger.InfoContext(ctx, "password changed", "account_id", a.ID, "session_revoked", s.revokeOnPwd)
	return nil
}

// CurrentAccount returns the profile of accountID.
func (s *AuthService) CurrentAccount(ctx context.Context, accountID string) (*domain.Profile, error) {
	a, err := s.repo.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, oops.In("auth").Wrapf(err, "look up account")
	}
	return a.Profile(), nil
}

// UpdateAccountDetails sets the full name and email of accountID.
func (s *AuthService) UpdateAccountDetails(ctx context.Context, accountID, fullName, email string) (*domain.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	email = domain.NormalizeEmail(email)
	if fullName == "" || email == "" {
		return nil, apperr.Invalid("full name and email are required")
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	a, err := s.repo.UpdateDetails(ctx, accountID, fullName, email)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperr.ErrConflict
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.ErrUnauthorized
	case err != nil:
		return nil, oops.In("auth").With("account_id", accountID).Wrapf(err, "update account details")
	}
	return a.Profile(), nil
}

// UpdateImages sets the avatar and cover image URLs of accountID. The URLs are stored as given;
// an empty URL keeps the current value, but at least one must be set.
func (s *AuthService) UpdateImages(ctx context.Context, accountID, avatarURL, coverImageURL string) (*domain.Profile, error) {
	avatarURL, coverImageURL = strings.TrimSpace(avatarURL), strings.TrimSpace(coverImageURL)
	if avatarURL == "" && coverImageURL == "" {
		return nil, apperr.Invalid("avatar or cover image is required")
	}
	a, err := s.repo.UpdateImages(ctx, accountID, avatarURL, coverImageURL)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, oops.In("auth").With("account_id", accountID).Wrapf(err, "update account images")
	}
	return a.Profile(), nil
}

// issue signs a fresh access and refresh token for a.
func (s *AuthService) issue(a *domain.Account) (*Session, error) {
	access, err := s.tokens.IssueAccess(a.ID, security.Display{Handle: a.Handle, Email: a.Email, FullName: a.FullName})
	if err != nil {
		return nil, oops.In("auth").With("account_id", a.ID).Wrapf(err, "issue access token")
	}
	refresh, err := s.tokens.IssueRefresh(a.ID)
	if err != nil {
		return nil, oops.In("auth").With("account_id", a.ID).Wrapf(err, "issue refresh token")
	}
	return &Session{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
		Account:          a.Profile(),
	}, nil
}

func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash([]byte(dummyPassword))
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(s.dummyHash, []byte(password))
	}
}

func (s *AuthService) finish(ctx context.Context, span trace.Span, counter metric.Int64Counter, err error) {
	result := "ok"
	if err != nil {
		result = "internal"
		if k := apperr.Kind(err); k != nil {
			result = resultLabel(k)
		} else {
			s.logger.ErrorContext(ctx, "auth operation failed", "error", err)
		}
		span.SetStatus(otelcodes.Error, result)
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
	span.End()
}

func resultLabel(kind error) string {
	switch kind {
	case apperr.ErrInvalidInput:
		return "invalid_input"
	case apperr.ErrConflict:
		return "conflict"
	case apperr.ErrInvalidCredentials:
		return "invalid_credentials"
	case apperr.ErrUnauthorized:
		return "unauthorized"
	case apperr.ErrStaleRefreshToken:
		return "stale"
	default:
		return "rejected"
	}
}
