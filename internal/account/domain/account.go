package domain

import (
	"net/mail"
	"strings"
	"time"

	"videotube/backend/internal/apperr"
)

// Account is the credential-bearing user record. PasswordHash and
// RefreshTokenHash never leave the service; use Profile for responses.
type Account struct {
	ID            string
	Handle        string // unique, lower-case
	Email         string // unique, lower-case
	FullName      string
	AvatarURL     string // opaque; set by the media collaborator
	CoverImageURL string // opaque
	PasswordHash  string
	// RefreshTokenHash is the SHA-256 of the single outstanding refresh token; empty means no session.
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile is an Account without secret fields.
type Profile struct {
	ID            string    `json:"_id"`
	Handle        string    `json:"userName"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Profile returns the public view of a.
func (a *Account) Profile() *Profile {
	if a == nil {
		return nil
	}
	return &Profile{
		ID:            a.ID,
		Handle:        a.Handle,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// HasSession reports whether a refresh token is outstanding.
func (a *Account) HasSession() bool {
	return a.RefreshTokenHash != ""
}

// NormalizeHandle trims and lower-cases a handle.
func NormalizeHandle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks the identity fields of a. Fields are expected to be normalized.
func (a *Account) Validate() error {
	if a.Handle == "" {
		return apperr.Invalid("username is required")
	}
	if strings.ContainsAny(a.Handle, " \t\r\n@") {
		return apperr.Invalid("username must not contain whitespace or @")
	}
	if err := ValidateEmail(a.Email); err != nil {
		return err
	}
	if strings.TrimSpace(a.FullName) == "" {
		return apperr.Invalid("full name is required")
	}
	return nil
}

// ValidateEmail rejects empty or unparsable addresses.
func ValidateEmail(email string) error {
	if email == "" {
		return apperr.Invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Invalid("invalid email format")
	}
	return nil
}
