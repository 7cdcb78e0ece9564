// Package handler exposes the session authority over HTTP under /api/v1/users.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"videotube/backend/internal/account/domain"
	"videotube/backend/internal/apperr"
	"videotube/backend/internal/identity/service"
	"videotube/backend/internal/server/interceptors"
	"videotube/backend/internal/server/respond"
)

// RefreshCookieName carries the refresh token; the access token uses interceptors.AccessCookieName.
const RefreshCookieName = "refreshToken"

const maxBodyBytes = 1 << 20

// AuthService is the subset of *service.AuthService the handlers call.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.Profile, error)
	Login(ctx context.Context, identifier, password string) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*service.Session, error)
	Logout(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	CurrentAccount(ctx context.Context, accountID string) (*domain.Profile, error)
	UpdateAccountDetails(ctx context.Context, accountID, fullName, email string) (*domain.Profile, error)
	UpdateImages(ctx context.Context, accountID, avatarURL, coverImageURL string) (*domain.Profile, error)
}

// UserHandler serves the account and session endpoints.
type UserHandler struct {
	svc          AuthService
	logger       *slog.Logger
	cookieSecure bool
}

// NewUserHandler returns handlers backed by svc. cookieSecure sets the Secure flag on session cookies.
func NewUserHandler(svc AuthService, logger *slog.Logger, cookieSecure bool) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{svc: svc, logger: logger, cookieSecure: cookieSecure}
}

// Routes mounts the public endpoints on r and the rest behind authn.
func (h *UserHandler) Routes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh-token", h.RefreshToken)
	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Post("/logout", h.Logout)
		r.Post("/change-password", h.ChangePassword)
		r.Get("/current-user", h.CurrentUser)
		r.Patch("/update-account-details", h.UpdateAccountDetails)
		r.Patch("/user-avatar", h.UpdateAvatar)
		r.Patch("/user-cover-image", h.UpdateCoverImage)
	})
}

type registerRequest struct {
	UserName   string `json:"userName"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Password   string `json:"password"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

type loginRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type avatarRequest struct {
	Avatar string `json:"avatar"`
}

type coverImageRequest struct {
	CoverImage string `json:"coverImage"`
}

type updateDetailsRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// SessionResponse is the body of login and refresh-token.
type SessionResponse struct {
	User         *domain.Profile `json:"user,omitempty"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	p, err := h.svc.Register(r.Context(), service.RegisterInput{
		Handle:        req.UserName,
		Email:         req.Email,
		FullName:      req.FullName,
		Password:      req.Password,
		AvatarURL:     req.Avatar,
		CoverImageURL: req.CoverImage,
	})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, p, "User registered successfully")
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	identifier := req.UserName
	if identifier == "" {
		identifier = req.Email
	}
	sess, err := h.svc.Login(r.Context(), identifier, req.Password)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	h.setSessionCookies(w, sess)
	respond.JSON(w, http.StatusOK, SessionResponse{
		User: sess.Account, AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken,
	}, "User logged in successfully")
}

func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decode(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
			respond.Error(w, r, h.logger, err)
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	sess, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	h.setSessionCookies(w, sess)
	respond.JSON(w, http.StatusOK, SessionResponse{
		AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken,
	}, "Access token refreshed")
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	accountID, ok := interceptors.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	if err := h.svc.Logout(r.Context(), accountID); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	h.clearSessionCookies(w)
	respond.JSON(w, http.StatusOK, struct{}{}, "User logged out")
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := interceptors.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), accountID, req.OldPassword, req.NewPassword); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	accountID, ok := interceptors.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	p, err := h.svc.CurrentAccount(r.Context(), accountID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p, "Current user fetched successfully")
}

func (h *UserHandler) UpdateAccountDetails(w http.ResponseWriter, r *http.Request) {
	accountID, ok := interceptors.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	var req updateDetailsRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	p, err := h.svc.UpdateAccountDetails(r.Context(), accountID, req.FullName, req.Email)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p, "Account details updated successfully")
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var req avatarRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Avatar) == "" {
		respond.Error(w, r, h.logger, apperr.Invalid("avatar is required"))
		return
	}
	h.updateImages(w, r, req.Avatar, "", "Avatar image updated successfully")
}

func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	var req coverImageRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.CoverImage) == "" {
		respond.Error(w, r, h.logger, apperr.Invalid("cover image is required"))
		return
	}
	h.updateImages(w, r, "", req.CoverImage, "Cover image updated successfully")
}

func (h *UserHandler) updateImages(w http.ResponseWriter, r *http.Request, avatarURL, coverImageURL, message string) {
	accountID, ok := interceptors.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	p, err := h.svc.UpdateImages(r.Context(), accountID, avatarURL, coverImageURL)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p, message)
}

func (h *UserHandler) setSessionCookies(w http.ResponseWriter, sess *service.Session) {
	http.SetCookie(w, h.cookie(interceptors.AccessCookieName, sess.AccessToken, sess.AccessExpiresAt))
	http.SetCookie(w, h.cookie(RefreshCookieName, sess.RefreshToken, sess.RefreshExpiresAt))
}

func (h *UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{interceptors.AccessCookieName, RefreshCookieName} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h *UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

var errEmptyBody = apperr.Invalid("request body is required")

func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	if err != nil {
		return apperr.Invalid("invalid JSON body")
	}
	return nil
}
