// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"eventcert/internal/apperr"
	"eventcert/internal/middleware"
	"eventcert/internal/models"
	"eventcert/internal/session"
)

// totpIssuer is the issuer shown in authenticator apps.
const totpIssuer = "EventCert"

// SessionStore creates, updates and destroys admin sessions.
type SessionStore interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// UserStore is the admin account persistence used by Auth.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions  SessionStore
	userStore UserStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions SessionStore, userStore UserStore) *Auth {
	return &Auth{sessions: sessions, userStore: userStore}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (req *loginRequest) normalize() {
	req.Email = strings.TrimSpace(req.Email)
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Next steps returned by Login.
const (
	next2FASetup  = "2fa_setup"
	next2FAVerify = "2fa_verify"
)

type loginResponse struct {
	Next string       `json:"next"`
	User *models.User `json:"user"`
}

type setupResponse struct {
	QRCode string `json:"qr_code"` // base64 PNG
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

type meResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	TwoFADone   bool      `json:"two_fa_done"`
}

// Login checks credentials and starts a session that still needs the
// second factor. The response tells the client which 2FA step follows.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := a.userStore.FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !a.userStore.CheckPassword(user, req.Password) {
		slog.Warn("login failed", "email", req.Email)
		fail(w, r, http.StatusUnauthorized, "invalid email or password")
		return
	}

	// TwoFADone starts as false; the user must complete 2FA.
	if _, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
	}); err != nil {
		writeError(w, r, err)
		return
	}

	next := next2FAVerify
	if user.Needs2FASetup() {
		next = next2FASetup
	}
	slog.Info("login accepted", "user_id", user.ID, "next", next)
	respond(w, r, http.StatusOK, loginResponse{Next: next, User: user})
}

// TwoFASetup generates a TOTP secret for a user who has not enrolled yet
// and returns it with a QR code.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	user, err := a.currentUser(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.TOTPEnabled {
		writeError(w, r, apperr.Conflict("two-factor authentication is already enabled"))
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.userStore.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		writeError(w, r, err)
		return
	}

	qr, err := qrPNG(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, setupResponse{QRCode: qr, Secret: key.Secret(), URL: key.URL()})
}

// TwoFAVerify validates a TOTP code, enables 2FA on first use and marks
// the session as fully authenticated.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	var req verifyRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := a.currentUser(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.TOTPSecret == nil {
		writeError(w, r, apperr.Conflict("two-factor setup has not been started"))
		return
	}
	if !totp.Validate(req.Code, *user.TOTPSecret) {
		slog.Warn("2fa code rejected", "user_id", user.ID)
		writeError(w, r, apperr.Validation("code", "invalid code"))
		return
	}

	if !user.TOTPEnabled {
		if err := a.userStore.EnableTOTP(r.Context(), user.ID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, me(sess))
}

// Me describes the current session.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, me(middleware.SessionFromCtx(r.Context())))
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Auth) currentUser(ctx context.Context, sess *session.Data) (*models.User, error) {
	if sess == nil {
		return nil, apperr.NotFound("session", "current")
	}
	user, err := a.userStore.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user", sess.UserID)
	}
	return user, nil
}

func me(sess *session.Data) meResponse {
	return meResponse{
		UserID:      sess.UserID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		Role:        sess.Role,
		TwoFADone:   sess.TwoFADone,
	}
}

// qrPNG renders the otpauth URL as a base64 encoded PNG.
func qrPNG(key *otp.Key) (string, error) {
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
