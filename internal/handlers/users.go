// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/middleware"
	"eventcert/internal/models"
)

// AccountStore is the user persistence behind account management.
type AccountStore interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	ResetTOTP(ctx context.Context, userID uuid.UUID) error
}

// AuditRecorder writes audit log entries.
type AuditRecorder interface {
	Record(ctx context.Context, actor uuid.UUID, entityType string, entityID uuid.UUID, action string)
}

// Users manages admin accounts. All routes are admin only.
type Users struct {
	accounts AccountStore
	audit    AuditRecorder
}

// NewUsers creates a new Users handler group.
func NewUsers(accounts AccountStore, audit AuditRecorder) *Users {
	return &Users{accounts: accounts, audit: audit}
}

type createUserRequest struct {
	Email       string      `json:"email" validate:"required,email,max=254"`
	Password    string      `json:"password" validate:"required,min=10,max=72"`
	DisplayName string      `json:"display_name" validate:"required,max=100"`
	Role        models.Role `json:"role" validate:"required,oneof=admin organizer"`
}

func (req *createUserRequest) normalize() {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
}

// List returns every account.
func (u *Users) List(w http.ResponseWriter, r *http.Request) {
	users, err := u.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list(users))
}

// Create adds an account. The new user sets up 2FA on first login.
func (u *Users) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := u.accounts.Create(r.Context(), req.Email, req.Password, req.DisplayName, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	by := actor(r)
	u.audit.Record(r.Context(), by.UserID, "user", user.ID, "create")
	slog.Info("user created", "admin", by.Email, "new_user", user.Email, "role", user.Role)
	respond(w, r, http.StatusCreated, user)
}

// Delete removes an account. Admins cannot delete themselves.
func (u *Users) Delete(w http.ResponseWriter, r *http.Request) {
	target, ok := u.target(w, r)
	if !ok {
		return
	}
	if err := u.accounts.Delete(r.Context(), target); err != nil {
		writeError(w, r, err)
		return
	}

	by := actor(r)
	u.audit.Record(r.Context(), by.UserID, "user", target, "delete")
	slog.Info("user deleted", "admin", by.Email, "target_user", target)
	w.WriteHeader(http.StatusNoContent)
}

// ResetTwoFA clears another user's TOTP secret, forcing setup on their
// next login. Existing sessions of that user are left to expire.
func (u *Users) ResetTwoFA(w http.ResponseWriter, r *http.Request) {
	target, ok := u.target(w, r)
	if !ok {
		return
	}
	if err := u.accounts.ResetTOTP(r.Context(), target); err != nil {
		writeError(w, r, err)
		return
	}

	by := actor(r)
	u.audit.Record(r.Context(), by.UserID, "user", target, "reset_2fa")
	slog.Info("2fa reset by admin", "admin", by.Email, "target_user", target)
	w.WriteHeader(http.StatusNoContent)
}

// target parses the {id} parameter and rejects the caller's own account.
func (u *Users) target(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return uuid.Nil, false
	}
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.UserID == id {
		writeError(w, r, apperr.Conflict("cannot modify your own account"))
		return uuid.Nil, false
	}
	return id, true
}
