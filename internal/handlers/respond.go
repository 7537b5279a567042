// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers for the eventcert API.
// Handlers are grouped by concern (public, auth, admin events, editor,
// issuance) and receive their dependencies through the handler struct.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/issuance"
	"eventcert/internal/middleware"
	"eventcert/internal/validate"
)

// maxJSONBody bounds request bodies decoded as JSON.
const maxJSONBody = 1 << 20

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respond writes v as JSON with the given status.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// fail writes a JSON error with an explicit status.
func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respond(w, r, status, errorResponse{Error: msg})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into a JSON error response. Unclassified
// errors are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		body.Error = apperr.ErrValidation.Error()
		body.Fields = verr.Fields
	}

	switch status {
	case http.StatusInternalServerError:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = "internal server error"
	case http.StatusServiceUnavailable:
		slog.Warn("dependency unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = "service temporarily unavailable"
		w.Header().Set("Retry-After", "5")
	}
	respond(w, r, status, body)
}

// decode reads a JSON body into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return apperr.Validation("body", "malformed JSON: "+err.Error())
	}
	if n, ok := v.(normalizer); ok {
		n.normalize()
	}
	return validate.Struct(v)
}

// normalizer is implemented by request bodies that clean their fields
// before validation.
type normalizer interface {
	normalize()
}

// uuidParam parses a chi URL parameter as a UUID.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation(name, "must be a UUID")
	}
	return id, nil
}

// actor builds the issuing identity from the request's admin session.
// The router guarantees a session on admin routes.
func actor(r *http.Request) issuance.Actor {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return issuance.Actor{}
	}
	return issuance.Actor{UserID: sess.UserID, Email: sess.Email}
}

// listResponse wraps collections so the payload can grow fields later.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}
