// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error taxonomy shared by the stores, the
// issuance workflow and the HTTP layer. Every error produced at a
// collaborator boundary unwraps to exactly one of the sentinels below so
// callers can branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors. Use errors.Is to classify.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrTransient    = errors.New("store unavailable")
	ErrInvalidState = errors.New("invalid state transition")
)

// Postgres SQLSTATEs that mean the caller asked for something the data
// does not allow.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// ValidationError reports one message per offending field. Field names
// are the JSON names clients sent.
type ValidationError struct {
	Fields map[string]string
}

// Validation builds a ValidationError for a single field.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError reports a workflow transition that is not allowed
// from the record's current state.
type InvalidStateError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: cannot move %s from %q to %q", ErrInvalidState, e.Entity, e.From, e.To)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NotFound wraps ErrNotFound with the entity name and id.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// Conflict wraps ErrConflict with a human readable reason.
func Conflict(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrConflict)
}

// FromDB classifies a database driver error. Unique and foreign key
// violations become ErrConflict; everything else is treated as transient. A nil error
// stays nil.
func FromDB(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == uniqueViolation || pgErr.Code == foreignKeyViolation) {
		return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// Classified reports whether err already carries one of the taxonomy
// sentinels.
func Classified(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrInvalidState)
}
