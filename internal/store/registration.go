// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
)

const registrationColumns = `id, event_id, user_name, user_email, user_college, user_department,
	registration_date, status, created_at, updated_at`

func scanRegistration(row scanner) (*models.Registration, error) {
	r := &models.Registration{}
	err := row.Scan(
		&r.ID, &r.EventID, &r.UserName, &r.UserEmail, &r.UserCollege, &r.UserDepartment,
		&r.RegistrationDate, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// RegistrationStore handles event registrations. Every mutation recomputes
// the owning event's participant count in the same transaction.
type RegistrationStore struct {
	db *sql.DB
}

// NewRegistrationStore creates a new RegistrationStore.
func NewRegistrationStore(db *sql.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// Register signs a participant up for an event. It returns a conflict
// error when the email already holds a live registration for the event or
// when the event is full.
func (s *RegistrationStore) Register(ctx context.Context, eventID uuid.UUID, info *models.RecipientInfo) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.FromDB("begin tx", err)
	}
	defer tx.Rollback()

	// Lock the event row so capacity checks are serialized per event.
	var max int
	err = tx.QueryRowContext(ctx, `SELECT max_participants FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&max)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("event", eventID)
	}
	if err != nil {
		return nil, apperr.FromDB("lock event", err)
	}

	var live int
	var duplicate bool
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(BOOL_OR(lower(user_email) = lower($2)), FALSE)
		FROM registrations
		WHERE event_id = $1 AND status <> 'cancelled'
	`, eventID, info.Email).Scan(&live, &duplicate)
	if err != nil {
		return nil, apperr.FromDB("count registrations", err)
	}
	if duplicate {
		return nil, apperr.Conflict("already registered for this event")
	}
	if max > 0 && live >= max {
		return nil, apperr.Conflict("event is full")
	}

	r, err := scanRegistration(tx.QueryRowContext(ctx, `
		INSERT INTO registrations (event_id, user_name, user_email, user_college, user_department)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+registrationColumns+`
	`, eventID, strings.TrimSpace(info.Name), strings.TrimSpace(info.Email), info.College, info.Department))
	if err != nil {
		return nil, apperr.FromDB("create registration", err)
	}
	if err := recount(ctx, tx, eventID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.FromDB("commit registration", err)
	}
	return r, nil
}

// FindByID retrieves a registration. Returns nil if not found.
func (s *RegistrationStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	r, err := scanRegistration(s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB("find registration by id", err)
	}
	return r, nil
}

// ListForEvent returns an event's registrations in sign-up order.
func (s *RegistrationStore) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	return s.list(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE event_id = $1 ORDER BY registration_date ASC
	`, eventID)
}

// ListAll returns every registration, newest first.
func (s *RegistrationStore) ListAll(ctx context.Context) ([]models.Registration, error) {
	return s.list(ctx, `
		SELECT `+registrationColumns+` FROM registrations ORDER BY registration_date DESC
	`)
}

func (s *RegistrationStore) list(ctx context.Context, query string, args ...any) ([]models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromDB("list registrations", err)
	}
	defer rows.Close()

	regs := []models.Registration{}
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *r)
	}
	return regs, rows.Err()
}

// UpdateStatus changes a registration's attendance status.
func (s *RegistrationStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RegistrationStatus) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.FromDB("begin tx", err)
	}
	defer tx.Rollback()

	r, err := scanRegistration(tx.QueryRowContext(ctx, `
		UPDATE registrations SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+registrationColumns+`
	`, status, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("registration", id)
	}
	if err != nil {
		return nil, apperr.FromDB("update registration status", err)
	}
	if err := recount(ctx, tx, r.EventID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.FromDB("commit registration status", err)
	}
	return r, nil
}

// Delete removes a registration.
func (s *RegistrationStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.FromDB("begin tx", err)
	}
	defer tx.Rollback()

	var eventID uuid.UUID
	err = tx.QueryRowContext(ctx, `DELETE FROM registrations WHERE id = $1 RETURNING event_id`, id).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("registration", id)
	}
	if err != nil {
		return apperr.FromDB("delete registration", err)
	}
	if err := recount(ctx, tx, eventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.FromDB("commit registration delete", err)
	}
	return nil
}

// UpsertLegacy inserts or refreshes a registration imported from the
// legacy project. Participant counts are not touched; callers recount
// once the import finishes.
func (s *RegistrationStore) UpsertLegacy(ctx context.Context, legacyID int64, r *models.Registration) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO registrations (legacy_id, event_id, user_name, user_email, user_college,
			user_department, registration_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (legacy_id) DO UPDATE SET
			user_name = EXCLUDED.user_name, user_email = EXCLUDED.user_email,
			user_college = EXCLUDED.user_college, user_department = EXCLUDED.user_department,
			status = EXCLUDED.status, updated_at = NOW()
		RETURNING id
	`, legacyID, r.EventID, r.UserName, r.UserEmail, r.UserCollege, r.UserDepartment,
		r.RegistrationDate, r.Status).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.FromDB("upsert legacy registration", err)
	}
	return id, nil
}
