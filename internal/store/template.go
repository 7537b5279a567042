// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
)

const templateColumns = `id, event_id, name, background_url, elements, version, is_active, created_at, updated_at`

func scanTemplate(row scanner) (*models.Template, error) {
	t := &models.Template{}
	var elems []byte
	if err := row.Scan(
		&t.ID, &t.EventID, &t.Name, &t.BackgroundURL, &elems,
		&t.Version, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Elements = []models.TemplateElement{}
	if len(elems) > 0 {
		if err := json.Unmarshal(elems, &t.Elements); err != nil {
			return nil, fmt.Errorf("decode template elements: %w", err)
		}
	}
	return t, nil
}

func encodeElements(elems []models.TemplateElement) ([]byte, error) {
	if elems == nil {
		elems = []models.TemplateElement{}
	}
	data, err := json.Marshal(elems)
	if err != nil {
		return nil, fmt.Errorf("encode template elements: %w", err)
	}
	return data, nil
}

// TemplateStore handles certificate templates. An event has at most one
// active template; earlier versions stay as inactive rows.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// FindByID retrieves a template by its UUID. Returns nil if not found.
func (s *TemplateStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM certificate_templates WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB("find template by id", err)
	}
	return t, nil
}

// FindActiveByEvent returns the event's active template. Returns nil if
// the event has none.
func (s *TemplateStore) FindActiveByEvent(ctx context.Context, eventID uuid.UUID) (*models.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM certificate_templates
		WHERE event_id = $1 AND is_active
	`, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB("find active template", err)
	}
	return t, nil
}

// ListVersions returns every template ever created for an event, newest
// first.
func (s *TemplateStore) ListVersions(ctx context.Context, eventID uuid.UUID) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM certificate_templates
		WHERE event_id = $1 ORDER BY created_at DESC
	`, eventID)
	if err != nil {
		return nil, apperr.FromDB("list template versions", err)
	}
	defer rows.Close()

	out := []models.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Create inserts t as the event's active template, deactivating the
// previous one in the same transaction.
func (s *TemplateStore) Create(ctx context.Context, eventID uuid.UUID, t *models.Template) (*models.Template, error) {
	elems, err := encodeElements(t.Elements)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.FromDB("begin tx", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return nil, apperr.FromDB("check event", err)
	}
	if !exists {
		return nil, apperr.NotFound("event", eventID)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE certificate_templates SET is_active = FALSE, updated_at = NOW()
		WHERE event_id = $1 AND is_active
	`, eventID); err != nil {
		return nil, apperr.FromDB("deactivate templates", err)
	}

	created, err := scanTemplate(tx.QueryRowContext(ctx, `
		INSERT INTO certificate_templates (event_id, name, background_url, elements, version, is_active)
		VALUES ($1, $2, $3, $4, 1, TRUE)
		RETURNING `+templateColumns+`
	`, eventID, t.Name, t.BackgroundURL, elems))
	if err != nil {
		return nil, apperr.FromDB("create template", err)
	}
	if err := syncCertificateReady(ctx, tx, eventID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.FromDB("commit template", err)
	}
	return created, nil
}

// Update replaces a template's name, background and elements and
// increments its version.
func (s *TemplateStore) Update(ctx context.Context, id uuid.UUID, t *models.Template) (*models.Template, error) {
	elems, err := encodeElements(t.Elements)
	if err != nil {
		return nil, err
	}
	updated, err := scanTemplate(s.db.QueryRowContext(ctx, `
		UPDATE certificate_templates SET
			name = $1, background_url = $2, elements = $3,
			version = version + 1, updated_at = NOW()
		WHERE id = $4
		RETURNING `+templateColumns+`
	`, t.Name, t.BackgroundURL, elems, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("template", id)
	}
	if err != nil {
		return nil, apperr.FromDB("update template", err)
	}
	return updated, nil
}

// Delete hard-deletes a template and refreshes the event's certificate
// readiness. A template with live certificates is a conflict; their
// superseded history goes with the template.
func (s *TemplateStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.FromDB("begin tx", err)
	}
	defer tx.Rollback()

	var live int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issued_certificates WHERE template_id = $1 AND superseded_at IS NULL`, id).Scan(&live)
	if err != nil {
		return apperr.FromDB("count live certificates", err)
	}
	if live > 0 {
		return apperr.Conflict(fmt.Sprintf("template has %d live certificates; revoke them first", live))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM issued_certificates WHERE template_id = $1`, id); err != nil {
		return apperr.FromDB("delete superseded certificates", err)
	}

	var eventID uuid.UUID
	err = tx.QueryRowContext(ctx, `DELETE FROM certificate_templates WHERE id = $1 RETURNING event_id`, id).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("template", id)
	}
	if err != nil {
		return apperr.FromDB("delete template", err)
	}
	if err := syncCertificateReady(ctx, tx, eventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.FromDB("commit template delete", err)
	}
	return nil
}
