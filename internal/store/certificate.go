// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
)

const certificateColumns = `id, template_id, event_id, recipient_id, recipient_name, recipient_email,
	issued_at, issued_by, artifact_url, status, superseded_at, updated_at`

func scanCertificate(row scanner) (*models.IssuedCertificate, error) {
	c := &models.IssuedCertificate{}
	err := row.Scan(
		&c.ID, &c.TemplateID, &c.EventID, &c.RecipientID, &c.RecipientName, &c.RecipientEmail,
		&c.IssuedAt, &c.IssuedBy, &c.ArtifactURL, &c.Status, &c.SupersededAt, &c.UpdatedAt,
	)
	return c, err
}

// CertificateStore handles issued certificate records.
type CertificateStore struct {
	db *sql.DB
}

// NewCertificateStore creates a new CertificateStore.
func NewCertificateStore(db *sql.DB) *CertificateStore {
	return &CertificateStore{db: db}
}

// Issue inserts c as pending and supersedes every earlier live record for
// the same template and recipient in one transaction.
func (s *CertificateStore) Issue(ctx context.Context, c *models.IssuedCertificate) (*models.IssuedCertificate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.FromDB("begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE issued_certificates SET superseded_at = NOW(), updated_at = NOW()
		WHERE template_id = $1 AND recipient_id = $2 AND superseded_at IS NULL
	`, c.TemplateID, c.RecipientID); err != nil {
		return nil, apperr.FromDB("supersede certificates", err)
	}

	created, err := scanCertificate(tx.QueryRowContext(ctx, `
		INSERT INTO issued_certificates (template_id, event_id, recipient_id, recipient_name,
			recipient_email, issued_at, issued_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING `+certificateColumns+`
	`, c.TemplateID, c.EventID, c.RecipientID, c.RecipientName, c.RecipientEmail, c.IssuedAt, c.IssuedBy))
	if err != nil {
		return nil, apperr.FromDB("insert certificate", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.FromDB("commit certificate", err)
	}
	return created, nil
}

// FindByID retrieves a certificate, superseded or not. Returns nil if not found.
func (s *CertificateStore) FindByID(ctx context.Context, id uuid.UUID) (*models.IssuedCertificate, error) {
	c, err := scanCertificate(s.db.QueryRowContext(ctx, `
		SELECT `+certificateColumns+` FROM issued_certificates WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB("find certificate by id", err)
	}
	return c, nil
}

// Transition moves a live record from one status to another. It returns
// (nil, nil) when the record is missing, superseded or not in status from.
// A nil artifactURL keeps the stored one.
func (s *CertificateStore) Transition(ctx context.Context, id uuid.UUID, from, to models.CertificateStatus, artifactURL *string) (*models.IssuedCertificate, error) {
	c, err := scanCertificate(s.db.QueryRowContext(ctx, `
		UPDATE issued_certificates SET
			status = $1, artifact_url = COALESCE($2, artifact_url), updated_at = NOW()
		WHERE id = $3 AND status = $4 AND superseded_at IS NULL
		RETURNING `+certificateColumns+`
	`, to, artifactURL, id, from))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB("transition certificate", err)
	}
	return c, nil
}

// Delete hard-deletes a certificate.
func (s *CertificateStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM issued_certificates WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB("delete certificate", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("certificate", id)
	}
	return nil
}

// ListForEvent returns an event's live certificates, most recently
// changed first.
func (s *CertificateStore) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.IssuedCertificate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+certificateColumns+` FROM issued_certificates
		WHERE event_id = $1 AND superseded_at IS NULL
		ORDER BY updated_at DESC
	`, eventID)
	if err != nil {
		return nil, apperr.FromDB("list certificates", err)
	}
	defer rows.Close()

	out := []models.IssuedCertificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
