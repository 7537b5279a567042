// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// CertificateStatus is the delivery state of an issued certificate.
// Transitions are linear: pending -> issued -> sent.
type CertificateStatus string

const (
	CertificatePending CertificateStatus = "pending"
	CertificateIssued  CertificateStatus = "issued"
	CertificateSent    CertificateStatus = "sent"
)

// next maps each status to the only status it may move to.
var next = map[CertificateStatus]CertificateStatus{
	CertificatePending: CertificateIssued,
	CertificateIssued:  CertificateSent,
}

// CanTransition reports whether a certificate may move from s to to.
func (s CertificateStatus) CanTransition(to CertificateStatus) bool {
	n, ok := next[s]
	return ok && n == to
}

// IssuedCertificate tracks one recipient's certificate for a template.
type IssuedCertificate struct {
	ID             uuid.UUID         `json:"id"`
	TemplateID     uuid.UUID         `json:"template_id"`
	EventID        uuid.UUID         `json:"event_id"`
	RecipientID    uuid.UUID         `json:"recipient_id"`
	RecipientName  string            `json:"recipient_name"`
	RecipientEmail string            `json:"recipient_email"`
	IssuedAt       time.Time         `json:"issued_at"`
	IssuedBy       uuid.UUID         `json:"issued_by"`
	ArtifactURL    *string           `json:"artifact_url"`
	Status         CertificateStatus `json:"status"`
	SupersededAt   *time.Time        `json:"superseded_at,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Superseded reports whether a newer issuance replaced this record.
func (c *IssuedCertificate) Superseded() bool {
	return c.SupersededAt != nil
}
