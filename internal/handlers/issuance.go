// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"eventcert/internal/issuance"
	"eventcert/internal/models"
)

// Issuance exposes the certificate workflow: batch issue, artifact
// rendering, delivery and revocation.
type Issuance struct {
	workflow  *issuance.Workflow
	generator *issuance.Generator
	delivery  *issuance.Delivery
}

// NewIssuance creates a new Issuance handler group. generator and delivery
// are nil when object storage is not configured.
func NewIssuance(workflow *issuance.Workflow, generator *issuance.Generator, delivery *issuance.Delivery) *Issuance {
	return &Issuance{workflow: workflow, generator: generator, delivery: delivery}
}

type issueRequest struct {
	RecipientIDs []uuid.UUID `json:"recipient_ids" validate:"required,min=1,max=1000"`
}

type issueResponse struct {
	*issuance.Batch
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type markIssuedRequest struct {
	ArtifactURL string `json:"artifact_url" validate:"required,url"`
}

type certificateResponse struct {
	*models.IssuedCertificate
	DownloadURL string `json:"download_url,omitempty"`
}

// Issue creates pending certificates for a batch of registrations. The
// response reports each recipient's outcome in request order; the
// request itself succeeds even when some recipients fail.
func (h *Issuance) Issue(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req issueRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	batch, err := h.workflow.Issue(r.Context(), actor(r), templateID, req.RecipientIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok := batch.Succeeded()
	slog.Info("certificates issued", "template_id", templateID, "succeeded", ok, "failed", len(batch.Outcomes)-ok)

	status := http.StatusCreated
	if ok < len(batch.Outcomes) {
		status = http.StatusMultiStatus
	}
	respond(w, r, status, issueResponse{Batch: batch, Succeeded: ok, Failed: len(batch.Outcomes) - ok})
}

// ListForEvent lists the live certificates of an event, newest first.
func (h *Issuance) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	certs, err := h.workflow.ListForEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list(certs))
}

// Get returns one certificate with a fresh download link when it has an
// artifact.
func (h *Issuance) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cert, err := h.workflow.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := certificateResponse{IssuedCertificate: cert}
	if cert.ArtifactURL != nil && h.delivery != nil {
		link, err := h.delivery.DownloadLink(r.Context(), cert)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.DownloadURL = link
	}
	respond(w, r, http.StatusOK, resp)
}

// Render draws a pending certificate, stores the PNG and marks it issued.
func (h *Issuance) Render(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.generator == nil {
		fail(w, r, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	cert, err := h.generator.Generate(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, cert)
}

// MarkIssued records an artifact produced outside this service.
func (h *Issuance) MarkIssued(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req markIssuedRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cert, err := h.workflow.MarkIssued(r.Context(), actor(r), id, req.ArtifactURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, cert)
}

// Send emails an issued certificate to its recipient and marks it sent.
func (h *Issuance) Send(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.delivery == nil {
		fail(w, r, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	cert, err := h.delivery.Send(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, cert)
}

// Revoke deletes a certificate record and, when storage is configured,
// its rendered artifact.
func (h *Issuance) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	revoke := h.workflow.Revoke
	if h.generator != nil {
		revoke = h.generator.Revoke
	}
	if err := revoke(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
