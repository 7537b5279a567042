// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus tracks where an event is in its lifecycle.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
)

// Event is a college event that students can register for and that can
// carry one active certificate template.
type Event struct {
	ID                  uuid.UUID   `json:"id"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	DescriptionHTML     string      `json:"description_html,omitempty"`
	Date                string      `json:"date"`
	Time                string      `json:"time"`
	Location            string      `json:"location"`
	Category            string      `json:"category"`
	Organizer           string      `json:"organizer"`
	MaxParticipants     int         `json:"max_participants"`
	CurrentParticipants int         `json:"current_participants"`
	Status              EventStatus `json:"status"`
	CertificateReady    bool        `json:"certificate_ready"`
	ImageURL            *string     `json:"image_url,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// IsFull reports whether the event has reached its participant limit.
// A limit of zero means unlimited.
func (e *Event) IsFull() bool {
	return e.MaxParticipants > 0 && e.CurrentParticipants >= e.MaxParticipants
}

// EventForm is the writable subset of an event. Server-managed fields
// (participant count, certificate readiness, timestamps) are excluded.
type EventForm struct {
	Title           string      `json:"title" validate:"required,notblank,max=300"`
	Description     string      `json:"description" validate:"max=20000"`
	Date            string      `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string      `json:"time" validate:"omitempty,max=40"`
	Location        string      `json:"location" validate:"required,notblank,max=300"`
	Category        string      `json:"category" validate:"max=100"`
	Organizer       string      `json:"organizer" validate:"max=200"`
	MaxParticipants int         `json:"max_participants" validate:"gte=0"`
	Status          EventStatus `json:"status" validate:"omitempty,oneof=upcoming active completed"`
	ImageURL        *string     `json:"image_url" validate:"omitempty,url"`
}

// EventPatch is a partial event update; nil fields are left unchanged.
type EventPatch struct {
	Title           *string      `json:"title" validate:"omitempty,min=1,max=300"`
	Description     *string      `json:"description" validate:"omitempty,max=20000"`
	Date            *string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time            *string      `json:"time" validate:"omitempty,max=40"`
	Location        *string      `json:"location" validate:"omitempty,min=1,max=300"`
	Category        *string      `json:"category" validate:"omitempty,max=100"`
	Organizer       *string      `json:"organizer" validate:"omitempty,max=200"`
	MaxParticipants *int         `json:"max_participants" validate:"omitempty,gte=0"`
	Status          *EventStatus `json:"status" validate:"omitempty,oneof=upcoming active completed"`
	ImageURL        *string      `json:"image_url" validate:"omitempty,url"`
}

// Apply merges the non-nil fields of p into e.
func (p *EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Organizer != nil {
		e.Organizer = *p.Organizer
	}
	if p.MaxParticipants != nil {
		e.MaxParticipants = *p.MaxParticipants
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.ImageURL != nil {
		e.ImageURL = p.ImageURL
	}
}
