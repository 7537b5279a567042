// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the attendance state of a registration.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Registration records a participant signing up for an event. Each
// registration is a potential certificate recipient.
type Registration struct {
	ID               uuid.UUID          `json:"id"`
	EventID          uuid.UUID          `json:"event_id"`
	UserName         string             `json:"user_name"`
	UserEmail        string             `json:"user_email"`
	UserCollege      string             `json:"user_college"`
	UserDepartment   string             `json:"user_department"`
	RegistrationDate time.Time          `json:"registration_date"`
	Status           RegistrationStatus `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// RecipientInfo is what a participant submits when registering.
type RecipientInfo struct {
	Name       string `json:"name" validate:"required,notblank,max=200"`
	Email      string `json:"email" validate:"required,email,max=320"`
	College    string `json:"college" validate:"max=200"`
	Department string `json:"department" validate:"max=200"`
}

// StatusUpdate is the admin request to change a registration's status.
type StatusUpdate struct {
	Status RegistrationStatus `json:"status" validate:"required,oneof=attended cancelled"`
}
