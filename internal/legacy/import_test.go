// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package legacy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcert/internal/models"
)

type staticSource struct {
	events []Event
	regs   []Registration
}

func (s staticSource) Events(context.Context) ([]Event, error)               { return s.events, nil }
func (s staticSource) Registrations(context.Context) ([]Registration, error) { return s.regs, nil }

type fakeEvents struct {
	byLegacy  map[int64]uuid.UUID
	saved     map[uuid.UUID]*models.Event
	recounted int
	failOn    int64
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{byLegacy: map[int64]uuid.UUID{}, saved: map[uuid.UUID]*models.Event{}}
}

func (f *fakeEvents) UpsertLegacy(_ context.Context, legacyID int64, e *models.Event) (uuid.UUID, error) {
	if legacyID == f.failOn {
		return uuid.Nil, errors.New("connection reset")
	}
	id, ok := f.byLegacy[legacyID]
	if !ok {
		id = uuid.New()
		f.byLegacy[legacyID] = id
	}
	f.saved[id] = e
	return id, nil
}

func (f *fakeEvents) RecountAll(context.Context) error {
	f.recounted++
	return nil
}

type fakeRegistrations struct {
	byLegacy map[int64]*models.Registration
}

func (f *fakeRegistrations) UpsertLegacy(_ context.Context, legacyID int64, r *models.Registration) (uuid.UUID, error) {
	f.byLegacy[legacyID] = r
	return uuid.New(), nil
}

func strp(s string) *string { return &s }

func fixture() staticSource {
	created := time.Date(2025, 1, 5, 9, 30, 0, 0, time.UTC)
	return staticSource{
		events: []Event{
			{ID: 1, Title: " Tech Talk ", Date: "2025-02-10T00:00:00", Status: "completed", Location: strp("Aula"), CreatedAt: created},
			{ID: 2, Title: "Mystery", Date: "2025-03-01", Status: "postponed"},
			{ID: 3, Title: "", Date: "2025-03-02"},
		},
		regs: []Registration{
			{ID: 10, EventID: 1, UserName: "Ana", UserEmail: "ana@college.edu", Status: "attended"},
			{ID: 11, EventID: 1, UserName: "Bob", UserEmail: " bob@college.edu ", Status: "weird"},
			{ID: 12, EventID: 3, UserName: "Cid", UserEmail: "cid@college.edu"},
			{ID: 13, EventID: 2, UserName: "Dan", UserEmail: ""},
		},
	}
}

func TestImport(t *testing.T) {
	events := newFakeEvents()
	regs := &fakeRegistrations{byLegacy: map[int64]*models.Registration{}}

	sum, err := Import(t.Context(), fixture(), events, regs)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Events)
	assert.Equal(t, 2, sum.Registrations)
	// Event 3 has no title; registration 12 points at it and 13 has no email.
	assert.Equal(t, 3, sum.Skipped)
	assert.Equal(t, 1, events.recounted)

	talk := events.saved[events.byLegacy[1]]
	require.NotNil(t, talk)
	assert.Equal(t, "Tech Talk", talk.Title)
	assert.Equal(t, "2025-02-10", talk.Date)
	assert.Equal(t, models.EventCompleted, talk.Status)
	assert.Equal(t, "Aula", talk.Location)

	mystery := events.saved[events.byLegacy[2]]
	assert.Equal(t, models.EventUpcoming, mystery.Status)
	assert.False(t, mystery.CreatedAt.IsZero())

	ana := regs.byLegacy[10]
	require.NotNil(t, ana)
	assert.Equal(t, events.byLegacy[1], ana.EventID)
	assert.Equal(t, models.RegistrationAttended, ana.Status)
	assert.Equal(t, "bob@college.edu", regs.byLegacy[11].UserEmail)
	assert.Equal(t, models.RegistrationRegistered, regs.byLegacy[11].Status)
}

func TestImportIsRepeatable(t *testing.T) {
	events := newFakeEvents()
	regs := &fakeRegistrations{byLegacy: map[int64]*models.Registration{}}

	_, err := Import(t.Context(), fixture(), events, regs)
	require.NoError(t, err)
	first := events.byLegacy[1]

	_, err = Import(t.Context(), fixture(), events, regs)
	require.NoError(t, err)
	assert.Equal(t, first, events.byLegacy[1])
	assert.Len(t, events.saved, 2)
}

func TestImportStopsOnStoreError(t *testing.T) {
	events := newFakeEvents()
	events.failOn = 2
	regs := &fakeRegistrations{byLegacy: map[int64]*models.Registration{}}

	sum, err := Import(t.Context(), fixture(), events, regs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import event 2")
	assert.Equal(t, 1, sum.Events)
	assert.Empty(t, regs.byLegacy)
	assert.Zero(t, events.recounted)
}
