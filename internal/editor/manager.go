// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/models"
)

// DefaultIdleTimeout is how long an untouched session is kept.
const DefaultIdleTimeout = 2 * time.Hour

// entry guards one session. mu serializes edits; saveMu serializes saves
// so a second save always sees the id assigned by the first.
type entry struct {
	mu       sync.Mutex
	saveMu   sync.Mutex
	session  *Session
	owner    uuid.UUID
	lastUsed time.Time
}

// Manager keeps open editor sessions in memory for the HTTP layer.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	store        TemplateStore
	historyLimit int
	idleTimeout  time.Duration
	now          func() time.Time
}

// NewManager creates a session manager that saves through store.
func NewManager(store TemplateStore, historyLimit int, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		sessions:     make(map[string]*entry),
		store:        store,
		historyLimit: historyLimit,
		idleTimeout:  idleTimeout,
		now:          time.Now,
	}
}

// Open starts a session for owner on tmpl (nil for a new template) and
// returns its id.
func (m *Manager) Open(owner, eventID uuid.UUID, tmpl *models.Template) (string, State) {
	s := NewSession(eventID, tmpl, WithHistoryLimit(m.historyLimit))
	id := uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = &entry{session: s, owner: owner, lastUsed: m.now()}
	m.mu.Unlock()

	slog.Info("editor session opened", "session_id", id, "event_id", eventID, "template_id", s.working.ID)
	return id, s.State()
}

func (m *Manager) get(id string, owner uuid.UUID) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.owner != owner {
		return nil, apperr.NotFound("editor session", id)
	}
	e.lastUsed = m.now()
	return e, nil
}

// Do runs fn with exclusive access to the session and returns the state
// after it ran.
func (m *Manager) Do(id string, owner uuid.UUID, fn func(*Session)) (State, error) {
	e, err := m.get(id, owner)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		fn(e.session)
	}
	return e.session.State(), nil
}

// Save persists the session. The template is captured under the session
// lock and written without holding it, so edits made while the store call
// is in flight are allowed and belong to the next save.
func (m *Manager) Save(ctx context.Context, id string, owner uuid.UUID) (*models.Template, error) {
	e, err := m.get(id, owner)
	if err != nil {
		return nil, err
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	checkpoint := e.session.Checkpoint()
	e.mu.Unlock()

	saved, err := Persist(ctx, m.store, checkpoint)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.session.Commit(saved)
	e.mu.Unlock()

	slog.Info("editor session saved", "session_id", id, "template_id", saved.ID, "version", saved.Version)
	return saved, nil
}

// Close discards a session without saving.
func (m *Manager) Close(id string, owner uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.owner != owner {
		return apperr.NotFound("editor session", id)
	}
	delete(m.sessions, id)
	slog.Info("editor session closed", "session_id", id)
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep discards sessions idle for longer than the idle timeout and
// returns how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTimeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("idle editor sessions discarded", "count", removed)
	}
	return removed
}

// Run sweeps idle sessions periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.idleTimeout / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
