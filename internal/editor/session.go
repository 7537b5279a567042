// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package editor implements the certificate template editing session: a
// working copy of a template, the current selection and a linear
// snapshot history for undo and redo.
//
// In-memory operations never fail. Operations that reference a missing
// element are no-ops and report false (or an empty id). Only Save talks to
// a store and can return an error.
//
// A Session is not safe for concurrent use; Manager serializes access.
package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/canvas"
	"eventcert/internal/models"
)

// DefaultHistoryLimit caps the number of snapshots a session keeps.
const DefaultHistoryLimit = 100

// DuplicateOffset is how far a duplicate is shifted from its original.
const DuplicateOffset = 20.0

// Direction moves an element one step in z-order.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// TemplateStore persists templates on Save.
type TemplateStore interface {
	Create(ctx context.Context, eventID uuid.UUID, t *models.Template) (*models.Template, error)
	Update(ctx context.Context, id uuid.UUID, t *models.Template) (*models.Template, error)
}

// snapshot is an immutable copy of the editable part of a template.
type snapshot struct {
	background *string
	elements   []models.TemplateElement
}

// Session is an editing session over one template.
type Session struct {
	working   *models.Template
	selection []string
	history   []snapshot
	index     int
	limit     int
	seq       int
}

// Option configures a Session.
type Option func(*Session)

// WithHistoryLimit caps history at n snapshots. Values below 1 select
// DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		if n >= 1 {
			s.limit = n
		}
	}
}

// NewSession starts a session on a copy of tmpl. A nil tmpl starts an
// empty, unsaved template for eventID. The initial state is the first
// history snapshot.
func NewSession(eventID uuid.UUID, tmpl *models.Template, opts ...Option) *Session {
	var working *models.Template
	if tmpl != nil {
		working = tmpl.Clone()
		working.Elements = sanitize(working.Background(), working.Elements)
		if working.EventID == uuid.Nil {
			working.EventID = eventID
		}
	} else {
		working = &models.Template{
			EventID:  eventID,
			Name:     "Certificate",
			Elements: []models.TemplateElement{},
		}
	}
	s := &Session{working: working, limit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(s)
	}
	s.history = []snapshot{s.capture()}
	return s
}

// sanitize drops elements the canvas codec cannot load so the session
// starts from a template that satisfies every invariant.
func sanitize(background string, elems []models.TemplateElement) []models.TemplateElement {
	scene, _ := canvas.Deserialize(background, elems)
	return canvas.Serialize(scene)
}

func (s *Session) capture() snapshot {
	snap := snapshot{elements: models.CloneElements(s.working.Elements)}
	if s.working.BackgroundURL != nil {
		bg := *s.working.BackgroundURL
		snap.background = &bg
	}
	return snap
}

func (s *Session) restore(snap snapshot) {
	s.working.Elements = models.CloneElements(snap.elements)
	s.working.BackgroundURL = nil
	if snap.background != nil {
		bg := *snap.background
		s.working.BackgroundURL = &bg
	}
	s.pruneSelection()
}

// push records the current working state, discarding any redo tail and
// evicting the oldest snapshot past the limit.
func (s *Session) push() {
	s.history = append(s.history[:s.index+1], s.capture())
	if len(s.history) > s.limit {
		drop := len(s.history) - s.limit
		s.history = append([]snapshot(nil), s.history[drop:]...)
	}
	s.index = len(s.history) - 1
}

// nextID returns a fresh "<kind>_<n>" id not present in the template.
func (s *Session) nextID(kind models.ElementKind) string {
	for {
		s.seq++
		id := fmt.Sprintf("%s_%d", kind, s.seq)
		if s.working.IndexOf(id) < 0 {
			return id
		}
	}
}

// AddElement appends a new element of kind with props merged over the
// kind's defaults, selects it alone and returns its id. An unknown kind
// is a no-op that returns "".
func (s *Session) AddElement(kind models.ElementKind, props *Props) string {
	if !kind.Valid() {
		return ""
	}
	e := defaults(kind)
	props.apply(&e)
	e.Kind = kind
	e = e.Normalize()
	if !e.Drawable() {
		return ""
	}
	e.ID = s.nextID(kind)

	s.working.Elements = append(s.working.Elements, e)
	s.selection = []string{e.ID}
	s.push()
	return e.ID
}

// UpdateElement merges props into the element with id. It reports whether
// anything changed; unknown ids and updates that change nothing push no
// history.
func (s *Session) UpdateElement(id string, props *Props) bool {
	i := s.working.IndexOf(id)
	if i < 0 {
		return false
	}
	old := s.working.Elements[i]
	e := old
	props.apply(&e)
	e.ID, e.Kind = old.ID, old.Kind
	e = e.Normalize()
	if e == old || !e.Drawable() {
		return false
	}
	s.working.Elements[i] = e
	s.push()
	return true
}

// DeleteSelected removes every selected element and clears the selection.
// It returns the number of elements removed.
func (s *Session) DeleteSelected() int {
	if len(s.selection) == 0 {
		return 0
	}
	selected := make(map[string]bool, len(s.selection))
	for _, id := range s.selection {
		selected[id] = true
	}
	kept := make([]models.TemplateElement, 0, len(s.working.Elements))
	for _, e := range s.working.Elements {
		if !selected[e.ID] {
			kept = append(kept, e)
		}
	}
	removed := len(s.working.Elements) - len(kept)
	s.selection = nil
	if removed == 0 {
		return 0
	}
	s.working.Elements = kept
	s.push()
	return removed
}

// Duplicate clones the element with id, shifts the clone by
// DuplicateOffset on both axes, inserts it directly above the original
// and selects it. It returns the clone's id or "" if id is unknown.
func (s *Session) Duplicate(id string) string {
	i := s.working.IndexOf(id)
	if i < 0 {
		return ""
	}
	c := s.working.Elements[i]
	c.ID = s.nextID(c.Kind)
	c.Position.X += DuplicateOffset
	c.Position.Y += DuplicateOffset

	elems := make([]models.TemplateElement, 0, len(s.working.Elements)+1)
	elems = append(elems, s.working.Elements[:i+1]...)
	elems = append(elems, c)
	elems = append(elems, s.working.Elements[i+1:]...)
	s.working.Elements = elems

	s.selection = []string{c.ID}
	s.push()
	return c.ID
}

// Reorder moves the element one step toward the front or the back. It is
// a no-op at either end of the list.
func (s *Session) Reorder(id string, dir Direction) bool {
	i := s.working.IndexOf(id)
	if i < 0 {
		return false
	}
	j := i
	switch dir {
	case Forward:
		j = i + 1
	case Backward:
		j = i - 1
	}
	if j == i || j < 0 || j >= len(s.working.Elements) {
		return false
	}
	elems := s.working.Elements
	elems[i], elems[j] = elems[j], elems[i]
	s.push()
	return true
}

// SetBackground replaces the background URL. An empty url removes it.
// Setting the current value again pushes no history.
func (s *Session) SetBackground(url string) bool {
	url = strings.TrimSpace(url)
	if url == s.working.Background() {
		return false
	}
	if url == "" {
		s.working.BackgroundURL = nil
	} else {
		s.working.BackgroundURL = &url
	}
	s.push()
	return true
}

// Select replaces the selection with the ids that exist, in the given
// order and without duplicates.
func (s *Session) Select(ids []string) {
	s.selection = nil
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || s.working.IndexOf(id) < 0 {
			continue
		}
		seen[id] = true
		s.selection = append(s.selection, id)
	}
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.selection = nil
}

func (s *Session) pruneSelection() {
	kept := s.selection[:0]
	for _, id := range s.selection {
		if s.working.IndexOf(id) >= 0 {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	s.selection = kept
}

// Undo steps back one snapshot. It reports false at the oldest snapshot.
func (s *Session) Undo() bool {
	if s.index <= 0 {
		return false
	}
	s.index--
	s.restore(s.history[s.index])
	return true
}

// Redo steps forward one snapshot. It reports false at the newest snapshot.
func (s *Session) Redo() bool {
	if s.index >= len(s.history)-1 {
		return false
	}
	s.index++
	s.restore(s.history[s.index])
	return true
}

// Checkpoint serializes the working template as it is right now. The
// result shares no memory with the session, so later edits do not leak
// into a save that is already in flight.
func (s *Session) Checkpoint() *models.Template {
	out := s.working.Clone()
	scene, _ := canvas.Deserialize(out.Background(), out.Elements)
	out.Elements = canvas.Serialize(scene)
	return out
}

// Commit adopts the identity and timestamps of a persisted template. The
// working elements, history and selection are left as they are.
func (s *Session) Commit(saved *models.Template) {
	if saved == nil {
		return
	}
	s.working.ID = saved.ID
	s.working.EventID = saved.EventID
	s.working.Version = saved.Version
	s.working.IsActive = saved.IsActive
	s.working.CreatedAt = saved.CreatedAt
	s.working.UpdatedAt = saved.UpdatedAt
}

// Rename sets the template name. It is metadata and not part of history.
func (s *Session) Rename(name string) {
	if name = strings.TrimSpace(name); name != "" {
		s.working.Name = name
	}
}

// Save persists the working template, creating it when it has no id yet
// and updating it otherwise. On error the session is unchanged.
func (s *Session) Save(ctx context.Context, store TemplateStore) (*models.Template, error) {
	saved, err := Persist(ctx, store, s.Checkpoint())
	if err != nil {
		return nil, err
	}
	s.Commit(saved)
	return saved, nil
}

// Persist writes a checkpoint to the store.
func Persist(ctx context.Context, store TemplateStore, t *models.Template) (*models.Template, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	if t.EventID == uuid.Nil {
		return nil, apperr.Validation("eventId", "eventId is required")
	}

	var (
		saved *models.Template
		err   error
	)
	if t.ID == uuid.Nil {
		saved, err = store.Create(ctx, t.EventID, t)
	} else {
		saved, err = store.Update(ctx, t.ID, t)
	}
	if err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	return saved, nil
}

// Template returns a copy of the working template.
func (s *Session) Template() *models.Template {
	return s.working.Clone()
}

// Selection returns a copy of the selected ids.
func (s *Session) Selection() []string {
	return append([]string(nil), s.selection...)
}

// HistoryIndex returns the cursor into history.
func (s *Session) HistoryIndex() int { return s.index }

// HistoryLen returns the number of snapshots kept.
func (s *Session) HistoryLen() int { return len(s.history) }

// State is a read-only view of a session for API responses.
type State struct {
	Template      *models.Template `json:"template"`
	Selection     []string         `json:"selection"`
	HistoryIndex  int              `json:"historyIndex"`
	HistoryLength int              `json:"historyLength"`
	CanUndo       bool             `json:"canUndo"`
	CanRedo       bool             `json:"canRedo"`
}

// State captures the current session state.
func (s *Session) State() State {
	sel := s.Selection()
	if sel == nil {
		sel = []string{}
	}
	return State{
		Template:      s.Template(),
		Selection:     sel,
		HistoryIndex:  s.index,
		HistoryLength: len(s.history),
		CanUndo:       s.index > 0,
		CanRedo:       s.index < len(s.history)-1,
	}
}
