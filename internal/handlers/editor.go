// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventcert/internal/apperr"
	"eventcert/internal/canvas"
	"eventcert/internal/editor"
	"eventcert/internal/imaging"
	"eventcert/internal/issuance"
	"eventcert/internal/middleware"
	"eventcert/internal/models"
	"eventcert/internal/validate"
)

// EventCache drops cached public responses of an event.
type EventCache interface {
	InvalidateEvent(ctx context.Context, eventID uuid.UUID)
}

// Editor exposes editor sessions over HTTP. Sessions live in the manager
// and belong to the admin who opened them.
type Editor struct {
	manager   *editor.Manager
	events    EventStore
	templates TemplateStore
	renderer  issuance.Renderer
	cache     EventCache // may be nil
}

// NewEditor creates a new Editor handler group. Saving a template changes
// the event's certificate_ready flag, so saves invalidate responses.
func NewEditor(manager *editor.Manager, events EventStore, templates TemplateStore, renderer issuance.Renderer, responses EventCache) *Editor {
	return &Editor{manager: manager, events: events, templates: templates, renderer: renderer, cache: responses}
}

type openResponse struct {
	SessionID string       `json:"session_id"`
	State     editor.State `json:"state"`
}

type addElementRequest struct {
	Kind  models.ElementKind `json:"kind" validate:"required"`
	Props *editor.Props      `json:"props"`
}

type elementResponse struct {
	ElementID string       `json:"element_id"`
	State     editor.State `json:"state"`
}

type deleteResponse struct {
	Deleted int          `json:"deleted"`
	State   editor.State `json:"state"`
}

type reorderRequest struct {
	Direction editor.Direction `json:"direction" validate:"required,oneof=forward backward"`
}

type selectionRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

type backgroundRequest struct {
	URL string `json:"url" validate:"omitempty,url"`
}

type saveRequest struct {
	Name string `json:"name" validate:"omitempty,max=200"`
}

// owner is the admin who owns sessions opened by this request.
func owner(r *http.Request) uuid.UUID {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		return sess.UserID
	}
	return uuid.Nil
}

// Open starts an editor session on the event's active template, or on a
// blank template when the event has none yet.
func (e *Editor) Open(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	event, err := e.events.FindByID(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if event == nil {
		writeError(w, r, apperr.NotFound("event", eventID))
		return
	}
	tmpl, err := e.templates.FindActiveByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tmpl == nil {
		tmpl = &models.Template{EventID: eventID, Name: event.Title + " Certificate"}
	}

	id, state := e.manager.Open(owner(r), eventID, tmpl)
	respond(w, r, http.StatusCreated, openResponse{SessionID: id, State: state})
}

// do runs fn on the session named in the URL and writes the new state.
func (e *Editor) do(w http.ResponseWriter, r *http.Request, status int, fn func(*editor.Session)) {
	state, err := e.manager.Do(chi.URLParam(r, "sid"), owner(r), fn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, status, state)
}

// State returns the session state.
func (e *Editor) State(w http.ResponseWriter, r *http.Request) {
	e.do(w, r, http.StatusOK, nil)
}

// Close discards a session without saving.
func (e *Editor) Close(w http.ResponseWriter, r *http.Request) {
	if err := e.manager.Close(chi.URLParam(r, "sid"), owner(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddElement adds an element of the requested kind.
func (e *Editor) AddElement(w http.ResponseWriter, r *http.Request) {
	var req addElementRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !req.Kind.Valid() {
		writeError(w, r, apperr.Validation("kind", fmt.Sprintf("unknown element kind %q", req.Kind)))
		return
	}
	if err := validateProps(req.Props); err != nil {
		writeError(w, r, err)
		return
	}

	var id string
	state, err := e.manager.Do(chi.URLParam(r, "sid"), owner(r), func(s *editor.Session) {
		id = s.AddElement(req.Kind, req.Props)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id == "" {
		writeError(w, r, apperr.Validation("props", "element geometry is out of range"))
		return
	}
	respond(w, r, http.StatusCreated, elementResponse{ElementID: id, State: state})
}

// UpdateElement merges properties into an element. Updates that change
// nothing succeed without adding history.
func (e *Editor) UpdateElement(w http.ResponseWriter, r *http.Request) {
	var props editor.Props
	if err := decode(w, r, &props); err != nil {
		writeError(w, r, err)
		return
	}
	eid := chi.URLParam(r, "eid")
	var found bool
	state, err := e.manager.Do(chi.URLParam(r, "sid"), owner(r), func(s *editor.Session) {
		found = s.Template().IndexOf(eid) >= 0
		if found {
			s.UpdateElement(eid, &props)
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, apperr.NotFound("element", eid))
		return
	}
	respond(w, r, http.StatusOK, state)
}

// DeleteSelected removes the selected elements.
func (e *Editor) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	var n int
	state, err := e.manager.Do(chi.URLParam(r, "sid"), owner(r), func(s *editor.Session) {
		n = s.DeleteSelected()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, deleteResponse{Deleted: n, State: state})
}

// Duplicate clones an element.
func (e *Editor) Duplicate(w http.ResponseWriter, r *http.Request) {
	eid := chi.URLParam(r, "eid")
	var id string
	state, err := e.manager.Do(chi.URLParam(r, "sid"), owner(r), func(s *editor.Session) {
		id = s.Duplicate(eid)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id == "" {
		writeError(w, r, apperr.NotFound("element", eid))
		return
	}
	respond(w, r, http.StatusCreated, elementResponse{ElementID: id, State: state})
}

// Reorder moves an element one step forward or backward. Moving past
// either end is a no-op.
func (e *Editor) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	eid := chi.URLParam(r, "eid")
	var found bool
	state, err := e.manager.Do(chi.URLParam(r, "sid"), owner(r), func(s *editor.Session) {
		found = s.Template().IndexOf(eid) >= 0
		s.Reorder(eid, req.Direction)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, apperr.NotFound("element", eid))
		return
	}
	respond(w, r, http.StatusOK, state)
}

// Select replaces the selection. Unknown ids are dropped.
func (e *Editor) Select(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e.do(w, r, http.StatusOK, func(s *editor.Session) { s.Select(req.IDs) })
}

// ClearSelection empties the selection.
func (e *Editor) ClearSelection(w http.ResponseWriter, r *http.Request) {
	e.do(w, r, http.StatusOK, func(s *editor.Session) { s.ClearSelection() })
}

// SetBackground replaces or, with an empty url, removes the background.
func (e *Editor) SetBackground(w http.ResponseWriter, r *http.Request) {
	var req backgroundRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e.do(w, r, http.StatusOK, func(s *editor.Session) { s.SetBackground(req.URL) })
}

// Undo steps back in history.
func (e *Editor) Undo(w http.ResponseWriter, r *http.Request) {
	e.do(w, r, http.StatusOK, func(s *editor.Session) { s.Undo() })
}

// Redo steps forward in history.
func (e *Editor) Redo(w http.ResponseWriter, r *http.Request) {
	e.do(w, r, http.StatusOK, func(s *editor.Session) { s.Redo() })
}

// Save persists the working template. An optional name renames it first.
func (e *Editor) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	sid, who := chi.URLParam(r, "sid"), owner(r)
	if req.Name != "" {
		if _, err := e.manager.Do(sid, who, func(s *editor.Session) { s.Rename(req.Name) }); err != nil {
			writeError(w, r, err)
			return
		}
	}

	saved, err := e.manager.Save(r.Context(), sid, who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if e.cache != nil {
		e.cache.InvalidateEvent(r.Context(), saved.EventID)
	}
	slog.Info("template saved", "template_id", saved.ID, "event_id", saved.EventID, "version", saved.Version)
	respond(w, r, http.StatusOK, saved)
}

// Preview renders the working template as an 800x600 PNG.
func (e *Editor) Preview(w http.ResponseWriter, r *http.Request) {
	var tmpl *models.Template
	if _, err := e.manager.Do(chi.URLParam(r, "sid"), owner(r), func(s *editor.Session) {
		tmpl = s.Template()
	}); err != nil {
		writeError(w, r, err)
		return
	}

	scene, _ := canvas.Deserialize(tmpl.Background(), tmpl.Elements)
	img, err := e.renderer.Render(r.Context(), scene)
	if err != nil {
		writeError(w, r, fmt.Errorf("render preview: %w", err))
		return
	}
	out, err := imaging.Encode(img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

func validateProps(p *editor.Props) error {
	if p == nil {
		return nil
	}
	return validate.Struct(p)
}
