package http

import (
	"net/http"

	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// SessionView is the JSON shape of a conversation.
type SessionView struct {
	SessionID string              `json:"session_id"`
	State     domain.SessionState `json:"state"`
	Events    []domain.Event      `json:"events,omitempty"`
}

type inputRequest struct {
	Text string `json:"text"`
}

type selectRequest struct {
	Ordinal int `json:"ordinal"`
}

type modifyRequest struct {
	Kind string `json:"kind"`
}

// CreateSession handles POST /sessions. The welcome message is returned and
// also published on the session stream.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.Sessions.Create(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	welcome := ctrl.Greet(r.Context())
	writeJSON(w, http.StatusCreated, SessionView{
		SessionID: ctrl.SessionID(),
		State:     *ctrl.Snapshot(),
		Events:    []domain.Event{welcome},
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.open(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionView{SessionID: ctrl.SessionID(), State: *ctrl.Snapshot()})
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostInput handles POST /sessions/{id}/input.
func (s *Server) PostInput(w http.ResponseWriter, r *http.Request) {
	var body inputRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	s.turn(w, r, func(ctrl *dialogue.Controller) (*dialogue.TurnResult, error) {
		return ctrl.HandleInput(r.Context(), body.Text)
	})
}

// PostReset handles POST /sessions/{id}/reset.
func (s *Server) PostReset(w http.ResponseWriter, r *http.Request) {
	s.turn(w, r, func(ctrl *dialogue.Controller) (*dialogue.TurnResult, error) {
		return ctrl.Reset(r.Context())
	})
}

// PostSelect handles POST /sessions/{id}/select (a recipe card click).
func (s *Server) PostSelect(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	s.turn(w, r, func(ctrl *dialogue.Controller) (*dialogue.TurnResult, error) {
		return ctrl.Select(r.Context(), body.Ordinal)
	})
}

// PostModify handles POST /sessions/{id}/modify (a modification button).
func (s *Server) PostModify(w http.ResponseWriter, r *http.Request) {
	var body modifyRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	m, err := domain.ParseModification(body.Kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.turn(w, r, func(ctrl *dialogue.Controller) (*dialogue.TurnResult, error) {
		return ctrl.Modify(r.Context(), m)
	})
}

func (s *Server) turn(w http.ResponseWriter, r *http.Request, run func(*dialogue.Controller) (*dialogue.TurnResult, error)) {
	ctrl, ok := s.open(w, r)
	if !ok {
		return
	}
	res, err := run(ctrl)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) open(w http.ResponseWriter, r *http.Request) (*dialogue.Controller, bool) {
	ctrl, err := s.Sessions.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return ctrl, true
}
