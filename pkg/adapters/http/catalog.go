package http

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/chefmate/pkg/adapters/catalog"
	"github.com/aretw0/chefmate/pkg/adapters/search"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

// sessionCookie names the cookie binding a client to its catalog session.
const sessionCookie = "sessionid"

// catalogRoutes serves the search service contract from a local catalog,
// keeping one catalog.Session per sessionid cookie.
type catalogRoutes struct {
	catalog *catalog.Catalog
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*catalog.Session
}

func newCatalogRoutes(c *catalog.Catalog, logger *slog.Logger) *catalogRoutes {
	return &catalogRoutes{
		catalog:  c,
		logger:   logger,
		sessions: make(map[string]*catalog.Session),
	}
}

func (cr *catalogRoutes) mount(r chi.Router) {
	r.Post("/"+search.SearchPath, cr.search)
	r.Post("/"+search.ModifyPath, cr.modify)
	r.Post("/"+search.ResetPath, cr.reset)
}

// session returns the caller's catalog session, issuing cookies on first contact.
func (cr *catalogRoutes) session(w http.ResponseWriter, r *http.Request) *catalog.Session {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := cr.sessions[c.Value]; ok {
			return s
		}
	}

	id := ulid.Make().String()
	s := cr.catalog.NewSession()
	cr.sessions[id] = s
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	http.SetCookie(w, &http.Cookie{Name: search.CSRFCookie, Value: ulid.Make().String(), Path: "/", SameSite: http.SameSiteLaxMode})
	cr.logger.Debug("Catalog session started", "session_id", id)
	return s
}

type invalidJSON struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (cr *catalogRoutes) search(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, invalidJSON{Error: "Invalid JSON format", Details: err.Error()})
		return
	}
	resp, err := cr.session(w, r).Search(r.Context(), req)
	if err != nil {
		cr.logger.Error("Catalog search failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, invalidJSON{Error: "Internal server error", Details: err.Error()})
		return
	}
	if resp.Error != "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: resp.Error})
		return
	}
	if resp.Results == nil {
		resp.Results = []domain.Recipe{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (cr *catalogRoutes) modify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipe       *domain.Recipe `json:"recipe"`
		Modification string         `json:"modification"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON input"})
		return
	}
	if req.Recipe == nil || req.Recipe.Title == "" || req.Modification == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing recipe or modification"})
		return
	}

	m, err := domain.ParseModification(req.Modification)
	if err != nil {
		parsed, ok := catalog.ParseModification(req.Modification)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		m = parsed
	}

	out, err := cr.session(w, r).Modify(r.Context(), *req.Recipe, m)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type resetBody struct {
	Message    string       `json:"message"`
	Reset      bool         `json:"reset"`
	Session    catalog.Info `json:"session"`
	Processing bool         `json:"processing"`
}

func (cr *catalogRoutes) reset(w http.ResponseWriter, r *http.Request) {
	s := cr.session(w, r)
	if err := s.ResetSession(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resetBody{
		Message: catalog.ResetMessage,
		Reset:   true,
		Session: s.Info(),
	})
}

