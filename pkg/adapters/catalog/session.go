package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/aretw0/chefmate/pkg/domain"
)

// Session is one client's conversation with the catalog service. It remembers
// the base ingredients, accumulated preferences and the last results, the way
// the remote service keeps them in its server-side session.
// It implements ports.Searcher and ports.SessionResetter.
type Session struct {
	catalog *Catalog

	mu          sync.Mutex
	ingredients string
	preferences string
	current     []domain.Recipe
	modified    map[string]domain.Recipe
}

// NewSession starts an empty session over the catalog.
func (c *Catalog) NewSession() *Session {
	return &Session{catalog: c, modified: make(map[string]domain.Recipe)}
}

// Search answers one request of the search contract.
func (s *Session) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(req.Query))

	if req.IsModification && req.CurrentRecipe != nil {
		return s.modify(*req.CurrentRecipe, query), nil
	}

	if isReset(query) {
		s.reset()
		return &domain.SearchResponse{Message: ResetMessage}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.IsFollowUp {
		if idx, ok := selectionIndex(query); ok {
			if len(s.current) == 0 {
				return &domain.SearchResponse{Error: "No current results in session"}, nil
			}
			if idx >= len(s.current) {
				return &domain.SearchResponse{Error: "Selected recipe index out of range"}, nil
			}
			return &domain.SearchResponse{
				IsRecipe: true,
				IsDetail: true,
				Results:  []domain.Recipe{s.current[idx].Clone()},
			}, nil
		}
	}

	var combined string
	if !isRefinement(query) && !req.IsFollowUp {
		s.ingredients, s.preferences = query, ""
		combined = query
	} else {
		s.preferences += " " + query
		combined = s.ingredients + " " + s.preferences
	}

	results := s.catalog.Search(combined, MaxResults)
	s.current = results
	out := make([]domain.Recipe, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return &domain.SearchResponse{IsRecipe: true, Results: out}, nil
}

// modify transforms the current recipe. Like the remote service, a failed
// transformation still answers with the original recipe and a note.
func (s *Session) modify(current domain.Recipe, query string) *domain.SearchResponse {
	var (
		out domain.Recipe
		err error
	)
	if m, ok := ParseModification(query); ok {
		out, err = Transform(current, m)
	} else {
		err = domain.ErrUnknownModification
	}
	if err != nil {
		out = format(current)
		out.Notes = "Modification failed: " + err.Error()
	}

	key := current.ID
	if key == "" {
		key = slug(current.Title)
	}
	s.mu.Lock()
	s.modified[key] = out.Clone()
	s.mu.Unlock()

	return &domain.SearchResponse{IsRecipe: true, IsDetail: true, Results: []domain.Recipe{out}}
}

// Modify is the dedicated modification endpoint.
func (s *Session) Modify(ctx context.Context, r domain.Recipe, m domain.Modification) (*domain.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := Transform(r, m)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetSession clears ingredients, preferences and results.
func (s *Session) ResetSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.reset()
	return nil
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingredients, s.preferences = "", ""
	s.current = nil
	s.modified = make(map[string]domain.Recipe)
}

// Info describes what the session has accumulated so far.
type Info struct {
	Ingredients string   `json:"ingredients"`
	Preferences string   `json:"preferences"`
	Results     []string `json:"results,omitempty"`
	Modified    int      `json:"modified_recipes"`
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, len(s.current))
	for i, r := range s.current {
		titles[i] = r.Title
	}
	return Info{
		Ingredients: s.ingredients,
		Preferences: strings.TrimSpace(s.preferences),
		Results:     titles,
		Modified:    len(s.modified),
	}
}
