package domain

import (
	"fmt"
	"time"
)

// MaxRecipeSet is the number of summary results kept addressable by ordinal.
const MaxRecipeSet = 3

// SessionState captures what the user is currently looking at.
// It is created once per conversation and reset in place, never replaced,
// so observers holding the pointer keep seeing the live record.
type SessionState struct {
	// RecipeSet holds the most recently displayed summary results (at most MaxRecipeSet).
	// It is replaced wholesale by every summary response, never merged.
	RecipeSet []Recipe `json:"recipe_set"`

	// ActiveRecipe is the recipe currently in detail view, if any.
	ActiveRecipe *Recipe `json:"active_recipe,omitempty"`

	// AwaitingFollowUp is true only right after a recipe's detail view was shown.
	AwaitingFollowUp bool `json:"awaiting_follow_up"`

	// TurnInFlight is true while a turn waits on the search service.
	TurnInFlight bool `json:"turn_in_flight"`

	// Generation is bumped on every Reset. Outcomes of turns started in an older
	// generation are stale and must not be applied.
	Generation uint64 `json:"generation"`
}

// NewSessionState creates an empty conversation record.
func NewSessionState() *SessionState {
	return &SessionState{RecipeSet: []Recipe{}}
}

// Reset reinitializes the record to empty defaults in place and starts a new generation.
// TurnInFlight is left alone: it belongs to the turn that set it.
func (s *SessionState) Reset() {
	s.RecipeSet = []Recipe{}
	s.ActiveRecipe = nil
	s.AwaitingFollowUp = false
	s.Generation++
}

// RecipeAt returns the recipe at a 1-based ordinal of the recipe set.
func (s *SessionState) RecipeAt(ordinal int) (Recipe, bool) {
	if s == nil || ordinal < 1 || ordinal > len(s.RecipeSet) {
		return Recipe{}, false
	}
	return s.RecipeSet[ordinal-1], true
}

// SetRecipeSet replaces the recipe set with (copies of) the first MaxRecipeSet recipes.
func (s *SessionState) SetRecipeSet(recipes []Recipe) {
	n := min(len(recipes), MaxRecipeSet)
	set := make([]Recipe, n)
	for i := range n {
		set[i] = recipes[i].Clone()
	}
	s.RecipeSet = set
}

// Activate puts a copy of the recipe in detail view and opens the follow-up window.
func (s *SessionState) Activate(r Recipe) {
	active := r.Clone()
	s.ActiveRecipe = &active
	s.AwaitingFollowUp = true
}

// Snapshot returns a deep copy of the state.
func (s *SessionState) Snapshot() *SessionState {
	out := &SessionState{
		AwaitingFollowUp: s.AwaitingFollowUp,
		TurnInFlight:     s.TurnInFlight,
		Generation:       s.Generation,
		RecipeSet:        make([]Recipe, len(s.RecipeSet)),
	}
	for i, r := range s.RecipeSet {
		out.RecipeSet[i] = r.Clone()
	}
	if s.ActiveRecipe != nil {
		active := s.ActiveRecipe.Clone()
		out.ActiveRecipe = &active
	}
	return out
}

// Validate checks the record invariants.
func (s *SessionState) Validate() error {
	if len(s.RecipeSet) > MaxRecipeSet {
		return fmt.Errorf("%w: recipe set holds %d recipes (max %d)", ErrInvalidState, len(s.RecipeSet), MaxRecipeSet)
	}
	if s.AwaitingFollowUp && s.ActiveRecipe == nil {
		return fmt.Errorf("%w: awaiting follow-up without an active recipe", ErrInvalidState)
	}
	return nil
}

// Session is the persisted envelope of a conversation.
type Session struct {
	ID        string       `json:"id"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// Sealed carries the encrypted form of State when the store encrypts at rest.
	// When set, State is left empty.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates an empty session record.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		State:     *NewSessionState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.State = *s.State.Snapshot()
	return &out
}
