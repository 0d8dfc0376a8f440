package domain

import (
	"reflect"
)

// StateDiff represents the changes a turn made to a SessionState.
// Only changed fields are set.
type StateDiff struct {
	RecipeSet []Recipe `json:"recipe_set,omitempty"`

	// ActiveRecipe is the new recipe in detail view. ActiveCleared is set
	// instead when the detail view was closed.
	ActiveRecipe  *Recipe `json:"active_recipe,omitempty"`
	ActiveCleared bool    `json:"active_cleared,omitempty"`

	AwaitingFollowUp *bool   `json:"awaiting_follow_up,omitempty"`
	Generation       *uint64 `json:"generation,omitempty"`

	recipeSetChanged bool
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed. TurnInFlight is transient and ignored.
func Diff(oldState, newState *SessionState) *StateDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &SessionState{}
	}

	diff := &StateDiff{}

	if !sameRecipes(oldState.RecipeSet, newState.RecipeSet) {
		diff.RecipeSet = newState.RecipeSet
		diff.recipeSetChanged = true
	}

	switch {
	case newState.ActiveRecipe == nil && oldState.ActiveRecipe != nil:
		diff.ActiveCleared = true
	case newState.ActiveRecipe != nil &&
		(oldState.ActiveRecipe == nil || !reflect.DeepEqual(*oldState.ActiveRecipe, *newState.ActiveRecipe)):
		diff.ActiveRecipe = newState.ActiveRecipe
	}

	if oldState.AwaitingFollowUp != newState.AwaitingFollowUp {
		diff.AwaitingFollowUp = &newState.AwaitingFollowUp
	}
	if oldState.Generation != newState.Generation {
		diff.Generation = &newState.Generation
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// sameRecipes treats nil and empty sets as equal.
func sameRecipes(a, b []Recipe) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return !d.recipeSetChanged &&
		d.ActiveRecipe == nil &&
		!d.ActiveCleared &&
		d.AwaitingFollowUp == nil &&
		d.Generation == nil
}

// Fields names the changed fields, for logs.
func (d *StateDiff) Fields() []string {
	if d == nil {
		return nil
	}
	var fields []string
	if d.recipeSetChanged {
		fields = append(fields, "recipe_set")
	}
	if d.ActiveRecipe != nil || d.ActiveCleared {
		fields = append(fields, "active_recipe")
	}
	if d.AwaitingFollowUp != nil {
		fields = append(fields, "awaiting_follow_up")
	}
	if d.Generation != nil {
		fields = append(fields, "generation")
	}
	return fields
}
