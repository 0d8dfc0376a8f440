package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	withResults := func() *SessionState {
		s := NewSessionState()
		s.SetRecipeSet(recipes("Soup", "Salad"))
		return s
	}
	withActive := func() *SessionState {
		s := withResults()
		s.Activate(Recipe{Title: "Soup"})
		return s
	}
	afterReset := func() *SessionState {
		s := withActive()
		s.Reset()
		return s
	}

	tests := []struct {
		name       string
		old        *SessionState
		new        *SessionState
		wantFields []string // nil means no diff
	}{
		{
			name:       "Initial Load (Old is Nil)",
			old:        nil,
			new:        withActive(),
			wantFields: []string{"recipe_set", "active_recipe", "awaiting_follow_up"},
		},
		{
			name: "No Changes",
			old:  withActive(),
			new:  withActive(),
		},
		{
			name: "Nil and empty sets are equal",
			old:  &SessionState{},
			new:  NewSessionState(),
		},
		{
			name: "In-flight flag is ignored",
			old:  withResults(),
			new: func() *SessionState {
				s := withResults()
				s.TurnInFlight = true
				return s
			}(),
		},
		{
			name: "New search results",
			old:  withResults(),
			new: func() *SessionState {
				s := withResults()
				s.SetRecipeSet(recipes("Curry"))
				return s
			}(),
			wantFields: []string{"recipe_set"},
		},
		{
			name:       "Recipe opened",
			old:        withResults(),
			new:        withActive(),
			wantFields: []string{"active_recipe", "awaiting_follow_up"},
		},
		{
			name: "Recipe modified",
			old:  withActive(),
			new: func() *SessionState {
				s := withActive()
				s.Activate(Recipe{Title: "Spicy Soup"})
				return s
			}(),
			wantFields: []string{"active_recipe"},
		},
		{
			name:       "Reset",
			old:        withActive(),
			new:        afterReset(),
			wantFields: []string{"recipe_set", "active_recipe", "awaiting_follow_up", "generation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := Diff(tt.old, tt.new)
			if tt.wantFields == nil {
				assert.Nil(t, diff)
				return
			}
			require.NotNil(t, diff)
			assert.False(t, diff.IsEmpty())
			assert.Equal(t, tt.wantFields, diff.Fields())
		})
	}
}

func TestDiff_Serialization(t *testing.T) {
	diff := Diff(withActiveState(), reset())
	require.NotNil(t, diff)

	data, err := json.Marshal(diff)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, true, got["active_cleared"])
	assert.Equal(t, false, got["awaiting_follow_up"])
	assert.Equal(t, float64(1), got["generation"])
	assert.NotContains(t, got, "active_recipe")
}

func withActiveState() *SessionState {
	s := NewSessionState()
	s.SetRecipeSet(recipes("Soup"))
	s.Activate(Recipe{Title: "Soup"})
	return s
}

func reset() *SessionState {
	s := withActiveState()
	s.Reset()
	return s
}
