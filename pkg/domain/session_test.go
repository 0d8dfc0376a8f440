package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipes(titles ...string) []Recipe {
	out := make([]Recipe, len(titles))
	for i, title := range titles {
		out[i] = Recipe{Title: title}
	}
	return out
}

func TestSessionState_ResetInPlace(t *testing.T) {
	s := NewSessionState()
	s.SetRecipeSet(recipes("Soup", "Salad"))
	s.Activate(Recipe{Title: "Soup"})
	s.TurnInFlight = true
	observer := s

	s.Reset()

	assert.Same(t, observer, s)
	assert.Empty(t, s.RecipeSet)
	assert.Nil(t, s.ActiveRecipe)
	assert.False(t, s.AwaitingFollowUp)
	assert.True(t, s.TurnInFlight, "reset must not steal the in-flight flag")
	assert.Equal(t, uint64(1), s.Generation)
}

func TestSessionState_ResetTwiceMatchesOnce(t *testing.T) {
	once := NewSessionState()
	once.SetRecipeSet(recipes("Soup"))
	once.Reset()

	twice := NewSessionState()
	twice.SetRecipeSet(recipes("Soup"))
	twice.Reset()
	twice.Reset()

	assert.Equal(t, once.RecipeSet, twice.RecipeSet)
	assert.Equal(t, once.ActiveRecipe, twice.ActiveRecipe)
	assert.Equal(t, once.AwaitingFollowUp, twice.AwaitingFollowUp)
	assert.Greater(t, twice.Generation, once.Generation)
}

func TestSessionState_SetRecipeSetKeepsFirstThree(t *testing.T) {
	s := NewSessionState()
	s.SetRecipeSet(recipes("a", "b", "c", "d", "e"))

	require.Len(t, s.RecipeSet, MaxRecipeSet)
	assert.Equal(t, "c", s.RecipeSet[2].Title)
}

func TestSessionState_RecipeAt(t *testing.T) {
	s := NewSessionState()
	s.SetRecipeSet(recipes("Soup", "Salad"))

	r, ok := s.RecipeAt(2)
	assert.True(t, ok)
	assert.Equal(t, "Salad", r.Title)

	_, ok = s.RecipeAt(3)
	assert.False(t, ok)
	_, ok = s.RecipeAt(0)
	assert.False(t, ok)

	var nilState *SessionState
	_, ok = nilState.RecipeAt(1)
	assert.False(t, ok)
}

func TestSessionState_Validate(t *testing.T) {
	s := NewSessionState()
	assert.NoError(t, s.Validate())

	s.AwaitingFollowUp = true
	assert.ErrorIs(t, s.Validate(), ErrInvalidState)

	s.Activate(Recipe{Title: "Soup"})
	assert.NoError(t, s.Validate())

	s.RecipeSet = recipes("a", "b", "c", "d")
	assert.ErrorIs(t, s.Validate(), ErrInvalidState)
}

func TestSessionState_SnapshotIsDeep(t *testing.T) {
	s := NewSessionState()
	s.SetRecipeSet(recipes("Soup"))
	s.Activate(Recipe{Title: "Soup", Ingredients: Lines{"water"}})

	snap := s.Snapshot()
	snap.RecipeSet[0].Title = "Changed"
	snap.ActiveRecipe.Ingredients[0] = "milk"

	assert.Equal(t, "Soup", s.RecipeSet[0].Title)
	assert.Equal(t, Lines{"water"}, s.ActiveRecipe.Ingredients)
}

func TestSearchResponse_Validate(t *testing.T) {
	assert.ErrorIs(t, (&SearchResponse{Error: "boom"}).Validate(), ErrSearchFailed)
	assert.ErrorIs(t, (&SearchResponse{IsRecipe: true, IsDetail: true}).Validate(), ErrContractViolation)
	assert.NoError(t, (&SearchResponse{IsRecipe: true, Results: recipes("Soup")}).Validate())
}

func TestIntent_String(t *testing.T) {
	assert.Equal(t, "select(2)", SelectIntent(2).String())
	assert.Equal(t, "modify(vegan)", ModifyIntent(ModVegan).String())
	assert.Equal(t, `search("soup")`, SearchIntent("soup").String())
	assert.Equal(t, "reset", ResetIntent().String())
}

func TestParseModification(t *testing.T) {
	m, err := ParseModification("quick")
	require.NoError(t, err)
	assert.Equal(t, ModQuick, m)

	_, err = ParseModification("sweet")
	assert.ErrorIs(t, err, ErrUnknownModification)
}
