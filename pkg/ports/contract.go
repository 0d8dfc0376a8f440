package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.State.SetRecipeSet([]domain.Recipe{{Title: "Soup", Minutes: 20}, {Title: "Salad"}})
		session.State.Activate(domain.Recipe{
			Title:        "Soup",
			Ingredients:  domain.Lines{"water", "carrots"},
			Instructions: domain.Lines{"Boil"},
		})
		session.State.Generation = 3

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		require.Len(t, loaded.State.RecipeSet, 2)
		assert.Equal(t, "Soup", loaded.State.RecipeSet[0].Title)
		assert.Equal(t, domain.Minutes(20), loaded.State.RecipeSet[0].Minutes)
		require.NotNil(t, loaded.State.ActiveRecipe)
		assert.Equal(t, domain.Lines{"water", "carrots"}, loaded.State.ActiveRecipe.Ingredients)
		assert.True(t, loaded.State.AwaitingFollowUp)
		assert.Equal(t, uint64(3), loaded.State.Generation)
	})

	t.Run("Load Is Isolated From Caller", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.State.SetRecipeSet([]domain.Recipe{{Title: "Stew"}})
		require.NoError(t, store.Save(ctx, sessionID, session))

		session.State.RecipeSet[0].Title = "Mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "Stew", loaded.State.RecipeSet[0].Title)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
