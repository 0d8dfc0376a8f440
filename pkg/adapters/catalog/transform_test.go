package catalog

import (
	"testing"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModification(t *testing.T) {
	tests := []struct {
		text string
		want domain.Modification
		ok   bool
	}{
		{"Modify recipe to be spicy", domain.ModSpicy, true},
		{"make it spicier", domain.ModSpicy, true},
		{"Modify recipe to be vegan", domain.ModVegan, true},
		{"Modify recipe to be quick", domain.ModQuick, true},
		{"make it purple", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseModification(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransform(t *testing.T) {
	base := domain.Recipe{
		ID:           "stew",
		Title:        "Beef Stew",
		Minutes:      90,
		Ingredients:  domain.Lines{"- 500 g beef", "2 tbsp butter", "2 tbsp peanut butter", "100 ml sour cream"},
		Instructions: domain.Lines{"1. Brown the beef in butter.", "2. Simmer."},
		Tags:         []string{"stew", "vegetarian"},
	}

	t.Run("Spicy", func(t *testing.T) {
		out, err := Transform(base, domain.ModSpicy)
		require.NoError(t, err)
		assert.Equal(t, "Spicy Beef Stew", out.Title)
		assert.Equal(t, "stew-spicy", out.ID)
		assert.Contains(t, out.Ingredients, "1 tsp chili flakes")
		assert.Equal(t, "3. Stir in the chili flakes and jalapeño and cook for 1 more minute.", out.Instructions[2])
		assert.Contains(t, out.Tags, "spicy")
	})

	t.Run("Vegan", func(t *testing.T) {
		out, err := Transform(base, domain.ModVegan)
		require.NoError(t, err)
		assert.Equal(t, "Vegan Seitan Stew", out.Title)
		assert.Equal(t, domain.Lines{"500 g seitan", "2 tbsp olive oil", "2 tbsp peanut butter", "100 ml cashew cream"}, out.Ingredients)
		assert.Equal(t, "1. Brown the seitan in olive oil.", out.Instructions[0])
		assert.Equal(t, []string{"stew", "vegan"}, out.Tags)
	})

	t.Run("Quick", func(t *testing.T) {
		out, err := Transform(base, domain.ModQuick)
		require.NoError(t, err)
		assert.Equal(t, "Quick Beef Stew", out.Title)
		assert.Equal(t, domain.Minutes(60), out.Minutes)
		assert.Len(t, out.Instructions, 3)
		assert.Contains(t, out.Instructions[0], "Prep every ingredient")
	})

	t.Run("Idempotent Title", func(t *testing.T) {
		once, err := Transform(base, domain.ModQuick)
		require.NoError(t, err)
		twice, err := Transform(once, domain.ModQuick)
		require.NoError(t, err)
		assert.Equal(t, "Quick Beef Stew", twice.Title)
		assert.Equal(t, domain.Minutes(40), twice.Minutes)
	})

	t.Run("Does Not Touch Input", func(t *testing.T) {
		_, err := Transform(base, domain.ModVegan)
		require.NoError(t, err)
		assert.Equal(t, "- 500 g beef", base.Ingredients[0])
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Transform(base, domain.Modification("purple"))
		assert.ErrorIs(t, err, domain.ErrUnknownModification)
	})
}
