package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/aretw0/chefmate/pkg/domain"
)

// MaxResults is the number of summary results returned per search.
const MaxResults = 5

// ResetMessage is returned when the server-side session is cleared.
const ResetMessage = "Session cleared. Ready to start fresh!"

var (
	stepSplit = regexp.MustCompile(`\n+|\d+\.\s+`)

	// selection mirrors the server's own ordinal handling of follow-ups.
	selectionHint = regexp.MustCompile(`recipe|choose|select|first|second|third|1|2|3`)
	selectFirst   = regexp.MustCompile(`\b(1|first)\b`)
	selectSecond  = regexp.MustCompile(`\b(2|second)\b`)
	selectThird   = regexp.MustCompile(`\b(3|third)\b`)

	resetKeywords      = []string{"reset", "start over", "clear session", "new session", "begin again"}
	refinementKeywords = []string{
		"make it", "add", "prefer", "more", "less", "quick",
		"spicy", "healthy", "without", "with", "vegan", "vegetarian",
	}
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "with": true, "without": true,
	"for": true, "of": true, "to": true, "in": true, "me": true, "i": true,
	"some": true, "something": true, "recipe": true, "recipes": true, "want": true,
	"like": true, "would": true, "make": true, "it": true, "please": true,
	"can": true, "you": true, "show": true, "find": true, "cook": true, "what": true,
	"options": true, "ideas": true, "meal": true, "meals": true, "more": true,
	"less": true, "prefer": true, "add": true,
}

// FormatSteps numbers instruction text the way the service always has:
// split on blank lines or inline "N. " markers, then renumber from 1.
func FormatSteps(text string) []string {
	var steps []string
	for _, part := range stepSplit.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			steps = append(steps, fmt.Sprintf("%d. %s", len(steps)+1, part))
		}
	}
	return steps
}

// format prepares a catalog recipe for the wire.
func format(r domain.Recipe) domain.Recipe {
	out := r.Clone()
	out.Instructions = FormatSteps(strings.Join(r.Instructions, "\n"))
	out.Ingredients = out.IngredientList()
	return out
}

// Keywords extracts the searchable terms of a query.
func Keywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len(f) < 2 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

type scored struct {
	recipe domain.Recipe
	score  int
}

// Search ranks the catalog against a free-text query and returns at most limit
// formatted recipes. Recipes without any matching term are left out.
func (c *Catalog) Search(query string, limit int) []domain.Recipe {
	terms := Keywords(query)
	if len(terms) == 0 {
		return nil
	}

	var hits []scored
	for _, r := range c.recipes {
		if s := score(r, terms); s > 0 {
			hits = append(hits, scored{recipe: r, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].recipe.Title < hits[j].recipe.Title
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Recipe, len(hits))
	for i, h := range hits {
		out[i] = format(h.recipe)
	}
	return out
}

func score(r domain.Recipe, terms []string) int {
	title := strings.ToLower(r.Title)
	ingredients := strings.ToLower(strings.Join(r.Ingredients, " "))
	total := 0
	for _, term := range terms {
		stem := strings.TrimSuffix(term, "s")
		if strings.Contains(title, stem) {
			total += 3
		}
		for _, tag := range r.Tags {
			if strings.EqualFold(tag, term) || strings.EqualFold(tag, stem) {
				total += 2
				break
			}
		}
		if strings.Contains(ingredients, stem) {
			total++
		}
	}
	return total
}

func isReset(query string) bool {
	for _, kw := range resetKeywords {
		if strings.Contains(query, kw) {
			return true
		}
	}
	return false
}

func isRefinement(query string) bool {
	for _, kw := range refinementKeywords {
		if strings.Contains(query, kw) {
			return true
		}
	}
	return false
}

// selectionIndex returns the 0-based index a follow-up refers to.
// Follow-ups that hint at a selection without naming one pick the first result.
func selectionIndex(query string) (int, bool) {
	if !selectionHint.MatchString(query) {
		return 0, false
	}
	switch {
	case selectFirst.MatchString(query):
		return 0, true
	case selectSecond.MatchString(query):
		return 1, true
	case selectThird.MatchString(query):
		return 2, true
	}
	return 0, true
}
