package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Recipe is the unit of content exchanged with the search service.
// Only Title is required; everything else is passed through to the renderer.
type Recipe struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Minutes      Minutes  `json:"minutes,omitempty"`
	Ingredients  Lines    `json:"ingredients,omitempty"`
	Instructions Lines    `json:"instructions,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// Clone returns a deep copy of the recipe.
func (r Recipe) Clone() Recipe {
	out := r
	out.Ingredients = append(Lines(nil), r.Ingredients...)
	out.Instructions = append(Lines(nil), r.Instructions...)
	out.Tags = append([]string(nil), r.Tags...)
	return out
}

var (
	ingredientPrefix = regexp.MustCompile(`^[-•*\s]+`)
	stepPrefix       = regexp.MustCompile(`^(\d+[.)]\s*|[-•*]\s*)`)
)

// IngredientList returns the ingredient lines with leading bullets removed.
func (r Recipe) IngredientList() []string {
	return cleanLines(r.Ingredients, ingredientPrefix)
}

// Steps returns the instruction lines with leading numbering and bullets removed.
func (r Recipe) Steps() []string {
	return cleanLines(r.Instructions, stepPrefix)
}

func cleanLines(lines Lines, prefix *regexp.Regexp) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.TrimSpace(prefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// Lines is a block of recipe text. On the wire it is either an array of
// strings or a single newline separated string; both decode to one entry per line.
type Lines []string

// UnmarshalJSON accepts a string, an array of strings or null.
func (l *Lines) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*l = SplitLines(text)
		return nil
	}

	var items []string
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("expected a string or an array of strings: %w", err)
	}
	*l = items
	return nil
}

// SplitLines breaks text on newlines, trimming whitespace and dropping empty lines.
func SplitLines(text string) Lines {
	var out Lines
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Minutes is an optional preparation time. Zero means unknown.
type Minutes int

var leadingDigits = regexp.MustCompile(`^\s*(\d+)`)

// UnmarshalJSON accepts a number, a numeric string ("30", "30 mins") or null.
// Anything else decodes to zero rather than failing the whole recipe.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*m = 0
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		if match := leadingDigits.FindStringSubmatch(text); match != nil {
			n, _ := strconv.Atoi(match[1])
			*m = Minutes(n)
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil
	}
	if f > 0 && f < math.MaxInt32 {
		*m = Minutes(math.Round(f))
	}
	return nil
}
