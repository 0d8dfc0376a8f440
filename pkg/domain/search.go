package domain

import "fmt"

// SearchRequest is sent to the search service for every network turn.
type SearchRequest struct {
	Query          string  `json:"query"`
	IsFollowUp     bool    `json:"is_follow_up"`
	IsModification bool    `json:"is_modification"`
	CurrentRecipe  *Recipe `json:"current_recipe"`
}

// SearchResponse is the reply of the search service.
// IsDetail implies Results holds the single detailed recipe.
type SearchResponse struct {
	Error    string   `json:"error,omitempty"`
	IsRecipe bool     `json:"is_recipe"`
	IsDetail bool     `json:"is_detail"`
	Results  []Recipe `json:"results"`
	Message  string   `json:"message,omitempty"`
}

// Validate turns an error field or a broken detail response into an error.
func (r *SearchResponse) Validate() error {
	if r.Error != "" {
		return fmt.Errorf("%w: %s", ErrSearchFailed, r.Error)
	}
	if r.IsRecipe && r.IsDetail && len(r.Results) == 0 {
		return fmt.Errorf("%w: detail response without a recipe", ErrContractViolation)
	}
	return nil
}

// Detail returns the detailed recipe of a detail response.
func (r *SearchResponse) Detail() (Recipe, bool) {
	if !r.IsDetail || len(r.Results) == 0 {
		return Recipe{}, false
	}
	return r.Results[0], true
}
