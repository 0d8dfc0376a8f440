package ports

import (
	"context"

	"github.com/aretw0/chefmate/pkg/domain"
)

// Searcher is the recipe search service.
// A response carrying an Error field is a failure even when err is nil;
// callers validate it with domain.SearchResponse.Validate.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)

func (f SearcherFunc) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	return f(ctx, req)
}

// SessionResetter is implemented by searchers that keep server-side session hints
// (accumulated ingredients and preferences) which should be cleared on Reset.
type SessionResetter interface {
	ResetSession(ctx context.Context) error
}
