package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	path   string
	csrf   string
	cookie string
	body   map[string]any
}

type fakeService struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{path: r.URL.Path, csrf: r.Header.Get(CSRFHeader)}
	if c, err := r.Cookie("sessionid"); err == nil {
		rec.cookie = c.Value
	}
	_ = json.NewDecoder(r.Body).Decode(&rec.body)
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeService) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler func(http.ResponseWriter, *http.Request), opts ...Option) (*Client, *fakeService) {
	t.Helper()
	svc := &fakeService{handler: handler}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c, svc
}

func TestClient_SearchSummary(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"is_recipe": true,
			"is_detail": false,
			"results": []map[string]any{
				{"title": "Tomato Soup", "minutes": 25, "ingredients": "tomatoes\nonion", "instructions": []string{"1. Chop", "2. Simmer"}},
				{"title": "Gazpacho", "minutes": "15 mins", "ingredients": nil, "instructions": nil},
			},
			"session":    map[string]any{"ingredients": "tomato"},
			"processing": false,
		})
	})

	current := &domain.Recipe{Title: "Bread"}
	resp, err := c.Search(context.Background(), domain.SearchRequest{Query: "tomato", CurrentRecipe: current})
	require.NoError(t, err)
	require.NoError(t, resp.Validate())

	assert.True(t, resp.IsRecipe)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, domain.Minutes(25), resp.Results[0].Minutes)
	assert.Equal(t, domain.Lines{"tomatoes", "onion"}, resp.Results[0].Ingredients)
	assert.Equal(t, domain.Minutes(15), resp.Results[1].Minutes)

	req := svc.last()
	assert.Equal(t, "/search/", req.path)
	assert.Equal(t, "tomato", req.body["query"])
	assert.Equal(t, false, req.body["is_follow_up"])
	assert.Equal(t, false, req.body["is_modification"])
	assert.Equal(t, "Bread", req.body["current_recipe"].(map[string]any)["title"])
}

func TestClient_SearchNullCurrentRecipe(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"is_recipe": true, "results": []any{}})
	})

	_, err := c.Search(context.Background(), domain.SearchRequest{Query: "rice", IsFollowUp: true})
	require.NoError(t, err)

	req := svc.last()
	v, present := req.body["current_recipe"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, true, req.body["is_follow_up"])
}

func TestClient_ErrorField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"error": "x"})
	})

	resp, err := c.Search(context.Background(), domain.SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.ErrorIs(t, resp.Validate(), domain.ErrSearchFailed)
}

func TestClient_HTTPErrors(t *testing.T) {
	t.Run("JSON Error Body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Internal server error", "details": "faiss exploded"})
		})

		_, err := c.Search(context.Background(), domain.SearchRequest{Query: "x"})
		require.ErrorIs(t, err, domain.ErrSearchFailed)
		assert.Contains(t, err.Error(), "faiss exploded")
	})

	t.Run("Plain Body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})

		_, err := c.Search(context.Background(), domain.SearchRequest{Query: "x"})
		require.ErrorIs(t, err, domain.ErrSearchFailed)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestClient_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Not JSON", `<html>oops</html>`},
		{"Results Not Array", `{"is_recipe": true, "results": "soup"}`},
		{"Recipe Without Title", `{"is_recipe": true, "results": [{"minutes": 5}]}`},
		{"Ingredients Of Wrong Type", `{"is_recipe": true, "results": [{"title": "A", "ingredients": 7}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Search(context.Background(), domain.SearchRequest{Query: "x"})
			assert.ErrorIs(t, err, domain.ErrContractViolation)
		})
	}
}

func TestClient_SessionCookieAndCSRF(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "abc", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: "from-cookie", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"is_recipe": true, "results": []any{}})
	}, WithCSRFToken("configured"))

	ctx := context.Background()
	_, err := c.Search(ctx, domain.SearchRequest{Query: "first"})
	require.NoError(t, err)
	first := svc.last()
	assert.Equal(t, "configured", first.csrf)
	assert.Empty(t, first.cookie)

	require.NoError(t, c.ResetSession(ctx))
	second := svc.last()
	assert.Equal(t, "/reset_session/", second.path)
	assert.Equal(t, "from-cookie", second.csrf)
	assert.Equal(t, "abc", second.cookie)
}

func TestClient_Modify(t *testing.T) {
	c, svc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"title":        "Vegan Chili",
			"ingredients":  []string{"beans", "tofu"},
			"instructions": []string{"1. Cook"},
		})
	})

	out, err := c.Modify(context.Background(), domain.Recipe{Title: "Chili"}, domain.ModVegan)
	require.NoError(t, err)
	assert.Equal(t, "Vegan Chili", out.Title)

	req := svc.last()
	assert.Equal(t, "/modify/", req.path)
	assert.Equal(t, "vegan", req.body["modification"])
}

func TestClient_BasePathPreserved(t *testing.T) {
	svc := &fakeService{handler: func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"is_recipe": true, "results": []any{}})
	}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	c, err := NewClient(srv.URL + "/assistant")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), domain.SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, "/assistant/search/", svc.last().path)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)

	_, err = NewClient("://nope")
	assert.Error(t, err)
}
