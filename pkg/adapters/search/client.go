// Package search is the HTTP client of the recipe search service.
//
// It speaks the contract of the original web backend: JSON POSTs to /search/,
// /modify/ and /reset_session/, a cookie-bound server session, and the Django
// X-CSRFToken header taken from the csrftoken cookie when the server set one.
package search

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Endpoint paths, relative to the base URL.
const (
	SearchPath = "search/"
	ModifyPath = "modify/"
	ResetPath  = "reset_session/"
)

// CSRFCookie and CSRFHeader follow the Django conventions.
const (
	CSRFCookie = "csrftoken"
	CSRFHeader = "X-CSRFToken"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

//go:embed response.schema.json
var responseSchema string

// Client talks to the recipe search service. It implements ports.Searcher and
// ports.SessionResetter. One Client carries one server-side session.
type Client struct {
	base      *url.URL
	http      *http.Client
	csrfToken string
	logger    *slog.Logger
	schema    *jsonschema.Schema
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added if missing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithCSRFToken sets the token sent when no csrftoken cookie is present.
func WithCSRFToken(token string) Option {
	return func(c *Client) {
		c.csrfToken = token
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("search url %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: logging.NewNop(),
		schema: schema,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	const name = "search-response.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(responseSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// Search posts a request to /search/.
// A response carrying an error field is returned as is; callers validate it.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	var resp domain.SearchResponse
	if err := c.post(ctx, SearchPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ModifyRequest is the body of the dedicated modification endpoint.
type ModifyRequest struct {
	Recipe       domain.Recipe `json:"recipe"`
	Modification string        `json:"modification"`
}

// Modify posts to /modify/ and returns the transformed recipe.
func (c *Client) Modify(ctx context.Context, recipe domain.Recipe, m domain.Modification) (*domain.Recipe, error) {
	var raw json.RawMessage
	body := ModifyRequest{Recipe: recipe, Modification: string(m)}
	if err := c.postRaw(ctx, ModifyPath, body, &raw); err != nil {
		return nil, err
	}
	var out domain.Recipe
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode modified recipe: %v", domain.ErrContractViolation, err)
	}
	return &out, nil
}

// ResetSession clears the server-side session (accumulated ingredients and preferences).
func (c *Client) ResetSession(ctx context.Context) error {
	var resp domain.SearchResponse
	return c.post(ctx, ResetPath, struct{}{}, &resp)
}

// post sends body as JSON and decodes a schema-valid response into out.
func (c *Client) post(ctx context.Context, path string, body any, out *domain.SearchResponse) error {
	var raw json.RawMessage
	if err := c.postRaw(ctx, path, body, &raw); err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrContractViolation, err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrContractViolation, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrContractViolation, err)
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string, body any, out *json.RawMessage) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.csrf(); token != "" {
		req.Header.Set(CSRFHeader, token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrSearchFailed, err)
	}
	c.logger.Debug("Search service call",
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.Status, data)
	}
	*out = data
	return nil
}

// statusError prefers the service's own error text over the HTTP status.
func statusError(status string, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		if payload.Details != "" {
			return fmt.Errorf("%w: %s: %s (%s)", domain.ErrSearchFailed, status, payload.Error, payload.Details)
		}
		return fmt.Errorf("%w: %s: %s", domain.ErrSearchFailed, status, payload.Error)
	}
	return fmt.Errorf("%w: %s", domain.ErrSearchFailed, status)
}

func (c *Client) csrf() string {
	if c.http.Jar != nil {
		for _, cookie := range c.http.Jar.Cookies(c.base) {
			if cookie.Name == CSRFCookie && cookie.Value != "" {
				return cookie.Value
			}
		}
	}
	return c.csrfToken
}

