package chefmate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/adapters/catalog"
	"github.com/aretw0/chefmate/pkg/adapters/memory"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/aretw0/chefmate/pkg/session"
)

// Version is set at build time with -ldflags "-X github.com/aretw0/chefmate.Version=...".
var Version = "dev"

// Assistant is the high-level entry point for the ChefMate library.
// It wires a search backend, a session store and the turn controller
// so hosts only deal with conversations.
type Assistant struct {
	sessions    *session.Manager
	catalog     *catalog.Catalog
	newSearcher func() ports.Searcher
	store       ports.SessionStore
	sinkFor     func(sessionID string) ports.EventSink
	hooks       domain.LifecycleHooks
	dialogOpts  []dialogue.Option
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Assistant.
type Option func(*Assistant)

// WithSearcher replaces the built-in catalog. newSearcher is called once per
// conversation, so stateful clients (cookie jars) are not shared.
func WithSearcher(newSearcher func() ports.Searcher) Option {
	return func(a *Assistant) {
		a.newSearcher = newSearcher
	}
}

// WithStore persists conversations. Defaults to an in-memory store.
func WithStore(store ports.SessionStore) Option {
	return func(a *Assistant) {
		a.store = store
	}
}

// WithSink routes the render events of each conversation to the host.
func WithSink(sinkFor func(sessionID string) ports.EventSink) Option {
	return func(a *Assistant) {
		a.sinkFor = sinkFor
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Assistant) {
		a.hooks = hooks
	}
}

// WithControllerOptions appends options (timeouts, classifier) to every controller.
func WithControllerOptions(opts ...dialogue.Option) Option {
	return func(a *Assistant) {
		a.dialogOpts = append(a.dialogOpts, opts...)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// New initializes an Assistant. Without WithSearcher it answers from the
// embedded recipe catalog.
func New(opts ...Option) (*Assistant, error) {
	a := &Assistant{}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	if a.newSearcher == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load recipe catalog: %w", err)
		}
		a.catalog = c
		a.newSearcher = func() ports.Searcher { return c.NewSession() }
	}

	a.sessions = session.NewManager(a.store,
		session.WithLogger(a.logger),
		session.WithBuilder(a.build),
	)
	return a, nil
}

func (a *Assistant) build(sessionID string, opts ...dialogue.Option) *dialogue.Controller {
	base := []dialogue.Option{
		dialogue.WithLogger(a.logger),
		dialogue.WithLifecycleHooks(a.hooks),
	}
	if a.sinkFor != nil {
		base = append(base, dialogue.WithSink(a.sinkFor(sessionID)))
	}
	base = append(base, a.dialogOpts...)
	return dialogue.New(a.newSearcher(), append(base, opts...)...)
}

// Start opens a new conversation and emits its welcome message.
func (a *Assistant) Start(ctx context.Context) (*dialogue.Controller, error) {
	ctrl, err := a.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	ctrl.Greet(ctx)
	return ctrl, nil
}

// Resume reopens a stored conversation. Unknown IDs yield domain.ErrSessionNotFound.
func (a *Assistant) Resume(ctx context.Context, sessionID string) (*dialogue.Controller, error) {
	return a.sessions.Open(ctx, sessionID)
}

// Sessions returns the registry of live and stored conversations, for hosts
// that serve them (HTTP, MCP).
func (a *Assistant) Sessions() *session.Manager {
	return a.sessions
}

// Catalog returns the embedded catalog, or nil when a custom searcher is used.
func (a *Assistant) Catalog() *catalog.Catalog {
	return a.catalog
}
