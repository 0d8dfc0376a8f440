package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/chefmate/internal/adapters/file"
	"github.com/aretw0/chefmate/internal/config"
	"github.com/aretw0/chefmate/pkg/adapters/catalog"
	"github.com/aretw0/chefmate/pkg/adapters/memory"
	"github.com/aretw0/chefmate/pkg/adapters/redis"
	"github.com/aretw0/chefmate/pkg/adapters/search"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/observability"
	"github.com/aretw0/chefmate/pkg/persistence/middleware"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/aretw0/chefmate/pkg/session"
)

// Stack is everything a command needs, built from one Config.
type Stack struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   ports.SessionStore
	Locker  ports.DistributedLocker
	Catalog *catalog.Catalog
	Metrics *observability.Metrics

	redis       *redis.Store
	newSearcher func() ports.Searcher
}

// NewStack wires the store, search backend and observability of cfg.
func NewStack(cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	if err := s.setupStore(); err != nil {
		return nil, err
	}
	if err := s.setupSearch(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) setupStore() error {
	cfg := s.Config.Store
	switch cfg.Driver {
	case config.DriverFile:
		s.Store = file.New(cfg.Path)
	case config.DriverRedis:
		opts := []redis.Option{redis.WithTTL(cfg.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		s.redis = redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		s.Store = s.redis
		s.Locker = redis.NewLocker(s.redis.Client(), s.redis.Prefix())
	default:
		s.Store = memory.NewStore()
	}

	if cfg.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return err
		}
		s.Store = middleware.Chain(s.Store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	s.Logger.Debug("Session store ready", "driver", cfg.Driver, "encrypted", cfg.EncryptionKey != "")
	return nil
}

func (s *Stack) setupSearch() error {
	if !s.Config.UsesCatalog() {
		cfg := s.Config.Search
		opts := []search.Option{
			search.WithTimeout(cfg.Timeout),
			search.WithLogger(s.Logger),
		}
		if cfg.CSRFToken != "" {
			opts = append(opts, search.WithCSRFToken(cfg.CSRFToken))
		}
		// Fail fast on a bad URL; each session then gets its own cookie jar.
		if _, err := search.NewClient(cfg.URL, opts...); err != nil {
			return err
		}
		s.newSearcher = func() ports.Searcher {
			c, _ := search.NewClient(cfg.URL, opts...)
			return c
		}
		s.Logger.Debug("Using remote search service", "url", cfg.URL)
		return nil
	}

	c, err := LoadCatalog(s.Config.Catalog)
	if err != nil {
		return err
	}
	s.Catalog = c
	s.newSearcher = func() ports.Searcher { return c.NewSession() }
	s.Logger.Debug("Using local catalog", "recipes", c.Len(), "digest", c.Digest())
	return nil
}

// LoadCatalog opens the configured recipe directory, or the embedded catalog.
func LoadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Dir == "" {
		return catalog.Default()
	}
	c, err := catalog.LoadDir(cfg.Dir, cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

// NewSearcher returns a searcher carrying its own server-side session.
func (s *Stack) NewSearcher() ports.Searcher {
	return s.newSearcher()
}

// Hooks returns the log and metric hooks every controller gets.
func (s *Stack) Hooks() domain.LifecycleHooks {
	return observability.LogHooks(s.Logger).Merge(s.Metrics.Hooks())
}

// Sessions builds the session registry. sinkFor supplies the per-session
// event sink of the host (terminal, HTTP streams); it may be nil.
func (s *Stack) Sessions(sinkFor func(sessionID string) ports.EventSink) *session.Manager {
	opts := []session.Option{
		session.WithLogger(s.Logger),
		session.WithBuilder(s.builder(sinkFor)),
	}
	if s.Locker != nil {
		opts = append(opts, session.WithLocker(s.Locker))
	}
	return session.NewManager(s.Store, opts...)
}

func (s *Stack) builder(sinkFor func(string) ports.EventSink) session.Builder {
	return func(sessionID string, opts ...dialogue.Option) *dialogue.Controller {
		sink := ports.MultiSink{s.Metrics.Sink()}
		if sinkFor != nil {
			sink = append(sink, sinkFor(sessionID))
		}
		base := []dialogue.Option{
			dialogue.WithLogger(s.Logger),
			dialogue.WithLifecycleHooks(s.Hooks()),
			dialogue.WithTimeout(s.Config.Turn.Timeout),
			dialogue.WithMaxInputSize(s.Config.Turn.MaxInputSize),
			dialogue.WithSink(sink),
		}
		return dialogue.New(s.NewSearcher(), append(base, opts...)...)
	}
}

// Health checks the backends that can go away.
func (s *Stack) Health(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases backend connections.
func (s *Stack) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
