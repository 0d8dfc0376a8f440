package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/oklog/ulid/v2"
)

// DefaultLockTTL bounds how long a crashed replica can hold a session.
const DefaultLockTTL = 30 * time.Second

// persistTimeout bounds the write-back after a turn.
const persistTimeout = 5 * time.Second

// ErrNoBuilder is returned by Open and Create when the manager was built without WithBuilder.
var ErrNoBuilder = errors.New("session manager has no controller builder")

// Builder creates the controller for a session. The manager appends the
// options that bind it to the session (ID, restored state, persistence).
type Builder func(sessionID string, opts ...dialogue.Option) *dialogue.Controller

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// live is an open conversation.
type live struct {
	ctrl      *dialogue.Controller
	createdAt time.Time

	mu        sync.Mutex
	persisted *domain.SessionState
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	build   Builder

	liveMu   sync.Mutex
	sessions map[string]*live
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithBuilder sets how controllers are created for opened sessions.
func WithBuilder(b Builder) Option {
	return func(m *Manager) {
		m.build = b
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
		sessions: make(map[string]*live),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, err = m.store.Load(ctx, sessionID)
		return err
	})
	return session, err
}

// LoadOrStart tries to load a session. If not found, it initializes and saves a new one.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, err = m.store.Load(ctx, sessionID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		session = domain.NewSession(sessionID)
		// Persist immediately to reserve the ID
		if err := m.store.Save(ctx, sessionID, session); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return session, err
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, session)
	})
}

// Delete closes the session if it is open and removes it from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.Close(sessionID)
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create starts a new conversation under a fresh ULID.
func (m *Manager) Create(ctx context.Context) (*dialogue.Controller, error) {
	return m.open(ctx, ulid.Make().String(), true)
}

// Open returns the controller of an existing conversation, restoring it from
// the store if it is not live yet. Unknown IDs yield domain.ErrSessionNotFound.
func (m *Manager) Open(ctx context.Context, sessionID string) (*dialogue.Controller, error) {
	return m.open(ctx, sessionID, false)
}

// OpenOrCreate is Open, creating the session when it does not exist.
func (m *Manager) OpenOrCreate(ctx context.Context, sessionID string) (*dialogue.Controller, error) {
	return m.open(ctx, sessionID, true)
}

func (m *Manager) open(ctx context.Context, sessionID string, create bool) (*dialogue.Controller, error) {
	if m.build == nil {
		return nil, ErrNoBuilder
	}

	m.liveMu.Lock()
	if l, ok := m.sessions[sessionID]; ok {
		m.liveMu.Unlock()
		return l.ctrl, nil
	}
	m.liveMu.Unlock()

	var (
		session *domain.Session
		err     error
	)
	if create {
		session, err = m.LoadOrStart(ctx, sessionID)
	} else {
		session, err = m.Load(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}

	l := &live{createdAt: session.CreatedAt, persisted: session.State.Snapshot()}
	l.ctrl = m.build(sessionID,
		dialogue.WithSessionID(sessionID),
		dialogue.WithState(&session.State),
		dialogue.WithStateObserver(m.persist(sessionID, l)),
	)

	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	// Another caller may have opened it while we were loading.
	if existing, ok := m.sessions[sessionID]; ok {
		return existing.ctrl, nil
	}
	m.sessions[sessionID] = l
	m.logger.Debug("Session opened", "session_id", sessionID, "generation", session.State.Generation)
	return l.ctrl, nil
}

// persist writes the settled state back when the turn changed it. Persistence
// failures are logged: the conversation keeps going on the in-memory state.
func (m *Manager) persist(sessionID string, l *live) dialogue.StateObserver {
	return func(ctx context.Context, state *domain.SessionState) {
		l.mu.Lock()
		defer l.mu.Unlock()

		diff := domain.Diff(l.persisted, state)
		if diff == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		record := &domain.Session{
			ID:        sessionID,
			State:     *state.Snapshot(),
			CreatedAt: l.createdAt,
			UpdatedAt: time.Now().UTC(),
		}
		record.State.TurnInFlight = false
		if err := m.Save(ctx, sessionID, record); err != nil {
			m.logger.Error("Failed to persist session", "session_id", sessionID, "err", err)
			return
		}
		l.persisted = record.State.Snapshot()
		m.logger.Debug("Session persisted", "session_id", sessionID, "changed", diff.Fields())
	}
}

// Close forgets the live controller. The persisted session is kept.
func (m *Manager) Close(sessionID string) {
	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	delete(m.sessions, sessionID)
}

// Live returns the number of open conversations.
func (m *Manager) Live() int {
	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	return len(m.sessions)
}
