package dialogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
)

// DefaultTimeout bounds every call to the search service.
const DefaultTimeout = 30 * time.Second

// Classifier maps an utterance to an intent given the current state.
// *intent.Classifier is the standard implementation.
type Classifier interface {
	Classify(text string, state *domain.SessionState) domain.Intent
}

// VoiceGate is the part of the voice session the controller coordinates with:
// capture is suspended while a turn waits on the search service.
type VoiceGate interface {
	BeginProcessing(ctx context.Context)
	EndProcessing(ctx context.Context) error
}

// StateObserver is notified with a snapshot after every settled turn.
type StateObserver func(ctx context.Context, state *domain.SessionState)

// Option configures the Controller.
type Option func(*Controller)

// WithSink sets the destination of render events.
func WithSink(sink ports.EventSink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

// WithVoice couples the controller to a voice session.
func WithVoice(v VoiceGate) Option {
	return func(c *Controller) {
		c.voice = v
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClassifier replaces the default rule table.
func WithClassifier(cl Classifier) Option {
	return func(c *Controller) {
		c.classifier = cl
	}
}

// WithSessionID tags hook events and logs with the session ID.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithState starts the controller from an existing (restored) state.
// A stale TurnInFlight flag is cleared.
func WithState(state *domain.SessionState) Option {
	return func(c *Controller) {
		if state != nil {
			c.state = state.Snapshot()
			c.state.TurnInFlight = false
		}
	}
}

// WithStateObserver registers a callback for settled turns, typically persistence.
func WithStateObserver(fn StateObserver) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithMaxInputSize overrides the sanitizer size limit.
func WithMaxInputSize(n int) Option {
	return func(c *Controller) {
		c.maxInput = n
	}
}
