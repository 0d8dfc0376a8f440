// Package voice manages the lifecycle of single-utterance speech capture sessions:
// start, stop, transcript delivery, error classification and the cooldown-delayed
// auto-restart, with capture suspended while a dialogue turn is processing.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
)

// DefaultCooldown is the pause between a natural session end and the restart,
// giving the engine time to release its audio handle.
const DefaultCooldown = 800 * time.Millisecond

// TranscriptHandler receives final transcripts.
type TranscriptHandler func(ctx context.Context, text string)

// Manager drives a ports.Recognizer through the voice state machine.
// Safe for concurrent use; collaborators are always called without the lock held,
// except the recognizer itself.
type Manager struct {
	engine       ports.Recognizer
	sink         ports.EventSink
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	onTranscript TranscriptHandler
	cooldown     time.Duration
	baseCtx      context.Context

	mu           sync.Mutex
	state        State
	enabled      bool
	processing   bool
	restartTimer *time.Timer
	restartSeq   uint64
	outbox       []domain.Event
	transitions  []domain.VoiceEvent
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSink sets the destination of voice status events.
func WithSink(sink ports.EventSink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithLifecycleHooks registers observability hooks (OnVoiceTransition).
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithTranscriptHandler sets the receiver of final transcripts.
func WithTranscriptHandler(h TranscriptHandler) Option {
	return func(m *Manager) {
		m.onTranscript = h
	}
}

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.cooldown = d
		}
	}
}

// WithBaseContext sets the context used for restarts fired by the cooldown timer.
func WithBaseContext(ctx context.Context) Option {
	return func(m *Manager) {
		m.baseCtx = ctx
	}
}

// NewManager creates a Manager in the Idle state with voice mode off.
func NewManager(engine ports.Recognizer, opts ...Option) *Manager {
	m := &Manager{
		engine:   engine,
		sink:     ports.NopSink{},
		logger:   logging.NewNop(),
		cooldown: DefaultCooldown,
		baseCtx:  context.Background(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Enabled reports whether voice mode is on.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Status returns the current status as rendered in voice_status_changed events.
func (m *Manager) Status() domain.VoiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.VoiceStatus{State: string(m.state), Enabled: m.enabled}
}

// Enable turns voice mode on. While a turn is processing, capture is deferred
// until EndProcessing.
func (m *Manager) Enable(ctx context.Context) error {
	m.mu.Lock()
	m.enabled = true
	var err error
	if m.processing {
		m.logger.Debug("Voice start deferred until turn completes")
		m.notifyLocked("")
	} else {
		err = m.startLocked(ctx)
	}
	m.unlockAndPublish(ctx)
	return err
}

// Disable turns voice mode off, cancelling a pending restart and stopping capture.
func (m *Manager) Disable(ctx context.Context) {
	m.mu.Lock()
	m.enabled = false
	m.cancelRestartLocked()
	m.stopLocked(ctx)
	m.notifyLocked("")
	m.unlockAndPublish(ctx)
}

// Toggle flips voice mode.
func (m *Manager) Toggle(ctx context.Context) error {
	if m.Enabled() {
		m.Disable(ctx)
		return nil
	}
	return m.Enable(ctx)
}

// BeginProcessing suspends capture while a turn waits on the search service.
func (m *Manager) BeginProcessing(ctx context.Context) {
	m.mu.Lock()
	m.processing = true
	m.cancelRestartLocked()
	m.stopLocked(ctx)
	m.unlockAndPublish(ctx)
}

// EndProcessing lifts the suspension and starts capture if voice mode is on.
func (m *Manager) EndProcessing(ctx context.Context) error {
	m.mu.Lock()
	m.processing = false
	var err error
	if m.enabled && m.state == StateIdle {
		err = m.startLocked(ctx)
	}
	m.unlockAndPublish(ctx)
	return err
}

// HandleEngineEvent consumes a speech engine callback.
func (m *Manager) HandleEngineEvent(ctx context.Context, ev EngineEvent) {
	m.mu.Lock()
	var transcript string
	switch ev.Kind {
	case EngineResult:
		text := strings.TrimSpace(ev.Transcript)
		switch {
		case !ev.Final:
			m.logger.Debug("Voice: Discarding interim result")
		case m.state != StateListening:
			m.logger.Debug("Voice: Dropping transcript outside a capture session", "state", m.state)
		case text == "":
			m.logger.Debug("Voice: Dropping empty transcript")
		default:
			m.moveLocked(EventResult, "", false)
			transcript = text
		}

	case EngineNoMatch:
		m.notifyLocked(NoMatchMessage)

	case EngineError:
		m.cancelRestartLocked()
		if IsTerminalError(ev.Code) {
			m.enabled = false
		}
		m.logger.Warn("Voice: Recognition error", "code", ev.Code)
		m.moveLocked(EventFail, ErrorMessage(ev.Code), true)

	case EngineEnded:
		m.cancelRestartLocked()
		switch {
		case m.enabled && !m.processing && m.state != StateRestarting:
			m.moveLocked(EventEnded, "", false)
			m.scheduleRestartLocked()
		case m.state == StateListening:
			m.moveLocked(EventStop, "", false)
		}

	default:
		m.logger.Warn("Voice: Unknown engine event", "kind", ev.Kind)
	}
	handler := m.onTranscript
	m.unlockAndPublish(ctx)

	if transcript != "" && handler != nil {
		handler(ctx, transcript)
	}
}

// Close cancels a pending restart and stops capture.
func (m *Manager) Close(ctx context.Context) {
	m.Disable(ctx)
}

func (m *Manager) startLocked(ctx context.Context) error {
	if m.state != StateIdle || m.processing {
		return nil
	}
	if err := m.engine.Start(ctx); err != nil {
		m.logger.Warn("Voice: Could not start capture", "err", err)
		m.moveLocked(EventFail, CouldNotStartMessage, true)
		return fmt.Errorf("start speech capture: %w", err)
	}
	m.moveLocked(EventStart, ListeningMessage, false)
	return nil
}

func (m *Manager) stopLocked(ctx context.Context) {
	switch m.state {
	case StateListening:
		if err := m.engine.Stop(ctx); err != nil {
			m.logger.Warn("Voice: Stop failed", "err", err)
		}
		m.moveLocked(EventStop, "", false)
	case StateRestarting:
		m.moveLocked(EventStop, "", false)
	}
}

func (m *Manager) scheduleRestartLocked() {
	m.restartSeq++
	seq := m.restartSeq
	m.restartTimer = time.AfterFunc(m.cooldown, func() {
		m.restart(seq)
	})
}

func (m *Manager) cancelRestartLocked() {
	if m.restartTimer != nil {
		m.restartTimer.Stop()
		m.restartTimer = nil
	}
	m.restartSeq++
}

func (m *Manager) restart(seq uint64) {
	ctx := m.baseCtx
	m.mu.Lock()
	if seq != m.restartSeq || m.state != StateRestarting {
		m.mu.Unlock()
		return
	}
	m.restartTimer = nil

	if err := m.engine.Abort(ctx); err != nil {
		m.logger.Debug("Voice: Abort before restart failed", "err", err)
	}
	if err := m.engine.Start(ctx); err != nil {
		m.logger.Warn("Voice: Restart failed", "err", err)
		m.moveLocked(EventFail, "", true)
	} else {
		m.moveLocked(EventRestart, ListeningMessage, false)
	}
	m.unlockAndPublish(ctx)
}

// moveLocked applies a transition and queues the status event and hook call.
func (m *Manager) moveLocked(ev Event, message string, isError bool) {
	next, err := Transition(m.state, ev)
	if err != nil {
		m.logger.Debug("Voice: Ignoring transition", "err", err)
		return
	}
	m.transitions = append(m.transitions, domain.VoiceEvent{
		Timestamp: time.Now(),
		From:      string(m.state),
		To:        string(next),
		Trigger:   string(ev),
	})
	m.state = next
	m.notifyLocked(message)
	if isError && len(m.outbox) > 0 {
		m.outbox[len(m.outbox)-1].Voice.IsError = true
	}
}

func (m *Manager) notifyLocked(message string) {
	m.outbox = append(m.outbox, domain.Event{
		Type:      domain.EventVoiceStatus,
		Timestamp: time.Now(),
		Message:   message,
		Voice: &domain.VoiceStatus{
			State:   string(m.state),
			Enabled: m.enabled,
			Message: message,
		},
	})
}

// unlockAndPublish releases the lock, then delivers queued events and hooks.
func (m *Manager) unlockAndPublish(ctx context.Context) {
	events, transitions := m.outbox, m.transitions
	m.outbox, m.transitions = nil, nil
	m.mu.Unlock()

	if m.hooks.OnVoiceTransition != nil {
		for i := range transitions {
			m.hooks.OnVoiceTransition(ctx, &transitions[i])
		}
	}
	for _, ev := range events {
		m.sink.Emit(ctx, ev)
	}
}
