package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	starts   int
	stops    int
	aborts   int
	startErr error
}

func (f *fakeRecognizer) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	return nil
}

func (f *fakeRecognizer) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeRecognizer) Abort(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts++
	return nil
}

func (f *fakeRecognizer) counts() (starts, stops, aborts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.aborts
}

func (f *fakeRecognizer) failStarts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Emit(_ context.Context, ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last() domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return domain.Event{}
	}
	return s.events[len(s.events)-1]
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeRecognizer, *recordingSink) {
	t.Helper()
	engine := &fakeRecognizer{}
	sink := &recordingSink{}
	opts = append([]Option{WithSink(sink), WithCooldown(10 * time.Millisecond)}, opts...)
	m := NewManager(engine, opts...)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m, engine, sink
}

func TestManager_EnableStartsListening(t *testing.T) {
	ctx := context.Background()
	m, engine, sink := newTestManager(t)

	require.NoError(t, m.Enable(ctx))
	assert.Equal(t, StateListening, m.State())
	assert.True(t, m.Enabled())

	starts, _, _ := engine.counts()
	assert.Equal(t, 1, starts)

	last := sink.last()
	require.NotNil(t, last.Voice)
	assert.Equal(t, domain.EventVoiceStatus, last.Type)
	assert.Equal(t, "listening", last.Voice.State)
	assert.Equal(t, ListeningMessage, last.Voice.Message)
}

func TestManager_StartFailure(t *testing.T) {
	ctx := context.Background()
	m, engine, sink := newTestManager(t)
	engine.failStarts(errors.New("no microphone"))

	err := m.Enable(ctx)
	require.Error(t, err)
	assert.Equal(t, StateIdle, m.State())

	last := sink.last()
	require.NotNil(t, last.Voice)
	assert.Equal(t, CouldNotStartMessage, last.Voice.Message)
	assert.True(t, last.Voice.IsError)
}

func TestManager_FinalTranscriptDeliveredOnce(t *testing.T) {
	ctx := context.Background()
	var (
		mu  sync.Mutex
		got []string
	)
	m, _, _ := newTestManager(t, WithTranscriptHandler(func(_ context.Context, text string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, text)
	}))
	require.NoError(t, m.Enable(ctx))

	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineResult, Transcript: "pasta with", Final: false})
	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineResult, Transcript: "  pasta with tomatoes ", Final: true})
	// Listening is over; a duplicate result must not be delivered.
	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineResult, Transcript: "pasta with tomatoes", Final: true})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"pasta with tomatoes"}, got)
	assert.Equal(t, StateIdle, m.State())
}

func TestManager_NoMatchKeepsState(t *testing.T) {
	ctx := context.Background()
	m, _, sink := newTestManager(t)
	require.NoError(t, m.Enable(ctx))

	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineNoMatch})
	assert.Equal(t, StateListening, m.State())
	assert.Equal(t, NoMatchMessage, sink.last().Message)
}

func TestManager_NaturalEndRestartsAfterCooldown(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t)
	require.NoError(t, m.Enable(ctx))

	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineEnded})
	assert.Equal(t, StateRestarting, m.State())

	require.Eventually(t, func() bool {
		return m.State() == StateListening
	}, time.Second, 5*time.Millisecond)

	starts, _, aborts := engine.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, aborts)
}

func TestManager_DisableCancelsPendingRestart(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, WithCooldown(30*time.Millisecond))
	require.NoError(t, m.Enable(ctx))

	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineEnded})
	m.Disable(ctx)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, StateIdle, m.State())
	starts, _, _ := engine.counts()
	assert.Equal(t, 1, starts)
}

func TestManager_ProcessingSuspendsCapture(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t)
	require.NoError(t, m.Enable(ctx))

	m.BeginProcessing(ctx)
	assert.Equal(t, StateIdle, m.State())
	_, stops, _ := engine.counts()
	assert.Equal(t, 1, stops)

	// A natural end while processing must not schedule a restart.
	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineEnded})
	assert.Equal(t, StateIdle, m.State())

	require.NoError(t, m.EndProcessing(ctx))
	assert.Equal(t, StateListening, m.State())
	starts, _, _ := engine.counts()
	assert.Equal(t, 2, starts)
}

func TestManager_EnableWhileProcessingIsDeferred(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t)

	m.BeginProcessing(ctx)
	require.NoError(t, m.Enable(ctx))
	assert.Equal(t, StateIdle, m.State())
	starts, _, _ := engine.counts()
	assert.Zero(t, starts)

	require.NoError(t, m.EndProcessing(ctx))
	assert.Equal(t, StateListening, m.State())
}

func TestManager_EndProcessingWithVoiceOff(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t)

	m.BeginProcessing(ctx)
	require.NoError(t, m.EndProcessing(ctx))
	assert.Equal(t, StateIdle, m.State())
	starts, _, _ := engine.counts()
	assert.Zero(t, starts)
}

func TestManager_Errors(t *testing.T) {
	t.Run("Transient Error Keeps Voice Mode", func(t *testing.T) {
		ctx := context.Background()
		m, _, sink := newTestManager(t)
		require.NoError(t, m.Enable(ctx))

		m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineError, Code: "network"})
		assert.Equal(t, StateIdle, m.State())
		assert.True(t, m.Enabled())

		last := sink.last()
		require.NotNil(t, last.Voice)
		assert.True(t, last.Voice.IsError)
		assert.Equal(t, "Network communication failed", last.Voice.Message)
	})

	t.Run("Permission Error Disables Voice Mode", func(t *testing.T) {
		ctx := context.Background()
		m, _, sink := newTestManager(t)
		require.NoError(t, m.Enable(ctx))

		m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineError, Code: "not-allowed"})
		assert.Equal(t, StateIdle, m.State())
		assert.False(t, m.Enabled())
		assert.Equal(t, "Microphone access denied", sink.last().Message)
	})

	t.Run("Unknown Code", func(t *testing.T) {
		ctx := context.Background()
		m, _, sink := newTestManager(t)
		require.NoError(t, m.Enable(ctx))

		m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineError, Code: "bad-grammar"})
		assert.Equal(t, "Error: bad-grammar", sink.last().Message)
	})
}

func TestManager_RestartFailureClearsIndicators(t *testing.T) {
	ctx := context.Background()
	m, engine, sink := newTestManager(t)
	require.NoError(t, m.Enable(ctx))

	engine.failStarts(errors.New("device busy"))
	m.HandleEngineEvent(ctx, EngineEvent{Kind: EngineEnded})

	require.Eventually(t, func() bool {
		last := sink.last()
		return last.Voice != nil && last.Voice.IsError
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateIdle, m.State())
}

func TestManager_Toggle(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	require.NoError(t, m.Toggle(ctx))
	assert.True(t, m.Enabled())
	require.NoError(t, m.Toggle(ctx))
	assert.False(t, m.Enabled())
	assert.Equal(t, StateIdle, m.State())
}

func TestManager_TransitionHook(t *testing.T) {
	ctx := context.Background()
	var (
		mu    sync.Mutex
		trail []string
	)
	hooks := domain.LifecycleHooks{
		OnVoiceTransition: func(_ context.Context, e *domain.VoiceEvent) {
			mu.Lock()
			defer mu.Unlock()
			trail = append(trail, e.From+">"+e.To)
		},
	}
	m, _, _ := newTestManager(t, WithLifecycleHooks(hooks))

	require.NoError(t, m.Enable(ctx))
	m.Disable(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"idle>listening", "listening>idle"}, trail)
}
