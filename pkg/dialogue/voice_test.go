package dialogue_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/aretw0/chefmate/pkg/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecognizer struct {
	mu     sync.Mutex
	starts int
}

func (r *countingRecognizer) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	return nil
}

func (r *countingRecognizer) Stop(context.Context) error  { return nil }
func (r *countingRecognizer) Abort(context.Context) error { return nil }

func (r *countingRecognizer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func TestController_VoiceAttachedMidTurnWaitsForTurn(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	searcher := ports.SearcherFunc(func(context.Context, domain.SearchRequest) (*domain.SearchResponse, error) {
		close(entered)
		<-release
		return &domain.SearchResponse{IsRecipe: true, Results: []domain.Recipe{{Title: "Pasta"}}}, nil
	})
	c := dialogue.New(searcher)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.HandleInput(ctx, "pasta")
		assert.NoError(t, err)
	}()
	<-entered
	require.True(t, c.Snapshot().TurnInFlight)

	engine := &countingRecognizer{}
	vm := voice.NewManager(engine)
	defer vm.Close(ctx)
	detach := c.AttachVoice(ctx, vm)
	defer detach()

	require.NoError(t, vm.Enable(ctx))
	assert.Equal(t, voice.StateIdle, vm.State(), "capture must wait for the turn")
	assert.Zero(t, engine.count())

	close(release)
	<-done
	assert.Equal(t, voice.StateListening, vm.State())
	assert.Equal(t, 1, engine.count())
}
