package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/observability"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordTurns(t *testing.T) {
	m := observability.NewMetrics()
	calls := 0
	searcher := ports.SearcherFunc(func(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("boom")
		}
		return &domain.SearchResponse{IsRecipe: true, Results: []domain.Recipe{{Title: "Soup"}}}, nil
	})

	ctrl := dialogue.New(searcher,
		dialogue.WithLifecycleHooks(m.Hooks()),
		dialogue.WithSink(m.Sink()),
	)
	ctx := context.Background()

	_, err := ctrl.HandleInput(ctx, "soup please")
	require.NoError(t, err)
	_, err = ctrl.HandleInput(ctx, "stew please")
	require.NoError(t, err)
	_, err = ctrl.HandleInput(ctx, "start over")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("search", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("search", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("reset", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCalls.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCalls.WithLabelValues("search", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TurnsInFlight))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("show_results")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("generic_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Events.WithLabelValues("processing_changed")))
}

func TestMetrics_VoiceTransitions(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	hooks.OnVoiceTransition(context.Background(), &domain.VoiceEvent{From: "idle", To: "listening", Trigger: "start"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VoiceTransitions.WithLabelValues("idle", "listening")))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Turns.WithLabelValues("select", "succeeded").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chefmate_turns_total{intent="select",outcome="succeeded"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)
	ctx := context.Background()

	hooks.OnTurnEnd(ctx, &domain.TurnEvent{
		SessionID: "s1",
		TurnID:    "t1",
		Intent:    domain.SearchIntent("soup"),
		Outcome:   domain.OutcomeFailed,
		Duration:  time.Second,
	})
	hooks.OnSearchReturn(ctx, &domain.SearchEvent{TurnID: "t1", Err: errors.New("timeout")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=WARN")
	assert.Contains(t, lines[0], "msg=turn_end")
	assert.Contains(t, lines[0], "outcome=failed")
	assert.Contains(t, lines[1], "msg=search_return")
	assert.Contains(t, lines[1], "err=timeout")
}
