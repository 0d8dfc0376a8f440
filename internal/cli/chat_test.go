package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/chefmate/internal/config"
	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStack(t *testing.T, mutate func(*config.Config)) *Stack {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	stack, err := NewStack(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	return stack
}

// jsonEvents decodes the JSON lines written in JSON mode, dropping processing toggles.
func jsonEvents(t *testing.T, out string) []domain.Event {
	t.Helper()
	var events []domain.Event
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev domain.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), scanner.Text())
		if ev.Type == domain.EventProcessingChanged || ev.Type == "" {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func types(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestRunChat_JSONConversation(t *testing.T) {
	stack := newTestStack(t, nil)
	in := strings.NewReader("soup\n\"recipe 2\"\n\nmake it vegan\nquit\n")
	var out bytes.Buffer

	err := RunChat(context.Background(), stack, ChatOptions{JSON: true}, in, &out)
	require.NoError(t, err)

	events := jsonEvents(t, out.String())
	assert.Equal(t, []domain.EventType{
		domain.EventAssistantMessage,
		domain.EventShowResults,
		domain.EventShowDetail,
		domain.EventShowDetail,
	}, types(events))

	assert.Len(t, events[1].Recipes, 3)
	require.NotNil(t, events[2].Recipe)
	assert.Equal(t, "Red Lentil Soup", events[2].Recipe.Title)
	assert.NotContains(t, out.String(), "Bye!", "system messages are text-mode only")
}

func TestRunChat_TextMode(t *testing.T) {
	stack := newTestStack(t, nil)
	in := strings.NewReader("soup\nexit\n")
	var out bytes.Buffer

	require.NoError(t, RunChat(context.Background(), stack, ChatOptions{}, in, &out))

	text := out.String()
	assert.Contains(t, text, "> ")
	assert.Contains(t, text, "Chicken Noodle Soup")
	assert.Contains(t, text, ">>> Bye!")
	assert.NotContains(t, text, "Resume with", "memory sessions cannot be resumed")
}

func TestRunChat_ReportsRejectedInput(t *testing.T) {
	stack := newTestStack(t, func(c *config.Config) { c.Turn.MaxInputSize = 8 })
	in := strings.NewReader("a very long list of ingredients\n")
	var out bytes.Buffer

	require.NoError(t, RunChat(context.Background(), stack, ChatOptions{}, in, &out))
	assert.Contains(t, out.String(), "Please try again.")
}

func TestRunChat_ResumeFromFileStore(t *testing.T) {
	dir := t.TempDir()
	stack := newTestStack(t, func(c *config.Config) {
		c.Store.Driver = config.DriverFile
		c.Store.Path = dir
	})
	ctx := context.Background()

	var first bytes.Buffer
	opts := ChatOptions{SessionID: "dinner"}
	require.NoError(t, RunChat(ctx, stack, opts, strings.NewReader("soup\nrecipe 1\nquit\n"), &first))
	assert.Contains(t, first.String(), "Resume with --session dinner")

	var second bytes.Buffer
	require.NoError(t, RunChat(ctx, stack, opts, strings.NewReader("quit\n"), &second))
	assert.Contains(t, second.String(), "Resuming session 'dinner'.")
	assert.Contains(t, second.String(), "Current recipe: Chicken Noodle Soup")
	assert.NotContains(t, second.String(), dialogue.WelcomeMessage, "resumed sessions are not greeted again")

	var fresh bytes.Buffer
	opts.Fresh = true
	require.NoError(t, RunChat(ctx, stack, opts, strings.NewReader("quit\n"), &fresh))
	assert.NotContains(t, fresh.String(), "Resuming session")
	assert.Contains(t, fresh.String(), dialogue.WelcomeMessage)
}

func TestRunChat_Cancelled(t *testing.T) {
	stack := newTestStack(t, nil)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunChat(ctx, stack, ChatOptions{JSON: true}, pr, io.Discard)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, HandleExecutionError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("chat did not stop on cancellation")
	}
}
