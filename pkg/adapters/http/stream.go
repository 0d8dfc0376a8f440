package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
)

// subscriberBuffer is how many events a slow client may lag behind before drops.
const subscriberBuffer = 32

// StreamManager fans session events out to live subscribers (SSE and websocket clients).
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Event]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan domain.Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for sessionID. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan domain.Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.Event, subscriberBuffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan domain.Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Broadcast delivers ev to every subscriber of sessionID without blocking.
func (sm *StreamManager) Broadcast(sessionID string, ev domain.Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("Stream: Client buffer full, dropping event", "session_id", sessionID, "type", ev.Type)
		}
	}
}

// Subscribers returns the number of live subscribers of sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Sink returns an EventSink that broadcasts to sessionID.
func (sm *StreamManager) Sink(sessionID string) ports.EventSink {
	return ports.EventSinkFunc(func(ctx context.Context, ev domain.Event) {
		sm.Broadcast(sessionID, ev)
	})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
// The optional "types" query parameter is a comma-separated allowlist of event types.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.open(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := ctrl.SessionID()
	allow := parseTypes(r.URL.Query().Get("types"))

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.Logger.Info("SSE: Client subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE: Client disconnected", "session_id", sessionID)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if len(allow) > 0 && !allow[ev.Type] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Error("SSE: Event encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func parseTypes(raw string) map[domain.EventType]bool {
	if raw == "" {
		return nil
	}
	out := map[domain.EventType]bool{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[domain.EventType(t)] = true
		}
	}
	return out
}
