package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/voice"
	"github.com/gorilla/websocket"
)

const (
	voiceWriteTimeout = 5 * time.Second
	voicePingInterval = 20 * time.Second
	voiceReadLimit    = 16 << 10
	voiceOutbox       = 64
)

// Frame types of the voice socket. The browser owns the speech engine: it
// obeys command frames and reports engine callbacks back as frames whose type
// is a voice.EngineEventKind ("result", "no-match", "error", "ended").
const (
	frameEnable  = "enable"
	frameDisable = "disable"
	frameToggle  = "toggle"
	frameCommand = "command"
	frameEvent   = "event"
)

var errVoiceClosed = errors.New("voice socket closed")

// voiceFrame is the single JSON message shape in both directions.
type voiceFrame struct {
	Type       string        `json:"type"`
	Transcript string        `json:"transcript,omitempty"`
	Final      bool          `json:"final,omitempty"`
	Code       string        `json:"code,omitempty"`
	Command    string        `json:"command,omitempty"`
	Event      *domain.Event `json:"event,omitempty"`
}

// socketRecognizer drives the remote speech engine by sending command frames.
type socketRecognizer struct {
	out  chan<- voiceFrame
	done <-chan struct{}
}

func (r *socketRecognizer) send(command string) error {
	select {
	case r.out <- voiceFrame{Type: frameCommand, Command: command}:
		return nil
	case <-r.done:
		return errVoiceClosed
	}
}

func (r *socketRecognizer) Start(context.Context) error { return r.send("start") }
func (r *socketRecognizer) Stop(context.Context) error  { return r.send("stop") }
func (r *socketRecognizer) Abort(context.Context) error { return r.send("abort") }

// VoiceBridge handles GET /sessions/{id}/voice. It upgrades to a websocket,
// runs a voice.Manager against the browser's speech engine, feeds final
// transcripts into the session and streams the session's events back.
func (s *Server) VoiceBridge(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.open(w, r)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(voiceReadLimit)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	sessionID := ctrl.SessionID()
	events, unsubscribe := s.Streams.Subscribe(sessionID)
	defer unsubscribe()

	out := make(chan voiceFrame, voiceOutbox)
	vm := voice.NewManager(&socketRecognizer{out: out, done: ctx.Done()},
		voice.WithSink(s.Streams.Sink(sessionID)),
		voice.WithLogger(s.Logger.With("session_id", sessionID)),
		voice.WithLifecycleHooks(s.VoiceHooks),
		voice.WithCooldown(s.VoiceCooldown),
		voice.WithBaseContext(ctx),
		voice.WithTranscriptHandler(s.transcriptHandler(ctrl)),
	)
	detach := ctrl.AttachVoice(ctx, vm)

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writeVoiceFrames(ctx, conn, out, events)
		// Unblocks the reader when the client stops draining.
		_ = conn.Close()
	}()

	s.Logger.Info("Voice: Client connected", "session_id", sessionID)
	s.readVoiceFrames(ctx, conn, vm)

	cancel()
	detach()
	vm.Close(context.Background())
	if err := <-writerDone; err != nil {
		s.Logger.Debug("Voice: Writer stopped", "session_id", sessionID, "err", err)
	}
	s.Logger.Info("Voice: Client disconnected", "session_id", sessionID)
}

func (s *Server) transcriptHandler(ctrl *dialogue.Controller) voice.TranscriptHandler {
	return func(ctx context.Context, text string) {
		// The turn blocks on the search service; the socket keeps reading meanwhile
		// so the user can still toggle voice or reset.
		go func() {
			if _, err := ctrl.HandleInput(ctx, text); err != nil {
				s.Logger.Warn("Voice: Transcript rejected", "session_id", ctrl.SessionID(), "err", err)
			}
		}()
	}
}

func (s *Server) readVoiceFrames(ctx context.Context, conn *websocket.Conn, vm *voice.Manager) {
	extend := func() { _ = conn.SetReadDeadline(time.Now().Add(2 * voicePingInterval)) }
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		var f voiceFrame
		if err := conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Logger.Debug("Voice: Read failed", "err", err)
			}
			return
		}
		extend()

		var err error
		switch f.Type {
		case frameEnable:
			err = vm.Enable(ctx)
		case frameDisable:
			vm.Disable(ctx)
		case frameToggle:
			err = vm.Toggle(ctx)
		default:
			vm.HandleEngineEvent(ctx, voice.EngineEvent{
				Kind:       voice.EngineEventKind(f.Type),
				Transcript: f.Transcript,
				Final:      f.Final,
				Code:       f.Code,
			})
		}
		// Start failures already reached the client as a voice status event.
		if err != nil {
			s.Logger.Debug("Voice: Command failed", "type", f.Type, "err", err)
		}
	}
}

func writeVoiceFrames(ctx context.Context, conn *websocket.Conn, out <-chan voiceFrame, events <-chan domain.Event) error {
	ping := time.NewTicker(voicePingInterval)
	defer ping.Stop()

	for {
		var frame voiceFrame
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(voiceWriteTimeout))
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(voiceWriteTimeout)); err != nil {
				return err
			}
			continue
		case frame = <-out:
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			frame = voiceFrame{Type: frameEvent, Event: &ev}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(voiceWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}
	}
}
