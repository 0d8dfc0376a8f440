package domain

import (
	"context"
	"time"
)

// EventType defines the category of a render event.
type EventType string

const (
	EventSessionReset       EventType = "session_reset"
	EventShowResults        EventType = "show_results"
	EventShowDetail         EventType = "show_detail"
	EventNeedRecipeFirst    EventType = "need_recipe_first"
	EventModificationFailed EventType = "modification_failed"
	EventFollowUpFailed     EventType = "follow_up_failed"
	EventNoMatches          EventType = "no_matches"
	EventGenericError       EventType = "generic_error"
	EventAssistantMessage   EventType = "assistant_message"
	EventProcessingChanged  EventType = "processing_changed"
	EventVoiceStatus        EventType = "voice_status_changed"
)

// Event is what the host should render. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TurnID    string    `json:"turn_id,omitempty"`

	// Generation is the session generation the turn started in.
	Generation uint64 `json:"generation"`

	// Stale marks the outcome of a turn that completed after a Reset.
	// Hosts should not render it as current.
	Stale bool `json:"stale,omitempty"`

	Message      string       `json:"message,omitempty"`
	Recipes      []Recipe     `json:"recipes,omitempty"`
	Recipe       *Recipe      `json:"recipe,omitempty"`
	QuickReplies []string     `json:"quick_replies,omitempty"`
	Processing   bool         `json:"processing,omitempty"`
	Voice        *VoiceStatus `json:"voice,omitempty"`
}

// IsFailure reports whether the event describes a failed or refused turn.
func (e Event) IsFailure() bool {
	switch e.Type {
	case EventNeedRecipeFirst, EventModificationFailed, EventFollowUpFailed, EventGenericError:
		return true
	}
	return false
}

// VoiceStatus is the payload of EventVoiceStatus.
type VoiceStatus struct {
	State   string `json:"state"`
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// TurnOutcome classifies how a turn settled.
type TurnOutcome string

const (
	OutcomeSucceeded    TurnOutcome = "succeeded"
	OutcomeFailed       TurnOutcome = "failed"
	OutcomePrecondition TurnOutcome = "precondition"
	OutcomeRejected     TurnOutcome = "rejected"
	OutcomeStale        TurnOutcome = "stale"
)

// TurnEvent describes the start or the end of a turn.
type TurnEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	SessionID  string        `json:"session_id,omitempty"`
	TurnID     string        `json:"turn_id"`
	Intent     Intent        `json:"intent"`
	Generation uint64        `json:"generation"`
	Outcome    TurnOutcome   `json:"outcome,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// SearchEvent describes a call to the search service.
type SearchEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id,omitempty"`
	TurnID    string        `json:"turn_id"`
	Request   SearchRequest `json:"request"`
	Results   int           `json:"results,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// VoiceEvent describes a voice session state change.
type VoiceEvent struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Trigger   string    `json:"trigger"`
}

// LifecycleHooks defines callbacks for controller observability.
type LifecycleHooks struct {
	OnTurnStart       func(context.Context, *TurnEvent)
	OnTurnEnd         func(context.Context, *TurnEvent)
	OnSearchCall      func(context.Context, *SearchEvent)
	OnSearchReturn    func(context.Context, *SearchEvent)
	OnVoiceTransition func(context.Context, *VoiceEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnStart:       chain(h.OnTurnStart, other.OnTurnStart),
		OnTurnEnd:         chain(h.OnTurnEnd, other.OnTurnEnd),
		OnSearchCall:      chain(h.OnSearchCall, other.OnSearchCall),
		OnSearchReturn:    chain(h.OnSearchReturn, other.OnSearchReturn),
		OnVoiceTransition: chain(h.OnVoiceTransition, other.OnVoiceTransition),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e T) {
		a(ctx, e)
		b(ctx, e)
	}
}
