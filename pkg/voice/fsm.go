package voice

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned by Transition for an event the state does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// State is the lifecycle state of the speech capture session.
type State string

// Event drives a state change.
type Event string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateRestarting State = "restarting"
)

const (
	// EventStart: capture started successfully.
	EventStart Event = "start"
	// EventStop: explicit stop (voice mode off, or a turn began processing).
	EventStop Event = "stop"
	// EventResult: a final transcript was delivered; the engine session is over.
	EventResult Event = "result"
	// EventEnded: the engine ended the session naturally and a restart is due.
	EventEnded Event = "ended"
	// EventRestart: the cooldown elapsed and capture started again.
	EventRestart Event = "restart"
	// EventFail: start failure or recognition error.
	EventFail Event = "fail"
)

// Transition is the pure state table of the voice session.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateListening, nil
		case EventEnded:
			return StateRestarting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventStop, EventResult:
			return StateIdle, nil
		case EventEnded:
			return StateRestarting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRestarting:
		switch event {
		case EventRestart:
			return StateListening, nil
		case EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, state, event)
}
