package ports

import (
	"context"

	"github.com/aretw0/chefmate/pkg/domain"
)

// EventSink receives render events. Implementations must not block for long:
// events are delivered synchronously on the goroutine that settled the turn.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event domain.Event)

func (f EventSinkFunc) Emit(ctx context.Context, event domain.Event) {
	f(ctx, event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(context.Context, domain.Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, event domain.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
