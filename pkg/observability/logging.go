package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/chefmate/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per lifecycle step.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("turn_start",
				"session_id", e.SessionID,
				"turn_id", e.TurnID,
				"intent", e.Intent.String(),
				"generation", e.Generation,
			)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			level := slog.LevelInfo
			if e.Outcome == domain.OutcomeFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "turn_end",
				"session_id", e.SessionID,
				"turn_id", e.TurnID,
				"intent", e.Intent.String(),
				"outcome", e.Outcome,
				"duration", e.Duration,
			)
		},
		OnSearchReturn: func(ctx context.Context, e *domain.SearchEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"turn_id", e.TurnID,
				"kind", requestKind(e.Request),
				"results", e.Results,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.Warn("search_return", append(attrs, "err", e.Err)...)
				return
			}
			logger.Debug("search_return", attrs...)
		},
		OnVoiceTransition: func(ctx context.Context, e *domain.VoiceEvent) {
			logger.Debug("voice_transition", "from", e.From, "to", e.To, "trigger", e.Trigger)
		},
	}
}
