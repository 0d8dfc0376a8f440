package ports

import "context"

// Recognizer is the speech engine driven by the voice session manager.
// It captures a single utterance per session and reports back through
// voice.EngineEvent values (final transcript, no-match, error, session ended).
type Recognizer interface {
	// Start begins a capture session.
	Start(ctx context.Context) error
	// Stop ends the current session gracefully.
	Stop(ctx context.Context) error
	// Abort discards the current session, if any.
	Abort(ctx context.Context) error
}
