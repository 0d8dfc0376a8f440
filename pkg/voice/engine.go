package voice

// EngineEventKind identifies a speech engine callback.
type EngineEventKind string

const (
	EngineResult  EngineEventKind = "result"
	EngineNoMatch EngineEventKind = "no-match"
	EngineError   EngineEventKind = "error"
	EngineEnded   EngineEventKind = "ended"
)

// EngineEvent is a callback from the speech engine.
// Transcript and Final are set for results, Code for errors.
type EngineEvent struct {
	Kind       EngineEventKind `json:"type"`
	Transcript string          `json:"transcript,omitempty"`
	Final      bool            `json:"final,omitempty"`
	Code       string          `json:"code,omitempty"`
}
