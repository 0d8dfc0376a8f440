package voice

// User-facing status messages.
const (
	NoMatchMessage       = "I didn't catch that. Please try again."
	CouldNotStartMessage = "Could not start voice input"
	ListeningMessage     = "Listening..."
)

var errorMessages = map[string]string{
	"no-speech":     "No speech detected",
	"audio-capture": "Microphone not available",
	"not-allowed":   "Microphone access denied",
	"aborted":       "Speech input aborted",
	"network":       "Network communication failed",
}

// ErrorMessage maps a speech engine error code to a human-readable cause.
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Error: " + code
}

// IsTerminalError reports codes after which restarting capture cannot succeed
// without user action, so voice mode is switched off.
func IsTerminalError(code string) bool {
	switch code {
	case "not-allowed", "audio-capture", "service-not-allowed":
		return true
	}
	return false
}
