package domain

import "time"

// TurnKind tags a conversation turn.
type TurnKind int

const (
	TurnUser TurnKind = iota
	TurnAssistant
	TurnError
)

// String returns the string representation of TurnKind
func (k TurnKind) String() string {
	switch k {
	case TurnUser:
		return "user"
	case TurnAssistant:
		return "assistant"
	case TurnError:
		return "error"
	default:
		return "unknown"
	}
}

// Turn is one message in the conversation log. Only assistant turns carry sources.
type Turn struct {
	ID      string
	Kind    TurnKind
	Text    string
	Sources []FeedbackResult
	At      time.Time
}

// Preview returns at most PreviewSize leading sources.
func (t Turn) Preview() []FeedbackResult {
	if len(t.Sources) <= PreviewSize {
		return t.Sources
	}
	return t.Sources[:PreviewSize]
}
