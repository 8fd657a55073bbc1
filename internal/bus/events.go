// Package bus provides the in-process event bus that carries orb state
// changes and spoken responses from the orchestrator to the transport layer.
package bus

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of event flowing through the bus.
type EventType string

const (
	// EventStateChange announces a new presence state.
	EventStateChange EventType = "state_change"

	// EventSpeakText carries a textual response to be rendered as speech.
	EventSpeakText EventType = "speak_text"
)

// Event is a single bus event. State is set for EventStateChange; Text and
// IsFallback are set for EventSpeakText.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	State string `json:"state,omitempty"`

	Text       string `json:"text,omitempty"`
	IsFallback bool   `json:"is_fallback,omitempty"`
}

// NewStateEvent builds a state_change event.
func NewStateEvent(state string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      EventStateChange,
		State:     state,
	}
}

// NewSpeechEvent builds a speak_text event.
func NewSpeechEvent(text string, isFallback bool) Event {
	return Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Type:       EventSpeakText,
		Text:       text,
		IsFallback: isFallback,
	}
}
