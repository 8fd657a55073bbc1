package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// State is the shared orb presence state: what the assistant is doing right
// now, as rendered by every connected front-end.
type State string

const (
	// StateReady means the assistant is idle, waiting for a command.
	StateReady State = "ready"
	// StateProcessing means a command is being classified and handled.
	StateProcessing State = "processing"
	// StateSpeaking means a response is being announced.
	StateSpeaking State = "speaking"
)

// String returns the wire representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid reports whether s is a known presence state.
func (s State) IsValid() bool {
	switch s {
	case StateReady, StateProcessing, StateSpeaking:
		return true
	}
	return false
}

// Command is one inbound command: an immutable string plus arrival metadata.
// It is consumed once and discarded, never queued or replayed.
type Command struct {
	ID         string
	Text       string
	Source     string
	ReceivedAt time.Time
}

// NewCommand creates a Command with a fresh ID. source identifies the
// transport channel it arrived on and is used only for logging.
func NewCommand(text, source string) Command {
	return Command{
		ID:         uuid.NewString(),
		Text:       text,
		Source:     source,
		ReceivedAt: time.Now(),
	}
}
