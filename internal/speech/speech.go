// Package speech defines the local speech-output capability. Playback is
// best-effort: in headless or containerized runs there is no audio device
// and the browser's own text-to-speech carries the voice instead.
package speech

import (
	"fmt"
	"os/exec"

	"github.com/normanking/zara/internal/logging"
)

// Speaker renders text as audio on the local machine.
type Speaker interface {
	Speak(text string) error
}

// Nop is a Speaker that does nothing.
type Nop struct{}

// Speak does nothing.
func (Nop) Speak(string) error {
	return nil
}

// CommandSpeaker shells out to an external text-to-speech command, passing
// the text as the final argument (for example "espeak-ng" or "say").
type CommandSpeaker struct {
	command string
	args    []string
	log     *logging.Logger
}

// NewCommandSpeaker creates a CommandSpeaker for the given command line.
func NewCommandSpeaker(log *logging.Logger, command string, args ...string) *CommandSpeaker {
	if log == nil {
		log = logging.Nop()
	}
	return &CommandSpeaker{command: command, args: args, log: log}
}

// Speak runs the configured command with the text appended.
func (s *CommandSpeaker) Speak(text string) error {
	s.log.Debug("speech", "speaking locally", map[string]interface{}{"command": s.command})

	args := append(append([]string{}, s.args...), text)
	if err := exec.Command(s.command, args...).Run(); err != nil {
		return fmt.Errorf("run %s: %w", s.command, err)
	}
	return nil
}
