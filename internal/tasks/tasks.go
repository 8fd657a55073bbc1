// Package tasks defines the scripted-task collaborator: a handler that gets
// a chance to claim a command before it is forwarded to the generation
// client.
package tasks

import (
	"strings"

	"github.com/normanking/zara/internal/logging"
)

// Executor is the scripted-task handler. Execute returns true when it
// handled the command; side effects are its own concern.
type Executor interface {
	Execute(command string) bool
}

// Func adapts a function to the Executor interface.
type Func func(command string) bool

// Execute calls f.
func (f Func) Execute(command string) bool {
	return f(command)
}

// Nop is an Executor that handles nothing.
type Nop struct{}

// Execute always returns false.
func (Nop) Execute(string) bool {
	return false
}

// Task is one scripted task, claimed by keyword match.
type Task struct {
	// Name identifies the task in logs.
	Name string

	// Keywords claim a command when any of them appears in it (lower-cased).
	Keywords []string

	// Run performs the task.
	Run func(command string) error
}

// Registry is an Executor backed by an ordered task list. The first task
// whose keywords match claims the command; a failing Run still counts as
// handled, since the command was recognized.
type Registry struct {
	tasks []Task
	log   *logging.Logger
}

// NewRegistry creates a Registry with the given tasks.
func NewRegistry(log *logging.Logger, list ...Task) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{tasks: list, log: log}
}

// Execute runs the first task whose keywords match the command.
func (r *Registry) Execute(command string) bool {
	lower := strings.ToLower(command)

	for _, task := range r.tasks {
		for _, kw := range task.Keywords {
			if strings.Contains(lower, kw) {
				if err := task.Run(command); err != nil {
					r.log.Error("tasks", "scripted task failed", err, map[string]interface{}{
						"task": task.Name,
					})
				} else {
					r.log.Info("tasks", "scripted task executed", map[string]interface{}{
						"task": task.Name,
					})
				}
				return true
			}
		}
	}
	return false
}
