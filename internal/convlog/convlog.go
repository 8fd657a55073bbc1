// Package convlog provides the append-only conversation log: one timestamped
// line per logged event. The core never reads it back.
package convlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink records one conversation line per call.
type Sink interface {
	Record(role, message string)
}

// Nop is a Sink that discards everything.
type Nop struct{}

// Record does nothing.
func (Nop) Record(string, string) {}

// FileSink appends timestamped lines to a text file. Write failures are
// silently dropped; logging the conversation must never block a turn.
type FileSink struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileSink creates a FileSink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path, now: time.Now}
}

// Record appends one line in the form "[2006-01-02 15:04:05] Role: message".
func (s *FileSink) Record(role, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "[%s] %s: %s\n", s.now().Format("2006-01-02 15:04:05"), role, message)
}
