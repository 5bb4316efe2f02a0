package narrator

import (
	"context"
	"log/slog"
	"sync"
)

// Narrator plays a response back to the speaker out of band. Callers do not
// wait on playback.
type Narrator interface {
	Narrate(ctx context.Context, text string) error
}

// Logger is a stand-in narrator that writes spoken lines to the logger.
type Logger struct {
	logger *slog.Logger
}

// NewLogger constructs a logging narrator.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Narrate writes the line to the structured logger.
func (n *Logger) Narrate(_ context.Context, text string) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("narrate", "text", text)
	return nil
}

// Recorder keeps every narrated line. Useful for tests and for the console,
// which renders spoken lines itself.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Narrate appends text.
func (r *Recorder) Narrate(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
	return nil
}

// Lines returns a copy of everything narrated so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}
