package trace

import (
	"context"
	"log/slog"
	"sync"
)

// Recorder receives trace events.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ev Event)
}

// Discard drops every event.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(Event) {}

// Memory keeps every event in arrival order.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{events: make([]Event, 0, 64)}
}

// Record implements Recorder.
func (m *Memory) Record(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of recorded events.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Reset drops all recorded events.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = m.events[:0]
}

// SlogRecorder writes each event as a debug record.
type SlogRecorder struct {
	logger *slog.Logger
}

// NewSlogRecorder creates a recorder logging through logger.
// A nil logger means slog.Default().
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *SlogRecorder) Record(ev Event) {
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r.logger.Debug("trace",
		"kind", ev.Kind,
		"name", ev.Name,
		"task_id", ev.TaskID,
		"seq", ev.Seq,
		"detail", ev.Detail,
	)
}

// Multi fans events out to every recorder in order. Nil entries are skipped.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ev Event) {
	for _, r := range m {
		if r != nil {
			r.Record(ev)
		}
	}
}
