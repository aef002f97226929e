package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/unistate/internal/trace"
)

// Status values for runs.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// BeginRun inserts a new run and returns a Recorder appending to it.
//
// The run id is a UUIDv7, so runs list in creation order.
func (j *Journal) BeginRun(ctx context.Context, label string) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("begin run: generate id: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO runs (id, label, status)
		VALUES (?, ?, ?)
	`, id.String(), label, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	return &Run{journal: j, id: id.String(), logger: slog.Default()}, nil
}

// Append writes one event at position idx of a run.
// Duplicate (run, idx) pairs are rejected by the primary key.
func (j *Journal) Append(ctx context.Context, runID string, idx int, ev trace.Event) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events (run_id, idx, kind, name, task_id, seq, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, idx, string(ev.Kind), ev.Name, ev.TaskID, ev.Seq, ev.Detail)
	if err != nil {
		return fmt.Errorf("append event %d to run %s: %w", idx, runID, err)
	}
	return nil
}

// Run is an open journal run. It implements trace.Recorder.
//
// Thread-safety: Record serializes appends under a mutex, so the stored
// index order is the order in which Record calls were made.
type Run struct {
	journal *Journal
	id      string
	logger  *slog.Logger

	mu   sync.Mutex
	next int
	errs []error
}

// ID returns the run id.
func (r *Run) ID() string {
	return r.id
}

// WithLogger sets the logger used to report append failures.
func (r *Run) WithLogger(logger *slog.Logger) *Run {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Record implements trace.Recorder.
//
// Recorder has no error return, so append failures are logged and kept;
// Finish reports them.
func (r *Run) Record(ev trace.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.journal.Append(context.Background(), r.id, r.next, ev); err != nil {
		r.logger.Warn("journal append failed", "run_id", r.id, "error", err)
		r.errs = append(r.errs, err)
		return
	}
	r.next++
}

// Len returns the number of events appended so far.
func (r *Run) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}

// Finish marks the run finished and stores the final state (already
// serialized by the caller). Returns any append errors seen by Record.
func (r *Run) Finish(ctx context.Context, finalState string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.journal.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, final_state = ? WHERE id = ?
	`, StatusFinished, finalState, r.id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.id, err)
	}

	if len(r.errs) > 0 {
		return fmt.Errorf("run %s: %d events lost: %w", r.id, len(r.errs), errors.Join(r.errs...))
	}
	return nil
}
