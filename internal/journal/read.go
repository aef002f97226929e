package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/unistate/internal/trace"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunInfo summarizes a stored run.
type RunInfo struct {
	ID         string
	Label      string
	Status     string
	FinalState string
	Events     int
}

// ReadRun returns the events of a run in append order.
//
// Returns an empty slice (not nil) for a run with no events, and
// ErrRunNotFound if the run does not exist.
func (j *Journal) ReadRun(ctx context.Context, runID string) ([]trace.Event, error) {
	if _, err := j.RunInfo(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, name, task_id, seq, detail
		FROM events
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var ev trace.Event
		var kind string
		if err := rows.Scan(&kind, &ev.Name, &ev.TaskID, &ev.Seq, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = trace.Kind(kind)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// RunInfo returns the summary of one run.
func (j *Journal) RunInfo(ctx context.Context, runID string) (RunInfo, error) {
	var info RunInfo
	err := j.db.QueryRowContext(ctx, `
		SELECT r.id, r.label, r.status, r.final_state,
		       (SELECT COUNT(*) FROM events e WHERE e.run_id = r.id)
		FROM runs r
		WHERE r.id = ?
	`, runID).Scan(&info.ID, &info.Label, &info.Status, &info.FinalState, &info.Events)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("query run: %w", err)
	}
	return info, nil
}

// Runs lists every run, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.label, r.status, r.final_state,
		       (SELECT COUNT(*) FROM events e WHERE e.run_id = r.id)
		FROM runs r
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.Status, &info.FinalState, &info.Events); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// LatestRun returns the most recently begun run.
func (j *Journal) LatestRun(ctx context.Context) (RunInfo, error) {
	var id string
	err := j.db.QueryRowContext(ctx, `
		SELECT id FROM runs ORDER BY id COLLATE BINARY DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: journal is empty", ErrRunNotFound)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("query latest run: %w", err)
	}
	return j.RunInfo(ctx, id)
}

// CountKind returns how many events of kind a run recorded.
func (j *Journal) CountKind(ctx context.Context, runID string, kind trace.Kind) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE run_id = ? AND kind = ?
	`, runID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s events: %w", kind, err)
	}
	return n, nil
}
