package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// keepRuns bounds the append-only run history.
const keepRuns = 500

// SaveRun inserts or replaces one run row and prunes history beyond the
// retention bound.
func (s *Store) SaveRun(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawler_runs (id, started_at, completed_at, status, counts, errors, cause, last_candidate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			completed_at   = excluded.completed_at,
			status         = excluded.status,
			counts         = excluded.counts,
			errors         = excluded.errors,
			cause          = excluded.cause,
			last_candidate = excluded.last_candidate`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		nullTime(run.CompletedAt),
		string(run.Status),
		asJSON(run.Counts),
		asJSON(run.Errors),
		run.Cause,
		run.LastCandidate,
	)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM crawler_runs WHERE id NOT IN (
			SELECT id FROM crawler_runs ORDER BY started_at DESC LIMIT ?
		)`, keepRuns)
	return err
}

// Runs returns the most recent n runs, newest first.
func (s *Store) Runs(ctx context.Context, n int) ([]*model.Run, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, status, counts, errors, cause, last_candidate
		 FROM crawler_runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Run
	for rows.Next() {
		var run model.Run
		var started, status, counts, errList, cause string
		var completed sql.NullString
		if err := rows.Scan(&run.ID, &started, &completed, &status, &counts, &errList, &cause, &run.LastCandidate); err != nil {
			return nil, err
		}
		run.StartedAt = parseTime(started)
		if completed.Valid {
			t := parseTime(completed.String)
			run.CompletedAt = &t
		}
		run.Status = model.RunStatus(status)
		run.Cause = cause
		fromJSON(counts, &run.Counts)
		fromJSON(errList, &run.Errors)
		out = append(out, &run)
	}
	return out, rows.Err()
}

// LastRun returns the most recent run, or nil when none exist.
func (s *Store) LastRun(ctx context.Context) (*model.Run, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// State keys used by the CLI and scheduler.
const (
	StateEnabled         = "crawler_enabled"
	StateScheduleEnabled = "schedule_enabled"
)

// GetState reads one state value; missing keys return the fallback.
func (s *Store) GetState(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM crawler_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetState writes one state value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawler_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetBool reads a boolean state flag.
func (s *Store) GetBool(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := s.GetState(ctx, key, strconv.FormatBool(fallback))
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, crawlerrors.Wrap(crawlerrors.ErrCodeInternal, err, "state %s holds %q", key, raw)
	}
	return v, nil
}

// SetBool writes a boolean state flag.
func (s *Store) SetBool(ctx context.Context, key string, v bool) error {
	return s.SetState(ctx, key, strconv.FormatBool(v))
}
