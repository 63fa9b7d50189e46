package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncState records the refresh history for one collection. FailureCount
// counts consecutive failures since the last success and drives retry
// backoff.
type SyncState struct {
	Collection    string
	LastAttemptAt time.Time
	LastSuccessAt time.Time
	LastError     string
	FailureCount  int
}

// Stale reports whether the collection has not refreshed successfully
// within ttl.
func (s SyncState) Stale(ttl time.Duration, now time.Time) bool {
	if s.LastSuccessAt.IsZero() {
		return true
	}
	return now.Sub(s.LastSuccessAt) > ttl
}

type SyncStateRepo struct {
	db *sql.DB
}

func NewSyncStateRepo(db *sql.DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

// Get returns the state for collection, or a zero state if it has never
// been attempted.
func (r *SyncStateRepo) Get(ctx context.Context, collection string) (SyncState, error) {
	const q = `
SELECT last_attempt_at, last_success_at, last_error, failure_count
FROM sync_state
WHERE collection = ?
`
	var attemptAt, successAt, lastErr sql.NullString
	var failures int
	err := r.db.QueryRowContext(ctx, q, collection).Scan(&attemptAt, &successAt, &lastErr, &failures)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncState{Collection: collection}, nil
	}
	if err != nil {
		return SyncState{}, fmt.Errorf("query sync state %q: %w", collection, err)
	}

	s := SyncState{Collection: collection, FailureCount: failures}
	if s.LastAttemptAt, err = parseNullTime(attemptAt); err != nil {
		return SyncState{}, fmt.Errorf("parse last_attempt_at for %q: %w", collection, err)
	}
	if s.LastSuccessAt, err = parseNullTime(successAt); err != nil {
		return SyncState{}, fmt.Errorf("parse last_success_at for %q: %w", collection, err)
	}
	if lastErr.Valid {
		s.LastError = lastErr.String
	}
	return s, nil
}

// MarkAttempt stamps the start of a refresh.
func (r *SyncStateRepo) MarkAttempt(ctx context.Context, collection string, at time.Time) error {
	const q = `
INSERT INTO sync_state (collection, last_attempt_at, failure_count)
VALUES (?, ?, 0)
ON CONFLICT(collection) DO UPDATE SET
	last_attempt_at = excluded.last_attempt_at
`
	if _, err := r.db.ExecContext(ctx, q, collection, formatTime(at)); err != nil {
		return fmt.Errorf("mark sync attempt %q: %w", collection, err)
	}
	return nil
}

// MarkSuccess stamps a completed refresh and resets the failure streak.
func (r *SyncStateRepo) MarkSuccess(ctx context.Context, collection string, at time.Time) error {
	const q = `
INSERT INTO sync_state (collection, last_attempt_at, last_success_at, last_error, failure_count)
VALUES (?, ?, ?, NULL, 0)
ON CONFLICT(collection) DO UPDATE SET
	last_success_at = excluded.last_success_at,
	last_error = NULL,
	failure_count = 0
`
	ts := formatTime(at)
	if _, err := r.db.ExecContext(ctx, q, collection, ts, ts); err != nil {
		return fmt.Errorf("mark sync success %q: %w", collection, err)
	}
	return nil
}

// MarkFailure records the error and extends the failure streak.
func (r *SyncStateRepo) MarkFailure(ctx context.Context, collection string, at time.Time, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	const q = `
INSERT INTO sync_state (collection, last_attempt_at, last_error, failure_count)
VALUES (?, ?, ?, 1)
ON CONFLICT(collection) DO UPDATE SET
	last_error = excluded.last_error,
	failure_count = sync_state.failure_count + 1
`
	if _, err := r.db.ExecContext(ctx, q, collection, formatTime(at), msg); err != nil {
		return fmt.Errorf("mark sync failure %q: %w", collection, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s.String)
}
