package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lachiem1/habitflow/internal/daylog"
)

// LogsRepo persists daily journal entries keyed by ISO date.
type LogsRepo struct {
	db *sql.DB
}

func NewLogsRepo(db *sql.DB) *LogsRepo {
	return &LogsRepo{db: db}
}

func (r *LogsRepo) HasLogs(ctx context.Context) (bool, error) {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM daily_logs LIMIT 1)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check daily logs: %w", err)
	}
	return exists == 1, nil
}

// List returns all logs, newest date first.
func (r *LogsRepo) List(ctx context.Context) ([]daylog.DailyLog, error) {
	rows, err := r.db.QueryContext(ctx, logSelectColumns+` ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query daily logs: %w", err)
	}
	defer rows.Close()

	var logs []daylog.DailyLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read daily log rows: %w", err)
	}
	return logs, nil
}

// ListRange returns logs with from <= date <= to, oldest first.
func (r *LogsRepo) ListRange(ctx context.Context, from, to string) ([]daylog.DailyLog, error) {
	rows, err := r.db.QueryContext(ctx, logSelectColumns+` WHERE date >= ? AND date <= ? ORDER BY date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily logs %s..%s: %w", from, to, err)
	}
	defer rows.Close()

	var logs []daylog.DailyLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read daily log rows: %w", err)
	}
	return logs, nil
}

func (r *LogsRepo) Get(ctx context.Context, date string) (daylog.DailyLog, bool, error) {
	rows, err := r.db.QueryContext(ctx, logSelectColumns+` WHERE date = ?`, date)
	if err != nil {
		return daylog.DailyLog{}, false, fmt.Errorf("query daily log %q: %w", date, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return daylog.DailyLog{}, false, fmt.Errorf("read daily log row %q: %w", date, err)
		}
		return daylog.DailyLog{}, false, nil
	}
	l, err := scanLog(rows)
	if err != nil {
		return daylog.DailyLog{}, false, err
	}
	return l, true, nil
}

// Put upserts one log by date.
func (r *LogsRepo) Put(ctx context.Context, l daylog.DailyLog) error {
	return upsertLog(ctx, r.db, l, time.Now().UTC())
}

// UpsertMany writes a batch of logs in one transaction. Existing rows with
// dates outside the batch are left alone.
func (r *LogsRepo) UpsertMany(ctx context.Context, logs []daylog.DailyLog, fetchedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin daily logs transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, l := range logs {
		if err = upsertLog(ctx, tx, l, fetchedAt); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit daily logs transaction: %w", err)
	}
	return nil
}

func (r *LogsRepo) Delete(ctx context.Context, date string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM daily_logs WHERE date = ?`, date); err != nil {
		return fmt.Errorf("delete daily log %q: %w", date, err)
	}
	return nil
}

func upsertLog(ctx context.Context, ex execer, l daylog.DailyLog, updatedAt time.Time) error {
	l = l.Normalized()

	learnings, err := json.Marshal(l.KeyLearnings)
	if err != nil {
		return fmt.Errorf("encode key learnings for log %q: %w", l.Date, err)
	}

	const q = `
INSERT INTO daily_logs (
	date,
	work_summary,
	key_learnings,
	issues_faced,
	hours_worked,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(date) DO UPDATE SET
	work_summary = excluded.work_summary,
	key_learnings = excluded.key_learnings,
	issues_faced = excluded.issues_faced,
	hours_worked = excluded.hours_worked,
	updated_at = excluded.updated_at
`
	if _, err := ex.ExecContext(
		ctx,
		q,
		l.Date,
		l.WorkSummary,
		string(learnings),
		l.IssuesFaced,
		l.HoursWorked,
		updatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert daily log %q: %w", l.Date, err)
	}
	return nil
}

const logSelectColumns = `
SELECT date, work_summary, key_learnings, issues_faced, hours_worked
FROM daily_logs`

func scanLog(rows *sql.Rows) (daylog.DailyLog, error) {
	var l daylog.DailyLog
	var learnings string
	if err := rows.Scan(&l.Date, &l.WorkSummary, &learnings, &l.IssuesFaced, &l.HoursWorked); err != nil {
		return daylog.DailyLog{}, fmt.Errorf("scan daily log row: %w", err)
	}
	if err := json.Unmarshal([]byte(learnings), &l.KeyLearnings); err != nil {
		return daylog.DailyLog{}, fmt.Errorf("decode key learnings for log %q: %w", l.Date, err)
	}
	return l.Normalized(), nil
}
