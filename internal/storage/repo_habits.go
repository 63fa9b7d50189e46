package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lachiem1/habitflow/internal/habit"
)

// HabitsRepo persists habits with their full completion sets. The repo keeps
// more history than the 28-day wire window, so locally recorded completions
// older than the window still feed the 365-day streak scan.
type HabitsRepo struct {
	db *sql.DB
}

func NewHabitsRepo(db *sql.DB) *HabitsRepo {
	return &HabitsRepo{db: db}
}

func (r *HabitsRepo) HasActiveHabits(ctx context.Context) (bool, error) {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM habits WHERE is_active = 1 LIMIT 1)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active habits: %w", err)
	}
	return exists == 1, nil
}

// NameExists reports whether an active habit already uses name, compared
// case- and whitespace-insensitively.
func (r *HabitsRepo) NameExists(ctx context.Context, name string) (bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM habits WHERE is_active = 1`)
	if err != nil {
		return false, fmt.Errorf("query habit names: %w", err)
	}
	defer rows.Close()

	want := normalizeHabitName(name)
	for rows.Next() {
		var existing string
		if err := rows.Scan(&existing); err != nil {
			return false, fmt.Errorf("scan habit name: %w", err)
		}
		if normalizeHabitName(existing) == want {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("read habit name rows: %w", err)
	}
	return false, nil
}

// List returns all active habits.
func (r *HabitsRepo) List(ctx context.Context) ([]habit.Habit, error) {
	rows, err := r.db.QueryContext(ctx, habitSelectColumns+` WHERE is_active = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query habits: %w", err)
	}
	defer rows.Close()

	var habits []habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read habit rows: %w", err)
	}
	return habits, nil
}

func (r *HabitsRepo) Get(ctx context.Context, id string) (habit.Habit, bool, error) {
	rows, err := r.db.QueryContext(ctx, habitSelectColumns+` WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return habit.Habit{}, false, fmt.Errorf("query habit %q: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return habit.Habit{}, false, fmt.Errorf("read habit row %q: %w", id, err)
		}
		return habit.Habit{}, false, nil
	}
	h, err := scanHabit(rows)
	if err != nil {
		return habit.Habit{}, false, err
	}
	return h, true, nil
}

// Put upserts a single habit and reactivates it if it was deactivated.
func (r *HabitsRepo) Put(ctx context.Context, h habit.Habit) error {
	return r.upsert(ctx, r.db, h, time.Now().UTC())
}

// Delete removes a habit outright. Local deletion is unconditional so a
// later offline fallback cannot resurrect the record.
func (r *HabitsRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete habit %q: %w", id, err)
	}
	return nil
}

// ReplaceSnapshot upserts everything the hub returned and deactivates
// habits the hub no longer knows about.
func (r *HabitsRepo) ReplaceSnapshot(ctx context.Context, habits []habit.Habit, fetchedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin habits snapshot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, h := range habits {
		if err = r.upsert(ctx, tx, h, fetchedAt); err != nil {
			return err
		}
	}

	if err = deactivateMissingHabits(ctx, tx, habits); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit habits snapshot transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *HabitsRepo) upsert(ctx context.Context, ex execer, h habit.Habit, fetchedAt time.Time) error {
	h = h.Normalized()

	completions, err := json.Marshal(h.Completions.Days())
	if err != nil {
		return fmt.Errorf("encode completions for habit %q: %w", h.ID, err)
	}

	var lastCompleted any
	if last, ok := h.Completions.LastCompleted(); ok {
		lastCompleted = last.Format("2006-01-02")
	}

	const q = `
INSERT INTO habits (
	id,
	name,
	description,
	created_at,
	times_per_day,
	frequency,
	completions,
	last_completed_at,
	last_fetched_at,
	is_active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	description = excluded.description,
	created_at = excluded.created_at,
	times_per_day = excluded.times_per_day,
	frequency = excluded.frequency,
	completions = excluded.completions,
	last_completed_at = excluded.last_completed_at,
	last_fetched_at = excluded.last_fetched_at,
	is_active = 1
`
	if _, err := ex.ExecContext(
		ctx,
		q,
		h.ID,
		h.Name,
		h.Description,
		h.CreatedAt.UTC().Format(time.RFC3339Nano),
		h.TimesPerDay,
		string(h.Frequency),
		string(completions),
		lastCompleted,
		fetchedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert habit %q: %w", h.ID, err)
	}
	return nil
}

func deactivateMissingHabits(ctx context.Context, tx *sql.Tx, habits []habit.Habit) error {
	if len(habits) == 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE habits SET is_active = 0`); err != nil {
			return fmt.Errorf("deactivate all habits: %w", err)
		}
		return nil
	}

	placeholders := make([]string, len(habits))
	args := make([]any, len(habits))
	for i, h := range habits {
		placeholders[i] = "?"
		args[i] = h.ID
	}

	q := fmt.Sprintf(
		"UPDATE habits SET is_active = 0 WHERE id NOT IN (%s)",
		strings.Join(placeholders, ","),
	)
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("deactivate missing habits: %w", err)
	}

	return nil
}

const habitSelectColumns = `
SELECT id, name, description, created_at, times_per_day, frequency, completions
FROM habits`

func scanHabit(rows *sql.Rows) (habit.Habit, error) {
	var h habit.Habit
	var createdAt, frequency, completions string
	if err := rows.Scan(&h.ID, &h.Name, &h.Description, &createdAt, &h.TimesPerDay, &frequency, &completions); err != nil {
		return habit.Habit{}, fmt.Errorf("scan habit row: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("parse created_at for habit %q: %w", h.ID, err)
	}
	h.CreatedAt = created.Local()
	h.Frequency = habit.Frequency(frequency)

	days := make(map[string]int)
	if err := json.Unmarshal([]byte(completions), &days); err != nil {
		return habit.Habit{}, fmt.Errorf("decode completions for habit %q: %w", h.ID, err)
	}
	h.Completions = habit.LedgerFromDays(days)

	return h.Normalized(), nil
}
