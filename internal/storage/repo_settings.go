package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lachiem1/habitflow/internal/habit"
)

const (
	settingCompletionMode   = "completion_mode"
	completionModeToggle    = "toggle"
	completionModeIncrement = "increment"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM app_config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(
		ctx,
		`INSERT INTO app_config (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		now,
	); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// CompletionMode returns the stored marking mode, defaulting to toggle.
func (r *SettingsRepo) CompletionMode(ctx context.Context) (habit.MarkMode, error) {
	value, ok, err := r.Get(ctx, settingCompletionMode)
	if err != nil {
		return habit.MarkToggle, err
	}
	if !ok {
		return habit.MarkToggle, nil
	}
	if value == completionModeIncrement {
		return habit.MarkIncrement, nil
	}
	return habit.MarkToggle, nil
}

func (r *SettingsRepo) SetCompletionMode(ctx context.Context, mode habit.MarkMode) error {
	value := completionModeToggle
	if mode == habit.MarkIncrement {
		value = completionModeIncrement
	}
	return r.Set(ctx, settingCompletionMode, value)
}
