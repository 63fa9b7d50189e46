package storage

import (
	"context"
	"testing"

	"github.com/lachiem1/habitflow/internal/habit"
)

func TestSettingsRepoCompletionModeDefaultsToToggle(t *testing.T) {
	db := openTestDB(t)
	repo := NewSettingsRepo(db)

	mode, err := repo.CompletionMode(context.Background())
	if err != nil {
		t.Fatalf("CompletionMode() unexpected error: %v", err)
	}
	if mode != habit.MarkToggle {
		t.Fatalf("CompletionMode() = %q, want %q", mode, habit.MarkToggle)
	}
}

func TestSettingsRepoCompletionModeRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	if err := repo.SetCompletionMode(ctx, habit.MarkIncrement); err != nil {
		t.Fatalf("SetCompletionMode() unexpected error: %v", err)
	}
	mode, err := repo.CompletionMode(ctx)
	if err != nil {
		t.Fatalf("CompletionMode() unexpected error: %v", err)
	}
	if mode != habit.MarkIncrement {
		t.Fatalf("CompletionMode() = %q, want %q", mode, habit.MarkIncrement)
	}
}

func TestSettingsRepoCompletionModeIgnoresGarbage(t *testing.T) {
	db := openTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	if err := repo.Set(ctx, settingCompletionMode, "sideways"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	mode, err := repo.CompletionMode(ctx)
	if err != nil {
		t.Fatalf("CompletionMode() unexpected error: %v", err)
	}
	if mode != habit.MarkToggle {
		t.Fatalf("CompletionMode() = %q for unknown value, want toggle fallback", mode)
	}
}
