package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lachiem1/habitflow/internal/calendar"
	"github.com/lachiem1/habitflow/internal/habit"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/record"
	"github.com/lachiem1/habitflow/internal/storage"
)

const CollectionHabits = "habits"

// HabitsSyncer refreshes the habit collection and owns the habit-specific
// mutations: toggling completions, creating, and deleting. Mutations are
// local-first; an unreachable hub degrades them to offline, never to a
// lost edit.
type HabitsSyncer struct {
	client    *hubapi.Client
	habits    *storage.HabitsRepo
	syncState *storage.SyncStateRepo
	durable   Tier[habit.Habit]
	mirror    Tier[habit.Habit]
}

func NewHabitsSyncer(
	client *hubapi.Client,
	habits *storage.HabitsRepo,
	syncState *storage.SyncStateRepo,
	mirror Tier[habit.Habit],
) *HabitsSyncer {
	return &HabitsSyncer{
		client:    client,
		habits:    habits,
		syncState: syncState,
		durable:   NewDurableHabitsTier(habits),
		mirror:    mirror,
	}
}

func (s *HabitsSyncer) Collection() string {
	return CollectionHabits
}

func (s *HabitsSyncer) HasCachedData(ctx context.Context) (bool, error) {
	return s.habits.HasActiveHabits(ctx)
}

func (s *HabitsSyncer) LastSuccessAt(ctx context.Context) (time.Time, bool, error) {
	state, err := s.syncState.Get(ctx, s.Collection())
	if err != nil {
		return time.Time{}, false, err
	}
	if state.LastSuccessAt.IsZero() {
		return time.Time{}, false, nil
	}
	return state.LastSuccessAt.UTC(), true, nil
}

func (s *HabitsSyncer) FailureStreak(ctx context.Context) (int, error) {
	state, err := s.syncState.Get(ctx, s.Collection())
	if err != nil {
		return 0, err
	}
	return state.FailureCount, nil
}

func (s *HabitsSyncer) Sync(ctx context.Context) error {
	return runSyncAttempt(ctx, s.syncState, s.Collection(), func(runCtx context.Context) (time.Time, error) {
		remote, err := s.client.ListHabits(runCtx)
		if err != nil {
			return time.Time{}, err
		}

		merged, err := s.mergeWithLocalHistory(runCtx, remote)
		if err != nil {
			return time.Time{}, err
		}

		fetchedAt := time.Now().UTC()
		if err := s.habits.ReplaceSnapshot(runCtx, merged, fetchedAt); err != nil {
			return time.Time{}, err
		}
		_ = replaceAll(runCtx, s.mirror, merged)
		return fetchedAt, nil
	})
}

// mergeWithLocalHistory folds locally kept completions that predate the
// hub's window into the freshly fetched records. The hub only serves the
// recent window; without the merge every refresh would erase older streak
// history.
func (s *HabitsSyncer) mergeWithLocalHistory(ctx context.Context, remote []habit.Habit) ([]habit.Habit, error) {
	today := calendar.Normalize(time.Now())
	boundary := today.AddDate(0, 0, -(habit.WindowWidth - 1))

	merged := make([]habit.Habit, 0, len(remote))
	for _, h := range remote {
		local, ok, err := s.habits.Get(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			for iso, count := range local.Completions.Days() {
				day, err := calendar.ParseISO(iso)
				if err != nil || !day.Before(boundary) {
					continue
				}
				for i := 0; i < count; i++ {
					h.Completions.Increment(day)
				}
			}
		}
		merged = append(merged, h)
	}
	return merged, nil
}

// ToggleCompletion flips today's completion for a habit, writing the local
// tiers first and the hub after. The returned bool reports whether the hub
// write had to be skipped because it was unreachable.
func (s *HabitsSyncer) ToggleCompletion(ctx context.Context, id string, mode habit.MarkMode) (habit.Habit, bool, error) {
	h, ok, err := s.habits.Get(ctx, id)
	if err != nil {
		return habit.Habit{}, false, err
	}
	if !ok {
		return habit.Habit{}, false, &record.NotFoundError{Key: id}
	}

	h.Completions.Mark(time.Now(), mode)
	if _, err := s.durable.Put(ctx, h); err != nil {
		return habit.Habit{}, false, fmt.Errorf("record completion for %q: %w", id, err)
	}
	_, _ = s.mirror.Put(ctx, h)

	if _, err := s.client.ToggleToday(ctx, id); err != nil {
		if record.IsTransient(err) {
			return h, true, nil
		}
		return h, false, fmt.Errorf("record completion for %q: %w", id, err)
	}
	return h, false, nil
}

// Create makes a new habit. The hub assigns the id when reachable; offline
// the habit is created locally under a generated id and pushed on a later
// restore.
func (s *HabitsSyncer) Create(ctx context.Context, params hubapi.CreateHabitParams) (habit.Habit, bool, error) {
	exists, err := s.habits.NameExists(ctx, params.Name)
	if err != nil {
		return habit.Habit{}, false, err
	}
	if exists {
		return habit.Habit{}, false, &record.ConflictError{Key: params.Name}
	}

	h, err := s.client.CreateHabit(ctx, params)
	offline := false
	if err != nil {
		if !record.IsTransient(err) {
			return habit.Habit{}, false, err
		}
		offline = true
		h = habit.Habit{
			ID:          uuid.NewString(),
			Name:        params.Name,
			Description: params.Description,
			TimesPerDay: params.TimesPerDay,
			Frequency:   habit.Frequency(params.Frequency),
		}.Normalized()
	}

	if _, err := s.durable.Put(ctx, h); err != nil {
		return habit.Habit{}, false, err
	}
	_, _ = s.mirror.Put(ctx, h)
	return h, offline, nil
}

// Delete removes the habit locally no matter what the hub says.
func (s *HabitsSyncer) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.durable.Delete(ctx, id); err != nil {
		return false, err
	}
	_ = s.mirror.Delete(ctx, id)

	if err := s.client.DeleteHabit(ctx, id); err != nil {
		if record.IsTransient(err) {
			return true, nil
		}
		if record.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return false, nil
}
