package syncer

import (
	"context"
	"time"

	"github.com/lachiem1/habitflow/internal/habit"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/mirror"
	"github.com/lachiem1/habitflow/internal/record"
	"github.com/lachiem1/habitflow/internal/storage"
)

type remoteHabitsTier struct {
	client *hubapi.Client
}

func NewRemoteHabitsTier(client *hubapi.Client) Tier[habit.Habit] {
	return &remoteHabitsTier{client: client}
}

func (t *remoteHabitsTier) Name() string { return "hub" }

func (t *remoteHabitsTier) List(ctx context.Context) ([]habit.Habit, error) {
	return t.client.ListHabits(ctx)
}

func (t *remoteHabitsTier) Get(ctx context.Context, key string) (habit.Habit, bool, error) {
	h, err := t.client.GetHabit(ctx, key)
	if record.IsNotFound(err) {
		return habit.Habit{}, false, nil
	}
	if err != nil {
		return habit.Habit{}, false, err
	}
	return h, true, nil
}

func (t *remoteHabitsTier) Put(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	return t.client.UpdateHabit(ctx, h)
}

func (t *remoteHabitsTier) Delete(ctx context.Context, key string) error {
	err := t.client.DeleteHabit(ctx, key)
	if record.IsNotFound(err) {
		return nil
	}
	return err
}

type durableHabitsTier struct {
	repo *storage.HabitsRepo
}

func NewDurableHabitsTier(repo *storage.HabitsRepo) Tier[habit.Habit] {
	return &durableHabitsTier{repo: repo}
}

func (t *durableHabitsTier) Name() string { return "local db" }

func (t *durableHabitsTier) List(ctx context.Context) ([]habit.Habit, error) {
	return t.repo.List(ctx)
}

func (t *durableHabitsTier) Get(ctx context.Context, key string) (habit.Habit, bool, error) {
	return t.repo.Get(ctx, key)
}

func (t *durableHabitsTier) Put(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	if err := t.repo.Put(ctx, h); err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (t *durableHabitsTier) Delete(ctx context.Context, key string) error {
	return t.repo.Delete(ctx, key)
}

func (t *durableHabitsTier) ReplaceAll(ctx context.Context, habits []habit.Habit) error {
	return t.repo.ReplaceSnapshot(ctx, habits, time.Now().UTC())
}

type mirrorHabitsTier struct {
	store *mirror.Store
}

func NewMirrorHabitsTier(store *mirror.Store) Tier[habit.Habit] {
	return &mirrorHabitsTier{store: store}
}

func (t *mirrorHabitsTier) Name() string { return "mirror" }

func (t *mirrorHabitsTier) List(ctx context.Context) ([]habit.Habit, error) {
	keys := t.store.Keys(ctx, mirror.CollectionHabits)
	habits := make([]habit.Habit, 0, len(keys))
	for _, key := range keys {
		var h habit.Habit
		ok, err := t.store.Get(mirror.CollectionHabits, key, &h)
		if err != nil {
			return nil, err
		}
		if ok {
			habits = append(habits, h.Normalized())
		}
	}
	return habits, nil
}

func (t *mirrorHabitsTier) Get(ctx context.Context, key string) (habit.Habit, bool, error) {
	var h habit.Habit
	ok, err := t.store.Get(mirror.CollectionHabits, key, &h)
	if err != nil || !ok {
		return habit.Habit{}, false, err
	}
	return h.Normalized(), true, nil
}

func (t *mirrorHabitsTier) Put(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	if err := t.store.Put(mirror.CollectionHabits, h.Key(), h); err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (t *mirrorHabitsTier) Delete(ctx context.Context, key string) error {
	return t.store.Delete(mirror.CollectionHabits, key)
}

func (t *mirrorHabitsTier) ReplaceAll(ctx context.Context, habits []habit.Habit) error {
	records := make(map[string]any, len(habits))
	for _, h := range habits {
		records[h.Key()] = h
	}
	return t.store.ReplaceCollection(ctx, mirror.CollectionHabits, records)
}
