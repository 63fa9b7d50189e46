package syncer

import (
	"context"
	"time"

	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/mirror"
	"github.com/lachiem1/habitflow/internal/record"
	"github.com/lachiem1/habitflow/internal/storage"
)

type remoteLogsTier struct {
	client *hubapi.Client
}

func NewRemoteLogsTier(client *hubapi.Client) Tier[daylog.DailyLog] {
	return &remoteLogsTier{client: client}
}

func (t *remoteLogsTier) Name() string { return "hub" }

func (t *remoteLogsTier) List(ctx context.Context) ([]daylog.DailyLog, error) {
	return t.client.ListWeekLogs(ctx)
}

func (t *remoteLogsTier) Get(ctx context.Context, key string) (daylog.DailyLog, bool, error) {
	l, err := t.client.GetDailyLog(ctx, key)
	if record.IsNotFound(err) {
		return daylog.DailyLog{}, false, nil
	}
	if err != nil {
		return daylog.DailyLog{}, false, err
	}
	return l, true, nil
}

func (t *remoteLogsTier) Put(ctx context.Context, l daylog.DailyLog) (daylog.DailyLog, error) {
	return t.client.PutDailyLog(ctx, l)
}

func (t *remoteLogsTier) Delete(ctx context.Context, key string) error {
	err := t.client.DeleteDailyLog(ctx, key)
	if record.IsNotFound(err) {
		return nil
	}
	return err
}

type durableLogsTier struct {
	repo *storage.LogsRepo
}

func NewDurableLogsTier(repo *storage.LogsRepo) Tier[daylog.DailyLog] {
	return &durableLogsTier{repo: repo}
}

func (t *durableLogsTier) Name() string { return "local db" }

func (t *durableLogsTier) List(ctx context.Context) ([]daylog.DailyLog, error) {
	return t.repo.List(ctx)
}

func (t *durableLogsTier) Get(ctx context.Context, key string) (daylog.DailyLog, bool, error) {
	return t.repo.Get(ctx, key)
}

func (t *durableLogsTier) Put(ctx context.Context, l daylog.DailyLog) (daylog.DailyLog, error) {
	if err := t.repo.Put(ctx, l); err != nil {
		return daylog.DailyLog{}, err
	}
	return l, nil
}

func (t *durableLogsTier) Delete(ctx context.Context, key string) error {
	return t.repo.Delete(ctx, key)
}

// ReplaceAll upserts the batch without touching rows outside it. The hub
// only serves the current week, so a destructive replace would drop older
// local entries.
func (t *durableLogsTier) ReplaceAll(ctx context.Context, logs []daylog.DailyLog) error {
	return t.repo.UpsertMany(ctx, logs, time.Now().UTC())
}

type mirrorLogsTier struct {
	store *mirror.Store
}

func NewMirrorLogsTier(store *mirror.Store) Tier[daylog.DailyLog] {
	return &mirrorLogsTier{store: store}
}

func (t *mirrorLogsTier) Name() string { return "mirror" }

func (t *mirrorLogsTier) List(ctx context.Context) ([]daylog.DailyLog, error) {
	keys := t.store.Keys(ctx, mirror.CollectionDayLogs)
	logs := make([]daylog.DailyLog, 0, len(keys))
	for _, key := range keys {
		var l daylog.DailyLog
		ok, err := t.store.Get(mirror.CollectionDayLogs, key, &l)
		if err != nil {
			return nil, err
		}
		if ok {
			logs = append(logs, l.Normalized())
		}
	}
	return logs, nil
}

func (t *mirrorLogsTier) Get(ctx context.Context, key string) (daylog.DailyLog, bool, error) {
	var l daylog.DailyLog
	ok, err := t.store.Get(mirror.CollectionDayLogs, key, &l)
	if err != nil || !ok {
		return daylog.DailyLog{}, false, err
	}
	return l.Normalized(), true, nil
}

func (t *mirrorLogsTier) Put(ctx context.Context, l daylog.DailyLog) (daylog.DailyLog, error) {
	if err := t.store.Put(mirror.CollectionDayLogs, l.Key(), l); err != nil {
		return daylog.DailyLog{}, err
	}
	return l, nil
}

func (t *mirrorLogsTier) Delete(ctx context.Context, key string) error {
	return t.store.Delete(mirror.CollectionDayLogs, key)
}
