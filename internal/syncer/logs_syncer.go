package syncer

import (
	"context"
	"time"

	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/storage"
)

const CollectionDayLogs = "daylogs"

// LogsSyncer refreshes the journal collection. The hub serves the current
// week; older entries live on in the local database untouched.
type LogsSyncer struct {
	client    *hubapi.Client
	logs      *storage.LogsRepo
	syncState *storage.SyncStateRepo
	mirror    Tier[daylog.DailyLog]
}

func NewLogsSyncer(
	client *hubapi.Client,
	logs *storage.LogsRepo,
	syncState *storage.SyncStateRepo,
	mirror Tier[daylog.DailyLog],
) *LogsSyncer {
	return &LogsSyncer{
		client:    client,
		logs:      logs,
		syncState: syncState,
		mirror:    mirror,
	}
}

func (s *LogsSyncer) Collection() string {
	return CollectionDayLogs
}

func (s *LogsSyncer) HasCachedData(ctx context.Context) (bool, error) {
	return s.logs.HasLogs(ctx)
}

func (s *LogsSyncer) LastSuccessAt(ctx context.Context) (time.Time, bool, error) {
	state, err := s.syncState.Get(ctx, s.Collection())
	if err != nil {
		return time.Time{}, false, err
	}
	if state.LastSuccessAt.IsZero() {
		return time.Time{}, false, nil
	}
	return state.LastSuccessAt.UTC(), true, nil
}

func (s *LogsSyncer) FailureStreak(ctx context.Context) (int, error) {
	state, err := s.syncState.Get(ctx, s.Collection())
	if err != nil {
		return 0, err
	}
	return state.FailureCount, nil
}

func (s *LogsSyncer) Sync(ctx context.Context) error {
	return runSyncAttempt(ctx, s.syncState, s.Collection(), func(runCtx context.Context) (time.Time, error) {
		remote, err := s.client.ListWeekLogs(runCtx)
		if err != nil {
			return time.Time{}, err
		}

		fetchedAt := time.Now().UTC()
		if err := s.logs.UpsertMany(runCtx, remote, fetchedAt); err != nil {
			return time.Time{}, err
		}
		for _, l := range remote {
			_, _ = s.mirror.Put(runCtx, l)
		}
		return fetchedAt, nil
	})
}
