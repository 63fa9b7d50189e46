package syncer

import (
	"context"
	"time"

	"github.com/lachiem1/habitflow/internal/storage"
)

// runSyncAttempt brackets a collection refresh with sync_state bookkeeping:
// an attempt row before the work, then either a failure mark (carrying the
// cause and growing the failure streak) or a success mark at the returned
// timestamp.
func runSyncAttempt(
	ctx context.Context,
	syncState *storage.SyncStateRepo,
	collection string,
	work func(context.Context) (time.Time, error),
) error {
	if err := syncState.MarkAttempt(ctx, collection, time.Now().UTC()); err != nil {
		return err
	}

	successAt, err := work(ctx)
	if err != nil {
		// Record the failure even when ctx itself is what expired.
		_ = syncState.MarkFailure(context.Background(), collection, time.Now().UTC(), err)
		return err
	}

	if successAt.IsZero() {
		successAt = time.Now()
	}
	return syncState.MarkSuccess(ctx, collection, successAt.UTC())
}
