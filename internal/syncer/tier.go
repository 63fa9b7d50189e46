// Package syncer reconciles records across three persistence tiers: the hub
// API as the authoritative store, the local database as the durable cache,
// and the on-disk mirror as a throwaway fast copy. The Coordinator owns the
// per-record save pipeline, the Engine drives background refresh while a
// view is active.
package syncer

import (
	"context"

	"github.com/lachiem1/habitflow/internal/record"
)

// Tier is one persistence layer for a record type. Put returns the stored
// record so remote tiers can hand back server-computed fields; local tiers
// return the input unchanged. Get reports a missing record via the bool,
// not an error.
type Tier[T record.Record] interface {
	Name() string
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, key string) (T, bool, error)
	Put(ctx context.Context, rec T) (T, error)
	Delete(ctx context.Context, key string) error
}

// snapshotReplacer is implemented by tiers that can swap their full record
// set in one step. The Coordinator uses it when mirroring a remote load
// down into the local tiers.
type snapshotReplacer[T record.Record] interface {
	ReplaceAll(ctx context.Context, records []T) error
}

// Source identifies which tier satisfied a load.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceDurable Source = "durable"
	SourceMirror  Source = "mirror"
)

func replaceAll[T record.Record](ctx context.Context, tier Tier[T], records []T) error {
	if r, ok := tier.(snapshotReplacer[T]); ok {
		return r.ReplaceAll(ctx, records)
	}
	for _, rec := range records {
		if _, err := tier.Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
