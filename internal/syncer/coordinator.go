package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lachiem1/habitflow/internal/record"
)

// SaveState is the save pipeline status for one record key.
type SaveState string

const (
	// StateClean means the last save reached every tier.
	StateClean SaveState = "clean"
	// StateDirty means edits exist that have not been saved yet.
	StateDirty SaveState = "dirty"
	// StateSaving means a save is in flight.
	StateSaving SaveState = "saving"
	// StateOffline means the record is safe locally but the hub could not
	// be reached.
	StateOffline SaveState = "offline"
)

type SaveEvent struct {
	Key   string
	State SaveState
	Err   error
	At    time.Time
}

type CoordinatorConfig struct {
	// Debounce is how long edits coalesce before an autosave fires.
	Debounce time.Duration
	OnEvent  func(SaveEvent)
}

const (
	defaultDebounce = 4 * time.Second
	saveTimeout     = 30 * time.Second
)

// Coordinator owns the save pipeline for one record type. Edits are
// scheduled per key with a debounce timer; the timer always fires with the
// latest snapshot, a manual save cancels the timer and runs immediately,
// and a response from the hub is discarded if a newer save was issued
// while it was in flight.
type Coordinator[T record.Record] struct {
	remote   Tier[T]
	durable  Tier[T]
	mirror   Tier[T]
	debounce time.Duration
	onEvent  func(SaveEvent)

	mu      sync.Mutex
	pending map[string]T
	timers  map[string]*time.Timer
	states  map[string]SaveState
	seqs    map[string]uint64
	deleted map[string]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewCoordinator[T record.Record](remote, durable, mirror Tier[T], cfg CoordinatorConfig) *Coordinator[T] {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	return &Coordinator[T]{
		remote:   remote,
		durable:  durable,
		mirror:   mirror,
		debounce: cfg.Debounce,
		onEvent:  cfg.OnEvent,
		pending:  make(map[string]T),
		timers:   make(map[string]*time.Timer),
		states:   make(map[string]SaveState),
		seqs:     make(map[string]uint64),
		deleted:  make(map[string]struct{}),
	}
}

// Load fetches the record set from the highest-priority tier that answers:
// hub first, then the local database, then the mirror. A remote answer is
// mirrored down into both local tiers so they converge on the
// authoritative state.
func (c *Coordinator[T]) Load(ctx context.Context) ([]T, Source, error) {
	records, remoteErr := c.remote.List(ctx)
	if remoteErr == nil {
		if err := replaceAll(ctx, c.durable, records); err != nil {
			c.emit(SaveEvent{State: StateOffline, Err: fmt.Errorf("mirror load into %s: %w", c.durable.Name(), err), At: time.Now().UTC()})
		}
		_ = replaceAll(ctx, c.mirror, records)
		return records, SourceRemote, nil
	}
	if record.IsTransient(remoteErr) {
		c.emit(SaveEvent{State: StateOffline, Err: remoteErr, At: time.Now().UTC()})
	}

	records, durableErr := c.durable.List(ctx)
	if durableErr == nil {
		_ = replaceAll(ctx, c.mirror, records)
		return records, SourceDurable, nil
	}

	records, mirrorErr := c.mirror.List(ctx)
	if mirrorErr == nil {
		return records, SourceMirror, nil
	}

	return nil, "", fmt.Errorf("load failed on every tier: %w", errors.Join(remoteErr, durableErr, mirrorErr))
}

// ScheduleAutosave records snapshot as the pending state for its key and
// restarts the debounce timer. Later snapshots for the same key replace
// earlier ones; the timer fires with whatever is latest at that moment.
func (c *Coordinator[T]) ScheduleAutosave(snapshot T) {
	key := snapshot.Key()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending[key] = snapshot
	c.states[key] = StateDirty
	delete(c.deleted, key)
	if t := c.timers[key]; t != nil {
		t.Stop()
	}
	c.timers[key] = time.AfterFunc(c.debounce, func() { c.autosaveFire(key) })
	c.mu.Unlock()

	c.emit(SaveEvent{Key: key, State: StateDirty, At: time.Now().UTC()})
}

func (c *Coordinator[T]) autosaveFire(key string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.timers, key)
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	// State and events already carry the outcome.
	_ = c.Save(ctx, key)
}

// Save flushes the pending snapshot for key now, cancelling any scheduled
// autosave. Saving a key with nothing pending is a no-op.
func (c *Coordinator[T]) Save(ctx context.Context, key string) error {
	snapshot, seq, ok := c.takePending(key)
	if !ok {
		return nil
	}
	return c.write(ctx, key, seq, snapshot)
}

func (c *Coordinator[T]) takePending(key string) (T, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if t := c.timers[key]; t != nil {
		t.Stop()
		delete(c.timers, key)
	}
	snapshot, ok := c.pending[key]
	if !ok {
		return zero, 0, false
	}
	delete(c.pending, key)
	c.seqs[key]++
	c.states[key] = StateSaving
	return snapshot, c.seqs[key], true
}

func (c *Coordinator[T]) write(ctx context.Context, key string, seq uint64, snapshot T) error {
	c.emit(SaveEvent{Key: key, State: StateSaving, At: time.Now().UTC()})

	if err := snapshot.Validate(); err != nil {
		c.finish(key, seq, StateDirty, err)
		c.requeue(key, seq, snapshot)
		return err
	}

	if c.isDeleted(key) {
		return nil
	}
	if _, err := c.durable.Put(ctx, snapshot); err != nil {
		err = fmt.Errorf("save %q to %s: %w", key, c.durable.Name(), err)
		c.finish(key, seq, StateDirty, err)
		return err
	}
	// The mirror is rebuildable; a failed write there never fails the save.
	_, _ = c.mirror.Put(ctx, snapshot)

	// A delete issued while the local writes were suspended wins: undo them
	// rather than resurrect the record, and never push it to the hub.
	if c.isDeleted(key) {
		_ = c.durable.Delete(ctx, key)
		_ = c.mirror.Delete(ctx, key)
		return nil
	}

	updated, err := c.remote.Put(ctx, snapshot)
	if err != nil {
		if record.IsTransient(err) {
			c.finish(key, seq, StateOffline, err)
			return nil
		}
		err = fmt.Errorf("save %q to %s: %w", key, c.remote.Name(), err)
		c.finish(key, seq, StateDirty, err)
		c.requeue(key, seq, snapshot)
		return err
	}

	// The hub response only applies if no newer save was issued while this
	// one was in flight.
	if c.isLatest(key, seq) {
		_, _ = c.durable.Put(ctx, updated)
		_, _ = c.mirror.Put(ctx, updated)
	}
	c.finish(key, seq, StateClean, nil)
	return nil
}

// requeue puts a snapshot the hub rejected back in pending so a later Save
// can retry it, unless a newer edit or save superseded it.
func (c *Coordinator[T]) requeue(key string, seq uint64, snapshot T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dirty := c.pending[key]; dirty || seq != c.seqs[key] {
		return
	}
	c.pending[key] = snapshot
}

func (c *Coordinator[T]) isDeleted(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.deleted[key]
	return ok
}

func (c *Coordinator[T]) isLatest(key string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dirty := c.pending[key]; dirty {
		return false
	}
	return seq == c.seqs[key]
}

func (c *Coordinator[T]) finish(key string, seq uint64, state SaveState, cause error) {
	c.mu.Lock()
	stale := seq != c.seqs[key]
	if _, dirty := c.pending[key]; dirty || stale {
		// A newer edit or save owns the status now.
		c.mu.Unlock()
		return
	}
	c.states[key] = state
	c.mu.Unlock()

	c.emit(SaveEvent{Key: key, State: state, Err: cause, At: time.Now().UTC()})
}

// Delete removes the record from both local tiers unconditionally, then
// tells the hub. A hub that is unreachable does not undo the local delete;
// a save still in flight for the key discards its hub response and undoes
// any local write that landed after the delete. The key stays marked
// deleted until a new edit is scheduled for it.
func (c *Coordinator[T]) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	if t := c.timers[key]; t != nil {
		t.Stop()
		delete(c.timers, key)
	}
	delete(c.pending, key)
	c.seqs[key]++
	delete(c.states, key)
	c.deleted[key] = struct{}{}
	c.mu.Unlock()

	if err := c.durable.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %q from %s: %w", key, c.durable.Name(), err)
	}
	_ = c.mirror.Delete(ctx, key)

	if err := c.remote.Delete(ctx, key); err != nil {
		if record.IsNotFound(err) {
			return nil
		}
		if record.IsTransient(err) {
			c.emit(SaveEvent{Key: key, State: StateOffline, Err: err, At: time.Now().UTC()})
			return nil
		}
		return fmt.Errorf("delete %q from %s: %w", key, c.remote.Name(), err)
	}
	return nil
}

// Restore pushes a batch of records back out, hub first, local tiers
// regardless of the hub outcome. Each record is attempted independently;
// the returned slice holds one error per record that failed.
func (c *Coordinator[T]) Restore(ctx context.Context, records []T, workers int) []error {
	return forEachLimit(ctx, records, workers, func(ctx context.Context, rec T) error {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("restore %q: %w", rec.Key(), err)
		}

		stored := rec
		updated, remoteErr := c.remote.Put(ctx, rec)
		if remoteErr == nil {
			stored = updated
		}

		if _, err := c.durable.Put(ctx, stored); err != nil {
			remoteErr = errors.Join(remoteErr, err)
		}
		_, _ = c.mirror.Put(ctx, stored)

		if remoteErr != nil {
			return fmt.Errorf("restore %q: %w", rec.Key(), remoteErr)
		}
		return nil
	})
}

// Status reports the save state for key. Keys with no history are clean.
func (c *Coordinator[T]) Status(key string) SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[key]; ok {
		return state
	}
	return StateClean
}

// Flush saves every pending record now.
func (c *Coordinator[T]) Flush(ctx context.Context) error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.pending))
	for key := range c.pending {
		keys = append(keys, key)
	}
	c.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := c.Save(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops all timers, flushes pending edits synchronously, and waits
// for in-flight autosaves to finish.
func (c *Coordinator[T]) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for key, t := range c.timers {
		t.Stop()
		delete(c.timers, key)
	}
	c.mu.Unlock()

	err := c.Flush(ctx)
	c.wg.Wait()
	return err
}

func (c *Coordinator[T]) emit(evt SaveEvent) {
	if c.onEvent == nil {
		return
	}
	c.onEvent(evt)
}
