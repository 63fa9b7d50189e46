package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type scriptedSyncer struct {
	collection string

	mu          sync.Mutex
	hasData     bool
	lastSuccess time.Time
	streak      int
	syncErr     error
	syncCalls   int
}

func (s *scriptedSyncer) Collection() string { return s.collection }

func (s *scriptedSyncer) HasCachedData(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasData, nil
}

func (s *scriptedSyncer) LastSuccessAt(ctx context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess, !s.lastSuccess.IsZero(), nil
}

func (s *scriptedSyncer) FailureStreak(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streak, nil
}

func (s *scriptedSyncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncCalls++
	if s.syncErr == nil {
		s.hasData = true
		s.lastSuccess = time.Now()
	}
	return s.syncErr
}

func (s *scriptedSyncer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncCalls
}

func newTestEngine(t *testing.T, s Syncer, onEvent func(Event)) *Engine {
	t.Helper()
	e, err := NewEngine(
		EngineConfig{
			StaleTTL:     time.Hour,
			PollInterval: time.Hour,
			Backoff:      []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		},
		[]Syncer{s},
		onEvent,
	)
	if err != nil {
		t.Fatalf("NewEngine() unexpected error: %v", err)
	}
	return e
}

func TestEngineRejectsEmptyAndDuplicateCollections(t *testing.T) {
	if _, err := NewEngine(EngineConfig{}, nil, nil); err == nil {
		t.Fatal("NewEngine() with no syncers succeeded")
	}
	if _, err := NewEngine(EngineConfig{}, []Syncer{&scriptedSyncer{collection: ""}}, nil); err == nil {
		t.Fatal("NewEngine() with empty collection succeeded")
	}
	dup := []Syncer{&scriptedSyncer{collection: "x"}, &scriptedSyncer{collection: "x"}}
	if _, err := NewEngine(EngineConfig{}, dup, nil); err == nil {
		t.Fatal("NewEngine() with duplicate collections succeeded")
	}
}

func TestEngineSyncsImmediatelyWhenCacheEmpty(t *testing.T) {
	s := &scriptedSyncer{collection: "habits"}
	e := newTestEngine(t, s, nil)

	if err := e.EnterView(context.Background(), "habits"); err != nil {
		t.Fatalf("EnterView() unexpected error: %v", err)
	}
	defer e.LeaveView()

	waitFor(t, func() bool { return s.calls() == 1 }, "engine never synced an empty cache")
}

func TestEngineSkipsFreshCacheOnEnter(t *testing.T) {
	s := &scriptedSyncer{collection: "habits", hasData: true, lastSuccess: time.Now()}
	e := newTestEngine(t, s, nil)

	if err := e.EnterView(context.Background(), "habits"); err != nil {
		t.Fatalf("EnterView() unexpected error: %v", err)
	}
	defer e.LeaveView()

	time.Sleep(50 * time.Millisecond)
	if got := s.calls(); got != 0 {
		t.Fatalf("sync calls = %d, want 0 for a fresh cache", got)
	}
}

func TestEngineManualRefreshForcesSync(t *testing.T) {
	s := &scriptedSyncer{collection: "habits", hasData: true, lastSuccess: time.Now()}
	e := newTestEngine(t, s, nil)

	if err := e.EnterView(context.Background(), "habits"); err != nil {
		t.Fatalf("EnterView() unexpected error: %v", err)
	}
	defer e.LeaveView()

	if err := e.ManualRefresh("habits"); err != nil {
		t.Fatalf("ManualRefresh() unexpected error: %v", err)
	}
	waitFor(t, func() bool { return s.calls() == 1 }, "manual refresh never synced")

	if err := e.ManualRefresh("daylogs"); err == nil {
		t.Fatal("ManualRefresh() for inactive collection succeeded")
	}
}

func TestEngineRetriesFailuresOnBackoff(t *testing.T) {
	s := &scriptedSyncer{collection: "habits", syncErr: errors.New("hub down")}

	var mu sync.Mutex
	var failures int
	var retryHints int
	e := newTestEngine(t, s, func(evt Event) {
		if evt.Type == EventSyncFailed {
			mu.Lock()
			failures++
			if evt.RetryIn > 0 {
				retryHints++
			}
			mu.Unlock()
		}
	})

	if err := e.EnterView(context.Background(), "habits"); err != nil {
		t.Fatalf("EnterView() unexpected error: %v", err)
	}
	defer e.LeaveView()

	waitFor(t, func() bool { return s.calls() >= 3 }, "engine never retried after failures")
	mu.Lock()
	got, hints := failures, retryHints
	mu.Unlock()
	if got < 2 {
		t.Fatalf("failure events = %d, want at least 2", got)
	}
	if hints != got {
		t.Fatalf("failure events with retry delay = %d, want %d", hints, got)
	}
}

func TestEngineLeaveViewStopsLoop(t *testing.T) {
	s := &scriptedSyncer{collection: "habits", syncErr: errors.New("hub down")}
	e := newTestEngine(t, s, nil)

	if err := e.EnterView(context.Background(), "habits"); err != nil {
		t.Fatalf("EnterView() unexpected error: %v", err)
	}
	waitFor(t, func() bool { return s.calls() >= 1 }, "engine never synced")
	e.LeaveView()

	settled := s.calls()
	time.Sleep(60 * time.Millisecond)
	if s.calls() > settled+1 {
		t.Fatal("sync loop still running after LeaveView()")
	}
	if e.ActiveCollection() != "" {
		t.Fatalf("ActiveCollection() = %q after LeaveView(), want empty", e.ActiveCollection())
	}
}

func TestInitialBackoffIndexResumesFromStreak(t *testing.T) {
	ladder := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	e, err := NewEngine(
		EngineConfig{Backoff: ladder},
		[]Syncer{&scriptedSyncer{collection: "habits"}},
		nil,
	)
	if err != nil {
		t.Fatalf("NewEngine() unexpected error: %v", err)
	}

	cases := []struct {
		streak int
		want   int
	}{
		{streak: 0, want: 0},
		{streak: 1, want: 1},
		{streak: 2, want: 2},
		{streak: 9, want: 2},
	}
	for _, tc := range cases {
		s := &scriptedSyncer{collection: "habits", streak: tc.streak}
		if got := e.initialBackoffIndex(context.Background(), s); got != tc.want {
			t.Fatalf("initialBackoffIndex(streak=%d) = %d, want %d", tc.streak, got, tc.want)
		}
	}
}
