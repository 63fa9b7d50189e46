package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lachiem1/habitflow/internal/calendar"
	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/habit"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/mirror"
	"github.com/lachiem1/habitflow/internal/record"
	"github.com/lachiem1/habitflow/internal/storage"
)

func openSyncerDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenAt(context.Background(), filepath.Join(t.TempDir(), "habitflow.db"))
	if err != nil {
		t.Fatalf("OpenAt() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHabitsFixture(t *testing.T, handler http.Handler) (*HabitsSyncer, *storage.HabitsRepo) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db := openSyncerDB(t)
	repo := storage.NewHabitsRepo(db)
	syncState := storage.NewSyncStateRepo(db)
	mirrorTier := NewMirrorHabitsTier(mirror.Open(t.TempDir()))
	client := hubapi.NewWithBaseURL("test-token", srv.URL+"/api")
	return NewHabitsSyncer(client, repo, syncState, mirrorTier), repo
}

func TestHabitsSyncerSyncKeepsHistoryOlderThanWindow(t *testing.T) {
	today := calendar.Normalize(time.Now())
	oldDay := today.AddDate(0, 0, -60)

	recent := make([]int, habit.WindowWidth)
	recent[0] = 1
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/habits" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"habits":[{"id":"h1","name":"Run","createdAt":%q,"timesPerDay":1,"frequency":"Daily","recent":[1%s]}]}`,
			oldDay.UTC().Format(time.RFC3339), repeatZero(habit.WindowWidth-1))
	})

	s, repo := newHabitsFixture(t, handler)
	ctx := context.Background()

	existing := habit.Habit{
		ID:          "h1",
		Name:        "Run",
		CreatedAt:   oldDay,
		TimesPerDay: 1,
		Frequency:   habit.Daily,
		Completions: habit.NewLedger(),
	}
	existing.Completions.Toggle(oldDay)
	if err := repo.Put(ctx, existing); err != nil {
		t.Fatalf("seed Put() unexpected error: %v", err)
	}

	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	got, ok, err := repo.Get(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want found", ok, err)
	}
	if !got.Completions.Contains(today) {
		t.Fatal("today's completion from the hub window was lost")
	}
	if !got.Completions.Contains(oldDay) {
		t.Fatal("local completion older than the hub window was erased by sync")
	}
}

func TestHabitsSyncerSyncRecordsFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})
	s, _ := newHabitsFixture(t, handler)

	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("Sync() error = nil with failing hub")
	}
	streak, err := s.FailureStreak(context.Background())
	if err != nil {
		t.Fatalf("FailureStreak() unexpected error: %v", err)
	}
	if streak != 1 {
		t.Fatalf("FailureStreak() = %d, want 1", streak)
	}
}

func TestToggleCompletionOfflineKeepsLocalEdit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unavailable"}`, http.StatusServiceUnavailable)
	})
	s, repo := newHabitsFixture(t, handler)
	ctx := context.Background()

	seed := habit.Habit{ID: "h1", Name: "Run", CreatedAt: time.Now(), TimesPerDay: 1, Frequency: habit.Daily, Completions: habit.NewLedger()}
	if err := repo.Put(ctx, seed); err != nil {
		t.Fatalf("seed Put() unexpected error: %v", err)
	}

	got, offline, err := s.ToggleCompletion(ctx, "h1", habit.MarkToggle)
	if err != nil {
		t.Fatalf("ToggleCompletion() unexpected error: %v", err)
	}
	if !offline {
		t.Fatal("ToggleCompletion() offline = false with unreachable hub")
	}
	if !got.Completions.Contains(time.Now()) {
		t.Fatal("toggle did not mark today")
	}

	stored, ok, err := repo.Get(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want found", ok, err)
	}
	if !stored.Completions.Contains(time.Now()) {
		t.Fatal("offline toggle was not persisted locally")
	}
}

func TestToggleCompletionUnknownHabit(t *testing.T) {
	s, _ := newHabitsFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, _, err := s.ToggleCompletion(context.Background(), "ghost", habit.MarkToggle)
	if !record.IsNotFound(err) {
		t.Fatalf("ToggleCompletion() error = %v, want not-found", err)
	}
}

func TestCreateOfflineGeneratesLocalHabit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unavailable"}`, http.StatusBadGateway)
	})
	s, repo := newHabitsFixture(t, handler)
	ctx := context.Background()

	h, offline, err := s.Create(ctx, hubapi.CreateHabitParams{Name: "Meditate", TimesPerDay: 2, Frequency: "Daily"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if !offline {
		t.Fatal("Create() offline = false with unreachable hub")
	}
	if h.ID == "" {
		t.Fatal("offline create produced no id")
	}

	_, ok, err := repo.Get(ctx, h.ID)
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want the offline habit stored", ok, err)
	}
}

func TestCreateRejectsDuplicateNameLocally(t *testing.T) {
	s, repo := newHabitsFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ctx := context.Background()

	seed := habit.Habit{ID: "h1", Name: "Morning Run", CreatedAt: time.Now(), TimesPerDay: 1, Frequency: habit.Daily, Completions: habit.NewLedger()}
	if err := repo.Put(ctx, seed); err != nil {
		t.Fatalf("seed Put() unexpected error: %v", err)
	}

	_, _, err := s.Create(ctx, hubapi.CreateHabitParams{Name: "morning  run"})
	if !record.IsConflict(err) {
		t.Fatalf("Create() error = %v, want conflict", err)
	}
}

func TestDeleteWithUnreachableHubStillRemovesLocal(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"timeout"}`, http.StatusGatewayTimeout)
	})
	s, repo := newHabitsFixture(t, handler)
	ctx := context.Background()

	seed := habit.Habit{ID: "h1", Name: "Run", CreatedAt: time.Now(), TimesPerDay: 1, Frequency: habit.Daily, Completions: habit.NewLedger()}
	if err := repo.Put(ctx, seed); err != nil {
		t.Fatalf("seed Put() unexpected error: %v", err)
	}

	offline, err := s.Delete(ctx, "h1")
	if err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if !offline {
		t.Fatal("Delete() offline = false with unreachable hub")
	}
	if _, ok, _ := repo.Get(ctx, "h1"); ok {
		t.Fatal("habit still present locally after Delete()")
	}
}

func TestLogsSyncerSyncUpsertsWeek(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/daily-log/week" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[{"date":"2024-03-11","workSummary":"monday"},{"date":"2024-03-12","workSummary":"tuesday"}]`)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db := openSyncerDB(t)
	repo := storage.NewLogsRepo(db)
	syncState := storage.NewSyncStateRepo(db)
	mirrorTier := NewMirrorLogsTier(mirror.Open(t.TempDir()))
	client := hubapi.NewWithBaseURL("test-token", srv.URL+"/api")
	s := NewLogsSyncer(client, repo, syncState, mirrorTier)
	ctx := context.Background()

	// A log older than the week window must survive the refresh.
	if err := repo.Put(ctx, daylog.DailyLog{Date: "2024-01-05", WorkSummary: "ancient"}); err != nil {
		t.Fatalf("seed Put() unexpected error: %v", err)
	}

	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() unexpected error: %v", err)
	}

	logs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("List() returned %d rows, want week entries plus the old one", len(logs))
	}

	last, ok, err := s.LastSuccessAt(ctx)
	if err != nil || !ok {
		t.Fatalf("LastSuccessAt() = ok=%v err=%v, want recorded", ok, err)
	}
	if time.Since(last) > time.Minute {
		t.Fatalf("LastSuccessAt() = %v, want recent", last)
	}
}

func repeatZero(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ",0"
	}
	return out
}
