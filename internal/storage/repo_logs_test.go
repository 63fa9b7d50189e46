package storage

import (
	"context"
	"testing"
	"time"

	"github.com/lachiem1/habitflow/internal/daylog"
)

func TestLogsRepoPutGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewLogsRepo(db)
	ctx := context.Background()

	l := daylog.DailyLog{
		Date:         "2024-03-10",
		WorkSummary:  "Shipped the importer",
		KeyLearnings: []string{"tx retries", "batch sizing"},
		IssuesFaced:  "flaky upstream",
		HoursWorked:  7.5,
	}
	if err := repo.Put(ctx, l); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	got, ok, err := repo.Get(ctx, "2024-03-10")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.WorkSummary != l.WorkSummary || got.IssuesFaced != l.IssuesFaced || got.HoursWorked != l.HoursWorked {
		t.Fatalf("Get() = %+v, fields do not round-trip", got)
	}
	if len(got.KeyLearnings) != 2 || got.KeyLearnings[0] != "tx retries" {
		t.Fatalf("Get() KeyLearnings = %v, want %v", got.KeyLearnings, l.KeyLearnings)
	}
}

func TestLogsRepoPutUpsertsByDate(t *testing.T) {
	db := openTestDB(t)
	repo := NewLogsRepo(db)
	ctx := context.Background()

	if err := repo.Put(ctx, daylog.DailyLog{Date: "2024-03-10", WorkSummary: "first"}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}
	if err := repo.Put(ctx, daylog.DailyLog{Date: "2024-03-10", WorkSummary: "second"}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	got, ok, err := repo.Get(ctx, "2024-03-10")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want found", ok, err)
	}
	if got.WorkSummary != "second" {
		t.Fatalf("Get() WorkSummary = %q, want the later write", got.WorkSummary)
	}

	logs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("List() returned %d rows, want 1 after upsert", len(logs))
	}
}

func TestLogsRepoListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewLogsRepo(db)
	ctx := context.Background()

	for _, date := range []string{"2024-03-08", "2024-03-10", "2024-03-09"} {
		if err := repo.Put(ctx, daylog.DailyLog{Date: date, WorkSummary: date}); err != nil {
			t.Fatalf("Put(%s) unexpected error: %v", date, err)
		}
	}

	logs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	want := []string{"2024-03-10", "2024-03-09", "2024-03-08"}
	if len(logs) != len(want) {
		t.Fatalf("List() returned %d rows, want %d", len(logs), len(want))
	}
	for i, date := range want {
		if logs[i].Date != date {
			t.Fatalf("List()[%d].Date = %q, want %q", i, logs[i].Date, date)
		}
	}
}

func TestLogsRepoListRange(t *testing.T) {
	db := openTestDB(t)
	repo := NewLogsRepo(db)
	ctx := context.Background()

	for _, date := range []string{"2024-03-03", "2024-03-05", "2024-03-09", "2024-03-11"} {
		if err := repo.Put(ctx, daylog.DailyLog{Date: date, WorkSummary: date}); err != nil {
			t.Fatalf("Put(%s) unexpected error: %v", date, err)
		}
	}

	logs, err := repo.ListRange(ctx, "2024-03-04", "2024-03-10")
	if err != nil {
		t.Fatalf("ListRange() unexpected error: %v", err)
	}
	if len(logs) != 2 || logs[0].Date != "2024-03-05" || logs[1].Date != "2024-03-09" {
		t.Fatalf("ListRange() = %v, want the two in-range dates oldest first", logs)
	}
}

func TestLogsRepoUpsertManyLeavesOtherRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewLogsRepo(db)
	ctx := context.Background()

	if err := repo.Put(ctx, daylog.DailyLog{Date: "2024-02-01", WorkSummary: "older"}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	batch := []daylog.DailyLog{
		{Date: "2024-03-01", WorkSummary: "a"},
		{Date: "2024-03-02", WorkSummary: "b"},
	}
	if err := repo.UpsertMany(ctx, batch, time.Now()); err != nil {
		t.Fatalf("UpsertMany() unexpected error: %v", err)
	}

	logs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("List() returned %d rows, want 3", len(logs))
	}

	got, ok, err := repo.Get(ctx, "2024-02-01")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want pre-existing row intact", ok, err)
	}
	if got.WorkSummary != "older" {
		t.Fatalf("Get() WorkSummary = %q, want %q", got.WorkSummary, "older")
	}
}

func TestLogsRepoDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewLogsRepo(db)
	ctx := context.Background()

	if err := repo.Put(ctx, daylog.DailyLog{Date: "2024-03-10", WorkSummary: "gone soon"}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}
	if err := repo.Delete(ctx, "2024-03-10"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}

	_, ok, err := repo.Get(ctx, "2024-03-10")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if ok {
		t.Fatal("log still present after Delete()")
	}

	has, err := repo.HasLogs(ctx)
	if err != nil {
		t.Fatalf("HasLogs() unexpected error: %v", err)
	}
	if has {
		t.Fatal("HasLogs() = true after deleting the only row")
	}
}
