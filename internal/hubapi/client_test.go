package hubapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/record"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubClient(fn roundTripFunc) *Client {
	client := NewWithBaseURL("test-token", "https://example.test")
	client.httpClient = &http.Client{Transport: fn}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestListHabitsPathAndAuthHeader(t *testing.T) {
	t.Parallel()

	var seenReq *http.Request
	client := stubClient(func(req *http.Request) (*http.Response, error) {
		seenReq = req
		return jsonResponse(http.StatusOK, `{"habits":[{"id":"h-1","name":"read","recent":[1,0,1]}]}`), nil
	})

	habits, err := client.ListHabits(context.Background())
	if err != nil {
		t.Fatalf("ListHabits() unexpected error: %v", err)
	}
	if seenReq == nil {
		t.Fatal("no request captured")
	}
	if seenReq.URL.Path != "/habits" {
		t.Fatalf("path = %q, want %q", seenReq.URL.Path, "/habits")
	}
	if seenReq.Header.Get("Authorization") != "Bearer test-token" {
		t.Fatalf("Authorization header = %q, want %q", seenReq.Header.Get("Authorization"), "Bearer test-token")
	}
	if len(habits) != 1 {
		t.Fatalf("len(habits) = %d, want 1", len(habits))
	}
	if habits[0].ID != "h-1" || habits[0].Name != "read" {
		t.Fatalf("habit = %+v", habits[0])
	}
}

func TestListHabitsDefaultsMissingFields(t *testing.T) {
	t.Parallel()

	client := stubClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"habits":[{"_id":"legacy-1"}]}`), nil
	})

	habits, err := client.ListHabits(context.Background())
	if err != nil {
		t.Fatalf("ListHabits() unexpected error: %v", err)
	}
	h := habits[0]
	if h.ID != "legacy-1" {
		t.Fatalf("ID = %q, want legacy id fallback", h.ID)
	}
	if h.Name != "Untitled" {
		t.Fatalf("Name = %q, want %q", h.Name, "Untitled")
	}
	if h.TimesPerDay != 1 {
		t.Fatalf("TimesPerDay = %d, want 1", h.TimesPerDay)
	}
	if h.Frequency != "Daily" {
		t.Fatalf("Frequency = %q, want Daily", h.Frequency)
	}
	if h.Completions == nil {
		t.Fatal("Completions = nil, want empty ledger")
	}
}

func TestCreateHabitConflict(t *testing.T) {
	t.Parallel()

	client := stubClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"message":"Habit already exists"}`), nil
	})

	_, err := client.CreateHabit(context.Background(), CreateHabitParams{Name: "read"})
	if !record.IsConflict(err) {
		t.Fatalf("CreateHabit() error = %v, want ConflictError", err)
	}
}

func TestToggleTodayPathAndMethod(t *testing.T) {
	t.Parallel()

	var seenReq *http.Request
	client := stubClient(func(req *http.Request) (*http.Response, error) {
		seenReq = req
		return jsonResponse(http.StatusOK, `{"habit":{"id":"h-1","name":"read","recent":[1],"currentStreak":1}}`), nil
	})

	h, err := client.ToggleToday(context.Background(), "h-1")
	if err != nil {
		t.Fatalf("ToggleToday() unexpected error: %v", err)
	}
	if seenReq.Method != http.MethodPost {
		t.Fatalf("method = %q, want POST", seenReq.Method)
	}
	if seenReq.URL.Path != "/habits/h-1/complete" {
		t.Fatalf("path = %q, want %q", seenReq.URL.Path, "/habits/h-1/complete")
	}
	if !h.Completions.Contains(time.Now()) {
		t.Fatal("toggled habit should contain today")
	}
}

func dummyLog(date string) daylog.DailyLog {
	return daylog.DailyLog{Date: date, WorkSummary: "shipped", HoursWorked: 6}
}

func TestGetHabitNotFound(t *testing.T) {
	t.Parallel()

	client := stubClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Habit not found"}`), nil
	})

	_, err := client.GetHabit(context.Background(), "missing")
	if !record.IsNotFound(err) {
		t.Fatalf("GetHabit() error = %v, want NotFoundError", err)
	}
}

func TestServerErrorsAreTransient(t *testing.T) {
	t.Parallel()

	client := stubClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"message":"boom"}`), nil
	})

	_, err := client.ListHabits(context.Background())
	if !record.IsTransient(err) {
		t.Fatalf("ListHabits() error = %v, want TransientError", err)
	}
}

func TestNetworkErrorsAreTransient(t *testing.T) {
	t.Parallel()

	client := stubClient(func(req *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	err := client.Ping(context.Background())
	if !record.IsTransient(err) {
		t.Fatalf("Ping() error = %v, want TransientError", err)
	}
}

func TestPutDailyLogUpsertsAndValidates(t *testing.T) {
	t.Parallel()

	var seenReq *http.Request
	var seenBody string
	client := stubClient(func(req *http.Request) (*http.Response, error) {
		seenReq = req
		raw, _ := io.ReadAll(req.Body)
		seenBody = string(raw)
		return jsonResponse(http.StatusOK, `{"date":"2024-05-01","workSummary":"shipped","hoursWorked":6}`), nil
	})

	log, err := client.PutDailyLog(context.Background(), dummyLog("2024-05-01"))
	if err != nil {
		t.Fatalf("PutDailyLog() unexpected error: %v", err)
	}
	if seenReq.URL.Path != "/daily-log" {
		t.Fatalf("path = %q, want %q", seenReq.URL.Path, "/daily-log")
	}
	if seenReq.Method != http.MethodPost {
		t.Fatalf("method = %q, want POST", seenReq.Method)
	}
	if !strings.Contains(seenBody, `"date":"2024-05-01"`) {
		t.Fatalf("body missing date: %s", seenBody)
	}
	if log.WorkSummary != "shipped" {
		t.Fatalf("WorkSummary = %q", log.WorkSummary)
	}

	_, err = client.PutDailyLog(context.Background(), dummyLog(""))
	if !record.IsValidation(err) {
		t.Fatalf("PutDailyLog() with no date error = %v, want ValidationError", err)
	}
}

func TestGetDailyLogNullBodyIsNotFound(t *testing.T) {
	t.Parallel()

	client := stubClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `null`), nil
	})

	_, err := client.GetDailyLog(context.Background(), "2024-05-01")
	if !record.IsNotFound(err) {
		t.Fatalf("GetDailyLog() error = %v, want NotFoundError", err)
	}
}

func TestListWeekLogs(t *testing.T) {
	t.Parallel()

	var seenReq *http.Request
	client := stubClient(func(req *http.Request) (*http.Response, error) {
		seenReq = req
		return jsonResponse(http.StatusOK, `[{"date":"2024-05-02"},{"date":"2024-05-01"},{}]`), nil
	})

	logs, err := client.ListWeekLogs(context.Background())
	if err != nil {
		t.Fatalf("ListWeekLogs() unexpected error: %v", err)
	}
	if seenReq.URL.Path != "/daily-log/week" {
		t.Fatalf("path = %q, want %q", seenReq.URL.Path, "/daily-log/week")
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2 (dateless entry dropped)", len(logs))
	}
	if logs[0].Date != "2024-05-02" {
		t.Fatalf("logs[0].Date = %q, want most recent first", logs[0].Date)
	}
}
