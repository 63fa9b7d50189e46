package hubapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/lachiem1/habitflow/internal/habit"
	"github.com/lachiem1/habitflow/internal/record"
)

// CreateHabitParams is the payload for POST /habits.
type CreateHabitParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TimesPerDay int    `json:"timesPerDay,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
}

// ListHabits calls GET /habits and returns the owner's habits with
// server-computed windows decoded into ledgers.
func (c *Client) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	var out habitListResponse
	if err := c.do(ctx, http.MethodGet, "/habits", nil, nil, &out); err != nil {
		return nil, err
	}

	now := time.Now()
	habits := make([]habit.Habit, 0, len(out.Habits))
	for _, w := range out.Habits {
		habits = append(habits, w.toHabit(now))
	}
	return habits, nil
}

// GetHabit calls GET /habits/{id}.
func (c *Client) GetHabit(ctx context.Context, id string) (habit.Habit, error) {
	var out habitResponse
	if err := c.do(ctx, http.MethodGet, "/habits/"+id, nil, nil, &out); err != nil {
		return habit.Habit{}, translateHabitErr(err, id)
	}
	return out.Habit.toHabit(time.Now()), nil
}

// CreateHabit calls POST /habits. A duplicate (owner, name) surfaces as a
// ConflictError.
func (c *Client) CreateHabit(ctx context.Context, params CreateHabitParams) (habit.Habit, error) {
	var out habitResponse
	if err := c.do(ctx, http.MethodPost, "/habits", nil, params, &out); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusConflict) {
			return habit.Habit{}, &record.ConflictError{Key: params.Name}
		}
		return habit.Habit{}, err
	}
	return out.Habit.toHabit(time.Now()), nil
}

// UpdateHabit calls PUT /habits/{id}.
func (c *Client) UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	body := CreateHabitParams{
		Name:        h.Name,
		Description: h.Description,
		TimesPerDay: h.TimesPerDay,
		Frequency:   string(h.Frequency),
	}
	var out habitResponse
	if err := c.do(ctx, http.MethodPut, "/habits/"+h.ID, nil, body, &out); err != nil {
		return habit.Habit{}, translateHabitErr(err, h.ID)
	}
	return out.Habit.toHabit(time.Now()), nil
}

// ToggleToday calls POST /habits/{id}/complete. The server toggles today's
// completion and returns the habit with authoritative streaks.
func (c *Client) ToggleToday(ctx context.Context, id string) (habit.Habit, error) {
	var out habitResponse
	if err := c.do(ctx, http.MethodPost, "/habits/"+id+"/complete", nil, nil, &out); err != nil {
		return habit.Habit{}, translateHabitErr(err, id)
	}
	return out.Habit.toHabit(time.Now()), nil
}

// DeleteHabit calls DELETE /habits/{id}.
func (c *Client) DeleteHabit(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/habits/"+id, nil, nil, nil); err != nil {
		return translateHabitErr(err, id)
	}
	return nil
}

func translateHabitErr(err error, key string) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return &record.NotFoundError{Key: key}
	}
	return err
}
