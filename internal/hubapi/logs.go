package hubapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/record"
)

// PutDailyLog calls POST /daily-log, an upsert keyed by (owner, date).
func (c *Client) PutDailyLog(ctx context.Context, log daylog.DailyLog) (daylog.DailyLog, error) {
	if err := log.Validate(); err != nil {
		return daylog.DailyLog{}, err
	}

	var out wireLog
	if err := c.do(ctx, http.MethodPost, "/daily-log", nil, fromLog(log), &out); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return daylog.DailyLog{}, &record.ValidationError{Field: "date", Reason: apiErr.Message}
		}
		return daylog.DailyLog{}, err
	}
	return out.toLog(), nil
}

// GetDailyLog calls GET /daily-log/{date}.
func (c *Client) GetDailyLog(ctx context.Context, date string) (daylog.DailyLog, error) {
	var out wireLog
	if err := c.do(ctx, http.MethodGet, "/daily-log/"+date, nil, nil, &out); err != nil {
		return daylog.DailyLog{}, translateLogErr(err, date)
	}
	if out.Date == "" {
		return daylog.DailyLog{}, &record.NotFoundError{Key: date}
	}
	return out.toLog(), nil
}

// ListWeekLogs calls GET /daily-log/week, most recent first.
func (c *Client) ListWeekLogs(ctx context.Context) ([]daylog.DailyLog, error) {
	var out []wireLog
	if err := c.do(ctx, http.MethodGet, "/daily-log/week", nil, nil, &out); err != nil {
		return nil, err
	}

	logs := make([]daylog.DailyLog, 0, len(out))
	for _, w := range out {
		if w.Date == "" {
			continue
		}
		logs = append(logs, w.toLog())
	}
	return logs, nil
}

// DeleteDailyLog calls DELETE /daily-log/{date}.
func (c *Client) DeleteDailyLog(ctx context.Context, date string) error {
	if err := c.do(ctx, http.MethodDelete, "/daily-log/"+date, nil, nil, nil); err != nil {
		return translateLogErr(err, date)
	}
	return nil
}

func translateLogErr(err error, key string) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return &record.NotFoundError{Key: key}
	}
	return err
}
