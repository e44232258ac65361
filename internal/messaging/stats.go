package messaging

import (
	"context"
	"net/url"
	"time"
)

// MAU is the monthly-active-user figure for the current month.
type MAU struct {
	MAU   int       `json:"mau"`
	Date  string    `json:"date"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthWindow returns midnight UTC of the first and last day of now's month.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

const isoMillis = "2006-01-02T15:04:05.000Z"

// MonthlyActiveUsers fetches the MAU count for the month containing now.
func (c *Client) MonthlyActiveUsers(ctx context.Context, id Identity, now time.Time) (*MAU, error) {
	start, end := MonthWindow(now)
	q := url.Values{}
	q.Set("start", start.Format(isoMillis))
	q.Set("end", end.Format(isoMillis))

	var out MAU
	if err := c.getJSON(ctx, id, "/statistics/monthly_active_users?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	out.Start, out.End = start, end
	return &out, nil
}

// TotalMessages returns the application-wide message count.
func (c *Client) TotalMessages(ctx context.Context, id Identity) (int, error) {
	var out struct {
		TotalCount int `json:"total_count"`
	}
	if err := c.getJSON(ctx, id, "/messages", &out); err != nil {
		return 0, err
	}
	return out.TotalCount, nil
}
