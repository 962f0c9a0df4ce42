package airtable

import (
	"context"
	"time"

	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

// Hours reads the weekly opening hours and date exceptions from two tables
// of the same base. It implements schedule.Source.
type Hours struct {
	c *Client
	t Tables
}

func NewHours(c *Client, t Tables) *Hours {
	return &Hours{c: c, t: t}
}

func (h *Hours) Weekly(ctx context.Context, day time.Weekday) (schedule.Window, bool, error) {
	recs, err := h.c.list(ctx, h.t.Hours, "", nil)
	if err != nil {
		return schedule.Window{}, false, err
	}
	for _, rec := range recs {
		wd, ok := schedule.ParseWeekday(text(rec.Fields, fieldWeekday))
		if !ok || wd != day {
			continue
		}
		if w, ok := window(rec.Fields); ok {
			return w, true, nil
		}
	}
	return schedule.Window{}, false, nil
}

func (h *Hours) Exception(ctx context.Context, date timeline.Date) (schedule.Exception, bool, error) {
	recs, err := h.c.list(ctx, h.t.Exceptions, dateEquals(fieldDate, date), nil)
	if err != nil {
		return schedule.Exception{}, false, err
	}
	for _, rec := range recs {
		d, err := timeline.ParseDate(text(rec.Fields, fieldDate))
		if err != nil || d != date {
			continue
		}
		ex := schedule.Exception{
			Date:   d,
			Closed: boolean(rec.Fields, fieldClosed),
			Reason: text(rec.Fields, fieldReason),
		}
		if w, ok := window(rec.Fields); ok {
			ex.Window = &w
		}
		return ex, true, nil
	}
	return schedule.Exception{}, false, nil
}

func window(f map[string]any) (schedule.Window, bool) {
	open, ok := minutes(f, fieldOpen)
	if !ok {
		return schedule.Window{}, false
	}
	shut, ok := minutes(f, fieldClose)
	if !ok {
		return schedule.Window{}, false
	}
	return schedule.NewWindow(open, shut), true
}
