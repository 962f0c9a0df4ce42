package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/example/tablesched/internal/domain/timeline"
)

// Static is an in-memory Source, loaded from configuration.
type Static struct {
	week       map[time.Weekday]Window
	exceptions map[timeline.Date]Exception
}

// DayHours is a configured open/close pair, as "HH:MM" strings.
type DayHours struct {
	Open  string `mapstructure:"open"`
	Close string `mapstructure:"close"`
}

// DateException is a configured exception. Open/Close are optional.
type DateException struct {
	Date   string `mapstructure:"date"`
	Closed bool   `mapstructure:"closed"`
	Reason string `mapstructure:"reason"`
	Open   string `mapstructure:"open"`
	Close  string `mapstructure:"close"`
}

func NewStatic(week map[string]DayHours, exceptions []DateException) (*Static, error) {
	s := &Static{
		week:       make(map[time.Weekday]Window, len(week)),
		exceptions: make(map[timeline.Date]Exception, len(exceptions)),
	}
	for name, h := range week {
		wd, ok := ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("schedule: unknown weekday %q", name)
		}
		w, err := parseWindow(h.Open, h.Close)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", name, err)
		}
		s.week[wd] = w
	}
	for _, e := range exceptions {
		d, err := timeline.ParseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("schedule exception: %w", err)
		}
		ex := Exception{Date: d, Closed: e.Closed, Reason: e.Reason}
		if !e.Closed && e.Open != "" && e.Close != "" {
			w, err := parseWindow(e.Open, e.Close)
			if err != nil {
				return nil, fmt.Errorf("schedule exception %s: %w", e.Date, err)
			}
			ex.Window = &w
		}
		s.exceptions[d] = ex
	}
	return s, nil
}

func parseWindow(open, shut string) (Window, error) {
	o, ok := timeline.ParseMinutes(open)
	if !ok {
		return Window{}, fmt.Errorf("%w: open %q", timeline.ErrInvalidTime, open)
	}
	c, ok := timeline.ParseMinutes(shut)
	if !ok {
		return Window{}, fmt.Errorf("%w: close %q", timeline.ErrInvalidTime, shut)
	}
	return NewWindow(o, c), nil
}

func (s *Static) Weekly(_ context.Context, day time.Weekday) (Window, bool, error) {
	w, ok := s.week[day]
	return w, ok, nil
}

func (s *Static) Exception(_ context.Context, date timeline.Date) (Exception, bool, error) {
	e, ok := s.exceptions[date]
	return e, ok, nil
}
