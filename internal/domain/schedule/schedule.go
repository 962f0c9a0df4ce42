package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/timeline"
)

// Window is an open/close pair in minutes since midnight. Close may exceed
// one day when the venue closes after midnight.
type Window struct {
	Open  int
	Close int
}

// NewWindow builds a window from decoded open/close minutes. A close at or
// before open is read as the following day (22:00-01:00, 18:00-00:00).
func NewWindow(open, shut int) Window {
	if shut <= open {
		shut += timeline.MinutesPerDay
	}
	return Window{Open: open, Close: shut}
}

// Exception overrides the weekly schedule for one date.
type Exception struct {
	Date   timeline.Date
	Closed bool
	Reason string
	Window *Window
}

// Source provides the recurring weekly schedule and the date exceptions.
type Source interface {
	Weekly(ctx context.Context, day time.Weekday) (Window, bool, error)
	Exception(ctx context.Context, date timeline.Date) (Exception, bool, error)
}

const (
	ReasonNoSchedule  = "no schedule entry"
	ReasonUnavailable = "schedule unavailable"
	ReasonException   = "closed"
)

// Hours is the resolved opening state for one date.
type Hours struct {
	Closed bool
	Reason string
	Window
}

// Admits reports whether a slot of length minutes starting at start fits
// entirely inside the opening window.
func (h Hours) Admits(start, minutes int) bool {
	return !h.Closed && start >= h.Open && start+minutes <= h.Close
}

// LatestStart is the last start time that still ends by closing.
func (h Hours) LatestStart(minutes int) int { return h.Close - minutes }

type Resolver struct {
	Source Source
}

// Resolve determines whether the venue is open on date. An exception for the
// exact date wins over the weekly entry; no entry means closed. Any source
// failure yields a closed result together with an ErrRepositoryUnavailable
// error, so callers never see an open window built from uncertain data.
func (r Resolver) Resolve(ctx context.Context, date timeline.Date) (Hours, error) {
	ex, ok, err := r.Source.Exception(ctx, date)
	if err != nil {
		return unavailable(err)
	}
	if ok {
		if ex.Closed {
			reason := strings.TrimSpace(ex.Reason)
			if reason == "" {
				reason = ReasonException
			}
			return Hours{Closed: true, Reason: reason}, nil
		}
		if ex.Window != nil {
			return Hours{Window: *ex.Window}, nil
		}
	}

	w, ok, err := r.Source.Weekly(ctx, date.Weekday())
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return Hours{Closed: true, Reason: ReasonNoSchedule}, nil
	}
	return Hours{Window: w}, nil
}

func unavailable(err error) (Hours, error) {
	if !errors.Is(err, reservation.ErrRepositoryUnavailable) {
		err = fmt.Errorf("%w: %w", reservation.ErrRepositoryUnavailable, err)
	}
	return Hours{Closed: true, Reason: ReasonUnavailable}, err
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sonntag": time.Sunday,
	"monday": time.Monday, "montag": time.Monday,
	"tuesday": time.Tuesday, "dienstag": time.Tuesday,
	"wednesday": time.Wednesday, "mittwoch": time.Wednesday,
	"thursday": time.Thursday, "donnerstag": time.Thursday,
	"friday": time.Friday, "freitag": time.Friday,
	"saturday": time.Saturday, "samstag": time.Saturday,
}

// ParseWeekday maps an English or German weekday name as stored in schedule
// tables to its time.Weekday.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}
