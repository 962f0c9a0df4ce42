package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/timeline"
)

// 2025-06-03 is a Tuesday.
var tuesday = timeline.Date{Year: 2025, Month: time.June, Day: 3}

func mustStatic(t *testing.T, exceptions []DateException) *Static {
	t.Helper()
	s, err := NewStatic(map[string]DayHours{
		"tuesday":  {Open: "12:00", Close: "22:00"},
		"Freitag":  {Open: "17:00", Close: "01:00"},
		"saturday": {Open: "18:00", Close: "00:00"},
	}, exceptions)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestResolveWeekly(t *testing.T) {
	r := Resolver{Source: mustStatic(t, nil)}
	h, err := r.Resolve(context.Background(), tuesday)
	if err != nil {
		t.Fatal(err)
	}
	if h.Closed || h.Open != 12*60 || h.Close != 22*60 {
		t.Fatalf("got %+v", h)
	}
}

func TestResolveNoEntryIsClosed(t *testing.T) {
	r := Resolver{Source: mustStatic(t, nil)}
	h, err := r.Resolve(context.Background(), tuesday.AddDays(-1))
	if err != nil {
		t.Fatal(err)
	}
	if !h.Closed || h.Reason != ReasonNoSchedule {
		t.Fatalf("got %+v", h)
	}
}

func TestResolveExceptionClosesRecurringDay(t *testing.T) {
	r := Resolver{Source: mustStatic(t, []DateException{{Date: "2025-06-03", Closed: true, Reason: "Betriebsferien"}})}
	h, err := r.Resolve(context.Background(), tuesday)
	if err != nil {
		t.Fatal(err)
	}
	if !h.Closed || h.Reason != "Betriebsferien" {
		t.Fatalf("got %+v", h)
	}
	// the following Tuesday keeps the weekly hours
	h, _ = r.Resolve(context.Background(), tuesday.AddDays(7))
	if h.Closed {
		t.Fatalf("next tuesday closed: %+v", h)
	}
}

func TestResolveExceptionOverridesWindow(t *testing.T) {
	r := Resolver{Source: mustStatic(t, []DateException{
		{Date: "2025-06-03", Open: "17:00", Close: "20:00"},
		{Date: "2025-06-02", Open: "10:00", Close: "14:00"},
	})}
	h, _ := r.Resolve(context.Background(), tuesday)
	if h.Closed || h.Open != 17*60 || h.Close != 20*60 {
		t.Fatalf("got %+v", h)
	}
	// an exception can open a day without a weekly entry
	h, _ = r.Resolve(context.Background(), tuesday.AddDays(-1))
	if h.Closed || h.Open != 10*60 {
		t.Fatalf("got %+v", h)
	}
}

func TestExceptionWithoutWindowFallsBackToWeekly(t *testing.T) {
	r := Resolver{Source: mustStatic(t, []DateException{{Date: "2025-06-03", Reason: "note only"}})}
	h, _ := r.Resolve(context.Background(), tuesday)
	if h.Closed || h.Open != 12*60 {
		t.Fatalf("got %+v", h)
	}
}

func TestClosingAfterMidnight(t *testing.T) {
	r := Resolver{Source: mustStatic(t, nil)}
	fri, _ := r.Resolve(context.Background(), tuesday.AddDays(3))
	if fri.Close != 25*60 {
		t.Fatalf("friday close = %d", fri.Close)
	}
	sat, _ := r.Resolve(context.Background(), tuesday.AddDays(4))
	if sat.Close != 24*60 || !sat.Admits(22*60, 120) || sat.Admits(22*60+1, 120) {
		t.Fatalf("saturday %+v", sat)
	}
}

func TestAdmits(t *testing.T) {
	h := Hours{Window: Window{Open: 12 * 60, Close: 22 * 60}}
	cases := []struct {
		start int
		want  bool
	}{
		{12 * 60, true},
		{11*60 + 59, false},
		{20 * 60, true},
		{21*60 + 30, false},
	}
	for _, tc := range cases {
		if got := h.Admits(tc.start, 120); got != tc.want {
			t.Errorf("Admits(%s) = %v", timeline.ToWallClock(tc.start), got)
		}
	}
	if h.LatestStart(120) != 20*60 {
		t.Fatal("latest start")
	}
	if (Hours{Closed: true, Window: h.Window}).Admits(13*60, 60) {
		t.Fatal("closed day admitted a slot")
	}
}

type failingSource struct{ failWeekly bool }

func (f failingSource) Weekly(context.Context, time.Weekday) (Window, bool, error) {
	if f.failWeekly {
		return Window{}, false, errors.New("dial tcp: i/o timeout")
	}
	return Window{Open: 0, Close: 24 * 60}, true, nil
}

func (f failingSource) Exception(context.Context, timeline.Date) (Exception, bool, error) {
	if !f.failWeekly {
		return Exception{}, false, errors.New("503")
	}
	return Exception{}, false, nil
}

func TestResolveFailsClosed(t *testing.T) {
	for _, src := range []failingSource{{failWeekly: true}, {failWeekly: false}} {
		h, err := Resolver{Source: src}.Resolve(context.Background(), tuesday)
		if !errors.Is(err, reservation.ErrRepositoryUnavailable) {
			t.Fatalf("err = %v", err)
		}
		if !h.Closed || h.Reason != ReasonUnavailable {
			t.Fatalf("got %+v", h)
		}
	}
}

func TestNewStaticRejectsBadInput(t *testing.T) {
	if _, err := NewStatic(map[string]DayHours{"funday": {Open: "10:00", Close: "12:00"}}, nil); err == nil {
		t.Error("unknown weekday accepted")
	}
	if _, err := NewStatic(map[string]DayHours{"monday": {Open: "10", Close: "12:00"}}, nil); err == nil {
		t.Error("bad time accepted")
	}
	if _, err := NewStatic(nil, []DateException{{Date: "3.6.2025", Closed: true}}); err == nil {
		t.Error("bad date accepted")
	}
}
