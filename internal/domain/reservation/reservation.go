package reservation

import (
	"strings"
	"time"
	"unicode"

	"github.com/example/tablesched/internal/domain/timeline"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Reservation is a booked table. Start is minutes since midnight on Date;
// HasStart is false when the stored start time was missing or unreadable.
type Reservation struct {
	ID       string
	Date     timeline.Date
	Start    int
	HasStart bool
	Guests   int
	Name     string
	Phone    string
	Status   Status

	CreatedAt time.Time
}

// End is the exclusive end of the occupied interval for a slot of the given length.
func (r Reservation) End(slotMinutes int) int { return r.Start + slotMinutes }

func (r Reservation) StartText() string { return timeline.ToWallClock(r.Start) }

// Request is a normalized create/check request.
type Request struct {
	Date   timeline.Date
	Start  int
	Guests int
	Name   string
	Phone  string
}

// CancelRequest identifies the reservation to cancel, either by ID or by the
// composite of date, start time and contact.
type CancelRequest struct {
	ID    string
	Date  timeline.Date
	Start int
	Phone string
	Name  string
}

func (c CancelRequest) ByID() bool { return c.ID != "" }

// NormalizePhone strips whitespace and common separators so numbers spoken or
// typed differently compare equal.
func NormalizePhone(p string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '/' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, p)
}
