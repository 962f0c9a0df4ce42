package reservation

import (
	"sort"
	"strings"
)

// ChooseCancelTarget picks the reservation a composite cancel request refers
// to. Only confirmed candidates on the requested date are considered; when a
// contact or name is given it must match. A candidate whose start equals the
// requested start wins; ties go to the earliest created, then the lowest id.
// With a contact or name but no exact start match, the earliest start wins,
// then the earliest created, then the lowest id. Without a contact or name,
// only exact start matches are eligible.
func ChooseCancelTarget(req CancelRequest, candidates []Reservation) (Reservation, bool) {
	phone := NormalizePhone(req.Phone)
	name := strings.TrimSpace(req.Name)

	var exact, other []Reservation
	for _, c := range candidates {
		if c.Status != StatusConfirmed || c.Date != req.Date {
			continue
		}
		if phone != "" && NormalizePhone(c.Phone) != phone {
			continue
		}
		if name != "" && !strings.EqualFold(strings.TrimSpace(c.Name), name) {
			continue
		}
		if c.HasStart && c.Start == req.Start {
			exact = append(exact, c)
		} else {
			other = append(other, c)
		}
	}

	if len(exact) > 0 {
		SortByCreation(exact)
		return exact[0], true
	}
	if (phone == "" && name == "") || len(other) == 0 {
		return Reservation{}, false
	}
	SortUpcoming(other)
	return other[0], true
}

// SortByCreation orders reservations by creation time, then id.
func SortByCreation(rs []Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

// SortUpcoming orders reservations by date, start, creation, then id.
// Reservations without a known start come after those with one on the same date.
func SortUpcoming(rs []Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.HasStart != b.HasStart {
			return a.HasStart
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
