package airtable

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/timeline"
)

// Tables names the tables of the base and the status labels stored in them.
type Tables struct {
	Reservations    string
	Hours           string
	Exceptions      string
	StatusConfirmed string
	StatusCancelled string
}

// Store is the reservation repository backed by an Airtable base.
type Store struct {
	c *Client
	t Tables
}

func NewStore(c *Client, t Tables) *Store {
	return &Store{c: c, t: t}
}

func (s *Store) ListConfirmed(ctx context.Context, date timeline.Date) ([]reservation.Reservation, error) {
	return s.Find(ctx, reservation.Query{Date: date, Status: reservation.StatusConfirmed})
}

func (s *Store) Find(ctx context.Context, q reservation.Query) ([]reservation.Reservation, error) {
	var clauses []string
	if !q.Date.IsZero() {
		clauses = append(clauses, dateEquals(fieldDate, q.Date))
	}
	if !q.OnOrAfter.IsZero() {
		clauses = append(clauses, dateOnOrAfter(fieldDate, q.OnOrAfter))
	}
	if q.Phone != "" {
		clauses = append(clauses, phoneEquals(fieldPhone, reservation.NormalizePhone(q.Phone)))
	}
	if q.Status != "" {
		clauses = append(clauses, equals(fieldStatus, s.label(q.Status)))
	}

	recs, err := s.c.list(ctx, s.t.Reservations, and(clauses...), nil)
	if err != nil {
		return nil, err
	}
	out := make([]reservation.Reservation, 0, len(recs))
	for _, rec := range recs {
		r, ok := s.decode(rec)
		if !ok {
			continue
		}
		// the formula is advisory; re-check so a lax base cannot widen the result
		if !matches(r, q) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func matches(r reservation.Reservation, q reservation.Query) bool {
	switch {
	case !q.Date.IsZero() && r.Date != q.Date:
		return false
	case !q.OnOrAfter.IsZero() && r.Date.Before(q.OnOrAfter):
		return false
	case q.Phone != "" && reservation.NormalizePhone(r.Phone) != reservation.NormalizePhone(q.Phone):
		return false
	case q.Status != "" && r.Status != q.Status:
		return false
	}
	return true
}

func (s *Store) Get(ctx context.Context, id string) (reservation.Reservation, error) {
	rec, err := s.c.getRecord(ctx, s.t.Reservations, id)
	if err != nil {
		return reservation.Reservation{}, err
	}
	r, ok := s.decode(rec)
	if !ok {
		return reservation.Reservation{}, fmt.Errorf("%w: record %s has no readable date", reservation.ErrRepositoryUnavailable, id)
	}
	return r, nil
}

func (s *Store) Insert(ctx context.Context, r reservation.Reservation) (string, error) {
	rec, err := s.c.createRecord(ctx, s.t.Reservations, map[string]any{
		fieldName:   r.Name,
		fieldDate:   r.Date.String(),
		fieldTime:   r.StartText(),
		fieldGuests: r.Guests,
		fieldPhone:  r.Phone,
		fieldStatus: s.label(r.Status),
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Store) SetStatus(ctx context.Context, id string, status reservation.Status) error {
	return s.c.patchRecord(ctx, s.t.Reservations, id, map[string]any{fieldStatus: s.label(status)})
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.c.list(ctx, s.t.Reservations, "", url.Values{"maxRecords": {"1"}})
	return err
}

func (s *Store) label(st reservation.Status) string {
	switch st {
	case reservation.StatusConfirmed:
		return s.t.StatusConfirmed
	case reservation.StatusCancelled:
		return s.t.StatusCancelled
	}
	return string(st)
}

func (s *Store) status(label string) reservation.Status {
	switch label {
	case s.t.StatusConfirmed:
		return reservation.StatusConfirmed
	case s.t.StatusCancelled:
		return reservation.StatusCancelled
	}
	return reservation.Status(label)
}

func (s *Store) decode(rec record) (reservation.Reservation, bool) {
	f := rec.Fields
	d, err := timeline.ParseDate(text(f, fieldDate))
	if err != nil {
		s.c.log.Warn("skipping reservation without readable date", zap.String("record", rec.ID))
		return reservation.Reservation{}, false
	}
	r := reservation.Reservation{
		ID:        rec.ID,
		Date:      d,
		Name:      text(f, fieldName),
		Phone:     text(f, fieldPhone),
		Status:    s.status(text(f, fieldStatus)),
		CreatedAt: rec.CreatedTime,
	}
	r.Start, r.HasStart = minutes(f, fieldTime)
	if !r.HasStart {
		r.Start, r.HasStart = minutes(f, fieldStart)
	}
	r.Guests, _ = integer(f, fieldGuests)
	return r, true
}
