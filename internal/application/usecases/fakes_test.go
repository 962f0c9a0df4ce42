package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/tablesched/internal/domain/capacity"
	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

type memRepo struct {
	mu      sync.Mutex
	rs      []reservation.Reservation
	seq     int
	err     error
	inserts int
}

func (m *memRepo) add(r reservation.Reservation) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(r)
}

func (m *memRepo) addLocked(r reservation.Reservation) string {
	m.seq++
	if r.ID == "" {
		r.ID = fmt.Sprintf("rec%d", m.seq)
	}
	m.rs = append(m.rs, r)
	return r.ID
}

func (m *memRepo) ListConfirmed(ctx context.Context, date timeline.Date) ([]reservation.Reservation, error) {
	return m.Find(ctx, reservation.Query{Date: date, Status: reservation.StatusConfirmed})
}

func (m *memRepo) Find(_ context.Context, q reservation.Query) ([]reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []reservation.Reservation
	for _, r := range m.rs {
		if !q.Date.IsZero() && r.Date != q.Date {
			continue
		}
		if !q.OnOrAfter.IsZero() && r.Date.Before(q.OnOrAfter) {
			continue
		}
		if q.Phone != "" && reservation.NormalizePhone(r.Phone) != q.Phone {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id string) (reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return reservation.Reservation{}, m.err
	}
	for _, r := range m.rs {
		if r.ID == id {
			return r, nil
		}
	}
	return reservation.Reservation{}, reservation.ErrNotFound
}

func (m *memRepo) Insert(_ context.Context, r reservation.Reservation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.inserts++
	r.CreatedAt = time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	return m.addLocked(r), nil
}

func (m *memRepo) SetStatus(_ context.Context, id string, status reservation.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rs {
		if m.rs[i].ID == id {
			m.rs[i].Status = status
			return nil
		}
	}
	return reservation.ErrNotFound
}

func (m *memRepo) Ping(context.Context) error { return m.err }

// lockedRepo serializes InsertIfFits the way a store with per-date locks does.
type lockedRepo struct {
	*memRepo
	write sync.Mutex
}

func (l *lockedRepo) InsertIfFits(ctx context.Context, r reservation.Reservation, fits func([]reservation.Reservation) error) (string, error) {
	l.write.Lock()
	defer l.write.Unlock()
	existing, err := l.ListConfirmed(ctx, r.Date)
	if err != nil {
		return "", err
	}
	if err := fits(existing); err != nil {
		return "", err
	}
	return l.Insert(ctx, r)
}

type memLedger struct {
	mu   sync.Mutex
	keys map[string]string
}

func (l *memLedger) Claim(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.keys == nil {
		l.keys = map[string]string{}
	}
	if id, ok := l.keys[key]; ok {
		return id, false, nil
	}
	l.keys[key] = ""
	return "", true, nil
}

func (l *memLedger) Complete(_ context.Context, key, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = id
	return nil
}

func (l *memLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
	return nil
}

var berlin = mustLocation("Europe/Berlin")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CEST", 2*60*60)
	}
	return loc
}

// 2025-06-01 is a Sunday; June 3rd is the following Tuesday.
var (
	sunday  = timeline.Date{Year: 2025, Month: time.June, Day: 1}
	tuesday = timeline.Date{Year: 2025, Month: time.June, Day: 3}
)

func newService(repo reservation.Repository) *Service {
	src, err := schedule.NewStatic(map[string]schedule.DayHours{
		"sunday":  {Open: "12:00", Close: "22:00"},
		"tuesday": {Open: "12:00", Close: "22:00"},
	}, nil)
	if err != nil {
		panic(err)
	}
	return &Service{
		Repo:        repo,
		Hours:       schedule.Resolver{Source: src},
		Policy:      capacity.Policy{MaxCapacity: 10, SlotDuration: 120},
		Location:    berlin,
		Now:         func() time.Time { return time.Date(2025, time.June, 1, 10, 0, 0, 0, berlin) },
		SuggestStep: 30,
	}
}

func confirmedAt(date timeline.Date, start, guests int, phone, name string) reservation.Reservation {
	return reservation.Reservation{
		Date: date, Start: start, HasStart: true, Guests: guests,
		Phone: phone, Name: name, Status: reservation.StatusConfirmed,
	}
}
