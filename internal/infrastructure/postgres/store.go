package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/timeline"
)

// Store is the reservation repository on Postgres. It also implements
// reservation.SerializedWriter: inserts for one date are serialized with a
// transaction-scoped advisory lock. Every call is bounded by timeout.
type Store struct {
	db      *DB
	timeout time.Duration
}

func NewStore(db *DB, timeout time.Duration) *Store { return &Store{db: db, timeout: timeout} }

const selectReservation = `SELECT id, date, start_minutes, guests, name, phone, status, created_at FROM reservations`

func (s *Store) ListConfirmed(ctx context.Context, date timeline.Date) ([]reservation.Reservation, error) {
	return s.Find(ctx, reservation.Query{Date: date, Status: reservation.StatusConfirmed})
}

func (s *Store) Find(ctx context.Context, q reservation.Query) ([]reservation.Reservation, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	where, args := filter(q)
	rows, err := s.db.pool.Query(ctx, selectReservation+where+` ORDER BY date, start_minutes NULLS LAST, created_at, id`, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func filter(q reservation.Query) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !q.Date.IsZero() {
		add("date = $%d::date", q.Date.String())
	}
	if !q.OnOrAfter.IsZero() {
		add("date >= $%d::date", q.OnOrAfter.String())
	}
	if q.Phone != "" {
		add("phone_normalized = $%d", reservation.NormalizePhone(q.Phone))
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) Get(ctx context.Context, id string) (reservation.Reservation, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.pool.Query(ctx, selectReservation+` WHERE id=$1`, id)
	if err != nil {
		return reservation.Reservation{}, unavailable(err)
	}
	rs, err := collect(rows)
	if err != nil {
		return reservation.Reservation{}, unavailable(err)
	}
	if len(rs) == 0 {
		return reservation.Reservation{}, fmt.Errorf("%w: reservation %s", reservation.ErrNotFound, id)
	}
	return rs[0], nil
}

func (s *Store) Insert(ctx context.Context, r reservation.Reservation) (string, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	return insert(ctx, s.db.pool, r)
}

// InsertIfFits runs fits against the confirmed reservations of r.Date and
// inserts r in the same transaction while holding the date's advisory lock.
func (s *Store) InsertIfFits(ctx context.Context, r reservation.Reservation, fits func([]reservation.Reservation) error) (string, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	tx, err := s.db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", unavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "reservations:"+r.Date.String()); err != nil {
		return "", unavailable(err)
	}
	where, args := filter(reservation.Query{Date: r.Date, Status: reservation.StatusConfirmed})
	rows, err := tx.Query(ctx, selectReservation+where, args...)
	if err != nil {
		return "", unavailable(err)
	}
	existing, err := collect(rows)
	if err != nil {
		return "", unavailable(err)
	}
	if err := fits(existing); err != nil {
		return "", err
	}
	id, err := insert(ctx, tx, r)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", unavailable(err)
	}
	return id, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insert(ctx context.Context, db execer, r reservation.Reservation) (string, error) {
	id := uuid.NewString()
	var start *int32
	if r.HasStart {
		v := int32(r.Start)
		start = &v
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO reservations (id, date, start_minutes, guests, name, phone, phone_normalized, status, created_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9)
	`, id, r.Date.String(), start, r.Guests, r.Name, r.Phone, reservation.NormalizePhone(r.Phone), string(r.Status), created)
	if err != nil {
		return "", unavailable(err)
	}
	return id, nil
}

func (s *Store) SetStatus(ctx context.Context, id string, status reservation.Status) error {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	tag, err := s.db.pool.Exec(ctx, `UPDATE reservations SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: reservation %s", reservation.ErrNotFound, id)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func collect(rows pgx.Rows) ([]reservation.Reservation, error) {
	defer rows.Close()
	var out []reservation.Reservation
	for rows.Next() {
		var (
			r      reservation.Reservation
			date   time.Time
			start  *int32
			status string
		)
		if err := rows.Scan(&r.ID, &date, &start, &r.Guests, &r.Name, &r.Phone, &status, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Date = timeline.DateOf(date)
		r.Status = reservation.Status(status)
		if start != nil {
			r.Start, r.HasStart = int(*start), true
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// bounded applies the store timeout; a non-positive timeout falls back to defaultTimeout.
func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func unavailable(err error) error {
	if errors.Is(err, reservation.ErrRepositoryUnavailable) {
		return err
	}
	return fmt.Errorf("%w: postgres: %w", reservation.ErrRepositoryUnavailable, err)
}
