package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

// Hours reads opening_hours and schedule_exceptions. It implements schedule.Source.
type Hours struct {
	db      *DB
	timeout time.Duration
}

func NewHours(db *DB, timeout time.Duration) *Hours { return &Hours{db: db, timeout: timeout} }

func (h *Hours) Weekly(ctx context.Context, day time.Weekday) (schedule.Window, bool, error) {
	ctx, cancel := bounded(ctx, h.timeout)
	defer cancel()
	var open, shut int
	err := h.db.pool.QueryRow(ctx, `SELECT open_minutes, close_minutes FROM opening_hours WHERE weekday=$1`, int(day)).Scan(&open, &shut)
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.Window{}, false, nil
	}
	if err != nil {
		return schedule.Window{}, false, unavailable(err)
	}
	return schedule.NewWindow(open, shut), true, nil
}

func (h *Hours) Exception(ctx context.Context, date timeline.Date) (schedule.Exception, bool, error) {
	ctx, cancel := bounded(ctx, h.timeout)
	defer cancel()
	var (
		ex         = schedule.Exception{Date: date}
		open, shut *int32
	)
	err := h.db.pool.QueryRow(ctx, `
		SELECT closed, reason, open_minutes, close_minutes FROM schedule_exceptions WHERE date=$1::date
	`, date.String()).Scan(&ex.Closed, &ex.Reason, &open, &shut)
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.Exception{}, false, nil
	}
	if err != nil {
		return schedule.Exception{}, false, unavailable(err)
	}
	if open != nil && shut != nil {
		w := schedule.NewWindow(int(*open), int(*shut))
		ex.Window = &w
	}
	return ex, true, nil
}
