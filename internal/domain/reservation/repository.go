package reservation

import (
	"context"

	"github.com/example/tablesched/internal/domain/timeline"
)

// Query filters reservations. Zero fields do not constrain the result.
type Query struct {
	Date      timeline.Date
	OnOrAfter timeline.Date
	Phone     string
	Status    Status
}

// Reader lists confirmed reservations for one date.
type Reader interface {
	ListConfirmed(ctx context.Context, date timeline.Date) ([]Reservation, error)
}

// Repository is the port to the external record store. Implementations wrap
// transport and driver failures in ErrRepositoryUnavailable and return
// ErrNotFound from Get for unknown ids.
type Repository interface {
	Reader
	Find(ctx context.Context, q Query) ([]Reservation, error)
	Get(ctx context.Context, id string) (Reservation, error)
	Insert(ctx context.Context, r Reservation) (string, error)
	SetStatus(ctx context.Context, id string, status Status) error
	Ping(ctx context.Context) error
}

// SerializedWriter is implemented by stores that can run the capacity check
// and the insert as one serialized unit per date. fits receives the confirmed
// reservations for r.Date and returns a non-nil error to abort the insert.
type SerializedWriter interface {
	InsertIfFits(ctx context.Context, r Reservation, fits func(existing []Reservation) error) (string, error)
}
