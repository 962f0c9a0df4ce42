package reservation

import (
	"errors"

	"github.com/example/tablesched/internal/domain/timeline"
)

var (
	ErrInvalidDate      = timeline.ErrInvalidDate
	ErrInvalidTime      = timeline.ErrInvalidTime
	ErrInvalidPartySize = errors.New("invalid party size")
	ErrInvalidRequest   = errors.New("invalid request")

	ErrClosed           = errors.New("closed on date")
	ErrOutsideHours     = errors.New("outside opening hours")
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrRepositoryUnavailable marks infrastructure faults talking to the
	// record store. It is never reported to guests as "fully booked".
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateInFlight     = errors.New("duplicate request in flight")
)

// Code is a stable machine-readable error code for API responses.
type Code string

const (
	CodeInvalidDate           Code = "invalid_date"
	CodeInvalidTime           Code = "invalid_time"
	CodeInvalidPartySize      Code = "invalid_party_size"
	CodeInvalidRequest        Code = "invalid_request"
	CodeClosed                Code = "closed"
	CodeOutsideHours          Code = "outside_opening_hours"
	CodeCapacityExceeded      Code = "capacity_exceeded"
	CodeRepositoryUnavailable Code = "repository_unavailable"
	CodeNotFound              Code = "not_found"
	CodeDuplicateInFlight     Code = "duplicate_in_flight"
	CodeInternal              Code = "internal"
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrInvalidDate, CodeInvalidDate},
	{ErrInvalidTime, CodeInvalidTime},
	{ErrInvalidPartySize, CodeInvalidPartySize},
	{ErrInvalidRequest, CodeInvalidRequest},
	{ErrClosed, CodeClosed},
	{ErrOutsideHours, CodeOutsideHours},
	{ErrCapacityExceeded, CodeCapacityExceeded},
	{ErrRepositoryUnavailable, CodeRepositoryUnavailable},
	{ErrNotFound, CodeNotFound},
	{ErrDuplicateInFlight, CodeDuplicateInFlight},
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// IsInputError reports whether err was caused by malformed caller input.
func IsInputError(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidDate, CodeInvalidTime, CodeInvalidPartySize, CodeInvalidRequest:
		return true
	}
	return false
}
