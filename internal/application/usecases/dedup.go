package usecases

import "context"

// Ledger de-duplicates create requests that carry a client key.
//
// Claim returns claimed=true when the caller now owns key. Otherwise id is the
// reservation created by an earlier request with the same key, or empty while
// that request is still in flight.
type Ledger interface {
	Claim(ctx context.Context, key string) (id string, claimed bool, err error)
	Complete(ctx context.Context, key, id string) error
	Release(ctx context.Context, key string) error
}

// NoopLedger claims every key; used when no ledger backend is configured.
type NoopLedger struct{}

func (NoopLedger) Claim(context.Context, string) (string, bool, error) { return "", true, nil }
func (NoopLedger) Complete(context.Context, string, string) error     { return nil }
func (NoopLedger) Release(context.Context, string) error              { return nil }
