package rediscache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const pending = "pending"

// Ledger records create requests by dedup key. A claimed key holds "pending"
// until the reservation id is stored; both expire after ttl.
type Ledger struct {
	kv  kv
	ttl time.Duration
}

func NewLedger(c *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{kv: client{c}, ttl: ttl}
}

func key(k string) string { return prefix + "dedup:" + k }

func (l *Ledger) Claim(ctx context.Context, k string) (string, bool, error) {
	for i := 0; i < 2; i++ {
		ok, err := l.kv.SetNX(ctx, key(k), pending, l.ttl)
		if err != nil {
			return "", false, err
		}
		if ok {
			return "", true, nil
		}
		v, found, err := l.kv.Get(ctx, key(k))
		if err != nil {
			return "", false, err
		}
		if found {
			if v == pending {
				return "", false, nil
			}
			return v, false, nil
		}
		// expired between SETNX and GET; try once more
	}
	return "", false, nil
}

func (l *Ledger) Complete(ctx context.Context, k, id string) error {
	return l.kv.Set(ctx, key(k), id, l.ttl)
}

func (l *Ledger) Release(ctx context.Context, k string) error {
	return l.kv.Del(ctx, key(k))
}
