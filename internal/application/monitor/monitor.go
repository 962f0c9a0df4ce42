package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger checks a dependency; usecases.PingStore satisfies it.
type Pinger interface {
	Execute(ctx context.Context) error
}

type Status struct {
	OK        bool
	Error     string
	CheckedAt time.Time
}

// Monitor probes the record store on a ticker and keeps the last result.
type Monitor struct {
	Store    Pinger
	Interval time.Duration
	Timeout  time.Duration
	Log      *zap.Logger
	Now      func() time.Time

	mu   sync.RWMutex
	last Status
}

func (m *Monitor) Run(ctx context.Context) error {
	t := time.NewTicker(m.Interval)
	defer t.Stop()

	// kick immediately
	m.Probe(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			m.Probe(ctx)
		}
	}
}

// Probe runs one check and records it.
func (m *Monitor) Probe(ctx context.Context) Status {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	st := Status{OK: true, CheckedAt: m.now()}
	if err := m.Store.Execute(pctx); err != nil {
		st.OK, st.Error = false, err.Error()
	}

	m.mu.Lock()
	prev := m.last
	m.last = st
	m.mu.Unlock()

	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}
	switch {
	case !st.OK && (prev.OK || prev.CheckedAt.IsZero()):
		log.Error("record store unreachable", zap.String("error", st.Error))
	case st.OK && !prev.OK && !prev.CheckedAt.IsZero():
		log.Info("record store reachable again")
	}
	return st
}

// Last returns the most recent probe; CheckedAt is zero before the first one.
func (m *Monitor) Last() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}
