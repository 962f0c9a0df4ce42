package rediscache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/domain/timeline"
)

// Schedule caches a schedule.Source. Missing entries are cached as well;
// source errors are not.
type Schedule struct {
	src schedule.Source
	kv  kv
	ttl time.Duration
	log *zap.Logger
}

func NewSchedule(src schedule.Source, c *redis.Client, ttl time.Duration, log *zap.Logger) *Schedule {
	if log == nil {
		log = zap.NewNop()
	}
	return &Schedule{src: src, kv: client{c}, ttl: ttl, log: log}
}

type entry struct {
	Found  bool   `json:"found"`
	Open   int    `json:"open,omitempty"`
	Close  int    `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
	Reason string `json:"reason,omitempty"`
	Window bool   `json:"window,omitempty"`
}

func (s *Schedule) Weekly(ctx context.Context, day time.Weekday) (schedule.Window, bool, error) {
	k := prefix + "hours:weekly:" + strconv.Itoa(int(day))
	if e, ok := s.lookup(ctx, k); ok {
		return schedule.Window{Open: e.Open, Close: e.Close}, e.Found, nil
	}
	w, found, err := s.src.Weekly(ctx, day)
	if err != nil {
		return w, found, err
	}
	s.store(ctx, k, entry{Found: found, Open: w.Open, Close: w.Close})
	return w, found, nil
}

func (s *Schedule) Exception(ctx context.Context, date timeline.Date) (schedule.Exception, bool, error) {
	k := prefix + "hours:exception:" + date.String()
	if e, ok := s.lookup(ctx, k); ok {
		if !e.Found {
			return schedule.Exception{}, false, nil
		}
		ex := schedule.Exception{Date: date, Closed: e.Closed, Reason: e.Reason}
		if e.Window {
			ex.Window = &schedule.Window{Open: e.Open, Close: e.Close}
		}
		return ex, true, nil
	}
	ex, found, err := s.src.Exception(ctx, date)
	if err != nil {
		return ex, found, err
	}
	e := entry{Found: found, Closed: ex.Closed, Reason: ex.Reason}
	if ex.Window != nil {
		e.Window, e.Open, e.Close = true, ex.Window.Open, ex.Window.Close
	}
	s.store(ctx, k, e)
	return ex, found, nil
}

func (s *Schedule) lookup(ctx context.Context, k string) (entry, bool) {
	v, found, err := s.kv.Get(ctx, k)
	if err != nil {
		s.log.Warn("schedule cache read failed", zap.String("key", k), zap.Error(err))
		return entry{}, false
	}
	if !found {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal([]byte(v), &e); err != nil {
		return entry{}, false
	}
	return e, true
}

func (s *Schedule) store(ctx context.Context, k string, e entry) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, k, string(b), s.ttl); err != nil {
		s.log.Warn("schedule cache write failed", zap.String("key", k), zap.Error(err))
	}
}
