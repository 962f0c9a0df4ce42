package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/tablesched/internal/application/usecases"
	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/schedule"
	"github.com/example/tablesched/internal/infrastructure/airtable"
	"github.com/example/tablesched/internal/infrastructure/config"
	"github.com/example/tablesched/internal/infrastructure/logging"
	"github.com/example/tablesched/internal/infrastructure/postgres"
	"github.com/example/tablesched/internal/infrastructure/rediscache"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	repo    reservation.Repository
	svc     *usecases.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

func newApp(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	var hours schedule.Source
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		d, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, d.Close)
		if err := d.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(ctx, d); err != nil {
				a.Close()
				return nil, err
			}
		}
		a.repo = postgres.NewStore(d, cfg.StoreTimeout())
		hours = postgres.NewHours(d, cfg.StoreTimeout())
	default:
		c := airtable.New(airtable.Options{
			APIURL:        cfg.AirtableAPIURL,
			Token:         cfg.AirtableToken,
			BaseID:        cfg.AirtableBaseID,
			Timeout:       cfg.StoreTimeout(),
			ReadRetries:   cfg.StoreReadRetries,
			RatePerSecond: cfg.StoreRatePerSec,
			Log:           log.Named("airtable"),
		})
		t := airtable.Tables{
			Reservations:    cfg.ReservationsTable,
			Hours:           cfg.HoursTable,
			Exceptions:      cfg.ExceptionsTable,
			StatusConfirmed: cfg.StatusConfirmed,
			StatusCancelled: cfg.StatusCancelled,
		}
		a.repo = airtable.NewStore(c, t)
		hours = airtable.NewHours(c, t)
	}

	if cfg.ScheduleSource == config.ScheduleFromConfig {
		static, err := schedule.NewStatic(cfg.Schedule, cfg.Exceptions)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("schedule config: %w", err)
		}
		hours = static
	}

	var ledger usecases.Ledger = usecases.NoopLedger{}
	if cfg.RedisAddr != "" {
		rc, err := rediscache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, running without create de-duplication and schedule cache", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() { _ = rc.Close() })
			ledger = rediscache.NewLedger(rc, cfg.IdempotencyTTL())
			if cfg.ScheduleSource == config.ScheduleFromStore && cfg.ScheduleCacheTTL() > 0 {
				hours = rediscache.NewSchedule(hours, rc, cfg.ScheduleCacheTTL(), log.Named("schedule-cache"))
			}
		}
	}

	a.svc = &usecases.Service{
		Repo:        a.repo,
		Hours:       schedule.Resolver{Source: hours},
		Policy:      cfg.Policy(),
		Dedup:       ledger,
		Location:    cfg.Location,
		Log:         log.Named("reservations"),
		SuggestStep: cfg.SuggestionStepMin,
	}
	return a, nil
}
