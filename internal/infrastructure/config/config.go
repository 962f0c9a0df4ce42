package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/tablesched/internal/domain/capacity"
	"github.com/example/tablesched/internal/domain/schedule"
)

const (
	BackendAirtable = "airtable"
	BackendPostgres = "postgres"

	ScheduleFromStore  = "store"
	ScheduleFromConfig = "config"
)

type Config struct {
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
	Env        string `mapstructure:"ENV"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	StoreBackend      string  `mapstructure:"STORE_BACKEND"`
	AirtableToken     string  `mapstructure:"AIRTABLE_TOKEN"`
	AirtableBaseID    string  `mapstructure:"AIRTABLE_BASE_ID"`
	AirtableAPIURL    string  `mapstructure:"AIRTABLE_API_URL"`
	ReservationsTable string  `mapstructure:"RESERVATIONS_TABLE"`
	HoursTable        string  `mapstructure:"HOURS_TABLE"`
	ExceptionsTable   string  `mapstructure:"EXCEPTIONS_TABLE"`
	StatusConfirmed   string  `mapstructure:"STATUS_CONFIRMED"`
	StatusCancelled   string  `mapstructure:"STATUS_CANCELLED"`
	StoreTimeoutSec   int     `mapstructure:"STORE_TIMEOUT_SECONDS"`
	StoreReadRetries  int     `mapstructure:"STORE_READ_RETRIES"`
	StoreRatePerSec   float64 `mapstructure:"STORE_RATE_PER_SECOND"`
	DatabaseURL       string  `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	MaxCapacity        int    `mapstructure:"MAX_CAPACITY"`
	SlotDurationMin    int    `mapstructure:"SLOT_DURATION_MINUTES"`
	Timezone           string `mapstructure:"TIMEZONE"`
	SuggestionStepMin  int    `mapstructure:"SUGGESTION_STEP_MINUTES"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	IdempotencyTTLMin  int    `mapstructure:"IDEMPOTENCY_TTL_MINUTES"`
	ScheduleCacheSec   int    `mapstructure:"SCHEDULE_CACHE_SECONDS"`
	ScheduleSource     string `mapstructure:"SCHEDULE_SOURCE"`
	MonitorIntervalSec int    `mapstructure:"MONITOR_INTERVAL_SECONDS"`

	// Proxies (IPs or CIDRs) whose X-Forwarded-For / X-Real-IP headers are
	// believed. Empty means the peer address is the client.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	// Only read with SCHEDULE_SOURCE=config.
	Schedule   map[string]schedule.DayHours `mapstructure:"schedule"`
	Exceptions []schedule.DateException     `mapstructure:"exceptions"`

	Location *time.Location `mapstructure:"-"`
}

// FromEnv loads config.yaml from . or ./config if present, then overlays the
// environment.
func FromEnv() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return Load(v)
}

// Load applies defaults and environment variables to v and validates the result.
func Load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.ScheduleSource = strings.ToLower(strings.TrimSpace(cfg.ScheduleSource))

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"LISTEN_ADDR":              ":10000",
		"ENV":                      "development",
		"LOG_LEVEL":                "info",
		"STORE_BACKEND":            BackendAirtable,
		"AIRTABLE_TOKEN":           "",
		"AIRTABLE_BASE_ID":         "",
		"AIRTABLE_API_URL":         "https://api.airtable.com/v0",
		"RESERVATIONS_TABLE":       "Reservations",
		"HOURS_TABLE":              "OpeningHours",
		"EXCEPTIONS_TABLE":         "Exceptions",
		"STATUS_CONFIRMED":         "bestätigt",
		"STATUS_CANCELLED":         "storniert",
		"STORE_TIMEOUT_SECONDS":    8,
		"STORE_READ_RETRIES":       2,
		"STORE_RATE_PER_SECOND":    5.0,
		"DATABASE_URL":             "",
		"REDIS_ADDR":               "",
		"REDIS_PASSWORD":           "",
		"REDIS_DB":                 0,
		"MAX_CAPACITY":             20,
		"SLOT_DURATION_MINUTES":    120,
		"TIMEZONE":                 "Europe/Berlin",
		"SUGGESTION_STEP_MINUTES":  15,
		"RATE_LIMIT_PER_MINUTE":    120,
		"IDEMPOTENCY_TTL_MINUTES":  30,
		"SCHEDULE_CACHE_SECONDS":   300,
		"SCHEDULE_SOURCE":          ScheduleFromStore,
		"MONITOR_INTERVAL_SECONDS": 60,
		"TRUSTED_PROXIES":          "",
	}
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendAirtable:
		if c.AirtableToken == "" || c.AirtableBaseID == "" {
			return fmt.Errorf("AIRTABLE_TOKEN and AIRTABLE_BASE_ID are required for the airtable backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.ScheduleSource != ScheduleFromStore && c.ScheduleSource != ScheduleFromConfig {
		return fmt.Errorf("unknown SCHEDULE_SOURCE %q", c.ScheduleSource)
	}
	if err := c.Policy().Validate(); err != nil {
		return err
	}
	if c.StoreTimeoutSec < 1 {
		return fmt.Errorf("invalid STORE_TIMEOUT_SECONDS")
	}
	if c.StoreReadRetries < 0 {
		return fmt.Errorf("invalid STORE_READ_RETRIES")
	}
	if c.StoreRatePerSec <= 0 {
		return fmt.Errorf("invalid STORE_RATE_PER_SECOND")
	}
	if c.MonitorIntervalSec < 1 {
		return fmt.Errorf("invalid MONITOR_INTERVAL_SECONDS")
	}
	// a zero TTL would leave pending claims in Redis forever
	if c.IdempotencyTTLMin < 1 {
		return fmt.Errorf("invalid IDEMPOTENCY_TTL_MINUTES (must be >= 1)")
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", p)
			}
		}
	}
	return nil
}

func (c Config) Policy() capacity.Policy {
	return capacity.Policy{MaxCapacity: c.MaxCapacity, SlotDuration: c.SlotDurationMin}
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func (c Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSec) * time.Second
}

func (c Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLMin) * time.Minute
}

func (c Config) ScheduleCacheTTL() time.Duration {
	return time.Duration(c.ScheduleCacheSec) * time.Second
}

func (c Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSec) * time.Second
}
