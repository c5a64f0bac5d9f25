package config

import (
	"fmt"
	"time"

	"github.com/united-manufacturing-hub/umh-utils/env"

	"github.com/KodyPay/kp-order-sync/internal/posdb"
)

// KodySettings is what the Kody API client needs.
type KodySettings struct {
	APIURL  string
	APIKey  string
	StoreID string
}

// WorkerSettings drives the three periodic workers.
type WorkerSettings struct {
	OrderPollInterval   time.Duration
	StatusPollInterval  time.Duration
	StatusLookback      time.Duration
	RetentionWindow     time.Duration
	MaintenanceInterval time.Duration
}

// Config is the immutable configuration value assembled once at startup and
// handed to each component at construction. Components never read the
// environment themselves.
type Config struct {
	Kody        KodySettings
	Pos         posdb.ConnectionSettings
	StateDBPath string
	Workers     WorkerSettings
}

// Load reads the configuration from environment variables. Missing required
// variables are returned as errors; the caller treats them as fatal.
func Load() (Config, error) {
	var cfg Config
	var err error

	if cfg.Kody.APIURL, err = env.GetAsString("KODY_API_URL", true, ""); err != nil {
		return cfg, err
	}
	if cfg.Kody.APIKey, err = env.GetAsString("KODY_API_KEY", true, ""); err != nil {
		return cfg, err
	}
	if cfg.Kody.StoreID, err = env.GetAsString("KODY_STORE_ID", true, ""); err != nil {
		return cfg, err
	}

	if cfg.Pos.Host, err = env.GetAsString("POSTGRES_HOST", false, "db"); err != nil {
		return cfg, err
	}
	if cfg.Pos.Port, err = env.GetAsInt("POSTGRES_PORT", false, 5432); err != nil {
		return cfg, err
	}
	if cfg.Pos.User, err = env.GetAsString("POSTGRES_USER", true, ""); err != nil {
		return cfg, err
	}
	if cfg.Pos.Password, err = env.GetAsString("POSTGRES_PASSWORD", true, ""); err != nil {
		return cfg, err
	}
	if cfg.Pos.Database, err = env.GetAsString("POSTGRES_DATABASE", true, ""); err != nil {
		return cfg, err
	}
	if cfg.Pos.SSLMode, err = env.GetAsString("POSTGRES_SSL_MODE", false, "require"); err != nil {
		return cfg, err
	}

	if cfg.StateDBPath, err = env.GetAsString("STATE_DB_PATH", false, "data/sync_state.db"); err != nil {
		return cfg, err
	}

	orderPollSeconds, err := env.GetAsInt("ORDER_POLL_INTERVAL_SECONDS", false, 30)
	if err != nil {
		return cfg, err
	}
	statusPollSeconds, err := env.GetAsInt("STATUS_POLL_INTERVAL_SECONDS", false, 120)
	if err != nil {
		return cfg, err
	}
	lookbackHours, err := env.GetAsInt("STATUS_LOOKBACK_HOURS", false, 24)
	if err != nil {
		return cfg, err
	}
	retentionDays, err := env.GetAsInt("STATE_RETENTION_DAYS", false, 90)
	if err != nil {
		return cfg, err
	}
	maintenanceHours, err := env.GetAsInt("STATE_MAINTENANCE_INTERVAL_HOURS", false, 24)
	if err != nil {
		return cfg, err
	}

	if orderPollSeconds <= 0 {
		return cfg, fmt.Errorf("ORDER_POLL_INTERVAL_SECONDS must be positive, got %d", orderPollSeconds)
	}
	if statusPollSeconds <= 0 {
		return cfg, fmt.Errorf("STATUS_POLL_INTERVAL_SECONDS must be positive, got %d", statusPollSeconds)
	}
	if lookbackHours <= 0 {
		return cfg, fmt.Errorf("STATUS_LOOKBACK_HOURS must be positive, got %d", lookbackHours)
	}
	if maintenanceHours <= 0 {
		return cfg, fmt.Errorf("STATE_MAINTENANCE_INTERVAL_HOURS must be positive, got %d", maintenanceHours)
	}

	cfg.Workers = WorkerSettings{
		OrderPollInterval:   time.Duration(orderPollSeconds) * time.Second,
		StatusPollInterval:  time.Duration(statusPollSeconds) * time.Second,
		StatusLookback:      time.Duration(lookbackHours) * time.Hour,
		RetentionWindow:     time.Duration(retentionDays) * 24 * time.Hour,
		MaintenanceInterval: time.Duration(maintenanceHours) * time.Hour,
	}
	return cfg, nil
}
