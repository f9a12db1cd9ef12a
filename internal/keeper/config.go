package keeper

import (
	"time"

	"github.com/smallbiznis/relaypay/internal/config"
)

// Config controls the keeper cadence and batch size.
type Config struct {
	RunInterval time.Duration
	// Schedule, when set, is a cron expression that replaces RunInterval.
	Schedule   string
	BatchSize  int
	JobTimeout time.Duration
	LockKey    string
	LockTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   100,
		JobTimeout:  30 * time.Second,
		LockKey:     "relaypay:keeper:charge_due",
		LockTTL:     time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.KeeperInterval,
		Schedule:    cfg.KeeperSchedule,
		BatchSize:   cfg.KeeperBatchSize,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
