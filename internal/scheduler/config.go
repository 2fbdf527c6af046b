package scheduler

import (
	"time"

	appconfig "github.com/renolink/renolink/internal/config"
)

// Config controls the sync loop interval and per-run timeout.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	Timezone    string
	Enabled     bool
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  10 * time.Minute,
		Timezone:    "Asia/Tokyo",
		Enabled:     true,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	return c
}

// ProvideConfig maps the application sync settings onto the scheduler.
func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval: cfg.Sync.Interval,
		Timezone:    cfg.Sync.Timezone,
		Enabled:     cfg.Sync.Enabled,
	}.withDefaults()
}
