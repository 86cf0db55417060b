// Package config loads server settings from the environment and the optional balance file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the tunables of one server process.
type Config struct {
	Addr        string `env:"WELLBUILDER_ADDR" envDefault:":8080"`
	DBPath      string `env:"WELLBUILDER_DB_PATH" envDefault:"data/wellbuilder.db"`
	SaveKey     string `env:"WELLBUILDER_SAVE_KEY" envDefault:"wellBuilderSave"`
	BalanceFile string `env:"WELLBUILDER_BALANCE_FILE"`
	LogLevel    string `env:"WELLBUILDER_LOG_LEVEL" envDefault:"info"`
	Profile     string `env:"WELLBUILDER_PROFILE"` // default, stress, low; overrides the buffer settings below

	// Scheduled tasks
	TickRate time.Duration `env:"WELLBUILDER_TICK_RATE" envDefault:"1s"`
	SaveRate time.Duration `env:"WELLBUILDER_SAVE_RATE" envDefault:"5s"`

	// Buffers and pools
	EventLogCapacity  int           `env:"WELLBUILDER_EVENT_LOG_CAPACITY" envDefault:"1024"`
	ClientSendBuffer  int           `env:"WELLBUILDER_CLIENT_SEND_BUFFER" envDefault:"256"`
	ActionMinInterval time.Duration `env:"WELLBUILDER_ACTION_MIN_INTERVAL" envDefault:"25ms"`
	DBMaxOpenConns    int           `env:"WELLBUILDER_DB_MAX_OPEN_CONNS" envDefault:"1"`
}

// Load parses the environment into a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SaveKey == "" {
		errs = append(errs, errors.New("save key must not be empty"))
	}
	if c.TickRate <= 0 {
		errs = append(errs, errors.New("tick rate must be positive"))
	}
	if c.SaveRate <= 0 {
		errs = append(errs, errors.New("save rate must be positive"))
	}
	if c.EventLogCapacity <= 0 {
		errs = append(errs, errors.New("event log capacity must be positive"))
	}
	if c.ClientSendBuffer <= 0 {
		errs = append(errs, errors.New("client send buffer must be positive"))
	}
	if c.ActionMinInterval < 0 {
		errs = append(errs, errors.New("action min interval must not be negative"))
	}
	if c.DBMaxOpenConns <= 0 {
		errs = append(errs, errors.New("db max open conns must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
