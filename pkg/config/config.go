// Package config loads the engine's enumerated configuration (spec.md §6)
// via viper, the way the teacher's process loads its runtime settings:
// defaults first, then an optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Bus holds the Event Bus's worker-pool shape (spec.md §4.1, §6).
type Bus struct {
	NumWorkers     int `mapstructure:"num_workers"`
	PriorityGroups int `mapstructure:"piority_groups"`
}

// Position holds the Smart Order Router and position-lifecycle knobs
// (spec.md §4.6, §6).
type Position struct {
	EntryTimeout           time.Duration `mapstructure:"entry_timeout"`
	StopLossThreshold      float64       `mapstructure:"stop_loss_threshold"`
	MaxOrderSlice          int           `mapstructure:"max_order_slice"`
	MaxOrderBreach         int           `mapstructure:"max_order_breach"`
	MaxOpenOrderAttempts   int           `mapstructure:"max_open_order_attempts"`
}

// Risk holds the risk actor's SL margin (spec.md §6).
type Risk struct {
	Buffer float64 `mapstructure:"buffer"`
}

// Exchange holds adapter-level retry/backoff knobs grounded in spec.md §6's
// fetch_ohlcv retry contract ("≤ 7 attempts, exponential backoff starting at
// 3s").
type Exchange struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	BaseBackoff  time.Duration `mapstructure:"base_backoff"`
	RateLimitRPS float64       `mapstructure:"rate_limit_rps"`
}

// Server holds the ambient HTTP/metrics surface the engine exposes
// alongside the trading core (status, health, prometheus).
type Server struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// Config is the engine's full runtime configuration.
type Config struct {
	LogLevel string   `mapstructure:"log_level"`
	Bus      Bus      `mapstructure:"bus"`
	Position Position `mapstructure:"position"`
	Risk     Risk     `mapstructure:"risk"`
	Exchange Exchange `mapstructure:"exchange"`
	Server   Server   `mapstructure:"server"`
}

// Default returns the configuration's built-in defaults, matching spec.md's
// named defaults (900s expiration lives on model.DefaultExpirationMs, not
// here, since it is a domain constant rather than an operator knob).
func Default() Config {
	return Config{
		LogLevel: "info",
		Bus: Bus{
			NumWorkers:     4,
			PriorityGroups: 3,
		},
		Position: Position{
			EntryTimeout:         3 * time.Second,
			StopLossThreshold:    0.5,
			MaxOrderSlice:        5,
			MaxOrderBreach:       3,
			MaxOpenOrderAttempts: 5,
		},
		Risk: Risk{
			Buffer: 0.001,
		},
		Exchange: Exchange{
			MaxRetries:   7,
			BaseBackoff:  3 * time.Second,
			RateLimitRPS: 10,
		},
		Server: Server{
			Host:        "0.0.0.0",
			Port:        8080,
			MetricsPort: 9090,
		},
	}
}

// Load reads configuration from (in increasing precedence): built-in
// defaults, an optional YAML file at path (skipped silently if empty or
// missing), and ENGINE_-prefixed environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("bus.num_workers", d.Bus.NumWorkers)
	v.SetDefault("bus.piority_groups", d.Bus.PriorityGroups)
	v.SetDefault("position.entry_timeout", d.Position.EntryTimeout)
	v.SetDefault("position.stop_loss_threshold", d.Position.StopLossThreshold)
	v.SetDefault("position.max_order_slice", d.Position.MaxOrderSlice)
	v.SetDefault("position.max_order_breach", d.Position.MaxOrderBreach)
	v.SetDefault("position.max_open_order_attempts", d.Position.MaxOpenOrderAttempts)
	v.SetDefault("risk.buffer", d.Risk.Buffer)
	v.SetDefault("exchange.max_retries", d.Exchange.MaxRetries)
	v.SetDefault("exchange.base_backoff", d.Exchange.BaseBackoff)
	v.SetDefault("exchange.rate_limit_rps", d.Exchange.RateLimitRPS)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.metrics_port", d.Server.MetricsPort)
}
