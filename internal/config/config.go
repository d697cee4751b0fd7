// Package config provides configuration management for the kyotei-bot application.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Feed       FeedConfig       `mapstructure:"feed" validate:"required"`
	Betting    BettingConfig    `mapstructure:"betting" validate:"required"`
	Sampler    SamplerConfig    `mapstructure:"sampler" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Health     HealthConfig     `mapstructure:"health"`
	Strategies []StrategyConfig `mapstructure:"strategies" validate:"dive"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name              string `mapstructure:"name" validate:"required"`
	Environment       string `mapstructure:"environment" validate:"required,environment"`
	LogLevel          string `mapstructure:"log_level" validate:"required,loglevel"`
	OperatingTimezone string `mapstructure:"operating_timezone" validate:"required,operatingtz"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// FeedConfig represents the upstream collector API configuration
type FeedConfig struct {
	BaseURL            string  `mapstructure:"base_url" validate:"required,url"`
	HTTPTimeoutSeconds int     `mapstructure:"http_timeout_seconds" validate:"required,gt=0"`
	HTTPRetries        int     `mapstructure:"http_retries" validate:"gte=0"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// BettingConfig represents the decision engine tunables
type BettingConfig struct {
	PlanCron               string `mapstructure:"plan_cron" validate:"required"`
	DecisionWindowSeconds  int   `mapstructure:"decision_window_seconds" validate:"required,gt=0"`
	DecisionPeriodSeconds  int   `mapstructure:"decision_period_seconds" validate:"required,gt=0"`
	ReconcilePeriodSeconds int   `mapstructure:"reconcile_period_seconds" validate:"required,gt=0"`
	MinStake               int64 `mapstructure:"min_stake" validate:"required,gt=0"`
	MaxStake               int64 `mapstructure:"max_stake" validate:"required,gt=0"`
	StakeTick              int64 `mapstructure:"stake_tick" validate:"required,gt=0"`
	InitialFundBalance     int64 `mapstructure:"initial_fund_balance" validate:"required,gt=0"`
}

// SamplerConfig represents the odds sampling cadences
type SamplerConfig struct {
	BackgroundPeriodSeconds int      `mapstructure:"background_period_seconds" validate:"required,gt=0"`
	BackgroundWindowMinutes int      `mapstructure:"background_window_minutes" validate:"required,gt=0"`
	ImminentPeriodSeconds   int      `mapstructure:"imminent_period_seconds" validate:"required,gt=0"`
	ImminentWindowMinutes   int      `mapstructure:"imminent_window_minutes" validate:"required,gt=0"`
	DeadlineEpsilonSeconds  int      `mapstructure:"deadline_epsilon_seconds" validate:"gte=0"`
	BetFamilies             []string `mapstructure:"bet_families" validate:"required,min=1,betfamilies"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health endpoint of the scheduler daemon
type HealthConfig struct {
	Port string `mapstructure:"port"`
}

// StrategyConfig declares one strategy to seed and enable. Params carries
// the kind-specific parameter dictionary verbatim.
type StrategyConfig struct {
	Name    string         `mapstructure:"name" validate:"required"`
	Kind    string         `mapstructure:"kind" validate:"required,oneof=fixed_combo venue_table odds_band"`
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params" validate:"required"`
}

// ParamsJSON renders the parameter dictionary as JSON for storage
func (s *StrategyConfig) ParamsJSON() (json.RawMessage, error) {
	b, err := json.Marshal(s.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params for strategy %q: %w", s.Name, err)
	}
	return b, nil
}

// DecisionWindow returns the decision window as a duration
func (c *BettingConfig) DecisionWindow() time.Duration {
	return time.Duration(c.DecisionWindowSeconds) * time.Second
}

// BackgroundWindow returns T_window as a duration
func (c *SamplerConfig) BackgroundWindow() time.Duration {
	return time.Duration(c.BackgroundWindowMinutes) * time.Minute
}

// ImminentWindow returns T_imm as a duration
func (c *SamplerConfig) ImminentWindow() time.Duration {
	return time.Duration(c.ImminentWindowMinutes) * time.Minute
}

// DeadlineEpsilon returns the sampling cutoff before the deadline
func (c *SamplerConfig) DeadlineEpsilon() time.Duration {
	return time.Duration(c.DeadlineEpsilonSeconds) * time.Second
}

// HTTPTimeout returns the outbound request timeout
func (c *FeedConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
