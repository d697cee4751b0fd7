// Package config provides configuration management for the kyotei-bot application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "KYOTEI_BOT"

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields; a missing config file is not an error.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kyotei-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.operating_timezone", "Asia/Tokyo")

	v.SetDefault("feed.http_timeout_seconds", 30)
	v.SetDefault("feed.http_retries", 2)
	v.SetDefault("feed.rate_limit_per_second", 5.0)
	v.SetDefault("feed.cache_ttl_seconds", 60)

	v.SetDefault("betting.plan_cron", "0 8 * * *")
	v.SetDefault("betting.decision_window_seconds", 90)
	v.SetDefault("betting.decision_period_seconds", 10)
	v.SetDefault("betting.reconcile_period_seconds", 60)
	v.SetDefault("betting.min_stake", 100)
	v.SetDefault("betting.max_stake", 10000)
	v.SetDefault("betting.stake_tick", 100)
	v.SetDefault("betting.initial_fund_balance", 100000)

	v.SetDefault("sampler.background_period_seconds", 600)
	v.SetDefault("sampler.background_window_minutes", 120)
	v.SetDefault("sampler.imminent_period_seconds", 10)
	v.SetDefault("sampler.imminent_window_minutes", 5)
	v.SetDefault("sampler.deadline_epsilon_seconds", 5)
	v.SetDefault("sampler.bet_families", []string{"win", "quinella", "exacta"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.port", "8080")
}
