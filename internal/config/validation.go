// Package config provides configuration management for the kyotei-bot application.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("operatingtz", validateTimezone)
	_ = v.RegisterValidation("betfamilies", validateBetFamilies)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateTimezone checks the operating zone is loadable
func validateTimezone(fl validator.FieldLevel) bool {
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// validateBetFamilies checks every configured family is a known one
func validateBetFamilies(fl validator.FieldLevel) bool {
	families, ok := fl.Field().Interface().([]string)
	if !ok || len(families) == 0 {
		return false
	}
	for _, f := range families {
		if !models.BetFamily(f).Valid() {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Betting.MinStake > cfg.Betting.MaxStake {
		return fmt.Errorf("min_stake cannot exceed max_stake")
	}
	if cfg.Betting.MinStake%cfg.Betting.StakeTick != 0 {
		return fmt.Errorf("min_stake must be a multiple of stake_tick")
	}

	// The decision scan must run several times inside the decision window,
	// otherwise a single missed tick forfeits the race.
	if cfg.Betting.DecisionPeriodSeconds*3 > cfg.Betting.DecisionWindowSeconds {
		return fmt.Errorf("decision_period_seconds must be at most a third of decision_window_seconds")
	}

	if cfg.Sampler.ImminentWindowMinutes > cfg.Sampler.BackgroundWindowMinutes {
		return fmt.Errorf("imminent window cannot exceed background window")
	}

	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	names := make(map[string]bool, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		if names[s.Name] {
			return fmt.Errorf("duplicate strategy name %q", s.Name)
		}
		names[s.Name] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "operatingtz":
			errMsg += fmt.Sprintf("- Field '%s' must be a loadable IANA timezone, got '%v'\n", field, value)
		case "betfamilies":
			errMsg += fmt.Sprintf("- Field '%s' contains an unknown bet family\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
