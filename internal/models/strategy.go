package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StrategyKind selects the evaluator shape a strategy is built from
type StrategyKind string

const (
	StrategyKindFixedCombo StrategyKind = "fixed_combo"
	StrategyKindVenueTable StrategyKind = "venue_table"
	StrategyKindOddsBand   StrategyKind = "odds_band"
)

// Strategy represents one configured betting strategy. Parameters carries
// the kind-specific tunables as JSON; new tabular strategies are data, not
// code paths.
type Strategy struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Name       string          `db:"name" json:"name" validate:"required,min=1,max=255"`
	Kind       StrategyKind    `db:"kind" json:"kind" validate:"required,oneof=fixed_combo venue_table odds_band"`
	Parameters json.RawMessage `db:"parameters" json:"parameters"`
	Enabled    bool            `db:"enabled" json:"enabled"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Validate performs basic validation on the strategy
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return ErrStrategyNameRequired
	}
	switch s.Kind {
	case StrategyKindFixedCombo, StrategyKindVenueTable, StrategyKindOddsBand:
		return nil
	}
	return ErrUnknownStrategyKind
}
