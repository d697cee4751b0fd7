package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OddsSample is one observed odds value for a (race, family, combination).
// Append-only; Value is nil while the pool has not published a figure yet.
type OddsSample struct {
	RaceKey
	BetFamily         BetFamily        `db:"bet_family" json:"bet_family"`
	Combination       string           `db:"combination" json:"combination"`
	Value             *decimal.Decimal `db:"value" json:"value"`
	SampledAt         time.Time        `db:"sampled_at" json:"sampled_at"`
	MinutesToDeadline int              `db:"minutes_to_deadline" json:"minutes_to_deadline"`
}

// OddsSnapshot is the most recent odds per combination for the families a
// strategy asked for, assembled just before the decision point.
type OddsSnapshot struct {
	RaceKey
	TakenAt time.Time
	Values  map[BetFamily]map[string]decimal.Decimal
}

// Value returns the latest odds for a family+combination, false when the
// pool has not published it.
func (s *OddsSnapshot) Value(family BetFamily, combination string) (decimal.Decimal, bool) {
	if s == nil || s.Values == nil {
		return decimal.Zero, false
	}
	byCombo, ok := s.Values[family]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := byCombo[combination]
	if !ok || v.IsZero() {
		// zero odds means the pool hasn't opened; not a usable figure
		return decimal.Zero, false
	}
	return v, true
}

// Empty reports whether the snapshot carries no usable values at all
func (s *OddsSnapshot) Empty() bool {
	if s == nil {
		return true
	}
	for _, byCombo := range s.Values {
		for _, v := range byCombo {
			if !v.IsZero() {
				return false
			}
		}
	}
	return true
}
