// Package feed consumes the upstream collector API: race enumeration,
// program sheets, current odds, and results with payoff tables. All
// translation from the weakly typed wire forms into domain types happens
// at this boundary.
package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// RaceEntry is one enumerated race for an operating day
type RaceEntry struct {
	StadiumCode string
	RaceNumber  int
	Title       string
	DeadlineAt  *time.Time
}

// Feed is the read-only contract against the collector API. Every call is
// idempotent and cache-friendly on the upstream side.
type Feed interface {
	// EnumerateRaces lists the races scheduled for the given civil day
	EnumerateRaces(ctx context.Context, day time.Time) ([]RaceEntry, error)
	// FetchProgram returns the six-entry sheet for a race
	FetchProgram(ctx context.Context, key models.RaceKey) (models.Program, error)
	// FetchOdds returns the current combination→odds mapping for a family.
	// Unpublished combinations are absent from the map.
	FetchOdds(ctx context.Context, key models.RaceKey, family models.BetFamily) (map[string]decimal.Decimal, error)
	// FetchResult returns the settled outcome, models.ErrNotFound while the
	// race has not been decided yet.
	FetchResult(ctx context.Context, key models.RaceKey) (*models.RaceResult, error)
}

// wire codes used by the collector API for bet families
var familyToWire = map[models.BetFamily]string{
	models.BetFamilyWin:      "win",
	models.BetFamilyPlace:    "fuku",
	models.BetFamilyQuinella: "2f",
	models.BetFamilyExacta:   "2t",
	models.BetFamilyTrio:     "3f",
	models.BetFamilyTrifecta: "3t",
}

var wireToFamily = map[string]models.BetFamily{
	"win":  models.BetFamilyWin,
	"fuku": models.BetFamilyPlace,
	"2f":   models.BetFamilyQuinella,
	"2t":   models.BetFamilyExacta,
	"3f":   models.BetFamilyTrio,
	"3t":   models.BetFamilyTrifecta,
}

// WireCode returns the collector API code for a bet family
func WireCode(family models.BetFamily) (string, bool) {
	code, ok := familyToWire[family]
	return code, ok
}

// FamilyFromWire translates a collector API code into a bet family
func FamilyFromWire(code string) (models.BetFamily, bool) {
	family, ok := wireToFamily[code]
	return family, ok
}
