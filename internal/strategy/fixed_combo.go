package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// FixedComboParams configures a fixed-combination strategy: one combination
// bet behind venue, race-number and boat-1 local-rate gates.
type FixedComboParams struct {
	VenueWhitelist  []string `json:"venue_whitelist"`
	RaceNoWhitelist []int    `json:"race_no_whitelist"`
	MinLocalRate    float64  `json:"min_local_rate"`
	MaxLocalRate    float64  `json:"max_local_rate"`
	BetFamily       string   `json:"bet_family"`
	Combination     string   `json:"combination"`
	MinOdds         float64  `json:"min_odds"`
	MaxOdds         float64  `json:"max_odds"`
	BaseStake       int64    `json:"base_stake"`
}

// FixedCombo bets a fixed combination when the race and boat 1's local win
// rate pass the configured gates.
type FixedCombo struct {
	name    string
	params  FixedComboParams
	bet     comboBet
	minRate decimal.Decimal
	maxRate decimal.Decimal
}

// NewFixedCombo builds the evaluator from a stored strategy row
func NewFixedCombo(s *models.Strategy, limits StakeLimits) (*FixedCombo, error) {
	var params FixedComboParams
	if err := decodeParams(s.Parameters, &params); err != nil {
		return nil, err
	}
	bet, err := newComboBet(params.BetFamily, params.Combination,
		params.MinOdds, params.MaxOdds, params.BaseStake, limits)
	if err != nil {
		return nil, err
	}
	return &FixedCombo{
		name:    s.Name,
		params:  params,
		bet:     bet,
		minRate: decimal.NewFromFloat(params.MinLocalRate),
		maxRate: decimal.NewFromFloat(params.MaxLocalRate),
	}, nil
}

func (f *FixedCombo) Name() string              { return f.name }
func (f *FixedCombo) Kind() models.StrategyKind { return models.StrategyKindFixedCombo }

func (f *FixedCombo) Families() []models.BetFamily {
	return f.bet.families()
}

func (f *FixedCombo) Gate(race *models.Race, program models.Program) GateResult {
	if len(f.params.VenueWhitelist) > 0 && !containsString(f.params.VenueWhitelist, race.StadiumCode) {
		return f.bet.fail(GateTagVenue)
	}
	if len(f.params.RaceNoWhitelist) > 0 && !containsInt(f.params.RaceNoWhitelist, race.RaceNumber) {
		return f.bet.fail(GateTagRaceNo)
	}
	if result, ok := rateInWindow(program, f.minRate, f.maxRate); !ok {
		return f.bet.fail(result.SkipTag)
	}
	return GateResult{
		Pass:         true,
		BetFamily:    f.bet.plannedFamily(),
		Combination:  f.bet.plannedCombination(),
		PlannedStake: f.bet.plannedStake(),
	}
}

func (f *FixedCombo) Evaluate(race *models.Race, program models.Program, snapshot *models.OddsSnapshot) (*Proposal, models.DecisionReason) {
	// the gate is re-checked so a program row that appeared after planning
	// cannot smuggle a bet past the rate window
	if gate := f.Gate(race, program); !gate.Pass {
		return nil, skip(GateFailReason(gate.SkipTag))
	}
	return f.bet.propose(f.name, snapshot)
}
