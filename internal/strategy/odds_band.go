package strategy

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// OddsBandParams configures an odds-band strategy: the gate watches one
// boat's win odds and fires only inside [min_odds, max_odds]. The bet leg
// defaults to that boat's win but may target any family, so "boat 1 win odds
// at least 10 → bet exacta 1-3" is a single parameter set.
type OddsBandParams struct {
	VenueWhitelist  []string `json:"venue_whitelist"`
	RaceNoWhitelist []int    `json:"race_no_whitelist"`
	Boat            int      `json:"boat"`
	MinOdds         float64  `json:"min_odds"`
	MaxOdds         float64  `json:"max_odds"`
	BetFamily       string   `json:"bet_family"`
	Combination     string   `json:"combination"`
	BaseStake       int64    `json:"base_stake"`
}

// OddsBand bets when one boat's win odds fall inside a configured band
type OddsBand struct {
	name    string
	params  OddsBandParams
	bet     comboBet
	minOdds decimal.Decimal
	maxOdds decimal.Decimal
}

// NewOddsBand builds the evaluator from a stored strategy row
func NewOddsBand(s *models.Strategy, limits StakeLimits) (*OddsBand, error) {
	var params OddsBandParams
	if err := decodeParams(s.Parameters, &params); err != nil {
		return nil, err
	}
	if params.Boat < 1 || params.Boat > 6 {
		params.Boat = 1
	}

	family := params.BetFamily
	combination := params.Combination
	if family == "" {
		family = string(models.BetFamilyWin)
	}
	if combination == "" {
		combination = strconv.Itoa(params.Boat)
	}

	// the band gates the watched win odds, not the bet leg
	bet, err := newComboBet(family, combination, 0, 0, params.BaseStake, limits)
	if err != nil {
		return nil, err
	}
	return &OddsBand{
		name:    s.Name,
		params:  params,
		bet:     bet,
		minOdds: decimal.NewFromFloat(params.MinOdds),
		maxOdds: decimal.NewFromFloat(params.MaxOdds),
	}, nil
}

func (o *OddsBand) Name() string              { return o.name }
func (o *OddsBand) Kind() models.StrategyKind { return models.StrategyKindOddsBand }

func (o *OddsBand) Families() []models.BetFamily {
	families := []models.BetFamily{models.BetFamilyWin}
	for _, f := range o.bet.families() {
		if f != models.BetFamilyWin {
			families = append(families, f)
		}
	}
	return families
}

func (o *OddsBand) Gate(race *models.Race, program models.Program) GateResult {
	if len(o.params.VenueWhitelist) > 0 && !containsString(o.params.VenueWhitelist, race.StadiumCode) {
		return o.bet.fail(GateTagVenue)
	}
	if len(o.params.RaceNoWhitelist) > 0 && !containsInt(o.params.RaceNoWhitelist, race.RaceNumber) {
		return o.bet.fail(GateTagRaceNo)
	}
	return GateResult{
		Pass:         true,
		BetFamily:    o.bet.plannedFamily(),
		Combination:  o.bet.plannedCombination(),
		PlannedStake: o.bet.plannedStake(),
	}
}

func (o *OddsBand) Evaluate(race *models.Race, program models.Program, snapshot *models.OddsSnapshot) (*Proposal, models.DecisionReason) {
	if gate := o.Gate(race, program); !gate.Pass {
		return nil, skip(GateFailReason(gate.SkipTag))
	}

	watched := strconv.Itoa(o.params.Boat)
	winOdds, ok := snapshot.Value(models.BetFamilyWin, watched)
	if !ok {
		return nil, skip(models.ReasonNoOdds)
	}
	if !o.minOdds.IsZero() && winOdds.LessThan(o.minOdds) {
		return nil, skip(models.ReasonOddsBelowMin).Tag("win_odds", winOdds.String())
	}
	if !o.maxOdds.IsZero() && winOdds.GreaterThan(o.maxOdds) {
		return nil, skip(models.ReasonOddsAboveMax).Tag("win_odds", winOdds.String())
	}

	proposal, reason := o.bet.propose(o.name, snapshot)
	if proposal != nil {
		proposal.Reason.Tag("win_odds", winOdds.String())
	}
	return proposal, reason
}
