package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// TableCell is one enabled (venue, race number) pair
type TableCell struct {
	Venue  string `json:"venue"`
	RaceNo int    `json:"race_no"`
}

// VenueTableParams configures a tabular strategy: the bet fires only in the
// enabled venue×race cells, behind the same rate window as FixedCombo.
type VenueTableParams struct {
	Cells        []TableCell `json:"cells"`
	MinLocalRate float64     `json:"min_local_rate"`
	MaxLocalRate float64     `json:"max_local_rate"`
	BetFamily    string      `json:"bet_family"`
	Combination  string      `json:"combination"`
	MinOdds      float64     `json:"min_odds"`
	MaxOdds      float64     `json:"max_odds"`
	BaseStake    int64       `json:"base_stake"`
}

// VenueTable bets a fixed combination in an explicit table of venue×race
// cells.
type VenueTable struct {
	name    string
	cells   map[TableCell]bool
	bet     comboBet
	minRate decimal.Decimal
	maxRate decimal.Decimal
}

// NewVenueTable builds the evaluator from a stored strategy row
func NewVenueTable(s *models.Strategy, limits StakeLimits) (*VenueTable, error) {
	var params VenueTableParams
	if err := decodeParams(s.Parameters, &params); err != nil {
		return nil, err
	}
	bet, err := newComboBet(params.BetFamily, params.Combination,
		params.MinOdds, params.MaxOdds, params.BaseStake, limits)
	if err != nil {
		return nil, err
	}
	cells := make(map[TableCell]bool, len(params.Cells))
	for _, c := range params.Cells {
		cells[c] = true
	}
	return &VenueTable{
		name:    s.Name,
		cells:   cells,
		bet:     bet,
		minRate: decimal.NewFromFloat(params.MinLocalRate),
		maxRate: decimal.NewFromFloat(params.MaxLocalRate),
	}, nil
}

func (v *VenueTable) Name() string              { return v.name }
func (v *VenueTable) Kind() models.StrategyKind { return models.StrategyKindVenueTable }

func (v *VenueTable) Families() []models.BetFamily {
	return v.bet.families()
}

func (v *VenueTable) Gate(race *models.Race, program models.Program) GateResult {
	if !v.cells[TableCell{Venue: race.StadiumCode, RaceNo: race.RaceNumber}] {
		return v.bet.fail(GateTagCell)
	}
	if result, ok := rateInWindow(program, v.minRate, v.maxRate); !ok {
		return v.bet.fail(result.SkipTag)
	}
	return GateResult{
		Pass:         true,
		BetFamily:    v.bet.plannedFamily(),
		Combination:  v.bet.plannedCombination(),
		PlannedStake: v.bet.plannedStake(),
	}
}

func (v *VenueTable) Evaluate(race *models.Race, program models.Program, snapshot *models.OddsSnapshot) (*Proposal, models.DecisionReason) {
	if gate := v.Gate(race, program); !gate.Pass {
		return nil, skip(GateFailReason(gate.SkipTag))
	}
	return v.bet.propose(v.name, snapshot)
}
