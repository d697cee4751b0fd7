package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// FamilyAuto lets a strategy defer the exacta/quinella choice to decision
// time: the family with the higher implied odds for the combination wins.
const FamilyAuto = "auto"

// comboBet is the shared bet leg of the combination strategies: a configured
// family (possibly auto), a combination, an optional odds band and the base
// stake.
type comboBet struct {
	family      string
	combination string
	minOdds     decimal.Decimal
	maxOdds     decimal.Decimal
	baseStake   int64
	limits      StakeLimits
}

func newComboBet(family, combination string, minOdds, maxOdds float64, baseStake int64, limits StakeLimits) (comboBet, error) {
	b := comboBet{
		family:      family,
		combination: combination,
		minOdds:     decimal.NewFromFloat(minOdds),
		maxOdds:     decimal.NewFromFloat(maxOdds),
		baseStake:   baseStake,
		limits:      limits,
	}
	if b.baseStake <= 0 {
		b.baseStake = limits.MinStake
	}

	if family == FamilyAuto {
		// auto resolves between exacta and quinella, so the combination
		// must parse as both
		if _, err := models.ParseCombination(models.BetFamilyExacta, combination); err != nil {
			return b, err
		}
		if _, err := models.ParseCombination(models.BetFamilyQuinella, combination); err != nil {
			return b, err
		}
		return b, nil
	}

	f := models.BetFamily(family)
	if !f.Valid() {
		return b, fmt.Errorf("%w: %q", models.ErrUnknownBetFamily, family)
	}
	if _, err := models.ParseCombination(f, combination); err != nil {
		return b, err
	}
	return b, nil
}

// fail reports a failed gate together with the bet the strategy would have
// planned, so the skipped audit row stays a well-formed wager.
func (b comboBet) fail(tag string) GateResult {
	return GateResult{
		SkipTag:      tag,
		BetFamily:    b.plannedFamily(),
		Combination:  b.plannedCombination(),
		PlannedStake: b.plannedStake(),
	}
}

// plannedFamily is the family the pending wager row is created with. Auto
// plans as exacta and may be rewritten on confirmation.
func (b comboBet) plannedFamily() models.BetFamily {
	if b.family == FamilyAuto {
		return models.BetFamilyExacta
	}
	return models.BetFamily(b.family)
}

func (b comboBet) plannedStake() int64 {
	return b.limits.Apply(b.baseStake)
}

func (b comboBet) plannedCombination() string {
	c, err := models.ParseCombination(b.plannedFamily(), b.combination)
	if err != nil {
		return b.combination
	}
	return c.String()
}

// families lists the families whose odds this bet needs sampled
func (b comboBet) families() []models.BetFamily {
	if b.family == FamilyAuto {
		return []models.BetFamily{models.BetFamilyExacta, models.BetFamilyQuinella}
	}
	return []models.BetFamily{models.BetFamily(b.family)}
}

// resolve picks the concrete family, canonical combination and latest odds
// from the snapshot. ok is false when no usable odds exist yet.
func (b comboBet) resolve(snapshot *models.OddsSnapshot) (models.BetFamily, string, decimal.Decimal, bool) {
	if b.family != FamilyAuto {
		f := models.BetFamily(b.family)
		c, _ := models.ParseCombination(f, b.combination)
		odds, ok := snapshot.Value(f, c.String())
		return f, c.String(), odds, ok
	}

	ex, _ := models.ParseCombination(models.BetFamilyExacta, b.combination)
	qu, _ := models.ParseCombination(models.BetFamilyQuinella, b.combination)
	exOdds, exOK := snapshot.Value(models.BetFamilyExacta, ex.String())
	quOdds, quOK := snapshot.Value(models.BetFamilyQuinella, qu.String())

	switch {
	case exOK && quOK:
		// tie goes to exacta
		if quOdds.GreaterThan(exOdds) {
			return models.BetFamilyQuinella, qu.String(), quOdds, true
		}
		return models.BetFamilyExacta, ex.String(), exOdds, true
	case exOK:
		return models.BetFamilyExacta, ex.String(), exOdds, true
	case quOK:
		return models.BetFamilyQuinella, qu.String(), quOdds, true
	}
	return b.plannedFamily(), b.combination, decimal.Zero, false
}

// propose runs the odds band check and builds the proposal
func (b comboBet) propose(name string, snapshot *models.OddsSnapshot) (*Proposal, models.DecisionReason) {
	family, combination, odds, ok := b.resolve(snapshot)
	if !ok {
		return nil, skip(models.ReasonNoOdds)
	}
	if !b.minOdds.IsZero() && odds.LessThan(b.minOdds) {
		return nil, skip(models.ReasonOddsBelowMin).Tag("odds", odds.String())
	}
	if !b.maxOdds.IsZero() && odds.GreaterThan(b.maxOdds) {
		return nil, skip(models.ReasonOddsAboveMax).Tag("odds", odds.String())
	}

	return &Proposal{
		BetFamily:   family,
		Combination: combination,
		Stake:       b.limits.Apply(b.baseStake),
		FinalOdds:   odds,
		Reason: models.DecisionReason{
			"reason":   models.ReasonPlanned,
			"strategy": name,
			"odds":     odds.String(),
		},
	}, nil
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("strategy parameters are empty")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode strategy parameters: %w", err)
	}
	return nil
}
