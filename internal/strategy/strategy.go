package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// Proposal is a confirmed bet intent produced by an evaluator
type Proposal struct {
	BetFamily   models.BetFamily
	Combination string
	Stake       int64
	FinalOdds   decimal.Decimal
	Reason      models.DecisionReason
}

// GateResult is the outcome of the odds-free precondition check run at
// planning time. On pass it names the family and combination the pending
// wager is planned with; auto-family strategies plan with their primary
// family and may rewrite it at decision time.
type GateResult struct {
	Pass         bool
	BetFamily    models.BetFamily
	Combination  string
	PlannedStake int64
	SkipTag      string
}

// Evaluator is one configured betting strategy. Gate and Evaluate are pure:
// the same inputs always produce the same output, with no clock or RNG.
type Evaluator interface {
	Name() string
	Kind() models.StrategyKind
	// Families lists the bet families the sampler must collect for this
	// strategy's races.
	Families() []models.BetFamily
	// Gate runs the cheap odds-free preconditions (venue, race number,
	// program rates).
	Gate(race *models.Race, program models.Program) GateResult
	// Evaluate produces a Proposal from the odds snapshot, or nil plus a
	// skip reason.
	Evaluate(race *models.Race, program models.Program, snapshot *models.OddsSnapshot) (*Proposal, models.DecisionReason)
}

func gateFail(tag string) GateResult {
	return GateResult{Pass: false, SkipTag: tag}
}

func skip(tag string) models.DecisionReason {
	return models.DecisionReason{"reason": tag}
}

// GateFailReason renders the audit form of a failed gate, "gate_fail:<tag>"
func GateFailReason(tag string) string {
	return models.ReasonGateFail + ":" + tag
}

// gate fail tags persisted as "gate_fail:<tag>"
const (
	GateTagVenue         = "venue"
	GateTagRaceNo        = "race_no"
	GateTagLocalRateLow  = "local_rate_low"
	GateTagLocalRateHigh = "local_rate_high"
	GateTagNoProgram     = "no_program"
	GateTagCell          = "cell"
)

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}

// rateInWindow checks boat 1's local win rate against [min, max]. A missing
// program or rate fails closed.
func rateInWindow(program models.Program, min, max decimal.Decimal) (GateResult, bool) {
	entry := program.Entry(1)
	if entry == nil || entry.LocalWinRate == nil {
		return gateFail(GateTagNoProgram), false
	}
	rate := *entry.LocalWinRate
	if rate.LessThan(min) {
		return gateFail(GateTagLocalRateLow), false
	}
	if rate.GreaterThan(max) {
		return gateFail(GateTagLocalRateHigh), false
	}
	return GateResult{}, true
}
