package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// SimulatedBet is one replayed wager with its simulated settlement
type SimulatedBet struct {
	models.RaceKey
	BetFamily   models.BetFamily
	Combination string
	Stake       int64
	FinalOdds   decimal.Decimal
	Hit         bool
	Payout      int64
}

// Profit returns payout minus stake for the single bet
func (b SimulatedBet) Profit() int64 {
	return b.Payout - b.Stake
}

// DayResult aggregates one operating day of the replay
type DayResult struct {
	Day    time.Time
	Bets   int
	Hits   int
	Staked int64
	Payout int64
}

// Report accumulates the replay outcome. Balance and drawdown follow the
// live fund accounting: the balance moves only when a bet settles.
type Report struct {
	StrategyName   string
	InitialBalance int64
	Balance        int64
	PeakBalance    int64
	MaxDrawdown    int64

	Bets          int
	Hits          int
	TotalStaked   int64
	TotalPayout   int64
	GateFailed    int
	SkippedAtOdds int
	NoOdds        int
	Unresolved    int
	Canceled      int

	Days      []*DayResult
	dayIndex  map[time.Time]*DayResult
	BetLog    []SimulatedBet
}

// NewReport initializes an empty replay report
func NewReport(strategyName string, initialBalance int64) *Report {
	return &Report{
		StrategyName:   strategyName,
		InitialBalance: initialBalance,
		Balance:        initialBalance,
		PeakBalance:    initialBalance,
		dayIndex:       make(map[time.Time]*DayResult),
	}
}

// Record books one simulated bet into the running totals
func (r *Report) Record(day time.Time, bet SimulatedBet) {
	r.Bets++
	r.TotalStaked += bet.Stake
	r.TotalPayout += bet.Payout
	if bet.Hit {
		r.Hits++
	}

	r.Balance += bet.Profit()
	if r.Balance > r.PeakBalance {
		r.PeakBalance = r.Balance
	}
	if dd := r.PeakBalance - r.Balance; dd > r.MaxDrawdown {
		r.MaxDrawdown = dd
	}

	key := clock.OperatingDay(day)
	dr, ok := r.dayIndex[key]
	if !ok {
		dr = &DayResult{Day: key}
		r.dayIndex[key] = dr
		r.Days = append(r.Days, dr)
	}
	dr.Bets++
	dr.Staked += bet.Stake
	dr.Payout += bet.Payout
	if bet.Hit {
		dr.Hits++
	}

	r.BetLog = append(r.BetLog, bet)
}

// Profit returns total payout minus total staked
func (r *Report) Profit() int64 {
	return r.TotalPayout - r.TotalStaked
}

// HitRate returns hits/bets in percent, 0 when no bets were placed. Percent
// form matches models.FundAccount.
func (r *Report) HitRate() float64 {
	if r.Bets == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Bets) * 100
}

// ROI returns profit over total staked in percent, 0 when nothing was staked
func (r *Report) ROI() float64 {
	if r.TotalStaked == 0 {
		return 0
	}
	return float64(r.Profit()) / float64(r.TotalStaked) * 100
}
