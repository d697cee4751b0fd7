package models

import (
	"time"

	"github.com/google/uuid"
)

// FundAccount is the running virtual fund for one strategy. Totals are
// derived from settled wagers but stored for O(1) reads; every mutation
// happens in the same transaction as the settlement it reflects.
type FundAccount struct {
	StrategyID     uuid.UUID `db:"strategy_id" json:"strategy_id"`
	InitialBalance int64     `db:"initial_balance" json:"initial_balance"`
	CurrentBalance int64     `db:"current_balance" json:"current_balance"`
	TotalBets      int64     `db:"total_bets" json:"total_bets"`
	TotalHits      int64     `db:"total_hits" json:"total_hits"`
	TotalStaked    int64     `db:"total_staked" json:"total_staked"`
	TotalReturned  int64     `db:"total_returned" json:"total_returned"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Profit returns the running profit against the initial balance
func (f *FundAccount) Profit() int64 {
	return f.CurrentBalance - f.InitialBalance
}

// HitRate returns hits/bets in percent, 0 when no bets settled yet
func (f *FundAccount) HitRate() float64 {
	if f.TotalBets == 0 {
		return 0
	}
	return float64(f.TotalHits) / float64(f.TotalBets) * 100
}

// ROI returns returned/staked in percent, 0 when nothing staked yet
func (f *FundAccount) ROI() float64 {
	if f.TotalStaked == 0 {
		return 0
	}
	return float64(f.TotalReturned) / float64(f.TotalStaked) * 100
}
