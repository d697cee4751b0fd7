package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WagerStatus represents the lifecycle status of a virtual wager
type WagerStatus string

const (
	WagerStatusPending   WagerStatus = "pending"
	WagerStatusConfirmed WagerStatus = "confirmed"
	WagerStatusWon       WagerStatus = "won"
	WagerStatusLost      WagerStatus = "lost"
	WagerStatusSkipped   WagerStatus = "skipped"
	WagerStatusCanceled  WagerStatus = "canceled"
)

// Terminal reports whether the status permits no further transition
func (s WagerStatus) Terminal() bool {
	switch s {
	case WagerStatusWon, WagerStatusLost, WagerStatusSkipped, WagerStatusCanceled:
		return true
	}
	return false
}

// legal transition edges of the wager state machine
var wagerTransitions = map[WagerStatus][]WagerStatus{
	WagerStatusPending:   {WagerStatusConfirmed, WagerStatusSkipped, WagerStatusCanceled},
	WagerStatusConfirmed: {WagerStatusWon, WagerStatusLost, WagerStatusCanceled},
}

// CanTransition reports whether from→to is a legal edge
func CanTransition(from, to WagerStatus) bool {
	for _, next := range wagerTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Skip reason tags written into decision_reason
const (
	ReasonPlanned         = "planned"
	ReasonGateFail        = "gate_fail"
	ReasonNoOdds          = "no_odds"
	ReasonOddsBelowMin    = "odds_below_min"
	ReasonOddsAboveMax    = "odds_above_max"
	ReasonRateOutOfRange  = "local_rate_out_of_range"
	ReasonDeadlineOverrun = "deadline_overrun"
	ReasonContractError   = "contract_error"
	ReasonAdminCancel     = "admin_cancel"
)

// DecisionReason is the free-form tag set persisted on a wager. It stays
// mutable while the wager is pending and is frozen on the first transition.
type DecisionReason map[string]string

// Tag sets a key and returns the map for chaining
func (r DecisionReason) Tag(key, value string) DecisionReason {
	r[key] = value
	return r
}

// JSON serializes the reason for storage; nil map marshals to null
func (r DecisionReason) JSON() json.RawMessage {
	if len(r) == 0 {
		return nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return b
}

// ParseDecisionReason deserializes a stored reason; nil input is an empty set
func ParseDecisionReason(raw json.RawMessage) DecisionReason {
	reason := DecisionReason{}
	if len(raw) == 0 {
		return reason
	}
	_ = json.Unmarshal(raw, &reason)
	return reason
}

// Wager represents one (strategy, race) decision in some lifecycle state
type Wager struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	StrategyID       uuid.UUID        `db:"strategy_id" json:"strategy_id" validate:"required"`
	RaceKey          `json:"race"`
	BetFamily        BetFamily        `db:"bet_family" json:"bet_family" validate:"required"`
	Combination      string           `db:"combination" json:"combination" validate:"required"`
	PlannedAmount    int64            `db:"planned_amount" json:"planned_amount" validate:"required,gt=0"`
	Status           WagerStatus      `db:"status" json:"status"`
	FinalOdds        *decimal.Decimal `db:"final_odds" json:"final_odds"`
	PlacedAmount     int64            `db:"placed_amount" json:"placed_amount"`
	PayoutAmount     int64            `db:"payout_amount" json:"payout_amount"`
	Profit           int64            `db:"profit" json:"profit"`
	DecisionReason   json.RawMessage  `db:"decision_reason" json:"decision_reason"`
	SettlementReason *string          `db:"settlement_reason" json:"settlement_reason"`
	DeadlineSnapshot time.Time        `db:"deadline_snapshot" json:"deadline_snapshot"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	DecidedAt        *time.Time       `db:"decided_at" json:"decided_at"`
	SettledAt        *time.Time       `db:"settled_at" json:"settled_at"`
}

// IsSettled reports whether the wager reached won or lost
func (w *Wager) IsSettled() bool {
	return w.Status == WagerStatusWon || w.Status == WagerStatusLost
}

// Reason returns the parsed decision reason tag set
func (w *Wager) Reason() DecisionReason {
	return ParseDecisionReason(w.DecisionReason)
}

// ParsedCombination parses the stored combination against the bet family
func (w *Wager) ParsedCombination() (Combination, error) {
	return ParseCombination(w.BetFamily, w.Combination)
}
