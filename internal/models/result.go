package models

import (
	"fmt"
	"time"
)

// Payoff is the published payout for one family+combination, in yen per
// 100 yen staked.
type Payoff struct {
	BetFamily    BetFamily `db:"bet_family" json:"bet_family"`
	Combination  string    `db:"combination" json:"combination"`
	AmountPer100 int64     `db:"amount_per_100" json:"amount_per_100"`
}

// RaceResult is the settled outcome of a race: the finishing order of the
// top three boats plus the payoff table. A canceled race carries no order.
type RaceResult struct {
	RaceKey
	IsCanceled  bool      `db:"is_canceled" json:"is_canceled"`
	FirstPlace  int       `db:"first_place" json:"first_place"`
	SecondPlace int       `db:"second_place" json:"second_place"`
	ThirdPlace  int       `db:"third_place" json:"third_place"`
	Payoffs     []Payoff  `json:"payoffs"`
	FetchedAt   time.Time `db:"fetched_at" json:"fetched_at"`
}

// CompleteFor reports whether enough finishers are known to settle a wager
// of the given family: the winner for win, the top two for the pair
// families, the top three for the trio families.
func (r *RaceResult) CompleteFor(family BetFamily) bool {
	if r.IsCanceled {
		return true
	}
	switch family.Size() {
	case 1:
		if family == BetFamilyPlace {
			return r.FirstPlace > 0 && r.SecondPlace > 0
		}
		return r.FirstPlace > 0
	case 2:
		return r.FirstPlace > 0 && r.SecondPlace > 0
	default:
		return r.FirstPlace > 0 && r.SecondPlace > 0 && r.ThirdPlace > 0
	}
}

// PayoffFor returns the published payoff for a family+combination. The
// lookup normalizes both sides through ParseCombination so "1-3" and "1=3"
// compare equal for unordered families.
func (r *RaceResult) PayoffFor(family BetFamily, combination string) (int64, bool) {
	want, err := ParseCombination(family, combination)
	if err != nil {
		return 0, false
	}
	for _, p := range r.Payoffs {
		if p.BetFamily != family {
			continue
		}
		got, err := ParseCombination(family, p.Combination)
		if err != nil {
			continue
		}
		if got.String() == want.String() {
			return p.AmountPer100, true
		}
	}
	return 0, false
}

// FinishingOrder renders the order as "1-3-2" for settlement audit trails
func (r *RaceResult) FinishingOrder() string {
	return fmt.Sprintf("%d-%d-%d", r.FirstPlace, r.SecondPlace, r.ThirdPlace)
}
