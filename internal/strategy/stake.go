package strategy

// StakeLimits bounds every stake an evaluator can propose
type StakeLimits struct {
	MinStake int64
	MaxStake int64
	Tick     int64
}

// Apply rounds the amount down to the tick and clamps it into
// [MinStake, MaxStake]. Deterministic by construction.
func (l StakeLimits) Apply(amount int64) int64 {
	if l.Tick > 0 {
		amount = amount - amount%l.Tick
	}
	if amount < l.MinStake {
		return l.MinStake
	}
	if amount > l.MaxStake {
		return l.MaxStake
	}
	return amount
}
