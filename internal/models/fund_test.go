package models

import "testing"

// HitRate and ROI are already percentages; callers must not scale them
// again.
func TestFundAccountRatesArePercentages(t *testing.T) {
	f := &FundAccount{
		InitialBalance: 100000,
		CurrentBalance: 106200,
		TotalBets:      2,
		TotalHits:      1,
		TotalStaked:    2000,
		TotalReturned:  8200,
	}

	if got := f.HitRate(); got != 50.0 {
		t.Fatalf("HitRate() = %v, want 50.0", got)
	}
	if got := f.ROI(); got != 410.0 {
		t.Fatalf("ROI() = %v, want 410.0", got)
	}
	if got := f.Profit(); got != 6200 {
		t.Fatalf("Profit() = %v, want 6200", got)
	}
}

func TestFundAccountRatesZeroBeforeFirstSettlement(t *testing.T) {
	f := &FundAccount{InitialBalance: 100000, CurrentBalance: 100000}

	if got := f.HitRate(); got != 0 {
		t.Fatalf("HitRate() = %v, want 0", got)
	}
	if got := f.ROI(); got != 0 {
		t.Fatalf("ROI() = %v, want 0", got)
	}
}
