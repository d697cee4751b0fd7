package models

import "testing"

func TestResultCompleteFor(t *testing.T) {
	partial := &RaceResult{FirstPlace: 1, SecondPlace: 3}

	if !partial.CompleteFor(BetFamilyWin) {
		t.Error("winner known should settle win")
	}
	if !partial.CompleteFor(BetFamilyQuinella) {
		t.Error("top two known should settle quinella")
	}
	if partial.CompleteFor(BetFamilyTrifecta) {
		t.Error("missing third place must defer trifecta")
	}

	canceled := &RaceResult{IsCanceled: true}
	if !canceled.CompleteFor(BetFamilyTrifecta) {
		t.Error("canceled race is always complete")
	}
}

func TestResultPayoffForNormalizes(t *testing.T) {
	result := &RaceResult{
		FirstPlace: 1, SecondPlace: 3, ThirdPlace: 2,
		Payoffs: []Payoff{
			{BetFamily: BetFamilyQuinella, Combination: "1=3", AmountPer100: 820},
			{BetFamily: BetFamilyExacta, Combination: "1-3", AmountPer100: 1540},
		},
	}

	// the feed publishes "1=3" but the wager may carry "1-3" or "3-1"
	for _, text := range []string{"1=3", "1-3", "3-1"} {
		per100, ok := result.PayoffFor(BetFamilyQuinella, text)
		if !ok || per100 != 820 {
			t.Errorf("quinella %q: expected 820, got %d (found=%v)", text, per100, ok)
		}
	}

	if _, ok := result.PayoffFor(BetFamilyExacta, "3-1"); ok {
		t.Error("exacta 3-1 must not match published 1-3")
	}
	if _, ok := result.PayoffFor(BetFamilyTrio, "1=2=3"); ok {
		t.Error("unpublished family must not match")
	}

	if result.FinishingOrder() != "1-3-2" {
		t.Errorf("expected finishing order 1-3-2, got %s", result.FinishingOrder())
	}
}
