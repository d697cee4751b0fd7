package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BetFamily represents the class of a wager
type BetFamily string

const (
	BetFamilyWin      BetFamily = "win"
	BetFamilyPlace    BetFamily = "place"
	BetFamilyQuinella BetFamily = "quinella"
	BetFamilyExacta   BetFamily = "exacta"
	BetFamilyTrio     BetFamily = "trio"
	BetFamilyTrifecta BetFamily = "trifecta"
)

// BetFamilies lists every supported family
var BetFamilies = []BetFamily{
	BetFamilyWin, BetFamilyPlace, BetFamilyQuinella,
	BetFamilyExacta, BetFamilyTrio, BetFamilyTrifecta,
}

// Valid reports whether the family is one of the supported values
func (f BetFamily) Valid() bool {
	switch f {
	case BetFamilyWin, BetFamilyPlace, BetFamilyQuinella,
		BetFamilyExacta, BetFamilyTrio, BetFamilyTrifecta:
		return true
	}
	return false
}

// Ordered reports whether the finishing order matters for the family
func (f BetFamily) Ordered() bool {
	return f == BetFamilyExacta || f == BetFamilyTrifecta
}

// Size returns the number of boats in a combination of this family
func (f BetFamily) Size() int {
	switch f {
	case BetFamilyWin, BetFamilyPlace:
		return 1
	case BetFamilyQuinella, BetFamilyExacta:
		return 2
	default:
		return 3
	}
}

// Combination is a parsed selection within a bet family. Boats keeps the
// textual order for ordered families; unordered families are canonicalized
// ascending at parse time.
type Combination struct {
	Family BetFamily
	Boats  []int
}

// ParseCombination parses the textual combination forms used by the odds and
// payoff feeds: "1", "1-3", "1=3", "1-2-3", "1=2=3". The separator must agree
// with the family: "-" for ordered (exacta/trifecta), "=" or "-" for
// unordered (the upstream feeds use both interchangeably).
func ParseCombination(family BetFamily, text string) (Combination, error) {
	if !family.Valid() {
		return Combination{}, fmt.Errorf("%w: %q", ErrUnknownBetFamily, family)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Combination{}, fmt.Errorf("%w: empty", ErrMalformedCombination)
	}
	if family.Ordered() && strings.Contains(text, "=") {
		return Combination{}, fmt.Errorf("%w: %q uses unordered separator for %s", ErrMalformedCombination, text, family)
	}

	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '-' || r == '=' })
	if len(parts) != family.Size() {
		return Combination{}, fmt.Errorf("%w: %q has %d boats, %s needs %d",
			ErrMalformedCombination, text, len(parts), family, family.Size())
	}

	boats := make([]int, 0, len(parts))
	seen := make(map[int]bool, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 6 {
			return Combination{}, fmt.Errorf("%w: %q has invalid boat %q", ErrMalformedCombination, text, p)
		}
		if seen[n] {
			return Combination{}, fmt.Errorf("%w: %q repeats boat %d", ErrMalformedCombination, text, n)
		}
		seen[n] = true
		boats = append(boats, n)
	}

	if !family.Ordered() {
		sort.Ints(boats)
	}

	return Combination{Family: family, Boats: boats}, nil
}

// String renders the canonical textual form: "-" between boats of ordered
// families, "=" for unordered.
func (c Combination) String() string {
	sep := "="
	if c.Family.Ordered() || c.Family.Size() == 1 {
		sep = "-"
	}
	parts := make([]string, len(c.Boats))
	for i, b := range c.Boats {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, sep)
}

// Matches reports whether the combination hits against the finishing order.
// Equality for win, membership in the top two for place, multiset equality
// for quinella/trio, exact tuple for exacta/trifecta.
func (c Combination) Matches(first, second, third int) bool {
	switch c.Family {
	case BetFamilyWin:
		return c.Boats[0] == first
	case BetFamilyPlace:
		return c.Boats[0] == first || c.Boats[0] == second
	case BetFamilyExacta:
		return c.Boats[0] == first && c.Boats[1] == second
	case BetFamilyQuinella:
		got := []int{first, second}
		sort.Ints(got)
		return c.Boats[0] == got[0] && c.Boats[1] == got[1]
	case BetFamilyTrifecta:
		return c.Boats[0] == first && c.Boats[1] == second && c.Boats[2] == third
	case BetFamilyTrio:
		got := []int{first, second, third}
		sort.Ints(got)
		return c.Boats[0] == got[0] && c.Boats[1] == got[1] && c.Boats[2] == got[2]
	}
	return false
}
