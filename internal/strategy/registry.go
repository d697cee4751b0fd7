package strategy

import (
	"fmt"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// Build constructs the evaluator for a stored strategy row
func Build(s *models.Strategy, limits StakeLimits) (Evaluator, error) {
	switch s.Kind {
	case models.StrategyKindFixedCombo:
		return NewFixedCombo(s, limits)
	case models.StrategyKindVenueTable:
		return NewVenueTable(s, limits)
	case models.StrategyKindOddsBand:
		return NewOddsBand(s, limits)
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownStrategyKind, s.Kind)
}

// BuildAll constructs evaluators for every strategy, keyed by strategy id.
// A row with broken parameters fails the whole batch so a typo in one
// strategy cannot silently disable it.
func BuildAll(strategies []*models.Strategy, limits StakeLimits) (map[string]Evaluator, error) {
	evaluators := make(map[string]Evaluator, len(strategies))
	for _, s := range strategies {
		e, err := Build(s, limits)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name, err)
		}
		evaluators[s.ID.String()] = e
	}
	return evaluators, nil
}
