// Package backtest replays a strategy against the stored odds log and race
// results, reporting what the live engine would have done over a past date
// range.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
	"github.com/yourusername/kyotei-bot/internal/strategy"
)

// Config holds the replay parameters
type Config struct {
	StartDay       time.Time
	EndDay         time.Time
	InitialBalance int64
	Limits         strategy.StakeLimits
}

// Replay simulates the plan→decide→settle pipeline over stored data. The
// decision snapshot is the last odds sample on record for each combination,
// which is the closest stored stand-in for the pre-deadline value.
type Replay struct {
	races    repository.RaceRepository
	programs repository.ProgramRepository
	odds     repository.OddsRepository
	results  repository.ResultRepository
	logger   *logrus.Logger
}

// NewReplay creates a backtest replay over the stored repositories
func NewReplay(repos *repository.Repositories, logger *logrus.Logger) *Replay {
	return &Replay{
		races:    repos.Race,
		programs: repos.Program,
		odds:     repos.Odds,
		results:  repos.Result,
		logger:   logger,
	}
}

// Run replays one strategy over every stored race in [StartDay, EndDay]
func (r *Replay) Run(ctx context.Context, strat *models.Strategy, cfg Config) (*Report, error) {
	evaluator, err := strategy.Build(strat, cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", strat.Name, err)
	}

	report := NewReport(strat.Name, cfg.InitialBalance)
	for day := clock.OperatingDay(cfg.StartDay); !day.After(cfg.EndDay); day = day.AddDate(0, 0, 1) {
		races, err := r.races.ListByDay(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("failed to load races for %s: %w", day.Format("2006-01-02"), err)
		}
		for _, race := range races {
			if err := r.replayRace(ctx, evaluator, race, report); err != nil {
				return nil, err
			}
		}
	}

	r.logger.WithFields(logrus.Fields{
		"strategy": strat.Name,
		"bets":     report.Bets,
		"hits":     report.Hits,
		"profit":   report.Profit(),
	}).Info("Backtest replay complete")
	return report, nil
}

func (r *Replay) replayRace(ctx context.Context, evaluator strategy.Evaluator, race *models.Race, report *Report) error {
	if !race.HasDeadline() {
		return nil
	}

	program, err := r.programs.GetProgram(ctx, race.RaceKey)
	if err != nil {
		return err
	}
	if gate := evaluator.Gate(race, program); !gate.Pass {
		report.GateFailed++
		return nil
	}

	snapshot, err := r.buildSnapshot(ctx, race.RaceKey, evaluator.Families())
	if err != nil {
		return err
	}
	if snapshot.Empty() {
		report.NoOdds++
		return nil
	}

	proposal, _ := evaluator.Evaluate(race, program, snapshot)
	if proposal == nil {
		report.SkippedAtOdds++
		return nil
	}

	result, err := r.results.GetByKey(ctx, race.RaceKey)
	if err != nil {
		// no stored result; the live engine would still be deferring
		report.Unresolved++
		return nil
	}
	if result.IsCanceled {
		report.Canceled++
		return nil
	}
	if !result.CompleteFor(proposal.BetFamily) {
		report.Unresolved++
		return nil
	}

	combination, err := models.ParseCombination(proposal.BetFamily, proposal.Combination)
	if err != nil {
		return err
	}
	hit := combination.Matches(result.FirstPlace, result.SecondPlace, result.ThirdPlace)

	var payout int64
	if hit {
		per100, found := result.PayoffFor(proposal.BetFamily, proposal.Combination)
		if !found {
			report.Unresolved++
			return nil
		}
		payout = per100 * proposal.Stake / 100
	}

	report.Record(race.RaceKey.RaceDate, SimulatedBet{
		RaceKey:     race.RaceKey,
		BetFamily:   proposal.BetFamily,
		Combination: proposal.Combination,
		Stake:       proposal.Stake,
		FinalOdds:   proposal.FinalOdds,
		Hit:         hit,
		Payout:      payout,
	})
	return nil
}

func (r *Replay) buildSnapshot(ctx context.Context, key models.RaceKey, families []models.BetFamily) (*models.OddsSnapshot, error) {
	snapshot := &models.OddsSnapshot{
		RaceKey: key,
		Values:  make(map[models.BetFamily]map[string]decimal.Decimal, len(families)),
	}
	for _, family := range families {
		values, takenAt, err := r.odds.LatestValues(ctx, key, family)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		snapshot.Values[family] = values
		if takenAt.After(snapshot.TakenAt) {
			snapshot.TakenAt = takenAt
		}
	}
	return snapshot, nil
}
