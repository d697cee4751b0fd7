// Package engine drives the wager state machine: morning planning, the
// pre-deadline decision tick, and the deadline sweeper.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/config"
	"github.com/yourusername/kyotei-bot/internal/metrics"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
	"github.com/yourusername/kyotei-bot/internal/strategy"
)

// Engine plans and decides wagers for enabled strategies
type Engine struct {
	races      repository.RaceRepository
	programs   repository.ProgramRepository
	odds       repository.OddsRepository
	wagers     repository.WagerRepository
	strategies repository.StrategyRepository
	funds      repository.FundRepository
	clock      clock.Clock
	cfg        config.BettingConfig
	logger     *logrus.Logger
}

// NewEngine creates a betting engine
func NewEngine(repos *repository.Repositories, clk clock.Clock, cfg config.BettingConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		races:      repos.Race,
		programs:   repos.Program,
		odds:       repos.Odds,
		wagers:     repos.Wager,
		strategies: repos.Strategy,
		funds:      repos.Fund,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
	}
}

func (e *Engine) limits() strategy.StakeLimits {
	return strategy.StakeLimits{
		MinStake: e.cfg.MinStake,
		MaxStake: e.cfg.MaxStake,
		Tick:     e.cfg.StakeTick,
	}
}

// loadEvaluators builds the evaluator set for every enabled strategy,
// keyed by strategy id.
func (e *Engine) loadEvaluators(ctx context.Context) (map[string]strategy.Evaluator, error) {
	enabled, err := e.strategies.GetEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled strategies: %w", err)
	}
	return strategy.BuildAll(enabled, e.limits())
}

// PlanReport describes one planning pass
type PlanReport struct {
	Planned int
	Skipped int
	Existed int
}

// PlanDay runs the morning gate for every enabled strategy over every race
// of the day. Passing gates produce pending wagers; failing gates produce
// skipped audit rows. Re-invocation is a no-op on existing (strategy, race)
// pairs.
func (e *Engine) PlanDay(ctx context.Context, day time.Time) (*PlanReport, error) {
	enabled, err := e.strategies.GetEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled strategies: %w", err)
	}

	races, err := e.races.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}

	report := &PlanReport{}
	for _, strat := range enabled {
		evaluator, err := strategy.Build(strat, e.limits())
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", strat.Name, err)
		}
		if err := e.funds.EnsureAccount(ctx, strat.ID, e.cfg.InitialFundBalance); err != nil {
			return nil, err
		}

		for _, race := range races {
			if !race.HasDeadline() || race.Status != models.RaceStatusScheduled {
				continue
			}

			program, err := e.programs.GetProgram(ctx, race.RaceKey)
			if err != nil {
				return nil, err
			}

			gate := evaluator.Gate(race, program)
			w := &models.Wager{
				StrategyID:       strat.ID,
				RaceKey:          race.RaceKey,
				DeadlineSnapshot: *race.DeadlineAt,
			}
			if gate.Pass {
				w.Status = models.WagerStatusPending
				w.BetFamily = gate.BetFamily
				w.Combination = gate.Combination
				w.PlannedAmount = gate.PlannedStake
				w.DecisionReason = models.DecisionReason{"reason": models.ReasonPlanned}.JSON()
			} else {
				w.Status = models.WagerStatusSkipped
				w.BetFamily = gate.BetFamily
				w.Combination = gate.Combination
				w.PlannedAmount = gate.PlannedStake
				w.DecisionReason = models.DecisionReason{
					"reason": strategy.GateFailReason(gate.SkipTag),
				}.JSON()
			}
			if w.BetFamily == "" {
				// a failed venue gate never named a bet; keep the audit row
				// parseable
				w.BetFamily = models.BetFamilyWin
				w.Combination = "1"
			}
			if w.PlannedAmount <= 0 {
				// the wagers table rejects non-positive planned amounts
				w.PlannedAmount = e.cfg.MinStake
			}

			inserted, err := e.wagers.Insert(ctx, w)
			if err != nil {
				return nil, err
			}
			if !inserted {
				report.Existed++
				continue
			}
			if gate.Pass {
				report.Planned++
				metrics.WagersPlannedTotal.Inc()
			} else {
				report.Skipped++
			}
		}
	}

	e.logger.WithFields(logrus.Fields{
		"day":     day.Format("2006-01-02"),
		"planned": report.Planned,
		"skipped": report.Skipped,
		"existed": report.Existed,
	}).Info("Planned wagers for day")
	return report, nil
}

// DecisionReport describes one decision tick
type DecisionReport struct {
	Confirmed int
	Skipped   int
	Deferred  int
	Expired   int64
}

// TickDecisions decides every pending wager whose deadline snapshot falls
// inside the decision window, then sweeps expired ones. A wager without any
// odds sample yet is deferred to the next tick; the sweeper is the backstop
// when samples never arrive.
func (e *Engine) TickDecisions(ctx context.Context) (*DecisionReport, error) {
	start := e.clock.Now()
	timer := metrics.TickDuration.WithLabelValues("decisions")
	defer func() { timer.Observe(time.Since(start).Seconds()) }()

	evaluators, err := e.loadEvaluators(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := e.wagers.ListPendingInWindow(ctx, start, start.Add(e.cfg.DecisionWindow()))
	if err != nil {
		return nil, err
	}

	report := &DecisionReport{}
	for _, w := range pending {
		outcome, err := e.decide(ctx, w, evaluators)
		if err != nil {
			e.logger.WithError(err).WithField("wager", w.ID).Warn("Decision failed")
			continue
		}
		switch outcome {
		case decisionConfirmed:
			report.Confirmed++
		case decisionSkipped:
			report.Skipped++
		case decisionDeferred:
			report.Deferred++
		}
	}

	expired, err := e.SweepExpired(ctx)
	if err != nil {
		return report, err
	}
	report.Expired = expired

	if count, err := e.wagers.CountPending(ctx); err == nil {
		metrics.PendingWagers.Set(float64(count))
	}

	if report.Confirmed+report.Skipped+int(report.Expired) > 0 {
		e.logger.WithFields(logrus.Fields{
			"confirmed": report.Confirmed,
			"skipped":   report.Skipped,
			"deferred":  report.Deferred,
			"expired":   report.Expired,
		}).Info("Decision tick complete")
	}
	return report, nil
}

type decisionOutcome int

const (
	decisionDeferred decisionOutcome = iota
	decisionConfirmed
	decisionSkipped
)

func (e *Engine) decide(ctx context.Context, w *models.Wager, evaluators map[string]strategy.Evaluator) (decisionOutcome, error) {
	evaluator, ok := evaluators[w.StrategyID.String()]
	if !ok {
		// strategy disabled since planning; leave the wager for the sweeper
		return decisionDeferred, nil
	}

	race, err := e.races.GetByKey(ctx, w.RaceKey)
	if err != nil {
		return decisionDeferred, err
	}
	program, err := e.programs.GetProgram(ctx, w.RaceKey)
	if err != nil {
		return decisionDeferred, err
	}

	snapshot, err := e.buildSnapshot(ctx, w.RaceKey, evaluator.Families())
	if err != nil {
		return decisionDeferred, err
	}
	if snapshot.Empty() {
		// no sample yet; do not transition
		return decisionDeferred, nil
	}

	now := e.clock.Now()
	proposal, skipReason := evaluator.Evaluate(race, program, snapshot)
	if proposal == nil {
		reason := skipReason
		if reason == nil {
			reason = models.DecisionReason{"reason": models.ReasonContractError}
		}
		ok, err := e.wagers.SkipPending(ctx, w.ID, reason.JSON(), now)
		if err != nil {
			return decisionDeferred, err
		}
		if ok {
			metrics.DecisionsSkippedTotal.Inc()
			return decisionSkipped, nil
		}
		return decisionDeferred, nil
	}

	secondsLeft := int(w.DeadlineSnapshot.Sub(now).Seconds())
	reason := proposal.Reason.Tag("confirmed_at", fmt.Sprintf("T-%ds", secondsLeft))

	confirmed, err := e.wagers.ConfirmPending(ctx, w.ID,
		proposal.BetFamily, proposal.Combination,
		proposal.FinalOdds, proposal.Stake, reason.JSON(), now)
	if err != nil {
		return decisionDeferred, err
	}
	if !confirmed {
		// lost the race against the sweeper or a concurrent tick
		return decisionDeferred, nil
	}

	metrics.DecisionsConfirmedTotal.Inc()
	e.logger.WithFields(logrus.Fields{
		"wager":       w.ID,
		"race":        w.RaceKey.String(),
		"strategy":    evaluator.Name(),
		"family":      proposal.BetFamily,
		"combination": proposal.Combination,
		"odds":        proposal.FinalOdds.String(),
		"stake":       proposal.Stake,
	}).Info("Confirmed wager")
	return decisionConfirmed, nil
}

// SweepExpired expires every pending wager whose deadline snapshot has
// passed. Runs at least once per decision tick so a preempted decision can
// never confirm late.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := e.wagers.SweepExpired(ctx, e.clock.Now())
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		metrics.ExpiredSweptTotal.Add(float64(swept))
		e.logger.WithField("count", swept).Info("Swept expired wagers")
	}
	return swept, nil
}

// buildSnapshot assembles the latest odds per combination for the families
// the strategy needs.
func (e *Engine) buildSnapshot(ctx context.Context, key models.RaceKey, families []models.BetFamily) (*models.OddsSnapshot, error) {
	snapshot := &models.OddsSnapshot{
		RaceKey: key,
		Values:  make(map[models.BetFamily]map[string]decimal.Decimal, len(families)),
	}
	for _, family := range families {
		values, takenAt, err := e.odds.LatestValues(ctx, key, family)
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
