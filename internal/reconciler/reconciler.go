// Package reconciler settles confirmed wagers against published race
// results and payoff tables.
package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/feed"
	"github.com/yourusername/kyotei-bot/internal/ledger"
	"github.com/yourusername/kyotei-bot/internal/metrics"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
)

// reason recorded on wagers canceled by an official race cancellation
const reasonRaceCanceled = "race_canceled"

// Reconciler settles confirmed wagers once results become available
type Reconciler struct {
	feed    feed.Feed
	wagers  repository.WagerRepository
	results repository.ResultRepository
	settler ledger.Settler
	clock   clock.Clock
	logger  *logrus.Logger
}

// NewReconciler creates a result reconciler
func NewReconciler(f feed.Feed, wagers repository.WagerRepository, results repository.ResultRepository, settler ledger.Settler, clk clock.Clock, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		feed:    f,
		wagers:  wagers,
		results: results,
		settler: settler,
		clock:   clk,
		logger:  logger,
	}
}

// Report describes one reconcile pass
type Report struct {
	Won      int
	Lost     int
	Canceled int
	Deferred int
}

// Reconcile settles every confirmed wager whose race has a complete result.
// Missing or partial results defer the wager to the next cycle. Safe to
// re-run at any time: a settled wager is a no-op.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	start := r.clock.Now()
	timer := metrics.TickDuration.WithLabelValues("reconcile")
	defer func() { timer.Observe(time.Since(start).Seconds()) }()

	confirmed, err := r.wagers.ListConfirmed(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, w := range confirmed {
		if err := r.reconcileWager(ctx, w, report); err != nil {
			r.logger.WithError(err).WithField("wager", w.ID).Warn("Reconcile failed for wager")
			report.Deferred++
			metrics.ReconcileDeferredTotal.Inc()
		}
	}

	if report.Won+report.Lost+report.Canceled > 0 {
		r.logger.WithFields(logrus.Fields{
			"won":      report.Won,
			"lost":     report.Lost,
			"canceled": report.Canceled,
			"deferred": report.Deferred,
		}).Info("Reconcile pass complete")
	}
	return report, nil
}

func (r *Reconciler) reconcileWager(ctx context.Context, w *models.Wager, report *Report) error {
	result, err := r.lookupResult(ctx, w.RaceKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// race not decided yet; retry next cycle
			report.Deferred++
			metrics.ReconcileDeferredTotal.Inc()
			return nil
		}
		return err
	}

	now := r.clock.Now()
	if result.IsCanceled {
		ok, err := r.settler.RefundCanceled(ctx, w, reasonRaceCanceled, now)
		if err != nil {
			return err
		}
		if ok {
			report.Canceled++
		}
		return nil
	}

	if !result.CompleteFor(w.BetFamily) {
		report.Deferred++
		metrics.ReconcileDeferredTotal.Inc()
		return nil
	}

	combination, err := w.ParsedCombination()
	if err != nil {
		return err
	}
	hit := combination.Matches(result.FirstPlace, result.SecondPlace, result.ThirdPlace)

	var payout int64
	if hit {
		per100, found := result.PayoffFor(w.BetFamily, w.Combination)
		if !found {
			// the order is known but the payoff table is still partial;
			// retry rather than settle a win at zero
			report.Deferred++
			metrics.ReconcileDeferredTotal.Inc()
			return nil
		}
		payout = per100 * w.PlacedAmount / 100
	}

	settled, err := r.settler.Settle(ctx, w, ledger.Outcome{
		Hit:              hit,
		PayoutAmount:     payout,
		Profit:           payout - w.PlacedAmount,
		SettlementReason: result.FinishingOrder(),
		SettledAt:        now,
	})
	if err != nil {
		return err
	}
	if !settled {
		return nil
	}
	if hit {
		report.Won++
		metrics.SettlementsWonTotal.Inc()
	} else {
		report.Lost++
		metrics.SettlementsLostTotal.Inc()
	}
	return nil
}

// lookupResult reads the stored result, fetching from the feed when the row
// is absent or still partial. A refetch may fill in payoffs that were
// missing on first sight.
func (r *Reconciler) lookupResult(ctx context.Context, key models.RaceKey) (*models.RaceResult, error) {
	stored, err := r.results.GetByKey(ctx, key)
	if err == nil && resultComplete(stored) {
		return stored, nil
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	fetched, fetchErr := r.feed.FetchResult(ctx, key)
	if fetchErr != nil {
		if stored != nil {
			return stored, nil
		}
		return nil, fetchErr
	}
	if err := r.results.Upsert(ctx, fetched); err != nil {
		return nil, err
	}
	return fetched, nil
}

func resultComplete(result *models.RaceResult) bool {
	if result.IsCanceled {
		return true
	}
	return result.FirstPlace > 0 && result.SecondPlace > 0 && result.ThirdPlace > 0 &&
		len(result.Payoffs) > 0
}
