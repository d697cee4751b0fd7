// Package ledger books settlements against the per-strategy fund accounts.
// A settlement is one transaction: the wager transition and the fund update
// commit together or not at all.
package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
)

// TxRunner runs fn inside one transaction. database.DB satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Outcome is a computed settlement ready to book
type Outcome struct {
	Hit              bool
	PayoutAmount     int64
	Profit           int64
	SettlementReason string
	SettledAt        time.Time
}

// Settler books settlements and cancellation refunds atomically
type Settler interface {
	// Settle books a won/lost outcome. Returns false when the wager was
	// already settled by another writer, with nothing changed.
	Settle(ctx context.Context, w *models.Wager, outcome Outcome) (bool, error)
	// RefundCanceled cancels a confirmed wager on official race
	// cancellation. The fund is untouched: balances move only on won/lost,
	// so an unsettled stake has nothing to give back.
	RefundCanceled(ctx context.Context, w *models.Wager, reason string, at time.Time) (bool, error)
}

// Ledger implements Settler over PostgreSQL
type Ledger struct {
	db     TxRunner
	wagers repository.WagerRepository
	funds  repository.FundRepository
	races  repository.RaceRepository
	logger *logrus.Logger
}

// NewLedger creates a fund ledger
func NewLedger(db TxRunner, wagers repository.WagerRepository, funds repository.FundRepository, races repository.RaceRepository, logger *logrus.Logger) *Ledger {
	return &Ledger{db: db, wagers: wagers, funds: funds, races: races, logger: logger}
}

func (l *Ledger) Settle(ctx context.Context, w *models.Wager, outcome Outcome) (bool, error) {
	status := models.WagerStatusLost
	if outcome.Hit {
		status = models.WagerStatusWon
	}

	settled := false
	err := l.db.WithTx(ctx, func(tx pgx.Tx) error {
		ok, err := l.wagers.SettleTx(ctx, tx, w.ID, status,
			outcome.PayoutAmount, outcome.Profit, outcome.SettlementReason, outcome.SettledAt)
		if err != nil {
			return err
		}
		if !ok {
			// already settled; idempotent no-op
			return nil
		}
		settled = true

		err = l.funds.ApplySettlementTx(ctx, tx, w.StrategyID,
			outcome.Profit, w.PlacedAmount, outcome.PayoutAmount, outcome.Hit)
		if err != nil {
			return err
		}
		return l.races.UpdateStatusTx(ctx, tx, w.RaceKey, models.RaceStatusSettled)
	})
	if err != nil {
		return false, err
	}

	if settled {
		l.logger.WithFields(logrus.Fields{
			"wager":  w.ID,
			"race":   w.RaceKey.String(),
			"status": status,
			"payout": outcome.PayoutAmount,
			"profit": outcome.Profit,
		}).Info("Settled wager")
	}
	return settled, nil
}

func (l *Ledger) RefundCanceled(ctx context.Context, w *models.Wager, reason string, at time.Time) (bool, error) {
	refunded := false
	err := l.db.WithTx(ctx, func(tx pgx.Tx) error {
		ok, err := l.wagers.CancelConfirmedTx(ctx, tx, w.ID, reason, at)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		refunded = true
		return l.races.UpdateStatusTx(ctx, tx, w.RaceKey, models.RaceStatusCanceled)
	})
	if err != nil {
		return false, err
	}

	if refunded {
		l.logger.WithFields(logrus.Fields{
			"wager": w.ID,
			"race":  w.RaceKey.String(),
		}).Info("Canceled wager for canceled race")
	}
	return refunded, nil
}
