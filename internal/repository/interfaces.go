package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/models"
)

// RaceRepository manages race rows
type RaceRepository interface {
	// Upsert inserts or refreshes a race. A stored deadline is never
	// clobbered: only a NULL deadline is filled in by a later fetch.
	Upsert(ctx context.Context, race *models.Race) error
	GetByKey(ctx context.Context, key models.RaceKey) (*models.Race, error)
	ListByDay(ctx context.Context, day time.Time) ([]*models.Race, error)
	// ListScheduledInWindow returns scheduled races whose deadline lies in
	// (from, to], ordered by deadline.
	ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*models.Race, error)
	UpdateStatus(ctx context.Context, key models.RaceKey, status models.RaceStatus) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, key models.RaceKey, status models.RaceStatus) error
}

// ProgramRepository manages immutable program entries
type ProgramRepository interface {
	// UpsertEntries inserts entries, ignoring ones already present
	UpsertEntries(ctx context.Context, entries []*models.ProgramEntry) error
	GetProgram(ctx context.Context, key models.RaceKey) (models.Program, error)
}

// OddsRepository manages the append-only odds sample log
type OddsRepository interface {
	InsertBatch(ctx context.Context, samples []*models.OddsSample) error
	// LatestValues returns the most recent non-null value per combination
	// for one family of a race.
	LatestValues(ctx context.Context, key models.RaceKey, family models.BetFamily) (map[string]decimal.Decimal, time.Time, error)
}

// WagerRepository manages the wager state machine rows. All transitions out
// of pending and confirmed are conditional single-row updates, which
// serializes concurrent ticks and the sweeper on the row lock.
type WagerRepository interface {
	// Insert adds a wager; returns false without error when the
	// (strategy, race) pair already exists.
	Insert(ctx context.Context, w *models.Wager) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wager, error)
	// ListPendingInWindow returns pending wagers whose deadline snapshot
	// lies in (from, to], ordered by deadline.
	ListPendingInWindow(ctx context.Context, from, to time.Time) ([]*models.Wager, error)
	ListConfirmed(ctx context.Context) ([]*models.Wager, error)
	CountPending(ctx context.Context) (int64, error)

	// ConfirmPending transitions pending→confirmed; refuses when the
	// deadline snapshot is not strictly after decidedAt. Returns false when
	// another writer got there first or the wager is past deadline. Family
	// and combination are rewritten because an auto-family strategy resolves
	// them only at decision time.
	ConfirmPending(ctx context.Context, id uuid.UUID, family models.BetFamily, combination string, finalOdds decimal.Decimal, placedAmount int64, reason json.RawMessage, decidedAt time.Time) (bool, error)
	// SkipPending transitions pending→skipped with the reason tag set; like
	// ConfirmPending it refuses once decidedAt reaches the deadline snapshot
	// and leaves the row to the sweeper.
	SkipPending(ctx context.Context, id uuid.UUID, reason json.RawMessage, decidedAt time.Time) (bool, error)
	// CancelPending transitions pending→canceled (admin path)
	CancelPending(ctx context.Context, id uuid.UUID, reason json.RawMessage, decidedAt time.Time) (bool, error)
	// SweepExpired transitions every pending wager whose deadline snapshot
	// is at or before now to skipped(deadline_overrun); returns the count.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	// SettleTx transitions confirmed→won|lost within the caller's
	// transaction; returns false when the wager is no longer confirmed.
	SettleTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.WagerStatus, payoutAmount, profit int64, settlementReason string, settledAt time.Time) (bool, error)
	// CancelConfirmedTx transitions confirmed→canceled within the caller's
	// transaction (official race cancellation). The placed amount is zeroed:
	// only confirmed and settled wagers carry a live stake.
	CancelConfirmedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, settlementReason string, settledAt time.Time) (bool, error)

	// SummarizeByStrategy aggregates wager counts and amounts, optionally
	// restricted to one operating day.
	SummarizeByStrategy(ctx context.Context, day *time.Time) ([]*StrategySummary, error)
}

// StrategyRepository manages the strategy catalogue
type StrategyRepository interface {
	// UpsertByName inserts or updates a strategy keyed by its unique name,
	// returning the stored row.
	UpsertByName(ctx context.Context, s *models.Strategy) (*models.Strategy, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error)
	GetByName(ctx context.Context, name string) (*models.Strategy, error)
	GetEnabled(ctx context.Context) ([]*models.Strategy, error)
}

// FundRepository manages fund accounts. The Tx variants run inside the
// settlement transaction.
type FundRepository interface {
	// EnsureAccount opens the fund account when missing
	EnsureAccount(ctx context.Context, strategyID uuid.UUID, initialBalance int64) error
	GetByStrategy(ctx context.Context, strategyID uuid.UUID) (*models.FundAccount, error)
	ListAll(ctx context.Context) ([]*models.FundAccount, error)
	// ApplySettlementTx books one won/lost settlement
	ApplySettlementTx(ctx context.Context, tx pgx.Tx, strategyID uuid.UUID, profit, staked, returned int64, hit bool) error
}

// ResultRepository persists fetched race results
type ResultRepository interface {
	Upsert(ctx context.Context, result *models.RaceResult) error
	GetByKey(ctx context.Context, key models.RaceKey) (*models.RaceResult, error)
}

// StrategySummary is one row of the wager aggregation used by the summary
// command.
type StrategySummary struct {
	StrategyID  uuid.UUID
	Total       int64
	Pending     int64
	Confirmed   int64
	Won         int64
	Lost        int64
	Skipped     int64
	Canceled    int64
	TotalStaked int64
	TotalPayout int64
}

// Profit returns payout minus staked for the summarized set
func (s *StrategySummary) Profit() int64 {
	return s.TotalPayout - s.TotalStaked
}
