package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// PostgresWagerRepository implements WagerRepository using PostgreSQL
type PostgresWagerRepository struct {
	db *database.DB
}

// NewPostgresWagerRepository creates a new PostgreSQL wager repository
func NewPostgresWagerRepository(db *database.DB) *PostgresWagerRepository {
	return &PostgresWagerRepository{db: db}
}

const wagerColumns = `id, strategy_id, race_date, stadium_code, race_number,
	bet_family, combination, planned_amount, status,
	final_odds, placed_amount, payout_amount, profit,
	decision_reason, settlement_reason, deadline_snapshot,
	created_at, decided_at, settled_at`

func (r *PostgresWagerRepository) Insert(ctx context.Context, w *models.Wager) (bool, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	// One wager per (strategy, race): re-planning the same day is a no-op
	query := `
		INSERT INTO wagers (id, strategy_id, race_date, stadium_code, race_number,
			bet_family, combination, planned_amount, status,
			decision_reason, deadline_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (strategy_id, race_date, stadium_code, race_number) DO NOTHING`

	result, err := r.db.GetPool().Exec(ctx, query,
		w.ID, w.StrategyID, w.RaceDate, w.StadiumCode, w.RaceNumber,
		w.BetFamily, w.Combination, w.PlannedAmount, w.Status,
		w.DecisionReason, w.DeadlineSnapshot)
	if err != nil {
		return false, fmt.Errorf("failed to insert wager for %s: %w", w.RaceKey, err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresWagerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	w, err := scanWager(r.db.GetPool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wager %s: %w", id, err)
	}
	return w, nil
}

func (r *PostgresWagerRepository) ListPendingInWindow(ctx context.Context, from, to time.Time) ([]*models.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE status = $1 AND deadline_snapshot > $2 AND deadline_snapshot <= $3
		ORDER BY deadline_snapshot`

	rows, err := r.db.GetPool().Query(ctx, query, models.WagerStatusPending, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending wagers: %w", err)
	}
	defer rows.Close()

	return scanWagers(rows)
}

func (r *PostgresWagerRepository) ListConfirmed(ctx context.Context) ([]*models.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE status = $1
		ORDER BY deadline_snapshot`

	rows, err := r.db.GetPool().Query(ctx, query, models.WagerStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed wagers: %w", err)
	}
	defer rows.Close()

	return scanWagers(rows)
}

func (r *PostgresWagerRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM wagers WHERE status = $1`, models.WagerStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending wagers: %w", err)
	}
	return count, nil
}

func (r *PostgresWagerRepository) ConfirmPending(ctx context.Context, id uuid.UUID, family models.BetFamily, combination string, finalOdds decimal.Decimal, placedAmount int64, reason json.RawMessage, decidedAt time.Time) (bool, error) {
	// The deadline guard lives in the predicate: a decision arriving at or
	// after the snapshot deadline matches zero rows and the wager is left
	// for the sweeper.
	query := `
		UPDATE wagers
		SET status = $2, bet_family = $3, combination = $4,
			final_odds = $5, placed_amount = $6,
			decision_reason = $7, decided_at = $8
		WHERE id = $1 AND status = $9 AND deadline_snapshot > $8`

	result, err := r.db.GetPool().Exec(ctx, query,
		id, models.WagerStatusConfirmed, family, combination, finalOdds, placedAmount,
		reason, decidedAt, models.WagerStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to confirm wager %s: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresWagerRepository) SkipPending(ctx context.Context, id uuid.UUID, reason json.RawMessage, decidedAt time.Time) (bool, error) {
	// same deadline guard as ConfirmPending: a skip decision landing at or
	// after the snapshot deadline matches zero rows and the sweeper records
	// deadline_overrun instead
	query := `
		UPDATE wagers
		SET status = $2, decision_reason = $3, decided_at = $4
		WHERE id = $1 AND status = $5 AND deadline_snapshot > $4`

	result, err := r.db.GetPool().Exec(ctx, query,
		id, models.WagerStatusSkipped, reason, decidedAt, models.WagerStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to skip wager %s: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresWagerRepository) CancelPending(ctx context.Context, id uuid.UUID, reason json.RawMessage, decidedAt time.Time) (bool, error) {
	return r.closePending(ctx, id, models.WagerStatusCanceled, reason, decidedAt)
}

func (r *PostgresWagerRepository) closePending(ctx context.Context, id uuid.UUID, to models.WagerStatus, reason json.RawMessage, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE wagers
		SET status = $2, decision_reason = $3, decided_at = $4
		WHERE id = $1 AND status = $5`

	result, err := r.db.GetPool().Exec(ctx, query,
		id, to, reason, decidedAt, models.WagerStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to move wager %s to %s: %w", id, to, err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresWagerRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	reason := models.DecisionReason{"reason": models.ReasonDeadlineOverrun}.JSON()
	query := `
		UPDATE wagers
		SET status = $1, decision_reason = $2, decided_at = $3
		WHERE status = $4 AND deadline_snapshot <= $3`

	result, err := r.db.GetPool().Exec(ctx, query,
		models.WagerStatusSkipped, reason, now, models.WagerStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired wagers: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresWagerRepository) SettleTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.WagerStatus, payoutAmount, profit int64, settlementReason string, settledAt time.Time) (bool, error) {
	if !models.CanTransition(models.WagerStatusConfirmed, status) {
		return false, models.ErrInvalidTransition
	}

	query := `
		UPDATE wagers
		SET status = $2, payout_amount = $3, profit = $4,
			settlement_reason = $5, settled_at = $6
		WHERE id = $1 AND status = $7`

	result, err := tx.Exec(ctx, query,
		id, status, payoutAmount, profit, settlementReason, settledAt,
		models.WagerStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("failed to settle wager %s: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresWagerRepository) CancelConfirmedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, settlementReason string, settledAt time.Time) (bool, error) {
	// a canceled wager holds no live stake; planned_amount keeps the audit
	// trail
	query := `
		UPDATE wagers
		SET status = $2, placed_amount = 0, settlement_reason = $3, settled_at = $4
		WHERE id = $1 AND status = $5`

	result, err := tx.Exec(ctx, query,
		id, models.WagerStatusCanceled, settlementReason, settledAt,
		models.WagerStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("failed to cancel wager %s: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresWagerRepository) SummarizeByStrategy(ctx context.Context, day *time.Time) ([]*StrategySummary, error) {
	query := `
		SELECT strategy_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'won'),
			COUNT(*) FILTER (WHERE status = 'lost'),
			COUNT(*) FILTER (WHERE status = 'skipped'),
			COUNT(*) FILTER (WHERE status = 'canceled'),
			COALESCE(SUM(placed_amount) FILTER (WHERE status IN ('confirmed', 'won', 'lost')), 0),
			COALESCE(SUM(payout_amount) FILTER (WHERE status = 'won'), 0)
		FROM wagers`

	args := []interface{}{}
	if day != nil {
		query += ` WHERE race_date = $1`
		args = append(args, day.Format("20060102"))
	}
	query += ` GROUP BY strategy_id ORDER BY strategy_id`

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize wagers: %w", err)
	}
	defer rows.Close()

	var summaries []*StrategySummary
	for rows.Next() {
		s := &StrategySummary{}
		err := rows.Scan(&s.StrategyID, &s.Total,
			&s.Pending, &s.Confirmed, &s.Won, &s.Lost, &s.Skipped, &s.Canceled,
			&s.TotalStaked, &s.TotalPayout)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func scanWager(row pgx.Row) (*models.Wager, error) {
	w := &models.Wager{}
	err := row.Scan(
		&w.ID, &w.StrategyID, &w.RaceDate, &w.StadiumCode, &w.RaceNumber,
		&w.BetFamily, &w.Combination, &w.PlannedAmount, &w.Status,
		&w.FinalOdds, &w.PlacedAmount, &w.PayoutAmount, &w.Profit,
		&w.DecisionReason, &w.SettlementReason, &w.DeadlineSnapshot,
		&w.CreatedAt, &w.DecidedAt, &w.SettledAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func scanWagers(rows pgx.Rows) ([]*models.Wager, error) {
	var wagers []*models.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, w)
	}
	return wagers, rows.Err()
}
