package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// PostgresFundRepository implements FundRepository using PostgreSQL
type PostgresFundRepository struct {
	db *database.DB
}

// NewPostgresFundRepository creates a new PostgreSQL fund repository
func NewPostgresFundRepository(db *database.DB) *PostgresFundRepository {
	return &PostgresFundRepository{db: db}
}

func (r *PostgresFundRepository) EnsureAccount(ctx context.Context, strategyID uuid.UUID, initialBalance int64) error {
	query := `
		INSERT INTO fund_accounts (strategy_id, initial_balance, current_balance, updated_at)
		VALUES ($1, $2, $2, NOW())
		ON CONFLICT (strategy_id) DO NOTHING`

	_, err := r.db.GetPool().Exec(ctx, query, strategyID, initialBalance)
	if err != nil {
		return fmt.Errorf("failed to ensure fund account for %s: %w", strategyID, err)
	}
	return nil
}

func (r *PostgresFundRepository) GetByStrategy(ctx context.Context, strategyID uuid.UUID) (*models.FundAccount, error) {
	query := `
		SELECT strategy_id, initial_balance, current_balance,
			total_bets, total_hits, total_staked, total_returned, updated_at
		FROM fund_accounts WHERE strategy_id = $1`

	f := &models.FundAccount{}
	err := r.db.GetPool().QueryRow(ctx, query, strategyID).Scan(
		&f.StrategyID, &f.InitialBalance, &f.CurrentBalance,
		&f.TotalBets, &f.TotalHits, &f.TotalStaked, &f.TotalReturned, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fund account for %s: %w", strategyID, err)
	}
	return f, nil
}

func (r *PostgresFundRepository) ListAll(ctx context.Context) ([]*models.FundAccount, error) {
	query := `
		SELECT strategy_id, initial_balance, current_balance,
			total_bets, total_hits, total_staked, total_returned, updated_at
		FROM fund_accounts ORDER BY strategy_id`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.FundAccount
	for rows.Next() {
		f := &models.FundAccount{}
		err := rows.Scan(&f.StrategyID, &f.InitialBalance, &f.CurrentBalance,
			&f.TotalBets, &f.TotalHits, &f.TotalStaked, &f.TotalReturned, &f.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund account: %w", err)
		}
		accounts = append(accounts, f)
	}
	return accounts, rows.Err()
}

func (r *PostgresFundRepository) ApplySettlementTx(ctx context.Context, tx pgx.Tx, strategyID uuid.UUID, profit, staked, returned int64, hit bool) error {
	hits := 0
	if hit {
		hits = 1
	}
	query := `
		UPDATE fund_accounts
		SET current_balance = current_balance + $2,
			total_bets = total_bets + 1,
			total_hits = total_hits + $3,
			total_staked = total_staked + $4,
			total_returned = total_returned + $5,
			updated_at = NOW()
		WHERE strategy_id = $1`

	result, err := tx.Exec(ctx, query, strategyID, profit, hits, staked, returned)
	if err != nil {
		return fmt.Errorf("failed to apply settlement for %s: %w", strategyID, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
