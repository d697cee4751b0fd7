package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// PostgresResultRepository implements ResultRepository using PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new PostgreSQL result repository
func NewPostgresResultRepository(db *database.DB) *PostgresResultRepository {
	return &PostgresResultRepository{db: db}
}

func (r *PostgresResultRepository) Upsert(ctx context.Context, result *models.RaceResult) error {
	payoffs, err := json.Marshal(result.Payoffs)
	if err != nil {
		return fmt.Errorf("failed to marshal payoffs for %s: %w", result.RaceKey, err)
	}

	// Re-fetching a result may fill in payoffs that were missing earlier
	query := `
		INSERT INTO race_results (race_date, stadium_code, race_number,
			is_canceled, first_place, second_place, third_place, payoffs, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (race_date, stadium_code, race_number) DO UPDATE SET
			is_canceled = EXCLUDED.is_canceled,
			first_place = EXCLUDED.first_place,
			second_place = EXCLUDED.second_place,
			third_place = EXCLUDED.third_place,
			payoffs = EXCLUDED.payoffs,
			fetched_at = EXCLUDED.fetched_at`

	_, err = r.db.GetPool().Exec(ctx, query,
		result.RaceDate, result.StadiumCode, result.RaceNumber,
		result.IsCanceled, result.FirstPlace, result.SecondPlace, result.ThirdPlace,
		payoffs, result.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert result for %s: %w", result.RaceKey, err)
	}
	return nil
}

func (r *PostgresResultRepository) GetByKey(ctx context.Context, key models.RaceKey) (*models.RaceResult, error) {
	query := `
		SELECT race_date, stadium_code, race_number,
			is_canceled, first_place, second_place, third_place, payoffs, fetched_at
		FROM race_results
		WHERE race_date = $1 AND stadium_code = $2 AND race_number = $3`

	result := &models.RaceResult{}
	var payoffs []byte
	err := r.db.GetPool().QueryRow(ctx, query, key.RaceDate, key.StadiumCode, key.RaceNumber).Scan(
		&result.RaceDate, &result.StadiumCode, &result.RaceNumber,
		&result.IsCanceled, &result.FirstPlace, &result.SecondPlace, &result.ThirdPlace,
		&payoffs, &result.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result for %s: %w", key, err)
	}
	if len(payoffs) > 0 {
		if err := json.Unmarshal(payoffs, &result.Payoffs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payoffs for %s: %w", key, err)
		}
	}
	return result, nil
}
