package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// PostgresOddsRepository implements OddsRepository using PostgreSQL
type PostgresOddsRepository struct {
	db *database.DB
}

// NewPostgresOddsRepository creates a new PostgreSQL odds repository
func NewPostgresOddsRepository(db *database.DB) *PostgresOddsRepository {
	return &PostgresOddsRepository{db: db}
}

func (r *PostgresOddsRepository) InsertBatch(ctx context.Context, samples []*models.OddsSample) error {
	if len(samples) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []interface{}{
			s.RaceDate, s.StadiumCode, s.RaceNumber,
			s.BetFamily, s.Combination, s.Value,
			s.SampledAt, s.MinutesToDeadline,
		})
	}

	_, err := r.db.GetPool().CopyFrom(ctx,
		pgx.Identifier{"odds_samples"},
		[]string{"race_date", "stadium_code", "race_number", "bet_family", "combination", "value", "sampled_at", "minutes_to_deadline"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert odds samples: %w", err)
	}
	return nil
}

func (r *PostgresOddsRepository) LatestValues(ctx context.Context, key models.RaceKey, family models.BetFamily) (map[string]decimal.Decimal, time.Time, error) {
	// DISTINCT ON picks the newest sample per combination; null values are
	// excluded so a stale real figure beats a fresh "not published yet".
	query := `
		SELECT DISTINCT ON (combination) combination, value, sampled_at
		FROM odds_samples
		WHERE race_date = $1 AND stadium_code = $2 AND race_number = $3
			AND bet_family = $4 AND value IS NOT NULL
		ORDER BY combination, sampled_at DESC, id DESC`

	rows, err := r.db.GetPool().Query(ctx, query, key.RaceDate, key.StadiumCode, key.RaceNumber, family)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to get latest odds for %s %s: %w", key, family, err)
	}
	defer rows.Close()

	values := make(map[string]decimal.Decimal)
	var newest time.Time
	for rows.Next() {
		var combination string
		var value decimal.Decimal
		var sampledAt time.Time
		if err := rows.Scan(&combination, &value, &sampledAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan odds sample: %w", err)
		}
		values[combination] = value
		if sampledAt.After(newest) {
			newest = sampledAt
		}
	}
	return values, newest, rows.Err()
}
