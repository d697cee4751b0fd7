package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// PostgresRaceRepository implements RaceRepository using PostgreSQL
type PostgresRaceRepository struct {
	db *database.DB
}

// NewPostgresRaceRepository creates a new PostgreSQL race repository
func NewPostgresRaceRepository(db *database.DB) *PostgresRaceRepository {
	return &PostgresRaceRepository{db: db}
}

func (r *PostgresRaceRepository) Upsert(ctx context.Context, race *models.Race) error {
	query := `
		INSERT INTO races (race_date, stadium_code, race_number, title, deadline_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (race_date, stadium_code, race_number) DO UPDATE SET
			title = EXCLUDED.title,
			deadline_at = COALESCE(races.deadline_at, EXCLUDED.deadline_at),
			updated_at = NOW()`

	_, err := r.db.GetPool().Exec(ctx, query,
		race.RaceDate, race.StadiumCode, race.RaceNumber,
		race.Title, race.DeadlineAt, race.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert race %s: %w", race.RaceKey, err)
	}
	return nil
}

func (r *PostgresRaceRepository) GetByKey(ctx context.Context, key models.RaceKey) (*models.Race, error) {
	query := `
		SELECT race_date, stadium_code, race_number, title, deadline_at, status, created_at, updated_at
		FROM races
		WHERE race_date = $1 AND stadium_code = $2 AND race_number = $3`

	race := &models.Race{}
	err := r.db.GetPool().QueryRow(ctx, query, key.RaceDate, key.StadiumCode, key.RaceNumber).Scan(
		&race.RaceDate, &race.StadiumCode, &race.RaceNumber,
		&race.Title, &race.DeadlineAt, &race.Status,
		&race.CreatedAt, &race.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get race %s: %w", key, err)
	}
	return race, nil
}

func (r *PostgresRaceRepository) ListByDay(ctx context.Context, day time.Time) ([]*models.Race, error) {
	query := `
		SELECT race_date, stadium_code, race_number, title, deadline_at, status, created_at, updated_at
		FROM races
		WHERE race_date = $1
		ORDER BY stadium_code, race_number`

	rows, err := r.db.GetPool().Query(ctx, query, day.Format("20060102"))
	if err != nil {
		return nil, fmt.Errorf("failed to list races for day: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

func (r *PostgresRaceRepository) ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*models.Race, error) {
	query := `
		SELECT race_date, stadium_code, race_number, title, deadline_at, status, created_at, updated_at
		FROM races
		WHERE status = $1 AND deadline_at > $2 AND deadline_at <= $3
		ORDER BY deadline_at`

	rows, err := r.db.GetPool().Query(ctx, query, models.RaceStatusScheduled, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list races in window: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

func (r *PostgresRaceRepository) UpdateStatus(ctx context.Context, key models.RaceKey, status models.RaceStatus) error {
	query := `
		UPDATE races SET status = $4, updated_at = NOW()
		WHERE race_date = $1 AND stadium_code = $2 AND race_number = $3`

	result, err := r.db.GetPool().Exec(ctx, query, key.RaceDate, key.StadiumCode, key.RaceNumber, status)
	if err != nil {
		return fmt.Errorf("failed to update race status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresRaceRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, key models.RaceKey, status models.RaceStatus) error {
	query := `
		UPDATE races SET status = $4, updated_at = NOW()
		WHERE race_date = $1 AND stadium_code = $2 AND race_number = $3`

	if _, err := tx.Exec(ctx, query, key.RaceDate, key.StadiumCode, key.RaceNumber, status); err != nil {
		return fmt.Errorf("failed to update race status in tx: %w", err)
	}
	return nil
}

func scanRaces(rows pgx.Rows) ([]*models.Race, error) {
	var races []*models.Race
	for rows.Next() {
		race := &models.Race{}
		err := rows.Scan(
			&race.RaceDate, &race.StadiumCode, &race.RaceNumber,
			&race.Title, &race.DeadlineAt, &race.Status,
			&race.CreatedAt, &race.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, race)
	}
	return races, rows.Err()
}
