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

// PostgresStrategyRepository implements StrategyRepository using PostgreSQL
type PostgresStrategyRepository struct {
	db *database.DB
}

// NewPostgresStrategyRepository creates a new PostgreSQL strategy repository
func NewPostgresStrategyRepository(db *database.DB) *PostgresStrategyRepository {
	return &PostgresStrategyRepository{db: db}
}

func (r *PostgresStrategyRepository) UpsertByName(ctx context.Context, s *models.Strategy) (*models.Strategy, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	// Name is the stable identity across config reloads; the generated id
	// only sticks on first insert.
	query := `
		INSERT INTO strategies (id, name, kind, parameters, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			kind = EXCLUDED.kind,
			parameters = EXCLUDED.parameters,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
		RETURNING id, name, kind, parameters, enabled, created_at, updated_at`

	stored := &models.Strategy{}
	err := r.db.GetPool().QueryRow(ctx, query,
		s.ID, s.Name, s.Kind, s.Parameters, s.Enabled).Scan(
		&stored.ID, &stored.Name, &stored.Kind, &stored.Parameters,
		&stored.Enabled, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert strategy %s: %w", s.Name, err)
	}
	return stored, nil
}

func (r *PostgresStrategyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	query := `
		SELECT id, name, kind, parameters, enabled, created_at, updated_at
		FROM strategies WHERE id = $1`

	s := &models.Strategy{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Kind, &s.Parameters, &s.Enabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get strategy %s: %w", id, err)
	}
	return s, nil
}

func (r *PostgresStrategyRepository) GetByName(ctx context.Context, name string) (*models.Strategy, error) {
	query := `
		SELECT id, name, kind, parameters, enabled, created_at, updated_at
		FROM strategies WHERE name = $1`

	s := &models.Strategy{}
	err := r.db.GetPool().QueryRow(ctx, query, name).Scan(
		&s.ID, &s.Name, &s.Kind, &s.Parameters, &s.Enabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get strategy %q: %w", name, err)
	}
	return s, nil
}

func (r *PostgresStrategyRepository) GetEnabled(ctx context.Context) ([]*models.Strategy, error) {
	query := `
		SELECT id, name, kind, parameters, enabled, created_at, updated_at
		FROM strategies WHERE enabled = true
		ORDER BY name`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*models.Strategy
	for rows.Next() {
		s := &models.Strategy{}
		err := rows.Scan(&s.ID, &s.Name, &s.Kind, &s.Parameters, &s.Enabled, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, s)
	}
	return strategies, rows.Err()
}
