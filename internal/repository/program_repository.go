package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// PostgresProgramRepository implements ProgramRepository using PostgreSQL
type PostgresProgramRepository struct {
	db *database.DB
}

// NewPostgresProgramRepository creates a new PostgreSQL program repository
func NewPostgresProgramRepository(db *database.DB) *PostgresProgramRepository {
	return &PostgresProgramRepository{db: db}
}

func (r *PostgresProgramRepository) UpsertEntries(ctx context.Context, entries []*models.ProgramEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// Entries are immutable once stored, so conflicts are ignored
	query := `
		INSERT INTO program_entries (race_date, stadium_code, race_number, boat_no,
			racer_number, racer_name, class_rank,
			national_win_rate, local_win_rate, motor_top2_rate, boat_top2_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (race_date, stadium_code, race_number, boat_no) DO NOTHING`

	for _, e := range entries {
		_, err := r.db.GetPool().Exec(ctx, query,
			e.RaceDate, e.StadiumCode, e.RaceNumber, e.BoatNo,
			e.RacerNumber, e.RacerName, e.ClassRank,
			e.NationalWinRate, e.LocalWinRate, e.MotorTop2Rate, e.BoatTop2Rate)
		if err != nil {
			return fmt.Errorf("failed to upsert program entry %s boat %d: %w", e.RaceKey, e.BoatNo, err)
		}
	}
	return nil
}

func (r *PostgresProgramRepository) GetProgram(ctx context.Context, key models.RaceKey) (models.Program, error) {
	query := `
		SELECT race_date, stadium_code, race_number, boat_no,
			racer_number, racer_name, class_rank,
			national_win_rate, local_win_rate, motor_top2_rate, boat_top2_rate, created_at
		FROM program_entries
		WHERE race_date = $1 AND stadium_code = $2 AND race_number = $3
		ORDER BY boat_no`

	rows, err := r.db.GetPool().Query(ctx, query, key.RaceDate, key.StadiumCode, key.RaceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get program for %s: %w", key, err)
	}
	defer rows.Close()

	var program models.Program
	for rows.Next() {
		e := &models.ProgramEntry{}
		err := rows.Scan(
			&e.RaceDate, &e.StadiumCode, &e.RaceNumber, &e.BoatNo,
			&e.RacerNumber, &e.RacerName, &e.ClassRank,
			&e.NationalWinRate, &e.LocalWinRate, &e.MotorTop2Rate, &e.BoatTop2Rate,
			&e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan program entry: %w", err)
		}
		program = append(program, e)
	}
	return program, rows.Err()
}
