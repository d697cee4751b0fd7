package repository

import (
	"github.com/yourusername/kyotei-bot/internal/database"
)

// Repositories bundles every repository behind one handle
type Repositories struct {
	Race     RaceRepository
	Program  ProgramRepository
	Odds     OddsRepository
	Wager    WagerRepository
	Strategy StrategyRepository
	Fund     FundRepository
	Result   ResultRepository
}

// NewRepositories creates all postgres repositories over one pool
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Race:     NewPostgresRaceRepository(db),
		Program:  NewPostgresProgramRepository(db),
		Odds:     NewPostgresOddsRepository(db),
		Wager:    NewPostgresWagerRepository(db),
		Strategy: NewPostgresStrategyRepository(db),
		Fund:     NewPostgresFundRepository(db),
		Result:   NewPostgresResultRepository(db),
	}
}
