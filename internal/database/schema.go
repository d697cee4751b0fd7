package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the relational layout. Idempotent; safe to run
// on every boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS races (
		race_date     date        NOT NULL,
		stadium_code  char(2)     NOT NULL,
		race_number   smallint    NOT NULL CHECK (race_number BETWEEN 1 AND 12),
		title         text        NOT NULL DEFAULT '',
		deadline_at   timestamptz,
		status        text        NOT NULL DEFAULT 'scheduled',
		created_at    timestamptz NOT NULL DEFAULT NOW(),
		updated_at    timestamptz NOT NULL DEFAULT NOW(),
		PRIMARY KEY (race_date, stadium_code, race_number)
	)`,

	`CREATE TABLE IF NOT EXISTS program_entries (
		race_date         date        NOT NULL,
		stadium_code      char(2)     NOT NULL,
		race_number       smallint    NOT NULL,
		boat_no           smallint    NOT NULL CHECK (boat_no BETWEEN 1 AND 6),
		racer_number      integer     NOT NULL DEFAULT 0,
		racer_name        text        NOT NULL DEFAULT '',
		class_rank        text,
		national_win_rate numeric(5,2),
		local_win_rate    numeric(5,2),
		motor_top2_rate   numeric(5,2),
		boat_top2_rate    numeric(5,2),
		created_at        timestamptz NOT NULL DEFAULT NOW(),
		PRIMARY KEY (race_date, stadium_code, race_number, boat_no),
		FOREIGN KEY (race_date, stadium_code, race_number)
			REFERENCES races (race_date, stadium_code, race_number) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS odds_samples (
		id                  bigserial   PRIMARY KEY,
		race_date           date        NOT NULL,
		stadium_code        char(2)     NOT NULL,
		race_number         smallint    NOT NULL,
		bet_family          text        NOT NULL,
		combination         text        NOT NULL,
		value               numeric(8,1),
		sampled_at          timestamptz NOT NULL,
		minutes_to_deadline integer     NOT NULL,
		FOREIGN KEY (race_date, stadium_code, race_number)
			REFERENCES races (race_date, stadium_code, race_number) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_odds_samples_latest
		ON odds_samples (race_date, stadium_code, race_number, bet_family, sampled_at DESC)`,

	`CREATE TABLE IF NOT EXISTS strategies (
		id         uuid        PRIMARY KEY,
		name       text        NOT NULL UNIQUE,
		kind       text        NOT NULL,
		parameters jsonb,
		enabled    boolean     NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL DEFAULT NOW(),
		updated_at timestamptz NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS wagers (
		id                uuid        PRIMARY KEY,
		strategy_id       uuid        NOT NULL REFERENCES strategies (id),
		race_date         date        NOT NULL,
		stadium_code      char(2)     NOT NULL,
		race_number       smallint    NOT NULL,
		bet_family        text        NOT NULL,
		combination       text        NOT NULL,
		planned_amount    bigint      NOT NULL CHECK (planned_amount > 0),
		status            text        NOT NULL DEFAULT 'pending',
		final_odds        numeric(8,1),
		placed_amount     bigint      NOT NULL DEFAULT 0,
		payout_amount     bigint      NOT NULL DEFAULT 0,
		profit            bigint      NOT NULL DEFAULT 0,
		decision_reason   jsonb,
		settlement_reason text,
		deadline_snapshot timestamptz NOT NULL,
		created_at        timestamptz NOT NULL DEFAULT NOW(),
		decided_at        timestamptz,
		settled_at        timestamptz,
		UNIQUE (strategy_id, race_date, stadium_code, race_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wagers_status_deadline
		ON wagers (status, deadline_snapshot)`,

	`CREATE TABLE IF NOT EXISTS fund_accounts (
		strategy_id     uuid        PRIMARY KEY REFERENCES strategies (id),
		initial_balance bigint      NOT NULL,
		current_balance bigint      NOT NULL,
		total_bets      bigint      NOT NULL DEFAULT 0,
		total_hits      bigint      NOT NULL DEFAULT 0,
		total_staked    bigint      NOT NULL DEFAULT 0,
		total_returned  bigint      NOT NULL DEFAULT 0,
		updated_at      timestamptz NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS race_results (
		race_date    date        NOT NULL,
		stadium_code char(2)     NOT NULL,
		race_number  smallint    NOT NULL,
		is_canceled  boolean     NOT NULL DEFAULT false,
		first_place  smallint    NOT NULL DEFAULT 0,
		second_place smallint    NOT NULL DEFAULT 0,
		third_place  smallint    NOT NULL DEFAULT 0,
		payoffs      jsonb,
		fetched_at   timestamptz NOT NULL DEFAULT NOW(),
		PRIMARY KEY (race_date, stadium_code, race_number),
		FOREIGN KEY (race_date, stadium_code, race_number)
			REFERENCES races (race_date, stadium_code, race_number) ON DELETE CASCADE
	)`,
}

// EnsureSchema creates all tables and indexes when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
