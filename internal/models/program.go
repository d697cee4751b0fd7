package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassRank represents a racer's class grading
type ClassRank string

const (
	ClassRankA1 ClassRank = "A1"
	ClassRankA2 ClassRank = "A2"
	ClassRankB1 ClassRank = "B1"
	ClassRankB2 ClassRank = "B2"
)

// ProgramEntry holds the published attributes of one boat in a race.
// Immutable after creation.
type ProgramEntry struct {
	RaceKey
	BoatNo          int              `db:"boat_no" json:"boat_no" validate:"required,min=1,max=6"`
	RacerNumber     int              `db:"racer_number" json:"racer_number"`
	RacerName       string           `db:"racer_name" json:"racer_name"`
	ClassRank       ClassRank        `db:"class_rank" json:"class_rank" validate:"omitempty,oneof=A1 A2 B1 B2"`
	NationalWinRate *decimal.Decimal `db:"national_win_rate" json:"national_win_rate"`
	LocalWinRate    *decimal.Decimal `db:"local_win_rate" json:"local_win_rate"`
	MotorTop2Rate   *decimal.Decimal `db:"motor_top2_rate" json:"motor_top2_rate"`
	BoatTop2Rate    *decimal.Decimal `db:"boat_top2_rate" json:"boat_top2_rate"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// Program is the six-entry sheet for one race
type Program []*ProgramEntry

// Entry returns the entry for the given boat number, nil when absent
func (p Program) Entry(boatNo int) *ProgramEntry {
	for _, e := range p {
		if e.BoatNo == boatNo {
			return e
		}
	}
	return nil
}
