package models

import (
	"fmt"
	"time"
)

// RaceStatus represents the lifecycle status of a race
type RaceStatus string

const (
	RaceStatusScheduled RaceStatus = "scheduled"
	RaceStatusClosed    RaceStatus = "closed"
	RaceStatusSettled   RaceStatus = "settled"
	RaceStatusCanceled  RaceStatus = "canceled"
)

// RaceKey identifies a race by its composite natural key:
// operating day, stadium code ("01".."24") and race number (1..12).
type RaceKey struct {
	RaceDate    time.Time `db:"race_date" json:"race_date"`
	StadiumCode string    `db:"stadium_code" json:"stadium_code" validate:"required,len=2"`
	RaceNumber  int       `db:"race_number" json:"race_number" validate:"required,min=1,max=12"`
}

// String returns a compact identifier like "20260829-05-04R"
func (k RaceKey) String() string {
	return fmt.Sprintf("%s-%s-%02dR", k.RaceDate.Format("20060102"), k.StadiumCode, k.RaceNumber)
}

// Race represents one boat race on the operating day
type Race struct {
	RaceKey
	Title      string     `db:"title" json:"title"`
	DeadlineAt *time.Time `db:"deadline_at" json:"deadline_at"`
	Status     RaceStatus `db:"status" json:"status" validate:"required,oneof=scheduled closed settled canceled"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// HasDeadline reports whether the vote deadline is known
func (r *Race) HasDeadline() bool {
	return r.DeadlineAt != nil && !r.DeadlineAt.IsZero()
}

// IsOpen reports whether the race still accepts wager decisions at t
func (r *Race) IsOpen(t time.Time) bool {
	return r.Status == RaceStatusScheduled && r.HasDeadline() && t.Before(*r.DeadlineAt)
}

// TimeToDeadline returns the duration until the deadline, negative when passed
func (r *Race) TimeToDeadline(t time.Time) time.Duration {
	if !r.HasDeadline() {
		return 0
	}
	return r.DeadlineAt.Sub(t)
}
