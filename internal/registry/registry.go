// Package registry maintains the day's race catalogue: enumeration from the
// collector feed, program persistence, and the degraded fallback to the last
// stored snapshot when the feed is down.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/feed"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
)

// Registry enumerates and persists the races of an operating day
type Registry struct {
	feed     feed.Feed
	races    repository.RaceRepository
	programs repository.ProgramRepository
	clock    clock.Clock
	logger   *logrus.Logger
}

// NewRegistry creates a race registry
func NewRegistry(f feed.Feed, races repository.RaceRepository, programs repository.ProgramRepository, clk clock.Clock, logger *logrus.Logger) *Registry {
	return &Registry{
		feed:     f,
		races:    races,
		programs: programs,
		clock:    clk,
		logger:   logger,
	}
}

// EnumerateReport describes one enumeration pass
type EnumerateReport struct {
	Races    []*models.Race
	Omitted  int
	Degraded bool
}

// EnumerateDay fetches the day's races and their programs and persists both.
// Races without a published deadline are omitted and logged. When the feed
// is unavailable the last persisted snapshot for the day is returned with
// Degraded set, so planning can proceed on stale data and the caller may
// retry later.
func (r *Registry) EnumerateDay(ctx context.Context, day time.Time) (*EnumerateReport, error) {
	entries, err := r.feed.EnumerateRaces(ctx, day)
	if err != nil {
		r.logger.WithError(err).Warn("Race enumeration failed, falling back to stored snapshot")
		stored, storeErr := r.races.ListByDay(ctx, day)
		if storeErr != nil {
			return nil, errors.Join(err, storeErr)
		}
		return &EnumerateReport{Races: stored, Degraded: true}, nil
	}

	report := &EnumerateReport{}
	for _, entry := range entries {
		if entry.DeadlineAt == nil {
			report.Omitted++
			r.logger.WithFields(logrus.Fields{
				"stadium": entry.StadiumCode,
				"race_no": entry.RaceNumber,
			}).Warn("Omitting race without a published deadline")
			continue
		}

		race := &models.Race{
			RaceKey: models.RaceKey{
				RaceDate:    clock.OperatingDay(day),
				StadiumCode: entry.StadiumCode,
				RaceNumber:  entry.RaceNumber,
			},
			Title:      entry.Title,
			DeadlineAt: entry.DeadlineAt,
			Status:     models.RaceStatusScheduled,
		}
		if err := r.races.Upsert(ctx, race); err != nil {
			return nil, err
		}

		if err := r.persistProgram(ctx, race.RaceKey); err != nil {
			// a race without a program still gets sampled; the rate gate
			// fails closed at planning time
			r.logger.WithError(err).WithField("race", race.RaceKey.String()).
				Warn("Failed to fetch program")
		}

		stored, err := r.races.GetByKey(ctx, race.RaceKey)
		if err != nil {
			return nil, err
		}
		report.Races = append(report.Races, stored)
	}

	r.logger.WithFields(logrus.Fields{
		"day":     day.Format("2006-01-02"),
		"races":   len(report.Races),
		"omitted": report.Omitted,
	}).Info("Enumerated races for day")
	return report, nil
}

func (r *Registry) persistProgram(ctx context.Context, key models.RaceKey) error {
	existing, err := r.programs.GetProgram(ctx, key)
	if err == nil && len(existing) > 0 {
		return nil
	}

	program, err := r.feed.FetchProgram(ctx, key)
	if err != nil {
		return err
	}
	for _, e := range program {
		e.RaceKey = key
	}
	return r.programs.UpsertEntries(ctx, program)
}
