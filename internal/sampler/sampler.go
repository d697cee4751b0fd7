// Package sampler collects odds on two cadences: a slow background sweep of
// every race inside the planning window and a fast burst over races whose
// deadline is imminent.
package sampler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/config"
	"github.com/yourusername/kyotei-bot/internal/feed"
	"github.com/yourusername/kyotei-bot/internal/metrics"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
)

// Sampler writes odds samples for open races
type Sampler struct {
	feed     feed.Feed
	races    repository.RaceRepository
	odds     repository.OddsRepository
	clock    clock.Clock
	cfg      config.SamplerConfig
	families []models.BetFamily
	logger   *logrus.Logger
}

// NewSampler creates an odds sampler
func NewSampler(f feed.Feed, races repository.RaceRepository, odds repository.OddsRepository, clk clock.Clock, cfg config.SamplerConfig, logger *logrus.Logger) *Sampler {
	families := make([]models.BetFamily, 0, len(cfg.BetFamilies))
	for _, name := range cfg.BetFamilies {
		family := models.BetFamily(name)
		if family.Valid() {
			families = append(families, family)
		}
	}
	return &Sampler{
		feed:     f,
		races:    races,
		odds:     odds,
		clock:    clk,
		cfg:      cfg,
		families: families,
		logger:   logger,
	}
}

// TickBackground samples every scheduled race whose deadline falls inside
// the background window, once.
func (s *Sampler) TickBackground(ctx context.Context) error {
	period := time.Duration(s.cfg.BackgroundPeriodSeconds) * time.Second
	return s.tick(ctx, "background", s.cfg.BackgroundWindow(), period)
}

// TickImminent samples every scheduled race whose deadline is imminent
func (s *Sampler) TickImminent(ctx context.Context) error {
	period := time.Duration(s.cfg.ImminentPeriodSeconds) * time.Second
	return s.tick(ctx, "imminent", s.cfg.ImminentWindow(), period)
}

// tick runs one sampling cycle. The cycle owns a time budget equal to its
// period: races it cannot reach in time are dropped and counted, never
// queued into the next cycle.
func (s *Sampler) tick(ctx context.Context, name string, window, period time.Duration) error {
	start := s.clock.Now()
	timer := metrics.TickDuration.WithLabelValues("sample_" + name)
	defer func() { timer.Observe(time.Since(start).Seconds()) }()

	races, err := s.races.ListScheduledInWindow(ctx, start, start.Add(window))
	if err != nil {
		return err
	}

	budget := start.Add(period)
	written := 0
	for i, race := range races {
		if s.clock.Now().After(budget) {
			dropped := len(races) - i
			metrics.SamplerDroppedTotal.Add(float64(dropped))
			s.logger.WithFields(logrus.Fields{
				"cycle":   name,
				"dropped": dropped,
			}).Warn("Sampling cycle over budget, dropping remaining races")
			break
		}
		n, err := s.SampleRace(ctx, race)
		if err != nil {
			s.logger.WithError(err).WithField("race", race.RaceKey.String()).
				Warn("Failed to sample race")
			continue
		}
		written += n
	}

	if written > 0 {
		s.logger.WithFields(logrus.Fields{
			"cycle":   name,
			"races":   len(races),
			"samples": written,
		}).Debug("Sampling cycle complete")
	}
	return nil
}

// SampleRace fetches the configured families for one race and appends the
// samples. Partial fetches commit what succeeded. No sample is recorded at
// or after deadline−ε.
func (s *Sampler) SampleRace(ctx context.Context, race *models.Race) (int, error) {
	if !race.HasDeadline() {
		return 0, nil
	}
	deadline := *race.DeadlineAt

	written := 0
	for _, family := range s.families {
		sampledAt := s.clock.Now()
		if !sampledAt.Before(deadline.Add(-s.cfg.DeadlineEpsilon())) {
			break
		}

		values, err := s.feed.FetchOdds(ctx, race.RaceKey, family)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"race":   race.RaceKey.String(),
				"family": family,
			}).Warn("Odds fetch failed")
			continue
		}

		minutes := int(deadline.Sub(sampledAt) / time.Minute)
		samples := make([]*models.OddsSample, 0, len(values))
		for combination, value := range values {
			v := value
			samples = append(samples, &models.OddsSample{
				RaceKey:           race.RaceKey,
				BetFamily:         family,
				Combination:       combination,
				Value:             &v,
				SampledAt:         sampledAt,
				MinutesToDeadline: minutes,
			})
		}
		if err := s.odds.InsertBatch(ctx, samples); err != nil {
			return written, err
		}
		written += len(samples)
		metrics.OddsSamplesWrittenTotal.Add(float64(len(samples)))
	}
	return written, nil
}
