package backtest

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
	"github.com/yourusername/kyotei-bot/internal/strategy"
)

type storedRaces struct {
	repository.RaceRepository
	byDay map[string][]*models.Race
}

func (s *storedRaces) ListByDay(ctx context.Context, day time.Time) ([]*models.Race, error) {
	return s.byDay[day.Format("20060102")], nil
}

type storedPrograms struct {
	repository.ProgramRepository
	programs map[string]models.Program
}

func (s *storedPrograms) GetProgram(ctx context.Context, key models.RaceKey) (models.Program, error) {
	return s.programs[key.String()], nil
}

type storedOdds struct {
	repository.OddsRepository
	values map[string]map[models.BetFamily]map[string]decimal.Decimal
}

func (s *storedOdds) LatestValues(ctx context.Context, key models.RaceKey, family models.BetFamily) (map[string]decimal.Decimal, time.Time, error) {
	return s.values[key.String()][family], time.Time{}, nil
}

type storedResults struct {
	results map[string]*models.RaceResult
}

func (s *storedResults) Upsert(ctx context.Context, result *models.RaceResult) error { return nil }

func (s *storedResults) GetByKey(ctx context.Context, key models.RaceKey) (*models.RaceResult, error) {
	result, ok := s.results[key.String()]
	if !ok {
		return nil, models.ErrNotFound
	}
	return result, nil
}

type replayFixture struct {
	races    *storedRaces
	programs *storedPrograms
	odds     *storedOdds
	results  *storedResults
	replay   *Replay
}

func newReplayFixture() *replayFixture {
	f := &replayFixture{
		races:    &storedRaces{byDay: map[string][]*models.Race{}},
		programs: &storedPrograms{programs: map[string]models.Program{}},
		odds:     &storedOdds{values: map[string]map[models.BetFamily]map[string]decimal.Decimal{}},
		results:  &storedResults{results: map[string]*models.RaceResult{}},
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f.replay = NewReplay(&repository.Repositories{
		Race:    f.races,
		Program: f.programs,
		Odds:    f.odds,
		Result:  f.results,
	}, logger)
	return f
}

func (f *replayFixture) addRace(day time.Time, venue string, raceNo int, localRate float64) models.RaceKey {
	deadline := day.Add(10*time.Hour + 50*time.Minute)
	key := models.RaceKey{RaceDate: day, StadiumCode: venue, RaceNumber: raceNo}
	f.races.byDay[day.Format("20060102")] = append(f.races.byDay[day.Format("20060102")], &models.Race{
		RaceKey:    key,
		DeadlineAt: &deadline,
		Status:     models.RaceStatusSettled,
	})
	rate := decimal.NewFromFloat(localRate)
	f.programs.programs[key.String()] = models.Program{
		{RaceKey: key, BoatNo: 1, LocalWinRate: &rate},
	}
	return key
}

func (f *replayFixture) addOdds(key models.RaceKey, family models.BetFamily, combination string, odds float64) {
	byFamily, ok := f.odds.values[key.String()]
	if !ok {
		byFamily = map[models.BetFamily]map[string]decimal.Decimal{}
		f.odds.values[key.String()] = byFamily
	}
	if byFamily[family] == nil {
		byFamily[family] = map[string]decimal.Decimal{}
	}
	byFamily[family][combination] = decimal.NewFromFloat(odds)
}

func (f *replayFixture) addResult(key models.RaceKey, first, second, third int, payoffs ...models.Payoff) {
	f.results.results[key.String()] = &models.RaceResult{
		RaceKey:     key,
		FirstPlace:  first,
		SecondPlace: second,
		ThirdPlace:  third,
		Payoffs:     payoffs,
	}
}

func replayStrategy() *models.Strategy {
	return &models.Strategy{
		Name: "replay_quinella_1_3",
		Kind: models.StrategyKindFixedCombo,
		Parameters: json.RawMessage(`{
			"venue_whitelist": ["05"],
			"min_local_rate": 4.5,
			"max_local_rate": 6.0,
			"bet_family": "quinella",
			"combination": "1-3",
			"min_odds": 2.0,
			"base_stake": 1000
		}`),
		Enabled: true,
	}
}

func replayConfig(start, end time.Time) Config {
	return Config{
		StartDay:       start,
		EndDay:         end,
		InitialBalance: 100000,
		Limits:         strategy.StakeLimits{MinStake: 100, MaxStake: 10000, Tick: 100},
	}
}

func TestReplayAccountsWinsAndLosses(t *testing.T) {
	day1 := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	f := newReplayFixture()

	win := f.addRace(day1, "05", 4, 5.2)
	f.addOdds(win, models.BetFamilyQuinella, "1=3", 8.4)
	f.addResult(win, 1, 3, 2, models.Payoff{
		BetFamily: models.BetFamilyQuinella, Combination: "1=3", AmountPer100: 820,
	})

	loss := f.addRace(day2, "05", 6, 5.0)
	f.addOdds(loss, models.BetFamilyQuinella, "1=3", 6.0)
	f.addResult(loss, 2, 4, 1, models.Payoff{
		BetFamily: models.BetFamilyQuinella, Combination: "2=4", AmountPer100: 1540,
	})

	report, err := f.replay.Run(context.Background(), replayStrategy(), replayConfig(day1, day2))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Bets)
	assert.Equal(t, 1, report.Hits)
	assert.Equal(t, int64(2000), report.TotalStaked)
	assert.Equal(t, int64(8200), report.TotalPayout)
	assert.Equal(t, int64(6200), report.Profit())
	assert.InDelta(t, 50.0, report.HitRate(), 1e-9)

	// the balance peaks after the win, then draws down by the lost stake
	assert.Equal(t, int64(106200), report.Balance)
	assert.Equal(t, int64(107200), report.PeakBalance)
	assert.Equal(t, int64(1000), report.MaxDrawdown)

	require.Len(t, report.Days, 2)
	assert.Equal(t, 1, report.Days[0].Hits)
	assert.Equal(t, 0, report.Days[1].Hits)
}

func TestReplayCountsNonBets(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	f := newReplayFixture()

	// wrong venue: fails the gate
	f.addRace(day, "12", 4, 5.2)

	// passes the gate but has no stored odds
	f.addRace(day, "05", 4, 5.2)

	// bets but no result on record
	pending := f.addRace(day, "05", 6, 5.2)
	f.addOdds(pending, models.BetFamilyQuinella, "1=3", 8.4)

	report, err := f.replay.Run(context.Background(), replayStrategy(), replayConfig(day, day))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Bets)
	assert.Equal(t, 1, report.GateFailed)
	assert.Equal(t, 1, report.NoOdds)
	assert.Equal(t, 1, report.Unresolved)
}

func TestReplayRejectsBrokenStrategy(t *testing.T) {
	f := newReplayFixture()
	strat := replayStrategy()
	strat.Parameters = json.RawMessage(`{"bet_family": "quinella", "combination": "1-1"}`)

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	_, err := f.replay.Run(context.Background(), strat, replayConfig(day, day))
	require.Error(t, err)
}
