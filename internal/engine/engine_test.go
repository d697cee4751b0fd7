package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/config"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
)

// ---- in-memory fakes -------------------------------------------------------

type fakeStrategyRepo struct {
	enabled []*models.Strategy
}

func (f *fakeStrategyRepo) UpsertByName(ctx context.Context, s *models.Strategy) (*models.Strategy, error) {
	return s, nil
}

func (f *fakeStrategyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	for _, s := range f.enabled {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStrategyRepo) GetByName(ctx context.Context, name string) (*models.Strategy, error) {
	for _, s := range f.enabled {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStrategyRepo) GetEnabled(ctx context.Context) ([]*models.Strategy, error) {
	return f.enabled, nil
}

type fakeRaceRepo struct {
	races []*models.Race
}

func (f *fakeRaceRepo) Upsert(ctx context.Context, race *models.Race) error { return nil }

func (f *fakeRaceRepo) GetByKey(ctx context.Context, key models.RaceKey) (*models.Race, error) {
	for _, r := range f.races {
		if r.RaceKey.String() == key.String() {
			return r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRaceRepo) ListByDay(ctx context.Context, day time.Time) ([]*models.Race, error) {
	return f.races, nil
}

func (f *fakeRaceRepo) ListScheduledInWindow(ctx context.Context, from, to time.Time) ([]*models.Race, error) {
	return nil, nil
}

func (f *fakeRaceRepo) UpdateStatus(ctx context.Context, key models.RaceKey, status models.RaceStatus) error {
	return nil
}

func (f *fakeRaceRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, key models.RaceKey, status models.RaceStatus) error {
	return nil
}

type fakeProgramRepo struct {
	programs map[string]models.Program
}

func (f *fakeProgramRepo) UpsertEntries(ctx context.Context, entries []*models.ProgramEntry) error {
	return nil
}

func (f *fakeProgramRepo) GetProgram(ctx context.Context, key models.RaceKey) (models.Program, error) {
	return f.programs[key.String()], nil
}

type fakeOddsRepo struct {
	// race key string -> family -> combination -> odds
	values map[string]map[models.BetFamily]map[string]decimal.Decimal
}

func (f *fakeOddsRepo) InsertBatch(ctx context.Context, samples []*models.OddsSample) error {
	return nil
}

func (f *fakeOddsRepo) LatestValues(ctx context.Context, key models.RaceKey, family models.BetFamily) (map[string]decimal.Decimal, time.Time, error) {
	byFamily, ok := f.values[key.String()]
	if !ok {
		return nil, time.Time{}, nil
	}
	return byFamily[family], time.Time{}, nil
}

// fakeWagerRepo reproduces the conditional-update contract of the real
// repository: transitions out of pending succeed at most once, and a confirm
// whose decidedAt is not strictly before the deadline snapshot is refused.
type fakeWagerRepo struct {
	wagers []*models.Wager
}

func (f *fakeWagerRepo) find(id uuid.UUID) *models.Wager {
	for _, w := range f.wagers {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (f *fakeWagerRepo) Insert(ctx context.Context, w *models.Wager) (bool, error) {
	// mirrors the planned_amount > 0 table constraint
	if w.PlannedAmount <= 0 {
		return false, fmt.Errorf("planned_amount must be positive, got %d", w.PlannedAmount)
	}
	for _, existing := range f.wagers {
		if existing.StrategyID == w.StrategyID && existing.RaceKey.String() == w.RaceKey.String() {
			return false, nil
		}
	}
	w.ID = uuid.New()
	f.wagers = append(f.wagers, w)
	return true, nil
}

func (f *fakeWagerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wager, error) {
	if w := f.find(id); w != nil {
		return w, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeWagerRepo) ListPendingInWindow(ctx context.Context, from, to time.Time) ([]*models.Wager, error) {
	var out []*models.Wager
	for _, w := range f.wagers {
		if w.Status == models.WagerStatusPending &&
			w.DeadlineSnapshot.After(from) && !w.DeadlineSnapshot.After(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWagerRepo) ListConfirmed(ctx context.Context) ([]*models.Wager, error) {
	var out []*models.Wager
	for _, w := range f.wagers {
		if w.Status == models.WagerStatusConfirmed {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWagerRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	for _, w := range f.wagers {
		if w.Status == models.WagerStatusPending {
			n++
		}
	}
	return n, nil
}

func (f *fakeWagerRepo) ConfirmPending(ctx context.Context, id uuid.UUID, family models.BetFamily, combination string, finalOdds decimal.Decimal, placedAmount int64, reason json.RawMessage, decidedAt time.Time) (bool, error) {
	w := f.find(id)
	if w == nil || w.Status != models.WagerStatusPending || !w.DeadlineSnapshot.After(decidedAt) {
		return false, nil
	}
	w.Status = models.WagerStatusConfirmed
	w.BetFamily = family
	w.Combination = combination
	w.FinalOdds = &finalOdds
	w.PlacedAmount = placedAmount
	w.DecisionReason = reason
	w.DecidedAt = &decidedAt
	return true, nil
}

func (f *fakeWagerRepo) SkipPending(ctx context.Context, id uuid.UUID, reason json.RawMessage, decidedAt time.Time) (bool, error) {
	w := f.find(id)
	if w == nil || w.Status != models.WagerStatusPending || !w.DeadlineSnapshot.After(decidedAt) {
		return false, nil
	}
	w.Status = models.WagerStatusSkipped
	w.DecisionReason = reason
	w.DecidedAt = &decidedAt
	return true, nil
}

func (f *fakeWagerRepo) CancelPending(ctx context.Context, id uuid.UUID, reason json.RawMessage, decidedAt time.Time) (bool, error) {
	w := f.find(id)
	if w == nil || w.Status != models.WagerStatusPending {
		return false, nil
	}
	w.Status = models.WagerStatusCanceled
	w.DecisionReason = reason
	w.DecidedAt = &decidedAt
	return true, nil
}

func (f *fakeWagerRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	var swept int64
	for _, w := range f.wagers {
		if w.Status == models.WagerStatusPending && !w.DeadlineSnapshot.After(now) {
			w.Status = models.WagerStatusSkipped
			w.DecisionReason = models.DecisionReason{"reason": models.ReasonDeadlineOverrun}.JSON()
			w.DecidedAt = &now
			swept++
		}
	}
	return swept, nil
}

func (f *fakeWagerRepo) SettleTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.WagerStatus, payoutAmount, profit int64, settlementReason string, settledAt time.Time) (bool, error) {
	return false, nil
}

func (f *fakeWagerRepo) CancelConfirmedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, settlementReason string, settledAt time.Time) (bool, error) {
	return false, nil
}

func (f *fakeWagerRepo) SummarizeByStrategy(ctx context.Context, day *time.Time) ([]*repository.StrategySummary, error) {
	return nil, nil
}

type fakeFundRepo struct {
	balances map[uuid.UUID]int64
}

func (f *fakeFundRepo) EnsureAccount(ctx context.Context, strategyID uuid.UUID, initialBalance int64) error {
	if f.balances == nil {
		f.balances = make(map[uuid.UUID]int64)
	}
	if _, ok := f.balances[strategyID]; !ok {
		f.balances[strategyID] = initialBalance
	}
	return nil
}

func (f *fakeFundRepo) GetByStrategy(ctx context.Context, strategyID uuid.UUID) (*models.FundAccount, error) {
	return nil, models.ErrNotFound
}

func (f *fakeFundRepo) ListAll(ctx context.Context) ([]*models.FundAccount, error) {
	return nil, nil
}

func (f *fakeFundRepo) ApplySettlementTx(ctx context.Context, tx pgx.Tx, strategyID uuid.UUID, profit, staked, returned int64, hit bool) error {
	return nil
}

// stepClock returns a scripted sequence of instants, holding the last one
// once the script runs out.
type stepClock struct {
	instants []time.Time
	i        int
}

func (c *stepClock) Now() time.Time {
	t := c.instants[c.i]
	if c.i < len(c.instants)-1 {
		c.i++
	}
	return t
}

func (c *stepClock) Location() *time.Location { return c.instants[0].Location() }

// ---- fixtures --------------------------------------------------------------

var testDeadline = time.Date(2026, 8, 29, 10, 50, 0, 0, time.UTC)

func testBettingConfig() config.BettingConfig {
	return config.BettingConfig{
		PlanCron:               "0 8 * * *",
		DecisionWindowSeconds:  300,
		DecisionPeriodSeconds:  30,
		ReconcilePeriodSeconds: 60,
		MinStake:               100,
		MaxStake:               10000,
		StakeTick:              100,
		InitialFundBalance:     100000,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func engineRace(venue string, raceNo int, deadline time.Time) *models.Race {
	return &models.Race{
		RaceKey: models.RaceKey{
			RaceDate:    clock.OperatingDay(deadline),
			StadiumCode: venue,
			RaceNumber:  raceNo,
		},
		DeadlineAt: &deadline,
		Status:     models.RaceStatusScheduled,
	}
}

func engineProgram(key models.RaceKey, localRate float64) models.Program {
	rate := decimal.NewFromFloat(localRate)
	return models.Program{
		{RaceKey: key, BoatNo: 1, LocalWinRate: &rate},
	}
}

func quinellaStrategy(t *testing.T) *models.Strategy {
	t.Helper()
	return &models.Strategy{
		ID:      uuid.New(),
		Name:    "venue5_quinella_1_3",
		Kind:    models.StrategyKindFixedCombo,
		Enabled: true,
		Parameters: json.RawMessage(`{
			"venue_whitelist": ["05"],
			"race_no_whitelist": [4],
			"min_local_rate": 4.5,
			"max_local_rate": 6.0,
			"bet_family": "quinella",
			"combination": "1-3",
			"min_odds": 2.0,
			"max_odds": 100.0,
			"base_stake": 1000
		}`),
	}
}

type engineFixture struct {
	engine  *Engine
	races   *fakeRaceRepo
	wagers  *fakeWagerRepo
	odds    *fakeOddsRepo
	funds   *fakeFundRepo
	clock   *stepClock
	program *fakeProgramRepo
}

func newEngineFixture(t *testing.T, strategies []*models.Strategy, races []*models.Race, instants ...time.Time) *engineFixture {
	t.Helper()
	if len(instants) == 0 {
		instants = []time.Time{testDeadline.Add(-2 * time.Minute)}
	}
	f := &engineFixture{
		races:   &fakeRaceRepo{races: races},
		wagers:  &fakeWagerRepo{},
		odds:    &fakeOddsRepo{values: map[string]map[models.BetFamily]map[string]decimal.Decimal{}},
		funds:   &fakeFundRepo{},
		clock:   &stepClock{instants: instants},
		program: &fakeProgramRepo{programs: map[string]models.Program{}},
	}
	repos := &repository.Repositories{
		Race:     f.races,
		Program:  f.program,
		Odds:     f.odds,
		Wager:    f.wagers,
		Strategy: &fakeStrategyRepo{enabled: strategies},
		Fund:     f.funds,
	}
	f.engine = NewEngine(repos, f.clock, testBettingConfig(), quietLogger())
	return f
}

func (f *engineFixture) setOdds(key models.RaceKey, family models.BetFamily, combination string, odds float64) {
	byFamily, ok := f.odds.values[key.String()]
	if !ok {
		byFamily = map[models.BetFamily]map[string]decimal.Decimal{}
		f.odds.values[key.String()] = byFamily
	}
	byCombo, ok := byFamily[family]
	if !ok {
		byCombo = map[string]decimal.Decimal{}
		byFamily[family] = byCombo
	}
	byCombo[combination] = decimal.NewFromFloat(odds)
}

// ---- tests -----------------------------------------------------------------

func TestPlanDayCreatesPendingAndAuditRows(t *testing.T) {
	strat := quinellaStrategy(t)
	pass := engineRace("05", 4, testDeadline)
	wrongVenue := engineRace("12", 4, testDeadline)

	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{pass, wrongVenue})
	f.program.programs[pass.RaceKey.String()] = engineProgram(pass.RaceKey, 5.2)

	report, err := f.engine.PlanDay(context.Background(), clock.OperatingDay(testDeadline))
	if err != nil {
		t.Fatalf("PlanDay failed: %v", err)
	}
	if report.Planned != 1 || report.Skipped != 1 || report.Existed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if len(f.wagers.wagers) != 2 {
		t.Fatalf("expected 2 wagers, got %d", len(f.wagers.wagers))
	}
	for _, w := range f.wagers.wagers {
		switch w.StadiumCode {
		case "05":
			if w.Status != models.WagerStatusPending {
				t.Errorf("expected pending wager, got %s", w.Status)
			}
			if w.BetFamily != models.BetFamilyQuinella || w.Combination != "1=3" {
				t.Errorf("unexpected planned bet: %s %s", w.BetFamily, w.Combination)
			}
			if w.PlannedAmount != 1000 {
				t.Errorf("expected planned amount 1000, got %d", w.PlannedAmount)
			}
			if w.Reason()["reason"] != models.ReasonPlanned {
				t.Errorf("unexpected reason: %s", w.DecisionReason)
			}
		case "12":
			if w.Status != models.WagerStatusSkipped {
				t.Errorf("expected skipped audit row, got %s", w.Status)
			}
			if got := w.Reason()["reason"]; got != "gate_fail:venue" {
				t.Errorf("expected gate_fail:venue, got %q", got)
			}
			// the audit row carries the stake the strategy would have planned
			if w.PlannedAmount != 1000 {
				t.Errorf("expected audit row planned amount 1000, got %d", w.PlannedAmount)
			}
		}
	}

	if f.funds.balances[strat.ID] != 100000 {
		t.Errorf("expected fund account opened at 100000, got %d", f.funds.balances[strat.ID])
	}
}

func TestPlanDayIsIdempotent(t *testing.T) {
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race})
	f.program.programs[race.RaceKey.String()] = engineProgram(race.RaceKey, 5.2)

	day := clock.OperatingDay(testDeadline)
	if _, err := f.engine.PlanDay(context.Background(), day); err != nil {
		t.Fatalf("first PlanDay failed: %v", err)
	}
	report, err := f.engine.PlanDay(context.Background(), day)
	if err != nil {
		t.Fatalf("second PlanDay failed: %v", err)
	}
	if report.Planned != 0 || report.Existed != 1 {
		t.Fatalf("expected re-run to be a no-op, got %+v", report)
	}
	if len(f.wagers.wagers) != 1 {
		t.Fatalf("expected 1 wager after re-run, got %d", len(f.wagers.wagers))
	}
}

func TestPlanDaySkipsRacesWithoutDeadline(t *testing.T) {
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	race.DeadlineAt = nil
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race})

	report, err := f.engine.PlanDay(context.Background(), clock.OperatingDay(testDeadline))
	if err != nil {
		t.Fatalf("PlanDay failed: %v", err)
	}
	if report.Planned+report.Skipped != 0 || len(f.wagers.wagers) != 0 {
		t.Fatalf("expected no wagers for deadline-less race, got %+v", report)
	}
}

func TestTickDecisionsConfirms(t *testing.T) {
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race})
	f.program.programs[race.RaceKey.String()] = engineProgram(race.RaceKey, 5.2)
	f.setOdds(race.RaceKey, models.BetFamilyQuinella, "1=3", 8.4)

	if _, err := f.engine.PlanDay(context.Background(), clock.OperatingDay(testDeadline)); err != nil {
		t.Fatalf("PlanDay failed: %v", err)
	}

	report, err := f.engine.TickDecisions(context.Background())
	if err != nil {
		t.Fatalf("TickDecisions failed: %v", err)
	}
	if report.Confirmed != 1 || report.Skipped != 0 || report.Deferred != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	w := f.wagers.wagers[0]
	if w.Status != models.WagerStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", w.Status)
	}
	if w.PlacedAmount != 1000 {
		t.Errorf("expected placed amount 1000, got %d", w.PlacedAmount)
	}
	if w.FinalOdds == nil || !w.FinalOdds.Equal(decimal.NewFromFloat(8.4)) {
		t.Errorf("expected final odds 8.4, got %v", w.FinalOdds)
	}
	if w.DecidedAt == nil {
		t.Errorf("expected decided_at set")
	}
	if got := w.Reason()["confirmed_at"]; got != "T-120s" {
		t.Errorf("expected confirmed_at T-120s, got %q", got)
	}
}

func TestTickDecisionsSkipsOutsideOddsBand(t *testing.T) {
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race})
	f.program.programs[race.RaceKey.String()] = engineProgram(race.RaceKey, 5.2)
	f.setOdds(race.RaceKey, models.BetFamilyQuinella, "1=3", 1.4)

	if _, err := f.engine.PlanDay(context.Background(), clock.OperatingDay(testDeadline)); err != nil {
		t.Fatalf("PlanDay failed: %v", err)
	}
	report, err := f.engine.TickDecisions(context.Background())
	if err != nil {
		t.Fatalf("TickDecisions failed: %v", err)
	}
	if report.Skipped != 1 || report.Confirmed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	w := f.wagers.wagers[0]
	if w.Status != models.WagerStatusSkipped {
		t.Fatalf("expected skipped, got %s", w.Status)
	}
	if got := w.Reason()["reason"]; got != models.ReasonOddsBelowMin {
		t.Errorf("expected odds_below_min, got %q", got)
	}
}

func TestTickDecisionsDefersWithoutOdds(t *testing.T) {
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race})
	f.program.programs[race.RaceKey.String()] = engineProgram(race.RaceKey, 5.2)

	if _, err := f.engine.PlanDay(context.Background(), clock.OperatingDay(testDeadline)); err != nil {
		t.Fatalf("PlanDay failed: %v", err)
	}
	report, err := f.engine.TickDecisions(context.Background())
	if err != nil {
		t.Fatalf("TickDecisions failed: %v", err)
	}
	if report.Deferred != 1 || report.Confirmed != 0 || report.Skipped != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if f.wagers.wagers[0].Status != models.WagerStatusPending {
		t.Fatalf("deferred wager must stay pending, got %s", f.wagers.wagers[0].Status)
	}
}

func TestSweepExpiresOverdueWagers(t *testing.T) {
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	// clock runs a minute past the deadline for the whole tick
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race},
		testDeadline.Add(time.Minute))
	f.program.programs[race.RaceKey.String()] = engineProgram(race.RaceKey, 5.2)
	f.setOdds(race.RaceKey, models.BetFamilyQuinella, "1=3", 8.4)

	f.wagers.wagers = append(f.wagers.wagers, &models.Wager{
		ID:               uuid.New(),
		StrategyID:       strat.ID,
		RaceKey:          race.RaceKey,
		BetFamily:        models.BetFamilyQuinella,
		Combination:      "1=3",
		PlannedAmount:    1000,
		Status:           models.WagerStatusPending,
		DeadlineSnapshot: testDeadline,
	})

	report, err := f.engine.TickDecisions(context.Background())
	if err != nil {
		t.Fatalf("TickDecisions failed: %v", err)
	}
	if report.Confirmed != 0 || report.Expired != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	w := f.wagers.wagers[0]
	if w.Status != models.WagerStatusSkipped {
		t.Fatalf("expected skipped, got %s", w.Status)
	}
	if got := w.Reason()["reason"]; got != models.ReasonDeadlineOverrun {
		t.Errorf("expected deadline_overrun, got %q", got)
	}
}

func TestConfirmRefusedPastDeadline(t *testing.T) {
	// the tick lists the wager in time, but the decision lands after the
	// deadline; the conditional update refuses and the sweeper expires it
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race},
		testDeadline.Add(-time.Minute), // listing
		testDeadline.Add(30*time.Second), // decision, past deadline
	)
	f.program.programs[race.RaceKey.String()] = engineProgram(race.RaceKey, 5.2)
	f.setOdds(race.RaceKey, models.BetFamilyQuinella, "1=3", 8.4)

	f.wagers.wagers = append(f.wagers.wagers, &models.Wager{
		ID:               uuid.New(),
		StrategyID:       strat.ID,
		RaceKey:          race.RaceKey,
		BetFamily:        models.BetFamilyQuinella,
		Combination:      "1=3",
		PlannedAmount:    1000,
		Status:           models.WagerStatusPending,
		DeadlineSnapshot: testDeadline,
	})

	report, err := f.engine.TickDecisions(context.Background())
	if err != nil {
		t.Fatalf("TickDecisions failed: %v", err)
	}
	if report.Confirmed != 0 {
		t.Fatalf("late decision must not confirm, got %+v", report)
	}

	w := f.wagers.wagers[0]
	if w.Status == models.WagerStatusConfirmed {
		t.Fatal("wager confirmed after its deadline")
	}
	if w.Status != models.WagerStatusSkipped {
		t.Fatalf("expected the sweeper to expire the wager, got %s", w.Status)
	}
}

func TestSkipRefusedPastDeadline(t *testing.T) {
	// same race as the confirm case: listed in time, the skip decision lands
	// after the deadline. The skip is refused and the sweeper records
	// deadline_overrun, not the odds reason.
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	f := newEngineFixture(t, []*models.Strategy{strat}, []*models.Race{race},
		testDeadline.Add(-time.Minute),   // listing
		testDeadline.Add(30*time.Second), // decision, past deadline
	)
	f.program.programs[race.RaceKey.String()] = engineProgram(race.RaceKey, 5.2)
	f.setOdds(race.RaceKey, models.BetFamilyQuinella, "1=3", 1.4) // below the odds band

	f.wagers.wagers = append(f.wagers.wagers, &models.Wager{
		ID:               uuid.New(),
		StrategyID:       strat.ID,
		RaceKey:          race.RaceKey,
		BetFamily:        models.BetFamilyQuinella,
		Combination:      "1=3",
		PlannedAmount:    1000,
		Status:           models.WagerStatusPending,
		DeadlineSnapshot: testDeadline,
	})

	report, err := f.engine.TickDecisions(context.Background())
	if err != nil {
		t.Fatalf("TickDecisions failed: %v", err)
	}
	if report.Skipped != 0 {
		t.Fatalf("late skip must be refused, got %+v", report)
	}
	if report.Expired != 1 {
		t.Fatalf("expected the sweeper to expire the wager, got %+v", report)
	}

	w := f.wagers.wagers[0]
	if w.Status != models.WagerStatusSkipped {
		t.Fatalf("expected skipped, got %s", w.Status)
	}
	if got := w.Reason()["reason"]; got != models.ReasonDeadlineOverrun {
		t.Errorf("expected deadline_overrun, got %q", got)
	}
}

func TestTickDecisionsDefersWhenStrategyDisabled(t *testing.T) {
	strat := quinellaStrategy(t)
	race := engineRace("05", 4, testDeadline)
	// strategy list is empty: disabled since planning
	f := newEngineFixture(t, nil, []*models.Race{race})
	f.wagers.wagers = append(f.wagers.wagers, &models.Wager{
		ID:               uuid.New(),
		StrategyID:       strat.ID,
		RaceKey:          race.RaceKey,
		BetFamily:        models.BetFamilyQuinella,
		Combination:      "1=3",
		PlannedAmount:    1000,
		Status:           models.WagerStatusPending,
		DeadlineSnapshot: testDeadline,
	})

	report, err := f.engine.TickDecisions(context.Background())
	if err != nil {
		t.Fatalf("TickDecisions failed: %v", err)
	}
	if report.Deferred != 1 {
		t.Fatalf("expected orphaned wager deferred, got %+v", report)
	}
	if f.wagers.wagers[0].Status != models.WagerStatusPending {
		t.Fatalf("orphaned wager must stay pending for the sweeper")
	}
}
