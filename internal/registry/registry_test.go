package registry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/feed"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/repository"
)

var operatingDay = time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

type fakeEnumFeed struct {
	feed.Feed
	entries  []feed.RaceEntry
	enumErr  error
	programs map[string]models.Program
}

func (f *fakeEnumFeed) EnumerateRaces(ctx context.Context, day time.Time) ([]feed.RaceEntry, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return f.entries, nil
}

func (f *fakeEnumFeed) FetchProgram(ctx context.Context, key models.RaceKey) (models.Program, error) {
	program, ok := f.programs[key.String()]
	if !ok {
		return nil, models.ErrNotFound
	}
	return program, nil
}

type fakeRaceStore struct {
	repository.RaceRepository
	stored map[string]*models.Race
}

func (f *fakeRaceStore) Upsert(ctx context.Context, race *models.Race) error {
	if f.stored == nil {
		f.stored = make(map[string]*models.Race)
	}
	f.stored[race.RaceKey.String()] = race
	return nil
}

func (f *fakeRaceStore) GetByKey(ctx context.Context, key models.RaceKey) (*models.Race, error) {
	race, ok := f.stored[key.String()]
	if !ok {
		return nil, models.ErrNotFound
	}
	return race, nil
}

func (f *fakeRaceStore) ListByDay(ctx context.Context, day time.Time) ([]*models.Race, error) {
	var out []*models.Race
	for _, r := range f.stored {
		out = append(out, r)
	}
	return out, nil
}

type fakeProgramStore struct {
	entries map[string][]*models.ProgramEntry
}

func (f *fakeProgramStore) UpsertEntries(ctx context.Context, entries []*models.ProgramEntry) error {
	if f.entries == nil {
		f.entries = make(map[string][]*models.ProgramEntry)
	}
	for _, e := range entries {
		key := e.RaceKey.String()
		f.entries[key] = append(f.entries[key], e)
	}
	return nil
}

func (f *fakeProgramStore) GetProgram(ctx context.Context, key models.RaceKey) (models.Program, error) {
	return f.entries[key.String()], nil
}

func newRegistry(f feed.Feed, races repository.RaceRepository, programs repository.ProgramRepository) *Registry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clk := &clock.FixedClock{Instant: operatingDay.Add(8 * time.Hour)}
	return NewRegistry(f, races, programs, clk, logger)
}

func registryEntry(venue string, raceNo int, deadline *time.Time) feed.RaceEntry {
	return feed.RaceEntry{
		StadiumCode: venue,
		RaceNumber:  raceNo,
		Title:       "Test Race",
		DeadlineAt:  deadline,
	}
}

func TestEnumerateDayPersistsRacesAndPrograms(t *testing.T) {
	deadline := operatingDay.Add(10*time.Hour + 50*time.Minute)
	key := models.RaceKey{RaceDate: operatingDay, StadiumCode: "05", RaceNumber: 4}
	rate := decimal.NewFromFloat(5.2)

	enumFeed := &fakeEnumFeed{
		entries: []feed.RaceEntry{registryEntry("05", 4, &deadline)},
		programs: map[string]models.Program{
			key.String(): {{BoatNo: 1, RacerName: "Test Racer", LocalWinRate: &rate}},
		},
	}
	races := &fakeRaceStore{}
	programs := &fakeProgramStore{}
	r := newRegistry(enumFeed, races, programs)

	report, err := r.EnumerateDay(context.Background(), operatingDay)
	if err != nil {
		t.Fatalf("EnumerateDay failed: %v", err)
	}
	if len(report.Races) != 1 || report.Omitted != 0 || report.Degraded {
		t.Fatalf("unexpected report: %+v", report)
	}

	stored := report.Races[0]
	if stored.Status != models.RaceStatusScheduled {
		t.Errorf("expected scheduled, got %s", stored.Status)
	}
	if !stored.HasDeadline() || !stored.DeadlineAt.Equal(deadline) {
		t.Errorf("expected deadline %v, got %v", deadline, stored.DeadlineAt)
	}

	program, _ := programs.GetProgram(context.Background(), key)
	if len(program) != 1 {
		t.Fatalf("expected program persisted, got %d entries", len(program))
	}
	if program[0].RaceKey.String() != key.String() {
		t.Errorf("program entry not keyed to race: %s", program[0].RaceKey.String())
	}
}

func TestEnumerateDayOmitsRacesWithoutDeadline(t *testing.T) {
	deadline := operatingDay.Add(10 * time.Hour)
	enumFeed := &fakeEnumFeed{
		entries: []feed.RaceEntry{
			registryEntry("05", 4, &deadline),
			registryEntry("12", 7, nil),
		},
	}
	races := &fakeRaceStore{}
	r := newRegistry(enumFeed, races, &fakeProgramStore{})

	report, err := r.EnumerateDay(context.Background(), operatingDay)
	if err != nil {
		t.Fatalf("EnumerateDay failed: %v", err)
	}
	if len(report.Races) != 1 || report.Omitted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(races.stored) != 1 {
		t.Fatalf("a deadline-less race must not be persisted, got %d", len(races.stored))
	}
}

func TestEnumerateDayFallsBackWhenFeedDown(t *testing.T) {
	races := &fakeRaceStore{}
	deadline := operatingDay.Add(10 * time.Hour)
	stored := &models.Race{
		RaceKey:    models.RaceKey{RaceDate: operatingDay, StadiumCode: "05", RaceNumber: 4},
		DeadlineAt: &deadline,
		Status:     models.RaceStatusScheduled,
	}
	_ = races.Upsert(context.Background(), stored)

	r := newRegistry(&fakeEnumFeed{enumErr: errors.New("collector down")}, races, &fakeProgramStore{})

	report, err := r.EnumerateDay(context.Background(), operatingDay)
	if err != nil {
		t.Fatalf("expected degraded fallback, got error: %v", err)
	}
	if !report.Degraded {
		t.Fatal("expected Degraded set")
	}
	if len(report.Races) != 1 {
		t.Fatalf("expected the stored snapshot, got %d races", len(report.Races))
	}
}

func TestEnumerateDaySurvivesMissingProgram(t *testing.T) {
	deadline := operatingDay.Add(10 * time.Hour)
	enumFeed := &fakeEnumFeed{
		entries: []feed.RaceEntry{registryEntry("05", 4, &deadline)},
	}
	races := &fakeRaceStore{}
	r := newRegistry(enumFeed, races, &fakeProgramStore{})

	report, err := r.EnumerateDay(context.Background(), operatingDay)
	if err != nil {
		t.Fatalf("a missing program must not fail enumeration: %v", err)
	}
	if len(report.Races) != 1 {
		t.Fatalf("expected the race persisted anyway, got %d", len(report.Races))
	}
}

func TestEnumerateDayDoesNotRefetchExistingProgram(t *testing.T) {
	deadline := operatingDay.Add(10 * time.Hour)
	key := models.RaceKey{RaceDate: operatingDay, StadiumCode: "05", RaceNumber: 4}

	enumFeed := &fakeEnumFeed{
		entries: []feed.RaceEntry{registryEntry("05", 4, &deadline)},
	}
	programs := &fakeProgramStore{}
	_ = programs.UpsertEntries(context.Background(), []*models.ProgramEntry{
		{RaceKey: key, BoatNo: 1},
	})
	r := newRegistry(enumFeed, &fakeRaceStore{}, programs)

	if _, err := r.EnumerateDay(context.Background(), operatingDay); err != nil {
		t.Fatalf("EnumerateDay failed: %v", err)
	}
	if len(programs.entries[key.String()]) != 1 {
		t.Fatalf("existing program must stay untouched, got %d entries",
			len(programs.entries[key.String()]))
	}
}
