package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/metrics"
	"github.com/yourusername/kyotei-bot/internal/models"
)

// Client consumes the collector HTTP API. Responses fetched repeatedly
// within a single command invocation are cached in-process; each command
// is a fresh process, so nothing survives past its tick.
type Client struct {
	baseURL string
	http    *RateLimitedHTTPClient
	cache   *gocache.Cache
	logger  *logrus.Logger
}

// ClientConfig holds the collector API client settings
type ClientConfig struct {
	BaseURL  string
	HTTP     HTTPClientConfig
	CacheTTL time.Duration
}

// NewClient creates a collector API client
func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    NewRateLimitedHTTPClient(cfg.HTTP, nil),
		cache:   gocache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

// wire DTOs

type raceListResponse struct {
	Races []struct {
		StadiumCode string     `json:"stadium_code"`
		RaceNumber  int        `json:"race_number"`
		Title       string     `json:"title"`
		DeadlineAt  *time.Time `json:"deadline_at"`
	} `json:"races"`
}

type programResponse struct {
	Entries []struct {
		BoatNo          int     `json:"boat_no"`
		RacerNumber     int     `json:"racer_number"`
		RacerName       string  `json:"racer_name"`
		ClassRank       string  `json:"class_rank"`
		NationalWinRate *string `json:"national_win_rate"`
		LocalWinRate    *string `json:"local_win_rate"`
		MotorTop2Rate   *string `json:"motor_top2_rate"`
		BoatTop2Rate    *string `json:"boat_top2_rate"`
	} `json:"entries"`
}

type oddsResponse struct {
	Odds map[string]string `json:"odds"`
}

type resultResponse struct {
	IsCanceled     bool  `json:"is_canceled"`
	FinishingOrder []int `json:"finishing_order"`
	Payoffs        []struct {
		BetType     string `json:"bet_type"`
		Combination string `json:"combination"`
		Amount      int64  `json:"amount"`
	} `json:"payoffs"`
}

// EnumerateRaces lists the races scheduled for the given civil day
func (c *Client) EnumerateRaces(ctx context.Context, day time.Time) ([]RaceEntry, error) {
	endpoint := fmt.Sprintf("%s/api/v1/races?date=%s", c.baseURL, day.Format("20060102"))

	var resp raceListResponse
	if err := c.getJSON(ctx, "races", endpoint, &resp); err != nil {
		return nil, err
	}

	entries := make([]RaceEntry, 0, len(resp.Races))
	for _, r := range resp.Races {
		if r.RaceNumber < 1 || r.RaceNumber > 12 || len(r.StadiumCode) != 2 {
			c.logger.WithFields(logrus.Fields{
				"stadium_code": r.StadiumCode,
				"race_number":  r.RaceNumber,
			}).Warn("Dropping race entry with out-of-contract identity")
			continue
		}
		entries = append(entries, RaceEntry{
			StadiumCode: r.StadiumCode,
			RaceNumber:  r.RaceNumber,
			Title:       r.Title,
			DeadlineAt:  r.DeadlineAt,
		})
	}
	return entries, nil
}

// FetchProgram returns the six-entry sheet for a race
func (c *Client) FetchProgram(ctx context.Context, key models.RaceKey) (models.Program, error) {
	endpoint := fmt.Sprintf("%s/api/v1/programs?%s", c.baseURL, raceQuery(key))

	cacheKey := "program:" + key.String()
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(models.Program), nil
	}

	var resp programResponse
	if err := c.getJSON(ctx, "programs", endpoint, &resp); err != nil {
		return nil, err
	}

	program := make(models.Program, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		entry := &models.ProgramEntry{
			RaceKey:         key,
			BoatNo:          e.BoatNo,
			RacerNumber:     e.RacerNumber,
			RacerName:       e.RacerName,
			ClassRank:       models.ClassRank(e.ClassRank),
			NationalWinRate: parseRate(e.NationalWinRate),
			LocalWinRate:    parseRate(e.LocalWinRate),
			MotorTop2Rate:   parseRate(e.MotorTop2Rate),
			BoatTop2Rate:    parseRate(e.BoatTop2Rate),
		}
		program = append(program, entry)
	}

	c.cache.SetDefault(cacheKey, program)
	return program, nil
}

// FetchOdds returns the current combination→odds mapping for a family
func (c *Client) FetchOdds(ctx context.Context, key models.RaceKey, family models.BetFamily) (map[string]decimal.Decimal, error) {
	code, ok := WireCode(family)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownBetFamily, family)
	}
	endpoint := fmt.Sprintf("%s/api/v1/odds?%s&type=%s", c.baseURL, raceQuery(key), code)

	var resp oddsResponse
	if err := c.getJSON(ctx, "odds", endpoint, &resp); err != nil {
		return nil, err
	}

	values := make(map[string]decimal.Decimal, len(resp.Odds))
	for comboText, oddsText := range resp.Odds {
		combo, err := models.ParseCombination(family, comboText)
		if err != nil {
			c.logger.WithError(err).WithField("combination", comboText).Warn("Dropping malformed combination from odds feed")
			continue
		}
		v, err := decimal.NewFromString(oddsText)
		if err != nil || v.IsNegative() {
			continue
		}
		values[combo.String()] = v
	}
	return values, nil
}

// FetchResult returns the settled outcome for a race
func (c *Client) FetchResult(ctx context.Context, key models.RaceKey) (*models.RaceResult, error) {
	endpoint := fmt.Sprintf("%s/api/v1/results?%s", c.baseURL, raceQuery(key))

	var resp resultResponse
	if err := c.getJSON(ctx, "results", endpoint, &resp); err != nil {
		return nil, err
	}

	result := &models.RaceResult{
		RaceKey:    key,
		IsCanceled: resp.IsCanceled,
		FetchedAt:  time.Now(),
	}
	if len(resp.FinishingOrder) > 0 {
		result.FirstPlace = resp.FinishingOrder[0]
	}
	if len(resp.FinishingOrder) > 1 {
		result.SecondPlace = resp.FinishingOrder[1]
	}
	if len(resp.FinishingOrder) > 2 {
		result.ThirdPlace = resp.FinishingOrder[2]
	}

	for _, p := range resp.Payoffs {
		family, ok := FamilyFromWire(p.BetType)
		if !ok {
			c.logger.WithField("bet_type", p.BetType).Warn("Dropping payoff with unknown bet type")
			continue
		}
		combo, err := models.ParseCombination(family, p.Combination)
		if err != nil {
			c.logger.WithError(err).WithField("combination", p.Combination).Warn("Dropping malformed payoff combination")
			continue
		}
		result.Payoffs = append(result.Payoffs, models.Payoff{
			BetFamily:    family,
			Combination:  combo.String(),
			AmountPer100: p.Amount,
		})
	}

	return result, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	resp, err := c.http.Get(ctx, rawURL)
	if err != nil {
		metrics.FeedErrorsTotal.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("feed request failed for %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		metrics.FeedErrorsTotal.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("feed returned status %d for %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read feed response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode feed response for %s: %w", endpoint, err)
	}
	return nil
}

func raceQuery(key models.RaceKey) string {
	q := url.Values{}
	q.Set("date", key.RaceDate.Format("20060102"))
	q.Set("stadium", key.StadiumCode)
	q.Set("race", strconv.Itoa(key.RaceNumber))
	return q.Encode()
}

func parseRate(s *string) *decimal.Decimal {
	if s == nil || *s == "" {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}
