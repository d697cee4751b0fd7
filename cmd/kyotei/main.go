// Package main provides the operational CLI: planning, sampling, decision
// and reconcile ticks as one-shot commands, plus strategy seeding and the
// per-strategy summary.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/kyotei-bot/internal/backtest"
	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/config"
	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/engine"
	"github.com/yourusername/kyotei-bot/internal/feed"
	"github.com/yourusername/kyotei-bot/internal/ledger"
	applogger "github.com/yourusername/kyotei-bot/internal/logger"
	"github.com/yourusername/kyotei-bot/internal/models"
	"github.com/yourusername/kyotei-bot/internal/reconciler"
	"github.com/yourusername/kyotei-bot/internal/registry"
	"github.com/yourusername/kyotei-bot/internal/repository"
	"github.com/yourusername/kyotei-bot/internal/sampler"
	"github.com/yourusername/kyotei-bot/internal/strategy"
)

// Build information - set via ldflags
var (
	Version = "dev"
)

var (
	configFile string
	dayFlag    string
	fromFlag   string
	toFlag     string
	stratFlag  string

	logger     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
	feedClient *feed.Client
	clk        clock.Clock
	reg        *registry.Registry
	eng        *engine.Engine
	smp        *sampler.Sampler
	led        *ledger.Ledger
	rec        *reconciler.Reconciler
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	planDayCmd.Flags().StringVar(&dayFlag, "day", "", "Operating day (YYYY-MM-DD, default today)")
	summaryCmd.Flags().StringVar(&dayFlag, "day", "", "Restrict to one operating day (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&stratFlag, "strategy", "", "Strategy name to replay (required)")
	backtestCmd.Flags().StringVar(&fromFlag, "from", "", "First operating day (YYYY-MM-DD, required)")
	backtestCmd.Flags().StringVar(&toFlag, "to", "", "Last operating day (YYYY-MM-DD, default --from)")
	_ = backtestCmd.MarkFlagRequired("strategy")
	_ = backtestCmd.MarkFlagRequired("from")
}

var rootCmd = &cobra.Command{
	Use:   "kyotei",
	Short: "Virtual boat-race betting engine",
	Long:  `Plans, decides, and reconciles virtual wagers against the collector feeds.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var initStrategiesCmd = &cobra.Command{
	Use:   "init-strategies",
	Short: "Seed the strategy catalogue from configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return initStrategies(cmd.Context())
	},
}

var planDayCmd = &cobra.Command{
	Use:   "plan-day",
	Short: "Enumerate races and plan wagers for the day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := resolveDay()
		if err != nil {
			return err
		}
		return planDay(cmd.Context(), day)
	},
}

var tickBackgroundCmd = &cobra.Command{
	Use:   "tick-odds-background",
	Short: "Run one background odds sampling cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return smp.TickBackground(cmd.Context())
	},
}

var tickImminentCmd = &cobra.Command{
	Use:   "tick-odds-imminent",
	Short: "Run one imminent odds sampling cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return smp.TickImminent(cmd.Context())
	},
}

var tickDecisionsCmd = &cobra.Command{
	Use:   "tick-decisions",
	Short: "Decide pending wagers inside the decision window, then sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := eng.TickDecisions(cmd.Context())
		return err
	},
}

var sweepExpiredCmd = &cobra.Command{
	Use:   "sweep-expired",
	Short: "Expire pending wagers whose deadline has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		swept, err := eng.SweepExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Swept %d expired wagers\n", swept)
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Settle confirmed wagers against published results",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := rec.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Reconciled: %d won, %d lost, %d canceled, %d deferred\n",
			report.Won, report.Lost, report.Canceled, report.Deferred)
		return nil
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a strategy over stored odds and results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBacktest(cmd.Context())
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print per-strategy wager and fund summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSummary(cmd.Context())
	},
}

func main() {
	rootCmd.AddCommand(initStrategiesCmd, planDayCmd,
		tickBackgroundCmd, tickImminentCmd, tickDecisionsCmd,
		sweepExpiredCmd, reconcileCmd, backtestCmd, summaryCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setupDependencies() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = applogger.NewLogger(cfg.App.LogLevel)

	clk, err = clock.NewSystemClock(cfg.App.OperatingTimezone)
	if err != nil {
		return err
	}

	db, err = database.NewDB(context.Background(), &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	repos = repository.NewRepositories(db)

	feedClient = feed.NewClient(feed.ClientConfig{
		BaseURL: cfg.Feed.BaseURL,
		HTTP: feed.HTTPClientConfig{
			Timeout:           cfg.Feed.HTTPTimeout(),
			MaxRetries:        cfg.Feed.HTTPRetries,
			RetryWaitMin:      100 * time.Millisecond,
			RetryWaitMax:      10 * time.Second,
			RateLimit:         cfg.Feed.RateLimitPerSecond,
			CircuitBreakerMax: 5,
		},
		CacheTTL: time.Duration(cfg.Feed.CacheTTLSeconds) * time.Second,
	}, logger)

	reg = registry.NewRegistry(feedClient, repos.Race, repos.Program, clk, logger)
	eng = engine.NewEngine(repos, clk, cfg.Betting, logger)
	smp = sampler.NewSampler(feedClient, repos.Race, repos.Odds, clk, cfg.Sampler, logger)
	led = ledger.NewLedger(db, repos.Wager, repos.Fund, repos.Race, logger)
	rec = reconciler.NewReconciler(feedClient, repos.Wager, repos.Result, led, clk, logger)
	return nil
}

func resolveDay() (time.Time, error) {
	if dayFlag == "" {
		return clock.OperatingDay(clk.Now()), nil
	}
	day, err := time.ParseInLocation("2006-01-02", dayFlag, clk.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --day %q: %w", dayFlag, err)
	}
	return day, nil
}

func initStrategies(ctx context.Context) error {
	limits := strategy.StakeLimits{
		MinStake: cfg.Betting.MinStake,
		MaxStake: cfg.Betting.MaxStake,
		Tick:     cfg.Betting.StakeTick,
	}

	for _, sc := range cfg.Strategies {
		params, err := sc.ParamsJSON()
		if err != nil {
			return err
		}
		row := &models.Strategy{
			Name:       sc.Name,
			Kind:       models.StrategyKind(sc.Kind),
			Parameters: params,
			Enabled:    sc.Enabled,
		}
		// a parameter typo should fail the seed, not the first tick
		if _, err := strategy.Build(row, limits); err != nil {
			return fmt.Errorf("strategy %s: %w", sc.Name, err)
		}

		stored, err := repos.Strategy.UpsertByName(ctx, row)
		if err != nil {
			return err
		}
		if err := repos.Fund.EnsureAccount(ctx, stored.ID, cfg.Betting.InitialFundBalance); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"strategy": stored.Name,
			"kind":     stored.Kind,
			"enabled":  stored.Enabled,
		}).Info("Seeded strategy")
	}
	return nil
}

func planDay(ctx context.Context, day time.Time) error {
	report, err := reg.EnumerateDay(ctx, day)
	if err != nil {
		return err
	}
	if report.Degraded {
		logger.Warn("Planning on a degraded race snapshot")
	}

	plan, err := eng.PlanDay(ctx, day)
	if err != nil {
		return err
	}
	fmt.Printf("Planned %d wagers (%d gate-skipped, %d already present) over %d races\n",
		plan.Planned, plan.Skipped, plan.Existed, len(report.Races))
	return nil
}

func runBacktest(ctx context.Context) error {
	strat, err := repos.Strategy.GetByName(ctx, stratFlag)
	if err != nil {
		return fmt.Errorf("strategy %q: %w", stratFlag, err)
	}

	from, err := time.ParseInLocation("2006-01-02", fromFlag, clk.Location())
	if err != nil {
		return fmt.Errorf("invalid --from %q: %w", fromFlag, err)
	}
	to := from
	if toFlag != "" {
		to, err = time.ParseInLocation("2006-01-02", toFlag, clk.Location())
		if err != nil {
			return fmt.Errorf("invalid --to %q: %w", toFlag, err)
		}
	}
	if to.Before(from) {
		return fmt.Errorf("--to must not precede --from")
	}

	replay := backtest.NewReplay(repos, logger)
	report, err := replay.Run(ctx, strat, backtest.Config{
		StartDay:       from,
		EndDay:         to,
		InitialBalance: cfg.Betting.InitialFundBalance,
		Limits: strategy.StakeLimits{
			MinStake: cfg.Betting.MinStake,
			MaxStake: cfg.Betting.MaxStake,
			Tick:     cfg.Betting.StakeTick,
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s over %s..%s\n", report.StrategyName,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("  %d bets, %d hits (%.1f%%), staked %d, payout %d, profit %+d, ROI %+.1f%%\n",
		report.Bets, report.Hits, report.HitRate(),
		report.TotalStaked, report.TotalPayout, report.Profit(), report.ROI())
	fmt.Printf("  balance %d -> %d (peak %d, max drawdown %d)\n",
		report.InitialBalance, report.Balance, report.PeakBalance, report.MaxDrawdown)
	fmt.Printf("  not bet: %d gate-failed, %d no odds, %d skipped at odds, %d unresolved, %d canceled\n",
		report.GateFailed, report.NoOdds, report.SkippedAtOdds, report.Unresolved, report.Canceled)
	for _, day := range report.Days {
		fmt.Printf("  %s: %d bets, %d hits, profit %+d\n",
			day.Day.Format("2006-01-02"), day.Bets, day.Hits, day.Payout-day.Staked)
	}
	return nil
}

func printSummary(ctx context.Context) error {
	var day *time.Time
	if dayFlag != "" {
		d, err := resolveDay()
		if err != nil {
			return err
		}
		day = &d
	}

	summaries, err := repos.Wager.SummarizeByStrategy(ctx, day)
	if err != nil {
		return err
	}

	for _, s := range summaries {
		strat, err := repos.Strategy.GetByID(ctx, s.StrategyID)
		name := s.StrategyID.String()
		if err == nil {
			name = strat.Name
		}

		fmt.Printf("%s: %d wagers (%d won, %d lost, %d skipped, %d canceled, %d open), staked %d, payout %d, profit %+d\n",
			name, s.Total, s.Won, s.Lost, s.Skipped, s.Canceled, s.Pending+s.Confirmed,
			s.TotalStaked, s.TotalPayout, s.Profit())

		fund, err := repos.Fund.GetByStrategy(ctx, s.StrategyID)
		if err == nil {
			fmt.Printf("  fund: balance %d (initial %d), %d bets, %d hits, hit rate %.1f%%, ROI %+.1f%%\n",
				fund.CurrentBalance, fund.InitialBalance, fund.TotalBets, fund.TotalHits,
				fund.HitRate(), fund.ROI())
		}
	}
	return nil
}
