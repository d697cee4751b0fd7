// Package main provides the long-running betting daemon: the cron-driven
// tick loop plus health and metrics endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/kyotei-bot/internal/clock"
	"github.com/yourusername/kyotei-bot/internal/config"
	"github.com/yourusername/kyotei-bot/internal/database"
	"github.com/yourusername/kyotei-bot/internal/engine"
	"github.com/yourusername/kyotei-bot/internal/feed"
	"github.com/yourusername/kyotei-bot/internal/health"
	"github.com/yourusername/kyotei-bot/internal/ledger"
	applogger "github.com/yourusername/kyotei-bot/internal/logger"
	"github.com/yourusername/kyotei-bot/internal/metrics"
	"github.com/yourusername/kyotei-bot/internal/reconciler"
	"github.com/yourusername/kyotei-bot/internal/registry"
	"github.com/yourusername/kyotei-bot/internal/repository"
	"github.com/yourusername/kyotei-bot/internal/sampler"
	"github.com/yourusername/kyotei-bot/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version = "dev"
)

func main() {
	configFile := os.Getenv("KYOTEI_BOT_CONFIG")
	if configFile == "" {
		configFile = "config/config.yaml"
	}

	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := applogger.NewLogger(cfg.App.LogLevel)
	logger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("Betting daemon starting")

	clk, err := clock.NewSystemClock(cfg.App.OperatingTimezone)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load operating timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to ensure schema")
	}

	repos := repository.NewRepositories(db)

	feedClient := feed.NewClient(feed.ClientConfig{
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

	reg := registry.NewRegistry(feedClient, repos.Race, repos.Program, clk, logger)
	eng := engine.NewEngine(repos, clk, cfg.Betting, logger)
	smp := sampler.NewSampler(feedClient, repos.Race, repos.Odds, clk, cfg.Sampler, logger)
	led := ledger.NewLedger(db, repos.Wager, repos.Fund, repos.Race, logger)
	rec := reconciler.NewReconciler(feedClient, repos.Wager, repos.Result, led, clk, logger)

	sched := scheduler.NewScheduler(clk.Location(), logger)

	err = sched.ScheduleCron("plan_day", cfg.Betting.PlanCron, func(ctx context.Context) error {
		day := clock.OperatingDay(clk.Now())
		if _, err := reg.EnumerateDay(ctx, day); err != nil {
			return err
		}
		_, err := eng.PlanDay(ctx, day)
		return err
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule planning job")
	}

	jobs := []struct {
		name   string
		period time.Duration
		fn     scheduler.TickFunc
	}{
		{"sample_background",
			time.Duration(cfg.Sampler.BackgroundPeriodSeconds) * time.Second,
			smp.TickBackground},
		{"sample_imminent",
			time.Duration(cfg.Sampler.ImminentPeriodSeconds) * time.Second,
			smp.TickImminent},
		{"decisions",
			time.Duration(cfg.Betting.DecisionPeriodSeconds) * time.Second,
			func(ctx context.Context) error {
				_, err := eng.TickDecisions(ctx)
				return err
			}},
		{"reconcile",
			time.Duration(cfg.Betting.ReconcilePeriodSeconds) * time.Second,
			func(ctx context.Context) error {
				report, err := rec.Reconcile(ctx)
				if err != nil {
					return err
				}
				updateFundGauges(ctx, repos, report)
				return nil
			}},
	}
	for _, job := range jobs {
		if err := sched.ScheduleEvery(job.name, job.period, job.fn); err != nil {
			logger.WithError(err).WithField("job", job.name).Fatal("Failed to schedule job")
		}
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Port:        cfg.Health.Port,
		Logger:      logger,
		DB:          db,
		Scheduler:   sched,
	})
	if err := healthServer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start health server")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Metrics server error")
			}
		}()
	}

	if err := sched.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}
	healthServer.SetReady(true)
	logger.Info("Betting daemon running")

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	healthServer.SetReady(false)

	// in-flight ticks run to their next commit point before the stop
	// returns
	if err := sched.Stop(); err != nil {
		logger.WithError(err).Error("Scheduler stop failed")
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Metrics server shutdown failed")
		}
	}
	logger.Info("Betting daemon stopped")
}

// updateFundGauges refreshes the per-strategy balance gauges after a
// reconcile pass touched the ledger.
func updateFundGauges(ctx context.Context, repos *repository.Repositories, report *reconciler.Report) {
	if report.Won+report.Lost == 0 {
		return
	}
	accounts, err := repos.Fund.ListAll(ctx)
	if err != nil {
		return
	}
	for _, account := range accounts {
		name := account.StrategyID.String()
		if s, err := repos.Strategy.GetByID(ctx, account.StrategyID); err == nil {
			name = s.Name
		}
		metrics.FundBalance.WithLabelValues(name).Set(float64(account.CurrentBalance))
	}
}
