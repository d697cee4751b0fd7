// Package metrics provides the centralized Prometheus registry for the
// virtual betting engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	WagersPlannedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "wagers_planned_total",
		Help:      "Total number of wagers inserted by morning planning",
	})
	OddsSamplesWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "odds_samples_written_total",
		Help:      "Total number of odds samples persisted",
	})
	SamplerDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "sampler_dropped_total",
		Help:      "Races dropped by sampler cycles that overran their period",
	})
	DecisionsConfirmedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "decisions_confirmed_total",
		Help:      "Total number of wagers confirmed at the decision point",
	})
	DecisionsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "decisions_skipped_total",
		Help:      "Total number of wagers skipped at the decision point",
	})
	SettlementsWonTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "settlements_won_total",
		Help:      "Total number of wagers settled as won",
	})
	SettlementsLostTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "settlements_lost_total",
		Help:      "Total number of wagers settled as lost",
	})
	ExpiredSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "expired_swept_total",
		Help:      "Pending wagers expired by the deadline sweeper",
	})
	ReconcileDeferredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "reconcile_deferred_total",
		Help:      "Settlements deferred on missing or inconsistent results",
	})
	FeedErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kyotei_bot",
		Name:      "feed_errors_total",
		Help:      "Upstream feed failures after retry exhaustion",
	}, []string{"endpoint"})
)

// Gauge metrics
var (
	FundBalance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kyotei_bot",
		Name:      "fund_balance_yen",
		Help:      "Current virtual fund balance per strategy",
	}, []string{"strategy"})
	PendingWagers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kyotei_bot",
		Name:      "pending_wagers",
		Help:      "Wagers currently awaiting their decision point",
	})
)

// Histogram metrics
var (
	TickDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kyotei_bot",
		Name:      "tick_duration_seconds",
		Help:      "Duration of periodic ticks in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tick"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(WagersPlannedTotal)
		registry.MustRegister(OddsSamplesWrittenTotal)
		registry.MustRegister(SamplerDroppedTotal)
		registry.MustRegister(DecisionsConfirmedTotal)
		registry.MustRegister(DecisionsSkippedTotal)
		registry.MustRegister(SettlementsWonTotal)
		registry.MustRegister(SettlementsLostTotal)
		registry.MustRegister(ExpiredSweptTotal)
		registry.MustRegister(ReconcileDeferredTotal)
		registry.MustRegister(FeedErrorsTotal)

		registry.MustRegister(FundBalance)
		registry.MustRegister(PendingWagers)

		registry.MustRegister(TickDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
