package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is what the match service records. Noop is used when metrics are disabled.
type Metrics interface {
	CommandApplied(command, outcome string)
	MatchTransition(status string)
	GameEventReceived(kind, outcome string)
	ConfigPushed(outcome string, elapsed time.Duration)
	ActiveMatches(n int)
}

type prometheusMetrics struct {
	commands      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	gameEvents    *prometheus.CounterVec
	pushDuration  *prometheus.HistogramVec
	activeMatches prometheus.Gauge
}

func NewPrometheus(registry *prometheus.Registry) Metrics {
	factory := promauto.With(registry)
	return &prometheusMetrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "csmatch_commands_total",
			Help: "Match commands applied, by command and outcome",
		}, []string{"command", "outcome"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "csmatch_status_transitions_total",
			Help: "Match status transitions, by target status",
		}, []string{"status"}),
		gameEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "csmatch_game_events_total",
			Help: "Game server callbacks received, by kind and outcome",
		}, []string{"kind", "outcome"}),
		pushDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "csmatch_config_push_duration_ms",
			Help:    "Time spent pushing match configs to game servers in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		}, []string{"outcome"}),
		activeMatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "csmatch_active_matches",
			Help: "Matches currently held in memory",
		}),
	}
}

func (m *prometheusMetrics) CommandApplied(command, outcome string) {
	m.commands.With(prometheus.Labels{"command": command, "outcome": outcome}).Inc()
}

func (m *prometheusMetrics) MatchTransition(status string) {
	m.transitions.With(prometheus.Labels{"status": status}).Inc()
}

func (m *prometheusMetrics) GameEventReceived(kind, outcome string) {
	m.gameEvents.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Inc()
}

func (m *prometheusMetrics) ConfigPushed(outcome string, elapsed time.Duration) {
	m.pushDuration.With(prometheus.Labels{"outcome": outcome}).Observe(float64(elapsed.Milliseconds()))
}

func (m *prometheusMetrics) ActiveMatches(n int) {
	m.activeMatches.Set(float64(n))
}

// Handler serves the registry in the prometheus text format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

type noop struct{}

func Noop() Metrics { return noop{} }

func (noop) CommandApplied(string, string) {}
func (noop) MatchTransition(string) {}
func (noop) GameEventReceived(string, string) {}
func (noop) ConfigPushed(string, time.Duration) {}
func (noop) ActiveMatches(int) {}
