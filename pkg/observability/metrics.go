package observability

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/lander/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lander"

// Metrics holds the funnel collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sessions    *prometheus.CounterVec
	stepEnters  *prometheus.CounterVec
	reveals     *prometheus.CounterVec
	completions *prometheus.CounterVec
	ended       *prometheus.CounterVec
	staleTimers *prometheus.CounterVec
	stepTime    *prometheus.HistogramVec

	mu      sync.Mutex
	entered map[string]time.Time // session -> entry time of its current step
}

// NewMetrics creates and registers the funnel collectors along with the Go runtime ones.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of funnel sessions started",
		}, []string{"funnel"}),
		stepEnters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_enter_total",
			Help:      "Total number of step entries",
		}, []string{"funnel", "step", "kind"}),
		reveals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_revealed_total",
			Help:      "Total number of transcript lines revealed",
		}, []string{"funnel", "speaker"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of sessions that reached the terminal step",
		}, []string{"funnel"}),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of sessions torn down, by whether they reached the terminal step",
		}, []string{"funnel", "completed"}),
		staleTimers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_timers_total",
			Help:      "Timer callbacks discarded because their step had moved on",
		}, []string{"funnel", "timer"}),
		stepTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent in a step before leaving it",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"funnel", "kind"}),
		entered: make(map[string]time.Time),
	}

	m.registry.MustRegister(
		m.sessions, m.stepEnters, m.reveals, m.completions, m.ended, m.staleTimers, m.stepTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, e.g. to add gauges.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackLiveSessions exports a gauge backed by fn.
func (m *Metrics) TrackLiveSessions(fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_live",
		Help:      "Number of live funnel sessions",
	}, func() float64 { return float64(fn()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			if e.Step == 1 {
				m.sessions.WithLabelValues(e.FunnelID).Inc()
			}
			m.stepEnters.WithLabelValues(e.FunnelID, strconv.Itoa(e.Step), string(e.Kind)).Inc()

			m.mu.Lock()
			defer m.mu.Unlock()
			if e.Kind == domain.StepTerminal {
				// Terminal is never left; stop tracking the session.
				delete(m.entered, e.SessionID)
				return
			}
			m.entered[e.SessionID] = e.Timestamp
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			m.mu.Lock()
			since, ok := m.entered[e.SessionID]
			m.mu.Unlock()
			if ok {
				m.stepTime.WithLabelValues(e.FunnelID, string(e.Kind)).Observe(e.Timestamp.Sub(since).Seconds())
			}
		},
		OnReveal: func(_ context.Context, e *domain.RevealEvent) {
			m.reveals.WithLabelValues(e.FunnelID, string(e.Message.Speaker)).Inc()
		},
		OnTerminal: func(_ context.Context, e *domain.TerminalEvent) {
			m.completions.WithLabelValues(e.FunnelID).Inc()
		},
		OnStaleTimer: func(_ context.Context, e *domain.StaleTimerEvent) {
			m.staleTimers.WithLabelValues(e.FunnelID, string(e.Timer)).Inc()
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.ended.WithLabelValues(e.FunnelID, strconv.FormatBool(e.Terminal)).Inc()
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.entered, e.SessionID)
		},
	}
}
