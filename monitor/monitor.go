// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineSessions  prometheus.Gauge
	ActiveGames     prometheus.Gauge
	GamesStarted    prometheus.Counter
	GamesFinished   *prometheus.CounterVec
	Rolls           *prometheus.CounterVec
	Captures        prometheus.Counter
	BonusGates      *prometheus.CounterVec
	RequestsHandled prometheus.Counter
	RequestLatency  prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of connected websocket sessions",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of games in progress",
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Total number of games created or resumed",
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Total number of games won, by winner",
		}, []string{"winner"}),
		Rolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rolls_total",
			Help:      "Dice rolls by value",
		}, []string{"value"}),
		Captures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Total number of captures",
		}),
		BonusGates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bonus_gates_total",
			Help:      "Gated rosette verdicts, by outcome",
		}, []string{"verdict"}),
		RequestsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_handled_total",
			Help:      "Total number of game operations handled",
		}),
		RequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "Game operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	reg.MustRegister(
		m.OnlineSessions,
		m.ActiveGames,
		m.GamesStarted,
		m.GamesFinished,
		m.Rolls,
		m.Captures,
		m.BonusGates,
		m.RequestsHandled,
		m.RequestLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
	server       *http.Server
}

// NewMonitor creates a monitor with its own registry so several instances can
// coexist in tests.
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the prometheus metrics of this monitor.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var publishOnce sync.Once

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	// 添加expvar指标
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})
	mux.Handle("/debug/vars", expvar.Handler())

	m.server = &http.Server{Addr: addr, Handler: mux}
	go m.server.ListenAndServe()
}

func (m *Monitor) Stop() error {
	if m.server == nil {
		return nil
	}
	return m.server.Close()
}

func (m *Monitor) IncOnlineSessions() {
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) DecOnlineSessions() {
	m.metrics.OnlineSessions.Dec()
}

func (m *Monitor) SetActiveGames(count int) {
	m.metrics.ActiveGames.Set(float64(count))
}

func (m *Monitor) GameStarted() {
	m.metrics.GamesStarted.Inc()
}

func (m *Monitor) GameFinished(winner string) {
	m.metrics.GamesFinished.WithLabelValues(winner).Inc()
}

func (m *Monitor) ObserveRoll(value int) {
	m.metrics.Rolls.WithLabelValues(strconv.Itoa(value)).Inc()
}

func (m *Monitor) IncCaptures() {
	m.metrics.Captures.Inc()
}

func (m *Monitor) ObserveBonusGate(earned bool) {
	verdict := "forfeited"
	if earned {
		verdict = "earned"
	}
	m.metrics.BonusGates.WithLabelValues(verdict).Inc()
}

func (m *Monitor) IncRequestsHandled() {
	m.metrics.RequestsHandled.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveRequestLatency(duration time.Duration) {
	m.metrics.RequestLatency.Observe(duration.Seconds())
}
