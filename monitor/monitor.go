// monitor/monitor.go
package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/highcard/game"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	QueuedPlayers    *prometheus.GaugeVec
	Matches          *prometheus.CounterVec
	BotsSeated       prometheus.Counter
	RoundsResolved   prometheus.Counter
	RoundTies        prometheus.Counter
	GamesFinished    prometheus.Counter
	Actions          *prometheus.CounterVec
	ActionLatency    prometheus.Histogram
	MessagesReceived prometheus.Counter
	MessageLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of online players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		QueuedPlayers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_players",
			Help:      "Players waiting for a match, per stake",
		}, []string{"stake"}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Rooms filled by the matchmaker",
		}, []string{"stake", "bot_fill"}),
		BotsSeated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bots_seated_total",
			Help:      "Bot seats added by the matchmaker",
		}),
		RoundsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_resolved_total",
			Help:      "Rounds that ended with a winner or no survivors",
		}),
		RoundTies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_ties_total",
			Help:      "Showdowns that tied and were redealt",
		}),
		GamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games ended by a win streak",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Player actions by outcome",
		}, []string{"action", "outcome"}),
		ActionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Time to apply a player action inside its room",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlinePlayers,
		m.ActiveRooms,
		m.QueuedPlayers,
		m.Matches,
		m.BotsSeated,
		m.RoundsResolved,
		m.RoundTies,
		m.GamesFinished,
		m.Actions,
		m.ActionLatency,
		m.MessagesReceived,
		m.MessageLatency,
	}
}

// Monitor 持有独立的 registry，可以在同一进程（测试）里创建多个。
// 它同时实现 room.Recorder、matchmaker.Recorder 和 game.EventSink。
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
	)
	return m
}

func (m *Monitor) Metrics() *Metrics { return m.metrics }

func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

// Handler serves /metrics for this monitor's registry.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// --- room.Recorder ---

func (m *Monitor) RoomOpened(int64) { m.metrics.ActiveRooms.Inc() }
func (m *Monitor) RoomClosed(int64) { m.metrics.ActiveRooms.Dec() }

func (m *Monitor) ActionHandled(a game.Action, out game.Outcome, took time.Duration) {
	m.metrics.Actions.WithLabelValues(a.String(), out.String()).Inc()
	m.metrics.ActionLatency.Observe(took.Seconds())
}

// --- matchmaker.Recorder ---

func (m *Monitor) QueueDepth(stake int64, n int) {
	m.metrics.QueuedPlayers.WithLabelValues(strconv.FormatInt(stake, 10)).Set(float64(n))
}

func (m *Monitor) Matched(stake int64, _, bots int) {
	m.metrics.Matches.WithLabelValues(strconv.FormatInt(stake, 10), strconv.FormatBool(bots > 0)).Inc()
	m.metrics.BotsSeated.Add(float64(bots))
}

// --- game.EventSink ---

func (m *Monitor) StateChanged(string, game.Snapshot) {}
func (m *Monitor) RoundTie(string, game.Snapshot)     { m.metrics.RoundTies.Inc() }
func (m *Monitor) RoundOver(string, game.RoundResult) { m.metrics.RoundsResolved.Inc() }
func (m *Monitor) GameOver(string, game.GameResult)   { m.metrics.GamesFinished.Inc() }
