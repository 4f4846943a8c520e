// Package metrics exports the garage controller's activity as Prometheus
// metrics. Metrics implements garage.Observer; the controller calls it
// from its loop, so every method must return quickly.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/garagedoor/internal/garage"
)

const namespace = "garagedoor"

var _ garage.Observer = (*Metrics)(nil)

// states lists every connection state exported by the state gauge.
var states = []garage.State{
	garage.StateDisconnected,
	garage.StateConnecting,
	garage.StateConnected,
	garage.StateSubscribing,
	garage.StateSubscribed,
	garage.StateAuthFailed,
}

// Metrics contains all Prometheus metrics for the garage controller.
type Metrics struct {
	connectionState  *prometheus.GaugeVec
	transitionsTotal *prometheus.CounterVec
	connectsTotal    *prometheus.CounterVec
	messagesTotal    *prometheus.CounterVec
	doorOpen         *prometheus.GaugeVec
	actuationsTotal  *prometheus.CounterVec
	suppressedTotal  *prometheus.CounterVec
	deadlinesTotal   *prometheus.CounterVec
}

// New creates the metrics and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register garage metrics: %w", err)
	}
	m.StateChanged(garage.StateDisconnected, garage.StateDisconnected)
	return m, nil
}

// initMetrics initializes all metrics.
func (m *Metrics) initMetrics() {
	m.connectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of connection state transitions",
		},
		[]string{"from", "to"},
	)

	m.connectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Total number of connect attempts",
		},
		[]string{"trigger"}, // trigger: user, automatic
	)

	m.messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received from the broker",
		},
		[]string{"door"}, // door: left, right, other
	)

	m.doorOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "door_open",
			Help:      "Door sensor state (1 open, 0 closed, -1 unknown)",
		},
		[]string{"door"},
	)

	m.actuationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuations_total",
			Help:      "Total number of relay commands published",
		},
		[]string{"door", "payload"},
	)

	m.suppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_suppressed_total",
			Help:      "Total number of releases dropped because the press was held too long",
		},
		[]string{"door"},
	)

	m.deadlinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deadlines_expired_total",
			Help:      "Total number of connect and subscribe deadlines that expired",
		},
		[]string{"kind"},
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.connectionState.Describe(ch)
	m.transitionsTotal.Describe(ch)
	m.connectsTotal.Describe(ch)
	m.messagesTotal.Describe(ch)
	m.doorOpen.Describe(ch)
	m.actuationsTotal.Describe(ch)
	m.suppressedTotal.Describe(ch)
	m.deadlinesTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.connectionState.Collect(ch)
	m.transitionsTotal.Collect(ch)
	m.connectsTotal.Collect(ch)
	m.messagesTotal.Collect(ch)
	m.doorOpen.Collect(ch)
	m.actuationsTotal.Collect(ch)
	m.suppressedTotal.Collect(ch)
	m.deadlinesTotal.Collect(ch)
}

// StateChanged moves the state gauge and counts the transition.
func (m *Metrics) StateChanged(from, to garage.State) {
	for _, s := range states {
		v := 0.0
		if s == to {
			v = 1
		}
		m.connectionState.WithLabelValues(s.String()).Set(v)
	}
	if from != to {
		m.transitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
	}
}

// ConnectAttempt counts a connect attempt.
func (m *Metrics) ConnectAttempt(automatic bool) {
	trigger := "user"
	if automatic {
		trigger = "automatic"
	}
	m.connectsTotal.WithLabelValues(trigger).Inc()
}

// MessageReceived counts a delivery by the door its topic belongs to.
func (m *Metrics) MessageReceived(door string) {
	m.messagesTotal.WithLabelValues(door).Inc()
}

// DoorStatus records the latest sensor state.
func (m *Metrics) DoorStatus(door garage.Door, status string) {
	v := -1.0
	switch status {
	case garage.StatusOpen:
		v = 1
	case garage.StatusClosed:
		v = 0
	}
	m.doorOpen.WithLabelValues(door.String()).Set(v)
}

// Actuation counts a published relay command.
func (m *Metrics) Actuation(door garage.Door, payload string) {
	m.actuationsTotal.WithLabelValues(door.String(), payload).Inc()
}

// ReleaseSuppressed counts a dropped release.
func (m *Metrics) ReleaseSuppressed(door garage.Door) {
	m.suppressedTotal.WithLabelValues(door.String()).Inc()
}

// DeadlineExpired counts an expired deadline.
func (m *Metrics) DeadlineExpired(kind string) {
	m.deadlinesTotal.WithLabelValues(kind).Inc()
}
