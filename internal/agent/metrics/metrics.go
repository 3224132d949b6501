package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the agent lifecycle module.
// Transition counters are labeled by outcome so rejection rates are
// visible without log scraping.
type Metrics struct {
	AgentsCreated        prometheus.Counter
	Transitions          *prometheus.CounterVec
	CreateAgentDuration  prometheus.Histogram
	TransitionDuration   prometheus.Histogram
	ValidationQueueReads prometheus.Counter
}

// New creates a Metrics instance with all agent module metrics registered.
func New() *Metrics {
	return &Metrics{
		AgentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigrh_agents_created_total",
			Help: "Total number of agent records created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigrh_agent_transitions_total",
			Help: "Total number of agent lifecycle transitions by kind",
		}, []string{"transition"}),
		CreateAgentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigrh_create_agent_duration_seconds",
			Help:    "Duration of CreateAgent operations (includes hierarchy validation)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigrh_agent_transition_duration_seconds",
			Help:    "Duration of lifecycle transitions (submit, validate, reject)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ValidationQueueReads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigrh_validation_queue_reads_total",
			Help: "Total number of validation queue listings",
		}),
	}
}

// IncrementCreated records a successful agent creation.
func (m *Metrics) IncrementCreated() {
	m.AgentsCreated.Inc()
}

// IncrementTransition records a completed lifecycle transition.
func (m *Metrics) IncrementTransition(transition string) {
	m.Transitions.WithLabelValues(transition).Inc()
}

// ObserveCreate records the duration of a CreateAgent operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateAgentDuration.Observe(time.Since(start).Seconds())
}

// ObserveTransition records the duration of a lifecycle transition.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(start time.Time) {
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}
