package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the provisioning module. Promotion
// counters are labeled by target role; singleton conflicts get their own
// counter because a spike there means two admins are fighting over the
// authority slot.
type Metrics struct {
	Promotions         *prometheus.CounterVec
	SingletonConflicts prometheus.Counter
	AuthorityLocks     prometheus.Counter
	Revocations        prometheus.Counter
	PromotionDuration  prometheus.Histogram
}

// New creates a Metrics instance with all provisioning metrics registered.
func New() *Metrics {
	return &Metrics{
		Promotions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigrh_promotions_total",
			Help: "Total number of role promotions by target role",
		}, []string{"role"}),
		SingletonConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigrh_authority_singleton_conflicts_total",
			Help: "Total number of central-authority promotions refused because the slot was taken",
		}),
		AuthorityLocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigrh_authority_locks_total",
			Help: "Total number of central-authority lock-outs",
		}),
		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigrh_delegate_revocations_total",
			Help: "Total number of delegate role revocations",
		}),
		PromotionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigrh_promotion_duration_seconds",
			Help:    "Duration of promotion operations (includes credential issuance)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementPromotion records a successful promotion to role.
func (m *Metrics) IncrementPromotion(role string) {
	m.Promotions.WithLabelValues(role).Inc()
}

// IncrementSingletonConflict records a refused central-authority promotion.
func (m *Metrics) IncrementSingletonConflict() {
	m.SingletonConflicts.Inc()
}

// IncrementLock records a completed authority lock-out.
func (m *Metrics) IncrementLock() {
	m.AuthorityLocks.Inc()
}

// IncrementRevocation records a delegate demotion.
func (m *Metrics) IncrementRevocation() {
	m.Revocations.Inc()
}

// ObservePromotion records the duration of a promotion operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePromotion(start time.Time) {
	m.PromotionDuration.Observe(time.Since(start).Seconds())
}
