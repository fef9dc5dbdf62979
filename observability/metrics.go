package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics records ledger operation activity: one counter per
// operation/outcome pair, a latency histogram per operation, and an emitted
// event counter segmented by type.
type StakingMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

var (
	stakingOnce sync.Once
	stakingReg  *StakingMetrics
)

// Staking returns the lazily-initialised staking metrics registry.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingReg = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hvstaking",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total ledger operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "hvstaking",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hvstaking",
				Subsystem: "ledger",
				Name:      "events_total",
				Help:      "Ledger events emitted, segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			stakingReg.operations,
			stakingReg.latency,
			stakingReg.events,
		)
	})
	return stakingReg
}

// ObserveOperation records one completed ledger operation.
func (m *StakingMetrics) ObserveOperation(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// CountEvent records one emitted ledger event.
func (m *StakingMetrics) CountEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
