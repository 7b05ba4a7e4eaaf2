package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the order pipeline.
type Metrics struct {
	OrdersCreated      prometheus.Counter
	PipelineFailures   *prometheus.CounterVec
	StakeCallsRequired prometheus.Counter
	PaymentDeclines    prometheus.Counter
	PipelineDuration   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		OrdersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ordergate_orders_created_total",
			Help: "Total number of orders committed by the pipeline",
		}),
		PipelineFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ordergate_pipeline_failures_total",
			Help: "Pipeline failures by stage",
		}, []string{"stage"}),
		StakeCallsRequired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ordergate_stake_calls_required_total",
			Help: "Orders that required a stake call",
		}),
		PaymentDeclines: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ordergate_payment_declines_total",
			Help: "Payment authorizations declined by the gateway",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ordergate_pipeline_duration_seconds",
			Help:    "End-to-end duration of successful createOrder runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordPipelineFailure increments the failure counter for a stage.
// Safe on a nil receiver so services can run without metrics in tests.
func (m *Metrics) RecordPipelineFailure(stage string) {
	if m != nil {
		m.PipelineFailures.WithLabelValues(stage).Inc()
	}
}

// RecordOrderCreated increments the created-orders counter.
func (m *Metrics) RecordOrderCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

// RecordStakeCallRequired increments the stake-call counter.
func (m *Metrics) RecordStakeCallRequired() {
	if m != nil {
		m.StakeCallsRequired.Inc()
	}
}

// RecordPaymentDecline increments the decline counter.
func (m *Metrics) RecordPaymentDecline() {
	if m != nil {
		m.PaymentDeclines.Inc()
	}
}

// ObservePipelineDuration records a successful run's duration in seconds.
func (m *Metrics) ObservePipelineDuration(seconds float64) {
	if m != nil {
		m.PipelineDuration.Observe(seconds)
	}
}
