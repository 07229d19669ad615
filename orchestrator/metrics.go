package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Metrics are recorded as instructions execute. A transaction that later
// aborts still counts the instructions it ran.
type Metrics struct {
	instructions *prometheus.CounterVec
	chainsOpened prometheus.Counter
	chainsClosed *prometheus.CounterVec
	legs         *prometheus.CounterVec
	legOutput    *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapchain",
			Subsystem: "orchestrator",
			Name:      "instructions_total",
			Help:      "Orchestrator instructions processed, by instruction and result.",
		}, []string{"instruction", "result"}),
		chainsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swapchain",
			Subsystem: "orchestrator",
			Name:      "chains_opened_total",
			Help:      "Chains opened.",
		}),
		chainsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapchain",
			Subsystem: "orchestrator",
			Name:      "chains_closed_total",
			Help:      "Chains closed, by profit gate outcome.",
		}, []string{"result"}),
		legs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapchain",
			Subsystem: "orchestrator",
			Name:      "legs_total",
			Help:      "Legs run, by venue and result.",
		}, []string{"venue", "result"}),
		legOutput: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swapchain",
			Subsystem: "orchestrator",
			Name:      "leg_output_amount",
			Help:      "Amount produced by settled legs.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 16),
		}, []string{"venue"}),
	}
	reg.MustRegister(m.instructions, m.chainsOpened, m.chainsClosed, m.legs, m.legOutput)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
