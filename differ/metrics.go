package differ

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	diffDuration    *prometheus.HistogramVec
	changedAccounts prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swapchain",
			Subsystem: "differ",
			Name:      "diff_duration_seconds",
			Help:      "Time taken to diff two balance snapshots.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),
		changedAccounts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swapchain",
			Subsystem: "differ",
			Name:      "changed_accounts",
			Help:      "Accounts whose balance changed between snapshots.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
	}
	reg.MustRegister(m.diffDuration, m.changedAccounts)
	return m
}
