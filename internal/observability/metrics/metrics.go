package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the turn pipeline. All observe
// methods are nil-safe so wiring metrics stays optional.
type Metrics struct {
	turnsTotal        *prometheus.CounterVec
	completionsTotal  *prometheus.CounterVec
	completionLatency prometheus.Histogram
	sosTotal          *prometheus.CounterVec
}

// New registers the pipeline metrics on reg (default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aivora",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Turns appended to conversations",
		}, []string{"sender", "outcome"}),
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aivora",
			Subsystem: "chat",
			Name:      "completions_total",
			Help:      "Completion gateway calls",
		}, []string{"status"}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aivora",
			Subsystem: "chat",
			Name:      "completion_latency_seconds",
			Help:      "Latency of completion gateway calls",
			Buckets:   prometheus.DefBuckets,
		}),
		sosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aivora",
			Subsystem: "sos",
			Name:      "alerts_total",
			Help:      "SOS alerts raised",
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.completionsTotal, m.completionLatency, m.sosTotal)
	return m
}

// ObserveTurn counts an appended turn.
func (m *Metrics) ObserveTurn(sender, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(sender, outcome).Inc()
}

// ObserveCompletion counts a gateway call and records its latency.
func (m *Metrics) ObserveCompletion(status string, seconds float64) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(status).Inc()
	m.completionLatency.Observe(seconds)
}

// ObserveSOS counts a raised alert.
func (m *Metrics) ObserveSOS(source string) {
	if m == nil {
		return
	}
	m.sosTotal.WithLabelValues(source).Inc()
}
