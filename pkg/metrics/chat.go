package metrics

import "github.com/prometheus/client_golang/prometheus"

func chatCollectors() []prometheus.Collector {
	return []prometheus.Collector{chatReplies, chatLatencyMs}
}

var (
	chatReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_chat_replies_total",
			Help: "Chat replies delivered to visitors by category (ok or failure class).",
		},
		[]string{"category"},
	)

	chatLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "site_chat_latency_ms",
			Help:    "Chat webhook round-trip latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000, 30000},
		},
	)
)

func ObserveChatReply(category string, latencyMs int64) {
	if category == "" {
		category = "ok"
	}
	chatReplies.WithLabelValues(category).Inc()
	chatLatencyMs.Observe(float64(latencyMs))
}
