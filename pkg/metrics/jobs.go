package metrics

import "github.com/prometheus/client_golang/prometheus"

func jobCollectors() []prometheus.Collector {
	return []prometheus.Collector{jobSubmissions, jobPollAttempts, jobPollOutcomes}
}

var (
	jobSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_job_submissions_total",
			Help: "Conversion job submissions by result code (ok or error code).",
		},
		[]string{"result"},
	)

	jobPollAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_job_poll_attempts_total",
			Help: "Status requests issued while polling conversion jobs.",
		},
	)

	jobPollOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_job_poll_outcomes_total",
			Help: "Finished polling sequences by outcome (ready, failed, timeout, error).",
		},
		[]string{"outcome"},
	)
)

// JobSubmitted counts one submission. result is "ok" or an apierr code.
func JobSubmitted(result string) {
	jobSubmissions.WithLabelValues(norm(result)).Inc()
}

func PollAttempt() {
	jobPollAttempts.Inc()
}

func PollFinished(outcome string) {
	jobPollOutcomes.WithLabelValues(norm(outcome)).Inc()
}

func norm(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
