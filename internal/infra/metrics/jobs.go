package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsSubmitted,
		jobsFinished,
		validationRejects,
		submissionRejects,
		pollTicks,
		pollFetchErrors,
		pollTimeouts,
		jobDurationSeconds,
		creditBalance,
	)
}

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chopshop_jobs_submitted_total",
			Help: "Jobs acknowledged by the backend, per transformation type.",
		},
		[]string{"type"},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chopshop_jobs_finished_total",
			Help: "Jobs that reached a terminal status, per type and status.",
		},
		[]string{"type", "status"},
	)

	validationRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chopshop_validation_rejects_total",
			Help: "Submissions rejected locally before any network call.",
		},
		[]string{"reason"},
	)

	submissionRejects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chopshop_submission_rejects_total",
			Help: "Submissions the backend or transport rejected.",
		},
	)

	pollTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chopshop_poll_ticks_total",
			Help: "Status queries issued by the poll loop.",
		},
	)

	pollFetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chopshop_poll_fetch_errors_total",
			Help: "Transient transport failures during polling.",
		},
	)

	pollTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chopshop_poll_timeouts_total",
			Help: "Poll loops terminated by the local wait budget.",
		},
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chopshop_job_duration_seconds",
			Help:    "Submission-to-terminal duration per transformation type.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	creditBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chopshop_credit_balance",
			Help: "Locally tracked credit balance after the last decrement or refresh.",
		},
	)
)

func IncJobSubmitted(jobType string) {
	jobsSubmitted.WithLabelValues(jobType).Inc()
}

func IncJobFinished(jobType, status string) {
	jobsFinished.WithLabelValues(jobType, status).Inc()
}

func IncValidationReject(reason string) {
	validationRejects.WithLabelValues(reason).Inc()
}

func IncSubmissionReject() { submissionRejects.Inc() }

func IncPollTick() { pollTicks.Inc() }

func IncPollFetchError() { pollFetchErrors.Inc() }

func IncPollTimeout() { pollTimeouts.Inc() }

func ObserveJobDuration(jobType string, seconds float64) {
	jobDurationSeconds.WithLabelValues(jobType).Observe(seconds)
}

func SetCreditBalance(credits int64) {
	creditBalance.Set(float64(credits))
}
