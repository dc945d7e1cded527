package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitnexo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitnexo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MembershipsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitnexo_memberships_opened_total",
			Help: "Total number of memberships opened, by kind (open, renew, payment)",
		},
		[]string{"kind"},
	)

	PaymentsReconciledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitnexo_payments_reconciled_total",
			Help: "Total number of payment events reconciled, by outcome and method",
		},
		[]string{"outcome", "method"},
	)

	PaymentCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitnexo_payment_cancellations_total",
			Help: "Total number of payment cancellations",
		},
	)

	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitnexo_checkins_total",
			Help: "Total number of check-in attempts, by result",
		},
		[]string{"result"},
	)

	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitnexo_tx_conflict_retries_total",
			Help: "Total number of transactions retried after a serialization conflict",
		},
	)

	InboxMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitnexo_inbox_messages_total",
			Help: "Gateway notifications handled by the inbox worker, by provider and result",
		},
		[]string{"provider", "result"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitnexo_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitnexo_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordMembershipOpened(kind string) {
	MembershipsOpenedTotal.WithLabelValues(kind).Inc()
}

func RecordPaymentReconciled(outcome, method string) {
	PaymentsReconciledTotal.WithLabelValues(outcome, method).Inc()
}

func RecordPaymentCancellation() {
	PaymentCancellationsTotal.Inc()
}

func RecordCheckIn(result string) {
	CheckInsTotal.WithLabelValues(result).Inc()
}

func RecordTxRetry() {
	TxRetriesTotal.Inc()
}

func RecordInboxMessage(provider, result string) {
	InboxMessagesTotal.WithLabelValues(provider, result).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
