package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/payments", "201", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/payments", "201"))
	assert.Equal(t, float64(1), count)
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/access/check-in", "201", 0.1)
	RecordHTTPRequest("POST", "/access/check-in", "201", 0.2)
	RecordHTTPRequest("POST", "/access/check-in", "409", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/access/check-in", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/access/check-in", "409")))
}

func TestRecordMembershipOpened(t *testing.T) {
	MembershipsOpenedTotal.Reset()

	RecordMembershipOpened("open")
	RecordMembershipOpened("renew")
	RecordMembershipOpened("renew")

	assert.Equal(t, float64(1), testutil.ToFloat64(MembershipsOpenedTotal.WithLabelValues("open")))
	assert.Equal(t, float64(2), testutil.ToFloat64(MembershipsOpenedTotal.WithLabelValues("renew")))
}

func TestRecordPaymentReconciled(t *testing.T) {
	PaymentsReconciledTotal.Reset()

	RecordPaymentReconciled("processed", "gateway")
	RecordPaymentReconciled("duplicate", "gateway")
	RecordPaymentReconciled("processed", "cash")

	assert.Equal(t, float64(1), testutil.ToFloat64(PaymentsReconciledTotal.WithLabelValues("processed", "gateway")))
	assert.Equal(t, float64(1), testutil.ToFloat64(PaymentsReconciledTotal.WithLabelValues("duplicate", "gateway")))
	assert.Equal(t, float64(1), testutil.ToFloat64(PaymentsReconciledTotal.WithLabelValues("processed", "cash")))
}

func TestRecordPaymentCancellation(t *testing.T) {
	testCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fitnexo_payment_cancellations_total_test",
		Help: "Total number of payment cancellations",
	})

	old := PaymentCancellationsTotal
	PaymentCancellationsTotal = testCounter
	defer func() { PaymentCancellationsTotal = old }()

	RecordPaymentCancellation()
	RecordPaymentCancellation()

	assert.Equal(t, float64(2), testutil.ToFloat64(testCounter))
}

func TestRecordCheckIn(t *testing.T) {
	CheckInsTotal.Reset()

	RecordCheckIn("admitted")
	RecordCheckIn("already_checked_in")

	assert.Equal(t, float64(1), testutil.ToFloat64(CheckInsTotal.WithLabelValues("admitted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CheckInsTotal.WithLabelValues("already_checked_in")))
}

func TestRecordTxRetry(t *testing.T) {
	testCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fitnexo_tx_conflict_retries_total_test",
		Help: "retries",
	})

	old := TxRetriesTotal
	TxRetriesTotal = testCounter
	defer func() { TxRetriesTotal = old }()

	RecordTxRetry()

	assert.Equal(t, float64(1), testutil.ToFloat64(testCounter))
}

func TestRecordInboxMessage(t *testing.T) {
	InboxMessagesTotal.Reset()

	RecordInboxMessage("mercadopago", "processed")
	RecordInboxMessage("stripe", "dead_letter")

	assert.Equal(t, float64(1), testutil.ToFloat64(InboxMessagesTotal.WithLabelValues("mercadopago", "processed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(InboxMessagesTotal.WithLabelValues("stripe", "dead_letter")))
}

func TestRecordEmail(t *testing.T) {
	EmailsSentTotal.Reset()

	RecordEmail("payment_receipt", "success")
	RecordEmail("expiry_reminder", "failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(EmailsSentTotal.WithLabelValues("payment_receipt", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EmailsSentTotal.WithLabelValues("expiry_reminder", "failed")))
}

func TestEmailQueueLength(t *testing.T) {
	EmailQueueLength.Set(10)
	assert.Equal(t, float64(10), testutil.ToFloat64(EmailQueueLength))

	EmailQueueLength.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(EmailQueueLength))
}
