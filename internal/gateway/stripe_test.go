package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fitnexo/internal/apperr"
	"fitnexo/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func stripeNote(t *testing.T, payload string, signedAt time.Time) Notification {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: signedAt,
	})
	return Notification{ID: uuid.New(), Provider: ProviderStripe, Body: signed.Payload, Signature: signed.Header}
}

func sessionPayload(eventType, paymentStatus string, metadata string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": "2020-08-27",
		"created": 1773151200,
		"type": %q,
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"amount_total": 2500050,
				"currency": "ars",
				"payment_intent": "pi_123",
				"payment_status": %q,
				"metadata": %s
			}
		}
	}`, eventType, paymentStatus, metadata)
}

func TestStripeNormalize(t *testing.T) {
	gymID, memberID, planID := uuid.New(), uuid.New(), uuid.New()
	metadata := fmt.Sprintf(`{"gym_id":%q,"member_id":%q,"plan_id":%q}`, gymID, memberID, planID)
	s := NewStripe(testWebhookSecret)

	tests := []struct {
		eventType     string
		paymentStatus string
		want          payment.GatewayStatus
	}{
		{"checkout.session.completed", "paid", payment.GatewayApproved},
		{"checkout.session.completed", "unpaid", payment.GatewayPending},
		{"checkout.session.async_payment_succeeded", "paid", payment.GatewayApproved},
		{"checkout.session.async_payment_failed", "unpaid", payment.GatewayRejected},
	}

	for _, tt := range tests {
		t.Run(tt.eventType+"/"+tt.paymentStatus, func(t *testing.T) {
			n := stripeNote(t, sessionPayload(tt.eventType, tt.paymentStatus, metadata), time.Now())

			ev, err := s.Normalize(context.Background(), n)

			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.GatewayStatus)
			assert.Equal(t, gymID, ev.GymID)
			assert.Equal(t, memberID, ev.MemberID)
			assert.Equal(t, planID, *ev.PlanID)
			assert.Equal(t, "pi_123", *ev.ExternalID)
			assert.True(t, ev.Amount.Equal(decimal.RequireFromString("25000.50")))
			assert.True(t, ev.WantsMembership)
		})
	}
}

func TestStripeNormalize_QueuedForHours(t *testing.T) {
	metadata := fmt.Sprintf(`{"gym_id":%q,"member_id":%q}`, uuid.New(), uuid.New())
	n := stripeNote(t, sessionPayload("checkout.session.completed", "paid", metadata), time.Now().Add(-6*time.Hour))

	ev, err := NewStripe(testWebhookSecret).Normalize(context.Background(), n)

	require.NoError(t, err)
	assert.Nil(t, ev.PlanID)
	assert.False(t, ev.WantsMembership)
}

func TestStripeNormalize_BadSignature(t *testing.T) {
	n := stripeNote(t, sessionPayload("checkout.session.completed", "paid", `{}`), time.Now())

	_, err := NewStripe("whsec_other").Normalize(context.Background(), n)

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.True(t, apperr.IsExternalGateway(err))
}

func TestStripeNormalize_IgnoredEvent(t *testing.T) {
	payload := `{"id":"evt_2","object":"event","api_version":"2020-08-27","type":"customer.created","data":{"object":{"id":"cus_1"}}}`
	n := stripeNote(t, payload, time.Now())

	_, err := NewStripe(testWebhookSecret).Normalize(context.Background(), n)

	assert.ErrorIs(t, err, ErrIgnored)
}

func TestStripeNormalize_MissingMetadata(t *testing.T) {
	n := stripeNote(t, sessionPayload("checkout.session.completed", "paid", `{"member_id":"x"}`), time.Now())

	_, err := NewStripe(testWebhookSecret).Normalize(context.Background(), n)

	assert.ErrorIs(t, err, ErrMalformed)
}
