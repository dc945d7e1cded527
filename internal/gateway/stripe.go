package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fitnexo/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Queued notifications can be verified well after Stripe signed them.
const stripeSignatureTolerance = 72 * time.Hour

type Stripe struct {
	webhookSecret string
}

func NewStripe(webhookSecret string) *Stripe {
	return &Stripe{webhookSecret: webhookSecret}
}

func (s *Stripe) Normalize(ctx context.Context, n Notification) (*payment.Event, error) {
	event, err := webhook.ConstructEventWithOptions(n.Body, n.Signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                stripeSignatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: stripe: %v", ErrInvalidSignature, err)
	}

	var status payment.GatewayStatus
	switch string(event.Type) {
	case "checkout.session.completed":
		status = payment.GatewayOther
	case "checkout.session.async_payment_succeeded":
		status = payment.GatewayApproved
	case "checkout.session.async_payment_failed":
		status = payment.GatewayRejected
	default:
		return nil, fmt.Errorf("%w: stripe event %s", ErrIgnored, event.Type)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: stripe event %s: %v", ErrMalformed, event.ID, err)
	}

	if status == payment.GatewayOther {
		status = sessionStatus(session.PaymentStatus)
	}

	return sessionEvent(event, &session, status)
}

func sessionStatus(s stripe.CheckoutSessionPaymentStatus) payment.GatewayStatus {
	switch s {
	case stripe.CheckoutSessionPaymentStatusPaid:
		return payment.GatewayApproved
	case stripe.CheckoutSessionPaymentStatusUnpaid:
		return payment.GatewayPending
	default:
		return payment.GatewayOther
	}
}

func sessionEvent(event stripe.Event, session *stripe.CheckoutSession, status payment.GatewayStatus) (*payment.Event, error) {
	gymID, err := uuid.Parse(session.Metadata["gym_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: stripe session %s: gym_id: %v", ErrMalformed, session.ID, err)
	}
	memberID, err := uuid.Parse(session.Metadata["member_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: stripe session %s: member_id: %v", ErrMalformed, session.ID, err)
	}

	var planID *uuid.UUID
	if raw := session.Metadata["plan_id"]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: stripe session %s: plan_id: %v", ErrMalformed, session.ID, err)
		}
		planID = &id
	}

	externalID := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		externalID = session.PaymentIntent.ID
	}

	paidAt := time.Unix(event.Created, 0).UTC()
	return &payment.Event{
		GymID:           gymID,
		MemberID:        memberID,
		PlanID:          planID,
		Amount:          decimal.New(session.AmountTotal, -2),
		Method:          payment.MethodGateway,
		ExternalID:      &externalID,
		GatewayStatus:   status,
		WantsMembership: planID != nil,
		Notes:           "Stripe checkout " + session.ID,
		PaidAt:          &paidAt,
	}, nil
}
