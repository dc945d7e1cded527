package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitnexo/internal/apperr"
	"fitnexo/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mpServer(t *testing.T, handler http.HandlerFunc) *MercadoPago {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMercadoPago(MercadoPagoConfig{AccessToken: "TEST-access-token", BaseURL: srv.URL + "/"}, srv.Client())
}

func mpNote(body string) Notification {
	return Notification{ID: uuid.New(), Provider: ProviderMercadoPago, Body: []byte(body)}
}

func TestMercadoPagoNormalize(t *testing.T) {
	gymID, memberID, planID := uuid.New(), uuid.New(), uuid.New()
	ref := fmt.Sprintf(`{"memberId":%q,"planId":%q,"gymId":%q,"tipo":"membresia"}`, memberID, planID, gymID)

	mp := mpServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123456", r.URL.Path)
		assert.Equal(t, "Bearer TEST-access-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 123456,
			"status":             "approved",
			"transaction_amount": 25000.5,
			"external_reference": ref,
			"date_approved":      "2026-03-10T10:15:00.000-03:00",
		})
	})

	ev, err := mp.Normalize(context.Background(), mpNote(`{"type":"payment","action":"payment.created","data":{"id":"123456"}}`))

	require.NoError(t, err)
	assert.Equal(t, gymID, ev.GymID)
	assert.Equal(t, memberID, ev.MemberID)
	require.NotNil(t, ev.PlanID)
	assert.Equal(t, planID, *ev.PlanID)
	assert.True(t, ev.WantsMembership)
	assert.True(t, ev.Amount.Equal(decimal.RequireFromString("25000.5")))
	assert.Equal(t, payment.MethodGateway, ev.Method)
	assert.Equal(t, "123456", *ev.ExternalID)
	assert.Equal(t, payment.GatewayApproved, ev.GatewayStatus)
	require.NotNil(t, ev.PaidAt)
	assert.NoError(t, ev.Validate())
}

func TestMercadoPagoNormalize_NumericID(t *testing.T) {
	mp := mpServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/99", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 99,
			"status":             "in_process",
			"transaction_amount": 100,
			"external_reference": fmt.Sprintf(`{"memberId":%q,"gymId":%q}`, uuid.New(), uuid.New()),
		})
	})

	ev, err := mp.Normalize(context.Background(), mpNote(`{"type":"payment","data":{"id":99}}`))

	require.NoError(t, err)
	assert.Equal(t, payment.GatewayPending, ev.GatewayStatus)
	assert.Nil(t, ev.PlanID)
	assert.False(t, ev.WantsMembership)
}

func TestMercadoPagoNormalize_Ignored(t *testing.T) {
	mp := mpServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	})

	for _, body := range []string{
		`{"type":"merchant_order","data":{"id":"1"}}`,
		`{"type":"payment","data":{}}`,
		`{"type":"payment","data":{"id":null}}`,
	} {
		_, err := mp.Normalize(context.Background(), mpNote(body))
		assert.ErrorIs(t, err, ErrIgnored, body)
	}
}

func TestMercadoPagoNormalize_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
		wantErr error
	}{
		{"provider down", http.StatusBadGateway, `{}`, ErrUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrUnavailable},
		{"unknown payment", http.StatusNotFound, `{"message":"not found"}`, ErrMalformed},
		{"bad reference", http.StatusOK, `{"id":1,"status":"approved","transaction_amount":10,"external_reference":"order-1"}`, ErrMalformed},
		{"reference without member", http.StatusOK, `{"id":1,"status":"approved","transaction_amount":10,"external_reference":"{}"}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := mpServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			})

			_, err := mp.Normalize(context.Background(), mpNote(`{"type":"payment","data":{"id":"1"}}`))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, apperr.IsExternalGateway(err))
		})
	}
}

func TestMercadoPagoNormalize_MalformedBody(t *testing.T) {
	mp := NewMercadoPago(MercadoPagoConfig{AccessToken: "TEST-access-token"}, nil)

	_, err := mp.Normalize(context.Background(), mpNote(`not json`))

	assert.ErrorIs(t, err, ErrMalformed)
}

func TestMPStatus(t *testing.T) {
	tests := map[string]payment.GatewayStatus{
		"approved":     payment.GatewayApproved,
		"pending":      payment.GatewayPending,
		"in_process":   payment.GatewayPending,
		"authorized":   payment.GatewayPending,
		"rejected":     payment.GatewayRejected,
		"cancelled":    payment.GatewayRejected,
		"refunded":     payment.GatewayRejected,
		"charged_back": payment.GatewayRejected,
		"":             payment.GatewayOther,
		"something":    payment.GatewayOther,
	}

	for in, want := range tests {
		assert.Equal(t, want, mpStatus(in), in)
	}
}

func TestCreatePreference(t *testing.T) {
	gymID, memberID, planID := uuid.New(), uuid.New(), uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)

		var body mpPreference
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Items, 1) {
			assert.Equal(t, 25000.0, body.Items[0].UnitPrice)
			assert.Equal(t, "Mensual", body.Items[0].Title)
		}
		assert.Equal(t, "https://api.example.com/webhooks/mercadopago", body.NotificationURL)
		assert.Equal(t, "ana@example.com", body.Payer["email"])

		var ref mpReference
		if assert.NoError(t, json.Unmarshal([]byte(body.ExternalReference), &ref)) {
			assert.Equal(t, memberID, ref.MemberID)
			assert.Equal(t, gymID, ref.GymID)
			assert.Equal(t, planID, *ref.PlanID)
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.example/checkout/pref-1"}`))
	}))
	defer srv.Close()

	mp := NewMercadoPago(MercadoPagoConfig{
		AccessToken:     "TEST-access-token",
		BaseURL:         srv.URL,
		NotificationURL: "https://api.example.com/webhooks/mercadopago",
	}, srv.Client())

	pref, err := mp.CreatePreference(context.Background(), PreferenceRequest{
		GymID:      gymID,
		MemberID:   memberID,
		PlanID:     planID,
		Title:      "Mensual",
		Amount:     decimal.NewFromInt(25000),
		PayerEmail: "ana@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp.example/checkout/pref-1", pref.InitPoint)
}

func TestCreatePreference_Rejected(t *testing.T) {
	mp := mpServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid unit_price"}`))
	})

	_, err := mp.CreatePreference(context.Background(), PreferenceRequest{PlanID: uuid.New(), Amount: decimal.NewFromInt(1)})

	require.Error(t, err)
	assert.True(t, apperr.IsExternalGateway(err))
	assert.Contains(t, err.Error(), "invalid unit_price")
}
