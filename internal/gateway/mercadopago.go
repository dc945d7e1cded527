package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fitnexo/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	mpDefaultURL     = "https://api.mercadopago.com"
	mpRequestTimeout = 10 * time.Second
)

type MercadoPagoConfig struct {
	AccessToken     string
	BaseURL         string
	NotificationURL string
	SuccessURL      string
}

// MercadoPago talks to the Mercado Pago REST API. Webhooks carry only a
// payment id; the payment itself is fetched before normalizing.
type MercadoPago struct {
	cfg    MercadoPagoConfig
	client *http.Client
}

func NewMercadoPago(cfg MercadoPagoConfig, client *http.Client) *MercadoPago {
	if cfg.BaseURL == "" {
		cfg.BaseURL = mpDefaultURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: mpRequestTimeout}
	}
	return &MercadoPago{cfg: cfg, client: client}
}

func (mp *MercadoPago) Configured() bool {
	return len(mp.cfg.AccessToken) > 10
}

// mpID accepts ids sent as JSON numbers or strings.
type mpID string

func (id *mpID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	*id = mpID(strings.Trim(string(b), `"`))
	return nil
}

type mpNotification struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID mpID `json:"id"`
	} `json:"data"`
}

type mpPayment struct {
	ID                mpID            `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	ExternalReference string          `json:"external_reference"`
	DateApproved      *time.Time      `json:"date_approved"`
}

// mpReference is what CreatePreference stores in external_reference.
type mpReference struct {
	MemberID uuid.UUID  `json:"memberId"`
	PlanID   *uuid.UUID `json:"planId,omitempty"`
	GymID    uuid.UUID  `json:"gymId"`
}

func (mp *MercadoPago) Normalize(ctx context.Context, n Notification) (*payment.Event, error) {
	var note mpNotification
	if err := json.Unmarshal(n.Body, &note); err != nil {
		return nil, fmt.Errorf("%w: mercadopago body: %v", ErrMalformed, err)
	}

	kind := note.Type
	if kind == "" {
		kind = note.Topic
	}
	if kind != "payment" || note.Data.ID == "" {
		return nil, fmt.Errorf("%w: mercadopago type %q", ErrIgnored, kind)
	}

	p, err := mp.getPayment(ctx, string(note.Data.ID))
	if err != nil {
		return nil, err
	}

	var ref mpReference
	if err := json.Unmarshal([]byte(p.ExternalReference), &ref); err != nil {
		return nil, fmt.Errorf("%w: payment %s external_reference %q", ErrMalformed, p.ID, p.ExternalReference)
	}
	if ref.MemberID == uuid.Nil || ref.GymID == uuid.Nil {
		return nil, fmt.Errorf("%w: payment %s has no member or gym reference", ErrMalformed, p.ID)
	}

	externalID := string(p.ID)
	return &payment.Event{
		GymID:           ref.GymID,
		MemberID:        ref.MemberID,
		PlanID:          ref.PlanID,
		Amount:          p.TransactionAmount,
		Method:          payment.MethodGateway,
		ExternalID:      &externalID,
		GatewayStatus:   mpStatus(p.Status),
		WantsMembership: ref.PlanID != nil,
		Notes:           "Mercado Pago " + p.Status,
		PaidAt:          p.DateApproved,
	}, nil
}

func mpStatus(s string) payment.GatewayStatus {
	switch s {
	case "approved":
		return payment.GatewayApproved
	case "pending", "in_process", "authorized", "in_mediation":
		return payment.GatewayPending
	case "rejected", "cancelled", "refunded", "charged_back":
		return payment.GatewayRejected
	default:
		return payment.GatewayOther
	}
}

func (mp *MercadoPago) getPayment(ctx context.Context, paymentID string) (*mpPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mp.cfg.BaseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+mp.cfg.AccessToken)

	resp, err := mp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mercadopago payment %s: %v", ErrUnavailable, paymentID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: mercadopago payment %s: status %d", ErrUnavailable, paymentID, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: mercadopago payment %s: status %d", ErrMalformed, paymentID, resp.StatusCode)
	}

	var p mpPayment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: mercadopago payment %s: %v", ErrMalformed, paymentID, err)
	}
	if p.ID == "" {
		p.ID = mpID(paymentID)
	}

	return &p, nil
}

type PreferenceRequest struct {
	GymID      uuid.UUID
	MemberID   uuid.UUID
	PlanID     uuid.UUID
	Title      string
	Amount     decimal.Decimal
	PayerEmail string
}

// Preference is a hosted checkout. Members pay at InitPoint.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point,omitempty"`
}

type mpItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type mpPreference struct {
	Items             []mpItem          `json:"items"`
	Payer             map[string]string `json:"payer,omitempty"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	StatementDesc     string            `json:"statement_descriptor"`
}

func (mp *MercadoPago) CreatePreference(ctx context.Context, pr PreferenceRequest) (*Preference, error) {
	planID := pr.PlanID
	ref, err := json.Marshal(mpReference{MemberID: pr.MemberID, PlanID: &planID, GymID: pr.GymID})
	if err != nil {
		return nil, err
	}

	body := mpPreference{
		Items: []mpItem{{
			ID:         pr.PlanID.String(),
			Title:      pr.Title,
			Quantity:   1,
			CurrencyID: "ARS",
			UnitPrice:  pr.Amount.InexactFloat64(),
		}},
		ExternalReference: string(ref),
		NotificationURL:   mp.cfg.NotificationURL,
		StatementDesc:     "FITNEXO",
	}
	if pr.PayerEmail != "" {
		body.Payer = map[string]string{"email": pr.PayerEmail}
	}
	if mp.cfg.SuccessURL != "" {
		body.BackURLs = map[string]string{"success": mp.cfg.SuccessURL}
		body.AutoReturn = "approved"
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mp.cfg.BaseURL+"/checkout/preferences", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+mp.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := mp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mercadopago preference: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("%w: mercadopago preference: status %d %s", ErrMalformed, resp.StatusCode, apiErr.Message)
	}

	var pref Preference
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return nil, fmt.Errorf("%w: mercadopago preference: %v", ErrMalformed, err)
	}

	return &pref, nil
}
