package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"fitnexo/internal/api"
	"fitnexo/internal/auth"
	"fitnexo/internal/gym"
	"fitnexo/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxWebhookBytes = int64(65536)

type WebhookHandler struct {
	publisher Publisher
}

func NewWebhookHandler(publisher Publisher) *WebhookHandler {
	return &WebhookHandler{publisher: publisher}
}

// MercadoPago godoc
// @Summary      Mercado Pago webhook
// @Description  Queues the notification and always answers 200.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  api.ReceivedResponse
// @Router       /webhooks/mercadopago [post]
func (h *WebhookHandler) MercadoPago(c *gin.Context) {
	body := h.read(c)
	if len(body) == 0 {
		body = mpQueryBody(c)
	}
	h.enqueue(c, ProviderMercadoPago, body, c.GetHeader("X-Signature"))
}

// Stripe godoc
// @Summary      Stripe webhook
// @Description  Queues the event and always answers 200. The signature is verified when processed.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  api.ReceivedResponse
// @Router       /webhooks/stripe [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	h.enqueue(c, ProviderStripe, h.read(c), c.GetHeader("Stripe-Signature"))
}

func (h *WebhookHandler) read(c *gin.Context) []byte {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.WithError(err).Warn("webhook: reading body", "path", c.FullPath())
	}
	return body
}

// mpQueryBody rebuilds the JSON body of IPN notifications, which carry
// their fields in the query string.
func mpQueryBody(c *gin.Context) []byte {
	kind := c.Query("type")
	if kind == "" {
		kind = c.Query("topic")
	}
	id := c.Query("data.id")
	if id == "" {
		id = c.Query("id")
	}
	if kind == "" && id == "" {
		return nil
	}

	body, _ := json.Marshal(map[string]any{
		"type": kind,
		"data": map[string]string{"id": id},
	})
	return body
}

func (h *WebhookHandler) enqueue(c *gin.Context, provider Provider, body []byte, signature string) {
	if len(body) == 0 {
		logger.Warn("webhook: empty notification", "provider", provider)
		c.JSON(http.StatusOK, api.ReceivedResponse{Received: true})
		return
	}

	n := Notification{
		ID:         uuid.New(),
		Provider:   provider,
		Body:       body,
		Signature:  signature,
		ReceivedAt: time.Now().UTC(),
	}

	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.publisher.Publish(ctx, n); err != nil {
		logger.WithError(err).Error("webhook: notification not queued",
			"provider", provider, "notification_id", n.ID, "body", string(body))
	}

	c.JSON(http.StatusOK, api.ReceivedResponse{Received: true})
}

// CheckoutCreator builds hosted checkout links.
type CheckoutCreator interface {
	CreatePreference(ctx context.Context, pr PreferenceRequest) (*Preference, error)
}

type LinkHandler struct {
	checkout CheckoutCreator
	gymRepo  gym.Repository
}

func NewLinkHandler(checkout CheckoutCreator, gymRepo gym.Repository) *LinkHandler {
	return &LinkHandler{checkout: checkout, gymRepo: gymRepo}
}

type PaymentLinkRequest struct {
	MemberID uuid.UUID `json:"member_id" binding:"required"`
	PlanID   uuid.UUID `json:"plan_id" binding:"required"`
}

// Create godoc
// @Summary      Payment link
// @Description  Creates a Mercado Pago checkout for a member and plan. The approved payment opens the membership.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PaymentLinkRequest  true  "Member and plan"
// @Success      201      {object}  Preference
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /payments/gateway/link [post]
func (h *LinkHandler) Create(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req PaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	member, err := h.gymRepo.GetMember(ctx, gymID, req.MemberID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	plan, err := h.gymRepo.GetPlan(ctx, gymID, req.PlanID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	pr := PreferenceRequest{
		GymID:    gymID,
		MemberID: member.ID,
		PlanID:   plan.ID,
		Title:    plan.Name,
		Amount:   plan.Price,
	}
	if member.Email != nil {
		pr.PayerEmail = *member.Email
	}

	pref, err := h.checkout.CreatePreference(ctx, pr)
	if err != nil {
		api.Fail(c, err)
		return
	}

	logger.Info("payment link created", "gym_id", gymID, "member_id", member.ID, "plan_id", plan.ID, "preference_id", pref.ID)
	c.JSON(http.StatusCreated, pref)
}
