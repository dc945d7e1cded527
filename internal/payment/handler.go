package payment

import (
	"net/http"

	"fitnexo/internal/api"
	"fitnexo/internal/auth"
	"fitnexo/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handler struct {
	reconciler Reconciler
}

func NewHandler(reconciler Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// CreatePaymentRequest is a payment registered at the front desk.
type CreatePaymentRequest struct {
	MemberID        uuid.UUID       `json:"member_id" binding:"required"`
	PlanID          *uuid.UUID      `json:"plan_id,omitempty"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string" example:"25000.00"`
	Method          Method          `json:"method" binding:"required" example:"cash"`
	ExternalID      *string         `json:"external_id,omitempty"`
	GatewayStatus   GatewayStatus   `json:"gateway_status,omitempty"`
	WantsMembership bool            `json:"wants_membership"`
	Notes           string          `json:"notes,omitempty"`
}

// Create godoc
// @Summary      Register payment
// @Description  Records a manual payment and, when requested, opens a membership. Replays of a known external id return the stored result.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePaymentRequest  true  "Payment data"
// @Success      201      {object}  Result  "processed"
// @Success      200      {object}  Result  "duplicate or not processed"
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /payments [post]
func (h *Handler) Create(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	ev := Event{
		GymID:           gymID,
		MemberID:        req.MemberID,
		PlanID:          req.PlanID,
		Amount:          req.Amount,
		Method:          req.Method,
		ExternalID:      req.ExternalID,
		GatewayStatus:   req.GatewayStatus,
		WantsMembership: req.WantsMembership,
		Notes:           req.Notes,
	}

	res, err := h.reconciler.Reconcile(c.Request.Context(), ev)
	if err != nil {
		if validation.Respond(c, err) {
			return
		}
		api.Fail(c, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == OutcomeProcessed {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// Get godoc
// @Summary      Get payment
// @Description  Payment data for receipts.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        paymentID  path      string  true  "Payment ID"
// @Success      200        {object}  Payment
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /payments/{paymentID} [get]
func (h *Handler) Get(c *gin.Context) {
	gymID, paymentID, ok := h.scope(c)
	if !ok {
		return
	}

	p, err := h.reconciler.Get(c.Request.Context(), gymID, paymentID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Cancel godoc
// @Summary      Cancel payment
// @Description  Marks the payment canceled. The membership it funded is not touched.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        paymentID  path      string  true  "Payment ID"
// @Success      200        {object}  Payment
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /payments/{paymentID} [delete]
func (h *Handler) Cancel(c *gin.Context) {
	gymID, paymentID, ok := h.scope(c)
	if !ok {
		return
	}

	p, err := h.reconciler.Cancel(c.Request.Context(), gymID, paymentID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	paymentID, err := uuid.Parse(c.Param("paymentID"))
	if err != nil {
		api.BadRequest(c, "Invalid payment ID")
		return uuid.Nil, uuid.Nil, false
	}

	return gymID, paymentID, true
}
