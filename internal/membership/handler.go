package membership

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fitnexo/internal/api"
	"fitnexo/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	ledger Ledger
}

func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type OpenMembershipRequest struct {
	MemberID  uuid.UUID `json:"member_id" binding:"required"`
	PlanID    uuid.UUID `json:"plan_id" binding:"required"`
	StartDate string    `json:"start_date,omitempty" example:"2026-03-01"`
}

type RenewMembershipRequest struct {
	PlanID *uuid.UUID `json:"plan_id,omitempty"`
}

// Open godoc
// @Summary      Open membership
// @Description  Starts a new coverage window for a member. Any active membership is marked replaced.
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      OpenMembershipRequest  true  "Membership data"
// @Success      201      {object}  Membership
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /memberships [post]
func (h *Handler) Open(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req OpenMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	var start *time.Time
	if req.StartDate != "" {
		d, err := time.Parse(time.DateOnly, req.StartDate)
		if err != nil {
			api.BadRequest(c, "start_date must be YYYY-MM-DD")
			return
		}
		start = &d
	}

	m, err := h.ledger.OpenMembership(c.Request.Context(), gymID, req.MemberID, req.PlanID, start)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// Renew godoc
// @Summary      Renew membership
// @Description  Opens the successor of a membership. Coverage starts at the later of its end date and today.
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membershipID  path      string                  true   "Membership ID"
// @Param        request       body      RenewMembershipRequest  false  "Optional plan change"
// @Success      201           {object}  Membership
// @Failure      400           {object}  api.ErrorResponse
// @Failure      404           {object}  api.ErrorResponse
// @Failure      409           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/renew [post]
func (h *Handler) Renew(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	membershipID, err := uuid.Parse(c.Param("membershipID"))
	if err != nil {
		api.BadRequest(c, "Invalid membership ID")
		return
	}

	var req RenewMembershipRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, err.Error())
			return
		}
	}

	m, err := h.ledger.RenewMembership(c.Request.Context(), gymID, membershipID, req.PlanID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// Get godoc
// @Summary      Get membership
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        membershipID  path      string  true  "Membership ID"
// @Success      200           {object}  Membership
// @Failure      400           {object}  api.ErrorResponse
// @Failure      404           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID} [get]
func (h *Handler) Get(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	membershipID, err := uuid.Parse(c.Param("membershipID"))
	if err != nil {
		api.BadRequest(c, "Invalid membership ID")
		return
	}

	m, err := h.ledger.GetMembership(c.Request.Context(), gymID, membershipID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Status godoc
// @Summary      Member status
// @Description  Derives none, active, expiring or expired from the member's latest membership.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        memberID  path      string  true  "Member ID"
// @Success      200       {object}  Status
// @Failure      400       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Router       /members/{memberID}/status [get]
func (h *Handler) Status(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	memberID, err := uuid.Parse(c.Param("memberID"))
	if err != nil {
		api.BadRequest(c, "Invalid member ID")
		return
	}

	st, err := h.ledger.CurrentStatus(c.Request.Context(), gymID, memberID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, st)
}

// ListExpiring godoc
// @Summary      Expiring memberships
// @Description  Active memberships ending within the next N days.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Window in days"  default(7)
// @Success      200   {array}   Expiring
// @Failure      400   {object}  api.ErrorResponse
// @Router       /memberships/expiring [get]
func (h *Handler) ListExpiring(c *gin.Context) {
	h.list(c, ExpiringWindowDays, h.ledger.ExpiringWithin)
}

// ListExpired godoc
// @Summary      Recently expired memberships
// @Description  Members whose latest membership ended during the last N days.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Look-back in days"  default(30)
// @Success      200   {array}   Expiring
// @Failure      400   {object}  api.ErrorResponse
// @Router       /memberships/expired [get]
func (h *Handler) ListExpired(c *gin.Context) {
	h.list(c, 30, h.ledger.ExpiredSince)
}

func (h *Handler) list(c *gin.Context, defaultDays int, query func(context.Context, uuid.UUID, int) ([]Expiring, error)) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	days := defaultDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.BadRequest(c, "days must be an integer")
			return
		}
		days = n
	}

	rows, err := query(c.Request.Context(), gymID, days)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}
