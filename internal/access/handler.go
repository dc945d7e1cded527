package access

import (
	"errors"
	"net/http"

	"fitnexo/internal/api"
	"fitnexo/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	gate Gate
}

func NewHandler(gate Gate) *Handler {
	return &Handler{gate: gate}
}

type CheckInRequest struct {
	MemberID uuid.UUID `json:"member_id" binding:"required"`
}

type QRCheckInRequest struct {
	Code string `json:"code" binding:"required"`
}

type QRResponse struct {
	MemberID uuid.UUID `json:"member_id"`
	Code     string    `json:"code"`
}

// AlreadyCheckedInResponse is answered with 409 on a repeated scan.
type AlreadyCheckedInResponse struct {
	Error    string    `json:"error"`
	RecordID uuid.UUID `json:"record_id"`
}

// CheckIn godoc
// @Summary      Manual check-in
// @Description  Logs an entry typed in at the front desk. The entry is recorded even without an active membership.
// @Tags         access
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CheckInRequest  true  "Member"
// @Success      201      {object}  CheckInResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  AlreadyCheckedInResponse
// @Router       /access/check-in [post]
func (h *Handler) CheckIn(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	res, err := h.gate.CheckIn(c.Request.Context(), gymID, req.MemberID, MethodManual)
	h.respond(c, res, err)
}

// CheckInQR godoc
// @Summary      QR check-in
// @Description  Verifies a member QR code for the scanning gym and logs the entry.
// @Tags         access
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      QRCheckInRequest  true  "Scanned code"
// @Success      201      {object}  CheckInResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  AlreadyCheckedInResponse
// @Router       /access/qr [post]
func (h *Handler) CheckInQR(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req QRCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	res, err := h.gate.CheckInQR(c.Request.Context(), gymID, req.Code)
	h.respond(c, res, err)
}

func (h *Handler) respond(c *gin.Context, res *CheckInResult, err error) {
	var already *AlreadyCheckedInError
	switch {
	case errors.As(err, &already):
		c.JSON(http.StatusConflict, AlreadyCheckedInResponse{Error: ErrAlreadyCheckedIn.Error(), RecordID: already.RecordID})
	case err != nil:
		api.Fail(c, err)
	default:
		c.JSON(http.StatusCreated, res)
	}
}

// CheckOut godoc
// @Summary      Check-out
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Param        recordID  path      string  true  "Access record ID"
// @Success      200       {object}  AccessRecord
// @Failure      400       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Router       /access/{recordID}/check-out [post]
func (h *Handler) CheckOut(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	recordID, err := uuid.Parse(c.Param("recordID"))
	if err != nil {
		api.BadRequest(c, "Invalid access record ID")
		return
	}

	rec, err := h.gate.CheckOut(c.Request.Context(), gymID, recordID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// Inside godoc
// @Summary      Members inside
// @Description  Open access records of today.
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  AccessRecord
// @Router       /access/inside [get]
func (h *Handler) Inside(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	records, err := h.gate.Inside(c.Request.Context(), gymID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// IssueQR godoc
// @Summary      Member QR code
// @Description  Signed code the member shows at the entrance.
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Param        memberID  path      string  true  "Member ID"
// @Success      200       {object}  QRResponse
// @Failure      400       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Router       /members/{memberID}/qr [get]
func (h *Handler) IssueQR(c *gin.Context) {
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

	code, err := h.gate.IssueQR(c.Request.Context(), gymID, memberID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, QRResponse{MemberID: memberID, Code: code})
}
