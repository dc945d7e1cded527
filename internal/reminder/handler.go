package reminder

import (
	"net/http"
	"strconv"

	"fitnexo/internal/api"
	"fitnexo/internal/auth"
	"fitnexo/internal/membership"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SendExpiring godoc
// @Summary      Queue expiry reminders
// @Description  Emails every member whose active membership ends within N days.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Window in days"  default(7)
// @Success      202   {object}  Summary
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Router       /admin/notifications/expiring [post]
func (h *Handler) SendExpiring(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	days := membership.ExpiringWindowDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.BadRequest(c, "days must be a number")
			return
		}
		days = n
	}

	sum, err := h.service.SendExpiring(c.Request.Context(), gymID, days)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, sum)
}
