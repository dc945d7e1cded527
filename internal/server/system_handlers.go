package server

import (
	"context"
	"net/http"
	"time"

	"fitnexo/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type EmailQueue interface {
	Send(ctx context.Context, to, name, subject, body string) error
	QueueLength(ctx context.Context) int64
}

type QueueResponse struct {
	Pending int64 `json:"pending" example:"3"`
}

type TestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Summary      Health check
// @Description  Reports ok when every dependency answers, 503 otherwise.
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		res := api.HealthResponse{Status: "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if res.Checks == nil {
				res.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				res.Checks[name] = err.Error()
				res.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}

		c.JSON(code, res)
	}
}

// @Summary      Email queue length
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} QueueResponse
// @Router       /admin/emails/queue [get]
func EmailQueueLength(emails EmailQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, QueueResponse{Pending: emails.QueueLength(c.Request.Context())})
	}
}

// @Summary      Queue a test email
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body TestEmailRequest true "Recipient"
// @Success      202 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/test-email [post]
func TestEmail(emails EmailQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TestEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, err.Error())
			return
		}

		if err := emails.Send(c.Request.Context(), req.Email, "FitNexo", "Test email from FitNexo", "Email delivery is working."); err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, api.MessageResponse{Message: "Email queued successfully"})
	}
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
