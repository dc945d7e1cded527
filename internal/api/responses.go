package api

import (
	"net/http"

	"fitnexo/internal/apperr"
	"fitnexo/internal/logger"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

type ReceivedResponse struct {
	Received bool `json:"received" example:"true"`
}

// Fail answers with the status matching err's kind. Unclassified errors are
// logged and reported without their details.
func Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 && !apperr.IsConflictRetryable(err) && !apperr.IsExternalGateway(err) {
		logger.WithError(err).Error("request failed", "method", c.Request.Method, "path", c.FullPath())
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
