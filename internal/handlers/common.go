package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/observability"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ThrottledResponse struct {
	Error             string `json:"error"`
	RetryAfterMinutes int    `json:"retry_after_minutes"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// respondError maps domain errors onto the HTTP surface. Anything unmapped
// is an internal error: logged with detail, answered without it.
func respondError(c *gin.Context, err error) {
	var throttled *models.TooManyRequestsError
	if errors.As(err, &throttled) {
		c.JSON(http.StatusTooManyRequests, ThrottledResponse{
			Error:             throttled.Error(),
			RetryAfterMinutes: throttled.RetryAfterMinutes,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrInvalidPhoneFormat),
		errors.Is(err, models.ErrInvalidOTPCode):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrOTPNotFound),
		errors.Is(err, models.ErrTokenNotFound),
		errors.Is(err, models.ErrBlockedIPNotFound),
		errors.Is(err, models.ErrUserIPPairNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrPhoneAlreadyVerified),
		errors.Is(err, models.ErrBlockedIPExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrOTPExpired),
		errors.Is(err, models.ErrTokenExpired):
		c.JSON(http.StatusGone, ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrSMSDispatchFailed):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		observability.Logger().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
