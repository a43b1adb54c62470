package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid phone", err: models.ErrInvalidPhoneFormat, wantStatus: http.StatusBadRequest},
		{name: "wrong code", err: models.ErrInvalidOTPCode, wantStatus: http.StatusBadRequest},
		{name: "no pending request", err: models.ErrOTPNotFound, wantStatus: http.StatusNotFound},
		{name: "unknown token", err: models.ErrTokenNotFound, wantStatus: http.StatusNotFound},
		{name: "pair not found", err: models.ErrUserIPPairNotFound, wantStatus: http.StatusNotFound},
		{name: "already verified", err: models.ErrPhoneAlreadyVerified, wantStatus: http.StatusConflict},
		{name: "already blocked", err: models.ErrBlockedIPExists, wantStatus: http.StatusConflict},
		{name: "code expired", err: models.ErrOTPExpired, wantStatus: http.StatusGone},
		{name: "token expired", err: models.ErrTokenExpired, wantStatus: http.StatusGone},
		{name: "sms failure", err: models.ErrSMSDispatchFailed, wantStatus: http.StatusServiceUnavailable},
		{name: "anything else", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRespondErrorThrottle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, &models.TooManyRequestsError{RetryAfterMinutes: 7})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body ThrottledResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 7, body.RetryAfterMinutes)
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("mongo: connection refused at 10.1.2.3"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
}
