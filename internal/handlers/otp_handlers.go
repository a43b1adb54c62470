package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
)

// OTPHandler serves the phone verification endpoints
type OTPHandler struct {
	service *services.OTPService
}

// NewOTPHandler creates an OTP handler
func NewOTPHandler(service *services.OTPService) *OTPHandler {
	return &OTPHandler{service: service}
}

// OTPVerifyResponse carries the exchange token issued on a successful verify
type OTPVerifyResponse struct {
	Token string `json:"token"`
}

// OTPRedeemResponse carries the verified phone returned on redemption
type OTPRedeemResponse struct {
	Phone string `json:"phone"`
}

// RequestOTP godoc
// @Summary Request an OTP
// @Description Issues a one-time code to the given phone number, subject to throttling
// @Tags phone
// @Accept json
// @Produce json
// @Param data body models.OTPRequestBody true "Phone number"
// @Success 200 {object} services.OTPIssueResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Phone already verified"
// @Failure 429 {object} ThrottledResponse
// @Failure 503 {object} ErrorResponse "SMS dispatch failed"
// @Failure 500 {object} ErrorResponse
// @Router /phone/otp [post]
func (h *OTPHandler) RequestOTP(c *gin.Context) {
	var body models.OTPRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.service.Request(c.Request.Context(), body.Phone, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyOTP godoc
// @Summary Verify an OTP code
// @Description Checks the submitted code and returns a short-lived exchange token on match
// @Tags phone
// @Accept json
// @Produce json
// @Param data body models.OTPVerifyBody true "Phone number and code"
// @Success 200 {object} OTPVerifyResponse
// @Failure 400 {object} ErrorResponse "Invalid phone or wrong code"
// @Failure 404 {object} ErrorResponse "No pending request for this phone"
// @Failure 409 {object} ErrorResponse "Phone already verified"
// @Failure 410 {object} ErrorResponse "Code expired"
// @Failure 500 {object} ErrorResponse
// @Router /phone/otp/verify [post]
func (h *OTPHandler) VerifyOTP(c *gin.Context) {
	var body models.OTPVerifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
		})
		return
	}

	token, err := h.service.Verify(c.Request.Context(), body.Phone, body.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, OTPVerifyResponse{Token: token})
}

// RedeemToken godoc
// @Summary Redeem an exchange token
// @Description Consumes the exchange token, proving recent phone ownership, and frees the phone for future cycles
// @Tags phone
// @Accept json
// @Produce json
// @Param data body models.OTPRedeemBody true "Exchange token"
// @Success 200 {object} OTPRedeemResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Unknown token"
// @Failure 410 {object} ErrorResponse "Token expired"
// @Failure 500 {object} ErrorResponse
// @Router /phone/otp/redeem [post]
func (h *OTPHandler) RedeemToken(c *gin.Context) {
	var body models.OTPRedeemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
		})
		return
	}

	phone, err := h.service.Redeem(c.Request.Context(), body.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, OTPRedeemResponse{Phone: phone})
}
