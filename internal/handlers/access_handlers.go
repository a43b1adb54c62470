package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
)

// AccessHandler serves blocked-IP access checks
type AccessHandler struct {
	cache *services.BlockedIPCache
}

// NewAccessHandler creates an access handler
func NewAccessHandler(cache *services.BlockedIPCache) *AccessHandler {
	return &AccessHandler{cache: cache}
}

// AccessCheckResponse is the outcome of an access check
type AccessCheckResponse struct {
	UserID  string `json:"user_id"`
	IP      string `json:"ip"`
	Allowed bool   `json:"allowed"`
}

// CheckAccess godoc
// @Summary Check whether an IP is blocked for a user
// @Description Answers from the blocked-IP cache, falling back to the durable store on a miss
// @Tags access
// @Produce json
// @Param user_id query string true "User ID"
// @Param ip query string false "IP to check (defaults to the caller's IP)"
// @Success 200 {object} AccessCheckResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /access/check [get]
func (h *AccessHandler) CheckAccess(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}
	ip := c.Query("ip")
	if ip == "" {
		ip = c.ClientIP()
	}

	blocked, err := h.cache.IsBlocked(c.Request.Context(), userID, ip)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AccessCheckResponse{
		UserID:  userID,
		IP:      ip,
		Allowed: !blocked,
	})
}
