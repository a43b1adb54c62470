package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/middleware"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
)

// AdminHandler serves the block-list mutations
type AdminHandler struct {
	cache *services.BlockedIPCache
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(cache *services.BlockedIPCache) *AdminHandler {
	return &AdminHandler{cache: cache}
}

// BlockedIPListResponse wraps the global block list
type BlockedIPListResponse struct {
	BlockedIPs []models.BlockedIP `json:"blocked_ips"`
}

// ListBlockedIPs godoc
// @Summary List globally blocked IPs
// @Tags admin
// @Produce json
// @Success 200 {object} BlockedIPListResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/blocked-ips [get]
func (h *AdminHandler) ListBlockedIPs(c *gin.Context) {
	rows, err := h.cache.ListGlobal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, BlockedIPListResponse{BlockedIPs: rows})
}

// BlockIP godoc
// @Summary Block an IP for every user
// @Description Adds the IP to the global block list and pushes it into the cache
// @Tags admin
// @Accept json
// @Produce json
// @Param data body models.BlockIPBody true "IP and optional note"
// @Success 201 {object} models.BlockedIP
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "IP already blocked"
// @Failure 500 {object} ErrorResponse
// @Router /admin/blocked-ips [post]
func (h *AdminHandler) BlockIP(c *gin.Context) {
	var body models.BlockIPBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
		})
		return
	}

	row, err := h.cache.BlockGlobal(c.Request.Context(), body.IP, body.Note, c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, row)
}

// UnblockIP godoc
// @Summary Lift a global IP block
// @Tags admin
// @Produce json
// @Param ip path string true "Blocked IP"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/blocked-ips/{ip} [delete]
func (h *AdminHandler) UnblockIP(c *gin.Context) {
	ip := c.Param("ip")
	if err := h.cache.UnblockGlobal(c.Request.Context(), ip); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "IP unblocked"})
}

// BlockUserIP godoc
// @Summary Block an IP for one user
// @Description Flags the (user, IP) pair as blocked and refreshes that user's cache entry
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Param ip path string true "IP"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Pair not found"
// @Failure 500 {object} ErrorResponse
// @Router /admin/users/{id}/ips/{ip}/block [put]
func (h *AdminHandler) BlockUserIP(c *gin.Context) {
	h.setUserIPBlocked(c, true, "IP blocked for user")
}

// UnblockUserIP godoc
// @Summary Unblock an IP for one user
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Param ip path string true "IP"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Pair not found"
// @Failure 500 {object} ErrorResponse
// @Router /admin/users/{id}/ips/{ip}/unblock [put]
func (h *AdminHandler) UnblockUserIP(c *gin.Context) {
	h.setUserIPBlocked(c, false, "IP unblocked for user")
}

func (h *AdminHandler) setUserIPBlocked(c *gin.Context, blocked bool, message string) {
	userID := c.Param("id")
	ip := c.Param("ip")

	if err := h.cache.SetUserIPBlocked(c.Request.Context(), userID, ip, blocked); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}
