package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
)

// ReconcileHandler serves on-demand reconciliation
type ReconcileHandler struct {
	reconciler *services.Reconciler
}

// NewReconcileHandler creates a reconcile handler
func NewReconcileHandler(reconciler *services.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

// SyncUserIPs godoc
// @Summary Reconcile one user's buffered IP sightings now
// @Description Merges the user's buffered sightings into the durable store and refreshes the derived projections, without waiting for the scheduled run
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} services.ReconcileUserResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{id}/ips/sync [post]
func (h *ReconcileHandler) SyncUserIPs(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id is required"})
		return
	}

	result, err := h.reconciler.ReconcileUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
