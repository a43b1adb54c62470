package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/config"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// HealthCheck godoc
// @Summary Health check
// @Description Reports service health and the state of its backing stores
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := map[string]string{
		"mongodb": "healthy",
		"redis":   "healthy",
	}
	status := "healthy"

	if err := config.MongoDB.Client().Ping(ctx, readpref.Primary()); err != nil {
		services["mongodb"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	}
	if err := config.Redis.Ping(ctx).Err(); err != nil {
		services["redis"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
