package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/observability"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
	"go.uber.org/zap"
)

// UserIDHeader carries the authenticated user identity, set by the upstream
// auth proxy
const UserIDHeader = "X-User-ID"

// UserIDKey is the gin context key holding the caller's user ID
const UserIDKey = "UserID"

// IPTracker is the request-side half of the IP reconciliation pipeline: it
// records the caller's IP into the ingest buffer and denies the request when
// the IP is blocked for that user or globally.
//
// Recording is best-effort: a buffer write failure is logged and the request
// proceeds. The block check fails open for the same reason — the durable
// store is the source of truth and a degraded cache must not take the API
// down with it.
func IPTracker(buffer services.IngestBuffer, cache *services.BlockedIPCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			// Unauthenticated routes carry no identity to track
			c.Next()
			return
		}
		c.Set(UserIDKey, userID)

		ip := c.ClientIP()

		blocked, err := cache.IsBlocked(c.Request.Context(), userID, ip)
		if err != nil {
			observability.Logger().Error("blocked IP check failed",
				zap.String("user_id", userID),
				zap.String("ip", ip),
				zap.Error(err))
		} else if blocked {
			observability.Logger().Warn("request denied from blocked IP",
				zap.String("user_id", userID),
				zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied",
			})
			return
		}

		if err := buffer.Record(c.Request.Context(), userID, ip); err != nil {
			observability.Logger().Error("failed to record IP sighting",
				zap.String("user_id", userID),
				zap.String("ip", ip),
				zap.Error(err))
		}

		c.Next()
	}
}
