package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/observability"
	"github.com/prefeitura-rio/app-sentinela/internal/redisclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	blockedUserPrefix = "ip:blocked:user:"
	blockedGlobalKey  = "ip:blocked:global"
)

// BlockedIPCache answers "is this IP blocked for this user" on the request
// path. Entries are JSON arrays rather than Redis sets so that "cached,
// nothing blocked" (empty array) is distinguishable from "not cached"
// (missing key).
//
// The per-user entry is TTL-bounded and refreshed by reconciliation; the
// global entry has no TTL and is rewritten on every admin mutation. Either
// way a miss falls through to MongoDB and repopulates the cache.
type BlockedIPCache struct {
	redis   *redisclient.Client
	userIPs UserIPStore
	global  BlockedIPStore
	userTTL time.Duration
	logger  *logging.SafeLogger
}

// NewBlockedIPCache creates a blocked IP cache
func NewBlockedIPCache(redis *redisclient.Client, userIPs UserIPStore, global BlockedIPStore, userTTL time.Duration, logger *logging.SafeLogger) *BlockedIPCache {
	return &BlockedIPCache{
		redis:   redis,
		userIPs: userIPs,
		global:  global,
		userTTL: userTTL,
		logger:  logger,
	}
}

func blockedUserKey(userID string) string {
	return blockedUserPrefix + userID
}

// IsBlocked reports whether the IP is blocked globally or for this user
func (c *BlockedIPCache) IsBlocked(ctx context.Context, userID, ip string) (bool, error) {
	globalIPs, source, err := c.globalList(ctx)
	if err != nil {
		return false, err
	}
	for _, blocked := range globalIPs {
		if blocked == ip {
			observability.BlockedIPLookups.WithLabelValues("blocked", source).Inc()
			return true, nil
		}
	}

	userIPs, source, err := c.userList(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, blocked := range userIPs {
		if blocked == ip {
			observability.BlockedIPLookups.WithLabelValues("blocked", source).Inc()
			return true, nil
		}
	}

	observability.BlockedIPLookups.WithLabelValues("allowed", source).Inc()
	return false, nil
}

// globalList returns the globally blocked IPs, reading through to MongoDB
// on a cache miss
func (c *BlockedIPCache) globalList(ctx context.Context) ([]string, string, error) {
	data, err := c.redis.Get(ctx, blockedGlobalKey).Result()
	if err == nil {
		var ips []string
		if jsonErr := json.Unmarshal([]byte(data), &ips); jsonErr == nil {
			observability.CacheHits.WithLabelValues("blocked_global").Inc()
			return ips, "cache", nil
		}
		// Unreadable entry; fall through and rewrite it
		c.logger.Warn("corrupt global blocked IP cache entry, rebuilding")
	} else if err != redis.Nil {
		return nil, "", fmt.Errorf("failed to read global blocked IP cache: %w", err)
	}

	ips, err := c.RefreshGlobal(ctx)
	if err != nil {
		return nil, "", err
	}
	return ips, "store", nil
}

// userList returns the blocked IPs of a user, reading through to MongoDB on
// a cache miss
func (c *BlockedIPCache) userList(ctx context.Context, userID string) ([]string, string, error) {
	data, err := c.redis.Get(ctx, blockedUserKey(userID)).Result()
	if err == nil {
		var ips []string
		if jsonErr := json.Unmarshal([]byte(data), &ips); jsonErr == nil {
			observability.CacheHits.WithLabelValues("blocked_user").Inc()
			return ips, "cache", nil
		}
		c.logger.Warn("corrupt user blocked IP cache entry, rebuilding",
			zap.String("user_id", userID))
	} else if err != redis.Nil {
		return nil, "", fmt.Errorf("failed to read user blocked IP cache: %w", err)
	}

	ips, err := c.RefreshUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return ips, "store", nil
}

// RefreshUser rewrites a user's cache entry from the durable store and
// returns the blocked IPs it cached
func (c *BlockedIPCache) RefreshUser(ctx context.Context, userID string) ([]string, error) {
	ips, err := c.userIPs.BlockedIPs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked IPs for user: %w", err)
	}
	if err := c.writeEntry(ctx, blockedUserKey(userID), ips, c.userTTL); err != nil {
		return nil, err
	}
	return ips, nil
}

// RefreshGlobal rewrites the global cache entry from the durable store and
// returns the blocked IPs it cached
func (c *BlockedIPCache) RefreshGlobal(ctx context.Context) ([]string, error) {
	ips, err := c.global.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global blocked IPs: %w", err)
	}
	if err := c.writeEntry(ctx, blockedGlobalKey, ips, 0); err != nil {
		return nil, err
	}
	return ips, nil
}

func (c *BlockedIPCache) writeEntry(ctx context.Context, key string, ips []string, ttl time.Duration) error {
	if ips == nil {
		ips = []string{}
	}
	data, err := json.Marshal(ips)
	if err != nil {
		return fmt.Errorf("failed to marshal blocked IP list: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write blocked IP cache: %w", err)
	}
	return nil
}

// BlockGlobal blocks an IP for every user and pushes the change into the
// cache before returning
func (c *BlockedIPCache) BlockGlobal(ctx context.Context, ip, note, createdBy string) (*models.BlockedIP, error) {
	row, err := c.global.Block(ctx, ip, note, createdBy)
	if err != nil {
		return nil, err
	}
	if _, err := c.RefreshGlobal(ctx); err != nil {
		// The store already holds the block; a reader that misses the cache
		// still sees it. Log and move on.
		c.logger.Error("failed to refresh global blocked IP cache",
			zap.String("ip", ip), zap.Error(err))
	}
	c.logger.Info("IP blocked globally", zap.String("ip", ip))
	return row, nil
}

// UnblockGlobal lifts a global IP block and pushes the change into the cache
func (c *BlockedIPCache) UnblockGlobal(ctx context.Context, ip string) error {
	if err := c.global.Unblock(ctx, ip); err != nil {
		return err
	}
	if _, err := c.RefreshGlobal(ctx); err != nil {
		c.logger.Error("failed to refresh global blocked IP cache",
			zap.String("ip", ip), zap.Error(err))
	}
	c.logger.Info("IP unblocked globally", zap.String("ip", ip))
	return nil
}

// SetUserIPBlocked flips the block flag on one (user, IP) pair and refreshes
// that user's cache entry
func (c *BlockedIPCache) SetUserIPBlocked(ctx context.Context, userID, ip string, blocked bool) error {
	if err := c.userIPs.SetBlocked(ctx, userID, ip, blocked); err != nil {
		return err
	}
	if _, err := c.RefreshUser(ctx, userID); err != nil {
		c.logger.Error("failed to refresh user blocked IP cache",
			zap.String("user_id", userID), zap.Error(err))
	}
	c.logger.Info("user IP block flag updated",
		zap.String("user_id", userID),
		zap.String("ip", ip),
		zap.Bool("blocked", blocked))
	return nil
}

// ListGlobal returns the global block list from the durable store
func (c *BlockedIPCache) ListGlobal(ctx context.Context) ([]models.BlockedIP, error) {
	return c.global.List(ctx)
}
