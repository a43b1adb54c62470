package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/redisclient"
)

const ipSightingsPrefix = "ip:sightings:"

// IngestBuffer is the write-side cache contract for IP sightings. The
// request-authorization layer writes into it on every inbound request; the
// reconciler reads and drains it. Entries expire on their own TTL — the
// reconciler never deletes them, which is what makes a failed merge
// retryable on the next run.
type IngestBuffer interface {
	// Record adds an IP sighting for a user and re-arms the entry TTL
	Record(ctx context.Context, userID, ip string) error
	// Sightings returns the buffered IP set for a user
	Sightings(ctx context.Context, userID string) ([]string, error)
	// UserIDs enumerates the users with buffered sightings
	UserIDs(ctx context.Context) ([]string, error)
}

// RedisIngestBuffer keeps one Redis set per user under the sightings
// namespace
type RedisIngestBuffer struct {
	redis *redisclient.Client
	ttl   time.Duration
}

// NewRedisIngestBuffer creates a Redis-backed ingest buffer
func NewRedisIngestBuffer(redis *redisclient.Client, ttl time.Duration) *RedisIngestBuffer {
	return &RedisIngestBuffer{redis: redis, ttl: ttl}
}

func sightingsKey(userID string) string {
	return ipSightingsPrefix + userID
}

func (b *RedisIngestBuffer) Record(ctx context.Context, userID, ip string) error {
	key := sightingsKey(userID)
	if err := b.redis.SAdd(ctx, key, ip).Err(); err != nil {
		return fmt.Errorf("failed to record IP sighting: %w", err)
	}
	if err := b.redis.Expire(ctx, key, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set sighting TTL: %w", err)
	}
	return nil
}

func (b *RedisIngestBuffer) Sightings(ctx context.Context, userID string) ([]string, error) {
	ips, err := b.redis.SMembers(ctx, sightingsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read IP sightings: %w", err)
	}
	return ips, nil
}

func (b *RedisIngestBuffer) UserIDs(ctx context.Context) ([]string, error) {
	var userIDs []string
	var cursor uint64

	// SCAN, not KEYS: the namespace can be large and this runs on a schedule
	for {
		keys, next, err := b.redis.Scan(ctx, cursor, ipSightingsPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan sightings namespace: %w", err)
		}
		for _, key := range keys {
			userIDs = append(userIDs, strings.TrimPrefix(key, ipSightingsPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return userIDs, nil
}
