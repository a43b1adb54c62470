package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client wraps a Redis client with OpenTelemetry tracing
type Client struct {
	cmdable redis.Cmdable
}

// NewClient creates a new traced Redis client for single Redis instance
func NewClient(client *redis.Client) *Client {
	return &Client{cmdable: client}
}

// NewClusterClient creates a new traced Redis client for Redis cluster
func NewClusterClient(client *redis.ClusterClient) *Client {
	return &Client{cmdable: client}
}

// startSpan opens a command span with the shared client attributes
func startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	attrs = append(attrs,
		attribute.String("redis.operation", operation),
		attribute.String("redis.client", "app-sentinela"),
	)
	ctx, span := otel.Tracer("redis").Start(ctx, "redis."+operation,
		trace.WithAttributes(attrs...),
	)
	return ctx, span, time.Now()
}

// finishSpan records the command outcome and closes the span
func finishSpan(span trace.Span, start time.Time, err error) {
	duration := time.Since(start)
	span.SetAttributes(
		attribute.Int64("redis.duration_ms", duration.Milliseconds()),
		attribute.String("redis.duration", duration.String()),
	)
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("redis.error", err.Error()))
	} else {
		span.SetStatus(codes.Ok, "success")
	}
	span.End()
}

// Get wraps Redis Get with tracing
func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	ctx, span, start := startSpan(ctx, "get",
		attribute.String("redis.key", key),
		attribute.String("redis.type", "string"),
	)
	cmd := c.cmdable.Get(ctx, key)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// Set wraps Redis Set with tracing
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	ctx, span, start := startSpan(ctx, "set",
		attribute.String("redis.key", key),
		attribute.String("redis.type", "string"),
		attribute.String("redis.expiration", expiration.String()),
	)
	cmd := c.cmdable.Set(ctx, key, value, expiration)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// Del wraps Redis Del with tracing
func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	ctx, span, start := startSpan(ctx, "del",
		attribute.StringSlice("redis.keys", keys),
		attribute.Int("redis.key_count", len(keys)),
	)
	cmd := c.cmdable.Del(ctx, keys...)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// Ping wraps Redis Ping with tracing
func (c *Client) Ping(ctx context.Context) *redis.StatusCmd {
	ctx, span, start := startSpan(ctx, "ping")
	cmd := c.cmdable.Ping(ctx)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// Exists wraps Redis Exists with tracing
func (c *Client) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	ctx, span, start := startSpan(ctx, "exists",
		attribute.StringSlice("redis.keys", keys),
		attribute.Int("redis.key_count", len(keys)),
	)
	cmd := c.cmdable.Exists(ctx, keys...)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// TTL wraps Redis TTL with tracing
func (c *Client) TTL(ctx context.Context, key string) *redis.DurationCmd {
	ctx, span, start := startSpan(ctx, "ttl",
		attribute.String("redis.key", key),
	)
	cmd := c.cmdable.TTL(ctx, key)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// Expire wraps Redis Expire with tracing
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	ctx, span, start := startSpan(ctx, "expire",
		attribute.String("redis.key", key),
		attribute.String("redis.expiration", expiration.String()),
	)
	cmd := c.cmdable.Expire(ctx, key, expiration)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// SAdd wraps Redis SAdd with tracing
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	ctx, span, start := startSpan(ctx, "sadd",
		attribute.String("redis.key", key),
		attribute.String("redis.type", "set"),
		attribute.Int("redis.member_count", len(members)),
	)
	cmd := c.cmdable.SAdd(ctx, key, members...)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// SMembers wraps Redis SMembers with tracing
func (c *Client) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	ctx, span, start := startSpan(ctx, "smembers",
		attribute.String("redis.key", key),
		attribute.String("redis.type", "set"),
	)
	cmd := c.cmdable.SMembers(ctx, key)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// SRem wraps Redis SRem with tracing
func (c *Client) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	ctx, span, start := startSpan(ctx, "srem",
		attribute.String("redis.key", key),
		attribute.String("redis.type", "set"),
		attribute.Int("redis.member_count", len(members)),
	)
	cmd := c.cmdable.SRem(ctx, key, members...)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// SIsMember wraps Redis SIsMember with tracing
func (c *Client) SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd {
	ctx, span, start := startSpan(ctx, "sismember",
		attribute.String("redis.key", key),
		attribute.String("redis.type", "set"),
	)
	cmd := c.cmdable.SIsMember(ctx, key, member)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// Scan wraps Redis Scan with tracing
func (c *Client) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	ctx, span, start := startSpan(ctx, "scan",
		attribute.String("redis.pattern", match),
		attribute.Int64("redis.count", count),
	)
	cmd := c.cmdable.Scan(ctx, cursor, match, count)
	finishSpan(span, start, cmd.Err())
	return cmd
}

// Pipeline returns a Redis pipeline
func (c *Client) Pipeline() redis.Pipeliner {
	return c.cmdable.Pipeline()
}

// PoolStats returns connection pool statistics
func (c *Client) PoolStats() *redis.PoolStats {
	if singleClient, ok := c.cmdable.(*redis.Client); ok {
		return singleClient.PoolStats()
	}
	if clusterClient, ok := c.cmdable.(*redis.ClusterClient); ok {
		return clusterClient.PoolStats()
	}
	return &redis.PoolStats{}
}
