package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/observability"
	"go.uber.org/zap"
)

// Reconciler merges buffered IP sightings into the durable store and keeps
// the derived projections (last request IP, blocked-IP cache entries) in
// step. The merge is idempotent: re-running it over the same buffer contents
// converges to the same store state, so buffer entries are never deleted —
// their TTL is the retry window for a failed run.
type Reconciler struct {
	buffer    IngestBuffer
	userIPs   UserIPStore
	profiles  ProfileStore
	cache     *BlockedIPCache
	chunkSize int
	metrics   *Metrics
	logger    *logging.SafeLogger
	now       func() time.Time
}

// NewReconciler creates a reconciler
func NewReconciler(buffer IngestBuffer, userIPs UserIPStore, profiles ProfileStore, cache *BlockedIPCache, chunkSize int, metrics *Metrics, logger *logging.SafeLogger) *Reconciler {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &Reconciler{
		buffer:    buffer,
		userIPs:   userIPs,
		profiles:  profiles,
		cache:     cache,
		chunkSize: chunkSize,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// RunResult summarizes one batch reconciliation run
type RunResult struct {
	Users       int
	MergedPairs int
	Failures    int
	Duration    time.Duration
}

// Run executes one batch reconciliation pass over every user with buffered
// sightings
func (r *Reconciler) Run(ctx context.Context) (*RunResult, error) {
	start := r.now()

	userIDs, err := r.buffer.UserIDs(ctx)
	if err != nil {
		observability.ReconcileRuns.WithLabelValues("scheduled", "error").Inc()
		r.metrics.RecordRun(0, 0, r.now().Sub(start), false)
		return nil, fmt.Errorf("failed to enumerate buffered users: %w", err)
	}
	if len(userIDs) == 0 {
		observability.ReconcileRuns.WithLabelValues("scheduled", "success").Inc()
		r.metrics.RecordRun(0, 0, r.now().Sub(start), true)
		return &RunResult{Duration: r.now().Sub(start)}, nil
	}

	// Redis SCAN can return a key more than once across iterations
	pairs, touched, err := r.collectPairs(ctx, dedupUserIDs(userIDs))
	if err != nil {
		observability.ReconcileRuns.WithLabelValues("scheduled", "error").Inc()
		r.metrics.RecordRun(0, 0, r.now().Sub(start), false)
		return nil, err
	}

	now := r.now()
	if err := r.mergeChunked(ctx, pairs, now); err != nil {
		observability.ReconcileRuns.WithLabelValues("scheduled", "error").Inc()
		r.metrics.RecordRun(len(touched), 0, r.now().Sub(start), false)
		return nil, err
	}
	observability.ReconcileMergedPairs.Add(float64(len(pairs)))

	// Projection updates are isolated per user: one failing user never
	// blocks the rest of the batch
	failures := 0
	for _, userID := range touched {
		if err := r.refreshUserProjections(ctx, userID, now); err != nil {
			failures++
			observability.ReconcileUserFailures.Inc()
			r.logger.Error("failed to refresh user projections",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	result := &RunResult{
		Users:       len(touched),
		MergedPairs: len(pairs),
		Failures:    failures,
		Duration:    r.now().Sub(start),
	}

	outcome := "success"
	if failures > 0 {
		outcome = "partial"
	}
	observability.ReconcileRuns.WithLabelValues("scheduled", outcome).Inc()
	r.metrics.RecordRun(result.Users, result.MergedPairs, result.Duration, failures == 0)

	r.logger.Info("reconciliation run finished",
		zap.Int("users", result.Users),
		zap.Int("merged_pairs", result.MergedPairs),
		zap.Int("failures", result.Failures),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// ReconcileUserResult summarizes an on-demand single-user reconciliation
type ReconcileUserResult struct {
	UserID     string   `json:"user_id"`
	MergedIPs  []string `json:"merged_ips"`
	BlockedIPs []string `json:"blocked_ips"`
}

// ReconcileUser runs the merge for one user synchronously. An empty buffer
// is not an error: the blocked-IP cache entry is still refreshed from the
// durable store.
func (r *Reconciler) ReconcileUser(ctx context.Context, userID string) (*ReconcileUserResult, error) {
	ips, err := r.buffer.Sightings(ctx, userID)
	if err != nil {
		observability.ReconcileRuns.WithLabelValues("manual", "error").Inc()
		return nil, fmt.Errorf("failed to read buffered sightings: %w", err)
	}
	sort.Strings(ips)

	now := r.now()
	if len(ips) > 0 {
		pairs := make([]models.UserIPPair, 0, len(ips))
		for _, ip := range ips {
			pairs = append(pairs, models.UserIPPair{UserID: userID, IP: ip})
		}
		if err := r.mergeChunked(ctx, pairs, now); err != nil {
			observability.ReconcileRuns.WithLabelValues("manual", "error").Inc()
			return nil, err
		}
		observability.ReconcileMergedPairs.Add(float64(len(pairs)))

		if err := r.updateLastRequestIP(ctx, userID, now); err != nil {
			observability.ReconcileRuns.WithLabelValues("manual", "error").Inc()
			return nil, err
		}
	}

	blocked, err := r.cache.RefreshUser(ctx, userID)
	if err != nil {
		observability.ReconcileRuns.WithLabelValues("manual", "error").Inc()
		return nil, err
	}

	observability.ReconcileRuns.WithLabelValues("manual", "success").Inc()
	r.logger.Info("user reconciled",
		zap.String("user_id", userID),
		zap.Int("merged_ips", len(ips)))
	return &ReconcileUserResult{
		UserID:     userID,
		MergedIPs:  ips,
		BlockedIPs: blocked,
	}, nil
}

// collectPairs reads every user's sighting set and flattens the deduplicated
// result into upsertable pairs, returning the users that actually had
// sightings
func (r *Reconciler) collectPairs(ctx context.Context, userIDs []string) ([]models.UserIPPair, []string, error) {
	var pairs []models.UserIPPair
	var touched []string

	for _, userID := range userIDs {
		ips, err := r.buffer.Sightings(ctx, userID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read buffered sightings: %w", err)
		}
		if len(ips) == 0 {
			// The set expired between SCAN and read
			continue
		}
		for _, ip := range ips {
			pairs = append(pairs, models.UserIPPair{UserID: userID, IP: ip})
		}
		touched = append(touched, userID)
	}

	return pairs, touched, nil
}

// mergeChunked upserts the pairs in chunks. A failed chunk aborts the
// remaining ones; committed chunks stand, which is safe because every chunk
// is idempotent on its own.
func (r *Reconciler) mergeChunked(ctx context.Context, pairs []models.UserIPPair, now time.Time) error {
	for start := 0; start < len(pairs); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(pairs) {
			end = len(pairs)
		}
		if err := r.userIPs.BulkUpsert(ctx, pairs[start:end], now); err != nil {
			return fmt.Errorf("failed to merge sightings chunk: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) refreshUserProjections(ctx context.Context, userID string, now time.Time) error {
	if err := r.updateLastRequestIP(ctx, userID, now); err != nil {
		return err
	}
	if _, err := r.cache.RefreshUser(ctx, userID); err != nil {
		return err
	}
	return nil
}

func (r *Reconciler) updateLastRequestIP(ctx context.Context, userID string, now time.Time) error {
	latest, err := r.userIPs.LatestForUser(ctx, userID)
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}
	return r.profiles.SetLastRequestIP(ctx, userID, latest.IP, now)
}

func dedupUserIDs(userIDs []string) []string {
	seen := make(map[string]struct{}, len(userIDs))
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
