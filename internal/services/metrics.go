package services

import (
	"sync"
	"time"
)

// Metrics holds the in-memory counters of the reconciliation scheduler
type Metrics struct {
	totalRuns       int64
	failedRuns      int64
	usersProcessed  int64
	pairsMerged     int64
	lastRunAt       time.Time
	lastRunDuration time.Duration
	lastRunSuccess  bool
	mu              sync.RWMutex
}

// NewMetrics creates new reconciliation metrics
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRun records the outcome of one reconciliation run
func (m *Metrics) RecordRun(users, pairs int, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRuns++
	if !success {
		m.failedRuns++
	}
	m.usersProcessed += int64(users)
	m.pairsMerged += int64(pairs)
	m.lastRunAt = time.Now()
	m.lastRunDuration = duration
	m.lastRunSuccess = success
}

// GetLastRunTime returns when the last run finished
func (m *Metrics) GetLastRunTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRunAt
}

// GetAllMetrics returns all metrics as a map for monitoring
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"total_runs":        m.totalRuns,
		"failed_runs":       m.failedRuns,
		"users_processed":   m.usersProcessed,
		"pairs_merged":      m.pairsMerged,
		"last_run_at":       m.lastRunAt,
		"last_run_duration": m.lastRunDuration.String(),
		"last_run_success":  m.lastRunSuccess,
	}
}
