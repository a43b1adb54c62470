package services

import (
	"context"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"go.uber.org/zap"
)

// ReconcileScheduler runs the batch reconciler on a fixed interval. It is a
// single-instance loop; running more than one scheduler against the same
// buffer is harmless (the merge is idempotent) but wasteful.
type ReconcileScheduler struct {
	reconciler *Reconciler
	interval   time.Duration
	logger     *logging.SafeLogger
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewReconcileScheduler creates a scheduler around a reconciler
func NewReconcileScheduler(reconciler *Reconciler, interval time.Duration, logger *logging.SafeLogger) *ReconcileScheduler {
	return &ReconcileScheduler{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start starts the scheduler loop
func (s *ReconcileScheduler) Start() {
	s.logger.Info("starting reconcile scheduler", zap.Duration("interval", s.interval))
	go s.run()
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *ReconcileScheduler) Stop() {
	s.logger.Info("stopping reconcile scheduler")
	close(s.stopChan)
	<-s.doneChan
	s.logger.Info("reconcile scheduler stopped")
}

func (s *ReconcileScheduler) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.reconciler.Run(context.Background()); err != nil {
				s.logger.Error("reconciliation run failed", zap.Error(err))
			}
		}
	}
}

// GetMetrics returns the reconciler metrics for monitoring
func (s *ReconcileScheduler) GetMetrics() *Metrics {
	return s.reconciler.metrics
}
