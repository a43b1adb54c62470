package services

import (
	"errors"
	"testing"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/models"
)

func TestThrottleGate_FirstRequest(t *testing.T) {
	gate := NewThrottleGate(15*time.Minute, 3)

	decision, err := gate.Decide(nil, time.Now())
	if err != nil {
		t.Fatalf("Decide() error = %v, want nil", err)
	}
	if decision.RequestCount != 1 {
		t.Errorf("Decide() request count = %d, want 1", decision.RequestCount)
	}
}

func TestThrottleGate_CountsWithinWindow(t *testing.T) {
	gate := NewThrottleGate(15*time.Minute, 3)
	now := time.Now()

	existing := &models.OtpRequest{
		RequestCount:  1,
		LastRequestAt: now.Add(-5 * time.Minute),
	}

	decision, err := gate.Decide(existing, now)
	if err != nil {
		t.Fatalf("Decide() error = %v, want nil", err)
	}
	if decision.RequestCount != 2 {
		t.Errorf("Decide() request count = %d, want 2", decision.RequestCount)
	}
}

func TestThrottleGate_WindowRollover(t *testing.T) {
	gate := NewThrottleGate(15*time.Minute, 3)
	now := time.Now()

	// The cap was reached, but the last request fell out of the window
	existing := &models.OtpRequest{
		RequestCount:  3,
		LastRequestAt: now.Add(-16 * time.Minute),
	}

	decision, err := gate.Decide(existing, now)
	if err != nil {
		t.Fatalf("Decide() error = %v, want nil", err)
	}
	if decision.RequestCount != 1 {
		t.Errorf("Decide() request count after rollover = %d, want 1", decision.RequestCount)
	}
}

func TestThrottleGate_CapExhausted(t *testing.T) {
	gate := NewThrottleGate(15*time.Minute, 3)
	now := time.Now()

	existing := &models.OtpRequest{
		RequestCount:  3,
		LastRequestAt: now.Add(-5 * time.Minute),
	}

	_, err := gate.Decide(existing, now)
	if err == nil {
		t.Fatal("Decide() error = nil, want throttle rejection")
	}

	var throttled *models.TooManyRequestsError
	if !errors.As(err, &throttled) {
		t.Fatalf("Decide() error type = %T, want *models.TooManyRequestsError", err)
	}
	// 10 minutes remain until rollover
	if throttled.RetryAfterMinutes != 10 {
		t.Errorf("RetryAfterMinutes = %d, want 10", throttled.RetryAfterMinutes)
	}
}

func TestThrottleGate_RetryAfterRoundsUp(t *testing.T) {
	gate := NewThrottleGate(15*time.Minute, 3)
	now := time.Now()

	existing := &models.OtpRequest{
		RequestCount:  3,
		LastRequestAt: now.Add(-14*time.Minute - 30*time.Second),
	}

	_, err := gate.Decide(existing, now)
	var throttled *models.TooManyRequestsError
	if !errors.As(err, &throttled) {
		t.Fatalf("Decide() error type = %T, want *models.TooManyRequestsError", err)
	}
	// 30 seconds remain; the caller-facing value is ceiling-rounded
	if throttled.RetryAfterMinutes != 1 {
		t.Errorf("RetryAfterMinutes = %d, want 1", throttled.RetryAfterMinutes)
	}
}

func TestThrottleGate_RetryAfterNeverBelowOne(t *testing.T) {
	gate := NewThrottleGate(15*time.Minute, 1)
	now := time.Now()

	existing := &models.OtpRequest{
		RequestCount:  1,
		LastRequestAt: now.Add(-15 * time.Minute).Add(time.Millisecond),
	}

	_, err := gate.Decide(existing, now)
	var throttled *models.TooManyRequestsError
	if !errors.As(err, &throttled) {
		t.Fatalf("Decide() error type = %T, want *models.TooManyRequestsError", err)
	}
	if throttled.RetryAfterMinutes < 1 {
		t.Errorf("RetryAfterMinutes = %d, want >= 1", throttled.RetryAfterMinutes)
	}
}

func TestThrottleGate_OverCountStillRejected(t *testing.T) {
	gate := NewThrottleGate(15*time.Minute, 3)
	now := time.Now()

	// A lowered cap can leave rows above the configured maximum
	existing := &models.OtpRequest{
		RequestCount:  7,
		LastRequestAt: now.Add(-time.Minute),
	}

	_, err := gate.Decide(existing, now)
	if !models.IsTooManyRequests(err) {
		t.Errorf("Decide() error = %v, want throttle rejection", err)
	}
}
