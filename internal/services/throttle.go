package services

import (
	"math"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/models"
)

// ThrottleGate decides whether a new OTP request is permitted for a phone,
// given the prior request history. The window is anchored at the last
// request, not at a calendar boundary, so every permitted request extends
// the deadline for the next rollover.
type ThrottleGate struct {
	window      time.Duration
	maxRequests int
}

// NewThrottleGate creates a throttle gate with the given window and cap
func NewThrottleGate(window time.Duration, maxRequests int) *ThrottleGate {
	return &ThrottleGate{
		window:      window,
		maxRequests: maxRequests,
	}
}

// ThrottleDecision is the outcome of a permitted request
type ThrottleDecision struct {
	// RequestCount is the count the OTP row must be updated to
	RequestCount int
}

// Decide evaluates a new request against the existing OTP row. It returns a
// TooManyRequestsError carrying the ceiling-rounded minutes until the window
// rolls over when the cap is exhausted. The gate itself mutates nothing.
func (g *ThrottleGate) Decide(existing *models.OtpRequest, now time.Time) (ThrottleDecision, error) {
	if existing == nil {
		return ThrottleDecision{RequestCount: 1}, nil
	}

	windowStart := now.Add(-g.window)
	if existing.LastRequestAt.Before(windowStart) {
		// Window rolled over; the counter starts fresh
		return ThrottleDecision{RequestCount: 1}, nil
	}

	if existing.RequestCount >= g.maxRequests {
		remaining := existing.LastRequestAt.Add(g.window).Sub(now)
		retryAfter := int(math.Ceil(remaining.Minutes()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return ThrottleDecision{}, &models.TooManyRequestsError{RetryAfterMinutes: retryAfter}
	}

	return ThrottleDecision{RequestCount: existing.RequestCount + 1}, nil
}
