package models

import (
	"errors"
	"fmt"
)

// Error constants for OTP operations
var (
	ErrInvalidPhoneFormat    = errors.New("invalid phone number format")
	ErrPhoneAlreadyVerified  = errors.New("phone number already verified")
	ErrOTPNotFound           = errors.New("no active OTP request for phone")
	ErrOTPExpired            = errors.New("OTP code expired")
	ErrInvalidOTPCode        = errors.New("invalid OTP code")
	ErrSMSDispatchFailed     = errors.New("SMS dispatch failed")
	ErrTokenNotFound         = errors.New("exchange token not found")
	ErrTokenExpired          = errors.New("exchange token expired")
	ErrBlockedIPNotFound     = errors.New("blocked IP not found")
	ErrBlockedIPExists       = errors.New("IP already blocked")
	ErrUserIPPairNotFound    = errors.New("user IP pair not found")
)

// TooManyRequestsError is returned when the OTP throttle window is exhausted.
// RetryAfterMinutes is the ceiling-rounded wait until the window rolls over.
type TooManyRequestsError struct {
	RetryAfterMinutes int
}

func (e *TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many OTP requests, retry in %d minutes", e.RetryAfterMinutes)
}

// IsTooManyRequests reports whether err is a throttle rejection
func IsTooManyRequests(err error) bool {
	var tmr *TooManyRequestsError
	return errors.As(err, &tmr)
}
