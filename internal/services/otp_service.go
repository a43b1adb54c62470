package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/observability"
	"github.com/prefeitura-rio/app-sentinela/internal/utils"
	"go.uber.org/zap"
)

// OTPStore is the durable-store contract for OTP rows. Implementations must
// honor the one-active-row-per-phone invariant.
type OTPStore interface {
	// FindActiveByPhone returns the active row for a canonical phone, or
	// models.ErrOTPNotFound
	FindActiveByPhone(ctx context.Context, phone string) (*models.OtpRequest, error)
	// UpsertActive inserts or replaces the active row for req.Phone
	UpsertActive(ctx context.Context, req *models.OtpRequest) error
	// SetVerified marks the active row verified and stores the exchange token
	SetVerified(ctx context.Context, phone, token string, tokenExpiresAt, now time.Time) error
	// FindActiveByToken returns the active row holding the exchange token,
	// or models.ErrTokenNotFound
	FindActiveByToken(ctx context.Context, token string) (*models.OtpRequest, error)
	// ArchiveByToken soft-deletes the row holding the token, freeing the phone
	ArchiveByToken(ctx context.Context, token string, now time.Time) error
}

// CodeSender dispatches an OTP code to a phone. No retries are expected.
type CodeSender interface {
	SendOTP(ctx context.Context, phone string, code string) error
}

// OTPConfig carries the tunables of the OTP lifecycle
type OTPConfig struct {
	Expiry               time.Duration
	ThrottleWindow       time.Duration
	MaxRequestsPerWindow int
	CodeLength           int
	TokenTTL             time.Duration
	// TestMode skips SMS dispatch and echoes the raw code in the result.
	// Never enabled in production; config.LoadConfig refuses it.
	TestMode bool
}

// OTPService governs OTP issuance, verification and exchange-token
// redemption for phone ownership proof.
//
// The verified_at transition happens in Verify, atomically with the token
// write: a verified active row blocks both re-issue and re-verify until the
// token consumer redeems it, which archives the row.
type OTPService struct {
	cfg    OTPConfig
	store  OTPStore
	sender CodeSender
	gate   *ThrottleGate
	logger *logging.SafeLogger
	now    func() time.Time
}

// NewOTPService creates an OTP service
func NewOTPService(cfg OTPConfig, store OTPStore, sender CodeSender, logger *logging.SafeLogger) *OTPService {
	return &OTPService{
		cfg:    cfg,
		store:  store,
		sender: sender,
		gate:   NewThrottleGate(cfg.ThrottleWindow, cfg.MaxRequestsPerWindow),
		logger: logger,
		now:    time.Now,
	}
}

// OTPIssueResult is the outcome of a permitted OTP request
type OTPIssueResult struct {
	Phone        string    `json:"phone"`
	RequestCount int       `json:"request_count"`
	ExpiresAt    time.Time `json:"expires_at"`
	// Code is only populated in test mode
	Code string `json:"code,omitempty"`
}

// Request issues a new OTP for a phone, subject to throttling
func (s *OTPService) Request(ctx context.Context, phone, ip string) (*OTPIssueResult, error) {
	canonical, err := utils.NormalizePhone(phone)
	if err != nil {
		observability.OTPRequests.WithLabelValues("invalid_phone", "unknown").Inc()
		return nil, err
	}
	region := utils.PhoneRegion(canonical)

	existing, err := s.store.FindActiveByPhone(ctx, canonical)
	if err != nil && !errors.Is(err, models.ErrOTPNotFound) {
		return nil, fmt.Errorf("failed to look up OTP request: %w", err)
	}

	if existing != nil && existing.IsVerified() {
		observability.OTPRequests.WithLabelValues("already_verified", region).Inc()
		return nil, models.ErrPhoneAlreadyVerified
	}

	now := s.now()
	decision, err := s.gate.Decide(existing, now)
	if err != nil {
		observability.OTPRequests.WithLabelValues("throttled", region).Inc()
		return nil, err
	}

	code, err := utils.GenerateOTPCode(s.cfg.CodeLength)
	if err != nil {
		return nil, err
	}

	row := &models.OtpRequest{
		Phone:         canonical,
		OTP:           code,
		IPAddress:     ip,
		RequestCount:  decision.RequestCount,
		LastRequestAt: now,
		ExpiresAt:     now.Add(s.cfg.Expiry),
		Status:        models.OTPStatusActive,
		UpdatedAt:     now,
	}
	if existing != nil {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = now
	}
	// VerifiedAt, Token and TokenExpiresAt stay zero: a resend always clears
	// any stale verified flag or token from an earlier cycle

	if err := s.store.UpsertActive(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to persist OTP request: %w", err)
	}

	result := &OTPIssueResult{
		Phone:        canonical,
		RequestCount: decision.RequestCount,
		ExpiresAt:    row.ExpiresAt,
	}

	if s.cfg.TestMode {
		s.logger.Info("test mode enabled, skipping SMS dispatch",
			zap.String("phone", observability.MaskPhone(canonical)))
		result.Code = code
		observability.OTPRequests.WithLabelValues("issued", region).Inc()
		return result, nil
	}

	if err := s.sender.SendOTP(ctx, canonical, code); err != nil {
		// The persisted row is intentionally left intact: the user can retry
		// once the throttle window permits without restarting the cycle
		s.logger.Error("failed to dispatch OTP",
			zap.String("phone", observability.MaskPhone(canonical)),
			zap.Error(err))
		observability.OTPRequests.WithLabelValues("sms_failed", region).Inc()
		return nil, models.ErrSMSDispatchFailed
	}

	s.logger.Info("OTP issued",
		zap.String("phone", observability.MaskPhone(canonical)),
		zap.Int("request_count", decision.RequestCount))
	observability.OTPRequests.WithLabelValues("issued", region).Inc()
	return result, nil
}

// Verify checks a submitted code against the active OTP row and, on match,
// marks the phone verified and returns a short-lived exchange token
func (s *OTPService) Verify(ctx context.Context, phone, code string) (string, error) {
	canonical, err := utils.NormalizePhone(phone)
	if err != nil {
		observability.OTPVerifications.WithLabelValues("invalid_phone").Inc()
		return "", err
	}

	row, err := s.store.FindActiveByPhone(ctx, canonical)
	if err != nil {
		if errors.Is(err, models.ErrOTPNotFound) {
			observability.OTPVerifications.WithLabelValues("not_found").Inc()
		}
		return "", err
	}

	if row.IsVerified() {
		observability.OTPVerifications.WithLabelValues("already_verified").Inc()
		return "", models.ErrPhoneAlreadyVerified
	}

	now := s.now()
	if row.IsCodeExpired(now) {
		observability.OTPVerifications.WithLabelValues("expired").Inc()
		return "", models.ErrOTPExpired
	}

	// String comparison, never numeric: codes keep their leading zeros
	if row.OTP != code {
		observability.OTPVerifications.WithLabelValues("mismatch").Inc()
		return "", models.ErrInvalidOTPCode
	}

	token, err := utils.GenerateExchangeToken()
	if err != nil {
		return "", err
	}

	if err := s.store.SetVerified(ctx, canonical, token, now.Add(s.cfg.TokenTTL), now); err != nil {
		return "", fmt.Errorf("failed to mark phone verified: %w", err)
	}

	s.logger.Info("phone verified",
		zap.String("phone", observability.MaskPhone(canonical)))
	observability.OTPVerifications.WithLabelValues("verified").Inc()
	return token, nil
}

// Redeem consumes an exchange token, proving recent phone ownership to the
// downstream flow. The row is archived, which frees the phone for a future
// OTP cycle.
func (s *OTPService) Redeem(ctx context.Context, token string) (string, error) {
	row, err := s.store.FindActiveByToken(ctx, token)
	if err != nil {
		return "", err
	}

	now := s.now()
	if row.IsTokenExpired(now) {
		return "", models.ErrTokenExpired
	}

	if err := s.store.ArchiveByToken(ctx, token, now); err != nil {
		return "", fmt.Errorf("failed to archive OTP request: %w", err)
	}

	s.logger.Info("exchange token redeemed",
		zap.String("phone", observability.MaskPhone(row.Phone)))
	return row.Phone, nil
}
