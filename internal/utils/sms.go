package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/config"
	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/observability"
	"github.com/prefeitura-rio/app-sentinela/internal/redisclient"
	"github.com/prefeitura-rio/app-sentinela/internal/utils/httpclient"
	"go.uber.org/zap"
)

type smsAuthResponse struct {
	Data struct {
		Item struct {
			Token      string `json:"token"`
			Expiration int64  `json:"expiration"`
		} `json:"item"`
	} `json:"data"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type smsDestination struct {
	To   string                 `json:"to"`
	Vars map[string]interface{} `json:"vars"`
}

type smsMessageRequest struct {
	CostCenterID int              `json:"costCenterId"`
	CampaignName string           `json:"campaignName"`
	Destinations []smsDestination `json:"destinations"`
}

// SMSDispatcher sends OTP codes through the external SMS gateway. Auth
// tokens are cached in Redis until shortly before their expiration. No
// retries; a failed dispatch is the caller's problem to surface.
type SMSDispatcher struct {
	baseURL      string
	username     string
	password     string
	costCenterID int
	redis        *redisclient.Client
	logger       *logging.SafeLogger
}

// NewSMSDispatcher creates an SMS dispatcher from the app configuration
func NewSMSDispatcher(cfg *config.Config, redis *redisclient.Client) *SMSDispatcher {
	return &SMSDispatcher{
		baseURL:      cfg.SMSBaseURL,
		username:     cfg.SMSUsername,
		password:     cfg.SMSPassword,
		costCenterID: cfg.SMSCostCenterID,
		redis:        redis,
		logger:       logging.Logger,
	}
}

// SendOTP sends a verification code to a single phone number
func (d *SMSDispatcher) SendOTP(ctx context.Context, phone string, code string) error {
	token, err := d.getAuthToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate with SMS gateway: %w", err)
	}

	msg := smsMessageRequest{
		CostCenterID: d.costCenterID,
		CampaignName: "otp-verification",
		Destinations: []smsDestination{
			{
				To:   phone,
				Vars: map[string]interface{}{"COD": code},
			},
		},
	}

	jsonBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	url := fmt.Sprintf("%s/messages/send", d.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		d.logger.Error("SMS gateway rejected dispatch",
			zap.String("phone", observability.MaskPhone(phone)),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return fmt.Errorf("SMS dispatch failed with status: %d", resp.StatusCode)
	}

	d.logger.Info("SMS dispatched",
		zap.String("phone", observability.MaskPhone(phone)))
	return nil
}

// getAuthToken gets an SMS gateway token, using Redis for caching
func (d *SMSDispatcher) getAuthToken(ctx context.Context) (string, error) {
	logger := d.logger.With(zap.String("operation", "sms_auth_token"))

	cacheKey := "sms:token"
	token, err := d.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		observability.CacheHits.WithLabelValues("sms_token").Inc()
		return token, nil
	}

	authURL := fmt.Sprintf("%s/users/login", d.baseURL)
	authBody := map[string]string{
		"username": d.username,
		"password": d.password,
	}

	jsonBody, err := json.Marshal(authBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("failed to send auth request", zap.Error(err))
		return "", fmt.Errorf("failed to send auth request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth request failed with status: %d", resp.StatusCode)
	}

	var authResp smsAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}

	// Cache with a TTL slightly shorter than the token expiration
	expiresAt := time.Unix(0, authResp.Data.Item.Expiration*int64(time.Millisecond))
	ttl := time.Until(expiresAt) - time.Minute
	if ttl > 0 {
		if err := d.redis.Set(ctx, cacheKey, authResp.Data.Item.Token, ttl).Err(); err != nil {
			logger.Warn("failed to cache auth token", zap.Error(err))
		}
	}

	return authResp.Data.Item.Token, nil
}
