package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	require.NoError(t, LoadConfig())

	assert.Equal(t, 8080, AppConfig.Port)
	assert.Equal(t, "development", AppConfig.Environment)
	assert.Equal(t, "sentinela", AppConfig.MongoDatabase)
	assert.Equal(t, "otp_requests", AppConfig.OTPRequestCollection)
	assert.Equal(t, "user_ips", AppConfig.UserIPCollection)
	assert.Equal(t, "blocked_ips", AppConfig.BlockedIPCollection)
	assert.Equal(t, "user_profiles", AppConfig.UserProfileCollection)

	assert.Equal(t, 5*time.Minute, AppConfig.OTPExpiry)
	assert.Equal(t, 15*time.Minute, AppConfig.OTPThrottleWindow)
	assert.Equal(t, 3, AppConfig.OTPMaxRequestsPerWindow)
	assert.Equal(t, 6, AppConfig.OTPCodeLength)
	assert.Equal(t, 2*time.Minute, AppConfig.OTPTokenTTL)
	assert.False(t, AppConfig.OTPTestMode)

	assert.Equal(t, time.Hour, AppConfig.IPBufferTTL)
	assert.Equal(t, 5*time.Minute, AppConfig.ReconcileInterval)
	assert.Equal(t, 1000, AppConfig.ReconcileChunkSize)
	assert.Equal(t, 30*time.Minute, AppConfig.BlockedIPCacheTTL)
	assert.False(t, AppConfig.TracingEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OTP_EXPIRY_MINUTES", "10")
	t.Setenv("OTP_THROTTLE_WINDOW_MINUTES", "30")
	t.Setenv("OTP_MAX_REQUESTS_PER_WINDOW", "5")
	t.Setenv("OTP_CODE_LENGTH", "8")
	t.Setenv("IP_BUFFER_TTL", "2h")
	t.Setenv("RECONCILE_INTERVAL", "1m")
	t.Setenv("RECONCILE_CHUNK_SIZE", "250")
	t.Setenv("BLOCKED_IP_CACHE_TTL", "10m")

	require.NoError(t, LoadConfig())

	assert.Equal(t, 9090, AppConfig.Port)
	assert.Equal(t, 10*time.Minute, AppConfig.OTPExpiry)
	assert.Equal(t, 30*time.Minute, AppConfig.OTPThrottleWindow)
	assert.Equal(t, 5, AppConfig.OTPMaxRequestsPerWindow)
	assert.Equal(t, 8, AppConfig.OTPCodeLength)
	assert.Equal(t, 2*time.Hour, AppConfig.IPBufferTTL)
	assert.Equal(t, time.Minute, AppConfig.ReconcileInterval)
	assert.Equal(t, 250, AppConfig.ReconcileChunkSize)
	assert.Equal(t, 10*time.Minute, AppConfig.BlockedIPCacheTTL)
}

func TestLoadConfig_TestModeAllowedOutsideProduction(t *testing.T) {
	t.Setenv("OTP_TEST_MODE", "true")
	t.Setenv("ENVIRONMENT", "staging")

	require.NoError(t, LoadConfig())
	assert.True(t, AppConfig.OTPTestMode)
}

func TestLoadConfig_TestModeRefusedInProduction(t *testing.T) {
	t.Setenv("OTP_TEST_MODE", "true")
	t.Setenv("ENVIRONMENT", "production")

	err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTP_TEST_MODE")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad port", key: "PORT", value: "not-a-number"},
		{name: "zero throttle window", key: "OTP_THROTTLE_WINDOW_MINUTES", value: "0"},
		{name: "code too short", key: "OTP_CODE_LENGTH", value: "3"},
		{name: "code too long", key: "OTP_CODE_LENGTH", value: "11"},
		{name: "bad buffer ttl", key: "IP_BUFFER_TTL", value: "soon"},
		{name: "zero chunk size", key: "RECONCILE_CHUNK_SIZE", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			assert.Error(t, LoadConfig())
		})
	}
}
