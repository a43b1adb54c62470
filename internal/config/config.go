package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// MongoDB configuration
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`

	// Redis configuration
	RedisURI      string `json:"redis_uri"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Collection names
	OTPRequestCollection  string `json:"mongo_otp_request_collection"`
	UserIPCollection      string `json:"mongo_user_ip_collection"`
	BlockedIPCollection   string `json:"mongo_blocked_ip_collection"`
	UserProfileCollection string `json:"mongo_user_profile_collection"`

	// OTP configuration
	OTPExpiry               time.Duration `json:"otp_expiry"`
	OTPThrottleWindow       time.Duration `json:"otp_throttle_window"`
	OTPMaxRequestsPerWindow int           `json:"otp_max_requests_per_window"`
	OTPCodeLength           int           `json:"otp_code_length"`
	OTPTokenTTL             time.Duration `json:"otp_token_ttl"`
	OTPTestMode             bool          `json:"otp_test_mode"`

	// SMS dispatch configuration
	SMSBaseURL      string `json:"sms_base_url"`
	SMSUsername     string `json:"sms_username"`
	SMSPassword     string `json:"sms_password"`
	SMSCostCenterID int    `json:"sms_cost_center_id"`

	// IP reconciliation configuration
	IPBufferTTL        time.Duration `json:"ip_buffer_ttl"`
	ReconcileInterval  time.Duration `json:"reconcile_interval"`
	ReconcileChunkSize int           `json:"reconcile_chunk_size"`
	BlockedIPCacheTTL  time.Duration `json:"blocked_ip_cache_ttl"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	// Local development convenience; ignored when the file is absent
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	otpExpiry, err := parseMinutes("OTP_EXPIRY_MINUTES", "5")
	if err != nil {
		return err
	}

	otpThrottleWindow, err := parseMinutes("OTP_THROTTLE_WINDOW_MINUTES", "15")
	if err != nil {
		return err
	}

	otpMaxRequests, err := strconv.Atoi(getEnvOrDefault("OTP_MAX_REQUESTS_PER_WINDOW", "3"))
	if err != nil {
		return fmt.Errorf("invalid OTP_MAX_REQUESTS_PER_WINDOW: %w", err)
	}

	otpCodeLength, err := strconv.Atoi(getEnvOrDefault("OTP_CODE_LENGTH", "6"))
	if err != nil {
		return fmt.Errorf("invalid OTP_CODE_LENGTH: %w", err)
	}
	if otpCodeLength < 4 || otpCodeLength > 10 {
		return fmt.Errorf("OTP_CODE_LENGTH must be between 4 and 10, got %d", otpCodeLength)
	}

	otpTokenTTL, err := parseMinutes("OTP_TOKEN_TTL_MINUTES", "2")
	if err != nil {
		return err
	}

	otpTestMode, err := strconv.ParseBool(getEnvOrDefault("OTP_TEST_MODE", "false"))
	if err != nil {
		return fmt.Errorf("invalid OTP_TEST_MODE: %w", err)
	}

	environment := getEnvOrDefault("ENVIRONMENT", "development")
	if otpTestMode && environment == "production" {
		return fmt.Errorf("OTP_TEST_MODE must not be enabled in production")
	}

	smsCostCenterID, err := strconv.Atoi(getEnvOrDefault("SMS_COST_CENTER_ID", "0"))
	if err != nil {
		return fmt.Errorf("invalid SMS_COST_CENTER_ID: %w", err)
	}

	ipBufferTTL, err := time.ParseDuration(getEnvOrDefault("IP_BUFFER_TTL", "1h"))
	if err != nil {
		return fmt.Errorf("invalid IP_BUFFER_TTL: %w", err)
	}

	reconcileInterval, err := time.ParseDuration(getEnvOrDefault("RECONCILE_INTERVAL", "5m"))
	if err != nil {
		return fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}

	reconcileChunkSize, err := strconv.Atoi(getEnvOrDefault("RECONCILE_CHUNK_SIZE", "1000"))
	if err != nil {
		return fmt.Errorf("invalid RECONCILE_CHUNK_SIZE: %w", err)
	}
	if reconcileChunkSize < 1 {
		return fmt.Errorf("RECONCILE_CHUNK_SIZE must be positive, got %d", reconcileChunkSize)
	}

	blockedIPCacheTTL, err := time.ParseDuration(getEnvOrDefault("BLOCKED_IP_CACHE_TTL", "30m"))
	if err != nil {
		return fmt.Errorf("invalid BLOCKED_IP_CACHE_TTL: %w", err)
	}

	tracingEnabled, err := strconv.ParseBool(getEnvOrDefault("TRACING_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("invalid TRACING_ENABLED: %w", err)
	}

	AppConfig = &Config{
		// Server configuration
		Port:        port,
		Environment: environment,

		// MongoDB configuration
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "sentinela"),

		// Redis configuration
		RedisURI:      getEnvOrDefault("REDIS_URI", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		// Collection names
		OTPRequestCollection:  getEnvOrDefault("MONGODB_OTP_REQUEST_COLLECTION", "otp_requests"),
		UserIPCollection:      getEnvOrDefault("MONGODB_USER_IP_COLLECTION", "user_ips"),
		BlockedIPCollection:   getEnvOrDefault("MONGODB_BLOCKED_IP_COLLECTION", "blocked_ips"),
		UserProfileCollection: getEnvOrDefault("MONGODB_USER_PROFILE_COLLECTION", "user_profiles"),

		// OTP configuration
		OTPExpiry:               otpExpiry,
		OTPThrottleWindow:       otpThrottleWindow,
		OTPMaxRequestsPerWindow: otpMaxRequests,
		OTPCodeLength:           otpCodeLength,
		OTPTokenTTL:             otpTokenTTL,
		OTPTestMode:             otpTestMode,

		// SMS dispatch configuration
		SMSBaseURL:      getEnvOrDefault("SMS_BASE_URL", ""),
		SMSUsername:     getEnvOrDefault("SMS_USERNAME", ""),
		SMSPassword:     getEnvOrDefault("SMS_PASSWORD", ""),
		SMSCostCenterID: smsCostCenterID,

		// IP reconciliation configuration
		IPBufferTTL:        ipBufferTTL,
		ReconcileInterval:  reconcileInterval,
		ReconcileChunkSize: reconcileChunkSize,
		BlockedIPCacheTTL:  blockedIPCacheTTL,

		// Tracing configuration
		TracingEnabled:  tracingEnabled,
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}

	return nil
}

// parseMinutes reads an integer minute count from the environment
func parseMinutes(key, defaultValue string) (time.Duration, error) {
	minutes, err := strconv.Atoi(getEnvOrDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if minutes < 1 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, minutes)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
