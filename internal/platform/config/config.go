package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Tunable business thresholds
// (OTP length, attempt budgets, message templates) deliberately do NOT live
// here: operators manage those through the threshold store so they can be
// changed without a restart.
type Config struct {
	Addr        string
	PostgresDSN string
	RedisURL    string

	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SMSGatewayURL   string
	SMSGatewayToken string

	PhoneCountryCode  string
	ThresholdCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:        envOr("GREENGATE_ADDR", ":8080"),
		PostgresDSN: os.Getenv("GREENGATE_POSTGRES_DSN"),
		RedisURL:    os.Getenv("GREENGATE_REDIS_URL"),

		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       envOr("JWT_ISSUER", "greengate"),
		JWTAudience:     envOr("JWT_AUDIENCE", "greengate-clients"),
		AccessTokenTTL:  envDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL: envDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		SMSGatewayURL:   os.Getenv("SMS_GATEWAY_URL"),
		SMSGatewayToken: os.Getenv("SMS_GATEWAY_TOKEN"),

		PhoneCountryCode:  envOr("PHONE_COUNTRY_CODE", "94"),
		ThresholdCacheTTL: envDuration("THRESHOLD_CACHE_TTL", 5*time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
