package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CookieSecret string // Required: HMAC key signing the session cookie
	TokenSecret  string // Required: HMAC key deriving registration tokens

	CacheDriver string // Optional: cache backend (memory, redis) (default: memory)
	RedisURL    string // Optional: redis URL for the redis cache driver

	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string // Optional: path to pepper file for password hashing (default: ./pepper)

	CookieDomain string // Optional: Domain attribute on the session cookie
	CookieSecure bool   // Optional: Secure flag on the session cookie (default: true)
	TOTPIssuer   string // Optional: issuer label in TOTP provisioning URLs

	LoginAttemptLimit int64         // Failed logins before a block (default: 5)
	OTPAttemptLimit   int64         // OTP attempts before a block (default: 5)
	SessionTTL        time.Duration // Default session lifetime (default: 24h)
	PermanentTTL      time.Duration // Remember-me session lifetime (default: 10y)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads configuration from the environment, with an optional .env
// file layered underneath for local development.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		CookieSecret: os.Getenv("AUTH_COOKIE_SECRET"),
		TokenSecret:  os.Getenv("AUTH_TOKEN_SECRET"),

		CacheDriver: getEnvOrDefault("AUTH_CACHE_DRIVER", "memory"),
		RedisURL:    getEnvOrDefault("AUTH_REDIS_URL", "redis://localhost:6379/0"),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		CookieDomain: os.Getenv("AUTH_COOKIE_DOMAIN"),
		CookieSecure: getEnvBoolOrDefault("AUTH_COOKIE_SECURE", true),
		TOTPIssuer:   getEnvOrDefault("AUTH_TOTP_ISSUER", "norvik"),

		LoginAttemptLimit: int64(getEnvIntOrDefault("AUTH_LOGIN_ATTEMPT_LIMIT", 5)),
		OTPAttemptLimit:   int64(getEnvIntOrDefault("AUTH_OTP_ATTEMPT_LIMIT", 5)),
		SessionTTL:        getEnvDurationOrDefault("AUTH_SESSION_TTL", 24*time.Hour),
		PermanentTTL:      getEnvDurationOrDefault("AUTH_PERMANENT_TTL", 10*365*24*time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
