package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	MFA       MFAConfig
	Redis     RedisConfig
	Email     EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

type AuthConfig struct {
	SessionSecret       string
	SessionLifetime     time.Duration
	CookieSecure        bool
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

type RateLimitConfig struct {
	LoginLimit  int
	LoginWindow time.Duration
}

type MFAConfig struct {
	EncryptionKey   []byte // 32 bytes, AES-256
	Issuer          string
	ChallengeTTL    time.Duration
	MaxAttempts     int
	CleanupInterval time.Duration
}

type RedisConfig struct {
	Addr     string // empty = use in-memory stores (single-instance only)
	Password string
	DB       int
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

// Load reads configuration from the environment (.env is honored in
// development). Secrets are mandatory: there is no fallback signing
// secret, and startup fails when one is missing.
func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	mfaKey, err := decodeMFAKey(getEnv("MFA_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "shiftline"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitAndTrim(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			SessionSecret:       sessionSecret,
			SessionLifetime:     getEnvAsDuration("SESSION_LIFETIME", 7*24*time.Hour),
			CookieSecure:        env == "production" || getEnv("COOKIE_SECURE", "") == "true",
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:  getEnvAsInt("LOGIN_RATE_LIMIT", 5),
			LoginWindow: getEnvAsDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
		},
		MFA: MFAConfig{
			EncryptionKey:   mfaKey,
			Issuer:          getEnv("MFA_ISSUER", "Shiftline"),
			ChallengeTTL:    getEnvAsDuration("MFA_CHALLENGE_TTL", 5*time.Minute),
			MaxAttempts:     getEnvAsInt("MFA_MAX_ATTEMPTS", 3),
			CleanupInterval: getEnvAsDuration("MFA_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM", "no-reply@shiftline.app"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return cfg, nil
}

// validateSessionSecret enforces minimum strength for the signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example", "development-secret",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// decodeMFAKey decodes the base64 AES-256 key used to encrypt TOTP
// secrets at rest. Required: there is no default key.
func decodeMFAKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must be base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must decode to exactly 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // No origins unless explicitly configured
		}
		return splitAndTrim(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
