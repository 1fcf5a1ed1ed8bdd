package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Throttle ThrottleConfig
}

type DatabaseConfig struct {
	Driver            string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	SQLitePath        string
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
	SentryDSN      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// AuthConfig carries everything the token issuer, validator and cookie transport need
type AuthConfig struct {
	JWTSecret          string
	Issuer             string
	Audience           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	RefreshCookiePath  string
	CookieDomain       string

	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

// ThrottleConfig holds the advisory blocking thresholds of the login attempt ledger
type ThrottleConfig struct {
	MaxFailuresPerIP    int
	IPWindow            time.Duration
	MaxFailuresPerLogin int
	LoginWindow         time.Duration
}

const (
	DefaultAccessTokenExpiry  = 3600 * time.Second
	DefaultRefreshTokenExpiry = 2592000 * time.Second
	DefaultRefreshCookiePath  = "/token/refresh"
)

// DefaultAuthConfig returns the token settings used when nothing is configured
func DefaultAuthConfig(secret string) AuthConfig {
	return AuthConfig{
		JWTSecret:          secret,
		Issuer:             "muscuscope-api",
		Audience:           "muscuscope-app",
		AccessTokenExpiry:  DefaultAccessTokenExpiry,
		RefreshTokenExpiry: DefaultRefreshTokenExpiry,
		RefreshCookiePath:  DefaultRefreshCookiePath,
	}
}

// DefaultThrottleConfig returns 5 failures per IP per hour and 3 per login per 30 minutes
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MaxFailuresPerIP:    5,
		IPWindow:            60 * time.Minute,
		MaxFailuresPerLogin: 3,
		LoginWindow:         30 * time.Minute,
	}
}

// LoadDatabase reads only the database settings, for commands that never touch tokens
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := &DatabaseConfig{
		Driver:            strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "muscuscope"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		SQLitePath:        getEnv("SQLITE_PATH", "muscuscope.db"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}

	switch cfg.Driver {
	case DriverPostgres:
		if cfg.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q (got %q)", DriverPostgres, DriverSQLite, cfg.Driver)
	}

	return cfg, nil
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	authDefaults := DefaultAuthConfig(jwtSecret)
	throttleDefaults := DefaultThrottleConfig()

	db, err := LoadDatabase()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: *db,
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			SentryDSN:      getEnv("SENTRY_DSN", ""),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:           jwtSecret,
			Issuer:              getEnv("JWT_ISSUER", authDefaults.Issuer),
			Audience:            getEnv("JWT_AUDIENCE", authDefaults.Audience),
			AccessTokenExpiry:   getEnvAsDuration("ACCESS_TOKEN_TTL", authDefaults.AccessTokenExpiry),
			RefreshTokenExpiry:  getEnvAsDuration("REFRESH_TOKEN_TTL", authDefaults.RefreshTokenExpiry),
			RefreshCookiePath:   getEnv("REFRESH_COOKIE_PATH", authDefaults.RefreshCookiePath),
			CookieDomain:        getEnv("COOKIE_DOMAIN", ""),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 200),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Throttle: ThrottleConfig{
			MaxFailuresPerIP:    getEnvAsInt("LOGIN_IP_MAX_FAILURES", throttleDefaults.MaxFailuresPerIP),
			IPWindow:            getEnvAsDuration("LOGIN_IP_WINDOW", throttleDefaults.IPWindow),
			MaxFailuresPerLogin: getEnvAsInt("LOGIN_MAX_FAILURES", throttleDefaults.MaxFailuresPerLogin),
			LoginWindow:         getEnvAsDuration("LOGIN_WINDOW", throttleDefaults.LoginWindow),
		},
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Auth.AccessTokenExpiry <= 0 || cfg.Auth.RefreshTokenExpiry <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits for HS256
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
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

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}
	items := strings.Split(value, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
}
