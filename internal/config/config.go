package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Console      ConsoleConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	// Addr accepts a comma separated list for cluster or sentinel setups.
	Addr       string
	MasterName string
	Password   string
	DB         int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                   string
	AccessTokenTTLMinutes       int
	EmailVerificationTTLMinutes int
	BcryptCost                  int
}

// NotificationConfig holds SMTP settings. An empty host disables delivery.
type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	BaseURL      string
	QueueSize    int
	Workers      int
	MaxAttempts  int
}

// ConsoleConfig tunes the account console behavior.
type ConsoleConfig struct {
	Collation        language.Tag
	LockTTLSeconds   int
	ActivateOnVerify bool
	DefaultPageSize  int
	MaxPageSize      int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	collation, err := language.Parse(getEnv("CONSOLE_COLLATION", "ja"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONSOLE_COLLATION: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "account-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			MasterName: os.Getenv("REDIS_MASTER_NAME"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:                   getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:       getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			EmailVerificationTTLMinutes: getEnvAsInt("AUTH_EMAIL_VERIFICATION_TTL_MINUTES", 24*60),
			BcryptCost:                  getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			BaseURL:      getEnv("NOTIFY_BASE_URL", "http://localhost:3000"),
			QueueSize:    getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
			Workers:      getEnvAsInt("NOTIFY_WORKERS", 2),
			MaxAttempts:  getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
		},
		Console: ConsoleConfig{
			Collation:        collation,
			LockTTLSeconds:   getEnvAsInt("CONSOLE_LOCK_TTL_SECONDS", 10),
			ActivateOnVerify: getEnvAsBool("CONSOLE_ACTIVATE_ON_VERIFY", true),
			DefaultPageSize:  getEnvAsInt("CONSOLE_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:      getEnvAsInt("CONSOLE_MAX_PAGE_SIZE", 100),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LockTTL returns how long a per-account status lock may be held.
func (c ConsoleConfig) LockTTL() time.Duration {
	if c.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// PageSize clamps a requested page size to the configured bounds.
func (c ConsoleConfig) PageSize(requested int) int {
	if requested <= 0 {
		requested = c.DefaultPageSize
	}
	if requested <= 0 {
		requested = 20
	}
	if c.MaxPageSize > 0 && requested > c.MaxPageSize {
		return c.MaxPageSize
	}
	return requested
}

// Enabled reports whether SMTP delivery is configured.
func (n NotificationConfig) Enabled() bool {
	return n.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
