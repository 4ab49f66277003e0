package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Azure        AzureIdentityConfig
	OpenAI       OpenAIConfig
	Email        EmailConfig
	Events       EventsConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	PublicURL             string
	AllowedOrigins        string
}

// StorageConfig selects the document store backend.
type StorageConfig struct {
	Driver     string
	SQLitePath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	SaveLockTTLSec int
}

// LoggerConfig configures logging behavior. Format is "json" or "console".
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorEmail         string
	OperatorPasswordHash  string
}

// AzureIdentityConfig holds optional Entra ID client credentials.
type AzureIdentityConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// OpenAIConfig holds the chat model deployment settings.
type OpenAIConfig struct {
	Endpoint         string
	APIKey           string
	Deployment       string
	APIVersion       string
	Temperature      float64
	MaxTokens        int
	StreamTimeoutSec int
	PromptsPath      string
}

// EmailConfig holds the email transport and retry settings.
type EmailConfig struct {
	ConnectionString  string
	Endpoint          string
	AccessKey         string
	SenderAddress     string
	APIVersion        string
	MaxRetries        int
	RetryBaseDelayMs  int
	RetryMaxDelayMs   int
	AttemptTimeoutSec int
	PollIntervalMs    int
}

// EventsConfig configures the domain event broker.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
	Producer string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"

	DefaultSenderAddress = "DoNotReply@flowork.azurecomm.net"

	saveLockMargin = 15 * time.Second
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres))
	if driver != StorageDriverPostgres && driver != StorageDriverSQLite {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: expected postgres or sqlite", driver)
	}

	temperature, err := strconv.ParseFloat(getEnv("AZURE_OPENAI_TEMPERATURE", "0.7"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AZURE_OPENAI_TEMPERATURE: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "brief-intake-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			PublicURL:             strings.TrimRight(getEnv("PUBLIC_APP_URL", "http://localhost:3000"), "/"),
			AllowedOrigins:        getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Storage: StorageConfig{
			Driver:     driver,
			SQLitePath: getEnv("SQLITE_PATH", "brief-intake.db"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			SaveLockTTLSec: getEnvAsInt("SAVE_LOCK_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("OPERATOR_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("OPERATOR_TOKEN_TTL_MINUTES", 60),
			OperatorEmail:         strings.ToLower(os.Getenv("OPERATOR_EMAIL")),
			OperatorPasswordHash:  os.Getenv("OPERATOR_PASSWORD_HASH"),
		},
		Azure: AzureIdentityConfig{
			TenantID:     os.Getenv("AZURE_TENANT_ID"),
			ClientID:     os.Getenv("AZURE_CLIENT_ID"),
			ClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
		},
		OpenAI: OpenAIConfig{
			Endpoint:         strings.TrimRight(os.Getenv("AZURE_OPENAI_ENDPOINT"), "/"),
			APIKey:           os.Getenv("AZURE_OPENAI_KEY"),
			Deployment:       os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion:       getEnv("AZURE_OPENAI_API_VERSION", "2024-02-01"),
			Temperature:      temperature,
			MaxTokens:        getEnvAsInt("AZURE_OPENAI_MAX_TOKENS", 1000),
			StreamTimeoutSec: getEnvAsInt("CHAT_STREAM_TIMEOUT_SECONDS", 120),
			PromptsPath:      os.Getenv("PROMPTS_PATH"),
		},
		Email: EmailConfig{
			ConnectionString:  os.Getenv("AZURE_COMMUNICATION_CONNECTION_STRING"),
			Endpoint:          strings.TrimRight(os.Getenv("AZURE_COMMUNICATION_EMAIL_ENDPOINT"), "/"),
			AccessKey:         os.Getenv("AZURE_COMMUNICATION_KEY"),
			SenderAddress:     getEnv("AZURE_COMMUNICATION_SENDER_EMAIL", DefaultSenderAddress),
			APIVersion:        getEnv("AZURE_COMMUNICATION_API_VERSION", "2023-03-31"),
			MaxRetries:        getEnvAsInt("EMAIL_MAX_RETRIES", 3),
			RetryBaseDelayMs:  getEnvAsInt("EMAIL_RETRY_BASE_DELAY_MS", 1000),
			RetryMaxDelayMs:   getEnvAsInt("EMAIL_RETRY_MAX_DELAY_MS", 10000),
			AttemptTimeoutSec: getEnvAsInt("EMAIL_ATTEMPT_TIMEOUT_SECONDS", 30),
			PollIntervalMs:    getEnvAsInt("EMAIL_POLL_INTERVAL_MS", 1000),
		},
		Events: EventsConfig{
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: getEnv("EVENTS_EXCHANGE", "brief.events"),
			Producer: getEnv("EVENTS_PRODUCER", "brief-intake-service"),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	// a save lock must outlive the slowest dispatch it guards
	if floor := cfg.Email.MaxDispatchDuration() + saveLockMargin; cfg.Redis.SaveLockTTL() < floor {
		cfg.Redis.SaveLockTTLSec = int(math.Ceil(floor.Seconds()))
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

// SaveLockTTL bounds how long a per-conversation delivery lock may be held.
func (r RedisConfig) SaveLockTTL() time.Duration {
	return seconds(r.SaveLockTTLSec, 60)
}

// Configured reports whether client credentials are complete.
func (a AzureIdentityConfig) Configured() bool {
	return a.TenantID != "" && a.ClientID != "" && a.ClientSecret != ""
}

// TokenURL is the Entra ID v2 token endpoint for the tenant.
func (a AzureIdentityConfig) TokenURL() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", a.TenantID)
}

func (o OpenAIConfig) StreamTimeout() time.Duration {
	return seconds(o.StreamTimeoutSec, 120)
}

func (e EmailConfig) RetryBaseDelay() time.Duration {
	return millis(e.RetryBaseDelayMs, 1000)
}

func (e EmailConfig) RetryMaxDelay() time.Duration {
	return millis(e.RetryMaxDelayMs, 10000)
}

func (e EmailConfig) AttemptTimeout() time.Duration {
	return seconds(e.AttemptTimeoutSec, 30)
}

// MaxDispatchDuration is the longest one brief dispatch can run: every
// attempt hitting its timeout plus the capped backoff between them.
func (e EmailConfig) MaxDispatchDuration() time.Duration {
	retries := max(e.MaxRetries, 0)
	total := time.Duration(retries+1) * e.AttemptTimeout()
	base, ceiling := e.RetryBaseDelay(), e.RetryMaxDelay()
	for n := 0; n < retries; n++ {
		d := ceiling
		if n <= 30 {
			if shifted := base << uint(n); shifted > 0 && shifted < ceiling {
				d = shifted
			}
		}
		total += d
	}
	return total
}

func (e EmailConfig) PollInterval() time.Duration {
	return millis(e.PollIntervalMs, 1000)
}

// OperatorAuthEnabled reports whether operator endpoints require a token.
func (a AuthConfig) OperatorAuthEnabled() bool {
	return a.OperatorEmail != "" && a.OperatorPasswordHash != ""
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(v) * time.Second
}

func millis(v, def int) time.Duration {
	if v <= 0 {
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(v) * time.Millisecond
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
