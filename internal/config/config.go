package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	CORS  CORSConfig
	FCM   FCMConfig
	Push  PushConfig
	Hook  HookConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	Origins []string
}

// FCMConfig points at the service account used to authenticate against the
// push gateway. Either a credentials file path or an inline JSON blob may be
// provided; the inline form wins when both are set.
type FCMConfig struct {
	CredentialsFile string
	CredentialsJSON string
	ProjectID       string
}

type PushConfig struct {
	// BaseURL is prefixed onto relative ticket links to build absolute
	// deep links in notification payloads.
	BaseURL string
	// SendInterval is the minimum spacing between consecutive deliveries
	// when fanning out to multiple devices.
	SendInterval time.Duration
}

type HookConfig struct {
	// Secret authenticates the helpdesk host on the lifecycle hook route.
	Secret string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	jwtExpiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "24h"))
	if err != nil {
		jwtExpiry = 24 * time.Hour
	}

	sendInterval, err := time.ParseDuration(getEnv("PUSH_SEND_INTERVAL", "100ms"))
	if err != nil {
		sendInterval = 100 * time.Millisecond
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "pushdesk"),
			Password: getEnv("DB_PASSWORD", "pushdesk"),
			Name:     getEnv("DB_NAME", "pushdesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: jwtExpiry,
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		FCM: FCMConfig{
			CredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
			CredentialsJSON: getEnv("FCM_CREDENTIALS_JSON", ""),
			ProjectID:       getEnv("FCM_PROJECT_ID", ""),
		},
		Push: PushConfig{
			BaseURL:      strings.TrimRight(getEnv("PUSH_BASE_URL", "http://localhost:3000"), "/"),
			SendInterval: sendInterval,
		},
		Hook: HookConfig{
			Secret: getEnv("HOOK_SECRET", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
