package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Provider ProviderConfig
	Quota    QuotaConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string

	// Per-account throttle on generation starts. The quota ledger is
	// the durable gate; this only smooths bursts per instance.
	GenerationPerMinute float64
	GenerationBurst     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ProviderConfig configures the OpenAI-compatible generation provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type QuotaConfig struct {
	// FreeTierVersions is the number of generations a non-pro account
	// starts with, and the value the expiry sweep resets to.
	FreeTierVersions int
	SweepSpec        string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string

	// FirebaseCredentialsFile is optional; when empty the SDK falls
	// back to application default credentials.
	FirebaseCredentialsFile string
	// DevAuthBypass enables the X-User-Id header shim instead of
	// Firebase token verification. Development only.
	DevAuthBypass bool
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:                getEnv("PORT", "8080"),
			AllowedOrigins:      getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			GenerationPerMinute: getEnvAsFloat("GENERATION_RATE_PER_MINUTE", 10),
			GenerationBurst:     getEnvAsInt("GENERATION_RATE_BURST", 3),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "flowcraft"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Provider: ProviderConfig{
			BaseURL: getEnv("OPENAI_API_BASE_URL", ""),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "deepseek-chat"),
			Timeout: getEnvAsDuration("GENERATION_TIMEOUT", 120*time.Second),
		},
		Quota: QuotaConfig{
			FreeTierVersions: getEnvAsInt("QUOTA_FREE_TIER_VERSIONS", 3),
			SweepSpec:        getEnv("QUOTA_SWEEP_SPEC", "@hourly"),
		},
		App: AppConfig{
			Environment:             getEnv("APP_ENV", "development"),
			LogLevel:                getEnv("LOG_LEVEL", "info"),
			Version:                 getEnv("APP_VERSION", "1.0.0"),
			FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			DevAuthBypass:           getEnvAsBool("DEV_AUTH_BYPASS", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Provider.APIKey == "" && c.App.Environment != "development" {
		return fmt.Errorf("OPENAI_API_KEY is required outside development")
	}

	if c.Quota.FreeTierVersions < 0 {
		return fmt.Errorf("QUOTA_FREE_TIER_VERSIONS must be >= 0")
	}

	if c.Server.GenerationPerMinute <= 0 {
		return fmt.Errorf("GENERATION_RATE_PER_MINUTE must be > 0")
	}

	if c.Server.GenerationBurst < 1 {
		return fmt.Errorf("GENERATION_RATE_BURST must be >= 1")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
