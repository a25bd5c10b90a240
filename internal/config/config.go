package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Sources    SourcesConfig
	Backend    BackendConfig
	Cache      CacheConfig
	Session    SessionConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, wins over the individual fields
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// SourcesConfig selects the adapter behind each collaborator
type SourcesConfig struct {
	Interpreter string // "openai" or "backend"
	Catalog     string // "backend", "postgres" or "memory"
	Profiles    string // "backend", "postgres" or "none"
	Cache       string // "memory", "redis" or "none"
}

// BackendConfig points at the remote interpreter/filter/profile service
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	RedisURL  string
	KeyPrefix string
	TTL       time.Duration
}

// SessionConfig holds per-session behaviour
type SessionConfig struct {
	CompareLimit     int
	FailedTurnPolicy string // "keep" or "rollback"
	PersistTimeout   time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	File   string // optional rotated log file
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey          string
	APIBase         string
	ChatModel       string
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	Timeout         int
	Enabled         bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "property_chat"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Sources: SourcesConfig{
			Interpreter: strings.ToLower(getEnv("INTERPRETER_SOURCE", "")),
			Catalog:     strings.ToLower(getEnv("CATALOG_SOURCE", "backend")),
			Profiles:    strings.ToLower(getEnv("PROFILE_SOURCE", "backend")),
			Cache:       strings.ToLower(getEnv("CACHE_SOURCE", "memory")),
		},
		Backend: BackendConfig{
			URL:     strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
			Timeout: time.Duration(getEnvAsInt("BACKEND_TIMEOUT", 30)) * time.Second,
		},
		Cache: CacheConfig{
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: getEnv("CACHE_KEY_PREFIX", "propertychat:user:"),
			TTL:       time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 7*24*60)) * time.Minute,
		},
		Session: SessionConfig{
			CompareLimit:     getEnvAsInt("COMPARE_LIMIT", 4),
			FailedTurnPolicy: strings.ToLower(getEnv("FAILED_TURN_POLICY", "keep")),
			PersistTimeout:   time.Duration(getEnvAsInt("PERSIST_TIMEOUT", 10)) * time.Second,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			APIBase:         getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0.7),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:         getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	// Default the interpreter to the LLM when a key is present
	if cfg.Sources.Interpreter == "" {
		cfg.Sources.Interpreter = "backend"
		if cfg.OpenAI.Enabled {
			cfg.Sources.Interpreter = "openai"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected sources have what they need
func (c *Config) Validate() error {
	switch c.Sources.Interpreter {
	case "openai":
		if !c.OpenAI.Enabled {
			return fmt.Errorf("INTERPRETER_SOURCE=openai requires OPENAI_API_KEY")
		}
	case "backend":
	default:
		return fmt.Errorf("unknown INTERPRETER_SOURCE %q", c.Sources.Interpreter)
	}

	if !slices.Contains([]string{"backend", "postgres", "memory"}, c.Sources.Catalog) {
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.Sources.Catalog)
	}
	if !slices.Contains([]string{"backend", "postgres", "none"}, c.Sources.Profiles) {
		return fmt.Errorf("unknown PROFILE_SOURCE %q", c.Sources.Profiles)
	}
	if !slices.Contains([]string{"memory", "redis", "none"}, c.Sources.Cache) {
		return fmt.Errorf("unknown CACHE_SOURCE %q", c.Sources.Cache)
	}
	if !slices.Contains([]string{"keep", "rollback"}, c.Session.FailedTurnPolicy) {
		return fmt.Errorf("unknown FAILED_TURN_POLICY %q", c.Session.FailedTurnPolicy)
	}

	if c.Backend.URL == "" && c.UsesBackend() {
		return fmt.Errorf("BACKEND_URL is required when a source is set to backend")
	}
	return nil
}

// UsesBackend reports whether any collaborator is served by the remote backend
func (c *Config) UsesBackend() bool {
	return c.Sources.Interpreter == "backend" ||
		c.Sources.Catalog == "backend" || c.Sources.Catalog == "memory" ||
		c.Sources.Profiles == "backend"
}

// UsesPostgres reports whether any collaborator is served by PostgreSQL
func (c *Config) UsesPostgres() bool {
	return c.Sources.Catalog == "postgres" || c.Sources.Profiles == "postgres"
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
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
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}
