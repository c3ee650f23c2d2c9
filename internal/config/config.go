// Package config loads the portal service configuration from the environment
// (optionally seeded from a .env file) and the plan catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageSupabase = "supabase"
	StoragePostgres = "postgres"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Catalog   CatalogConfig
	Supabase  SupabaseConfig
	Storage   StorageConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Upload    UploadConfig
	PlansFile string `env:"PLANS_FILE"`
}

type ServerConfig struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=15s"`
	AllowedOrigins  string        `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000 http://localhost:5173"`
}

type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=text"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=portal"`
}

type CatalogConfig struct {
	BaseURL          string        `env:"YOUTUBE_API_BASE,default=https://www.googleapis.com/youtube/v3"`
	APIKey           string        `env:"YOUTUBE_API_KEY"`
	FallbackAPIKey   string        `env:"YOUTUBE_API_KEY_FALLBACK"`
	Timeout          time.Duration `env:"YOUTUBE_TIMEOUT,default=10s"`
	TrendingRegions  string        `env:"TRENDING_REGIONS,default=US"`
	TrendingSchedule string        `env:"TRENDING_SCHEDULE,default=@every 10m"`
}

type SupabaseConfig struct {
	URL        string `env:"SUPABASE_URL"`
	AnonKey    string `env:"SUPABASE_ANON_KEY"`
	ServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	JWTSecret  string `env:"SUPABASE_JWT_SECRET"`
	Resilience bool   `env:"SUPABASE_RESILIENCE,default=true"`
}

type StorageConfig struct {
	Backend     string `env:"STORAGE_BACKEND,default=supabase"`
	DatabaseURL string `env:"DATABASE_URL"`
	Migrate     bool   `env:"DATABASE_MIGRATE,default=true"`
}

type CacheConfig struct {
	RedisURL        string        `env:"REDIS_URL"`
	TTL             time.Duration `env:"CACHE_TTL,default=15m"`
	MaxEntries      int           `env:"CACHE_MAX_ENTRIES,default=1000"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL,default=5m"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=20"`
	Burst             int `env:"RATE_LIMIT_BURST,default=40"`
}

type UploadConfig struct {
	Tick      time.Duration `env:"UPLOAD_TICK,default=500ms"`
	Retention time.Duration `env:"UPLOAD_RETENTION,default=1h"`
}

// Load reads an optional .env file (ENV_FILE overrides the path) and decodes
// the environment into a Config.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSupabase:
		if c.Supabase.URL == "" {
			return fmt.Errorf("SUPABASE_URL is required for the supabase storage backend")
		}
		if c.Supabase.ServiceKey == "" && c.Supabase.AnonKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY or SUPABASE_ANON_KEY is required")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Origins splits the CORS allowlist. Entries are separated by commas or spaces.
func (c *Config) Origins() []string {
	return splitCSV(c.Server.AllowedOrigins)
}

// Regions splits the trending warm-up regions.
func (c *Config) Regions() []string {
	return splitCSV(c.Catalog.TrendingRegions)
}

func splitCSV(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
