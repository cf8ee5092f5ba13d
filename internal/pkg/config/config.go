package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	// URL is a redis connection string, e.g. redis://localhost:6379/0.
	// Empty disables Redis and the rate limiter falls back to in-process
	// counters.
	URL string
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

type PlannerConfig struct {
	// CacheCapacity bounds the number of generated plans kept in memory.
	CacheCapacity int
	// CacheTTL is how long a cached plan stays valid.
	CacheTTL time.Duration
	// GenerationDeadline caps a single plan build, travel oracle included.
	GenerationDeadline time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type AuthConfig struct {
	// SecretKey signs bearer tokens. Empty disables authentication.
	SecretKey string
	// Required rejects unauthenticated requests instead of treating
	// them as anonymous.
	Required bool
}

type OraclesConfig struct {
	// GoogleMapsAPIKey enables the Distance Matrix travel oracle. Empty
	// means Haversine estimates only.
	GoogleMapsAPIKey string
	// WeatherAPIURL overrides the Open-Meteo endpoint, e.g. for a
	// self-hosted instance. Empty uses the public API.
	WeatherAPIURL string
}

type Config struct {
	Repositories RepositoriesConfig
	Planner      PlannerConfig
	RateLimit    RateLimitConfig
	Auth         AuthConfig
	Oracles      OraclesConfig
	ServerPort   string
	MetricsAddr  string
	PprofAddr    string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5454"),
				DB:       getEnvOrDefault("POSTGRES_DB", "tabiji"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
			Redis: RedisConfig{
				URL: getEnvOrDefault("REDIS_URL", ""),
			},
		},
		Planner: PlannerConfig{
			CacheCapacity:      getEnvInt("PLAN_CACHE_CAPACITY", 1024),
			CacheTTL:           getEnvDuration("PLAN_CACHE_TTL", 24*time.Hour),
			GenerationDeadline: getEnvDuration("GENERATION_DEADLINE", 25*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_RPM", 100),
		},
		Auth: AuthConfig{
			SecretKey: getEnvOrDefault("JWT_SECRET_KEY", ""),
			Required:  getEnvBool("AUTH_REQUIRED", false),
		},
		Oracles: OraclesConfig{
			GoogleMapsAPIKey: getEnvOrDefault("GOOGLE_MAPS_API_KEY", ""),
			WeatherAPIURL:    getEnvOrDefault("WEATHER_API_URL", ""),
		},
		ServerPort:  getEnvOrDefault("PORT", "8091"),
		MetricsAddr: getEnvOrDefault("METRICS_ADDR", ":9092"),
		PprofAddr:   getEnvOrDefault("PPROF_ADDR", ":6060"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.Planner.CacheCapacity <= 0 {
		return nil, fmt.Errorf("PLAN_CACHE_CAPACITY must be positive")
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	if cfg.Auth.Required && cfg.Auth.SecretKey == "" {
		return nil, fmt.Errorf("AUTH_REQUIRED needs JWT_SECRET_KEY to be set")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
