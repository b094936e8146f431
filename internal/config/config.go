package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// Provider credentials, read-only after load.
	APIMode    string
	AgentCode  string
	AgentToken string
	APIURL     string
	KeyType    string
	Debug      bool

	// Pacing between per-provider game_list calls during a catalog crawl.
	CrawlPace time.Duration
	// Interval for the background catalog warm; 0 disables it.
	CatalogWarmInterval time.Duration

	AMQPURL string

	// Default currency used when a user has none selected.
	DefaultCurrency string
	// Internal tokens per one external currency unit.
	TokenRate float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                 getEnv("ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		RedisURL:            getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		APIMode:             getEnv("PROVIDER_API_MODE", "seamless"),
		AgentCode:           getEnv("PROVIDER_AGENT_CODE", ""),
		AgentToken:          getEnv("PROVIDER_AGENT_TOKEN", ""),
		APIURL:              getEnv("PROVIDER_API_URL", ""),
		KeyType:             getEnv("PROVIDER_KEY_TYPE", "staging"),
		Debug:               getEnv("PROVIDER_DEBUG", "false") == "true",
		CrawlPace:           getEnvDuration("CATALOG_CRAWL_PACE", time.Second),
		CatalogWarmInterval: getEnvDuration("CATALOG_WARM_INTERVAL", 0),
		AMQPURL:             getEnv("AMQP_URL", ""),
		DefaultCurrency:     getEnv("DEFAULT_CURRENCY", "usd"),
		TokenRate:           getEnvFloat("TOKEN_RATE", 1000),
	}

	if cfg.AgentCode == "" || cfg.AgentToken == "" {
		return nil, fmt.Errorf("PROVIDER_AGENT_CODE and PROVIDER_AGENT_TOKEN are required")
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("PROVIDER_API_URL is required")
	}
	if cfg.TokenRate <= 0 {
		return nil, fmt.Errorf("TOKEN_RATE must be positive")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
