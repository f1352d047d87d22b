// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/alertsctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cron trigger
	CronSecret string

	// Web push (VAPID)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Mobile push
	ExpoPushURL string

	// Upstream sources
	NWSBaseURL   string
	NWSZone      string // forecast zone for active alerts
	NWSStation   string // observation station for current conditions
	NWSUserAgent string
	NWPSBaseURL  string
	RiverGaugeID string
	AirNowAPIKey string
	AirNowBase   string
	AirNowZip    string
	TrafficFeed  string

	// Snapshot cache (Redis)
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatusTTL     time.Duration

	// Dedup ledger
	LedgerRetention time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CronSecret: envOr("CRON_SECRET", ""),

		VAPIDPublicKey:  envOr("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: envOr("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    envOr("VAPID_SUBJECT", "mailto:alerts@siouxland.example"),

		ExpoPushURL: envOr("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),

		NWSBaseURL:   envOr("NWS_BASE_URL", "https://api.weather.gov"),
		NWSZone:      envOr("NWS_ZONE", "IAZ031"),
		NWSStation:   envOr("NWS_STATION", "KSUX"),
		NWSUserAgent: envOr("NWS_USER_AGENT", "siouxland-alerts (alerts@siouxland.example)"),
		NWPSBaseURL:  envOr("NWPS_BASE_URL", "https://api.water.noaa.gov/nwps/v1"),
		RiverGaugeID: envOr("RIVER_GAUGE_ID", "SUXI4"),
		AirNowAPIKey: envOr("AIRNOW_API_KEY", ""),
		AirNowBase:   envOr("AIRNOW_BASE_URL", "https://www.airnowapi.org"),
		AirNowZip:    envOr("AIRNOW_ZIP", "51101"),
		TrafficFeed:  envOr("TRAFFIC_FEED_URL", "https://511ia.org/api/v2/get/event"),

		CacheEnabled:  envBool("CACHE_ENABLED", true),
		RedisAddr:     envOr("REDIS_ADDR", ""),
		RedisPassword: envOr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		StatusTTL:     time.Duration(envInt("STATUS_TTL_MINUTES", 30)) * time.Minute,

		// Retention must outlive the longest realistic alert condition so a
		// persisting alert is never forgotten and re-announced.
		LedgerRetention: time.Duration(envInt("LEDGER_RETENTION_DAYS", 30)) * 24 * time.Hour,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in local development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
