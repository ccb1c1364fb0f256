package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	UpstreamAPIURL  string
	UpstreamTimeout time.Duration
	PublicSiteURL   string

	DatabaseURL  string
	DBMaxConns   int32
	DBMinConns   int32
	SessionStore string

	AccessCookieTTL  time.Duration
	RefreshCookieTTL time.Duration
	CookieDomain     string
	CookieSecure     bool

	DefaultLandingPath string
	CORSOrigins        []string
	RateLimitRPM       int
	AuthRateLimitRPM   int
	MaxUploadSize      int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		UpstreamAPIURL:          strings.TrimRight(strings.TrimSpace(os.Getenv("UPSTREAM_API_URL")), "/"),
		UpstreamTimeout:         getDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		PublicSiteURL:           strings.TrimRight(getEnv("PUBLIC_SITE_URL", ""), "/"),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		SessionStore:            strings.ToLower(getEnv("SESSION_STORE", "postgres")),
		AccessCookieTTL:         getDuration("ACCESS_COOKIE_TTL", 168*time.Hour),
		RefreshCookieTTL:        getDuration("REFRESH_COOKIE_TTL", 720*time.Hour),
		CookieDomain:            getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:            getBool("COOKIE_SECURE", false),
		DefaultLandingPath:      getEnv("DEFAULT_LANDING_PATH", "/dashboard"),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		MaxUploadSize:           getInt64("MAX_UPLOAD_SIZE", 52428800),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.UpstreamAPIURL == "" {
		return fmt.Errorf("UPSTREAM_API_URL is required")
	}
	if _, err := url.ParseRequestURI(c.UpstreamAPIURL); err != nil {
		return fmt.Errorf("UPSTREAM_API_URL is not a valid URL: %w", err)
	}

	if c.SessionStore != "postgres" && c.SessionStore != "memory" {
		return fmt.Errorf("SESSION_STORE must be postgres or memory, got %q", c.SessionStore)
	}

	if c.SessionStore == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when SESSION_STORE=postgres")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.AccessCookieTTL <= 0 || c.RefreshCookieTTL <= 0 {
		return fmt.Errorf("cookie TTLs must be positive")
	}

	if !strings.HasPrefix(c.DefaultLandingPath, "/") {
		return fmt.Errorf("DEFAULT_LANDING_PATH must be an absolute path")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
