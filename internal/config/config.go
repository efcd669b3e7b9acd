package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	OIDC          OIDCConfig
	App           AppConfig
	Session       SessionConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration.
// URL selects the backend: postgres:// (pgx) or sqlite: (embedded).
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

// OIDCConfig holds the relying-party settings for the single identity provider
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// AppConfig holds the public application settings
type AppConfig struct {
	// URL is the frontend base URL; login and logout redirects are confined to it.
	URL string
	// AdminEmails are normalized global-admin addresses.
	AdminEmails []string
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret          string
	CookieName      string
	StateCookieName string
	CookieDomain    string
	CookiePath      string
	CookieSecure    bool
	CookieHTTPOnly  bool
	CookieSameSite  string
	Lifetime        time.Duration
	StateLifetime   time.Duration
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// TraceSampleRatio is the fraction of new traces recorded when tracing is on.
	TraceSampleRatio float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        parseInt("DB_MAX_CONNS", 25),
			MinConns:        parseInt("DB_MIN_CONNS", 2),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		OIDC: OIDCConfig{
			Issuer:       getEnv("OIDC_ISSUER", ""),
			ClientID:     getEnv("OIDC_CLIENT_ID", ""),
			ClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:8080/auth/callback"),
			Scopes:       parseList("OIDC_SCOPES", "openid,profile,email"),
		},
		App: AppConfig{
			URL:         getEnv("APP_URL", ""),
			AdminEmails: ParseAdminEmails(os.Getenv("ADMIN_EMAILS")),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", ""),
			CookieName:      getEnv("SESSION_COOKIE_NAME", "terrier_session"),
			StateCookieName: getEnv("SESSION_STATE_COOKIE_NAME", "terrier_login_state"),
			CookieDomain:    getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookiePath:      getEnv("SESSION_COOKIE_PATH", "/"),
			CookieSecure:    parseBool("SESSION_COOKIE_SECURE", false),
			CookieHTTPOnly:  parseBool("SESSION_COOKIE_HTTP_ONLY", true),
			CookieSameSite:  getEnv("SESSION_COOKIE_SAME_SITE", "Lax"),
			Lifetime:        parseDuration("SESSION_LIFETIME", "24h"),
			StateLifetime:   parseDuration("SESSION_STATE_LIFETIME", "10m"),
		},
		Observability: ObservabilityConfig{
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			LogFormat:        getEnv("LOG_FORMAT", "json"),
			OTELEnabled:      parseBool("OTEL_ENABLED", false),
			ServiceName:      getEnv("OTEL_SERVICE_NAME", "terrier"),
			ServiceVersion:   getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
			Environment:      getEnv("APP_ENV", ""),
			TraceSampleRatio: parseFloat("OTEL_TRACE_SAMPLE_RATIO", 1.0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.OIDC.Issuer == "" {
		return fmt.Errorf("OIDC_ISSUER is required")
	}
	if c.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required")
	}
	if c.OIDC.ClientSecret == "" {
		return fmt.Errorf("OIDC_CLIENT_SECRET is required")
	}
	if c.App.URL == "" {
		return fmt.Errorf("APP_URL is required")
	}
	if u, err := url.Parse(c.App.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_URL must be an absolute URL")
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	return nil
}

// ParseAdminEmails splits a comma-separated list of addresses.
// Entries are trimmed and lowercased; empty entries are dropped.
func ParseAdminEmails(raw string) []string {
	var emails []string
	for _, part := range strings.Split(raw, ",") {
		email := strings.ToLower(strings.TrimSpace(part))
		if email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}

// SameSite maps the configured cookie mode onto its canonical name.
func (s SessionConfig) SameSite() string {
	switch strings.ToLower(s.CookieSameSite) {
	case "strict":
		return "Strict"
	case "none":
		return "None"
	default:
		return "Lax"
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}

func parseList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
