// Package config provides application configuration through environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// CatalogPath is the path to the JSON video catalog file loaded at startup.
	CatalogPath string
	// StaticDir is the directory with the browsing UI assets. Empty disables
	// static file serving.
	StaticDir string

	// AuthEnabled toggles bearer authentication, per-video authorization and
	// the key delivery endpoints. When false the server runs in public mode:
	// full catalog listing and no key endpoints.
	AuthEnabled bool
	// AuthTenantID is the directory tenant used to build authority and JWKS defaults.
	AuthTenantID string
	// AuthIssuer is the expected "iss" claim of inbound access tokens.
	AuthIssuer string
	// AuthAudience is the expected "aud" claim of inbound access tokens.
	AuthAudience string
	// AuthRequiredScope is the delegated scope inbound tokens must carry.
	AuthRequiredScope string
	// AuthJWKSURL is the endpoint serving the token signing keys.
	AuthJWKSURL string

	// ClientID is the application id used for service-to-service token acquisition.
	ClientID string
	// ClientSecret is the application secret used for service-to-service token acquisition.
	ClientSecret string
	// TokenRefreshMargin is how long before expiry a cached service token is refreshed.
	TokenRefreshMargin time.Duration

	// DirectoryEndpoint is the base URL of the directory (group membership) API.
	DirectoryEndpoint string
	// DirectoryScope is the scope requested for directory API tokens.
	DirectoryScope string

	// KeyDeliveryHost is the host of the external DRM key delivery endpoint.
	KeyDeliveryHost string
	// KeyDeliveryScope is the scope requested for key delivery tokens.
	KeyDeliveryScope string

	// UpstreamTimeout bounds each outbound call to the directory and key
	// delivery services.
	UpstreamTimeout time.Duration
	// UpstreamMaxRetries is the retry budget for retryable upstream failures.
	UpstreamMaxRetries int

	// RateLimitEnabled indicates whether per-principal rate limiting is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per principal.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for per-principal rate limiting.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	tenantID := env.GetString("AUTH_TENANT_ID", "")

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Catalog
		CatalogPath: env.GetString("CATALOG_PATH", "index.json"),
		StaticDir:   env.GetString("STATIC_DIR", ""),

		// Authentication
		AuthEnabled:  env.GetBool("AUTH_ENABLED", true),
		AuthTenantID: tenantID,
		AuthIssuer: env.GetString(
			"AUTH_ISSUER",
			fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", tenantID),
		),
		AuthAudience:      env.GetString("AUTH_AUDIENCE", ""),
		AuthRequiredScope: env.GetString("AUTH_REQUIRED_SCOPE", "Videos.Watch"),
		AuthJWKSURL: env.GetString(
			"AUTH_JWKS_URL",
			fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", tenantID),
		),

		// Service-to-service credential
		ClientID:           env.GetString("CLIENT_ID", ""),
		ClientSecret:       env.GetString("CLIENT_SECRET", ""),
		TokenRefreshMargin: env.GetDuration("TOKEN_REFRESH_MARGIN_SECONDS", 300, time.Second),

		// Directory (group membership) API
		DirectoryEndpoint: env.GetString("DIRECTORY_ENDPOINT", "https://graph.microsoft.com/v1.0"),
		DirectoryScope:    env.GetString("DIRECTORY_SCOPE", "https://graph.microsoft.com/.default"),

		// Key delivery
		KeyDeliveryHost:  env.GetString("KEY_DELIVERY_HOST", ""),
		KeyDeliveryScope: env.GetString("KEY_DELIVERY_SCOPE", ""),

		// Upstream call budget
		UpstreamTimeout:    env.GetDuration("UPSTREAM_TIMEOUT_SECONDS", 15, time.Second),
		UpstreamMaxRetries: env.GetInt("UPSTREAM_MAX_RETRIES", 3),

		// Rate Limiting (authenticated endpoints)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 10.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 20),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "videogate"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
