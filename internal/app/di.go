// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	authHTTP "github.com/allisson/videogate/internal/auth/http"
	authRepository "github.com/allisson/videogate/internal/auth/repository"
	authService "github.com/allisson/videogate/internal/auth/service"
	authUseCase "github.com/allisson/videogate/internal/auth/usecase"
	catalogHTTP "github.com/allisson/videogate/internal/catalog/http"
	catalogRepository "github.com/allisson/videogate/internal/catalog/repository"
	catalogUseCase "github.com/allisson/videogate/internal/catalog/usecase"
	"github.com/allisson/videogate/internal/config"
	"github.com/allisson/videogate/internal/http"
	keyHTTP "github.com/allisson/videogate/internal/keydelivery/http"
	keyService "github.com/allisson/videogate/internal/keydelivery/service"
	keyUseCase "github.com/allisson/videogate/internal/keydelivery/usecase"
	"github.com/allisson/videogate/internal/metrics"
	"github.com/allisson/videogate/internal/token"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger

	// Catalog
	videoRepo    catalogUseCase.VideoRepository
	videoUseCase catalogUseCase.VideoUseCase

	// Authentication and authorization
	tokenVerifier    authService.TokenVerifier
	directoryTokens  *token.Cache
	directoryRepo    authUseCase.DirectoryRepository
	identityResolver authUseCase.IdentityResolver

	// Key delivery
	keyDeliveryTokens *token.Cache
	keyClient         *keyService.KeyDeliveryClient
	keyBrokerUseCase  keyUseCase.KeyUseCase

	// Observability
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	videoRepoInit         sync.Once
	videoUseCaseInit      sync.Once
	tokenVerifierInit     sync.Once
	directoryTokensInit   sync.Once
	directoryRepoInit     sync.Once
	identityResolverInit  sync.Once
	keyDeliveryTokensInit sync.Once
	keyClientInit         sync.Once
	keyBrokerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// VideoRepository returns the catalog repository. The catalog file is loaded
// and validated on first access; the repository is immutable afterwards.
func (c *Container) VideoRepository() (catalogUseCase.VideoRepository, error) {
	c.videoRepoInit.Do(func() {
		repo, err := catalogRepository.NewJSONVideoRepository(c.config.CatalogPath)
		if err != nil {
			c.initErrors["videoRepo"] = err
			return
		}
		c.videoRepo = repo
	})
	if storedErr, exists := c.initErrors["videoRepo"]; exists {
		return nil, storedErr
	}
	return c.videoRepo, nil
}

// VideoUseCase returns the catalog use case instance.
func (c *Container) VideoUseCase() (catalogUseCase.VideoUseCase, error) {
	c.videoUseCaseInit.Do(func() {
		repo, err := c.VideoRepository()
		if err != nil {
			c.initErrors["videoUseCase"] = err
			return
		}
		useCase := catalogUseCase.NewVideoUseCase(repo)

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				c.initErrors["videoUseCase"] = err
				return
			}
			useCase = catalogUseCase.NewVideoUseCaseWithMetrics(useCase, businessMetrics)
		}

		c.videoUseCase = useCase
	})
	if storedErr, exists := c.initErrors["videoUseCase"]; exists {
		return nil, storedErr
	}
	return c.videoUseCase, nil
}

// TokenVerifier returns the inbound bearer token verifier.
func (c *Container) TokenVerifier() authService.TokenVerifier {
	c.tokenVerifierInit.Do(func() {
		keySource := authService.NewJWKSKeySource(
			c.config.AuthJWKSURL,
			c.newRetryableClient(),
			c.Logger(),
		)
		c.tokenVerifier = authService.NewJWTVerifier(
			keySource,
			c.config.AuthIssuer,
			c.config.AuthAudience,
			c.config.AuthRequiredScope,
		)
	})
	return c.tokenVerifier
}

// DirectoryTokenCache returns the cached service credential for directory calls.
func (c *Container) DirectoryTokenCache() (*token.Cache, error) {
	c.directoryTokensInit.Do(func() {
		provider, err := token.NewMSALProvider(
			c.config.AuthTenantID,
			c.config.ClientID,
			c.config.ClientSecret,
			c.config.DirectoryScope,
		)
		if err != nil {
			c.initErrors["directoryTokens"] = err
			return
		}
		c.directoryTokens = token.NewCache(provider, c.config.TokenRefreshMargin)
	})
	if storedErr, exists := c.initErrors["directoryTokens"]; exists {
		return nil, storedErr
	}
	return c.directoryTokens, nil
}

// DirectoryRepository returns the directory membership client.
func (c *Container) DirectoryRepository() (authUseCase.DirectoryRepository, error) {
	c.directoryRepoInit.Do(func() {
		tokens, err := c.DirectoryTokenCache()
		if err != nil {
			c.initErrors["directoryRepo"] = err
			return
		}
		c.directoryRepo = authRepository.NewGraphDirectoryRepository(
			c.config.DirectoryEndpoint,
			c.newRetryableClient(),
			tokens,
		)
	})
	if storedErr, exists := c.initErrors["directoryRepo"]; exists {
		return nil, storedErr
	}
	return c.directoryRepo, nil
}

// IdentityResolver returns the group membership resolver.
func (c *Container) IdentityResolver() (authUseCase.IdentityResolver, error) {
	c.identityResolverInit.Do(func() {
		repo, err := c.DirectoryRepository()
		if err != nil {
			c.initErrors["identityResolver"] = err
			return
		}
		c.identityResolver = authUseCase.NewIdentityResolver(repo)
	})
	if storedErr, exists := c.initErrors["identityResolver"]; exists {
		return nil, storedErr
	}
	return c.identityResolver, nil
}

// KeyDeliveryTokenCache returns the cached service credential for key delivery calls.
func (c *Container) KeyDeliveryTokenCache() (*token.Cache, error) {
	c.keyDeliveryTokensInit.Do(func() {
		provider, err := token.NewMSALProvider(
			c.config.AuthTenantID,
			c.config.ClientID,
			c.config.ClientSecret,
			c.config.KeyDeliveryScope,
		)
		if err != nil {
			c.initErrors["keyDeliveryTokens"] = err
			return
		}
		c.keyDeliveryTokens = token.NewCache(provider, c.config.TokenRefreshMargin)
	})
	if storedErr, exists := c.initErrors["keyDeliveryTokens"]; exists {
		return nil, storedErr
	}
	return c.keyDeliveryTokens, nil
}

// KeyDeliveryClient returns the upstream key delivery client.
func (c *Container) KeyDeliveryClient() (*keyService.KeyDeliveryClient, error) {
	c.keyClientInit.Do(func() {
		tokens, err := c.KeyDeliveryTokenCache()
		if err != nil {
			c.initErrors["keyClient"] = err
			return
		}
		c.keyClient = keyService.NewKeyDeliveryClient(
			c.config.KeyDeliveryHost,
			c.newRetryableClient(),
			tokens,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["keyClient"]; exists {
		return nil, storedErr
	}
	return c.keyClient, nil
}

// KeyUseCase returns the key brokering use case, wrapped with metrics when
// metrics are enabled.
func (c *Container) KeyUseCase() (keyUseCase.KeyUseCase, error) {
	c.keyBrokerInit.Do(func() {
		videoUC, err := c.VideoUseCase()
		if err != nil {
			c.initErrors["keyBroker"] = err
			return
		}
		client, err := c.KeyDeliveryClient()
		if err != nil {
			c.initErrors["keyBroker"] = err
			return
		}

		useCase := keyUseCase.NewKeyUseCase(videoUC, client, c.Logger())

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				c.initErrors["keyBroker"] = err
				return
			}
			useCase = keyUseCase.NewKeyUseCaseWithMetrics(useCase, businessMetrics)
		}

		c.keyBrokerUseCase = useCase
	})
	if storedErr, exists := c.initErrors["keyBroker"]; exists {
		return nil, storedErr
	}
	return c.keyBrokerUseCase, nil
}

// MetricsProvider returns the metrics provider instance.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		businessMetrics, err := metrics.NewBusinessMetrics(
			provider.MeterProvider(),
			c.config.MetricsNamespace,
		)
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server with all routes wired for the
// configured mode.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown gracefully shuts down all initialized components.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Flush pending metrics if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// newRetryableClient builds an HTTP client with the configured retry budget
// and per-call timeout. Retries apply to network errors and 5xx responses
// only; 4xx responses come back immediately.
func (c *Container) newRetryableClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = c.config.UpstreamMaxRetries
	client.HTTPClient.Timeout = c.config.UpstreamTimeout
	client.Logger = nil
	return client
}

// initHTTPServer assembles handlers, middleware and the server for the
// configured mode.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	videoUC, err := c.VideoUseCase()
	if err != nil {
		return nil, err
	}

	params := http.ServerParams{
		Host:             c.config.ServerHost,
		Port:             c.config.ServerPort,
		StaticDir:        c.config.StaticDir,
		AuthEnabled:      c.config.AuthEnabled,
		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
		Logger:           logger,
	}

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, err
		}
		params.MetricsMiddleware = metrics.HTTPMetricsMiddleware(
			provider.MeterProvider(),
			c.config.MetricsNamespace,
		)
	}

	if !c.config.AuthEnabled {
		params.VideoHandler = catalogHTTP.NewVideoHandler(videoUC, nil, false, logger)
		return http.NewServer(params), nil
	}

	resolver, err := c.IdentityResolver()
	if err != nil {
		return nil, err
	}
	keyUC, err := c.KeyUseCase()
	if err != nil {
		return nil, err
	}

	params.VideoHandler = catalogHTTP.NewVideoHandler(videoUC, resolver, true, logger)
	params.KeyHandler = keyHTTP.NewKeyHandler(keyUC, resolver, logger)
	params.AuthenticationMiddleware = authHTTP.AuthenticationMiddleware(c.TokenVerifier(), logger)

	if c.config.RateLimitEnabled {
		params.RateLimitMiddleware = authHTTP.RateLimitMiddleware(
			c.config.RateLimitRequestsPerSec,
			c.config.RateLimitBurst,
			logger,
		)
	}

	return http.NewServer(params), nil
}
