/*
Package config provides configuration management for the tweet filter monitor.

This package separates configuration concerns from business logic and provides
a centralized way to build the upstream client, the selected job transport,
caching, alerting and other service dependencies.
*/
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/cache"
	"github.com/Nexora-Open-Source/tweet-filter/container"
	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/monitor"
	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Transport names accepted by TRANSPORT
const (
	TransportPoll = "poll"
	TransportPush = "push"
)

// Config holds all application configuration
type Config struct {
	APIBase    string
	PushURL    string
	Transport  string
	LogLevel   string
	ServerPort string
	Version    string
	// Job monitoring
	Poll PollConfig
	// Upstream request settings
	SubmitTimeout    time.Duration
	StatusTimeout    time.Duration
	HandshakeTimeout time.Duration
	UpstreamRPS      float64
	UpstreamBurst    int
	// Rate limiting configuration
	RateLimitRequestsPerMinute float64
	RateLimitBurst             int
	// Enhanced CORS configuration
	CORSConfig CORSConfig
	// Cleanup intervals
	ClientCleanupInterval time.Duration
	CacheCleanupInterval  time.Duration
	// Tweet cache TTLs, chosen by posting frequency
	TweetsCacheTTL         time.Duration
	HighFreqTweetsCacheTTL time.Duration
	LowFreqTweetsCacheTTL  time.Duration
	// Observability
	TracingEnabled bool
	JaegerEndpoint string
	AlertInterval  time.Duration
}

// PollConfig holds the poll loop budgets
type PollConfig struct {
	BaseDelay  time.Duration
	Growth     float64
	MaxDelay   time.Duration
	MaxCycles  int
	MaxRetries int
	RetryWait  time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	// Environment-specific settings
	Environment string
	// Allowed origins based on environment
	DevelopmentOrigins []string
	StagingOrigins     []string
	ProductionOrigins  []string
	// Additional CORS settings
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	// Dynamic origin validation
	AllowSubdomains bool
	AllowedDomains  []string
}

// Services holds all service dependencies
type Services struct {
	Container *container.Container
	Logger    *logrus.Logger
}

// AppConfig holds both configuration and services
type AppConfig struct {
	Config   *Config
	Services *Services
}

// LoadEnv reads an optional .env file; variables already set win
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			logrus.WithError(err).WithField("file", f).Warn("Failed to load env file")
		}
	}
}

// NewConfig creates a new configuration instance
func NewConfig() *Config {
	environment := getEnv("ENVIRONMENT", "development")
	defaults := monitor.DefaultPollConfig

	return &Config{
		APIBase:    strings.TrimRight(getEnv("API_BASE", upstream.DefaultBaseURL), "/"),
		PushURL:    getEnv("PUSH_URL", ""),
		Transport:  strings.ToLower(getEnv("TRANSPORT", TransportPoll)),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Poll: PollConfig{
			BaseDelay:  getEnvDuration("POLL_BASE_DELAY", defaults.Backoff.Base),
			Growth:     getEnvFloat("POLL_GROWTH", defaults.Backoff.Growth),
			MaxDelay:   getEnvDuration("POLL_MAX_DELAY", defaults.Backoff.Max),
			MaxCycles:  getEnvInt("POLL_MAX_CYCLES", defaults.MaxCycles),
			MaxRetries: getEnvInt("POLL_MAX_RETRIES", defaults.MaxRetries),
			RetryWait:  getEnvDuration("POLL_RETRY_WAIT", defaults.RetryWait),
		},
		SubmitTimeout:    getEnvDuration("SUBMIT_TIMEOUT", 60*time.Second),
		StatusTimeout:    getEnvDuration("STATUS_TIMEOUT", 10*time.Second),
		HandshakeTimeout: getEnvDuration("HANDSHAKE_TIMEOUT", 10*time.Second),
		UpstreamRPS:      getEnvFloat("UPSTREAM_RPS", 5),
		UpstreamBurst:    getEnvInt("UPSTREAM_BURST", 5),
		// Rate limiting defaults (60 requests per minute, burst of 10)
		RateLimitRequestsPerMinute: getEnvFloat("RATE_LIMIT_RPM", 60.0),
		RateLimitBurst:             getEnvInt("RATE_LIMIT_BURST", 10),
		CORSConfig: CORSConfig{
			Environment: environment,
			DevelopmentOrigins: getEnvSlice("DEV_CORS_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost:3001",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:3001",
				"http://localhost:8080",
			}),
			StagingOrigins:    getEnvSlice("STAGING_CORS_ORIGINS", []string{}),
			ProductionOrigins: getEnvSlice("PROD_CORS_ORIGINS", []string{}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{
				"GET", "POST", "OPTIONS",
			}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{
				"Content-Type", "Authorization", "X-Requested-With",
				"X-Request-ID", "Accept", "Origin", "Cache-Control",
			}),
			ExposedHeaders: getEnvSlice("CORS_EXPOSED_HEADERS", []string{
				"X-Request-ID", "X-Cache",
			}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400), // 24 hours
			AllowSubdomains:  getEnvBool("CORS_ALLOW_SUBDOMAINS", false),
			AllowedDomains:   getEnvSlice("CORS_ALLOWED_DOMAINS", []string{}),
		},
		ClientCleanupInterval:  getEnvDuration("CLIENT_CLEANUP_INTERVAL", 1*time.Minute),
		CacheCleanupInterval:   getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		TweetsCacheTTL:         getEnvDuration("TWEETS_CACHE_TTL", 5*time.Minute),
		HighFreqTweetsCacheTTL: getEnvDuration("HIGH_FREQ_TWEETS_CACHE_TTL", 1*time.Minute),
		LowFreqTweetsCacheTTL:  getEnvDuration("LOW_FREQ_TWEETS_CACHE_TTL", 15*time.Minute),
		TracingEnabled:         getEnvBool("TRACING_ENABLED", false),
		JaegerEndpoint:         getEnv("JAEGER_ENDPOINT", ""),
		AlertInterval:          getEnvDuration("ALERT_INTERVAL", 30*time.Second),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportPoll, TransportPush:
	default:
		errs = append(errs, fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportPoll, TransportPush, c.Transport))
	}

	if err := checkURL("API_BASE", c.APIBase, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if c.PushURL != "" {
		if err := checkURL("PUSH_URL", c.PushURL, "ws", "wss"); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Poll.BaseDelay <= 0 || c.Poll.MaxDelay <= 0 || c.Poll.Growth < 1 {
		errs = append(errs, errors.New("poll backoff needs positive delays and a growth factor of at least 1"))
	}
	if c.Poll.MaxCycles <= 0 {
		errs = append(errs, errors.New("POLL_MAX_CYCLES must be positive"))
	}
	if c.Poll.MaxRetries < 0 || c.Poll.RetryWait < 0 {
		errs = append(errs, errors.New("POLL_MAX_RETRIES and POLL_RETRY_WAIT must not be negative"))
	}
	if c.SubmitTimeout <= 0 || c.StatusTimeout <= 0 {
		errs = append(errs, errors.New("SUBMIT_TIMEOUT and STATUS_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func checkURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of %v, got %q", name, schemes, u.Scheme)
}

// PollSettings converts the poll configuration for the monitor
func (c *Config) PollSettings() monitor.PollConfig {
	return monitor.PollConfig{
		Backoff: monitor.Backoff{
			Base:   c.Poll.BaseDelay,
			Growth: c.Poll.Growth,
			Max:    c.Poll.MaxDelay,
		},
		MaxCycles:  c.Poll.MaxCycles,
		MaxRetries: c.Poll.MaxRetries,
		RetryWait:  c.Poll.RetryWait,
	}
}

// NewUpstreamClient builds the HTTP client for the filter service
func (c *Config) NewUpstreamClient(logger *logrus.Logger) (*upstream.Client, error) {
	return upstream.NewClient(upstream.Options{
		BaseURL:           c.APIBase,
		SubmitTimeout:     c.SubmitTimeout,
		RequestTimeout:    c.StatusTimeout,
		RequestsPerSecond: c.UpstreamRPS,
		Burst:             c.UpstreamBurst,
	}, logger)
}

// NewTransport builds the configured job transport
func (c *Config) NewTransport(client *upstream.Client, logger *logrus.Logger) (monitor.Transport, error) {
	if c.Transport == TransportPush {
		pushURL := c.PushURL
		if pushURL == "" {
			derived, err := upstream.PushURLFromBase(c.APIBase)
			if err != nil {
				return nil, fmt.Errorf("failed to derive push URL: %w", err)
			}
			pushURL = derived
		}
		dialer, err := upstream.NewWSDialer(pushURL, c.HandshakeTimeout, logger)
		if err != nil {
			return nil, err
		}
		return monitor.NewPushTransport(dialer, logger), nil
	}
	return monitor.NewPollTransport(client, c.PollSettings(), logger), nil
}

// NewServices creates and initializes all service dependencies using DI container
func NewServices(config *Config) (*Services, error) {
	logger := middleware.Logger

	client, err := config.NewUpstreamClient(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}
	logger.WithField("api_base", client.BaseURL()).Info("Upstream client initialized")

	transport, err := config.NewTransport(client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s transport: %w", config.Transport, err)
	}

	alerts := monitoring.NewAlertManager(logger, config.AlertInterval)
	mon := monitor.New(transport, logger, monitor.WithOutcomeRecorder(alerts))
	logger.WithField("transport", transport.Name()).Info("Job monitor initialized")

	inMemoryCache := cache.NewInMemoryCache(config.TweetsCacheTTL, config.CacheCleanupInterval)
	cacheManager := cache.NewCacheManager(
		inMemoryCache,
		logger,
		config.TweetsCacheTTL,
		config.HighFreqTweetsCacheTTL,
		config.LowFreqTweetsCacheTTL,
	)

	diContainer := container.NewContainer()
	if err := diContainer.InitializeServices(container.Deps{
		Logger:   logger,
		Upstream: client,
		Monitor:  mon,
		Alerts:   alerts,
		Cache:    cacheManager,
		Store:    inMemoryCache,
		Version:  config.Version,
	}); err != nil {
		mon.Close()
		alerts.Stop()
		inMemoryCache.Close()
		return nil, fmt.Errorf("failed to initialize dependency container: %w", err)
	}

	return &Services{
		Container: diContainer,
		Logger:    logger,
	}, nil
}

// NewAppConfig creates a new application configuration with all dependencies
func NewAppConfig() (*AppConfig, error) {
	config := NewConfig()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	services, err := NewServices(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &AppConfig{
		Config:   config,
		Services: services,
	}, nil
}

// Close gracefully stops all services
func (s *Services) Close() error {
	if s.Container != nil {
		return s.Container.Close()
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float64 with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as time.Duration with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as bool with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSlice gets an environment variable as a string slice with a default value
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
