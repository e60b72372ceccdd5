package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/config"
	"github.com/Nexora-Open-Source/tweet-filter/container"
	_ "github.com/Nexora-Open-Source/tweet-filter/docs"
	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	serviceName     = "tweet-filter"
	shutdownTimeout = 10 * time.Second
	clientIdleTTL   = 5 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the filter monitor HTTP API",
	RunE:  doServe,
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	clients map[string]*ClientLimiter
	mutex   sync.RWMutex
	rate    rate.Limit
	burst   int
}

// ClientLimiter represents a rate limiter for a specific client
type ClientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*ClientLimiter),
		rate:    r,
		burst:   b,
	}
}

// Allow checks if a client is allowed to make a request
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	client, exists := rl.clients[clientID]
	if !exists {
		client = &ClientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[clientID] = client
	}

	client.lastSeen = time.Now()
	return client.limiter.Allow()
}

// Cleanup removes stale client entries
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for clientID, client := range rl.clients {
		if time.Since(client.lastSeen) > clientIdleTTL {
			delete(rl.clients, clientID)
		}
	}
}

func doServe(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	logger := middleware.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := monitoring.InitTracing(serviceName, cfg.JaegerEndpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			monitoring.ShutdownTracing(shutdownCtx, tp, logger)
		}()
	}

	services, err := config.NewServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	limiter := NewRateLimiter(rate.Limit(cfg.RateLimitRequestsPerMinute/60.0), cfg.RateLimitBurst)
	router, err := newRouter(cfg, services.Container, limiter)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ClientCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// long-poll requests may still be waiting
			logger.WithError(err).Warn("Graceful shutdown timed out, closing connections")
			return srv.Close()
		}
		return nil
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, c *container.Container, limiter *RateLimiter) (http.Handler, error) {
	handler, err := c.GetHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handler: %w", err)
	}
	healthHandler, err := c.GetHealthHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize health handler: %w", err)
	}

	limited := func(next http.HandlerFunc) http.HandlerFunc {
		return MonitoringMiddleware(RateLimitMiddleware(limiter, next))
	}

	router := mux.NewRouter()
	monitoring.SetupMetricsEndpoint(router)

	// Health checks are not rate limited
	router.HandleFunc("/health", healthHandler.HandleHealthCheck).Methods("GET")
	router.HandleFunc("/health/live", healthHandler.HandleLivenessCheck).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.HandleReadinessCheck).Methods("GET")

	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	router.HandleFunc("/filter", limited(handler.HandleStartFilter)).Methods("POST")
	// clients follow an operation with repeated long-polls
	router.HandleFunc("/filter", MonitoringMiddleware(handler.HandleGetFilter)).Methods("GET")
	router.HandleFunc("/accounts", limited(handler.HandleListAccounts)).Methods("GET")
	router.HandleFunc("/accounts", limited(handler.HandleAddAccount)).Methods("POST")
	router.HandleFunc("/tweets", limited(handler.HandleGetTweets)).Methods("GET")
	router.HandleFunc("/tweets/{username}", limited(handler.HandleGetUserTweets)).Methods("GET")

	withLogging := middleware.LoggingMiddleware(router)
	return CORSMiddleware(withLogging, cfg), nil
}

// MonitoringMiddleware adds metrics and tracing to HTTP handlers
func MonitoringMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := routeTemplate(r)

		ctx, span := monitoring.CreateSpan(r.Context(), fmt.Sprintf("%s %s", r.Method, endpoint))
		defer span.End()

		monitoring.SetSpanAttributes(span, map[string]interface{}{
			"http.method":     r.Method,
			"http.url":        r.URL.String(),
			"http.user_agent": r.UserAgent(),
			"remote.addr":     r.RemoteAddr,
		})

		r = r.WithContext(ctx)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		monitoring.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", rw.statusCode), duration)

		monitoring.SetSpanAttributes(span, map[string]interface{}{
			"http.status_code": rw.statusCode,
			"duration_seconds": duration,
		})
		if rw.statusCode >= 400 {
			monitoring.SetSpanError(span, fmt.Errorf("HTTP %d", rw.statusCode))
		}
	}
}

// routeTemplate keeps path parameters out of metric labels
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIdentifier generates a client identifier from IP, user agent, language and session
func getClientIdentifier(r *http.Request) string {
	var identifiers []string

	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		ip = strings.TrimSpace(ips[0])
	} else if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		ip = realIP
	}
	identifiers = append(identifiers, "ip:"+ip)

	if fields := strings.Fields(strings.ToLower(r.Header.Get("User-Agent"))); len(fields) > 0 {
		identifiers = append(identifiers, "ua:"+fields[0])
	}

	if acceptLang := strings.TrimSpace(r.Header.Get("Accept-Language")); len(acceptLang) >= 2 {
		identifiers = append(identifiers, "lang:"+strings.ToLower(acceptLang[:2]))
	}

	if cookie, err := r.Cookie("session_id"); err == nil && cookie.Value != "" {
		hash := sha256.Sum256([]byte(cookie.Value))
		identifiers = append(identifiers, "sess:"+fmt.Sprintf("%x", hash)[:8])
	}

	finalHash := sha256.Sum256([]byte(strings.Join(identifiers, "|")))
	return fmt.Sprintf("%x", finalHash)[:16]
}

// RateLimitMiddleware rejects clients that exceed their token bucket
func RateLimitMiddleware(limiter *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(getClientIdentifier(r)) {
			middleware.RespondRateLimited(w, errors.New("rate limit exceeded"), middleware.RequestID(r))
			return
		}

		next.ServeHTTP(w, r)
	}
}

// getAllowedOrigins returns the appropriate allowed origins based on environment
func getAllowedOrigins(corsConfig config.CORSConfig) []string {
	switch strings.ToLower(corsConfig.Environment) {
	case "production", "prod":
		return corsConfig.ProductionOrigins
	case "staging", "stage":
		return corsConfig.StagingOrigins
	default:
		return corsConfig.DevelopmentOrigins
	}
}

func matchesDomain(origin, domain string) bool {
	return origin == "https://"+domain || origin == "http://"+domain || strings.HasSuffix(origin, "."+domain)
}

// isOriginAllowed checks if the origin is allowed based on CORS configuration
func isOriginAllowed(origin string, corsConfig config.CORSConfig) bool {
	allowedOrigins := getAllowedOrigins(corsConfig)

	for _, allowedOrigin := range allowedOrigins {
		if origin == allowedOrigin {
			return true
		}
	}

	if !corsConfig.AllowSubdomains {
		return false
	}

	for _, domain := range corsConfig.AllowedDomains {
		if matchesDomain(origin, domain) {
			return true
		}
	}
	for _, allowedOrigin := range allowedOrigins {
		if domain, ok := strings.CutPrefix(allowedOrigin, "*."); ok && matchesDomain(origin, domain) {
			return true
		}
	}

	return false
}

// CORSMiddleware sets CORS headers from configuration and answers preflight requests
func CORSMiddleware(next http.Handler, appConfig *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		corsConfig := appConfig.CORSConfig

		if origin != "" && isOriginAllowed(origin, corsConfig) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		if len(corsConfig.AllowedMethods) > 0 {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsConfig.AllowedMethods, ", "))
		} else {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}

		if len(corsConfig.AllowedHeaders) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsConfig.AllowedHeaders, ", "))
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
		}

		if len(corsConfig.ExposedHeaders) > 0 {
			w.Header().Set("Access-Control-Expose-Headers", strings.Join(corsConfig.ExposedHeaders, ", "))
		}

		if corsConfig.AllowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if corsConfig.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", corsConfig.MaxAge))
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
