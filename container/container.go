/*
Package container provides dependency injection capabilities for the tweet filter monitor.

This package implements a simple dependency injection container that helps manage
service dependencies and reduces tight coupling between components.
*/
package container

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Nexora-Open-Source/tweet-filter/cache"
	"github.com/Nexora-Open-Source/tweet-filter/handlers"
	"github.com/Nexora-Open-Source/tweet-filter/handlers/health"
	"github.com/Nexora-Open-Source/tweet-filter/monitor"
	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/sirupsen/logrus"
)

// Service names
const (
	ServiceLogger   = "logger"
	ServiceUpstream = "upstream"
	ServiceMonitor  = "monitor"
	ServiceAlerts   = "alerts"
	ServiceCache    = "cache"
	ServiceHandler  = "handler"
	ServiceHealth   = "health"
)

// Container holds all service dependencies
type Container struct {
	mu         sync.RWMutex
	services   map[string]interface{}
	factories  map[string]func() (interface{}, error)
	singletons map[string]interface{}
	closers    []func()
	closeOnce  sync.Once
}

// Deps are the core services the container is initialized with
type Deps struct {
	Logger   *logrus.Logger
	Upstream *upstream.Client
	Monitor  *monitor.Monitor
	Alerts   *monitoring.AlertManager
	Cache    *cache.CacheManager
	Store    *cache.InMemoryCache
	Version  string
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		services:   make(map[string]interface{}),
		factories:  make(map[string]func() (interface{}, error)),
		singletons: make(map[string]interface{}),
	}
}

// Register registers a service instance
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterFactory registers a factory function for lazy service creation
func (c *Container) RegisterFactory(name string, factory func() (interface{}, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// RegisterSingleton registers a singleton service
func (c *Container) RegisterSingleton(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[name] = service
}

// OnClose registers fn to run on Close, in reverse registration order
func (c *Container) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

// Get retrieves a service by name
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.RLock()
	service, registered := c.services[name]
	singleton, isSingleton := c.singletons[name]
	factory, hasFactory := c.factories[name]
	c.mu.RUnlock()

	switch {
	case registered:
		return service, nil
	case isSingleton:
		return singleton, nil
	case hasFactory:
		created, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service %s: %w", name, err)
		}
		return created, nil
	}

	return nil, fmt.Errorf("service %s not found", name)
}

func get[T any](c *Container, name string) (T, error) {
	var zero T
	service, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("%s service is not of expected type", name)
	}
	return typed, nil
}

// GetLogger retrieves the logger service
func (c *Container) GetLogger() (*logrus.Logger, error) {
	return get[*logrus.Logger](c, ServiceLogger)
}

// GetUpstream retrieves the filter service client
func (c *Container) GetUpstream() (*upstream.Client, error) {
	return get[*upstream.Client](c, ServiceUpstream)
}

// GetMonitor retrieves the job monitor
func (c *Container) GetMonitor() (*monitor.Monitor, error) {
	return get[*monitor.Monitor](c, ServiceMonitor)
}

// GetAlertManager retrieves the alert manager
func (c *Container) GetAlertManager() (*monitoring.AlertManager, error) {
	return get[*monitoring.AlertManager](c, ServiceAlerts)
}

// GetCacheManager retrieves the cache manager service
func (c *Container) GetCacheManager() (*cache.CacheManager, error) {
	return get[*cache.CacheManager](c, ServiceCache)
}

// GetHandler retrieves the handler service
func (c *Container) GetHandler() (*handlers.Handler, error) {
	return get[*handlers.Handler](c, ServiceHandler)
}

// GetHealthHandler retrieves the health handler service
func (c *Container) GetHealthHandler() (*health.Handler, error) {
	return get[*health.Handler](c, ServiceHealth)
}

// InitializeServices initializes all core services with proper dependencies
func (c *Container) InitializeServices(deps Deps) error {
	if deps.Logger == nil || deps.Upstream == nil || deps.Monitor == nil {
		return errors.New("logger, upstream client and monitor are required")
	}

	c.RegisterSingleton(ServiceLogger, deps.Logger)
	c.RegisterSingleton(ServiceUpstream, deps.Upstream)
	c.RegisterSingleton(ServiceMonitor, deps.Monitor)
	c.RegisterSingleton(ServiceCache, deps.Cache)
	if deps.Alerts != nil {
		c.RegisterSingleton(ServiceAlerts, deps.Alerts)
	}

	c.RegisterFactory(ServiceHandler, func() (interface{}, error) {
		if deps.Cache == nil {
			return nil, errors.New("cache manager is required")
		}
		return handlers.NewHandler(deps.Monitor, deps.Upstream, deps.Cache, deps.Logger), nil
	})
	c.RegisterFactory(ServiceHealth, func() (interface{}, error) {
		return health.NewHandler(deps.Upstream, deps.Logger, deps.Version), nil
	})

	// the monitor stops first so its last outcome still reaches the alert manager
	if deps.Store != nil {
		c.OnClose(deps.Store.Close)
	}
	if deps.Alerts != nil {
		c.OnClose(deps.Alerts.Stop)
	}
	c.OnClose(deps.Monitor.Close)

	return nil
}

// Close gracefully stops all services; calling it again is a no-op
func (c *Container) Close() error {
	c.closeOnce.Do(func() {
		c.mu.RLock()
		closers := append([]func(){}, c.closers...)
		c.mu.RUnlock()

		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	})
	return nil
}
