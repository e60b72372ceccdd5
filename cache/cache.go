/*
Package cache provides caching for tweets browsed through the filter service.

Tweet listings change as the service scrapes new posts, so entries are kept
for an adaptive TTL derived from how frequently the cached accounts post.
*/
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/sirupsen/logrus"
)

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      []types.Tweet `json:"data"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache interface defines caching operations
type Cache interface {
	Get(key string) ([]types.Tweet, bool)
	Set(key string, tweets []types.Tweet, ttl time.Duration) error
	Delete(key string) error
	DeletePrefix(prefix string) error
	Clear() error
}

// InMemoryCache implements an in-memory cache with TTL support
type InMemoryCache struct {
	items map[string]*CacheItem
	mutex sync.RWMutex
	ttl   time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewInMemoryCache creates a new in-memory cache and starts its cleanup loop.
// Call Close to stop it.
func NewInMemoryCache(defaultTTL, cleanupInterval time.Duration) *InMemoryCache {
	cache := &InMemoryCache{
		items: make(map[string]*CacheItem),
		ttl:   defaultTTL,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go cache.startCleanup(cleanupInterval)

	return cache
}

// Get retrieves tweets from cache
func (c *InMemoryCache) Get(key string) ([]types.Tweet, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.items[key]
	if !exists || item.IsExpired() {
		return nil, false
	}

	return item.Data, true
}

// Set stores tweets in cache; a zero ttl uses the default
func (c *InMemoryCache) Set(key string, tweets []types.Tweet, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheItem{
		Data:      tweets,
		ExpiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes an item from cache
func (c *InMemoryCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
	return nil
}

// DeletePrefix removes every item whose key starts with prefix
func (c *InMemoryCache) DeletePrefix(prefix string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

// Clear removes all items from cache
func (c *InMemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheItem)
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Close stops the cleanup loop and waits for it to exit
func (c *InMemoryCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

// startCleanup periodically removes expired items
func (c *InMemoryCache) startCleanup(interval time.Duration) {
	defer close(c.done)
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired items
func (c *InMemoryCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
		}
	}
}

// CacheManager manages caching of tweet listings
type CacheManager struct {
	cache       Cache
	logger      *logrus.Logger
	defaultTTL  time.Duration
	highFreqTTL time.Duration
	lowFreqTTL  time.Duration
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cache Cache, logger *logrus.Logger, defaultTTL, highFreqTTL, lowFreqTTL time.Duration) *CacheManager {
	return &CacheManager{
		cache:       cache,
		logger:      logger,
		defaultTTL:  defaultTTL,
		highFreqTTL: highFreqTTL,
		lowFreqTTL:  lowFreqTTL,
	}
}

// ListKey is the cache key for a list (or all tweets when list is empty)
func ListKey(list string, limit int) string {
	return fmt.Sprintf("tweets:list:%s:%d", list, limit)
}

// UserKey is the cache key for one account's tweets
func UserKey(username string, limit int) string {
	return fmt.Sprintf("%s%d", userPrefix(username), limit)
}

func userPrefix(username string) string {
	return fmt.Sprintf("tweets:user:%s:", username)
}

// GetTweets retrieves cached tweets
func (cm *CacheManager) GetTweets(key string) ([]types.Tweet, bool) {
	tweets, found := cm.cache.Get(key)

	if found {
		monitoring.RecordCacheHit("tweets")
		cm.logger.WithFields(logrus.Fields{
			"key":          key,
			"tweets_count": len(tweets),
		}).Debug("Cache hit for tweets")
	} else {
		monitoring.RecordCacheMiss("tweets")
		cm.logger.WithField("key", key).Debug("Cache miss for tweets")
	}

	return tweets, found
}

// SetTweets caches tweets with adaptive TTL
func (cm *CacheManager) SetTweets(key string, tweets []types.Tweet) error {
	ttl := cm.calculateAdaptiveTTL(tweets)
	err := cm.cache.Set(key, tweets, ttl)

	if err != nil {
		cm.logger.WithFields(logrus.Fields{
			"key":          key,
			"tweets_count": len(tweets),
			"error":        err.Error(),
		}).Error("Failed to cache tweets")
		return err
	}

	cm.logger.WithFields(logrus.Fields{
		"key":          key,
		"tweets_count": len(tweets),
		"ttl_seconds":  ttl.Seconds(),
	}).Debug("Cached tweets with adaptive TTL")

	return nil
}

// InvalidateUser removes every cached listing for username
func (cm *CacheManager) InvalidateUser(username string) error {
	err := cm.cache.DeletePrefix(userPrefix(username))
	if err != nil {
		cm.logger.WithFields(logrus.Fields{
			"username": username,
			"error":    err.Error(),
		}).Error("Failed to invalidate user tweets cache")
		return err
	}

	cm.logger.WithField("username", username).Debug("Invalidated user tweets cache")
	return nil
}

// ClearAll clears all cached data
func (cm *CacheManager) ClearAll() error {
	err := cm.cache.Clear()

	if err != nil {
		cm.logger.WithError(err).Error("Failed to clear cache")
		return err
	}

	cm.logger.Info("Cache cleared successfully")
	return nil
}

// calculateAdaptiveTTL picks a TTL from how often the cached accounts post
func (cm *CacheManager) calculateAdaptiveTTL(tweets []types.Tweet) time.Duration {
	if len(tweets) == 0 {
		return cm.defaultTTL
	}

	frequency := analyzePostingFrequency(tweets)

	switch {
	case frequency <= time.Hour:
		return cm.highFreqTTL
	case frequency >= 24*time.Hour:
		return cm.lowFreqTTL
	default:
		return cm.defaultTTL
	}
}

// analyzePostingFrequency returns the average gap between consecutive tweets
func analyzePostingFrequency(tweets []types.Tweet) time.Duration {
	times := make([]time.Time, 0, len(tweets))
	for _, tweet := range tweets {
		if t, ok := parseCreatedAt(tweet.CreatedAt); ok {
			times = append(times, t)
		}
	}

	if len(times) < 2 {
		return 24 * time.Hour
	}

	sort.Slice(times, func(i, j int) bool {
		return times[i].After(times[j])
	})

	var total time.Duration
	count := 0
	for i := 1; i < len(times); i++ {
		diff := times[i-1].Sub(times[i])
		// ignore duplicates and gaps longer than a week
		if diff > 0 && diff < 7*24*time.Hour {
			total += diff
			count++
		}
	}

	if count == 0 {
		return 24 * time.Hour
	}

	return total / time.Duration(count)
}

var createdAtFormats = []string{
	time.RFC3339,
	time.RubyDate,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z",
}

func parseCreatedAt(raw string) (time.Time, bool) {
	for _, format := range createdAtFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
