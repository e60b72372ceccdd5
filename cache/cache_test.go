package cache

import (
	"io"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func tweetsEvery(gap time.Duration, n int) []types.Tweet {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tweets := make([]types.Tweet, n)
	for i := range tweets {
		tweets[i] = types.Tweet{
			Username:  "alice",
			TweetID:   string(rune('a' + i)),
			CreatedAt: start.Add(-time.Duration(i) * gap).Format(time.RFC3339),
		}
	}
	return tweets
}

func TestInMemoryCacheExpiry(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Close()

	require.NoError(t, c.Set("k", []types.Tweet{{TweetID: "1"}}, 20*time.Millisecond))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Len(t, got, 1)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)

	c.cleanup()
	assert.Equal(t, 0, c.Len())
}

func TestInMemoryCacheDeletePrefix(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Close()

	c.Set(UserKey("alice", 50), nil, 0)
	c.Set(UserKey("alice", 10), nil, 0)
	c.Set(UserKey("alicia", 50), nil, 0)
	c.Set(ListKey("ai", 100), nil, 0)

	require.NoError(t, c.DeletePrefix(userPrefix("alice")))

	_, ok := c.Get(UserKey("alice", 50))
	assert.False(t, ok)
	_, ok = c.Get(UserKey("alicia", 50))
	assert.True(t, ok, "prefix ends at the username separator")
	_, ok = c.Get(ListKey("ai", 100))
	assert.True(t, ok)
}

func TestCacheManagerRoundTrip(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Close()
	cm := NewCacheManager(c, testLogger(), 5*time.Minute, time.Minute, 15*time.Minute)

	key := ListKey("", 100)
	_, found := cm.GetTweets(key)
	assert.False(t, found)

	require.NoError(t, cm.SetTweets(key, tweetsEvery(10*time.Minute, 3)))
	tweets, found := cm.GetTweets(key)
	require.True(t, found)
	assert.Len(t, tweets, 3)

	require.NoError(t, cm.ClearAll())
	_, found = cm.GetTweets(key)
	assert.False(t, found)
}

func TestAdaptiveTTL(t *testing.T) {
	cm := NewCacheManager(nil, testLogger(), 5*time.Minute, time.Minute, 15*time.Minute)

	tests := []struct {
		name   string
		tweets []types.Tweet
		want   time.Duration
	}{
		{"empty", nil, 5 * time.Minute},
		{"frequent posters", tweetsEvery(10*time.Minute, 5), time.Minute},
		{"daily posters", tweetsEvery(30*time.Hour, 5), 15 * time.Minute},
		{"a few posts a day", tweetsEvery(6*time.Hour, 5), 5 * time.Minute},
		{"single tweet", tweetsEvery(time.Minute, 1), 15 * time.Minute},
		{"unparseable dates", []types.Tweet{{CreatedAt: "yesterday"}, {CreatedAt: "today"}}, 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cm.calculateAdaptiveTTL(tt.tweets))
		})
	}
}

func TestParseCreatedAtFormats(t *testing.T) {
	for _, raw := range []string{
		"2024-03-01T12:00:00Z",
		"Fri Mar 01 12:00:00 +0000 2024",
		"2024-03-01 12:00:00",
	} {
		_, ok := parseCreatedAt(raw)
		assert.True(t, ok, raw)
	}
}
