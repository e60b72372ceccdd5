package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/monitor"
	"github.com/Nexora-Open-Source/tweet-filter/upstream"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected *Config
	}{
		{
			name:    "default config",
			envVars: map[string]string{},
			expected: &Config{
				APIBase:    upstream.DefaultBaseURL,
				Transport:  TransportPoll,
				LogLevel:   "info",
				ServerPort: "8080",
			},
		},
		{
			name: "custom config",
			envVars: map[string]string{
				"API_BASE":    "http://localhost:3000/api/",
				"TRANSPORT":   "PUSH",
				"LOG_LEVEL":   "debug",
				"SERVER_PORT": "9000",
			},
			expected: &Config{
				APIBase:    "http://localhost:3000/api",
				Transport:  TransportPush,
				LogLevel:   "debug",
				ServerPort: "9000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"API_BASE", "TRANSPORT", "LOG_LEVEL", "SERVER_PORT"} {
				t.Setenv(key, "")
			}
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			config := NewConfig()
			assert.Equal(t, tt.expected.APIBase, config.APIBase)
			assert.Equal(t, tt.expected.Transport, config.Transport)
			assert.Equal(t, tt.expected.LogLevel, config.LogLevel)
			assert.Equal(t, tt.expected.ServerPort, config.ServerPort)
		})
	}
}

func TestPollDefaults(t *testing.T) {
	config := NewConfig()

	assert.Equal(t, monitor.DefaultPollConfig, config.PollSettings())
	assert.Equal(t, 60*time.Second, config.SubmitTimeout)
	assert.Equal(t, 10*time.Second, config.StatusTimeout)
}

func TestPollOverrides(t *testing.T) {
	t.Setenv("POLL_BASE_DELAY", "500ms")
	t.Setenv("POLL_GROWTH", "2")
	t.Setenv("POLL_MAX_DELAY", "8s")
	t.Setenv("POLL_MAX_CYCLES", "10")
	t.Setenv("POLL_MAX_RETRIES", "1")
	t.Setenv("POLL_RETRY_WAIT", "2s")

	settings := NewConfig().PollSettings()
	assert.Equal(t, 500*time.Millisecond, settings.Backoff.Delay(0))
	assert.Equal(t, 8*time.Second, settings.Backoff.Delay(10))
	assert.Equal(t, 10, settings.MaxCycles)
	assert.Equal(t, 1, settings.MaxRetries)
	assert.Equal(t, 2*time.Second, settings.RetryWait)
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("TRANSPORT", "")
	t.Setenv("API_BASE", "")

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "push transport", mutate: func(c *Config) { c.Transport = TransportPush }},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Transport = "carrier-pigeon" },
			wantErr: "TRANSPORT",
		},
		{
			name:    "relative api base",
			mutate:  func(c *Config) { c.APIBase = "/api" },
			wantErr: "API_BASE",
		},
		{
			name:    "push url with http scheme",
			mutate:  func(c *Config) { c.PushURL = "http://localhost/filter-ws" },
			wantErr: "PUSH_URL",
		},
		{
			name:    "zero cycle budget",
			mutate:  func(c *Config) { c.Poll.MaxCycles = 0 },
			wantErr: "POLL_MAX_CYCLES",
		},
		{
			name:    "shrinking backoff",
			mutate:  func(c *Config) { c.Poll.Growth = 0.5 },
			wantErr: "growth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewTransportSelection(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	config := NewConfig()
	config.APIBase = "https://filter.test/api"
	client, err := config.NewUpstreamClient(logger)
	require.NoError(t, err)

	config.Transport = TransportPoll
	transport, err := config.NewTransport(client, logger)
	require.NoError(t, err)
	assert.Equal(t, "poll", transport.Name())

	config.Transport = TransportPush
	transport, err = config.NewTransport(client, logger)
	require.NoError(t, err)
	assert.Equal(t, "push", transport.Name())

	config.PushURL = "https://filter.test/filter-ws"
	_, err = config.NewTransport(client, logger)
	assert.Error(t, err)
}

func TestNewAppConfigBuildsServices(t *testing.T) {
	middleware.Logger.SetLevel(logrus.PanicLevel)
	t.Setenv("API_BASE", "http://127.0.0.1:1/api")
	t.Setenv("TRANSPORT", "poll")

	appConfig, err := NewAppConfig()
	require.NoError(t, err)
	defer appConfig.Services.Close()

	handler, err := appConfig.Services.Container.GetHandler()
	require.NoError(t, err)
	assert.Equal(t, "poll", handler.Filters.TransportName())
}

func TestNewAppConfigRejectsInvalid(t *testing.T) {
	t.Setenv("TRANSPORT", "smoke-signals")

	_, err := NewAppConfig()
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TWEET_FILTER_TEST_VAR=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TWEET_FILTER_TEST_VAR") })

	LoadEnv(path, filepath.Join(dir, "missing.env"))
	assert.Equal(t, "from-file", os.Getenv("TWEET_FILTER_TEST_VAR"))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	assert.Equal(t, "test_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTING_VAR", "default"))
	assert.Equal(t, []string{"a", "b"}, getEnvSliceWith(t, "TEST_SLICE", "a, b"))
}

func getEnvSliceWith(t *testing.T, key, value string) []string {
	t.Setenv(key, value)
	return getEnvSlice(key, nil)
}

func TestServicesClose(t *testing.T) {
	services := &Services{Logger: logrus.New()}

	assert.NotPanics(t, func() {
		services.Close()
	}, "Close should not panic")
}
