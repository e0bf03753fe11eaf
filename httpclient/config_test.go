package httpclient

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() ClientConfig {
	cfg := ClientConfig{
		Host:     "fidelis.example.com",
		Username: testUsername,
		Password: testPassword,
	}
	SetDefaultValuesClientConfig(&cfg)
	return cfg
}

func TestSetDefaultValuesClientConfig(t *testing.T) {
	var cfg ClientConfig
	SetDefaultValuesClientConfig(&cfg)

	assert.Equal(t, DefaultLogLevelString, cfg.LogLevel)
	assert.Equal(t, DefaultLogOutputFormatString, cfg.LogOutputFormat)
	assert.Equal(t, DefaultLogConsoleSeparator, cfg.LogConsoleSeparator)
	assert.Equal(t, DefaultMaxRetryAttempts, cfg.MaxRetryAttempts)
	assert.Equal(t, DefaultMaxConcurrentRequests, cfg.MaxConcurrentRequests)
	assert.Equal(t, DefaultCustomTimeout, cfg.CustomTimeout)
	assert.Equal(t, DefaultTokenRefreshWindow, cfg.TokenRefreshWindow)
	assert.Equal(t, time.Duration(DefaultTokenRefreshBufferPeriod), cfg.TokenRefreshBufferPeriod)
	assert.Equal(t, DefaultTotalRetryDuration, cfg.TotalRetryDuration)
	assert.Equal(t, DefaultMaxRedirects, cfg.MaxRedirects)
	assert.False(t, cfg.FollowRedirects)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.False(t, cfg.CookieJarEnabled)

	custom := ClientConfig{MaxRetryAttempts: 7, LogLevel: "LogLevelDebug"}
	SetDefaultValuesClientConfig(&custom)
	assert.Equal(t, 7, custom.MaxRetryAttempts)
	assert.Equal(t, "LogLevelDebug", custom.LogLevel)
}

func TestValidateClientConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*ClientConfig) {}},
		{name: "base url instead of host", mutate: func(c *ClientConfig) { c.Host = ""; c.BaseURL = "https://10.0.0.5/endpoint/api" }},
		{name: "no host", mutate: func(c *ClientConfig) { c.Host = "" }, wantErr: "either host or base_url is required"},
		{name: "no username", mutate: func(c *ClientConfig) { c.Username = "" }, wantErr: "username and password are required"},
		{name: "no password", mutate: func(c *ClientConfig) { c.Password = "" }, wantErr: "username and password are required"},
		{name: "dpanic log level", mutate: func(c *ClientConfig) { c.LogLevel = "LogLevelDPanic" }},
		{name: "bad log level", mutate: func(c *ClientConfig) { c.LogLevel = "verbose" }, wantErr: "invalid log level: verbose"},
		{name: "bad log format", mutate: func(c *ClientConfig) { c.LogOutputFormat = "xml" }, wantErr: "invalid log output format: xml"},
		{name: "negative retries", mutate: func(c *ClientConfig) { c.MaxRetryAttempts = -1 }, wantErr: "max retry attempts"},
		{name: "too many concurrent requests", mutate: func(c *ClientConfig) { c.MaxConcurrentRequests = 11 }, wantErr: "max concurrent requests must be between 1 and 10"},
		{name: "negative timeout", mutate: func(c *ClientConfig) { c.CustomTimeout = -time.Second }, wantErr: "timeout"},
		{name: "negative window", mutate: func(c *ClientConfig) { c.TokenRefreshWindow = -time.Second }, wantErr: "token refresh window"},
		{name: "negative buffer", mutate: func(c *ClientConfig) { c.TokenRefreshBufferPeriod = -time.Second }, wantErr: "token refresh buffer period"},
		{
			name:    "buffer not shorter than window",
			mutate:  func(c *ClientConfig) { c.TokenRefreshWindow = time.Minute; c.TokenRefreshBufferPeriod = time.Minute },
			wantErr: "must be shorter than the refresh window",
		},
		{name: "negative total retry duration", mutate: func(c *ClientConfig) { c.TotalRetryDuration = -time.Second }, wantErr: "total retry duration"},
		{name: "redirects without limit", mutate: func(c *ClientConfig) { c.FollowRedirects = true; c.MaxRedirects = 0 }, wantErr: "max redirects cannot be less than 1"},
		{name: "empty cookie name", mutate: func(c *ClientConfig) { c.CustomCookies = map[string]string{" ": "x"} }, wantErr: "custom cookie names cannot be empty"},
		{name: "empty redirect header", mutate: func(c *ClientConfig) { c.RedirectSensitiveHeaders = []string{""} }, wantErr: "redirect sensitive headers cannot be empty"},
		{name: "bad proxy url", mutate: func(c *ClientConfig) { c.ProxyURL = "http://proxy:port\x7f" }, wantErr: "invalid proxy URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := validateClientConfig(cfg)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClientConfig_BaseURL(t *testing.T) {
	assert.Equal(t, "https://fidelis.example.com/endpoint/api/", ClientConfig{Host: "fidelis.example.com"}.baseURL())
	assert.Equal(t, "https://fidelis.example.com:8443/endpoint/api/", ClientConfig{Host: "fidelis.example.com:8443/"}.baseURL())
	assert.Equal(t, "http://10.0.0.5/api/", ClientConfig{Host: "ignored", BaseURL: "http://10.0.0.5/api"}.baseURL())
	assert.Equal(t, "http://10.0.0.5/api/", ClientConfig{BaseURL: "http://10.0.0.5/api/"}.baseURL())
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	path := writeConfigFile(t, "fidelis.yaml", `
host: fidelis.example.com
username: analyst
password: s3cret-pass
insecure_skip_verify: true
log_level: LogLevelDebug
log_output_format: json
max_retry_attempts: 5
max_concurrent_requests: 4
custom_timeout: 45s
token_refresh_window: 10m
token_refresh_buffer_period: 30s
follow_redirects: true
max_redirects: 3
redirect_sensitive_headers: [X-Api-Key]
custom_cookies:
  lb-node: node-2
`)

	cfg, err := LoadConfigFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "fidelis.example.com", cfg.Host)
	assert.Equal(t, testUsername, cfg.Username)
	assert.Equal(t, testPassword, cfg.Password)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, "LogLevelDebug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogOutputFormat)
	assert.Equal(t, 5, cfg.MaxRetryAttempts)
	assert.Equal(t, 4, cfg.MaxConcurrentRequests)
	assert.Equal(t, 45*time.Second, cfg.CustomTimeout)
	assert.Equal(t, 10*time.Minute, cfg.TokenRefreshWindow)
	assert.Equal(t, 30*time.Second, cfg.TokenRefreshBufferPeriod)
	assert.True(t, cfg.FollowRedirects)
	assert.Equal(t, 3, cfg.MaxRedirects)
	assert.Equal(t, []string{"X-Api-Key"}, cfg.RedirectSensitiveHeaders)
	assert.Equal(t, map[string]string{"lb-node": "node-2"}, cfg.CustomCookies)
}

func TestLoadConfigFromFile_JSON(t *testing.T) {
	path := writeConfigFile(t, "fidelis.json", `{
  "base_url": "https://10.0.0.5/endpoint/api/",
  "username": "analyst",
  "password": "s3cret-pass",
  "hide_sensitive_data": true,
  "cookie_jar_enabled": true
}`)

	cfg, err := LoadConfigFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "https://10.0.0.5/endpoint/api/", cfg.BaseURL)
	assert.True(t, cfg.HideSensitiveData)
	assert.True(t, cfg.CookieJarEnabled)
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")

	path := writeConfigFile(t, "unknown.yaml", "host: fidelis.example.com\nverbosity: 3\n")
	_, err = LoadConfigFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbosity")

	path = writeConfigFile(t, "badduration.yaml", "custom_timeout: soon\n")
	_, err = LoadConfigFromFile(path)
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FIDELIS_HOST", "fidelis.example.com")
	t.Setenv("FIDELIS_USERNAME", testUsername)
	t.Setenv("FIDELIS_PASSWORD", testPassword)
	t.Setenv("FIDELIS_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("FIDELIS_MAX_RETRY_ATTEMPTS", "4")
	t.Setenv("FIDELIS_CUSTOM_TIMEOUT", "15s")
	t.Setenv("FIDELIS_PROXY_URL", " http://proxy.internal:3128 ")
	t.Setenv("FIDELIS_CUSTOM_COOKIES", "lb-node=node-2; region=eu")
	t.Setenv("FIDELIS_REDIRECT_SENSITIVE_HEADERS", "X-Api-Key, ,X-Tenant")

	cfg, err := LoadConfigFromEnv()

	require.NoError(t, err)
	assert.Equal(t, "fidelis.example.com", cfg.Host)
	assert.Equal(t, testUsername, cfg.Username)
	assert.Equal(t, testPassword, cfg.Password)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, 4, cfg.MaxRetryAttempts)
	assert.Equal(t, 15*time.Second, cfg.CustomTimeout)
	assert.Equal(t, "http://proxy.internal:3128", cfg.ProxyURL)
	assert.Zero(t, cfg.MaxConcurrentRequests)
	assert.False(t, cfg.FollowRedirects)
	assert.Equal(t, map[string]string{"lb-node": "node-2", "region": "eu"}, cfg.CustomCookies)
	assert.Equal(t, []string{"X-Api-Key", "X-Tenant"}, cfg.RedirectSensitiveHeaders)
}

func TestLoadConfigFromEnv_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("FIDELIS_FOLLOW_REDIRECTS", "maybe")
	t.Setenv("FIDELIS_MAX_REDIRECTS", "five")
	t.Setenv("FIDELIS_TOTAL_RETRY_DURATION", "forever")
	t.Setenv("FIDELIS_CUSTOM_COOKIES", "=orphan")

	cfg, err := LoadConfigFromEnv()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "FIDELIS_FOLLOW_REDIRECTS")
	assert.Contains(t, err.Error(), "FIDELIS_MAX_REDIRECTS")
	assert.Contains(t, err.Error(), "FIDELIS_TOTAL_RETRY_DURATION")
	assert.Contains(t, err.Error(), "FIDELIS_CUSTOM_COOKIES")
}
