// httpclient/config.go
// Description: Defaults, validation and loading of ClientConfig from YAML/JSON files or environment variables.
package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/concurrency"
	"github.com/deploymenttheory/go-api-sdk-fidelis/credentials"
	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevelString           = "LogLevelInfo"
	DefaultLogOutputFormatString    = logger.LogOutputPretty
	DefaultLogConsoleSeparator      = "	"
	DefaultMaxRetryAttempts         = 3
	DefaultMaxConcurrentRequests    = 1
	DefaultCustomTimeout            = 30 * time.Second
	DefaultTokenRefreshWindow       = credentials.DefaultRefreshWindow
	DefaultTokenRefreshBufferPeriod = 0
	DefaultTotalRetryDuration       = 5 * time.Minute
	DefaultMaxRedirects             = 5

	// apiPath is appended to Host to form the base URL.
	apiPath = "/endpoint/api/"

	envPrefix = "FIDELIS_"
)

var validLogLevels = []string{
	"LogLevelDebug",
	"LogLevelInfo",
	"LogLevelWarn",
	"LogLevelError",
	"LogLevelDPanic",
	"LogLevelPanic",
	"LogLevelFatal",
	"LogLevelNone",
}

var validLogFormats = []string{
	logger.LogOutputJSON,
	logger.LogOutputPretty,
}

// LoadConfigFromFile reads a ClientConfig from a YAML or JSON file. Unknown keys are rejected.
func LoadConfigFromFile(filepath string) (*ClientConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config ClientConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filepath, err)
	}

	return &config, nil
}

// LoadConfigFromEnv reads a ClientConfig from FIDELIS_* environment variables, e.g. FIDELIS_HOST,
// FIDELIS_USERNAME, FIDELIS_PASSWORD, FIDELIS_MAX_RETRY_ATTEMPTS or FIDELIS_CUSTOM_TIMEOUT=30s.
// Unset variables leave the field at its zero value.
func LoadConfigFromEnv() (*ClientConfig, error) {
	env := envReader{}
	config := &ClientConfig{
		Host:                     env.String("HOST"),
		BaseURL:                  env.String("BASE_URL"),
		Username:                 env.String("USERNAME"),
		Password:                 env.String("PASSWORD"),
		InsecureSkipVerify:       env.Bool("INSECURE_SKIP_VERIFY"),
		LogLevel:                 env.String("LOG_LEVEL"),
		LogOutputFormat:          env.String("LOG_OUTPUT_FORMAT"),
		LogConsoleSeparator:      env.String("LOG_CONSOLE_SEPARATOR"),
		HideSensitiveData:        env.Bool("HIDE_SENSITIVE_DATA"),
		CookieJarEnabled:         env.Bool("COOKIE_JAR_ENABLED"),
		MaxRetryAttempts:         env.Int("MAX_RETRY_ATTEMPTS"),
		MaxConcurrentRequests:    env.Int("MAX_CONCURRENT_REQUESTS"),
		CustomTimeout:            env.Duration("CUSTOM_TIMEOUT"),
		TokenRefreshWindow:       env.Duration("TOKEN_REFRESH_WINDOW"),
		TokenRefreshBufferPeriod: env.Duration("TOKEN_REFRESH_BUFFER_PERIOD"),
		TotalRetryDuration:       env.Duration("TOTAL_RETRY_DURATION"),
		FollowRedirects:          env.Bool("FOLLOW_REDIRECTS"),
		MaxRedirects:             env.Int("MAX_REDIRECTS"),
		RedirectSensitiveHeaders: env.List("REDIRECT_SENSITIVE_HEADERS"),
		CustomCookies:            env.Cookies("CUSTOM_COOKIES"),
		ProxyURL:                 env.String("PROXY_URL"),
		ProxyUsername:            env.String("PROXY_USERNAME"),
		ProxyPassword:            env.String("PROXY_PASSWORD"),
	}
	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	return config, nil
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	errs []error
}

func (e *envReader) String(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func (e *envReader) Bool(key string) bool {
	raw := e.String(key)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
	}
	return v
}

func (e *envReader) Int(key string) int {
	raw := e.String(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
	}
	return v
}

// List splits a comma-separated value, dropping empty entries.
func (e *envReader) List(key string) []string {
	raw := e.String(key)
	if raw == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Cookies parses a Cookie header style value, e.g. "lb-node=node-2; region=eu".
func (e *envReader) Cookies(key string) map[string]string {
	raw := e.String(key)
	if raw == "" {
		return nil
	}
	parsed, err := http.ParseCookie(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return nil
	}
	cookies := make(map[string]string, len(parsed))
	for _, c := range parsed {
		cookies[c.Name] = c.Value
	}
	return cookies
}

func (e *envReader) Duration(key string) time.Duration {
	raw := e.String(key)
	if raw == "" {
		return 0
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
	}
	return v
}

// SetDefaultValuesClientConfig fills zero-valued fields with the package defaults.
// Booleans keep their zero value, so redirects, the cookie jar and TLS skipping stay opt-in.
func SetDefaultValuesClientConfig(config *ClientConfig) {
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevelString
	}

	if config.LogOutputFormat == "" {
		config.LogOutputFormat = DefaultLogOutputFormatString
	}

	if config.LogConsoleSeparator == "" {
		config.LogConsoleSeparator = DefaultLogConsoleSeparator
	}

	if config.MaxRetryAttempts == 0 {
		config.MaxRetryAttempts = DefaultMaxRetryAttempts
	}

	if config.MaxConcurrentRequests == 0 {
		config.MaxConcurrentRequests = DefaultMaxConcurrentRequests
	}

	if config.CustomTimeout == 0 {
		config.CustomTimeout = DefaultCustomTimeout
	}

	if config.TokenRefreshWindow == 0 {
		config.TokenRefreshWindow = DefaultTokenRefreshWindow
	}

	if config.TotalRetryDuration == 0 {
		config.TotalRetryDuration = DefaultTotalRetryDuration
	}

	if config.MaxRedirects == 0 {
		config.MaxRedirects = DefaultMaxRedirects
	}
}

func validateClientConfig(config ClientConfig) error {
	if config.Host == "" && config.BaseURL == "" {
		return errors.New("either host or base_url is required")
	}
	if _, err := url.Parse(config.baseURL()); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if config.Username == "" || config.Password == "" {
		return errors.New("username and password are required")
	}

	if !slices.Contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if !slices.Contains(validLogFormats, config.LogOutputFormat) {
		return fmt.Errorf("invalid log output format: %s", config.LogOutputFormat)
	}

	if config.MaxRetryAttempts < 0 {
		return errors.New("max retry attempts cannot be less than 0")
	}

	if config.MaxConcurrentRequests < concurrency.MinConcurrency || config.MaxConcurrentRequests > concurrency.MaxConcurrency {
		return fmt.Errorf("max concurrent requests must be between %d and %d", concurrency.MinConcurrency, concurrency.MaxConcurrency)
	}

	if config.CustomTimeout < 0 {
		return errors.New("timeout cannot be less than 0 seconds")
	}

	if config.TokenRefreshWindow < 0 {
		return errors.New("token refresh window cannot be less than 0 seconds")
	}

	if config.TokenRefreshBufferPeriod < 0 {
		return errors.New("token refresh buffer period cannot be less than 0 seconds")
	}

	window := config.TokenRefreshWindow
	if window == 0 {
		window = DefaultTokenRefreshWindow
	}
	if config.TokenRefreshBufferPeriod >= window {
		return fmt.Errorf("token refresh buffer period %s must be shorter than the refresh window %s", config.TokenRefreshBufferPeriod, window)
	}

	if config.TotalRetryDuration < 0 {
		return errors.New("total retry duration cannot be less than 0 seconds")
	}

	if config.FollowRedirects && config.MaxRedirects < 1 {
		return errors.New("max redirects cannot be less than 1")
	}

	for name := range config.CustomCookies {
		if strings.TrimSpace(name) == "" {
			return errors.New("custom cookie names cannot be empty")
		}
	}

	for _, header := range config.RedirectSensitiveHeaders {
		if strings.TrimSpace(header) == "" {
			return errors.New("redirect sensitive headers cannot be empty")
		}
	}

	if config.ProxyURL != "" {
		if _, err := url.Parse(config.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
	}

	return nil
}

// baseURL returns BaseURL with a trailing slash, or the standard API root on Host.
func (c ClientConfig) baseURL() string {
	if c.BaseURL != "" {
		if strings.HasSuffix(c.BaseURL, "/") {
			return c.BaseURL
		}
		return c.BaseURL + "/"
	}
	return "https://" + strings.TrimSuffix(c.Host, "/") + apiPath
}
