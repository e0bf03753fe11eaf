// httpclient/client.go
/* The `httpclient` package provides a configurable HTTP client for the Fidelis Endpoint REST API.
It authenticates with username and password, keeps the bearer token fresh through the credentials
package, bounds concurrent requests, retries transient failures with backoff, and turns error
responses into typed errors. */
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/concurrency"
	"github.com/deploymenttheory/go-api-sdk-fidelis/cookiejar"
	"github.com/deploymenttheory/go-api-sdk-fidelis/credentials"
	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"github.com/deploymenttheory/go-api-sdk-fidelis/proxy"
	"github.com/deploymenttheory/go-api-sdk-fidelis/redirecthandler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/deploymenttheory/go-api-sdk-fidelis/httpclient"

// Client is an authenticated API client. It is safe for concurrent use.
type Client struct {
	config     ClientConfig
	http       *http.Client
	credential *credentials.Credential
	tracer     trace.Tracer

	Logger      logger.Logger
	Concurrency *concurrency.ConcurrencyHandler
}

// ClientConfig holds every setting for BuildClient. Field names in files and the environment
// follow the yaml tags.
type ClientConfig struct {
	// Appliance
	Host               string `yaml:"host"`     // e.g. fidelis.example.com; the API root becomes https://{host}/endpoint/api/
	BaseURL            string `yaml:"base_url"` // overrides Host
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`

	// Log
	LogLevel            string `yaml:"log_level"`
	LogOutputFormat     string `yaml:"log_output_format"` // "json" or "pretty"
	LogConsoleSeparator string `yaml:"log_console_separator"`
	HideSensitiveData   bool   `yaml:"hide_sensitive_data"`

	// Cookies
	CookieJarEnabled bool              `yaml:"cookie_jar_enabled"`
	CustomCookies    map[string]string `yaml:"custom_cookies"` // added to every API request

	// Misc
	MaxRetryAttempts         int           `yaml:"max_retry_attempts"`
	MaxConcurrentRequests    int           `yaml:"max_concurrent_requests"`
	CustomTimeout            time.Duration `yaml:"custom_timeout"`
	TokenRefreshWindow       time.Duration `yaml:"token_refresh_window"`
	TokenRefreshBufferPeriod time.Duration `yaml:"token_refresh_buffer_period"`
	TotalRetryDuration       time.Duration `yaml:"total_retry_duration"`
	FollowRedirects          bool          `yaml:"follow_redirects"`
	MaxRedirects             int           `yaml:"max_redirects"`
	RedirectSensitiveHeaders []string      `yaml:"redirect_sensitive_headers"` // stripped on cross-host redirects, beyond the defaults

	// Proxy
	ProxyURL      string `yaml:"proxy_url"`
	ProxyUsername string `yaml:"proxy_username"`
	ProxyPassword string `yaml:"proxy_password"`

	// HTTPTransport replaces the transport BuildClient would assemble. TLS and proxy settings are
	// not applied to it.
	HTTPTransport http.RoundTripper `yaml:"-"`
	// TracerProvider receives request and authentication spans. The global provider is used otherwise.
	TracerProvider trace.TracerProvider `yaml:"-"`
}

// BuildClient creates a new HTTP client with the provided configuration and authenticates eagerly.
func BuildClient(config ClientConfig, populateDefaultValues bool) (*Client, error) {
	if populateDefaultValues {
		SetDefaultValuesClientConfig(&config)
	}

	if err := validateClientConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	//region Logging

	parsedLogLevel := logger.ParseLogLevelFromString(config.LogLevel)
	log := logger.BuildLogger(parsedLogLevel, config.LogOutputFormat, config.LogConsoleSeparator)

	tracerProvider := config.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}

	//endregion

	//region Transport

	baseTransport, err := buildTransport(config, log)
	if err != nil {
		return nil, err
	}

	//endregion

	//region Credentials

	credential, err := credentials.New(credentials.Config{
		Username:            config.Username,
		Password:            config.Password,
		BaseURL:             config.baseURL(),
		InsecureSkipVerify:  config.InsecureSkipVerify,
		RefreshWindow:       config.TokenRefreshWindow,
		RefreshBufferPeriod: config.TokenRefreshBufferPeriod,
		HideSensitiveData:   config.HideSensitiveData,
	},
		credentials.WithHTTPClient(&http.Client{Transport: baseTransport, Timeout: config.CustomTimeout}),
		credentials.WithLogger(log),
		credentials.WithTracerProvider(tracerProvider),
	)
	if err != nil {
		log.Error("Failed to authenticate", zap.Error(err))
		return nil, err
	}

	//endregion

	//region HTTP

	httpClient := &http.Client{
		Transport: &credentials.Transport{Credential: credential, Base: baseTransport},
		Timeout:   config.CustomTimeout,
	}

	if err := cookiejar.SetupCookieJar(httpClient, config.CookieJarEnabled, log); err != nil {
		return nil, err
	}

	if err := redirecthandler.SetupRedirectHandler(httpClient, config.FollowRedirects, config.MaxRedirects, log, config.RedirectSensitiveHeaders...); err != nil {
		log.Error("Failed to set up redirect handler", zap.Error(err))
		return nil, err
	}

	//endregion

	//region Concurrency

	concurrencyHandler := concurrency.NewConcurrencyHandler(
		config.MaxConcurrentRequests,
		log,
		&concurrency.ConcurrencyMetrics{},
	)

	//endregion

	client := &Client{
		config:      config,
		http:        httpClient,
		credential:  credential,
		tracer:      tracerProvider.Tracer(tracerName),
		Logger:      log,
		Concurrency: concurrencyHandler,
	}

	log.Debug("New API client initialized",
		zap.String("Base URL", config.baseURL()),
		zap.String("Username", config.Username),
		zap.String("Logging Level", config.LogLevel),
		zap.String("Log Encoding Format", config.LogOutputFormat),
		zap.Bool("Hide Sensitive Data In Logs", config.HideSensitiveData),
		zap.Bool("Insecure Skip Verify", config.InsecureSkipVerify),
		zap.Bool("Cookie Jar Enabled", config.CookieJarEnabled),
		zap.Int("Custom Cookies", len(config.CustomCookies)),
		zap.Int("Max Retry Attempts", config.MaxRetryAttempts),
		zap.Int("Max Concurrent Requests", config.MaxConcurrentRequests),
		zap.Bool("Follow Redirects", config.FollowRedirects),
		zap.Int("Max Redirects", config.MaxRedirects),
		zap.Duration("Token Refresh Window", credential.RefreshWindow()),
		zap.Duration("Token Refresh Buffer Period", config.TokenRefreshBufferPeriod),
		zap.Duration("Total Retry Duration", config.TotalRetryDuration),
		zap.Duration("Custom Timeout", config.CustomTimeout),
	)

	return client, nil
}

// buildTransport assembles the transport shared by API and authentication requests.
func buildTransport(config ClientConfig, log logger.Logger) (http.RoundTripper, error) {
	if config.HTTPTransport != nil {
		return config.HTTPTransport, nil
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if defaultTransport, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = defaultTransport.Clone()
	}
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: config.InsecureSkipVerify, // #nosec G402
	}
	if config.InsecureSkipVerify {
		log.Warn("TLS certificate verification is disabled")
	}

	if err := proxy.ConfigureProxy(transport, config.ProxyURL, config.ProxyUsername, config.ProxyPassword, log); err != nil {
		return nil, err
	}

	return transport, nil
}

// Credential returns the session's credential manager.
func (c *Client) Credential() *credentials.Credential {
	return c.credential
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.credential.BaseURL()
}

// Metrics returns a snapshot of the request counters.
func (c *Client) Metrics() concurrency.MetricsSnapshot {
	return c.Concurrency.Metrics.Snapshot()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
