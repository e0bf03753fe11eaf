// credentials/credentials.go
/* Package credentials manages the bearer token lifecycle for a Fidelis Endpoint session: it obtains a token
with username and password, tracks its expiry, refreshes it proactively or on demand, and attaches it to
outgoing requests. A single Credential is safe for concurrent use and performs at most one authentication
round trip at a time. */
package credentials

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultRefreshWindow is the assumed token lifetime after a successful authentication.
	DefaultRefreshWindow = 600 * time.Second

	// defaultAuthTimeout bounds the authentication call when no HTTP client is supplied.
	defaultAuthTimeout = 30 * time.Second

	tracerName = "github.com/deploymenttheory/go-api-sdk-fidelis/credentials"
)

// Config holds the settings for a Credential.
type Config struct {
	Username string
	Password string
	// BaseURL is the API root, e.g. https://fidelis.example.com/endpoint/api/.
	BaseURL string
	// InsecureSkipVerify disables TLS certificate checks on the default authentication client.
	InsecureSkipVerify bool
	// InitialToken seeds the credential. It is treated as already expired.
	InitialToken string
	// RefreshWindow is the assumed token lifetime. Zero selects DefaultRefreshWindow.
	RefreshWindow time.Duration
	// RefreshBufferPeriod refreshes the token this long before it expires. Zero refreshes only once expired.
	RefreshBufferPeriod time.Duration
	// HideSensitiveData redacts tokens in log output.
	HideSensitiveData bool
}

// Credential is one authenticated session against the appliance.
type Credential struct {
	username string
	password string

	refreshWindow       time.Duration
	refreshBufferPeriod time.Duration
	insecureTransport   bool
	hideSensitiveData   bool

	// mu guards baseURL, token and expiresAt.
	mu        sync.RWMutex
	baseURL   string
	token     string
	expiresAt time.Time

	// refreshMu serializes network authentication.
	refreshMu sync.Mutex

	httpClient *http.Client
	log        logger.Logger
	now        func() time.Time
	tracer     trace.Tracer
}

// Option customizes a Credential.
type Option func(*Credential)

// WithHTTPClient sets the client used for the authentication call. It must not route through
// a Transport built on the same Credential.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Credential) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Credential) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock replaces time.Now for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(c *Credential) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTracerProvider sets the provider for authentication spans. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Credential) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// New validates cfg, builds a Credential and authenticates eagerly. A failed authentication
// is returned as an *AuthenticationError.
func New(cfg Config, opts ...Option) (*Credential, error) {
	c, err := newCredential(cfg, opts...)
	if err != nil {
		return nil, err
	}

	if err := c.Refresh(); err != nil {
		return nil, err
	}

	return c, nil
}

// newCredential builds a Credential without contacting the appliance.
func newCredential(cfg Config, opts ...Option) (*Credential, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	c := &Credential{
		username:            cfg.Username,
		password:            cfg.Password,
		baseURL:             cfg.BaseURL,
		refreshWindow:       cfg.RefreshWindow,
		refreshBufferPeriod: cfg.RefreshBufferPeriod,
		insecureTransport:   cfg.InsecureSkipVerify,
		hideSensitiveData:   cfg.HideSensitiveData,
		log:                 logger.NewNopLogger(),
		now:                 time.Now,
		tracer:              otel.GetTracerProvider().Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient(c.insecureTransport)
	}

	// A seeded token carries no expiry, so it is never trusted without a refresh.
	c.token = cfg.InitialToken
	c.expiresAt = time.Time{}

	return c, nil
}

func defaultHTTPClient(insecure bool) *http.Client {
	transport := cloneDefaultTransport()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure, // #nosec G402
	}
	return &http.Client{Transport: transport, Timeout: defaultAuthTimeout}
}

// Token returns the current bearer token, which may be empty or stale.
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ExpiresAt returns the locally tracked expiry of the current token.
func (c *Credential) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

// BaseURL returns the API root used for authentication.
func (c *Credential) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points subsequent authentications at a new API root. The current token is kept.
func (c *Credential) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = baseURL
}

// Username returns the account name.
func (c *Credential) Username() string {
	return c.username
}

// RefreshWindow returns the assumed token lifetime.
func (c *Credential) RefreshWindow() time.Duration {
	return c.refreshWindow
}

// String omits the password and token.
func (c *Credential) String() string {
	return fmt.Sprintf("Credential{username: %q, baseURL: %q}", c.username, c.BaseURL())
}

// GoString omits the password and token.
func (c *Credential) GoString() string {
	return c.String()
}

// cloneDefaultTransport copies http.DefaultTransport, or starts from a bare proxy-aware
// transport when an application has replaced it with another RoundTripper.
func cloneDefaultTransport() *http.Transport {
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		return t.Clone()
	}
	return &http.Transport{Proxy: http.ProxyFromEnvironment}
}
