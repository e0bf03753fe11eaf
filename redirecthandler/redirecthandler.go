// redirecthandler/redirecthandler.go
package redirecthandler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/deploymenttheory/go-api-sdk-fidelis/headers"
	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"github.com/deploymenttheory/go-api-sdk-fidelis/status"
	"go.uber.org/zap"
)

// RedirectHandler contains configurations for handling HTTP redirects.
type RedirectHandler struct {
	Logger           logger.Logger
	MaxRedirects     int      // Maximum allowed redirects to prevent infinite loops.
	SensitiveHeaders []string // Headers removed when a redirect leaves the original host.
}

// NewRedirectHandler creates a new instance of RedirectHandler.
func NewRedirectHandler(log logger.Logger, maxRedirects int) *RedirectHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedirectHandler{
		Logger:           log,
		MaxRedirects:     maxRedirects,
		SensitiveHeaders: []string{headers.Authorization, headers.EndpointToken, "Cookie"},
	}
}

// AddSensitiveHeader allows adding configurable sensitive headers.
func (r *RedirectHandler) AddSensitiveHeader(header string) {
	r.SensitiveHeaders = append(r.SensitiveHeaders, header)
}

// WithRedirectHandling applies the redirect handling policy to an http.Client.
func (r *RedirectHandler) WithRedirectHandling(client *http.Client) {
	client.CheckRedirect = r.checkRedirect
}

// checkRedirect is the http.Client CheckRedirect hook. req is the next hop; via holds the
// requests made so far, oldest first.
func (r *RedirectHandler) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) == 0 {
		return nil
	}
	original := via[0]
	previous := via[len(via)-1]

	if original.Method == http.MethodPost || original.Method == http.MethodPatch {
		r.Logger.Warn("Redirect attempted on non-idempotent method, not following",
			zap.String("method", original.Method),
			zap.String("location", req.URL.String()),
		)
		return http.ErrUseLastResponse
	}

	if len(via) >= r.MaxRedirects {
		r.Logger.Warn("Maximum redirects reached", zap.Int("maxRedirects", r.MaxRedirects))
		return &MaxRedirectsError{MaxRedirects: r.MaxRedirects}
	}

	history := make([]*url.URL, 0, len(via)+1)
	for _, v := range via {
		history = append(history, v.URL)
	}
	history = append(history, req.URL)
	if hasLoop(history) {
		r.Logger.Error("Redirect loop detected", zap.String("url", req.URL.String()), zap.Int("redirectCount", len(via)))
		return &RedirectLoopError{URL: req.URL.String()}
	}

	if !sameHost(req.URL, original.URL) {
		r.Logger.Info("Redirect leaves the original host, removing sensitive headers",
			zap.String("fromHost", original.URL.Host),
			zap.String("toHost", req.URL.Host),
		)
		r.secureRequest(req)
	}

	if resp := previous.Response; resp != nil && resp.StatusCode == http.StatusSeeOther {
		r.adjustForSeeOther(req)
	}

	fields := []zap.Field{
		zap.String("originalURL", previous.URL.String()),
		zap.String("newURL", req.URL.String()),
		zap.Int("redirectCount", len(via)),
	}
	if resp := previous.Response; resp != nil && status.IsPermanentRedirect(resp.StatusCode) {
		fields = append(fields, zap.Bool("permanent", true))
	}
	r.Logger.Info("Redirecting request", fields...)

	return nil
}

// secureRequest removes sensitive headers from the request.
func (r *RedirectHandler) secureRequest(req *http.Request) {
	for _, header := range r.SensitiveHeaders {
		req.Header.Del(header)
	}
}

// adjustForSeeOther adjusts the request for "303 See Other" responses.
func (r *RedirectHandler) adjustForSeeOther(req *http.Request) {
	req.Method = http.MethodGet
	req.Body = nil
	req.GetBody = nil
	req.ContentLength = 0
	req.Header.Del("Content-Type")
}

// RedirectLoopError represents an error when a redirect loop is detected.
type RedirectLoopError struct {
	URL string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop detected at %s", e.URL)
}

// MaxRedirectsError represents an error when the maximum number of redirects is reached.
type MaxRedirectsError struct {
	MaxRedirects int
}

func (e *MaxRedirectsError) Error() string {
	return fmt.Sprintf("maximum redirects reached: %d", e.MaxRedirects)
}

// hasLoop checks if there's a loop in the redirect history.
func hasLoop(history []*url.URL) bool {
	seen := make(map[string]struct{}, len(history))
	for _, u := range history {
		key := u.String()
		if _, exists := seen[key]; exists {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

func sameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host) && a.Scheme == b.Scheme
}

// SetupRedirectHandler configures the HTTP client for redirect handling based on the client configuration.
// With followRedirects off, the client returns redirect responses to the caller unfollowed.
// sensitiveHeaders are stripped on cross-host hops in addition to the defaults.
func SetupRedirectHandler(client *http.Client, followRedirects bool, maxRedirects int, log logger.Logger, sensitiveHeaders ...string) error {
	if !followRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		return nil
	}

	if maxRedirects < 1 {
		return fmt.Errorf("invalid maxRedirects value: %d", maxRedirects)
	}

	redirectHandler := NewRedirectHandler(log, maxRedirects)
	for _, header := range sensitiveHeaders {
		redirectHandler.AddSensitiveHeader(header)
	}
	redirectHandler.WithRedirectHandling(client)
	redirectHandler.Logger.Info("Redirect handling enabled", zap.Int("MaxRedirects", maxRedirects))
	return nil
}
