// credentials/refresh.go
package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/headers"
	"github.com/deploymenttheory/go-api-sdk-fidelis/status"
	"github.com/deploymenttheory/go-api-sdk-fidelis/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// authenticatePath is appended to the base URL for token requests.
const authenticatePath = "authenticate"

// maxAuthResponseBytes caps how much of an authentication response is read.
const maxAuthResponseBytes = 1 << 20

// authRequestKey marks authentication requests so Transport never decorates them.
type authRequestKey struct{}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenResponse accepts the token at the top level or inside the {"data": {...}} envelope.
type tokenResponse struct {
	Token string          `json:"token"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (r tokenResponse) token() string {
	if r.Token != "" {
		return r.Token
	}
	var data struct {
		Token string `json:"token"`
	}
	if len(r.Data) > 0 && json.Unmarshal(r.Data, &data) == nil {
		return data.Token
	}
	return ""
}

// IsRefreshNeeded reports whether no token has been obtained yet or less than the given
// duration remains before the current one expires. A zero duration means "already expired".
func (c *Credential) IsRefreshNeeded(within time.Duration) bool {
	c.mu.RLock()
	token, expiresAt := c.token, c.expiresAt
	c.mu.RUnlock()

	return token == "" || expiresAt.Sub(c.now()) < within
}

// Refresh authenticates if the token is missing or inside the refresh buffer period.
// Callers holding a valid token return without locking. Concurrent callers that find the
// token stale wait for a single authentication and reuse its result.
func (c *Credential) Refresh() error {
	if !c.IsRefreshNeeded(c.refreshBufferPeriod) {
		return nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if !c.IsRefreshNeeded(c.refreshBufferPeriod) {
		c.log.Debug("Token refreshed by a concurrent caller")
		return nil
	}

	return c.authenticate(context.Background())
}

// ForceRefresh authenticates regardless of the tracked expiry. staleToken is the token the
// server rejected; if another caller already replaced it with a live token, no request is made.
// An empty staleToken always authenticates.
func (c *Credential) ForceRefresh(staleToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if staleToken != "" {
		c.mu.RLock()
		current, expiresAt := c.token, c.expiresAt
		c.mu.RUnlock()

		if current != "" && current != staleToken && !expiresAt.Before(c.now()) {
			c.log.Debug("Rejected token already replaced by a concurrent caller")
			return nil
		}
	}

	return c.authenticate(context.Background())
}

// UpdateToken stores a token pushed by the server and restarts the refresh window.
// Empty values are ignored.
func (c *Credential) UpdateToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}

	expiresAt := c.store(token)

	c.log.Debug("Token updated from response header",
		zap.String("Token", headers.RedactSensitiveHeaderData(c.hideSensitiveData, "Token", token)),
		zap.Time("Expiry", expiresAt),
	)
}

// store writes the token and its expiry together.
func (c *Credential) store(token string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = c.now().Add(c.refreshWindow)
	return c.expiresAt
}

// authenticate performs the network round trip. The caller holds refreshMu.
func (c *Credential) authenticate(ctx context.Context) error {
	authURL := strings.TrimSuffix(c.BaseURL(), "/") + "/" + authenticatePath

	ctx, span := c.tracer.Start(ctx, "fidelis.authenticate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodPost),
			attribute.String("http.url", authURL),
			attribute.String("fidelis.username", c.username),
		),
	)
	defer span.End()

	c.log.Debug("Attempting to obtain token for user", zap.String("Username", c.username), zap.String("URL", authURL))

	token, statusCode, err := c.requestToken(ctx, authURL)
	if statusCode != 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
	if err != nil {
		authErr := &AuthenticationError{URL: authURL, StatusCode: statusCode, Err: err}
		span.RecordError(authErr)
		span.SetStatus(codes.Error, authErr.Error())
		c.log.LogAuthTokenError("token_authentication_failed", http.MethodPost, authURL, statusCode, err)
		return authErr
	}

	expiresAt := c.store(token)
	span.SetStatus(codes.Ok, "")

	c.log.Info("Token obtained successfully",
		zap.String("Token", headers.RedactSensitiveHeaderData(c.hideSensitiveData, "Token", token)),
		zap.Time("Expiry", expiresAt),
		zap.Duration("Duration", c.refreshWindow),
	)

	return nil
}

// requestToken posts the credentials and extracts the token from the response.
func (c *Credential) requestToken(ctx context.Context, authURL string) (string, int, error) {
	payload, err := json.Marshal(authRequest{Username: c.username, Password: c.password})
	if err != nil {
		return "", 0, fmt.Errorf("encoding authentication request: %w", err)
	}

	ctx = context.WithValue(ctx, authRequestKey{}, true)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("building authentication request: %w", err)
	}
	headers.SetContentType(req, "application/json")
	headers.SetAccept(req, headers.AcceptJSON)
	headers.SetUserAgent(req, version.GetUserAgentHeader())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("sending authentication request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading authentication response: %w", err)
	}

	if !status.IsSuccess(resp.StatusCode) {
		return "", resp.StatusCode, fmt.Errorf("unexpected response %q: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", resp.StatusCode, fmt.Errorf("decoding authentication response: %w", err)
	}

	token := tr.token()
	if token == "" {
		if tr.Error != "" {
			return "", resp.StatusCode, fmt.Errorf("authentication rejected: %s", tr.Error)
		}
		return "", resp.StatusCode, errors.New("authentication response carried no token")
	}

	return token, resp.StatusCode, nil
}
