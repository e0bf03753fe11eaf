// endpoint/client.go
/* Package endpoint wraps the Fidelis Endpoint REST API: alerts and alert rules. Every call goes
through an httpclient.Client, which owns authentication, token refresh, retries and logging. */
package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/httpclient"
	"go.uber.org/zap"
)

// ErrUnsuccessful is matched by every *ResponseError.
var ErrUnsuccessful = errors.New("fidelis api reported failure")

// ResponseError is returned when the appliance answers 2xx but the envelope says success=false.
type ResponseError struct {
	Method   string
	Endpoint string
	Message  string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", ErrUnsuccessful, e.Method, e.Endpoint, e.Message)
}

// Is reports whether target is ErrUnsuccessful.
func (e *ResponseError) Is(target error) bool {
	return target == ErrUnsuccessful
}

// envelope is the wrapper every API response uses: {"success":bool,"data":T,"error":string|null}.
type envelope[T any] struct {
	Success *bool           `json:"success"`
	Data    T               `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (e *envelope[T]) err(method, endpoint string) error {
	if e.Success == nil || *e.Success {
		return nil
	}

	message := "no error message returned"
	if len(e.Error) > 0 && string(e.Error) != "null" {
		var text string
		if json.Unmarshal(e.Error, &text) == nil {
			message = text
		} else {
			message = string(e.Error)
		}
	}
	return &ResponseError{Method: method, Endpoint: endpoint, Message: message}
}

// Client is a Fidelis Endpoint API client. It is safe for concurrent use.
type Client struct {
	http *httpclient.Client
}

// NewClient builds an authenticated client from config, filling unset fields with defaults.
// It fails if the appliance rejects the credentials.
//
// Example:
//
//	client, err := endpoint.NewClient(httpclient.ClientConfig{
//	    Host:     "fidelis.example.com",
//	    Username: "analyst",
//	    Password: os.Getenv("FIDELIS_PASSWORD"),
//	})
func NewClient(config httpclient.ClientConfig) (*Client, error) {
	httpClient, err := httpclient.BuildClient(config, true)
	if err != nil {
		return nil, err
	}
	return &Client{http: httpClient}, nil
}

// NewClientFromHTTPClient wraps an existing httpclient.Client.
func NewClientFromHTTPClient(httpClient *httpclient.Client) *Client {
	return &Client{http: httpClient}
}

// HTTPClient returns the underlying transport client.
func (c *Client) HTTPClient() *httpclient.Client {
	return c.http
}

// SetHost points the client at another appliance. The current token is kept; a rejected token
// is refreshed against the new host on the next request.
func (c *Client) SetHost(host string) {
	c.http.Credential().SetBaseURL("https://" + strings.TrimSuffix(host, "/") + APIPath)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// Get calls an API path that has no typed wrapper. params become the query string and the
// envelope's data is decoded into out, which may be nil.
func (c *Client) Get(ctx context.Context, api string, params map[string]any, out any) error {
	data, err := do[json.RawMessage](ctx, c, http.MethodGet, api, params, nil)
	if err != nil {
		return err
	}
	return decodeData(data, out)
}

// Post calls an API path that has no typed wrapper. Nil params are dropped before the rest are
// sent as the JSON body, and the envelope's data is decoded into out, which may be nil.
func (c *Client) Post(ctx context.Context, api string, params map[string]any, out any) error {
	data, err := do[json.RawMessage](ctx, c, http.MethodPost, api, nil, SanitizeParams(params))
	if err != nil {
		return err
	}
	return decodeData(data, out)
}

// Download streams the raw body of a GET on api to out, for exports that are not wrapped in
// the JSON envelope.
func (c *Client) Download(ctx context.Context, api string, params map[string]any, out io.Writer) error {
	endpoint, err := withQuery(api, params)
	if err != nil {
		return err
	}
	if _, err := c.http.DoDownloadRequest(ctx, http.MethodGet, endpoint, out); err != nil {
		return fmt.Errorf("failed to download %s: %w", api, err)
	}
	return nil
}

// Ping checks that the appliance is reachable and accepts the session token by requesting
// a single alert. It returns the time taken.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	return c.http.DoPing(ctx, uriAlertsList+"?take=1")
}

func decodeData(data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// do sends one request and unwraps the response envelope.
func do[T any](ctx context.Context, c *Client, method, api string, params map[string]any, body any) (T, error) {
	var zero T

	endpoint, err := withQuery(api, params)
	if err != nil {
		return zero, err
	}

	var env envelope[T]
	if _, err := c.http.DoRequest(ctx, method, endpoint, body, &env); err != nil {
		return zero, err
	}

	if err := env.err(method, api); err != nil {
		c.http.Logger.Warn("Appliance reported failure", zap.String("method", method), zap.String("endpoint", api), zap.Error(err))
		return zero, err
	}

	return env.Data, nil
}

// withQuery appends the encoded params to api.
func withQuery(api string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return api, nil
	}
	query, err := EncodeParams(params)
	if err != nil {
		return "", err
	}
	if query == "" {
		return api, nil
	}
	return api + "?" + query, nil
}
