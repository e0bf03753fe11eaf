// httpclient/request.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/cookiejar"
	"github.com/deploymenttheory/go-api-sdk-fidelis/credentials"
	"github.com/deploymenttheory/go-api-sdk-fidelis/headers"
	"github.com/deploymenttheory/go-api-sdk-fidelis/ratehandler"
	"github.com/deploymenttheory/go-api-sdk-fidelis/response"
	"github.com/deploymenttheory/go-api-sdk-fidelis/status"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DoRequest sends method to endpoint, a path relative to the base URL that may carry a query string.
// body is marshaled as JSON when non-nil; a successful JSON response is decoded into out, which may be nil.
//
// Idempotent methods (GET, PUT, DELETE) are retried on transient and rate-limit responses with backoff,
// up to MaxRetryAttempts and within TotalRetryDuration. Non-idempotent methods (POST, PATCH) are sent once.
// Whatever the method, a response rejecting the bearer token as expired or invalid forces one credential
// refresh and one resend. Error responses are returned as *response.APIError.
//
// The returned response's body has already been read and closed.
//
// Example:
//
//	var result AlertPage
//	resp, err := client.DoRequest(ctx, http.MethodGet, "alerts/getalertsV2?take=50", nil, &result)
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, body, out any) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case IsIdempotentHTTPMethod(method):
		return c.executeRequest(ctx, method, endpoint, body, out, true)
	case IsNonIdempotentHTTPMethod(method):
		return c.executeRequest(ctx, method, endpoint, body, out, false)
	default:
		return nil, c.Logger.Error("HTTP method not supported", zap.String("method", method))
	}
}

// executeRequest runs the send/classify loop. retryTransient enables backoff retries for
// 408, 429 and 5xx responses.
func (c *Client) executeRequest(ctx context.Context, method, endpoint string, body, out any, retryTransient bool) (*http.Response, error) {
	log := c.Logger

	payload, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	log.Debug("Executing request", zap.String("method", method), zap.String("endpoint", endpoint), zap.Bool("retries", retryTransient))

	totalRetryDeadline := time.Now().Add(c.config.TotalRetryDuration)
	retryCount := 0
	tokenRetried := false

	for {
		resp, err := c.doRequest(ctx, method, endpoint, payload)
		if err != nil {
			return nil, err
		}

		if status.IsSuccess(resp.StatusCode) {
			err := response.HandleAPISuccessResponse(resp, out, log)
			resp.Body.Close()
			return resp, err
		}

		if status.IsRedirectStatusCode(resp.StatusCode) {
			log.Warn("Redirect response received", zap.Int("status_code", resp.StatusCode), zap.String("location", resp.Header.Get("Location")))
		}

		apiErr := response.HandleAPIErrorResponse(resp, log)
		resp.Body.Close()

		if response.IsTokenError(apiErr) && !tokenRetried {
			tokenRetried = true
			if err := c.refreshRejectedToken(resp, apiErr); err != nil {
				return resp, err
			}
			c.Concurrency.Metrics.RecordRetry()
			continue
		}

		if status.IsNonRetryableStatusCode(resp.StatusCode) {
			log.Debug("Client error is not retried", zap.Int("status_code", resp.StatusCode), zap.String("endpoint", endpoint))
			return resp, apiErr
		}

		if !retryTransient || !status.IsRetryableStatusCode(resp.StatusCode) {
			return resp, apiErr
		}

		retryCount++
		if retryCount > c.config.MaxRetryAttempts {
			log.Warn("Max retry attempts reached", zap.String("method", method), zap.String("endpoint", endpoint), zap.Int("status_code", resp.StatusCode))
			return resp, apiErr
		}

		waitDuration := time.Duration(0)
		if status.IsRateLimitError(resp.StatusCode) {
			waitDuration = ratehandler.ParseRateLimitHeaders(resp, log)
			if waitDuration > 0 {
				log.LogRateLimiting("rate_limited", method, endpoint, resp.Header.Get("Retry-After"), waitDuration)
			}
		}
		if waitDuration == 0 {
			waitDuration = ratehandler.CalculateBackoff(retryCount - 1)
		}

		if time.Now().Add(waitDuration).After(totalRetryDeadline) {
			log.Warn("Total retry duration exceeded", zap.String("method", method), zap.String("endpoint", endpoint), zap.Duration("totalRetryDuration", c.config.TotalRetryDuration))
			return resp, apiErr
		}

		log.LogRetryAttempt("retry_attempt", method, endpoint, retryCount, status.TranslateStatusCode(resp), waitDuration, apiErr)
		c.Concurrency.Metrics.RecordRetry()

		if err := sleepContext(ctx, waitDuration); err != nil {
			return resp, err
		}
	}
}

// refreshRejectedToken forces a refresh for the token the server just rejected.
func (c *Client) refreshRejectedToken(resp *http.Response, apiErr *response.APIError) error {
	c.Logger.LogAuthTokenError("token_rejected", apiErr.Method, apiErr.URL, apiErr.StatusCode, apiErr)
	c.Concurrency.Metrics.RecordTokenRefresh()

	if err := c.credential.ForceRefresh(credentials.TokenFromRequest(resp.Request)); err != nil {
		return fmt.Errorf("refreshing rejected token: %w", err)
	}
	return nil
}

// doRequest sends a single attempt under a concurrency permit and a trace span.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	log := c.Logger

	ctx, requestID, err := c.Concurrency.AcquireConcurrencyPermit(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring concurrency permit: %w", err)
	}
	defer c.Concurrency.ReleaseConcurrencyPermit(requestID)

	fullURL, err := c.resolveURL(endpoint)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "fidelis.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", fullURL),
			attribute.String("fidelis.request_id", requestID.String()),
		),
	)
	defer span.End()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("building request: %w", err)
	}

	headers.SetStandardHeaders(req)
	cookiejar.ApplyCustomCookies(req, c.config.CustomCookies, log)
	headers.LogHeaders(req, log, c.config.HideSensitiveData)

	startTime := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(startTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Failed to send request", zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	c.Concurrency.Metrics.RecordResponse(resp.StatusCode, elapsed)
	headers.CheckDeprecationHeader(resp, log)
	cookiejar.LogResponseCookies(resp, log, c.config.HideSensitiveData)
	log.LogRequestEnd("request_end", method, fullURL, resp.StatusCode, elapsed)

	return resp, nil
}

// resolveURL resolves endpoint against the current base URL.
func (c *Client) resolveURL(endpoint string) (string, error) {
	base, err := url.Parse(c.credential.BaseURL())
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func marshalBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		return payload, nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
