// httpclient/ping.go
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DoPing checks that the appliance answers an authenticated GET on endpoint with 200 OK.
// Transient failures are retried like any idempotent request. The returned duration covers
// every attempt.
//
// Example:
//
//	elapsed, err := client.DoPing(ctx, "alerts/getalertsV2?take=1")
func (c *Client) DoPing(ctx context.Context, endpoint string) (time.Duration, error) {
	log := c.Logger
	log.Debug("Starting HTTP ping", zap.String("endpoint", endpoint))

	start := time.Now()
	resp, err := c.DoRequest(ctx, http.MethodGet, endpoint, nil, nil)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("Ping failed", zap.String("endpoint", endpoint), zap.Duration("elapsed", elapsed), zap.Error(err))
		return elapsed, fmt.Errorf("ping %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("Ping answered without 200 OK", zap.String("endpoint", endpoint), zap.Int("status_code", resp.StatusCode))
		return elapsed, fmt.Errorf("ping %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	log.Info("Ping successful", zap.String("endpoint", endpoint), zap.Duration("elapsed", elapsed))
	return elapsed, nil
}
