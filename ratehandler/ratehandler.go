// ratehandler/ratehandler.go
/* Package ratehandler computes how long the client waits before resending a request: exponential
backoff with jitter for transient failures, and the server's own hints when it rate limits us. */
package ratehandler

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"go.uber.org/zap"
)

const (
	baseDelay    = 100 * time.Millisecond
	maxDelay     = 5 * time.Second
	jitterFactor = 0.5

	// skewBuffer pads X-RateLimit-Reset against clock drift between client and appliance.
	skewBuffer = 5 * time.Second
)

// CalculateBackoff returns the wait before retry number retry (zero based): baseDelay doubled per
// retry, spread by +/- jitterFactor, and capped at maxDelay.
func CalculateBackoff(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	delay := float64(baseDelay) * math.Pow(2, float64(retry))
	jitter := (rand.Float64() - 0.5) * 2 * jitterFactor * delay
	delay += jitter
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	return time.Duration(delay)
}

// ParseRateLimitHeaders reads Retry-After (delay seconds or HTTP date) and, failing that,
// X-RateLimit-Remaining/X-RateLimit-Reset, returning how long to wait. Zero means no hint.
func ParseRateLimitHeaders(resp *http.Response, log logger.Logger) time.Duration {
	if resp == nil {
		return 0
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if date, err := http.ParseTime(retryAfter); err == nil {
			wait := time.Until(date)
			if wait < 0 {
				return 0
			}
			return wait
		}
		log.Warn("Unparsable Retry-After header", zap.String("Retry-After", retryAfter))
	}

	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
			epoch, err := strconv.ParseInt(reset, 10, 64)
			if err != nil {
				log.Warn("Unparsable X-RateLimit-Reset header", zap.String("X-RateLimit-Reset", reset))
				return 0
			}
			wait := time.Until(time.Unix(epoch, 0)) + skewBuffer
			if wait < 0 {
				return 0
			}
			return wait
		}
	}

	return 0
}
