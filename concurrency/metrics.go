// concurrency/metrics.go
package concurrency

import (
	"net/http"
	"sync"
	"time"
)

// ConcurrencyMetrics captures counters for the client's interactions with the API.
type ConcurrencyMetrics struct {
	mu sync.Mutex

	totalRequests        int64
	totalRetries         int64
	totalRateLimitErrors int64
	totalTokenRefreshes  int64
	totalErrors          int64
	permitWaitTime       time.Duration
	responseTime         time.Duration
	responses            int64
}

// MetricsSnapshot is a point-in-time copy of ConcurrencyMetrics.
type MetricsSnapshot struct {
	TotalRequests        int64
	TotalRetries         int64
	TotalRateLimitErrors int64
	TotalTokenRefreshes  int64
	TotalErrors          int64
	PermitWaitTime       time.Duration
	AverageResponseTime  time.Duration
	ErrorRate            float64
}

func (m *ConcurrencyMetrics) recordAcquisition(waited time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	m.permitWaitTime += waited
}

// RecordRetry counts one resend of a request.
func (m *ConcurrencyMetrics) RecordRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRetries++
}

// RecordTokenRefresh counts one reactive token refresh.
func (m *ConcurrencyMetrics) RecordTokenRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalTokenRefreshes++
}

// RecordResponse records the outcome and latency of one HTTP exchange.
func (m *ConcurrencyMetrics) RecordResponse(statusCode int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses++
	m.responseTime += elapsed

	switch {
	case statusCode == http.StatusTooManyRequests:
		m.totalRateLimitErrors++
		m.totalErrors++
	case statusCode >= 400:
		m.totalErrors++
	}
}

// Snapshot returns a copy of the current counters.
func (m *ConcurrencyMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSnapshot{
		TotalRequests:        m.totalRequests,
		TotalRetries:         m.totalRetries,
		TotalRateLimitErrors: m.totalRateLimitErrors,
		TotalTokenRefreshes:  m.totalTokenRefreshes,
		TotalErrors:          m.totalErrors,
		PermitWaitTime:       m.permitWaitTime,
	}
	if m.responses > 0 {
		s.AverageResponseTime = m.responseTime / time.Duration(m.responses)
		s.ErrorRate = float64(m.totalErrors) / float64(m.responses)
	}
	return s
}
