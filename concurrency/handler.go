// concurrency/handler.go
package concurrency

import (
	"context"
	"sync"
	"time"

	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"github.com/google/uuid"
)

// ConcurrencyHandler controls the number of concurrent HTTP requests.
type ConcurrencyHandler struct {
	sem              chan struct{}
	logger           logger.Logger
	acquisitionTimes []time.Duration
	Metrics          *ConcurrencyMetrics
	lock             sync.Mutex
}

// NewConcurrencyHandler initializes a ConcurrencyHandler that admits at most limit requests at once.
// The limit is clamped to [MinConcurrency, MaxConcurrency]. A nil metrics value gets a fresh collector.
func NewConcurrencyHandler(limit int, log logger.Logger, metrics *ConcurrencyMetrics) *ConcurrencyHandler {
	if limit < MinConcurrency {
		limit = MinConcurrency
	}
	if limit > MaxConcurrency {
		limit = MaxConcurrency
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if metrics == nil {
		metrics = &ConcurrencyMetrics{}
	}
	return &ConcurrencyHandler{
		sem:     make(chan struct{}, limit),
		logger:  log,
		Metrics: metrics,
	}
}

// Capacity returns the permit limit.
func (ch *ConcurrencyHandler) Capacity() int {
	return cap(ch.sem)
}

// InUse returns the number of permits currently held.
func (ch *ConcurrencyHandler) InUse() int {
	return len(ch.sem)
}

// AverageAcquisitionTime returns the mean time requests waited for a permit.
func (ch *ConcurrencyHandler) AverageAcquisitionTime() time.Duration {
	ch.lock.Lock()
	defer ch.lock.Unlock()

	if len(ch.acquisitionTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ch.acquisitionTimes {
		total += d
	}
	return total / time.Duration(len(ch.acquisitionTimes))
}

// RequestIDKey is the context key under which AcquireConcurrencyPermit stores the request's UUID.
type RequestIDKey struct{}

// RequestIDFromContext returns the request ID stored by AcquireConcurrencyPermit.
func RequestIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(RequestIDKey{}).(uuid.UUID)
	return id, ok
}
