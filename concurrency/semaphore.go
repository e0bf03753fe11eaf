// concurrency/semaphore.go
/* Package concurrency bounds the number of requests in flight against the appliance with a
semaphore, tags each admitted request with a UUID, and collects request metrics. */
package concurrency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxTrackedAcquisitions caps the acquisition time history.
const maxTrackedAcquisitions = 1000

// AcquireConcurrencyPermit blocks until a permit is free, the context ends, or
// DefaultAcquisitionTimeout elapses. On success the returned context carries the request ID,
// and the caller must hand that ID to ReleaseConcurrencyPermit.
//
// Example:
//
//	ctx, requestID, err := ch.AcquireConcurrencyPermit(ctx)
//	if err != nil {
//	    return err
//	}
//	defer ch.ReleaseConcurrencyPermit(requestID)
func (ch *ConcurrencyHandler) AcquireConcurrencyPermit(ctx context.Context) (context.Context, uuid.UUID, error) {
	start := time.Now()
	requestID := uuid.New()

	if err := ctx.Err(); err != nil {
		return ctx, requestID, err
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, DefaultAcquisitionTimeout)
	defer cancel()

	select {
	case ch.sem <- struct{}{}:
		waited := time.Since(start)

		ch.lock.Lock()
		if len(ch.acquisitionTimes) >= maxTrackedAcquisitions {
			ch.acquisitionTimes = ch.acquisitionTimes[1:]
		}
		ch.acquisitionTimes = append(ch.acquisitionTimes, waited)
		ch.lock.Unlock()

		ch.Metrics.recordAcquisition(waited)

		utilized := len(ch.sem)
		ch.logger.Debug("Acquired concurrency permit",
			zap.String("RequestID", requestID.String()),
			zap.Duration("AcquisitionTime", waited),
			zap.Int("UtilizedPermits", utilized),
			zap.Int("AvailablePermits", cap(ch.sem)-utilized),
		)

		return context.WithValue(ctx, RequestIDKey{}, requestID), requestID, nil

	case <-ctxWithTimeout.Done():
		ch.logger.Warn("Failed to acquire concurrency permit",
			zap.String("RequestID", requestID.String()),
			zap.Error(ctxWithTimeout.Err()),
		)
		return ctx, requestID, ctxWithTimeout.Err()
	}
}

// ReleaseConcurrencyPermit returns a permit to the pool.
func (ch *ConcurrencyHandler) ReleaseConcurrencyPermit(requestID uuid.UUID) {
	<-ch.sem

	utilized := len(ch.sem)
	ch.logger.Debug("Released concurrency permit",
		zap.String("RequestID", requestID.String()),
		zap.Int("UtilizedPermits", utilized),
		zap.Int("AvailablePermits", cap(ch.sem)-utilized),
	)
}
