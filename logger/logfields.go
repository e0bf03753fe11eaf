// logfields.go
package logger

import (
	"time"

	"go.uber.org/zap"
)

// LogError logs a failed HTTP exchange with the event name, request coordinates and the server's status line.
func (d *defaultLogger) LogError(event string, method string, url string, statusCode int, serverStatusMessage string, err error, rawResponse string) {
	if d.logLevel > LogLevelError {
		return
	}
	fields := []zap.Field{
		zap.String("event", event),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", statusCode),
		zap.String("status_message", serverStatusMessage),
		zap.String("raw_response", rawResponse),
	}
	if err != nil {
		fields = append(fields, zap.String("error_message", err.Error()))
	}
	d.logger.Error("Error during HTTP request", fields...)
}

// LogAuthTokenError logs a failure to obtain or refresh the bearer token.
func (d *defaultLogger) LogAuthTokenError(event string, method string, url string, statusCode int, err error) {
	if d.logLevel > LogLevelError {
		return
	}
	fields := []zap.Field{
		zap.String("event", event),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", statusCode),
	}
	if err != nil {
		fields = append(fields, zap.String("error_message", err.Error()))
	}
	d.logger.Error("Error during authentication token acquisition", fields...)
}

// LogRetryAttempt logs a retry of an HTTP request.
func (d *defaultLogger) LogRetryAttempt(event string, method string, url string, attempt int, reason string, waitDuration time.Duration, err error) {
	if d.logLevel > LogLevelWarn {
		return
	}
	fields := []zap.Field{
		zap.String("event", event),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("attempt", attempt),
		zap.String("reason", reason),
		zap.Duration("wait_duration", waitDuration),
	}
	if err != nil {
		fields = append(fields, zap.String("error_message", err.Error()))
	}
	d.logger.Warn("HTTP request retry", fields...)
}

// LogRateLimiting logs when an HTTP request is rate-limited by the server.
func (d *defaultLogger) LogRateLimiting(event string, method string, url string, retryAfter string, waitDuration time.Duration) {
	if d.logLevel > LogLevelWarn {
		return
	}
	d.logger.Warn("HTTP request rate-limited",
		zap.String("event", event),
		zap.String("method", method),
		zap.String("url", url),
		zap.String("retry_after", retryAfter),
		zap.Duration("wait_duration", waitDuration),
	)
}

// LogRequestEnd logs the completion of an HTTP request.
func (d *defaultLogger) LogRequestEnd(event string, method string, url string, statusCode int, duration time.Duration) {
	if d.logLevel > LogLevelDebug {
		return
	}
	d.logger.Debug("HTTP request completed",
		zap.String("event", event),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", duration),
	)
}
