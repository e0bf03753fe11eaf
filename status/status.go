// status.go
// This package provides utility functions for categorizing HTTP status codes returned by the appliance.
package status

import (
	"fmt"
	"net/http"
)

// IsRedirectStatusCode checks if the provided HTTP status code is one of the redirect codes.
func IsRedirectStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// IsPermanentRedirect checks if the provided HTTP status code is one of the permanent redirect codes.
func IsPermanentRedirect(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// IsSuccess reports whether the status code is in the 2xx range.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

var nonRetryableStatusCodes = map[int]bool{
	http.StatusBadRequest:                   true,
	http.StatusUnauthorized:                 true,
	http.StatusPaymentRequired:              true,
	http.StatusForbidden:                    true,
	http.StatusNotFound:                     true,
	http.StatusMethodNotAllowed:             true,
	http.StatusNotAcceptable:                true,
	http.StatusProxyAuthRequired:            true,
	http.StatusConflict:                     true,
	http.StatusGone:                         true,
	http.StatusLengthRequired:               true,
	http.StatusPreconditionFailed:           true,
	http.StatusRequestEntityTooLarge:        true,
	http.StatusRequestURITooLong:            true,
	http.StatusUnsupportedMediaType:         true,
	http.StatusRequestedRangeNotSatisfiable: true,
	http.StatusExpectationFailed:            true,
	http.StatusUnprocessableEntity:          true,
	http.StatusLocked:                       true,
	http.StatusFailedDependency:             true,
	http.StatusUpgradeRequired:              true,
	http.StatusPreconditionRequired:         true,
	http.StatusRequestHeaderFieldsTooLarge:  true,
	http.StatusUnavailableForLegalReasons:   true,
}

// IsNonRetryableStatusCode checks if the provided status code indicates a client error that will not
// succeed on a plain resend. Token errors (400) are in this set; they are handled by forcing a
// credential refresh, not by the transient retry loop.
func IsNonRetryableStatusCode(statusCode int) bool {
	return nonRetryableStatusCodes[statusCode]
}

// IsTransientError checks if the status code indicates a transient server-side error.
func IsTransientError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsRateLimitError checks if the status code indicates the client is being throttled.
func IsRateLimitError(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests
}

// IsRetryableStatusCode checks if the provided HTTP status code is considered retryable.
func IsRetryableStatusCode(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout || IsRateLimitError(statusCode) || IsTransientError(statusCode)
}

var statusMessages = map[int]string{
	http.StatusOK:                  "Request successful.",
	http.StatusCreated:             "Request to create or update resource successful.",
	http.StatusAccepted:            "The request was accepted for processing, but the processing has not completed.",
	http.StatusNoContent:           "Request successful. No content to send for this request.",
	http.StatusBadRequest:          "Bad request. Verify the syntax of the request, or the authentication token has expired or is invalid.",
	http.StatusUnauthorized:        "Authentication failed. Verify the credentials being used for the request.",
	http.StatusForbidden:           "Not authorized. The account lacks permission for the requested resource.",
	http.StatusNotFound:            "Resource not found. Verify the URL path is correct.",
	http.StatusMethodNotAllowed:    "Method not allowed for the requested resource.",
	http.StatusConflict:            "Conflict. The request conflicts with the current state of the resource.",
	http.StatusTooManyRequests:     "Too many requests. The client is being rate limited.",
	http.StatusInternalServerError: "Internal server error. The appliance encountered an unexpected condition.",
	http.StatusBadGateway:          "Bad gateway. An upstream server returned an invalid response.",
	http.StatusServiceUnavailable:  "Service unavailable. The appliance is overloaded or down for maintenance.",
	http.StatusGatewayTimeout:      "Gateway timeout. An upstream server did not respond in time.",
}

// TranslateStatusCode provides a human-readable message for HTTP status codes.
func TranslateStatusCode(resp *http.Response) string {
	if resp == nil {
		return "No status code received, possible network or connection error."
	}
	if message, ok := statusMessages[resp.StatusCode]; ok {
		return message
	}
	return fmt.Sprintf("Unknown status code: %d", resp.StatusCode)
}
