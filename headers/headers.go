// headers/headers.go
package headers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"github.com/deploymenttheory/go-api-sdk-fidelis/version"
	"go.uber.org/zap"
)

const (
	// Authorization carries "bearer <token>" on every authenticated request.
	Authorization = "Authorization"
	// EndpointToken is the response header the appliance uses to push a rotated token.
	EndpointToken = "Fidelis-Endpoint-Token"

	ContentTypeJSON = "application/json;charset=UTF-8"
	AcceptJSON      = "application/json"
)

// sensitiveKeys are redacted from logs when HideSensitiveData is enabled.
var sensitiveKeys = map[string]bool{
	"AccessToken":            true,
	"Authorization":          true,
	"Cookie":                 true,
	"Fidelis-Endpoint-Token": true,
	"Token":                  true,
}

// SetContentType sets the Content-Type header for the request.
func SetContentType(req *http.Request, contentType string) {
	req.Header.Set("Content-Type", contentType)
}

// SetAccept sets the Accept header for the request.
func SetAccept(req *http.Request, acceptHeader string) {
	req.Header.Set("Accept", acceptHeader)
}

// SetUserAgent sets the User-Agent header for the request.
func SetUserAgent(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
}

// SetStandardHeaders applies the JSON content negotiation headers and the SDK user agent.
// Content-Type is only set when the request carries a body.
func SetStandardHeaders(req *http.Request) {
	if req.Body != nil && req.Body != http.NoBody {
		SetContentType(req, ContentTypeJSON)
	}
	SetAccept(req, AcceptJSON)
	SetUserAgent(req, version.GetUserAgentHeader())
}

// RedactSensitiveHeaderData redacts sensitive data based on the hideSensitiveData flag.
func RedactSensitiveHeaderData(hideSensitiveData bool, key, value string) string {
	if hideSensitiveData && sensitiveKeys[key] {
		return "REDACTED"
	}
	return value
}

// HeadersToString converts a http.Header to a string for logging, one header per line in
// name order.
func HeadersToString(headers http.Header) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(headers[name], ", ")))
	}
	return strings.Join(lines, "\n")
}

// LogHeaders logs the request headers at debug level, redacting sensitive values when asked.
func LogHeaders(req *http.Request, log logger.Logger, hideSensitiveData bool) {
	if log.GetLogLevel() > logger.LogLevelDebug {
		return
	}

	redacted := http.Header{}
	for name, values := range req.Header {
		for _, value := range values {
			redacted.Add(name, RedactSensitiveHeaderData(hideSensitiveData, name, value))
		}
	}

	log.Debug("HTTP Request Headers", zap.String("Headers", HeadersToString(redacted)))
}

// CheckDeprecationHeader checks the response headers for the Deprecation header and logs a warning if present.
func CheckDeprecationHeader(resp *http.Response, log logger.Logger) {
	deprecationHeader := resp.Header.Get("Deprecation")
	if deprecationHeader == "" {
		return
	}

	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.URL.String()
	}
	log.Warn("API endpoint is deprecated",
		zap.String("Date", deprecationHeader),
		zap.String("Endpoint", endpoint),
	)
}
