// cookiejar/cookiejar.go

/* The cookiejar package manages session cookies for the HTTP client. Some appliances pin a session
to a load-balancer node with a cookie, so the jar is optional and off by default. Sensitive cookie
values are redacted before they reach the logs. */

package cookiejar

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"slices"

	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// sensitiveCookieNames are session cookies whose values are never logged in clear when
// sensitive data is hidden.
var sensitiveCookieNames = map[string]bool{
	"JSESSIONID":             true,
	"SessionID":              true,
	"ASP.NET_SessionId":      true,
	"Fidelis-Endpoint-Token": true,
}

// SetupCookieJar initializes the HTTP client with a cookie jar if enabled in the configuration.
// The jar uses the public suffix list so cookies never leak across registrable domains.
func SetupCookieJar(client *http.Client, enableCookieJar bool, log logger.Logger) error {
	if !enableCookieJar {
		return nil
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		log.Error("Failed to create cookie jar", zap.Error(err))
		return fmt.Errorf("setupCookieJar failed: %w", err)
	}
	client.Jar = jar
	log.Debug("Cookie jar enabled")
	return nil
}

// RedactSensitiveCookies returns copies of cookies with sensitive values replaced by REDACTED.
// The input is not modified.
func RedactSensitiveCookies(cookies []*http.Cookie) []*http.Cookie {
	redacted := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		c := *cookie
		if sensitiveCookieNames[c.Name] {
			c.Value = "REDACTED"
		}
		redacted = append(redacted, &c)
	}
	return redacted
}

// ApplyCustomCookies adds the configured cookies to req. Only cookie names are logged.
func ApplyCustomCookies(req *http.Request, cookies map[string]string, log logger.Logger) {
	if len(cookies) == 0 {
		return
	}

	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: cookies[name]})
	}
	log.Debug("Applying custom cookies", zap.Strings("Cookies", names))
}

// LogResponseCookies logs the cookies set by resp at debug level.
func LogResponseCookies(resp *http.Response, log logger.Logger, hideSensitiveData bool) {
	if log.GetLogLevel() > logger.LogLevelDebug {
		return
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return
	}
	if hideSensitiveData {
		cookies = RedactSensitiveCookies(cookies)
	}

	fields := make([]zap.Field, 0, len(cookies))
	for _, c := range cookies {
		fields = append(fields, zap.String(c.Name, c.Value))
	}
	log.Debug("Response cookies", fields...)
}
