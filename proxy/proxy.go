// proxy/proxy.go
package proxy

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"go.uber.org/zap"
)

// ConfigureProxy routes transport through proxyURL, adding basic proxy authentication when a
// username and password are given. An empty proxyURL leaves the transport unchanged.
func ConfigureProxy(transport *http.Transport, proxyURL, proxyUsername, proxyPassword string, log logger.Logger) error {
	if proxyURL == "" {
		return nil
	}
	if transport == nil {
		return errors.New("proxy requires an *http.Transport")
	}

	parsedProxyURL, err := url.Parse(proxyURL)
	if err != nil {
		log.Error("Failed to parse proxy URL", zap.Error(err))
		return fmt.Errorf("parsing proxy URL: %w", err)
	}
	if parsedProxyURL.Scheme == "" || parsedProxyURL.Host == "" {
		return fmt.Errorf("proxy URL %q must include a scheme and host", proxyURL)
	}

	if proxyUsername != "" && proxyPassword != "" {
		parsedProxyURL.User = url.UserPassword(proxyUsername, proxyPassword)
		credentials := base64.StdEncoding.EncodeToString([]byte(proxyUsername + ":" + proxyPassword))
		if transport.ProxyConnectHeader == nil {
			transport.ProxyConnectHeader = http.Header{}
		}
		transport.ProxyConnectHeader.Set("Proxy-Authorization", "Basic "+credentials)
	}

	transport.Proxy = http.ProxyURL(parsedProxyURL)

	log.Info("Proxy configured",
		zap.String("ProxyHost", parsedProxyURL.Host),
		zap.Bool("ProxyAuthentication", parsedProxyURL.User != nil),
	)
	return nil
}
