// credentials/transport.go
package credentials

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/deploymenttheory/go-api-sdk-fidelis/headers"
	"go.uber.org/zap"
)

// BearerPrefix precedes the token in the Authorization header. The appliance expects it lower-case.
const BearerPrefix = "bearer "

// Decorate ensures the token is fresh and sets the Authorization header on req.
func (c *Credential) Decorate(req *http.Request) (*http.Request, error) {
	if err := c.Refresh(); err != nil {
		return nil, err
	}

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set(headers.Authorization, BearerPrefix+c.Token())

	return req, nil
}

// TokenFromRequest returns the bearer token carried by a decorated request, or "".
func TokenFromRequest(req *http.Request) string {
	if req == nil {
		return ""
	}
	value := req.Header.Get(headers.Authorization)
	if len(value) < len(BearerPrefix) || !strings.EqualFold(value[:len(BearerPrefix)], BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(value[len(BearerPrefix):])
}

// Transport is an http.RoundTripper that decorates requests bound for the credential's host
// and captures tokens the server pushes back in the Fidelis-Endpoint-Token header.
// Requests to any other host are forwarded untouched.
type Transport struct {
	Credential *Credential
	// Base is the underlying transport. http.DefaultTransport is used when nil.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Context().Value(authRequestKey{}) != nil || !t.Credential.sameHost(req.URL) {
		return t.base().RoundTrip(req)
	}

	// RoundTrip must not modify the caller's request.
	decorated := req.Clone(req.Context())
	if _, err := t.Credential.Decorate(decorated); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	resp, err := t.base().RoundTrip(decorated)
	if err != nil {
		return nil, err
	}

	if pushed := resp.Header.Get(headers.EndpointToken); pushed != "" {
		t.Credential.UpdateToken(pushed)
	}

	return resp, nil
}

// CloseIdleConnections forwards to the base transport when it supports it.
func (t *Transport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if ci, ok := t.base().(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// sameHost reports whether u points at the host of the current base URL.
func (c *Credential) sameHost(u *url.URL) bool {
	if u == nil {
		return false
	}
	base, err := url.Parse(c.BaseURL())
	if err != nil {
		c.log.Warn("Unparsable base URL, request left undecorated", zap.Error(err))
		return false
	}
	return strings.EqualFold(canonicalHost(base), canonicalHost(u))
}

// canonicalHost returns host:port with the scheme's default port filled in.
func canonicalHost(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return u.Hostname() + ":" + port
}
