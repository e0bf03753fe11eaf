// response/error.go
// This package turns appliance responses into Go values: decoded bodies for successes and
// classified *APIError values for failures.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"golang.org/x/net/html"
)

// Error kinds. An *APIError unwraps to exactly one of these, so callers branch with errors.Is.
var (
	// ErrTokenExpired means the appliance rejected the bearer token because it expired.
	ErrTokenExpired = errors.New("authentication token has expired")
	// ErrTokenInvalid means the appliance rejected the bearer token as invalid.
	ErrTokenInvalid = errors.New("authentication token is invalid")
	// ErrNotAuthorized means the credentials are valid but lack permission (HTTP 403).
	ErrNotAuthorized = errors.New("not authorized")
	// ErrGenericHTTP covers every other non-2xx response.
	ErrGenericHTTP = errors.New("http error")
)

// Reason phrases the appliance sends with HTTP 400 for token problems.
const (
	ReasonTokenExpired = "Authentication token has expired."
	ReasonTokenInvalid = "Authentication token is invalid."
)

// APIError represents an api error response.
type APIError struct {
	StatusCode  int      `json:"status_code"`
	Method      string   `json:"method"`
	URL         string   `json:"url"`
	Reason      string   `json:"reason,omitempty"` // reason phrase from the status line
	Message     string   `json:"message"`
	Details     []string `json:"details,omitempty"`
	RawResponse string   `json:"raw_response"`
	Kind        error    `json:"-"`
}

// Error returns a string representation of the APIError, making it compatible with the error interface.
func (e *APIError) Error() string {
	message := e.Message
	if message == "" {
		message = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("fidelis api error: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, message)
}

// Unwrap exposes the error kind to errors.Is.
func (e *APIError) Unwrap() error {
	return e.Kind
}

// IsTokenError reports whether err was caused by an expired or invalid bearer token, the two
// cases where forcing a credential refresh and resending the request can succeed.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenInvalid)
}

// HandleAPIErrorResponse reads and parses a non-2xx response into a classified *APIError and logs it.
// The body is consumed; the caller still closes it.
func HandleAPIErrorResponse(resp *http.Response, log logger.Logger) *APIError {
	apiError := &APIError{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
	}
	if resp.Request != nil {
		apiError.Method = resp.Request.Method
		if resp.Request.URL != nil {
			apiError.URL = resp.Request.URL.String()
		}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		apiError.RawResponse = "Failed to read response body"
	} else {
		mimeType, _ := ParseContentTypeHeader(resp.Header.Get("Content-Type"))
		switch mimeType {
		case "application/json", "text/json":
			parseJSONResponse(bodyBytes, apiError)
		case "application/xml", "text/xml":
			parseXMLResponse(bodyBytes, apiError)
		case "text/html":
			parseHTMLResponse(bodyBytes, apiError)
		default:
			parseTextResponse(bodyBytes, apiError)
		}
	}

	apiError.Kind = classify(apiError)
	log.LogError("api_error_response", apiError.Method, apiError.URL, apiError.StatusCode, resp.Status, apiError.Kind, apiError.RawResponse)

	return apiError
}

// classify maps status code plus reason text onto an error kind.
func classify(apiError *APIError) error {
	switch apiError.StatusCode {
	case http.StatusBadRequest:
		switch {
		case matchesReason(apiError, ReasonTokenExpired):
			return ErrTokenExpired
		case matchesReason(apiError, ReasonTokenInvalid):
			return ErrTokenInvalid
		}
		return ErrGenericHTTP
	case http.StatusForbidden:
		return ErrNotAuthorized
	default:
		return ErrGenericHTTP
	}
}

// matchesReason checks the status line first, then falls back to the body message for proxies
// and servers that rewrite reason phrases.
func matchesReason(apiError *APIError, reason string) bool {
	if strings.EqualFold(apiError.Reason, reason) {
		return true
	}
	needle := strings.ToLower(strings.TrimSuffix(reason, "."))
	return apiError.Message != "" && strings.Contains(strings.ToLower(apiError.Message), needle)
}

// reasonPhrase strips the numeric code from resp.Status ("400 Authentication token has expired.").
func reasonPhrase(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// parseJSONResponse understands both the vendor envelope ({"success":false,"error":"..."}) and
// the generic {"message": "...", "details": [...]} shape.
func parseJSONResponse(bodyBytes []byte, apiError *APIError) {
	apiError.RawResponse = string(bodyBytes)

	var body struct {
		Message string          `json:"message"`
		Details []string        `json:"details"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		apiError.Message = strings.TrimSpace(string(bodyBytes))
		return
	}

	apiError.Message = body.Message
	apiError.Details = body.Details

	if apiError.Message == "" && len(body.Error) > 0 {
		var text string
		var nested struct {
			Message string `json:"message"`
		}
		switch {
		case json.Unmarshal(body.Error, &text) == nil:
			apiError.Message = text
		case json.Unmarshal(body.Error, &nested) == nil:
			apiError.Message = nested.Message
		}
	}

	if apiError.Message == "" {
		apiError.Message = "An unknown error occurred"
	}
}

// parseXMLResponse dynamically parses XML error responses and accumulates potential error messages.
func parseXMLResponse(bodyBytes []byte, apiError *APIError) {
	apiError.RawResponse = string(bodyBytes)

	doc, err := xmlquery.Parse(bytes.NewReader(bodyBytes))
	if err != nil {
		apiError.Message = "Failed to parse XML error response"
		return
	}

	var messages []string
	var traverse func(*xmlquery.Node)
	traverse = func(n *xmlquery.Node) {
		if n.Type == xmlquery.TextNode && strings.TrimSpace(n.Data) != "" {
			messages = append(messages, strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	if len(messages) > 0 {
		apiError.Message = strings.Join(messages, "; ")
	} else {
		apiError.Message = "Failed to extract error details from XML response"
	}
}

// parseHTMLResponse collects the text of <title> and <p> elements, which is where reverse proxies
// in front of the appliance put their error descriptions.
func parseHTMLResponse(bodyBytes []byte, apiError *APIError) {
	apiError.RawResponse = string(bodyBytes)

	doc, err := html.Parse(bytes.NewReader(bodyBytes))
	if err != nil {
		apiError.Message = "Failed to parse HTML error response"
		return
	}

	var messages []string
	var text func(*html.Node, *strings.Builder)
	text = func(n *html.Node, sb *strings.Builder) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			text(c, sb)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "title" || n.Data == "p" || n.Data == "h1") {
			var sb strings.Builder
			text(n, &sb)
			if sb.Len() > 0 {
				messages = append(messages, sb.String())
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(messages) > 0 {
		apiError.Message = strings.Join(messages, "; ")
	} else {
		apiError.Message = "HTML Error: See 'raw_response' for details."
	}
}

// parseTextResponse uses the trimmed body as the message.
func parseTextResponse(bodyBytes []byte, apiError *APIError) {
	apiError.RawResponse = string(bodyBytes)
	apiError.Message = strings.TrimSpace(string(bodyBytes))
}
