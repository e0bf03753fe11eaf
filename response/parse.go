// response/parse.go
package response

import (
	"mime"
	"strings"
)

// ParseContentTypeHeader parses the Content-Type header and returns the lower-cased MIME type and
// its parameters. Malformed parameters are dropped rather than failing the whole header.
func ParseContentTypeHeader(header string) (string, map[string]string) {
	return parseHeader(header)
}

// ParseContentDisposition parses the Content-Disposition header and returns the type and any parameters.
func ParseContentDisposition(header string) (string, map[string]string) {
	return parseHeader(header)
}

func parseHeader(header string) (string, map[string]string) {
	if strings.TrimSpace(header) == "" {
		return "", map[string]string{}
	}
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
		params = map[string]string{}
	}
	return mediaType, params
}
