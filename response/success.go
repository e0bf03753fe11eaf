// response/success.go
/* Responsible for handling successful API responses. It reads the response body, logs the raw response details,
and decodes it into the caller's value based on the content type. */
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/deploymenttheory/go-api-sdk-fidelis/logger"
	"go.uber.org/zap"
)

// contentHandler defines the signature for unmarshaling content from an io.Reader.
type contentHandler func(io.Reader, any, logger.Logger, string) error

// responseUnmarshallers maps MIME types to the corresponding contentHandler functions.
var responseUnmarshallers = map[string]contentHandler{
	"application/json": handlerUnmarshalJSON,
	"text/json":        handlerUnmarshalJSON,
}

// HandleAPISuccessResponse reads the response body and decodes it into out.
// A nil out, a 204, or an empty body all succeed without decoding. An io.Writer out
// receives the raw body whatever the content type.
func HandleAPISuccessResponse(resp *http.Response, out any, log logger.Logger) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return fmt.Errorf("reading response body: %w", err)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(bodyBytes)) == 0 {
		log.Debug("Response carries no body to decode", zap.Int("status_code", resp.StatusCode))
		return nil
	}

	bodyReader := bytes.NewReader(bodyBytes)
	contentType := resp.Header.Get("Content-Type")
	contentDisposition := resp.Header.Get("Content-Disposition")

	if w, ok := out.(io.Writer); ok {
		log.Debug("Streaming response body", zap.String("content type", contentType), zap.Int("bytes", len(bodyBytes)))
		return handleBinaryData(bodyReader, log, w, contentDisposition)
	}

	log.Debug("Raw HTTP Response", zap.String("Body", string(bodyBytes)))

	mimeType, _ := ParseContentTypeHeader(contentType)

	// The appliance occasionally omits Content-Type on JSON bodies.
	if mimeType == "" {
		mimeType = "application/json"
	}

	if handler, ok := responseUnmarshallers[mimeType]; ok {
		return handler(bodyReader, out, log, contentType)
	}

	if isBinaryData(mimeType, contentDisposition) {
		return handleBinaryData(bodyReader, log, out, contentDisposition)
	}

	errMsg := fmt.Sprintf("unexpected MIME type: %s", contentType)
	log.Error("Unmarshal error", zap.String("content type", contentType))
	return errors.New(errMsg)
}

// handlerUnmarshalJSON unmarshals JSON content from an io.Reader into the provided output structure.
func handlerUnmarshalJSON(reader io.Reader, out any, log logger.Logger, mimeType string) error {
	if err := json.NewDecoder(reader).Decode(out); err != nil {
		log.Error("JSON Unmarshal error", zap.Error(err))
		return fmt.Errorf("decoding JSON response: %w", err)
	}
	log.Debug("Successfully unmarshalled JSON response", zap.String("content type", mimeType))
	return nil
}

// isBinaryData checks if the MIME type or Content-Disposition indicates binary data.
func isBinaryData(mimeType, contentDisposition string) bool {
	return mimeType == "application/octet-stream" || strings.HasPrefix(contentDisposition, "attachment")
}

// handleBinaryData stores binary data in a *[]byte or streams it to an io.Writer.
func handleBinaryData(reader io.Reader, log logger.Logger, out any, contentDisposition string) error {
	switch out := out.(type) {
	case *[]byte:
		data, err := io.ReadAll(reader)
		if err != nil {
			log.Error("Failed to read binary data", zap.Error(err))
			return err
		}
		*out = data

	case io.Writer:
		if _, err := io.Copy(out, reader); err != nil {
			log.Error("Failed to stream binary data to io.Writer", zap.Error(err))
			return err
		}

	default:
		return errors.New("output parameter is not suitable for binary data (*[]byte or io.Writer)")
	}

	if contentDisposition != "" {
		_, params := ParseContentDisposition(contentDisposition)
		if filename, ok := params["filename"]; ok {
			log.Debug("Extracted filename from Content-Disposition", zap.String("filename", filename))
		}
	}

	return nil
}
