// httpclient/download.go
package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// DoDownloadRequest writes the body of a successful response to out, whatever its content type.
// Authentication, the token retry and transient-failure retries behave as in DoRequest. Nothing is
// written to out unless a response succeeds.
//
// Example:
//
//	f, _ := os.Create("alerts.csv")
//	defer f.Close()
//	_, err := client.DoDownloadRequest(ctx, http.MethodGet, "alerts/export?format=csv", f)
func (c *Client) DoDownloadRequest(ctx context.Context, method, endpoint string, out io.Writer) (*http.Response, error) {
	if out == nil {
		return nil, errors.New("download requires a writer")
	}

	resp, err := c.DoRequest(ctx, method, endpoint, nil, out)
	if err != nil {
		c.Logger.Error("Download failed", zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		return resp, err
	}

	c.Logger.Debug("Download complete", zap.String("endpoint", endpoint), zap.String("content type", resp.Header.Get("Content-Type")))
	return resp, nil
}
