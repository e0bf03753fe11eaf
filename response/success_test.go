package response

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/deploymenttheory/go-api-sdk-fidelis/mocklogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		Total int `json:"total"`
	} `json:"data"`
}

func TestHandleAPISuccessResponse_JSON(t *testing.T) {
	log := mocklogger.NewMockLogger().IgnoreAll()
	resp := newResponse("200 OK", http.StatusOK, "application/json; charset=utf-8", `{"success":true,"data":{"total":3}}`)

	var out envelope
	require.NoError(t, HandleAPISuccessResponse(resp, &out, log))
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Data.Total)
}

func TestHandleAPISuccessResponse_MissingContentTypeIsJSON(t *testing.T) {
	log := mocklogger.NewMockLogger().IgnoreAll()
	resp := newResponse("200 OK", http.StatusOK, "", `{"success":true,"data":{"total":1}}`)

	var out envelope
	require.NoError(t, HandleAPISuccessResponse(resp, &out, log))
	assert.Equal(t, 1, out.Data.Total)
}

func TestHandleAPISuccessResponse_NoBody(t *testing.T) {
	log := mocklogger.NewMockLogger().IgnoreAll()

	var out envelope
	require.NoError(t, HandleAPISuccessResponse(newResponse("204 No Content", http.StatusNoContent, "", ""), &out, log))
	require.NoError(t, HandleAPISuccessResponse(newResponse("200 OK", http.StatusOK, "application/json", "  "), &out, log))
	require.NoError(t, HandleAPISuccessResponse(newResponse("200 OK", http.StatusOK, "application/json", `{"x":1}`), nil, log))
	assert.False(t, out.Success)
}

func TestHandleAPISuccessResponse_BadJSON(t *testing.T) {
	log := mocklogger.NewMockLogger().IgnoreAll()
	var out envelope
	err := HandleAPISuccessResponse(newResponse("200 OK", http.StatusOK, "application/json", `{"success":`), &out, log)
	assert.ErrorContains(t, err, "decoding JSON response")
}

func TestHandleAPISuccessResponse_Binary(t *testing.T) {
	log := mocklogger.NewMockLogger().IgnoreAll()

	resp := newResponse("200 OK", http.StatusOK, "application/octet-stream", "PK\x03\x04")
	resp.Header.Set("Content-Disposition", `attachment; filename="alerts.zip"`)
	var data []byte
	require.NoError(t, HandleAPISuccessResponse(resp, &data, log))
	assert.Equal(t, []byte("PK\x03\x04"), data)

	var buf bytes.Buffer
	resp = newResponse("200 OK", http.StatusOK, "application/octet-stream", "raw")
	require.NoError(t, HandleAPISuccessResponse(resp, &buf, log))
	assert.Equal(t, "raw", buf.String())

	var wrong envelope
	resp = newResponse("200 OK", http.StatusOK, "application/octet-stream", "raw")
	assert.Error(t, HandleAPISuccessResponse(resp, &wrong, log))
}

func TestHandleAPISuccessResponse_WriterTakesRawBody(t *testing.T) {
	log := mocklogger.NewMockLogger().IgnoreAll()

	var buf bytes.Buffer
	resp := newResponse("200 OK", http.StatusOK, "application/json", `{"success":true}`)
	require.NoError(t, HandleAPISuccessResponse(resp, &buf, log))
	assert.Equal(t, `{"success":true}`, buf.String())

	buf.Reset()
	resp = newResponse("200 OK", http.StatusOK, "text/csv", "a,b")
	require.NoError(t, HandleAPISuccessResponse(resp, &buf, log))
	assert.Equal(t, "a,b", buf.String())
}

func TestHandleAPISuccessResponse_UnexpectedMIME(t *testing.T) {
	log := mocklogger.NewMockLogger().IgnoreAll()
	var out envelope
	err := HandleAPISuccessResponse(newResponse("200 OK", http.StatusOK, "text/csv", "a,b"), &out, log)
	assert.ErrorContains(t, err, "unexpected MIME type: text/csv")
}

func TestParseContentTypeHeader(t *testing.T) {
	tests := []struct {
		header     string
		wantType   string
		wantParams map[string]string
	}{
		{"application/json; charset=UTF-8", "application/json", map[string]string{"charset": "UTF-8"}},
		{"Application/JSON", "application/json", map[string]string{}},
		{"", "", map[string]string{}},
		{"text/html; =broken", "text/html", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			gotType, gotParams := ParseContentTypeHeader(tt.header)
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantParams, gotParams)
		})
	}

	_, params := ParseContentDisposition(`attachment; filename="report.csv"`)
	assert.Equal(t, "report.csv", params["filename"])
}
