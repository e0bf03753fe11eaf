package httpclient

import (
	"bytes"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoDownloadRequest(t *testing.T) {
	f := newFakeAppliance(t, false)
	f.handle("alerts/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.csv"`)
		_, _ = w.Write([]byte("id,name\n1,beacon\n"))
	})
	client := newTestClient(t, f)

	var buf bytes.Buffer
	resp, err := client.DoDownloadRequest(t.Context(), http.MethodGet, "alerts/export", &buf)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "id,name\n1,beacon\n", buf.String())
}

func TestDoDownloadRequest_ExpiredTokenWritesOnce(t *testing.T) {
	f := newFakeAppliance(t, false)
	var calls atomic.Int32
	f.handle("alerts/export", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusBadRequest, `{"success":false,"error":"Authentication token has expired."}`)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("payload"))
	})
	client := newTestClient(t, f)

	var buf bytes.Buffer
	_, err := client.DoDownloadRequest(t.Context(), http.MethodGet, "alerts/export", &buf)

	require.NoError(t, err)
	assert.Equal(t, "payload", buf.String())
	assert.Equal(t, []string{"bearer tok-1", "bearer tok-2"}, f.seenAuth())
}

func TestDoDownloadRequest_NilWriter(t *testing.T) {
	f := newFakeAppliance(t, false)
	client := newTestClient(t, f)

	_, err := client.DoDownloadRequest(t.Context(), http.MethodGet, "alerts/export", nil)
	assert.Error(t, err)
}
