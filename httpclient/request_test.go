package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/deploymenttheory/go-api-sdk-fidelis/headers"
	"github.com/deploymenttheory/go-api-sdk-fidelis/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type alertPage struct {
	Success bool `json:"success"`
	Data    struct {
		Total int `json:"total"`
	} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestDoRequest_GetDecodesResponse(t *testing.T) {
	f := newFakeAppliance(t, false)
	var query atomic.Value
	f.handle("alerts/getalertsV2", func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.RawQuery)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"total":7}}`)
	})
	client := newTestClient(t, f)

	var out alertPage
	resp, err := client.DoRequest(t.Context(), http.MethodGet, "/alerts/getalertsV2?skip=0&take=50", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.Equal(t, 7, out.Data.Total)
	assert.Equal(t, "skip=0&take=50", query.Load())
	assert.Equal(t, []string{"bearer tok-1"}, f.seenAuth())
}

func TestDoRequest_PostSendsJSONBody(t *testing.T) {
	f := newFakeAppliance(t, false)
	var got atomic.Value
	f.handle("alerts/UpdateAlertStatus", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, headers.ContentTypeJSON, r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		got.Store(string(body))
		writeJSON(w, http.StatusOK, `{"success":true,"data":true}`)
	})
	client := newTestClient(t, f)

	payload := map[string]any{"alertIds": []int{1, 2}, "status": "Closed"}
	_, err := client.DoRequest(t.Context(), http.MethodPost, "alerts/UpdateAlertStatus", payload, nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"alertIds":[1,2],"status":"Closed"}`, got.Load().(string))
}

func TestDoRequest_NoContent(t *testing.T) {
	f := newFakeAppliance(t, false)
	f.handle("alertrules/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, f)

	var out map[string]any
	resp, err := client.DoRequest(t.Context(), http.MethodDelete, "alertrules/9", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, out)
}

func TestDoRequest_ExpiredTokenRefreshedAndRetriedOnce(t *testing.T) {
	f := newFakeAppliance(t, false)
	var calls atomic.Int32
	f.handle("alerts/UpdateAlertStatus", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusBadRequest, `{"success":false,"error":"Authentication token has expired."}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":true}`)
	})
	client := newTestClient(t, f)

	// POST is not retried on transient errors, but a rejected token is resent once.
	_, err := client.DoRequest(t.Context(), http.MethodPost, "alerts/UpdateAlertStatus", map[string]any{"status": "Closed"}, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(2), f.authCalls.Load())
	assert.Equal(t, []string{"bearer tok-1", "bearer tok-2"}, f.seenAuth())

	metrics := client.Metrics()
	assert.Equal(t, int64(1), metrics.TotalTokenRefreshes)
	assert.Equal(t, int64(1), metrics.TotalRetries)
}

func TestDoRequest_InvalidTokenTwiceIsReturned(t *testing.T) {
	f := newFakeAppliance(t, false)
	var calls atomic.Int32
	f.handle("alerts/17", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"success":false,"error":"Authentication token is invalid."}`)
	})
	client := newTestClient(t, f)

	_, err := client.DoRequest(t.Context(), http.MethodGet, "alerts/17", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, response.ErrTokenInvalid)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(2), f.authCalls.Load())
}

func TestDoRequest_ForbiddenIsNotRetried(t *testing.T) {
	f := newFakeAppliance(t, false)
	var calls atomic.Int32
	f.handle("alertrules", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusForbidden, `{"success":false,"error":"User lacks permission"}`)
	})
	client := newTestClient(t, f)

	resp, err := client.DoRequest(t.Context(), http.MethodGet, "alertrules", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, response.ErrNotAuthorized)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), f.authCalls.Load())

	var apiErr *response.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "User lacks permission", apiErr.Message)
	assert.Equal(t, http.MethodGet, apiErr.Method)
}

func TestDoRequest_ClientErrorsAreNotRetried(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			f := newFakeAppliance(t, false)
			var calls atomic.Int32
			f.handle("alertrules/9", func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, code, `{"success":false,"error":"rejected"}`)
			})
			client := newTestClient(t, f)

			resp, err := client.DoRequest(t.Context(), http.MethodPut, "alertrules/9", map[string]any{"name": "x"}, nil)

			require.Error(t, err)
			assert.ErrorIs(t, err, response.ErrGenericHTTP)
			assert.Equal(t, code, resp.StatusCode)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestDoRequest_TransientErrors(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		failures  int32
		wantCalls int32
		wantErr   bool
	}{
		{name: "get recovers", method: http.MethodGet, failures: 1, wantCalls: 2},
		{name: "get exhausts retries", method: http.MethodGet, failures: 100, wantCalls: 3, wantErr: true},
		{name: "put recovers", method: http.MethodPut, failures: 2, wantCalls: 3},
		{name: "post is sent once", method: http.MethodPost, failures: 100, wantCalls: 1, wantErr: true},
		{name: "patch is sent once", method: http.MethodPatch, failures: 100, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAppliance(t, false)
			var calls atomic.Int32
			f.handle("alertrules/3", func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.failures {
					writeJSON(w, http.StatusServiceUnavailable, `{"message":"maintenance"}`)
					return
				}
				writeJSON(w, http.StatusOK, `{"success":true}`)
			})
			client := newTestClient(t, f)

			_, err := client.DoRequest(t.Context(), tt.method, "alertrules/3", nil, nil)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, response.ErrGenericHTTP)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestDoRequest_RateLimitedThenSucceeds(t *testing.T) {
	f := newFakeAppliance(t, false)
	var calls atomic.Int32
	f.handle("alerts/getalertsV2", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusTooManyRequests, `{"message":"slow down"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	client := newTestClient(t, f)

	_, err := client.DoRequest(t.Context(), http.MethodGet, "alerts/getalertsV2", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(1), client.Metrics().TotalRateLimitErrors)
}

func TestDoRequest_PushedTokenIsUsed(t *testing.T) {
	f := newFakeAppliance(t, false)
	f.handle("alerts/getalertsV2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headers.EndpointToken, "xyz")
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	client := newTestClient(t, f)

	for range 2 {
		_, err := client.DoRequest(t.Context(), http.MethodGet, "alerts/getalertsV2", nil, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"bearer tok-1", "bearer xyz"}, f.seenAuth())
	assert.Equal(t, int32(1), f.authCalls.Load())
	assert.Equal(t, "xyz", client.Credential().Token())
}

func TestDoRequest_UnsupportedMethod(t *testing.T) {
	f := newFakeAppliance(t, false)
	client := newTestClient(t, f)

	resp, err := client.DoRequest(t.Context(), http.MethodConnect, "alerts", nil, nil)

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "HTTP method not supported")
}

func TestDoRequest_CancelledContext(t *testing.T) {
	f := newFakeAppliance(t, false)
	var calls atomic.Int32
	f.handle("alerts", func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	client := newTestClient(t, f)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := client.DoRequest(ctx, http.MethodGet, "alerts", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestDoRequest_UnmarshalableBody(t *testing.T) {
	f := newFakeAppliance(t, false)
	client := newTestClient(t, f)

	_, err := client.DoRequest(t.Context(), http.MethodPost, "alertrules", map[string]any{"bad": make(chan int)}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshaling request body")
}

func TestDoRequest_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	f := newFakeAppliance(t, false)
	f.handle("alerts/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message":"no such alert"}`)
	})
	client := newTestClient(t, f, func(c *ClientConfig) { c.TracerProvider = provider })

	_, err := client.DoRequest(t.Context(), http.MethodGet, "alerts/1", nil, nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "fidelis.authenticate", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	request := spans[1]
	assert.Equal(t, "fidelis.request", request.Name())
	assert.Equal(t, codes.Error, request.Status().Code)

	attrs := map[string]any{}
	for _, kv := range request.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, http.MethodGet, attrs["http.method"])
	assert.Equal(t, f.URL+"/endpoint/api/alerts/1", attrs["http.url"])
	assert.Equal(t, int64(http.StatusNotFound), attrs["http.status_code"])
	assert.NotEmpty(t, attrs["fidelis.request_id"])
}

func TestMarshalBody(t *testing.T) {
	got, err := marshalBody(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = marshalBody([]byte(`{"raw":true}`))
	require.NoError(t, err)
	assert.Equal(t, `{"raw":true}`, string(got))

	got, err = marshalBody(json.RawMessage(`[1]`))
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))

	got, err = marshalBody(struct {
		Name string `json:"name"`
	}{Name: "rule"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"rule"}`, string(got))
}
