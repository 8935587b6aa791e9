package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/metrics"
)

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, "req-1", resp.Header().Get(requestIDHeader))

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))
}

func TestRecovererReturns500(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), `"success":false`)
}

func TestRequestIDReplacesUnsafeIDs(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	for _, id := range []string{"bad id\nforged=1", strings.Repeat("a", maxRequestIDChars+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, id)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		got := resp.Header().Get(requestIDHeader)
		assert.NotEqual(t, id, got)
		assert.Len(t, got, 36)
	}
}

func TestRecovererAfterWriteKeepsResponse(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, "partial", resp.Body.String())
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestStackTracesToggle(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("kaput"))
	})

	resp := httptest.NewRecorder()
	StackTraces(true)(Recoverer(nil)(failing)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, resp.Body.String(), `"stack"`)

	resp = httptest.NewRecorder()
	StackTraces(false)(Recoverer(nil)(failing)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotContains(t, resp.Body.String(), `"stack"`)
}

func TestMaxBodyBytes(t *testing.T) {
	var readErr error
	handler := MaxBodyBytes(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too large")))
	require.Error(t, readErr)
}

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := chi.NewRouter()
	router.Use(Metrics(metrics.NewHTTPMetrics(reg)))
	router.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "storefront_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["status"] == "418" {
				found = true
				assert.Equal(t, http.MethodGet, labels["method"])
			}
		}
	}
	assert.True(t, found, "expected request counter with status 418")
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := CORS(corsConfig("https://shop.example"))(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, "https://shop.example", resp.Header().Get("Access-Control-Allow-Origin"))
}

func corsConfig(origins ...string) config.CORSConfig {
	return config.CORSConfig{AllowedOrigins: origins}
}
