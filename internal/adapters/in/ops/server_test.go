package ops

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(checks map[string]Check, cfg Config) http.Handler {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "ops_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()
	return NewHandler(reg, checks, cfg)
}

func serve(h http.Handler, path, remote string, auth ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "http://ops"+path, nil)
	req.RemoteAddr = remote
	if len(auth) == 2 {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth[0]+":"+auth[1])))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMetrics(t *testing.T) {
	rec := serve(newTestHandler(nil, Config{}), "/metrics", "10.0.0.1:5000")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ops_test_total 1")
}

func TestHealthz(t *testing.T) {
	t.Run("should report ok when every check passes", func(t *testing.T) {
		h := newTestHandler(map[string]Check{
			"postgres": func(context.Context) error { return nil },
		}, Config{})

		rec := serve(h, "/healthz", "10.0.0.1:5000")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Checks["postgres"])
	})

	t.Run("should report degraded with the failing dependency", func(t *testing.T) {
		h := newTestHandler(map[string]Check{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}, Config{})

		rec := serve(h, "/healthz", "10.0.0.1:5000")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})
}

func TestPprofAccess(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		remote string
		auth   []string
		want   int
	}{
		{"loopback without credentials", Config{}, "127.0.0.1:40000", nil, http.StatusOK},
		{"ipv6 loopback", Config{}, "[::1]:40000", nil, http.StatusOK},
		{"remote without configured credentials", Config{}, "8.8.8.8:40000", []string{"u", "p"}, http.StatusUnauthorized},
		{"remote with wrong password", Config{PprofUser: "u", PprofPass: "p"}, "8.8.8.8:40000", []string{"u", "x"}, http.StatusUnauthorized},
		{"remote without header", Config{PprofUser: "u", PprofPass: "p"}, "8.8.8.8:40000", nil, http.StatusUnauthorized},
		{"remote with credentials", Config{PprofUser: "u", PprofPass: "p"}, "8.8.8.8:40000", []string{"u", "p"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestHandler(nil, tt.cfg), "/debug/pprof/", tt.remote, tt.auth...)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:1"))
	assert.True(t, isLoopback("::1"))
	assert.False(t, isLoopback("192.168.1.10:80"))
	assert.False(t, isLoopback("not-an-ip"))
}
