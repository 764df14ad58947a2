package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/smpte/internal/config"
	apperrors "github.com/zsiec/smpte/internal/errors"
	"github.com/zsiec/smpte/internal/presets"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			HTTPPort:        0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Timecode: config.TimecodeConfig{
			DefaultRate:      "29.97df",
			MaxBatchSize:     100,
			BatchConcurrency: 4,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, presets.Store) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := presets.NewMemoryStore()
	_, err := presets.Seed(context.Background(), store)
	require.NoError(t, err)

	s, err := New(cfg, logger, store, nil)
	require.NoError(t, err)
	return s, store
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestNew(t *testing.T) {
	s, store := newTestServer(t, testConfig())

	assert.NotNil(t, s.router)
	assert.NotNil(t, s.healthMgr)
	assert.NotNil(t, s.errorHandler)
	assert.NotNil(t, s.runner)
	assert.Nil(t, s.limiter)
	assert.Equal(t, store, s.store)
}

func TestNew_BadDefaultRate(t *testing.T) {
	cfg := testConfig()
	cfg.Timecode.DefaultRate = "fast"

	_, err := New(cfg, logrus.New(), presets.NewMemoryStore(), nil)
	assert.Error(t, err)
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/version", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, s, http.MethodGet, "/version", nil, map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	var info map[string]interface{}
	decode(t, rec, &info)
	assert.Equal(t, "smpte", info["name"])
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodOptions, "/api/v1/rates", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, apperrors.ErrorTypeNotFound, resp.Error.Type)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string                     `json:"status"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Checks, "presets")
	assert.Contains(t, resp.Checks, "timecode")
	assert.NotContains(t, resp.Checks, "redis")

	rec = do(t, s, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitedAPI(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2, IdleTimeout: time.Minute}
	s, _ := newTestServer(t, cfg)
	require.NotNil(t, s.limiter)

	target := "/api/v1/timecode/format?frames=1"
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, target, nil, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, target, nil, nil).Code)

	rec := do(t, s, http.MethodGet, target, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Health is outside the API and not limited.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/live", nil, nil).Code)
}

func TestDebugEndpoints(t *testing.T) {
	cfg := testConfig()
	cfg.Server.DebugEndpoints = true
	s, _ := newTestServer(t, cfg)

	rec := do(t, s, http.MethodGet, "/debug/info", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var info map[string]interface{}
	decode(t, rec, &info)
	assert.Equal(t, "29.97df", info["default_rate"])

	rec = do(t, s, http.MethodGet, "/debug/pprof/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterRoutes(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	s.RegisterRoutes(func(r *mux.Router) {
		r.HandleFunc("/extra", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}).Methods(http.MethodGet)
	})

	assert.Equal(t, http.StatusTeapot, do(t, s, http.MethodGet, "/extra", nil, nil).Code)
}

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// A second shutdown is a no-op.
	assert.NoError(t, s.Shutdown())
}

func TestStart_BadTLSFiles(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TLSCertFile = "missing-cert.pem"
	cfg.Server.TLSKeyFile = "missing-key.pem"
	cfg.Server.HTTP3Port = 0
	s, _ := newTestServer(t, cfg)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "TLS"))
}
