package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droidsweep/backend/internal/config"
	"github.com/droidsweep/backend/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Store.Dir = t.TempDir()
	cfg.Advisor.Mock = true
	cfg.Stream.DelayMS = 1
	cfg.RateLimit.Enabled = false

	s, err := New(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestEndToEndQuery(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/query",
		strings.NewReader(`{"message":"is this app safe to remove?"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/history", nil))

		var resp struct {
			Messages []struct {
				Content   string `json:"content"`
				Streaming bool   `json:"streaming"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		return len(resp.Messages) == 2 && !resp.Messages[1].Streaming && resp.Messages[1].Content != ""
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Contains(t, resp, "session")
	assert.Contains(t, resp, "metrics")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// generate at least one observation
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "droidsweep_http_requests_total")
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-ID"), "req"))
}
