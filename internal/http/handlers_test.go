package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droidsweep/backend/internal/advisor"
	"github.com/droidsweep/backend/internal/chat"
	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/settings"
	"github.com/droidsweep/backend/internal/shared/types"
	"github.com/droidsweep/backend/internal/store"
	"github.com/droidsweep/backend/internal/stream"
	"github.com/droidsweep/backend/internal/suggest"
)

func newTestRouter(t *testing.T, querier advisor.Querier) (*gin.Engine, *chat.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logging.NewNop()
	st, err := store.New(t.TempDir(), log)
	require.NoError(t, err)

	manager := chat.NewManager(chat.Config{
		Advisor:     querier,
		Store:       st,
		Streams:     stream.NewController(log),
		Suggester:   suggest.NewGenerator(),
		StreamDelay: -1,
		Logger:      log,
	})
	handlers := NewHandlers(manager, settings.NewService(st, log), nil)

	router := gin.New()
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/chat/query", handlers.SubmitQuery)
	router.GET("/chat/history", handlers.GetHistory)
	router.GET("/chat/suggestions", handlers.GetSuggestions)
	router.DELETE("/chat/history", handlers.ClearHistory)
	router.GET("/settings/theme", handlers.GetTheme)
	router.PUT("/settings/theme", handlers.SetTheme)
	router.GET("/settings", handlers.ListSettings)
	router.GET("/settings/:key", handlers.GetSetting)
	router.PUT("/settings/:key", handlers.SetSetting)
	return router, manager
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRootReportsService(t *testing.T) {
	router, _ := newTestRouter(t, &advisor.Mock{})

	w := doJSON(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "online", resp["status"])
	assert.Equal(t, Version, resp["version"])
}

func TestSubmitQueryAccepted(t *testing.T) {
	router, manager := newTestRouter(t, &advisor.Mock{
		SendQueryFunc: func(ctx context.Context, text string, history []types.Message) (string, error) {
			return "It is battery safe.", nil
		},
	})

	w := doJSON(t, router, http.MethodPost, "/chat/query", gin.H{"message": "check battery app"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		stats := manager.Stats()
		return stats.MessageCount == 2 && !stats.Streaming && !stats.InFlight
	}, 2*time.Second, 5*time.Millisecond)

	w = doJSON(t, router, http.MethodGet, "/chat/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID   string          `json:"session_id"`
		Messages    []types.Message `json:"messages"`
		Suggestions []string        `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "It is battery safe.", resp.Messages[1].Content)
	assert.Contains(t, resp.Suggestions, "Which packages drain the most battery?")
}

func TestSubmitQueryValidation(t *testing.T) {
	router, _ := newTestRouter(t, &advisor.Mock{})

	w := doJSON(t, router, http.MethodPost, "/chat/query", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/chat/query", gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitQueryConflictWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	router, manager := newTestRouter(t, &advisor.Mock{
		SendQueryFunc: func(ctx context.Context, text string, history []types.Message) (string, error) {
			<-release
			return "done", nil
		},
	})
	defer close(release)

	w := doJSON(t, router, http.MethodPost, "/chat/query", gin.H{"message": "first"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(t, router, http.MethodPost, "/chat/query", gin.H{"message": "second"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, manager.Stats().MessageCount)
}

func TestClearHistory(t *testing.T) {
	router, manager := newTestRouter(t, &advisor.Mock{})

	require.NoError(t, manager.Submit("remove this"))
	require.Eventually(t, func() bool {
		return manager.Stats().MessageCount == 2 && !manager.Stats().InFlight
	}, 2*time.Second, 5*time.Millisecond)

	w := doJSON(t, router, http.MethodDelete, "/chat/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, manager.Stats().MessageCount)
}

func TestThemeRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, &advisor.Mock{})

	w := doJSON(t, router, http.MethodGet, "/settings/theme", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pref types.ThemePreference
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
	assert.Equal(t, "system", pref.Mode)

	w = doJSON(t, router, http.MethodPut, "/settings/theme", types.ThemePreference{Mode: "dark", Accent: "#3ddc84"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/settings/theme", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
	assert.Equal(t, "dark", pref.Mode)

	w = doJSON(t, router, http.MethodPut, "/settings/theme", types.ThemePreference{Mode: "neon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsKeyRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, &advisor.Mock{})

	w := doJSON(t, router, http.MethodPut, "/settings/panel.position", gin.H{"value": "right"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/settings/panel.position", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "right", resp["value"])

	w = doJSON(t, router, http.MethodGet, "/settings/missing?default=fallback", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp["value"])
}
