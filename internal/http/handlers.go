package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/droidsweep/backend/internal/chat"
	"github.com/droidsweep/backend/internal/monitoring"
	"github.com/droidsweep/backend/internal/settings"
	"github.com/droidsweep/backend/internal/shared/types"
)

// Version is reported by the root and health endpoints.
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	chat     *chat.Manager
	settings *settings.Service
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(manager *chat.Manager, svc *settings.Service, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		chat:     manager,
		settings: svc,
		metrics:  metrics,
	}
}

// Root handles the basic liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "DroidSweep Assistant Backend",
		"version": Version,
	})
}

// Health handles the detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"session": h.chat.Stats(),
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.GetSnapshot()
	}
	c.JSON(http.StatusOK, resp)
}

type queryRequest struct {
	Message string `json:"message" binding:"required"`
}

// SubmitQuery accepts a user query. The reply arrives asynchronously
// over the WebSocket; this endpoint only acknowledges the submission.
func (h *Handlers) SubmitQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	if err := h.chat.Submit(req.Message); err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, chat.ErrQueryInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// GetHistory returns the full session transcript and suggestions
func (h *Handlers) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session_id":  h.chat.SessionID(),
		"messages":    h.chat.Messages(),
		"suggestions": h.chat.Suggestions(),
	})
}

// GetSuggestions returns the current follow-up prompts
func (h *Handlers) GetSuggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"suggestions": h.chat.Suggestions(),
	})
}

// ClearHistory wipes the session
func (h *Handlers) ClearHistory(c *gin.Context) {
	h.chat.Clear()
	c.JSON(http.StatusOK, gin.H{
		"cleared":    true,
		"session_id": h.chat.SessionID(),
	})
}

// GetTheme returns the persisted theme preference
func (h *Handlers) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Theme())
}

// SetTheme updates the theme preference
func (h *Handlers) SetTheme(c *gin.Context) {
	var pref types.ThemePreference
	if err := c.ShouldBindJSON(&pref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid theme payload"})
		return
	}

	if err := h.settings.SetTheme(pref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pref)
}

// GetSetting returns a single settings value
func (h *Handlers) GetSetting(c *gin.Context) {
	key := c.Param("key")
	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": h.settings.Get(key, c.Query("default")),
	})
}

type settingRequest struct {
	Value string `json:"value"`
}

// SetSetting stores a single settings value
func (h *Handlers) SetSetting(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}

	key := c.Param("key")
	h.settings.Set(key, req.Value)
	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": req.Value,
	})
}

// ListSettings returns every stored settings value
func (h *Handlers) ListSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings": h.settings.All(),
		"theme":    h.settings.Theme(),
	})
}
