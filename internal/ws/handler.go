package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/chat"
	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/monitoring"
	"github.com/droidsweep/backend/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // panel and backend share the local machine
	},
}

// sendBuffer bounds the per-connection outbound queue. A reveal produces
// one update per token, so the buffer absorbs bursts from long replies.
const sendBuffer = 64

// Handler manages WebSocket connections
type Handler struct {
	chat    *chat.Manager
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *chat.Manager, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	return &Handler{
		chat:    manager,
		metrics: metrics,
		log:     log.Named("ws"),
	}
}

// HandleConnection upgrades the request and serves the panel until it
// disconnects. Session updates are pushed; queries come in over the
// same socket.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.ConnectionOpened()
		defer h.metrics.ConnectionClosed()
	}
	h.log.Info("panel connected", zap.String("remote", conn.RemoteAddr().String()))

	// One writer goroutine per connection; gorilla connections do not
	// allow concurrent writes. Senders drop frames instead of blocking,
	// so a listener can never stall on a closed channel.
	send := make(chan any, sendBuffer)
	quit := make(chan struct{})
	go h.writer(conn, send, quit)

	unsubscribe := h.chat.Subscribe(func(update types.ChatUpdate) {
		select {
		case send <- update:
		default:
			// drop intermediate frames rather than block the session;
			// the next update carries the full message list anyway
		}
	})

	send <- map[string]any{
		"type":    "system",
		"message": "Connected to DroidSweep assistant backend",
	}
	send <- h.currentUpdate()

	h.readLoop(conn, send)

	unsubscribe()
	close(quit)
}

// readLoop dispatches inbound frames until the connection drops
func (h *Handler) readLoop(conn *websocket.Conn, send chan<- any) {
	for {
		var msg types.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if h.metrics != nil {
			h.metrics.WSMessages.WithLabelValues("in", msg.Type).Inc()
		}

		switch msg.Type {
		case "query":
			if err := h.chat.Submit(msg.Message); err != nil {
				h.sendError(send, err)
			}
		case "clear":
			h.chat.Clear()
		case "get_state":
			send <- h.currentUpdate()
		case "ping":
			send <- map[string]any{"type": "pong"}
		default:
			send <- map[string]any{
				"type":    "error",
				"message": "unknown message type",
			}
		}
	}
}

// writer drains the send channel onto the connection until quit closes
func (h *Handler) writer(conn *websocket.Conn, send <-chan any, quit <-chan struct{}) {
	for {
		select {
		case frame := <-send:
			if err := conn.WriteJSON(frame); err != nil {
				h.log.Debug("websocket write failed", zap.Error(err))
				continue
			}
			if h.metrics != nil {
				h.metrics.WSMessages.WithLabelValues("out", frameType(frame)).Inc()
			}
		case <-quit:
			return
		}
	}
}

// currentUpdate builds a full-state frame for newly connected panels
func (h *Handler) currentUpdate() types.ChatUpdate {
	return types.ChatUpdate{
		Type:        "chat_update",
		Messages:    h.chat.Messages(),
		Suggestions: h.chat.Suggestions(),
		Timestamp:   time.Now().UnixMilli(),
	}
}

func (h *Handler) sendError(send chan<- any, err error) {
	frame := map[string]any{
		"type":    "error",
		"message": err.Error(),
	}
	if errors.Is(err, chat.ErrQueryInFlight) {
		frame["code"] = "in_flight"
	}
	select {
	case send <- frame:
	default:
	}
}

func frameType(frame any) string {
	switch f := frame.(type) {
	case types.ChatUpdate:
		return f.Type
	case map[string]any:
		if t, ok := f["type"].(string); ok {
			return t
		}
	}
	return "unknown"
}
