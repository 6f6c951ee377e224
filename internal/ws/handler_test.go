package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droidsweep/backend/internal/advisor"
	"github.com/droidsweep/backend/internal/chat"
	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/shared/types"
	"github.com/droidsweep/backend/internal/store"
	"github.com/droidsweep/backend/internal/stream"
	"github.com/droidsweep/backend/internal/suggest"
)

type frame struct {
	Type        string          `json:"type"`
	Message     string          `json:"message"`
	Messages    []types.Message `json:"messages"`
	Suggestions []string        `json:"suggestions"`
}

func dialTestHandler(t *testing.T, reply string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logging.NewNop()
	st, err := store.New(t.TempDir(), log)
	require.NoError(t, err)

	manager := chat.NewManager(chat.Config{
		Advisor: &advisor.Mock{
			SendQueryFunc: func(ctx context.Context, text string, history []types.Message) (string, error) {
				return reply, nil
			},
		},
		Store:       st,
		Streams:     stream.NewController(log),
		Suggester:   suggest.NewGenerator(),
		StreamDelay: -1,
		Logger:      log,
	})

	router := gin.New()
	router.GET("/ws", NewHandler(manager, nil, log).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestConnectSendsStateSnapshot(t *testing.T) {
	conn := dialTestHandler(t, "hello")

	f := readFrame(t, conn)
	assert.Equal(t, "system", f.Type)

	f = readFrame(t, conn)
	assert.Equal(t, "chat_update", f.Type)
	assert.Empty(t, f.Messages)
	assert.Len(t, f.Suggestions, 3)
}

func TestQueryStreamsUpdates(t *testing.T) {
	const reply = "It is battery safe."
	conn := dialTestHandler(t, reply)

	readFrame(t, conn) // system
	readFrame(t, conn) // initial snapshot

	require.NoError(t, conn.WriteJSON(types.WSMessage{Type: "query", Message: "check battery app"}))

	// frames arrive per mutation; the last one carries the settled session
	var last frame
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f := readFrame(t, conn)
		if f.Type != "chat_update" {
			continue
		}
		last = f
		if len(f.Messages) == 2 && !f.Messages[1].Streaming && f.Messages[1].Content == reply {
			break
		}
	}

	require.Len(t, last.Messages, 2)
	assert.Equal(t, types.RoleUser, last.Messages[0].Role)
	assert.Equal(t, reply, last.Messages[1].Content)
	assert.Contains(t, last.Suggestions, "Which packages drain the most battery?")
}

func TestPingPong(t *testing.T) {
	conn := dialTestHandler(t, "hello")

	readFrame(t, conn)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(types.WSMessage{Type: "ping"}))
	f := readFrame(t, conn)
	assert.Equal(t, "pong", f.Type)
}

func TestUnknownTypeReturnsError(t *testing.T) {
	conn := dialTestHandler(t, "hello")

	readFrame(t, conn)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(types.WSMessage{Type: "bogus"}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "unknown message type", f.Message)
}
