package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

type viewRecorder struct {
	mu    sync.Mutex
	rooms []string
}

func (v *viewRecorder) onView(_ context.Context, roomID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rooms = append(v.rooms, roomID)
	return nil
}

func (v *viewRecorder) seen() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.rooms...)
}

func startHub(t *testing.T) (*Hub, *viewRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	views := &viewRecorder{}
	hub := NewHub(views.onView, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, views, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads frames until one of the wanted type arrives
func next(t *testing.T, conn *websocket.Conn, eventType string) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == eventType {
			return ev
		}
	}
}

func TestViewRoomTracksActiveRoom(t *testing.T) {
	hub, views, url := startHub(t)
	conn := dial(t, url+"?roomId=r1")

	assert.Eventually(t, func() bool { return hub.ActiveRoomID() == "r1" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"r1"}, views.seen())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": ClientViewRoom, "payload": map[string]string{"roomId": "r2"}}))
	assert.Eventually(t, func() bool { return hub.ActiveRoomID() == "r2" }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ActiveRoomID() == "" }, 2*time.Second, 10*time.Millisecond)
}

func TestPingPong(t *testing.T) {
	_, _, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": ClientPing}))
	next(t, conn, EventPong)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	ev := next(t, conn, EventError)
	assert.Contains(t, string(ev.Payload), "unknown event type dance")
}

func TestPublishMessageRaisesUnreadOutsideActiveRoom(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, url+"?roomId=r1")
	assert.Eventually(t, func() bool { return hub.ActiveRoomID() == "r1" }, 2*time.Second, 10*time.Millisecond)

	hub.PublishMessage(&models.Message{ID: "m1", RoomID: "r2", AuthorID: 1, Content: "psst"})

	ev := next(t, conn, EventMessage)
	var msg models.Message
	require.NoError(t, json.Unmarshal(ev.Payload, &msg))
	assert.Equal(t, "psst", msg.Content)

	ev = next(t, conn, EventUnread)
	assert.JSONEq(t, `{"roomId":"r2"}`, string(ev.Payload))
}

func TestPublishTypingAndPatch(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, url)
	// registration happens asynchronously after the upgrade
	require.NoError(t, conn.WriteJSON(map[string]string{"type": ClientPing}))
	next(t, conn, EventPong)

	hub.PublishTyping("r1", 2, true)
	ev := next(t, conn, EventTyping)
	assert.JSONEq(t, `{"roomId":"r1","characterId":2,"typing":true}`, string(ev.Payload))

	content := ""
	hub.PublishMessagePatch("r1", "m9", models.MessagePatch{Content: &content})
	ev = next(t, conn, EventMessagePatch)
	assert.JSONEq(t, `{"roomId":"r1","messageId":"m9","patch":{"content":""}}`, string(ev.Payload))
}

func TestStoppedHubReleasesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	served := make(chan struct{}, 2)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c)
		served <- struct{}{}
	})
	srv := httptest.NewServer(r)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	before := dial(t, url)
	<-served
	cancel()
	<-stopped

	// the open client gets a close frame instead of hanging
	require.NoError(t, before.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := before.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)

	// late connections are refused without blocking the handler
	dial(t, url)
	select {
	case <-served:
	case <-time.After(3 * time.Second):
		t.Fatal("handler blocked on a stopped hub")
	}
}
