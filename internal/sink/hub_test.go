package sink

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_GreetsWithCurrentIcon(t *testing.T) {
	h := NewHub(nil)
	h.SetIcon("icon.png")

	conn := dialHub(t, h)

	welcome := readMessage(t, conn)
	assert.Equal(t, MessageConnected, welcome.Type)
	assert.Len(t, welcome.ID, 26, "client IDs are ULIDs")

	icon := readMessage(t, conn)
	assert.Equal(t, MessageIcon, icon.Type)
	assert.Equal(t, "icon.png", icon.Icon)
}

func TestHub_BroadcastsIcons(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	readMessage(t, conn) // welcome

	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.SetIcon("data:image/png;base64,AAAA")

	msg := readMessage(t, conn)
	assert.Equal(t, MessageIcon, msg.Type)
	assert.Equal(t, "data:image/png;base64,AAAA", msg.Icon)
	assert.Equal(t, "data:image/png;base64,AAAA", h.Current())
}

func TestHub_DispatchesClientMessages(t *testing.T) {
	h := NewHub(nil)

	var mu sync.Mutex
	var received []Message
	h.SetMessageHandler(func(clientID string, msg Message) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
	})

	conn := dialHub(t, h)
	readMessage(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(Message{Type: MessageCancel}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0].Type == MessageCancel
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHub_RemovesDisconnectedClients(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	readMessage(t, conn) // welcome

	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	readMessage(t, conn) // welcome

	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	h.Close()
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_SetIconDoesNotWaitForStalledClient(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	readMessage(t, conn) // welcome; nothing is read after this

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	icon := "data:image/png;base64," + strings.Repeat("A", 128*1024)
	start := time.Now()
	for i := 0; i < 200; i++ {
		h.SetIcon(icon)
	}
	assert.Less(t, time.Since(start), 2*time.Second, "broadcast must not block on a client that stopped reading")

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond,
		"a client whose queue overflows is dropped")
	assert.Equal(t, icon, h.Current())
}

func TestHub_CloseSendsCloseFrame(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	readMessage(t, conn) // welcome

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
