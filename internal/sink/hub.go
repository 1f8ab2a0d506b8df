package sink

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// writeWait bounds how long a single frame may take to reach a client.
const writeWait = 5 * time.Second

// sendBuffer is the number of frames queued per client. A client that falls
// this far behind is disconnected.
const sendBuffer = 16

// Message types exchanged with browser clients.
const (
	MessageIcon      = "icon"      // server -> client: display Icon
	MessageConnected = "connected" // server -> client: welcome with client ID
	MessageNotify    = "notify"    // client -> server: start notifying
	MessageCancel    = "cancel"    // client -> server: stop notifying
)

// Message is the JSON frame sent over the websocket.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Icon string `json:"icon,omitempty"`
}

// MessageHandler handles a frame received from a client.
type MessageHandler func(clientID string, msg Message)

// client is a connected websocket with its own outbound queue. Only the
// writer goroutine writes to conn.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub is a Sink that pushes every icon to connected websocket clients,
// typically browser tabs that swap their <link rel="icon"> on each frame.
// SetIcon never blocks on the network: frames are queued per client.
type Hub struct {
	mu       sync.Mutex
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clients map[string]*client
	current string

	onMessage MessageHandler
}

// NewHub creates a Hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Pages are served by the same process; local tools may connect too.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// SetMessageHandler sets the callback for frames received from clients.
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMessage = handler
}

// SetIcon records icon and queues it for every client.
func (h *Hub) SetIcon(icon string) {
	msg, err := json.Marshal(Message{Type: MessageIcon, Icon: icon})
	if err != nil {
		h.logger.Error("failed to marshal icon message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = icon

	for _, c := range h.clients {
		h.enqueueLocked(c, msg)
	}
}

// enqueueLocked queues msg for c, dropping c if its queue is full.
func (h *Hub) enqueueLocked(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("dropping slow client", "client", c.id)
		h.removeLocked(c)
	}
}

// removeLocked unregisters c and closes its queue, which ends the writer.
func (h *Hub) removeLocked(c *client) {
	if h.clients[c.id] != c {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
}

// Current returns the last icon written.
func (h *Hub) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and registers the client.
// The client immediately receives a welcome frame and the current icon.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	welcome, _ := json.Marshal(Message{Type: MessageConnected, ID: c.id})

	h.mu.Lock()
	h.clients[c.id] = c
	h.enqueueLocked(c, welcome)
	if h.current != "" {
		icon, _ := json.Marshal(Message{Type: MessageIcon, Icon: h.current})
		h.enqueueLocked(c, icon)
	}
	h.mu.Unlock()

	h.logger.Info("client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop sends queued frames until the queue is closed or a write fails.
func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("dropping client after write error", "client", c.id, "error", err)
			h.mu.Lock()
			h.removeLocked(c)
			h.mu.Unlock()
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
}

// readLoop dispatches client frames until the connection closes.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
		h.logger.Info("client disconnected", "client", c.id)
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("client read error", "client", c.id, "error", err)
			}
			return
		}

		h.mu.Lock()
		handler := h.onMessage
		h.mu.Unlock()

		if handler != nil {
			handler(c.id, msg)
		}
	}
}

// Close disconnects every client. Each writer sends a close frame once its
// queue is flushed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.removeLocked(c)
	}
}
