package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"commentator/internal/logging"
	"commentator/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to loopback by default and is guarded by the token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans spoken lines out to websocket clients.
type hub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	logger  *slog.Logger
}

type streamClient struct {
	conn *websocket.Conn
	send chan session.Outcome
	once sync.Once
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func newHub(logger *slog.Logger) *hub {
	return &hub{clients: make(map[*streamClient]struct{}), logger: logger}
}

func (h *hub) add(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(o session.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- o:
		default:
			h.logger.Debug("stream client lagging; dropping line")
		}
	}
}

// pump forwards a session's outcomes until the session ends.
func (h *hub) pump(ch <-chan session.Outcome) {
	for o := range ch {
		h.broadcast(o)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	client := &streamClient{conn: conn, send: make(chan session.Outcome, 32)}
	s.hub.add(client)

	go s.writeLoop(client)
	s.readLoop(client)
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(client *streamClient) {
	defer func() {
		s.hub.remove(client)
	}()
	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(client *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case outcome, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteJSON(outcome); err != nil {
				s.logger.Debug("stream write failed", logging.Error(err))
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
