package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"condorledger/pkg/utils"
)

// Тайминги соединения. Ping уходит чаще, чем истекает ожидание pong.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// от клиента приходят только control frames
	maxMessageSize = 4096

	clientSendBufferSize = 64
)

func newUpgrader(origins *OriginChecker) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   4096,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			return origins.Check(r.Header.Get("Origin"))
		},
	}
}

// Client - подписчик /ws/stream
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	remoteAddr  string
	connectedAt time.Time
}

// ServeWS переводит запрос на WebSocket и отдает клиента hub.
// Маршрут: GET /ws/stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", utils.Err(err), utils.RemoteAddr(r.RemoteAddr))
		return
	}

	c := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, clientSendBufferSize),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}

	select {
	case <-h.stop:
		conn.Close()
		return
	case h.register <- c:
	}

	go c.writeLoop()
	go c.readLoop()
}

// readLoop держит read deadline по pong и завершается при разрыве
func (c *Client) readLoop() {
	defer c.detach()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.hub.log.Debug("websocket read error", utils.Err(err), utils.RemoteAddr(c.remoteAddr))
		}
		return
	}
}

func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.stop:
	}
	c.conn.Close()

	c.hub.log.Debug("websocket client disconnected",
		utils.RemoteAddr(c.remoteAddr),
		utils.Duration("session", time.Since(c.connectedAt)),
	)
}

// writeLoop пишет сообщения из send, каждое отдельным фреймом, и шлет ping
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, ok := <-c.send:
			if !ok {
				// канал закрыт hub: вежливо прощаемся
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			err = c.write(websocket.TextMessage, msg)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
