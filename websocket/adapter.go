package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharad1666/GD-AI-App/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
)

// Conn adapts one gorilla websocket connection to the domain.Connection
// contract: a buffered outbound queue drained by a write pump, and a read
// pump feeding frames to the session handler.
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	handler domain.SessionHandler

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConn(id string, ws *websocket.Conn, handler domain.SessionHandler) *Conn {
	return &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, 256),
		handler: handler,
		closed:  make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues data for delivery. Returns ErrConnectionClosed if the peer is
// gone or its outbound queue is full; the connection's own teardown handles
// cleanup, so callers just skip this recipient.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.closed:
		return domain.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return domain.ErrConnectionClosed
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.ws.Close()
}

// Start registers the connection and runs both pumps. It is the transport
// entry point called once per upgraded socket.
func (c *Conn) Start() {
	c.handler.Connect(c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.Disconnect(c)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "error", err)
			}
			return
		}

		c.handler.Message(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
