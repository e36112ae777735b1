package collaboration

import (
	"context"
	"log"
	"sync"
	"time"

	"treedeco/internal/middleware"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Inbound frames are small JSON events; anything larger is a
	// misbehaving client.
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Client is one websocket connection. It is Unjoined until a join-session
// event binds it to a (session, user) pair; every other inbound event is
// ignored until then. The binding fields are only touched from the read
// pump goroutine.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	sessionID string
	userID    string
	joined    bool

	closeOnce sync.Once
}

// newClient wraps an upgraded connection. The ksuid is a time-ordered
// connection id used for log correlation only.
func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   ksuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// queue attempts a non-blocking send to this client. It reports false when
// the buffer is full.
func (c *Client) queue(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump reads frames off the connection and hands them to the router.
// It owns the disconnect path: when the read loop exits for any reason the
// lifecycle cleanup runs before the connection is torn down.
func (c *Client) readPump(ctx context.Context, router *Router) {
	defer func() {
		router.HandleDisconnect(ctx, c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on client %s: %v", c.ID, err)
			}
			return
		}

		msgCtx, span := middleware.StartSpan(ctx, "WebSocket.ProcessEvent",
			attribute.String("client.id", c.ID),
			attribute.String("session.id", c.sessionID),
			attribute.Int("message.size", len(message)),
		)

		router.Dispatch(msgCtx, c, message)

		span.End()
	}
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings. One writer goroutine per connection; the
// websocket does not allow concurrent writers.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush any additional queued frames before the next select.
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
