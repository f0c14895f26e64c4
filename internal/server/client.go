package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second // spec.md §5: ~30s keep-alive
	maxMessageSize = 1 << 16
)

// Client is one accepted WebSocket connection, paired with a playerId once
// CONNECT succeeds.
type Client struct {
	ClientID uuid.UUID
	PlayerID uuid.UUID // uuid.Nil until joined

	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// enqueue buffers a frame for delivery; a full buffer (a slow client) drops
// the frame rather than blocking the broadcast loop (spec.md §5 backpressure).
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.server.log.WithField("clientId", c.ClientID).Warn("send buffer full, dropping frame")
	}
}

// readPump reads frames until the socket closes, dispatching each to the
// router. Mirrors the teacher's Client.readPump.
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.WithError(err).WithField("clientId", c.ClientID).Info("websocket closed unexpectedly")
			}
			return
		}
		c.server.route(c, data)
	}
}

// writePump drains the send queue to the socket and pings on an idle
// timer. Mirrors the teacher's Client.writePump.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
