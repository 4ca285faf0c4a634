package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from a peer. SDP offers stay well
	// under this.
	maxMessageSize = 64 * 1024

	// Outbound buffer per client. A peer that lets this fill up is
	// treated as dead.
	sendBufferSize = 256
)

// Client wraps one websocket connection. All writes to the socket happen
// on the WritePump goroutine; everything else enqueues through Send.
type Client struct {
	ID   string
	conn *websocket.Conn
	log  *zap.Logger

	send chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(id string, conn *websocket.Conn, log *zap.Logger) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		log:  log,
		send: make(chan []byte, sendBufferSize),
	}
}

// Send enqueues one outbound frame. It implements Sink. A closed client
// or a full buffer reports ErrSendFailed rather than blocking the caller.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSendFailed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendFailed
	}
}

// Close shuts down the outbound channel and the underlying connection.
// Safe to call from any goroutine, any number of times.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.conn.Close()
}

// CloseWithStatus sends a close frame with the given status code before
// tearing the connection down. Used for the duplicate-id rejection so the
// client can tell "id taken" from "server gone".
func (c *Client) CloseWithStatus(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.log.Debug("close frame write failed", zap.String("clientId", c.ID), zap.Error(err))
	}
	c.Close()
}

// WritePump drains the send channel onto the websocket and keeps the
// connection alive with pings. There is at most one writer per
// connection: this goroutine.
func (c *Client) WritePump() {
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
				c.log.Debug("write failed", zap.String("clientId", c.ID), zap.Error(err))
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
