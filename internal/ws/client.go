package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a websocket client connection.
type Client struct {
	conn         *websocket.Conn
	log          *slog.Logger
	writeTimeout time.Duration
	mu           sync.Mutex
	closed       bool
}

// NewClient constructs a client wrapper.
func NewClient(conn *websocket.Conn, logger *slog.Logger, writeTimeout time.Duration) *Client {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Client{conn: conn, log: logger, writeTimeout: writeTimeout}
}

// Send writes a message to the websocket connection.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", "error", err)
		c.closed = true
		_ = c.conn.Close()
		return err
	}
	return nil
}

// ReadFrame blocks until the peer sends the next frame.
func (c *Client) ReadFrame() (Frame, error) {
	var frame Frame
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return frame, err
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, &FrameError{Err: err}
	}
	return frame, nil
}

// Close terminates the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}
