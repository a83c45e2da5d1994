// Package ws carries the JSON envelope protocol over gorilla websockets.
package ws

import (
	"chat-pulse/contract"
	"chat-pulse/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var _ contract.Handle = (*Client)(nil)

// Client wraps one websocket. Reads happen on the gateway goroutine that
// owns the client, writes on writePump fed by a bounded queue.
type Client struct {
	log       *slog.Logger
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	once      sync.Once
	addr      string
	writeWait time.Duration
}

func NewClient(log *slog.Logger, conn *websocket.Conn, cfg ClientConfig) *Client {
	conn.SetReadLimit(cfg.MaxFrameBytes)
	return &Client{
		log:       log,
		conn:      conn,
		send:      make(chan []byte, cfg.SendBufferSize),
		done:      make(chan struct{}),
		addr:      conn.RemoteAddr().String(),
		writeWait: cfg.WriteWait,
	}
}

// Send queues a frame without blocking. A full queue means the peer is too
// slow and the frame is refused.
func (c *Client) Send(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("%w: client %s closed", errors.ErrTransportFailure, c.addr)
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("%w: send queue full for %s", errors.ErrTransportFailure, c.addr)
	}
}

// Close stops the write pump, which closes the socket and unblocks the reader.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) RemoteAddr() string { return c.addr }

// OnPong registers fn for websocket control pongs.
func (c *Client) OnPong(fn func()) {
	c.conn.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

func (c *Client) ReadFrame() ([]byte, error) {
	_, frame, err := c.conn.ReadMessage()
	return frame, err
}

func (c *Client) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Error closing websocket", "addr", c.addr, "error", err)
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.log.Debug("Error setting write deadline", "addr", c.addr, "error", err)
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Write failed, closing client", "addr", c.addr, "error", err)
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
			return
		}
	}
}

// flush writes whatever is still queued, typically the error that caused
// the close.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure)
}
