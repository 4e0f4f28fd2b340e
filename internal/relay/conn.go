package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mchat/internal/domain"
)

// ErrNotConnected is returned by Send and Receive once the connection is
// closed.
var ErrNotConnected = errors.New("relay: not connected")

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
	inboxSize      = 64
)

// Conn is a client connection to a relay server.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	inbox     chan domain.Envelope
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial connects to the relay's WebSocket endpoint at url, for example
// ws://127.0.0.1:8080/chat.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("relay: dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("relay: dial %s: %w", url, err)
	}
	ws.SetReadLimit(maxMessageSize)

	c := &Conn{
		ws:    ws,
		inbox: make(chan domain.Envelope, inboxSize),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	defer c.shutdown(nil)
	for {
		var env domain.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.shutdown(err)
			return
		}
		select {
		case c.inbox <- env:
		case <-c.done:
			return
		}
	}
}

// Send writes one envelope.
func (c *Conn) Send(env domain.Envelope) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(env); err != nil {
		c.shutdown(err)
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// Receive blocks until an envelope arrives, the connection closes or ctx is
// done. Envelopes already received are drained before ErrNotConnected.
func (c *Conn) Receive(ctx context.Context) (domain.Envelope, error) {
	select {
	case env := <-c.inbox:
		return env, nil
	case <-c.done:
		select {
		case env := <-c.inbox:
			return env, nil
		default:
			return domain.Envelope{}, c.closeErr()
		}
	case <-ctx.Done():
		return domain.Envelope{}, ctx.Err()
	}
}

// Close sends a close frame and tears the connection down.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) closeErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil || websocket.IsCloseError(c.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return ErrNotConnected
	}
	return fmt.Errorf("%w: %v", ErrNotConnected, c.err)
}

// Compile-time assertion that Conn implements domain.Transport.
var _ domain.Transport = (*Conn)(nil)
