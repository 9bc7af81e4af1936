package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/arloliu/streamgrid/types"
	"github.com/gorilla/websocket"
)

// WebSocketFactory dials a websocket endpoint that pushes one JSON update per
// text or binary frame.
type WebSocketFactory struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// Header is sent with the opening handshake.
	Header http.Header

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

var _ types.ConnectionFactory = (*WebSocketFactory)(nil)

// Dial implements types.ConnectionFactory.
func (f *WebSocketFactory) Dial(ctx context.Context) (types.Conn, error) {
	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(ctx, f.URL, f.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", f.URL, err)
	}

	c := &wsConn{
		ws:     ws,
		frames: make(chan []byte),
		closed: make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

// wsConn pumps frames from a single reader goroutine so Receive can honor ctx.
type wsConn struct {
	ws     *websocket.Conn
	frames chan []byte
	closed chan struct{}

	mu      sync.Mutex
	readErr error
	once    sync.Once
}

func (c *wsConn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			c.markClosed()

			return
		}

		select {
		case c.frames <- data:
		case <-c.closed:
			return
		}
	}
}

func (c *wsConn) markClosed() {
	c.once.Do(func() { close(c.closed) })
}

func (c *wsConn) Receive(ctx context.Context) (types.RawMessage, error) {
	select {
	case data := <-c.frames:
		return types.RawMessage{Data: data, ReceivedAt: time.Now()}, nil
	case <-c.closed:
		c.mu.Lock()
		err := c.readErr
		c.mu.Unlock()

		return types.RawMessage{}, lostError(err)
	case <-ctx.Done():
		return types.RawMessage{}, ctx.Err()
	}
}

// Close closes the socket without a close handshake, which unblocks the reader.
func (c *wsConn) Close() error {
	c.markClosed()
	return c.ws.Close()
}
