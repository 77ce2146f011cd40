package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/framesync/internal/logging"
	"github.com/aretw0/framesync/pkg/domain"
	backend "github.com/gorilla/websocket"
)

const (
	// sendBufferSize is the per-connection outbound message buffer size.
	sendBufferSize = 256
	maxMessageSize = 4096

	DefaultPingInterval = 30 * time.Second
	DefaultPongTimeout  = 10 * time.Second
	// DefaultSendTimeout bounds how long Post waits for room in a full buffer.
	DefaultSendTimeout = 5 * time.Second
)

// ErrSendBufferFull is returned by Post when the peer did not drain messages
// within the send timeout.
var ErrSendBufferFull = errors.New("websocket send buffer full")

// Conn carries protocol messages as JSON text frames over a websocket.
// It implements ports.Port, so a host controller in one process can drive a
// guest router in another (or in a browser).
type Conn struct {
	ws     *backend.Conn
	logger *slog.Logger

	pingInterval time.Duration
	pongTimeout  time.Duration
	sendTimeout  time.Duration

	in   chan domain.Message
	send chan []byte
	done chan struct{}
	once sync.Once
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		c.logger = logger
	}
}

// WithPing configures keepalive pings and how long to wait for the pong.
func WithPing(interval, pongTimeout time.Duration) Option {
	return func(c *Conn) {
		c.pingInterval = interval
		c.pongTimeout = pongTimeout
	}
}

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Conn) {
		c.sendTimeout = d
	}
}

var upgrader = backend.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Embedding pages are served from arbitrary origins.
		return true
	},
}

// Accept upgrades an HTTP request to a protocol connection.
func Accept(w http.ResponseWriter, r *http.Request, opts ...Option) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}
	return newConn(ws, opts...), nil
}

// Dial connects to a protocol endpoint.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	ws, resp, err := backend.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return newConn(ws, opts...), nil
}

func newConn(ws *backend.Conn, opts ...Option) *Conn {
	c := &Conn{
		ws:           ws,
		logger:       logging.NewNop(),
		pingInterval: DefaultPingInterval,
		pongTimeout:  DefaultPongTimeout,
		sendTimeout:  DefaultSendTimeout,
		in:           make(chan domain.Message),
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.writePump()
	go c.readPump()
	return c
}

// Post queues msg for sending, in order. When the buffer is full it waits
// for the write pump, up to the send timeout or until ctx is done.
func (c *Conn) Post(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	select {
	case <-c.done:
		return domain.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
	}

	c.logger.Debug("send buffer full, waiting for peer", "type", msg.Type)
	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return domain.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrSendBufferFull, c.sendTimeout)
	}
}

// Receive yields the peer's messages. It is closed when the connection ends.
func (c *Conn) Receive() <-chan domain.Message {
	return c.in
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and releases the connection.
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Conn) readPump() {
	defer func() {
		close(c.in)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	//nolint:errcheck // best-effort deadline
	c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if backend.IsUnexpectedCloseError(err, backend.CloseGoingAway, backend.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "err", err)
			} else {
				c.logger.Debug("websocket closed", "err", err)
			}
			return
		}
		//nolint:errcheck // best-effort deadline
		c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongTimeout))

		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid websocket frame dropped", "err", err)
			continue
		}
		select {
		case c.in <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			//nolint:errcheck // best-effort deadline; write error caught below
			c.ws.SetWriteDeadline(time.Now().Add(c.pongTimeout))
			if err := c.ws.WriteMessage(backend.TextMessage, data); err != nil {
				c.logger.Debug("websocket write failed", "err", err)
				c.Close()
				return
			}
		case <-ticker.C:
			//nolint:errcheck // best-effort deadline; ping error caught below
			c.ws.SetWriteDeadline(time.Now().Add(c.pongTimeout))
			if err := c.ws.WriteMessage(backend.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			//nolint:errcheck // best-effort close frame
			c.ws.WriteControl(backend.CloseMessage,
				backend.FormatCloseMessage(backend.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// flush writes whatever was queued before Close.
func (c *Conn) flush() {
	for {
		select {
		case data := <-c.send:
			//nolint:errcheck // best-effort deadline
			c.ws.SetWriteDeadline(time.Now().Add(c.pongTimeout))
			if err := c.ws.WriteMessage(backend.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}
