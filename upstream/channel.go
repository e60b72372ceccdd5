package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Close codes used on the push channel
const (
	CloseNormalClosure   = websocket.CloseNormalClosure
	CloseGoingAway       = websocket.CloseGoingAway
	CloseAbnormalClosure = websocket.CloseAbnormalClosure
)

const (
	pushPath          = "/filter-ws"
	closeWriteTimeout = time.Second
	eventBuffer       = 16
)

// Event is one thing that happened on a channel: a message, a
// connection-level error or the close of the channel.
type Event struct {
	Message     *Message
	Err         error
	Closed      bool
	CloseCode   int
	CloseReason string
}

// Channel is a persistent, message-oriented connection.
// Events are delivered in arrival order; the events channel is closed once
// the connection is gone.
type Channel interface {
	Send(ctx context.Context, v any) error
	Events() <-chan Event
	Close(code int, reason string) error
}

// Dialer opens channels
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// PushURLFromBase derives the channel address from the REST API root
func PushURLFromBase(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + pushPath
	return u.String(), nil
}

// WSDialer opens websocket channels to a fixed address
type WSDialer struct {
	url    string
	dialer *websocket.Dialer
	logger *logrus.Logger
}

// NewWSDialer validates the channel address and builds a dialer
func NewWSDialer(rawURL string, handshakeTimeout time.Duration, logger *logrus.Logger) (*WSDialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid push url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" || u.Host == "" {
		return nil, fmt.Errorf("push url must be absolute ws(s), got %q", rawURL)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &WSDialer{
		url: u.String(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}, nil
}

// Dial opens a new channel
func (d *WSDialer) Dial(ctx context.Context) (Channel, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w", d.url, &HTTPError{StatusCode: resp.StatusCode})
		}
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}

	d.logger.WithField("url", d.url).Debug("Push channel opened")

	c := &wsChannel{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

type wsChannel struct {
	conn      *websocket.Conn
	events    chan Event
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsChannel) Events() <-chan Event {
	return c.events
}

func (c *wsChannel) Send(ctx context.Context, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *wsChannel) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(code, reason)
		err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()

		close(c.done)
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

func (c *wsChannel) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.emit(Event{Closed: true, CloseCode: closeErr.Code, CloseReason: closeErr.Text})
				return
			}
			if c.emit(Event{Err: err}) {
				c.emit(Event{Closed: true, CloseCode: CloseAbnormalClosure, CloseReason: err.Error()})
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			if !c.emit(Event{Err: fmt.Errorf("%w: channel message %q", ErrMalformedResponse, truncate(data, 128))}) {
				return
			}
			continue
		}
		if !c.emit(Event{Message: &msg}) {
			return
		}
	}
}

// emit delivers an event unless the channel was closed locally
func (c *wsChannel) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
