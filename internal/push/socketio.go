// Package push subscribes to the backend's Socket.IO channel and delivers
// its events as plain Go values. Reconnection lives here, not in callers.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

// Event is one server-to-client message, or a connection lifecycle signal
// (models.EventConnect, EventConnectError, EventDisconnect) with Err set
// where relevant.
type Event struct {
	Name string
	Data json.RawMessage
	Err  error
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no payload", e.Name)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Name, err)
	}
	return nil
}

type Client struct {
	url        string
	dialer     *websocket.Dialer
	logger     zerolog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

type Option func(*Client)

func WithBackoff(initial, limit time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = initial
		c.maxBackoff = limit
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client for the Socket.IO endpoint served next to the HTTP API
// at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	endpoint, err := socketURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		url: endpoint,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger:     zerolog.Nop(),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) URL() string {
	return c.url
}

func socketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := url.Values{}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var errServerDisconnect = errors.New("server closed the socket")

// Run keeps a subscription open until ctx is cancelled, reconnecting with
// capped exponential backoff. sink is closed when Run returns.
func (c *Client) Run(ctx context.Context, sink chan<- Event) error {
	defer close(sink)

	backoff := c.minBackoff
	for {
		connected, err := c.session(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = c.minBackoff
			c.emit(ctx, sink, Event{Name: models.EventDisconnect, Err: err})
		}
		c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("push channel down")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// session runs one websocket connection. It reports whether the Socket.IO
// handshake completed so Run can tell a drop from a refusal.
func (c *Client) session(ctx context.Context, sink chan<- Event) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		err = fmt.Errorf("dial %s: %w", c.url, err)
		c.emit(ctx, sink, Event{Name: models.EventConnectError, Err: err})
		return false, err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	connected := false
	var deadline time.Duration
	for {
		if deadline > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(deadline))
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return connected, fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		f, err := decodeFrame(data)
		if err != nil {
			c.logger.Debug().Err(err).Bytes("frame", data).Msg("dropping malformed frame")
			continue
		}

		switch f.engine {
		case engineOpen:
			var hs handshake
			if err := json.Unmarshal([]byte(f.raw), &hs); err == nil && hs.PingInterval > 0 {
				deadline = time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
			}
			if err := conn.WriteMessage(websocket.TextMessage, connectPacket()); err != nil {
				return connected, fmt.Errorf("send connect: %w", err)
			}
		case enginePing:
			if err := conn.WriteMessage(websocket.TextMessage, pongPacket()); err != nil {
				return connected, fmt.Errorf("send pong: %w", err)
			}
		case engineClose:
			return connected, errServerDisconnect
		case engineMessage:
			if f.namespace != "" && f.namespace != "/" {
				continue
			}
			switch f.socket {
			case socketConnect:
				connected = true
				c.logger.Info().Str("url", c.url).Msg("push channel connected")
				c.emit(ctx, sink, Event{Name: models.EventConnect})
			case socketConnectError:
				err := fmt.Errorf("connect refused: %s", connectErrorMessage(f.payload))
				c.emit(ctx, sink, Event{Name: models.EventConnectError, Err: err})
				return connected, err
			case socketDisconnect:
				return connected, errServerDisconnect
			case socketEvent:
				c.emit(ctx, sink, Event{Name: f.event, Data: f.payload})
			}
		}
	}
}

func (c *Client) emit(ctx context.Context, sink chan<- Event, ev Event) {
	select {
	case <-ctx.Done():
	case sink <- ev:
	}
}
