package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Vasu1712/scenyx-present/internal/channel"
	"github.com/Vasu1712/scenyx-present/internal/protocol"
)

// ClientOptions configure a Client.
type ClientOptions struct {
	// Header is sent with every dial, e.g. an Authorization bearer token.
	Header http.Header
	// RetryInterval is the pause between reconnect attempts.
	RetryInterval time.Duration
	Dialer        *websocket.Dialer
	Logger        *slog.Logger
}

// Client is a channel.Channel over a websocket to the relay. It reconnects
// until its context ends; the relay sends a fresh snapshot on every
// connect, so nothing is replayed.
type Client struct {
	url    string
	header http.Header
	retry  time.Duration
	dialer *websocket.Dialer
	log    *slog.Logger

	registry channel.Registry
	status   channel.Status

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ channel.Channel = (*Client)(nil)

// NewClient returns a client for the relay at url. Call Run to connect.
func NewClient(url string, opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		url:    url,
		header: opts.Header,
		retry:  opts.RetryInterval,
		dialer: opts.Dialer,
		log:    opts.Logger.With("component", "client"),
	}
}

// Run keeps the client connected until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := c.connectAndRead(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("connection lost", "err", err)
			}
			t.Reset(c.retry)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		c.status.Set(false)
	}()

	c.log.Info("connected", "url", c.url)
	c.status.Set(true)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		event, payload, err := protocol.Decode(msg)
		if err != nil {
			c.log.Debug("undecodable frame dropped", "err", err)
			continue
		}
		if !c.registry.Dispatch(event, payload) {
			c.log.Debug("no subscriber", "event", event)
		}
	}
}

// Publish sends an event to the relay. It fails with
// channel.ErrTransportUnavailable while disconnected.
func (c *Client) Publish(ctx context.Context, event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return channel.ErrTransportUnavailable
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: %v", channel.ErrTransportUnavailable, err)
	}
	return nil
}

// Subscribe registers a handler. Handlers run on the read goroutine in
// delivery order.
func (c *Client) Subscribe(event string, h channel.Handler) func() {
	return c.registry.Subscribe(event, h)
}

// Connected reports whether a connection is up.
func (c *Client) Connected() bool { return c.status.Connected() }

// OnConnection watches connection changes.
func (c *Client) OnConnection(fn func(bool)) func() { return c.status.Watch(fn) }
