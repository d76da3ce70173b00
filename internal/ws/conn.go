package ws

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Vasu1712/scenyx-present/internal/protocol"
	"github.com/Vasu1712/scenyx-present/internal/relay"
)

// ErrClosed is returned once the hub has stopped.
var ErrClosed = errors.New("hub closed")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// Conn is one websocket connection registered with the hub.
type Conn struct {
	ID   relay.ConnID
	Role relay.Role
	Send chan []byte

	ws      *websocket.Conn
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewConn wraps an upgraded websocket. limiter bounds inbound events; nil
// means unlimited.
func NewConn(ws *websocket.Conn, role relay.Role, limiter *rate.Limiter, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	id := relay.ConnID(uuid.NewString())
	return &Conn{
		ID:      id,
		Role:    role,
		Send:    make(chan []byte, sendBuffer),
		ws:      ws,
		limiter: limiter,
		log:     logger.With("conn", id, "role", role),
	}
}

// Serve registers c with the hub and pumps frames until either side goes
// away. It blocks until the connection is closed.
func (h *Hub) Serve(c *Conn) {
	if !h.post(c) {
		c.ws.Close()
		return
	}
	go c.writePump()
	c.readPump(h)
}

func (c *Conn) readPump(h *Hub) {
	defer func() {
		h.leave(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", "err", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.log.Debug("rate limited, event dropped")
			continue
		}
		event, payload, err := protocol.Decode(msg)
		if err != nil {
			c.log.Debug("undecodable frame dropped", "err", err)
			continue
		}
		if !h.deliver(Inbound{Conn: c, Event: event, Payload: payload}) {
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("write failed", "err", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
