// Package ws carries the sync channel over websockets: the server side hub
// that drives the relay, and a reconnecting client.
package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/protocol"
	"github.com/Vasu1712/scenyx-present/internal/relay"
)

// Fetcher loads a presentation by filename. storage.Store satisfies it.
type Fetcher interface {
	Get(ctx context.Context, filename string) (*models.Presentation, error)
}

// Inbound is a decoded event read from a connection.
type Inbound struct {
	Conn    *Conn
	Event   string
	Payload any
}

type resolution struct {
	seq   uint64
	index deck.Index
	err   error
}

// Hub serializes every connection's events through one relay.
type Hub struct {
	register   chan *Conn
	unregister chan *Conn
	inbound    chan Inbound
	resolved   chan resolution
	stateReqs  chan chan models.NavigationState
	done       chan struct{}

	conns        map[relay.ConnID]*Conn
	relay        *relay.Relay
	store        Fetcher
	fetchTimeout time.Duration
	log          *slog.Logger
}

// NewHub builds a hub around r. Index lookups go to store.
func NewHub(r *relay.Relay, store Fetcher, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:     make(chan *Conn),
		unregister:   make(chan *Conn),
		inbound:      make(chan Inbound, 64),
		resolved:     make(chan resolution),
		stateReqs:    make(chan chan models.NavigationState),
		done:         make(chan struct{}),
		conns:        make(map[relay.ConnID]*Conn),
		relay:        r,
		store:        store,
		fetchTimeout: 10 * time.Second,
		log:          logger.With("component", "hub"),
	}
}

// Run is the relay loop. It returns when ctx is cancelled, after closing
// every connection's send queue.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for id, c := range h.conns {
			close(c.Send)
			delete(h.conns, id)
		}
		close(h.done)
	}()

	for {
		select {
		case c := <-h.register:
			h.conns[c.ID] = c
			h.log.Info("client connected", "conn", c.ID, "role", c.Role, "clients", len(h.conns))
			h.apply(ctx, h.relay.Connect(c.ID, c.Role))
		case c := <-h.unregister:
			h.drop(c)
		case in := <-h.inbound:
			if _, ok := h.conns[in.Conn.ID]; !ok {
				continue
			}
			h.apply(ctx, h.relay.Handle(in.Conn.ID, in.Event, in.Payload))
		case res := <-h.resolved:
			h.apply(ctx, h.relay.Resolved(res.seq, res.index, res.err))
		case reply := <-h.stateReqs:
			reply <- h.relay.State()
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) drop(c *Conn) {
	if _, ok := h.conns[c.ID]; !ok {
		return
	}
	delete(h.conns, c.ID)
	close(c.Send)
	h.relay.Disconnect(c.ID)
	h.log.Info("client disconnected", "conn", c.ID, "clients", len(h.conns))
}

func (h *Hub) apply(ctx context.Context, res relay.Result) {
	for _, d := range res.Deliveries {
		frame, err := protocol.Encode(d.Event, d.Payload)
		if err != nil {
			h.log.Error("failed to encode event", "event", d.Event, "err", err)
			continue
		}
		if d.To != "" {
			if c, ok := h.conns[d.To]; ok {
				h.send(c, frame)
			}
			continue
		}
		for id, c := range h.conns {
			if id != d.Except {
				h.send(c, frame)
			}
		}
	}
	if res.Fetch != nil {
		go h.fetch(ctx, *res.Fetch)
	}
}

// send queues a frame without blocking the loop. A client whose queue is
// full is disconnected.
func (h *Hub) send(c *Conn, frame []byte) {
	select {
	case c.Send <- frame:
	default:
		h.log.Warn("client too slow, disconnecting", "conn", c.ID)
		h.drop(c)
	}
}

func (h *Hub) fetch(ctx context.Context, f relay.Fetch) {
	fctx, cancel := context.WithTimeout(ctx, h.fetchTimeout)
	defer cancel()

	var index deck.Index
	p, err := h.store.Get(fctx, f.Presentation)
	if err == nil {
		index, err = deck.IndexOf(p)
	}
	select {
	case h.resolved <- resolution{seq: f.Seq, index: index, err: err}:
	case <-ctx.Done():
	}
}

// State returns the relay's current state, read through the loop.
func (h *Hub) State(ctx context.Context) (models.NavigationState, error) {
	reply := make(chan models.NavigationState, 1)
	select {
	case h.stateReqs <- reply:
	case <-h.done:
		return models.NavigationState{}, ErrClosed
	case <-ctx.Done():
		return models.NavigationState{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return models.NavigationState{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) post(c *Conn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(in Inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}
