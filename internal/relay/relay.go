// Package relay owns the navigation state of a live session and decides,
// per inbound event, how it changes and who hears about it. It does no I/O:
// every call returns the frames to deliver and, when a presentation's slide
// index must be looked up, a fetch for the caller to run off the loop.
package relay

import (
	"log/slog"

	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/navigation"
	"github.com/Vasu1712/scenyx-present/internal/protocol"
)

// ConnID identifies one connection to the relay.
type ConnID string

// Role is what a connection may do.
type Role string

const (
	// RolePresenter drives the session. At most one connection holds it.
	RolePresenter Role = "presenter"
	// RoleAudience only follows.
	RoleAudience Role = "audience"
	// RoleRemote follows and may send navigate requests.
	RoleRemote Role = "remote"
)

// ParseRole maps a query value to a role, defaulting to audience.
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RolePresenter, RoleRemote:
		return r
	}
	return RoleAudience
}

// Delivery is one outbound event. With To set it goes to that connection
// only; otherwise it is broadcast to every connection except Except.
type Delivery struct {
	To      ConnID
	Except  ConnID
	Event   string
	Payload any
}

// Fetch asks the caller to load a presentation's slide index and report it
// back through Resolved with the same Seq.
type Fetch struct {
	Seq          uint64
	Presentation string
}

// Result is the outcome of one call.
type Result struct {
	Deliveries []Delivery
	Fetch      *Fetch
}

func (r *Result) merge(o Result) {
	r.Deliveries = append(r.Deliveries, o.Deliveries...)
	if o.Fetch != nil {
		r.Fetch = o.Fetch
	}
}

type inbound struct {
	from    ConnID
	event   string
	payload any
}

// pendingLoad is a presentation-loaded waiting for its index. Presenter
// events received meanwhile queue behind it.
type pendingLoad struct {
	seq          uint64
	presentation string
	queue        []inbound
}

// Relay is the single owner of a session's navigation state. It is not safe
// for concurrent use; callers serialize access through one loop.
type Relay struct {
	machine        *navigation.Machine
	conns          map[ConnID]Role
	presenter      ConnID
	relayNavigates bool
	pending        *pendingLoad
	seq            uint64
	log            *slog.Logger
}

// Options configure a Relay.
type Options struct {
	// RelayNavigates makes the relay interpret navigate requests itself
	// instead of forwarding them to the presenter.
	RelayNavigates bool
	Logger         *slog.Logger
}

// New returns a relay with no presentation loaded.
func New(opts Options) *Relay {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		machine:        navigation.New(),
		conns:          make(map[ConnID]Role),
		relayNavigates: opts.RelayNavigates,
		log:            logger.With("component", "relay"),
	}
}

// State returns a copy of the current navigation state.
func (r *Relay) State() models.NavigationState { return r.machine.State() }

// Presenter returns the connection holding presenter authority, if any.
func (r *Relay) Presenter() (ConnID, bool) { return r.presenter, r.presenter != "" }

// Role returns the role of a connected connection.
func (r *Relay) Role(id ConnID) (Role, bool) {
	role, ok := r.conns[id]
	return role, ok
}

// Connect registers a connection and sends it the current state. A
// presenter connection takes authority from any previous presenter, which
// is demoted to audience and told so.
func (r *Relay) Connect(id ConnID, role Role) Result {
	var res Result
	if role == RolePresenter {
		if prev := r.presenter; prev != "" && prev != id {
			r.conns[prev] = RoleAudience
			res.Deliveries = append(res.Deliveries, Delivery{
				To:      prev,
				Event:   protocol.PresenterRevoked,
				Payload: protocol.RevokedPayload{Reason: "another presenter connected"},
			})
			r.log.Info("presenter replaced", "conn", id, "previous", prev)
		}
		r.presenter = id
	}
	r.conns[id] = role
	r.log.Debug("connected", "conn", id, "role", role)
	res.Deliveries = append(res.Deliveries, r.snapshotTo(id))
	return res
}

// Disconnect forgets a connection. A leaving presenter leaves the session
// without one.
func (r *Relay) Disconnect(id ConnID) {
	delete(r.conns, id)
	if r.presenter == id {
		r.presenter = ""
		r.log.Info("presenter left", "conn", id)
	}
}

// Handle applies one decoded inbound event.
func (r *Relay) Handle(from ConnID, event string, payload any) Result {
	if _, ok := r.conns[from]; !ok {
		r.log.Debug("event from unknown connection dropped", "conn", from, "event", event)
		return Result{}
	}
	switch event {
	case protocol.RequestState:
		return r.RequestState(from)
	case protocol.Navigate:
		if p, ok := payload.(protocol.NavigateRequest); ok {
			return r.Navigate(from, p)
		}
	case protocol.NavigateTo:
		if p, ok := payload.(protocol.PositionUpdate); ok {
			return r.NavigateTo(from, p)
		}
	case protocol.SlideChanged:
		if p, ok := payload.(protocol.PositionUpdate); ok {
			return r.SlideChanged(from, p)
		}
	case protocol.PresentationLoaded:
		if p, ok := payload.(protocol.LoadedPayload); ok {
			return r.PresentationLoaded(from, p)
		}
	default:
		r.log.Debug("event not accepted from clients", "conn", from, "event", event)
		return Result{}
	}
	r.log.Warn("payload does not match event", "conn", from, "event", event)
	return Result{}
}

// RequestState answers with a fresh snapshot.
func (r *Relay) RequestState(from ConnID) Result {
	return Result{Deliveries: []Delivery{r.snapshotTo(from)}}
}

// SlideChanged records the presenter's new position and tells everyone
// else. The presenter may attach a fresh slide index.
func (r *Relay) SlideChanged(from ConnID, p protocol.PositionUpdate) Result {
	if held, ok := r.hold(from, protocol.SlideChanged, p); ok {
		return held
	}
	if p.TotalSlides > 0 || len(p.Notes) > 0 {
		r.machine.UpdateIndex(p.TotalSlides, p.Notes)
	}
	pos, err := r.machine.NavigateTo(p.IndexH, p.IndexV)
	if err != nil {
		r.log.Debug("slide-changed dropped", "conn", from, "err", err)
		return Result{}
	}
	out := p
	out.IndexH, out.IndexV = pos.IndexH, pos.IndexV
	return Result{Deliveries: []Delivery{{Except: from, Event: protocol.SlideChanged, Payload: out}}}
}

// NavigateTo jumps to an absolute position and tells every connection,
// the sender included.
func (r *Relay) NavigateTo(from ConnID, p protocol.PositionUpdate) Result {
	if held, ok := r.hold(from, protocol.NavigateTo, p); ok {
		return held
	}
	pos, err := r.machine.NavigateTo(p.IndexH, p.IndexV)
	if err != nil {
		r.log.Debug("navigate-to dropped", "conn", from, "err", err)
		return Result{}
	}
	return Result{Deliveries: []Delivery{{
		Event:   protocol.NavigateTo,
		Payload: protocol.PositionUpdate{IndexH: pos.IndexH, IndexV: pos.IndexV},
	}}}
}

// Navigate handles a relative move request from any connection. By default
// it is forwarded to the presenter, who answers with an absolute position.
func (r *Relay) Navigate(from ConnID, p protocol.NavigateRequest) Result {
	dir, err := navigation.ParseDirection(string(p.Direction))
	if err != nil {
		r.log.Debug("navigate dropped", "conn", from, "err", err)
		return Result{}
	}

	if !r.relayNavigates {
		if r.presenter == "" {
			r.log.Debug("navigate dropped: no presenter", "conn", from, "direction", dir)
			return Result{}
		}
		return Result{Deliveries: []Delivery{{
			To:      r.presenter,
			Event:   protocol.Navigate,
			Payload: protocol.NavigateRequest{Direction: dir},
		}}}
	}

	if r.pending != nil {
		r.pending.queue = append(r.pending.queue, inbound{from, protocol.Navigate, p})
		return Result{}
	}
	pos, err := r.machine.Navigate(dir)
	if err != nil {
		r.log.Debug("navigate dropped", "conn", from, "err", err)
		return Result{}
	}
	return Result{Deliveries: []Delivery{{
		Event:   protocol.NavigateTo,
		Payload: protocol.PositionUpdate{IndexH: pos.IndexH, IndexV: pos.IndexV},
	}}}
}

// PresentationLoaded switches the session to another presentation and
// resets the position. Without a slide index in the payload the relay asks
// for one to be fetched and holds later presenter events until it arrives.
func (r *Relay) PresentationLoaded(from ConnID, p protocol.LoadedPayload) Result {
	if held, ok := r.hold(from, protocol.PresentationLoaded, p); ok {
		return held
	}
	if p.Presentation == "" {
		r.log.Debug("presentation-loaded without presentation dropped", "conn", from)
		return Result{}
	}
	if p.TotalSlides <= 0 && len(p.Notes) == 0 {
		r.seq++
		r.pending = &pendingLoad{seq: r.seq, presentation: p.Presentation}
		r.log.Debug("resolving slide index", "presentation", p.Presentation, "seq", r.seq)
		return Result{Fetch: &Fetch{Seq: r.seq, Presentation: p.Presentation}}
	}
	return r.load(p.Presentation, p.TotalSlides, p.Notes)
}

// Resolved completes the fetch with the given Seq. A failed lookup still
// loads the presentation, with an empty index. Results for superseded
// fetches are ignored.
func (r *Relay) Resolved(seq uint64, index deck.Index, err error) Result {
	if r.pending == nil || r.pending.seq != seq {
		r.log.Debug("stale index resolution ignored", "seq", seq)
		return Result{}
	}
	pending := r.pending
	r.pending = nil
	if err != nil {
		r.log.Warn("failed to resolve slide index", "presentation", pending.presentation, "err", err)
		index = deck.Index{}
	}

	res := r.load(pending.presentation, index.TotalSlides, index.Notes)
	for i, in := range pending.queue {
		if r.pending != nil {
			// A queued load started another fetch; the rest waits for it.
			r.pending.queue = append(r.pending.queue, pending.queue[i:]...)
			break
		}
		res.merge(r.Handle(in.from, in.event, in.payload))
	}
	return res
}

func (r *Relay) load(presentation string, totalSlides int, notes []models.NoteEntry) Result {
	r.machine.Load(presentation, totalSlides, notes)
	state := r.machine.State()
	r.log.Info("presentation loaded", "presentation", presentation, "totalSlides", state.TotalSlides)
	return Result{Deliveries: []Delivery{
		{
			Event: protocol.PresentationLoaded,
			Payload: protocol.LoadedPayload{
				Presentation: presentation,
				TotalSlides:  state.TotalSlides,
				Notes:        state.Notes,
			},
		},
		{Event: protocol.StateUpdate, Payload: state},
	}}
}

// hold drops position and load events from anyone but the presenter, and
// queues the presenter's while an index lookup is outstanding.
func (r *Relay) hold(from ConnID, event string, payload any) (Result, bool) {
	if from != r.presenter || r.presenter == "" {
		r.log.Debug("event from non-presenter dropped", "conn", from, "event", event)
		return Result{}, true
	}
	if r.pending != nil {
		r.pending.queue = append(r.pending.queue, inbound{from, event, payload})
		return Result{}, true
	}
	return Result{}, false
}

func (r *Relay) snapshotTo(id ConnID) Delivery {
	return Delivery{To: id, Event: protocol.StateUpdate, Payload: r.machine.State()}
}
