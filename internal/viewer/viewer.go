// Package viewer keeps a client's displayed presentation in step with the
// session. Snapshots and events from the sync channel are applied in order on
// one loop; a presentation change fetches and renders the new presentation
// before any later position is shown.
package viewer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Vasu1712/scenyx-present/internal/channel"
	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/navigation"
	"github.com/Vasu1712/scenyx-present/internal/protocol"
	"github.com/Vasu1712/scenyx-present/internal/relay"
)

// ErrNotPresenter is returned by presenter actions on other roles.
var ErrNotPresenter = errors.New("only the presenter can do that")

// ErrStopped is returned once Run has returned.
var ErrStopped = errors.New("viewer stopped")

// Loader fetches presentations. storage.Store and HTTPLoader satisfy it.
type Loader interface {
	Get(ctx context.Context, filename string) (*models.Presentation, error)
}

// Surface is what a viewer draws on.
type Surface interface {
	// Render replaces the displayed presentation. Content that fails to
	// parse is expected to render as an error slide.
	Render(p *models.Presentation)
	// Unavailable reports a presentation that could not be fetched.
	Unavailable(presentation string, err error)
	// Show moves to the state's position.
	Show(state models.NavigationState)
	// Connection reports sync channel connectivity.
	Connection(connected bool)
}

type load struct {
	seq          uint64
	presentation string
	// announce is set when this client chose the presentation and must
	// tell the session once it is loaded.
	announce bool
}

type fetched struct {
	seq uint64
	p   *models.Presentation
	err error
}

// Viewer reconciles one client with the session.
type Viewer struct {
	role    relay.Role
	ch      channel.Channel
	loader  Loader
	surface Surface
	log     *slog.Logger

	inbox   chan func(context.Context)
	results chan fetched
	done    chan struct{}

	// Owned by the loop.
	machine *navigation.Machine
	shown   string
	loading *load
	queue   []func(context.Context)
	seq     uint64
}

// New builds a viewer for role. Nothing happens until Run.
func New(role relay.Role, ch channel.Channel, loader Loader, surface Surface, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{
		role:    role,
		ch:      ch,
		loader:  loader,
		surface: surface,
		log:     logger.With("component", "viewer", "role", role),
		inbox:   make(chan func(context.Context), 256),
		results: make(chan fetched),
		done:    make(chan struct{}),
		machine: navigation.New(),
	}
}

// Run subscribes to the channel and applies events until ctx ends.
func (v *Viewer) Run(ctx context.Context) error {
	defer close(v.done)

	unsubs := []func(){
		v.ch.Subscribe(protocol.StateUpdate, v.on(func(ctx context.Context, p any) {
			if s, ok := p.(models.NavigationState); ok {
				v.applySnapshot(ctx, s)
			}
		})),
		v.ch.Subscribe(protocol.PresentationLoaded, v.on(func(ctx context.Context, p any) {
			if l, ok := p.(protocol.LoadedPayload); ok {
				v.applyLoaded(ctx, l)
			}
		})),
		v.ch.Subscribe(protocol.SlideChanged, v.onPosition()),
		v.ch.Subscribe(protocol.NavigateTo, v.onPosition()),
		v.ch.Subscribe(protocol.Navigate, v.on(func(ctx context.Context, p any) {
			if n, ok := p.(protocol.NavigateRequest); ok {
				v.whenLoaded(ctx, func(ctx context.Context) { v.navigate(ctx, n.Direction) })
			}
		})),
		v.ch.Subscribe(protocol.PresenterRevoked, v.on(func(ctx context.Context, p any) {
			if r, ok := p.(protocol.RevokedPayload); ok && v.role == relay.RolePresenter {
				v.log.Warn("presenter authority revoked", "reason", r.Reason)
				v.role = relay.RoleAudience
			}
		})),
		v.ch.OnConnection(func(up bool) {
			v.post(func(ctx context.Context) { v.connection(ctx, up) })
		}),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	for {
		select {
		case fn := <-v.inbox:
			fn(ctx)
		case res := <-v.results:
			v.finishLoad(ctx, res)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (v *Viewer) post(fn func(context.Context)) bool {
	select {
	case v.inbox <- fn:
		return true
	case <-v.done:
		return false
	}
}

func (v *Viewer) on(fn func(ctx context.Context, payload any)) channel.Handler {
	return func(payload any) {
		v.post(func(ctx context.Context) { fn(ctx, payload) })
	}
}

func (v *Viewer) onPosition() channel.Handler {
	return v.on(func(ctx context.Context, p any) {
		if u, ok := p.(protocol.PositionUpdate); ok {
			v.whenLoaded(ctx, func(context.Context) { v.applyPosition(u) })
		}
	})
}

// whenLoaded runs fn now, or after the presentation being fetched is shown.
func (v *Viewer) whenLoaded(ctx context.Context, fn func(context.Context)) {
	if v.loading != nil {
		v.queue = append(v.queue, fn)
		return
	}
	fn(ctx)
}

func (v *Viewer) connection(ctx context.Context, up bool) {
	v.surface.Connection(up)
	if !up {
		return
	}
	// Reconcile from a fresh snapshot rather than replaying history.
	if err := v.ch.Publish(ctx, protocol.RequestState, nil); err != nil {
		v.log.Debug("state request failed", "err", err)
	}
}

// applySnapshot overwrites the local state. A different presentation is
// fetched and rendered before the snapshot's position is shown.
func (v *Viewer) applySnapshot(ctx context.Context, s models.NavigationState) {
	id := s.PresentationID()
	if v.loading != nil && v.loading.announce {
		return
	}
	if v.role == relay.RolePresenter && v.machine.Loaded() {
		// A loaded presenter is the authority. A snapshot naming another
		// presentation means the relay lost our state; tell it again.
		if id != v.machine.State().PresentationID() {
			v.announce(ctx)
		}
		return
	}

	v.queue = nil
	v.machine.Restore(s)
	if id == "" {
		return
	}
	if v.loading != nil && v.loading.presentation == id {
		return
	}
	if id != v.shown {
		v.startLoad(ctx, id, false)
		return
	}
	v.cancelLoad()
	v.surface.Show(v.machine.State())
}

func (v *Viewer) applyLoaded(ctx context.Context, l protocol.LoadedPayload) {
	if l.Presentation == "" {
		return
	}
	if (v.loading != nil && v.loading.announce) || (v.role == relay.RolePresenter && v.machine.Loaded()) {
		// Our own announcement coming back.
		return
	}
	v.queue = nil
	v.machine.Load(l.Presentation, l.TotalSlides, l.Notes)
	if v.loading != nil && v.loading.presentation == l.Presentation {
		return
	}
	if l.Presentation != v.shown {
		v.startLoad(ctx, l.Presentation, false)
		return
	}
	v.cancelLoad()
	v.surface.Show(v.machine.State())
}

// cancelLoad abandons an in-flight fetch; its result is dropped on arrival.
func (v *Viewer) cancelLoad() {
	if v.loading != nil {
		v.log.Debug("fetch superseded", "presentation", v.loading.presentation)
		v.loading = nil
	}
}

// applyPosition shows an absolute position as received.
func (v *Viewer) applyPosition(u protocol.PositionUpdate) {
	if u.TotalSlides > 0 || len(u.Notes) > 0 {
		v.machine.UpdateIndex(u.TotalSlides, u.Notes)
	}
	if _, err := v.machine.NavigateTo(u.IndexH, u.IndexV); err != nil {
		v.log.Debug("position ignored", "err", err)
		return
	}
	v.surface.Show(v.machine.State())
}

// navigate moves the presenter's own machine and tells the session.
func (v *Viewer) navigate(ctx context.Context, dir navigation.Direction) {
	if v.role != relay.RolePresenter {
		return
	}
	pos, err := v.machine.Navigate(dir)
	if err != nil {
		v.log.Debug("navigate ignored", "direction", dir, "err", err)
		return
	}
	v.surface.Show(v.machine.State())
	if err := v.ch.Publish(ctx, protocol.SlideChanged, protocol.PositionUpdate{IndexH: pos.IndexH, IndexV: pos.IndexV}); err != nil {
		v.log.Warn("failed to publish slide change", "err", err)
	}
}

func (v *Viewer) announce(ctx context.Context) {
	s := v.machine.State()
	if err := v.ch.Publish(ctx, protocol.PresentationLoaded, protocol.LoadedPayload{
		Presentation: s.PresentationID(),
		TotalSlides:  s.TotalSlides,
		Notes:        s.Notes,
	}); err != nil {
		v.log.Warn("failed to announce presentation", "err", err)
		return
	}
	if s.IndexH != 0 || s.IndexV != 0 {
		if err := v.ch.Publish(ctx, protocol.SlideChanged, protocol.PositionUpdate{IndexH: s.IndexH, IndexV: s.IndexV}); err != nil {
			v.log.Warn("failed to publish slide change", "err", err)
		}
	}
}

func (v *Viewer) startLoad(ctx context.Context, id string, announce bool) {
	v.seq++
	l := &load{seq: v.seq, presentation: id, announce: announce}
	v.loading = l
	v.log.Debug("fetching presentation", "presentation", id)
	go func() {
		p, err := v.loader.Get(ctx, id)
		select {
		case v.results <- fetched{seq: l.seq, p: p, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (v *Viewer) finishLoad(ctx context.Context, res fetched) {
	if v.loading == nil || v.loading.seq != res.seq {
		return
	}
	l := v.loading
	v.loading = nil
	queue := v.queue
	v.queue = nil

	if res.err != nil {
		v.log.Warn("failed to fetch presentation", "presentation", l.presentation, "err", res.err)
		v.shown = ""
		v.surface.Unavailable(l.presentation, res.err)
		return
	}

	v.surface.Render(res.p)
	v.shown = l.presentation
	state := v.machine.State()
	switch {
	case l.announce:
		index, err := deck.IndexOf(res.p)
		if err != nil {
			v.log.Warn("presentation has no slide index", "presentation", l.presentation, "err", err)
		}
		v.machine.Load(l.presentation, index.TotalSlides, index.Notes)
		v.announce(ctx)
	case state.PresentationID() == l.presentation && state.TotalSlides == 0:
		if index, err := deck.IndexOf(res.p); err == nil {
			v.machine.UpdateIndex(index.TotalSlides, index.Notes)
		}
	}
	v.surface.Show(v.machine.State())

	for i, fn := range queue {
		if v.loading != nil {
			v.queue = append(v.queue, queue[i:]...)
			return
		}
		fn(ctx)
	}
}

// Present makes this presenter show a stored presentation and announce it.
func (v *Viewer) Present(filename string) error {
	return v.call(func(ctx context.Context) error {
		if v.role != relay.RolePresenter {
			return ErrNotPresenter
		}
		v.queue = nil
		v.startLoad(ctx, filename, true)
		return nil
	})
}

// Navigate applies a local move. The presenter moves and publishes; a
// remote only sends the request and never moves its own display.
func (v *Viewer) Navigate(dir navigation.Direction) error {
	if _, err := navigation.ParseDirection(string(dir)); err != nil {
		return err
	}
	return v.call(func(ctx context.Context) error {
		switch v.role {
		case relay.RolePresenter:
			v.whenLoaded(ctx, func(ctx context.Context) { v.navigate(ctx, dir) })
			return nil
		case relay.RoleRemote:
			return v.ch.Publish(ctx, protocol.Navigate, protocol.NavigateRequest{Direction: dir})
		}
		return ErrNotPresenter
	})
}

// State returns the viewer's local copy of the session state and the
// presentation currently rendered.
func (v *Viewer) State() (models.NavigationState, string, error) {
	var (
		state models.NavigationState
		shown string
	)
	err := v.call(func(context.Context) error {
		state, shown = v.machine.State(), v.shown
		return nil
	})
	return state, shown, err
}

// Role returns the viewer's current role; a revoked presenter becomes
// audience.
func (v *Viewer) Role() (relay.Role, error) {
	var role relay.Role
	err := v.call(func(context.Context) error {
		role = v.role
		return nil
	})
	return role, err
}

// call runs fn on the loop and waits for its result.
func (v *Viewer) call(fn func(context.Context) error) error {
	reply := make(chan error, 1)
	if !v.post(func(ctx context.Context) { reply <- fn(ctx) }) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-v.done:
		return ErrStopped
	}
}
