// Package gate implements the timed confirmation that guards irreversible actions.
//
// A gate opens with a countdown. Confirm is refused until the countdown reaches
// zero; Cancel is always accepted. Every way out of the open states stops the
// ticker that drives the countdown, and ticks belonging to an earlier opening
// are discarded.
package gate

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultCountdown = 5
	DefaultInterval  = time.Second
)

var (
	ErrNotOpen           = errors.New("confirmation is not open")
	ErrNotArmed          = errors.New("confirmation is not armed yet")
	ErrConfirmInProgress = errors.New("confirmation already in progress")
)

type State int

const (
	Hidden State = iota
	Counting
	Ready
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Counting:
		return "counting"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

type Status struct {
	State     State `json:"-"`
	Remaining int   `json:"countdown_seconds_remaining"`
	Armed     bool  `json:"armed"`
	Visible   bool  `json:"visible"`
}

type Gate struct {
	mu         sync.Mutex
	countdown  int
	interval   time.Duration
	clock      Clock
	remaining  int
	armed      bool
	visible    bool
	confirming bool
	generation uint64
	stop       func()
}

type Option func(*Gate)

func WithCountdown(n int) Option {
	return func(g *Gate) {
		if n >= 0 {
			g.countdown = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.interval = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(g *Gate) { g.clock = c }
}

// Manual disables the scheduler; the caller drives the countdown with Tick.
func Manual() Option {
	return func(g *Gate) { g.clock = nil }
}

func New(opts ...Option) *Gate {
	g := &Gate{
		countdown: DefaultCountdown,
		interval:  DefaultInterval,
		clock:     realClock{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.remaining = g.countdown
	return g
}

// Open shows the gate with a fresh countdown. Opening an already open gate
// restarts it.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	g.generation++
	g.remaining = g.countdown
	g.armed = false
	g.visible = true
	g.confirming = false

	if g.remaining == 0 {
		g.armed = true
		return
	}
	if g.clock != nil {
		g.startLocked(g.generation)
	}
}

// Tick advances the countdown by one unit.
func (g *Gate) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tickLocked(g.generation)
}

// Confirm runs action once the gate is armed. On success the gate closes; on
// failure it stays armed so the user can try again.
func (g *Gate) Confirm(ctx context.Context, action func(context.Context) error) error {
	g.mu.Lock()
	switch {
	case !g.visible:
		g.mu.Unlock()
		return ErrNotOpen
	case !g.armed:
		g.mu.Unlock()
		return ErrNotArmed
	case g.confirming:
		g.mu.Unlock()
		return ErrConfirmInProgress
	}
	g.confirming = true
	gen := g.generation
	g.mu.Unlock()

	err := action(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation {
		return err
	}
	g.confirming = false
	if err == nil {
		g.hideLocked()
	}
	return err
}

// Cancel closes the gate without side effects. It is accepted in every state.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hideLocked()
}

func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := Status{Remaining: g.remaining, Armed: g.armed, Visible: g.visible}
	switch {
	case !g.visible:
		st.State = Hidden
	case g.armed:
		st.State = Ready
	default:
		st.State = Counting
	}
	return st
}

func (g *Gate) hideLocked() {
	g.stopLocked()
	g.generation++
	g.remaining = g.countdown
	g.armed = false
	g.visible = false
	g.confirming = false
}

// tickLocked reports whether the countdown should keep running.
func (g *Gate) tickLocked(gen uint64) bool {
	if gen != g.generation || !g.visible || g.armed {
		return false
	}
	if g.remaining > 0 {
		g.remaining--
	}
	if g.remaining == 0 {
		g.armed = true
		g.stop = nil
		return false
	}
	return true
}

func (g *Gate) startLocked(gen uint64) {
	t := g.clock.NewTicker(g.interval)
	done := make(chan struct{})
	g.stop = func() { close(done) }

	go func() {
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C():
				g.mu.Lock()
				more := g.tickLocked(gen)
				g.mu.Unlock()
				if !more {
					return
				}
			}
		}
	}()
}

func (g *Gate) stopLocked() {
	if g.stop != nil {
		g.stop()
		g.stop = nil
	}
}
