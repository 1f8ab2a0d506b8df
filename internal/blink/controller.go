package blink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jmylchreest/favbadge/internal/badge"
	"github.com/jmylchreest/favbadge/internal/sink"
)

// ErrBadgeUnavailable wraps failures to produce a badged icon.
var ErrBadgeUnavailable = errors.New("badge unavailable")

// State is the blink state machine's current state.
type State int

const (
	StateIdle State = iota
	StateVisible
	StateHidden
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// DrawFunc produces a badged icon for the current source. It may block until
// the source is decoded and must return once ctx is done.
type DrawFunc func(ctx context.Context) (string, error)

// ErrorHandler receives draw failures.
type ErrorHandler func(err error)

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock driving the blink timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithErrorHandler sets the callback for draw failures.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(c *Controller) { c.onError = fn }
}

// Controller is the blink state machine. It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	sink    sink.Sink
	draw    DrawFunc
	logger  *slog.Logger
	onError ErrorHandler

	blink bool
	half  time.Duration

	plain string
	state State

	// session identifies the current notify cycle. Timers and draws from an
	// older session are ignored.
	session uint64
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  clockwork.Ticker
	stop    chan struct{}

	pending bool   // a badge draw for this session is in flight
	failed  error  // the badge draw for this session failed
	ready   string // newest badge drawn in this session
	shown   string // badge written during the current Visible phase
}

// New creates an idle Controller and writes plain to s.
func New(s sink.Sink, draw DrawFunc, plain string, opts badge.Options, options ...Option) *Controller {
	c := &Controller{
		sink:  s,
		draw:  draw,
		blink: opts.Blink,
		half:  opts.HalfPeriod(),
		plain: plain,
		state: StateIdle,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.sink.SetIcon(plain)
	return c
}

// Notify starts (or restarts) the cycle in the Visible state.
func (c *Controller) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyLocked()
}

// Cancel stops the cycle and restores the plain icon. Calling Cancel while
// idle only rewrites the plain icon.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		c.logger.Debug("notification cancelled", "state", c.state)
	}
	c.haltLocked()
	c.state = StateIdle
	c.sink.SetIcon(c.plain)
}

// SetSource replaces the plain icon. The sink is updated immediately, and a
// running cycle restarts against the new source.
func (c *Controller) SetSource(src string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.plain = src
	c.sink.SetIcon(src)
	if c.state != StateIdle {
		c.notifyLocked()
	}
}

// Source returns the plain icon.
func (c *Controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plain
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Notifying reports whether a cycle is running.
func (c *Controller) Notifying() bool {
	return c.State() != StateIdle
}

func (c *Controller) notifyLocked() {
	c.haltLocked()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.showBadgeLocked()

	if !c.blink {
		return
	}

	c.ticker = c.clock.NewTicker(c.half)
	c.stop = make(chan struct{})
	go c.loop(c.session, c.ticker, c.stop)
}

// haltLocked ends the current session: it stops the timer, cancels pending
// draws and invalidates anything still in flight.
func (c *Controller) haltLocked() {
	if c.stop != nil {
		close(c.stop)
		c.ticker.Stop()
		c.stop = nil
		c.ticker = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.session++
	c.pending = false
	c.failed = nil
	c.ready = ""
	c.shown = ""
}

func (c *Controller) loop(session uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.tick(session)
		}
	}
}

// tick flips between the Visible and Hidden phases.
func (c *Controller) tick(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session {
		return
	}
	switch c.state {
	case StateVisible:
		c.state = StateHidden
		c.shown = ""
		c.sink.SetIcon(c.plain)
	case StateHidden:
		c.showBadgeLocked()
	}
}

func (c *Controller) showBadgeLocked() {
	c.state = StateVisible

	if c.failed != nil {
		c.sink.SetIcon(c.plain)
		return
	}
	// Show the last finished draw right away so draws slower than half a
	// period still appear; a fresh draw refreshes it.
	if c.ready != "" {
		c.showLocked(c.ready)
	}
	if c.pending {
		// The in-flight draw writes when it lands in a Visible phase.
		return
	}
	c.pending = true
	go c.drawBadge(c.ctx, c.session)
}

func (c *Controller) drawBadge(ctx context.Context, session uint64) {
	icon, err := c.draw(ctx)

	c.mu.Lock()
	if session != c.session {
		c.mu.Unlock()
		c.logger.Debug("discarding badge draw from previous session", "session", session)
		return
	}
	c.pending = false

	if err != nil {
		c.failed = fmt.Errorf("%w: %w", ErrBadgeUnavailable, err)
		if c.state == StateVisible {
			c.shown = ""
			c.sink.SetIcon(c.plain)
		}
		failed, handler := c.failed, c.onError
		c.mu.Unlock()

		c.logger.Warn("badge draw failed, showing plain icon", "error", err)
		if handler != nil {
			handler(failed)
		}
		return
	}

	c.ready = icon
	if c.state != StateVisible {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("holding badge draw until the next visible phase", "state", state)
		return
	}
	c.showLocked(icon)
	c.mu.Unlock()
}

// showLocked writes icon unless it is already showing in this phase.
func (c *Controller) showLocked(icon string) {
	if icon == c.shown {
		return
	}
	c.shown = icon
	c.sink.SetIcon(icon)
}
