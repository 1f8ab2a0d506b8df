// Package favicon wires the loader, compositor and blink controller into a
// favicon notifier: a badge that blinks on the icon written to a sink.
package favicon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/jmylchreest/favbadge/internal/badge"
	"github.com/jmylchreest/favbadge/internal/blink"
	"github.com/jmylchreest/favbadge/internal/compositor"
	"github.com/jmylchreest/favbadge/internal/loader"
	"github.com/jmylchreest/favbadge/internal/sink"
)

// Option configures a Notifier.
type Option func(*settings)

type settings struct {
	decoder loader.Decoder
	clock   clockwork.Clock
	logger  *slog.Logger
	onError blink.ErrorHandler
}

// WithDecoder sets the decoder used to load icon sources.
func WithDecoder(d loader.Decoder) Option {
	return func(s *settings) { s.decoder = d }
}

// WithClock sets the clock driving the blink timer.
func WithClock(c clockwork.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithErrorHandler receives errors that prevent the badge from being shown,
// wrapped in blink.ErrBadgeUnavailable.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) { s.onError = fn }
}

// Notifier shows a blinking badge on a favicon.
//
// Several notifiers may share a sink; writes are last-writer-wins and
// notifiers do not coordinate.
type Notifier struct {
	favicon    *Ref
	loader     *loader.Loader
	compositor *compositor.Compositor
	controller *blink.Controller
	logger     *slog.Logger

	closeOnce   sync.Once
	unsubscribe func()
}

// New creates a Notifier for src writing to s. Invalid options are rejected
// here rather than at draw time. The plain icon is written to s immediately
// and decoding of src starts in the background.
func New(src string, s sink.Sink, opts badge.Options, options ...Option) (*Notifier, error) {
	if s == nil {
		return nil, fmt.Errorf("favicon: nil sink")
	}

	cfg := settings{}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	comp, err := compositor.New(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid badge options: %w", err)
	}

	n := &Notifier{
		favicon:    NewRef(src),
		loader:     loader.New(cfg.decoder, cfg.logger),
		compositor: comp,
		logger:     cfg.logger,
	}

	controllerOpts := []blink.Option{
		blink.WithLogger(cfg.logger),
		blink.WithErrorHandler(cfg.onError),
	}
	if cfg.clock != nil {
		controllerOpts = append(controllerOpts, blink.WithClock(cfg.clock))
	}

	n.loader.Load(src)
	n.controller = blink.New(s, n.draw, src, opts, controllerOpts...)
	n.unsubscribe = n.favicon.Subscribe(n.sourceChanged)

	return n, nil
}

func (n *Notifier) draw(ctx context.Context) (string, error) {
	return n.compositor.Draw(ctx, n.loader)
}

// sourceChanged starts decoding the new source before the controller
// restarts, so the next draw waits on the new image.
func (n *Notifier) sourceChanged(src string) {
	gen := n.loader.Load(src)
	n.logger.Debug("favicon source changed", "generation", gen)
	n.controller.SetSource(src)
}

// Notify starts blinking the badge, restarting the cycle if already running.
func (n *Notifier) Notify() {
	n.controller.Notify()
}

// Cancel stops blinking and restores the plain icon.
func (n *Notifier) Cancel() {
	n.controller.Cancel()
}

// Favicon returns the icon source reference. Reading it always yields the
// plain source; assigning it swaps the icon.
func (n *Notifier) Favicon() *Ref {
	return n.favicon
}

// Notifying reports whether the badge cycle is running.
func (n *Notifier) Notifying() bool {
	return n.controller.Notifying()
}

// State returns the blink state.
func (n *Notifier) State() blink.State {
	return n.controller.State()
}

// Options returns the badge options.
func (n *Notifier) Options() badge.Options {
	return n.compositor.Options()
}

// Close cancels any notification, detaches from the source reference and
// stops decoding.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		n.unsubscribe()
		n.controller.Cancel()
		n.loader.Close()
	})
}
