package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Wait once the loader has been closed.
var ErrClosed = errors.New("loader closed")

// Decoded is a bitmap ready to draw. Icons are treated as square; Width is
// authoritative.
type Decoded struct {
	Image      image.Image
	Width      int
	Height     int
	Source     string
	Generation uint64
}

// slot holds the outcome of one Load call. ready is closed when img or err
// is set; superseded is closed when a newer Load replaces the slot.
type slot struct {
	gen        uint64
	src        string
	ready      chan struct{}
	superseded chan struct{}
	img        *Decoded
	err        error
}

func newSlot(gen uint64, src string) *slot {
	return &slot{
		gen:        gen,
		src:        src,
		ready:      make(chan struct{}),
		superseded: make(chan struct{}),
	}
}

// Loader decodes icon sources in the background. Only the result of the most
// recent Load is ever published; older decodes finish and are dropped.
type Loader struct {
	mu      sync.Mutex
	decoder Decoder
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	gen  uint64
	slot *slot
}

// New creates a Loader. A nil decoder uses SourceDecoder.
func New(decoder Decoder, logger *slog.Logger) *Loader {
	if decoder == nil {
		decoder = NewSourceDecoder()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		decoder: decoder,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		slot:    newSlot(0, ""),
	}
}

// Load discards the current image and starts decoding src.
// It returns the generation of the new request.
func (l *Loader) Load(src string) uint64 {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return l.gen
	}
	l.gen++
	s := newSlot(l.gen, src)
	prev := l.slot
	l.slot = s
	l.mu.Unlock()

	close(prev.superseded)

	go l.decode(s)
	return s.gen
}

func (l *Loader) decode(s *slot) {
	img, err := l.decoder.Decode(l.ctx, s.src)

	var decoded *Decoded
	if err == nil {
		b := img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			err = errors.New("empty image")
		} else {
			decoded = &Decoded{
				Image:      img,
				Width:      b.Dx(),
				Height:     b.Dy(),
				Source:     s.src,
				Generation: s.gen,
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || s.gen != l.gen {
		l.logger.Debug("discarding stale decode", "src", truncate(s.src), "generation", s.gen, "current", l.gen)
		return
	}

	if err != nil {
		s.err = fmt.Errorf("%w %q: %w", ErrDecode, truncate(s.src), err)
		l.logger.Warn("icon decode failed", "src", truncate(s.src), "generation", s.gen, "error", err)
	} else {
		s.img = decoded
		l.logger.Debug("icon decoded", "src", truncate(s.src), "generation", s.gen, "width", decoded.Width)
	}
	close(s.ready)
}

// Wait blocks until the image for the current generation is decoded,
// following newer Load calls made while waiting. It returns the decode
// error if decoding failed.
func (l *Loader) Wait(ctx context.Context) (*Decoded, error) {
	for {
		l.mu.Lock()
		s := l.slot
		done := l.ctx.Done()
		l.mu.Unlock()

		select {
		case <-s.ready:
			return s.img, s.err
		case <-s.superseded:
			continue
		case <-done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Current returns the decoded image of the current generation without
// blocking. ok is false while decoding is pending or after it failed.
func (l *Loader) Current() (img *Decoded, ok bool) {
	l.mu.Lock()
	s := l.slot
	l.mu.Unlock()

	select {
	case <-s.ready:
		return s.img, s.img != nil
	default:
		return nil, false
	}
}

// Generation returns the generation of the most recent Load.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Close cancels in-flight decodes and releases waiters.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.cancel()
}

// truncate shortens data URIs for logging.
func truncate(src string) string {
	const maxLen = 64
	if len(src) <= maxLen {
		return src
	}
	return src[:maxLen] + "..."
}
