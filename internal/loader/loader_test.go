package loader

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedDecoder blocks each Decode until the test releases that source.
type gatedDecoder struct {
	mu    sync.Mutex
	gates map[string]chan error
	sizes map[string]int
}

func newGatedDecoder() *gatedDecoder {
	return &gatedDecoder{
		gates: make(map[string]chan error),
		sizes: make(map[string]int),
	}
}

func (d *gatedDecoder) gate(src string) chan error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.gates[src]
	if !ok {
		ch = make(chan error, 1)
		d.gates[src] = ch
	}
	return ch
}

func (d *gatedDecoder) release(src string, size int, err error) {
	d.mu.Lock()
	d.sizes[src] = size
	d.mu.Unlock()
	d.gate(src) <- err
}

func (d *gatedDecoder) Decode(ctx context.Context, src string) (image.Image, error) {
	select {
	case err := <-d.gate(src):
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	d.mu.Lock()
	size := d.sizes[src]
	d.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, size, size)), nil
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoader_LoadAndWait(t *testing.T) {
	dec := newGatedDecoder()
	l := New(dec, nil)
	defer l.Close()

	gen := l.Load("icon.png")
	assert.Equal(t, uint64(1), gen)

	_, ok := l.Current()
	assert.False(t, ok, "nothing published before decode completes")

	dec.release("icon.png", 32, nil)

	img, err := l.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Width)
	assert.Equal(t, "icon.png", img.Source)
	assert.Equal(t, uint64(1), img.Generation)

	cur, ok := l.Current()
	require.True(t, ok)
	assert.Same(t, img, cur)
}

func TestLoader_StaleDecodeDiscarded(t *testing.T) {
	dec := newGatedDecoder()
	l := New(dec, nil)
	defer l.Close()

	l.Load("old.png")
	l.Load("new.png")
	assert.Equal(t, uint64(2), l.Generation())

	dec.release("new.png", 16, nil)
	img, err := l.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "new.png", img.Source)

	// The old decode finishing late must not replace the slot.
	dec.release("old.png", 64, nil)
	time.Sleep(20 * time.Millisecond)

	cur, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, "new.png", cur.Source)
	assert.Equal(t, 16, cur.Width)
}

func TestLoader_WaitFollowsNewerLoad(t *testing.T) {
	dec := newGatedDecoder()
	l := New(dec, nil)
	defer l.Close()

	l.Load("first.png")

	ctx := waitCtx(t)
	result := make(chan *Decoded, 1)
	go func() {
		img, err := l.Wait(ctx)
		if err == nil {
			result <- img
		}
		close(result)
	}()

	time.Sleep(10 * time.Millisecond)
	l.Load("second.png")
	dec.release("first.png", 8, nil)
	dec.release("second.png", 24, nil)

	img := <-result
	require.NotNil(t, img)
	assert.Equal(t, "second.png", img.Source)
}

func TestLoader_DecodeFailure(t *testing.T) {
	dec := newGatedDecoder()
	l := New(dec, nil)
	defer l.Close()

	l.Load("broken.png")
	dec.release("broken.png", 0, errors.New("malformed"))

	_, err := l.Wait(waitCtx(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "malformed")

	_, ok := l.Current()
	assert.False(t, ok)
}

func TestLoader_EmptyImageIsDecodeFailure(t *testing.T) {
	dec := newGatedDecoder()
	l := New(dec, nil)
	defer l.Close()

	l.Load("empty.png")
	dec.release("empty.png", 0, nil)

	_, err := l.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestLoader_WaitRespectsContext(t *testing.T) {
	l := New(newGatedDecoder(), nil)
	defer l.Close()

	l.Load("stuck.png")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoader_WaitBeforeAnyLoad(t *testing.T) {
	l := New(newGatedDecoder(), nil)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoader_CloseReleasesWaiters(t *testing.T) {
	l := New(newGatedDecoder(), nil)
	l.Load("stuck.png")

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Wait(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	l.Close()
	l.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Close")
	}
}
