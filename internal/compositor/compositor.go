// Package compositor draws the notification badge onto a decoded icon and
// serializes the result as a data URI.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/sergeymakinen/go-ico"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/jmylchreest/favbadge/internal/badge"
	"github.com/jmylchreest/favbadge/internal/loader"
)

// ErrEmptyImage is returned when asked to draw on an image with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// strokeWidth is the width of the ring painted around the badge.
const strokeWidth = 2

// Waiter yields the decoded image for the current icon source.
type Waiter interface {
	Wait(ctx context.Context) (*loader.Decoded, error)
}

// Compositor renders badged icons. It holds no drawing state between calls
// and is safe for concurrent use.
type Compositor struct {
	opts  badge.Options
	color color.Color
}

// New creates a Compositor for opts.
func New(opts badge.Options) (*Compositor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c, err := badge.ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}
	return &Compositor{opts: opts, color: c}, nil
}

// Options returns the badge options the compositor draws with.
func (c *Compositor) Options() badge.Options {
	return c.opts
}

// Draw waits for the current decoded image and renders it with a badge.
func (c *Compositor) Draw(ctx context.Context, w Waiter) (string, error) {
	img, err := w.Wait(ctx)
	if err != nil {
		return "", err
	}
	return c.Render(img.Image)
}

// Render composites src with a badge and returns it as a data URI.
func (c *Compositor) Render(src image.Image) (string, error) {
	surface, err := c.Compose(src)
	if err != nil {
		return "", err
	}
	data, err := Encode(surface, c.opts.Format)
	if err != nil {
		return "", err
	}
	return dataurl.New(data, c.opts.Format.MediaType()).String(), nil
}

// Compose returns a new square surface, as wide as src, holding src with the
// badge painted over it. src is not modified.
func (c *Compositor) Compose(src image.Image) (*image.RGBA, error) {
	b := src.Bounds()
	size := b.Dx()
	if size <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	surface := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(surface, surface.Bounds(), src, b.Min, draw.Src)

	center := badge.Center(size, c.opts.Size, c.opts.Position)
	paintBadge(surface, center, float32(c.opts.Size), c.color)

	return surface, nil
}

// paintBadge fills a circle of radius r at p and strokes its outline,
// both in col.
func paintBadge(dst *image.RGBA, p badge.Point, r float32, col color.Color) {
	size := dst.Bounds().Size()
	cx, cy := float32(p.X), float32(p.Y)
	fill := image.NewUniform(col)

	z := vector.NewRasterizer(size.X, size.Y)
	z.DrawOp = draw.Over
	addCircle(z, cx, cy, r, false)
	z.Draw(dst, dst.Bounds(), fill, image.Point{})

	half := float32(strokeWidth) / 2
	z.Reset(size.X, size.Y)
	z.DrawOp = draw.Over
	addCircle(z, cx, cy, r+half, false)
	if inner := r - half; inner > 0 {
		addCircle(z, cx, cy, inner, true)
	}
	z.Draw(dst, dst.Bounds(), fill, image.Point{})
}

// kappa places cubic control points so four segments approximate a circle.
const kappa = 0.5522847498

// addCircle appends a closed circle to z. Reversed circles wind the other
// way, which cuts a hole under the nonzero rule.
func addCircle(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	k := r * kappa

	z.MoveTo(cx+r, cy)
	if !reverse {
		z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	} else {
		z.CubeTo(cx+r, cy-k, cx+k, cy-r, cx, cy-r)
		z.CubeTo(cx-k, cy-r, cx-r, cy-k, cx-r, cy)
		z.CubeTo(cx-r, cy+k, cx-k, cy+r, cx, cy+r)
		z.CubeTo(cx+k, cy+r, cx+r, cy+k, cx+r, cy)
	}
	z.ClosePath()
}

// Encode serializes img in the given format.
func Encode(img image.Image, format badge.Format) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case badge.FormatICO:
		if err := ico.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode ico: %w", err)
		}
	case badge.FormatPNG, "":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", badge.ErrInvalidFormat, format)
	}

	return buf.Bytes(), nil
}
