// Package loader decodes icon sources into bitmaps and publishes the most
// recent result through a single-slot future.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"strings"

	// Registered decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/sergeymakinen/go-ico"
	"github.com/vincent-petithory/dataurl"
)

// Decoder errors.
var (
	ErrUnsupportedSource = errors.New("unsupported icon source")
	ErrDecode            = errors.New("failed to decode icon")
)

// icoMagic is the ICONDIR header of an .ico file (reserved 0, type 1).
var icoMagic = []byte{0x00, 0x00, 0x01, 0x00}

// Decoder turns an icon source reference into a bitmap.
// Implementations may block; they should return when ctx is done.
type Decoder interface {
	Decode(ctx context.Context, src string) (image.Image, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, src string) (image.Image, error)

// Decode calls f(ctx, src).
func (f DecoderFunc) Decode(ctx context.Context, src string) (image.Image, error) {
	return f(ctx, src)
}

// SourceDecoder decodes data URIs, local paths and file:// URLs.
// Remote sources are not fetched.
type SourceDecoder struct{}

// NewSourceDecoder creates a SourceDecoder.
func NewSourceDecoder() *SourceDecoder {
	return &SourceDecoder{}
}

// Decode reads and decodes src.
func (d *SourceDecoder) Decode(ctx context.Context, src string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readSource(src)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes raw image bytes. ICO is detected by its header, every
// other format through the registered image decoders.
func DecodeBytes(data []byte) (image.Image, error) {
	if bytes.HasPrefix(data, icoMagic) {
		img, err := ico.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("ico: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func readSource(src string) ([]byte, error) {
	switch {
	case src == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedSource)

	case strings.HasPrefix(src, "data:"):
		du, err := dataurl.DecodeString(src)
		if err != nil {
			return nil, fmt.Errorf("invalid data URI: %w", err)
		}
		return du.Data, nil

	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL: %w", err)
		}
		return os.ReadFile(u.Path)

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return nil, fmt.Errorf("%w: remote source %q", ErrUnsupportedSource, src)

	default:
		return os.ReadFile(src)
	}
}
