package badge

import (
	"errors"
	"fmt"
	"time"
)

// Default badge values.
const (
	DefaultSize     = 8
	DefaultPosition = PositionBottomRight
	DefaultColor    = "red"
	DefaultSpeed    = 500 * time.Millisecond
	DefaultFormat   = FormatPNG
)

// Validation errors.
var (
	ErrInvalidPosition = errors.New("invalid badge position")
	ErrInvalidSize     = errors.New("badge size must be greater than 0")
	ErrInvalidSpeed    = errors.New("blink speed must be at least 2ms")
	ErrInvalidColor    = errors.New("invalid badge color")
	ErrInvalidFormat   = errors.New("invalid output format")
)

// Format is the raster encoding used for composited icons.
type Format string

const (
	FormatPNG Format = "png"
	FormatICO Format = "ico"
)

// ValidFormats returns all valid output formats.
func ValidFormats() []Format {
	return []Format{FormatPNG, FormatICO}
}

// MediaType returns the MIME type used in data URIs for the format.
func (f Format) MediaType() string {
	if f == FormatICO {
		return "image/x-icon"
	}
	return "image/png"
}

// Options configures a badge. Options are fixed for the lifetime of a notifier.
type Options struct {
	Size     int           // Radius in pixels
	Position Position      // Anchor on the icon
	Color    string        // Fill and stroke color, CSS name or hex
	Speed    time.Duration // Full blink cycle (visible + hidden)
	Blink    bool          // Alternate badge and plain icon
	Format   Format        // Encoding of the composited icon
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Size:     DefaultSize,
		Position: DefaultPosition,
		Color:    DefaultColor,
		Speed:    DefaultSpeed,
		Blink:    true,
		Format:   DefaultFormat,
	}
}

// HalfPeriod is the time each blink phase is shown for.
func (o Options) HalfPeriod() time.Duration {
	return o.Speed / 2
}

// Validate reports the first configuration error in o.
func (o Options) Validate() error {
	if o.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, o.Size)
	}
	if !o.Position.Valid() {
		return fmt.Errorf("%w: %q (want one of %v)", ErrInvalidPosition, o.Position, ValidPositions())
	}
	if _, err := ParseColor(o.Color); err != nil {
		return err
	}
	if o.Blink && o.Speed < 2*time.Millisecond {
		return fmt.Errorf("%w: %s", ErrInvalidSpeed, o.Speed)
	}
	switch o.Format {
	case FormatPNG, FormatICO:
	default:
		return fmt.Errorf("%w: %q (want one of %v)", ErrInvalidFormat, o.Format, ValidFormats())
	}
	return nil
}
