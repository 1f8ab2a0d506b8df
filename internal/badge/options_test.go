package badge

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 8, opts.Size)
	assert.Equal(t, PositionBottomRight, opts.Position)
	assert.Equal(t, "red", opts.Color)
	assert.Equal(t, 500*time.Millisecond, opts.Speed)
	assert.True(t, opts.Blink)
	assert.Equal(t, FormatPNG, opts.Format)
	assert.Equal(t, 250*time.Millisecond, opts.HalfPeriod())
	assert.NoError(t, opts.Validate())
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		err    error
	}{
		{"zero size", func(o *Options) { o.Size = 0 }, ErrInvalidSize},
		{"unknown position", func(o *Options) { o.Position = "middle" }, ErrInvalidPosition},
		{"empty position", func(o *Options) { o.Position = "" }, ErrInvalidPosition},
		{"bad color", func(o *Options) { o.Color = "not-a-color" }, ErrInvalidColor},
		{"zero speed", func(o *Options) { o.Speed = 0 }, ErrInvalidSpeed},
		{"bad format", func(o *Options) { o.Format = "gif" }, ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			assert.ErrorIs(t, opts.Validate(), tt.err)
		})
	}
}

func TestOptions_ValidateStaticIgnoresSpeed(t *testing.T) {
	opts := DefaultOptions()
	opts.Blink = false
	opts.Speed = 0
	assert.NoError(t, opts.Validate())
}

func TestFormat_MediaType(t *testing.T) {
	assert.Equal(t, "image/png", FormatPNG.MediaType())
	assert.Equal(t, "image/x-icon", FormatICO.MediaType())
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input    string
		expected color.RGBA
	}{
		{"red", color.RGBA{R: 0xff, A: 0xff}},
		{"Red", color.RGBA{R: 0xff, A: 0xff}},
		{"#00ff00", color.RGBA{G: 0xff, A: 0xff}},
		{"#00f", color.RGBA{B: 0xff, A: 0xff}},
		{"ff3b30", color.RGBA{R: 0xff, G: 0x3b, B: 0x30, A: 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := ParseColor(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, color.RGBAModel.Convert(c))
		})
	}
}

func TestParseColor_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "reddish", "#xyz"} {
		_, err := ParseColor(input)
		assert.ErrorIs(t, err, ErrInvalidColor, "input %q", input)
	}
}
