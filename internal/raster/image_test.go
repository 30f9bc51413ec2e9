package raster

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func black(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in   string
		want Resolution
	}{
		{"", Resolution{DPI: DefaultDPI, MaxWidth: DefaultMaxWidth}},
		{"300", Resolution{DPI: 300, MaxWidth: DefaultMaxWidth}},
		{"max", Resolution{DPI: DefaultDPI, Fit: true, MaxWidth: DefaultMaxWidth}},
		{"max400", Resolution{DPI: 400, Fit: true, MaxWidth: DefaultMaxWidth}},
		{"max:640", Resolution{DPI: DefaultDPI, Fit: true, MaxWidth: 640}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResolution(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"high", "-5", "max:", "max:wide", "maxx"} {
		_, err := ParseResolution(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolutionString(t *testing.T) {
	for _, s := range []string{"300", "max210", "max:640"} {
		r, err := ParseResolution(s)
		require.NoError(t, err)
		assert.Equal(t, s, r.String())
	}
}

func TestInsetRect(t *testing.T) {
	assert.Equal(t, image.Rect(15, 25, 95, 45), InsetRect(image.Rect(10, 20, 100, 50), Inset))
	assert.True(t, InsetRect(image.Rect(0, 0, 8, 8), Inset).Empty())
}

func TestWhiteOut(t *testing.T) {
	img := black(100, 60)
	out := WhiteOut(img, []image.Rectangle{image.Rect(10, 10, 50, 40)})

	assert.True(t, isWhite(out.At(30, 25)), "inside the box")
	assert.False(t, isWhite(out.At(11, 11)), "border kept")
	assert.False(t, isWhite(out.At(80, 25)), "outside the box")
	assert.False(t, isWhite(img.At(30, 25)), "source untouched")
}

func TestExtract(t *testing.T) {
	img := black(100, 60)
	img.Set(20, 20, color.White)

	out, err := Extract(img, image.Rect(10, 10, 50, 40))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), out.Bounds())
	assert.True(t, isWhite(out.At(5, 5)))

	_, err = Extract(img, image.Rect(200, 200, 300, 300))
	assert.Error(t, err)
}

func TestScaleToWidth(t *testing.T) {
	img := black(200, 100)
	scaled := ScaleToWidth(img, 50)
	assert.Equal(t, image.Rect(0, 0, 50, 25), scaled.Bounds())

	assert.Same(t, img, ScaleToWidth(img, 400))
}

func TestPNGRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.png")
	require.NoError(t, SavePNG(path, black(4, 3)))

	img, err := LoadPNG(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
}
