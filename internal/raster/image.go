package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// Inset is how far inside a recorded box the pixel work stays, so the
// box border survives whiting out.
const Inset = 4.5

// DefaultDPI is the rendering resolution when none is given.
const DefaultDPI = 210

// DefaultMaxWidth bounds the image width for "max" resolutions.
const DefaultMaxWidth = 780

// Resolution is a parsed resolution setting.
type Resolution struct {
	DPI float64

	// Fit lowers DPI so the cropped page fits in MaxWidth pixels.
	Fit      bool
	MaxWidth int
}

// ParseResolution accepts "300", "max", "max300" and "max:640".
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	r := Resolution{DPI: DefaultDPI, MaxWidth: DefaultMaxWidth}
	if s == "" {
		return r, nil
	}
	rest, fit := strings.CutPrefix(s, "max")
	r.Fit = fit
	switch {
	case rest == "":
		return r, nil
	case fit && strings.HasPrefix(rest, ":"):
		w, err := strconv.Atoi(rest[1:])
		if err != nil || w < 1 {
			return r, fmt.Errorf("resolution %q: bad width", s)
		}
		r.MaxWidth = w
		return r, nil
	}
	dpi, err := strconv.ParseFloat(rest, 64)
	if err != nil || dpi <= 0 {
		return r, fmt.Errorf("resolution %q: want DPI, max, maxDPI or max:WIDTH", s)
	}
	r.DPI = dpi
	return r, nil
}

func (r Resolution) String() string {
	dpi := strconv.FormatFloat(r.DPI, 'f', -1, 64)
	if !r.Fit {
		return dpi
	}
	if r.MaxWidth != DefaultMaxWidth {
		return "max:" + strconv.Itoa(r.MaxWidth)
	}
	return "max" + dpi
}

// InsetRect shrinks r by px on every side, rounding inward.
func InsetRect(r image.Rectangle, px float64) image.Rectangle {
	in := image.Rect(
		int(math.Ceil(float64(r.Min.X)+px)),
		int(math.Ceil(float64(r.Min.Y)+px)),
		int(math.Floor(float64(r.Max.X)-px)),
		int(math.Floor(float64(r.Max.Y)-px)),
	)
	if in.Empty() {
		return image.Rectangle{}
	}
	return in
}

// WhiteOut returns a copy of img with the inside of every rect painted
// white.
func WhiteOut(img image.Image, rects []image.Rectangle) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	white := &image.Uniform{C: color.White}
	for _, r := range rects {
		r = InsetRect(r, Inset).Intersect(out.Bounds())
		if r.Empty() {
			continue
		}
		draw.Draw(out, r, white, image.Point{}, draw.Src)
	}
	return out
}

// Extract copies the inside of r out of img.
func Extract(img image.Image, r image.Rectangle) (*image.RGBA, error) {
	r = InsetRect(r, Inset).Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("box %v lies outside the %v page", r, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out, nil
}

// ScaleToWidth resizes img to width w, keeping its aspect ratio. Images
// already narrower are returned unchanged.
func ScaleToWidth(img image.Image, w int) image.Image {
	b := img.Bounds()
	if w <= 0 || b.Dx() <= w {
		return img
	}
	h := max(1, int(math.Round(float64(b.Dy())*float64(w)/float64(b.Dx()))))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
