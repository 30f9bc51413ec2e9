package latex

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/alexflint/go-restructure"
)

// a zref savepos record, e.g.
// \zref@newlabel{box1-ll}{\posx{4736286}\posy{41008209}}
type zrefLabel struct {
	_    string `^\\zref@newlabel\{`
	Name string `[^}]+`
	_    string `\}\{.*?\\posx\{`
	X    string `-?\d+`
	_    string `\}.*?\\posy\{`
	Y    string `-?\d+`
	_    string `\}`
}

var zrefPattern = restructure.MustCompile(&zrefLabel{}, restructure.Options{})

// a pdfcrop bounding box line, e.g.
// %%HiResBoundingBox: 71.000000 620.000000 300.000000 700.000000
type hiResBBox struct {
	_  string `%%HiResBoundingBox:\s*`
	X0 string `-?[\d.]+`
	_  string `\s+`
	Y0 string `-?[\d.]+`
	_  string `\s+`
	X1 string `-?[\d.]+`
	_  string `\s+`
	Y1 string `-?[\d.]+`
}

var bboxPattern = restructure.MustCompile(&hiResBBox{}, restructure.Options{})

// Point is a page position in TeX scaled points, origin lower left.
type Point struct {
	X, Y int64
}

// SPRect is a box recorded by its lower-left and upper-right corners.
type SPRect struct {
	LL, UR Point
}

// Positions holds every zref position of one document, keyed by label.
type Positions map[string]Point

// ParseAux reads zref savepos records.
func ParseAux(r io.Reader) (Positions, error) {
	pos := make(Positions)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var z zrefLabel
		if !zrefPattern.Find(&z, sc.Text()) {
			continue
		}
		x, err := strconv.ParseInt(z.X, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("zref %s: posx: %w", z.Name, err)
		}
		y, err := strconv.ParseInt(z.Y, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("zref %s: posy: %w", z.Name, err)
		}
		pos[z.Name] = Point{X: x, Y: y}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read aux: %w", err)
	}
	return pos, nil
}

// ParseAuxFile reads zref records from path.
func ParseAuxFile(path string) (Positions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open aux: %w", err)
	}
	defer f.Close()
	return ParseAux(f)
}

// Box returns the target box with the given index.
func (p Positions) Box(idx int) (SPRect, error) {
	return p.rect(fmt.Sprintf("box%d", idx))
}

// Label returns the standalone draggable with the given index.
func (p Positions) Label(idx int) (SPRect, error) {
	return p.rect(fmt.Sprintf("boxLABEL%d", idx))
}

func (p Positions) rect(prefix string) (SPRect, error) {
	ll, ok := p[prefix+"-ll"]
	if !ok {
		return SPRect{}, fmt.Errorf("no position recorded for %s-ll (was latex run twice?)", prefix)
	}
	ur, ok := p[prefix+"-ur"]
	if !ok {
		return SPRect{}, fmt.Errorf("no position recorded for %s-ur (was latex run twice?)", prefix)
	}
	return SPRect{LL: ll, UR: ur}, nil
}

// BBox is a region of a PDF page in big points, origin lower left.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// ParseBBox finds the HiResBoundingBox in the output of pdfcrop --verbose
// or in a cropped PDF's header.
func ParseBBox(s string) (BBox, error) {
	for _, line := range strings.Split(s, "\n") {
		var b hiResBBox
		if !bboxPattern.Find(&b, line) {
			continue
		}
		var out BBox
		var err error
		for _, f := range []struct {
			dst *float64
			src string
		}{{&out.X0, b.X0}, {&out.Y0, b.Y0}, {&out.X1, b.X1}, {&out.Y1, b.Y1}} {
			if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
				return BBox{}, fmt.Errorf("bounding box %q: %w", line, err)
			}
		}
		return out, nil
	}
	return BBox{}, fmt.Errorf("no HiResBoundingBox found")
}

// Width in big points.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// spPerBP converts scaled points to big points: 65536 sp per TeX point,
// 72.27 TeX points per inch, 72 big points per inch.
const spPerBP = 65536 * 72.27 / 72

// PixelRect maps r onto a raster of the page cropped to crop and rendered
// at dpi. The result has an upper-left origin.
func PixelRect(r SPRect, crop BBox, dpi float64) image.Rectangle {
	scale := dpi / 72
	x0 := (float64(r.LL.X)/spPerBP - crop.X0) * scale
	x1 := (float64(r.UR.X)/spPerBP - crop.X0) * scale
	y0 := (crop.Y1 - float64(r.UR.Y)/spPerBP) * scale
	y1 := (crop.Y1 - float64(r.LL.Y)/spPerBP) * scale
	return image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x1)), int(math.Round(y1)),
	)
}

// FitDPI returns the largest resolution not above dpi at which a page of
// the given width fits into maxWidth pixels.
func FitDPI(crop BBox, dpi float64, maxWidth int) float64 {
	if maxWidth <= 0 || crop.Width() <= 0 {
		return dpi
	}
	fit := float64(maxWidth) * 72 / crop.Width()
	return math.Floor(math.Min(dpi, fit))
}
