// Package raster turns the compiled PDF into the problem, solution and
// draggable images. Page extraction, cropping and rendering shell out to
// the poppler and pdfcrop tools; all pixel work happens in-process.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/abhisek/texdnd/internal/latex"
)

// Rasterizer crops and renders single PDF pages.
type Rasterizer interface {
	// Crop extracts page (1-based) from pdf and crops it to its content.
	Crop(ctx context.Context, pdf string, page int) (Cropped, error)

	// Render rasterizes a cropped page at dpi.
	Render(ctx context.Context, c Cropped, dpi float64) (image.Image, error)
}

// Cropped is a single-page PDF and the region of the original page it
// covers.
type Cropped struct {
	Path string
	BBox latex.BBox
}

// Config names the external tools.
type Config struct {
	PDFSeparate string
	PDFCrop     string
	PDFToPPM    string

	// WorkDir holds the intermediate page PDFs. Default: the PDF's directory.
	WorkDir string
}

// DefaultConfig returns the standard tool names.
func DefaultConfig() Config {
	return Config{
		PDFSeparate: "pdfseparate",
		PDFCrop:     "pdfcrop",
		PDFToPPM:    "pdftoppm",
	}
}

// ToolError is a failed external tool run.
type ToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Poppler implements Rasterizer with pdfseparate, pdfcrop and pdftoppm.
type Poppler struct {
	cfg Config
	log zerolog.Logger
}

// NewPoppler returns a Poppler rasterizer. Empty tool names take their
// defaults.
func NewPoppler(cfg Config, log zerolog.Logger) *Poppler {
	def := DefaultConfig()
	if cfg.PDFSeparate == "" {
		cfg.PDFSeparate = def.PDFSeparate
	}
	if cfg.PDFCrop == "" {
		cfg.PDFCrop = def.PDFCrop
	}
	if cfg.PDFToPPM == "" {
		cfg.PDFToPPM = def.PDFToPPM
	}
	return &Poppler{cfg: cfg, log: log}
}

func (p *Poppler) Crop(ctx context.Context, pdf string, page int) (Cropped, error) {
	dir := p.cfg.WorkDir
	if dir == "" {
		dir = filepath.Dir(pdf)
	}
	base := filepath.Base(pdf)
	base = base[:len(base)-len(filepath.Ext(base))]

	single := filepath.Join(dir, fmt.Sprintf("%s-page%d.pdf", base, page))
	n := strconv.Itoa(page)
	if _, err := p.run(ctx, p.cfg.PDFSeparate, "-f", n, "-l", n, pdf, single); err != nil {
		return Cropped{}, err
	}

	cropped := filepath.Join(dir, fmt.Sprintf("%s-page%d-crop.pdf", base, page))
	out, err := p.run(ctx, p.cfg.PDFCrop, "--verbose", single, cropped)
	if err != nil {
		return Cropped{}, err
	}
	bbox, err := latex.ParseBBox(out)
	if err != nil {
		return Cropped{}, fmt.Errorf("crop page %d of %s: %w", page, pdf, err)
	}
	return Cropped{Path: cropped, BBox: bbox}, nil
}

func (p *Poppler) Render(ctx context.Context, c Cropped, dpi float64) (image.Image, error) {
	prefix := c.Path[:len(c.Path)-len(filepath.Ext(c.Path))]
	res := strconv.FormatFloat(dpi, 'f', -1, 64)
	if _, err := p.run(ctx, p.cfg.PDFToPPM, "-png", "-singlefile", "-r", res, c.Path, prefix); err != nil {
		return nil, err
	}
	return LoadPNG(prefix + ".png")
}

func (p *Poppler) run(ctx context.Context, tool string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	p.log.Debug().Str("cmd", cmd.String()).Msg("running")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &ToolError{Tool: tool, Output: string(out), Err: err}
	}
	return string(out), nil
}

// LoadPNG decodes a PNG file.
func LoadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// SavePNG encodes img to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
