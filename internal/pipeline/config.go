package pipeline

import (
	"os"

	"github.com/abhisek/texdnd/internal/compiler"
	"github.com/abhisek/texdnd/internal/grader"
	"github.com/abhisek/texdnd/internal/latex"
	"github.com/abhisek/texdnd/internal/raster"
)

// DefaultImageURL is where the LMS serves course images from.
const DefaultImageURL = "/static/images"

// Config holds all settings of one compile.
type Config struct {
	// OutputDir receives every generated file. Default: the directory of
	// the problem file.
	OutputDir string

	// ImageURL is the base URL the descriptor uses for images.
	ImageURL string

	// Resolution overrides the problem's RESOLUTION when set. See
	// raster.ParseResolution for the accepted forms.
	Resolution string

	LaTeX   latex.Config
	Raster  raster.Config
	Compile compiler.Config
	Equal   grader.EqualOptions

	// Cfn replaces the default check function. Formula grading is then
	// left to the named function and the descriptor carries the
	// exact-placement key.
	Cfn string

	// CanReuse lets a draggable be dropped on more than one target.
	CanReuse bool

	// SkipLaTeX reuses the PDF and .aux left by an earlier run.
	SkipLaTeX bool

	// OutputTex stops after the .tex file is written and self-tests pass.
	// Authored .tex input has nothing to write and ignores it.
	OutputTex bool

	// Cleanup removes stale solution images and intermediate PDFs.
	Cleanup bool

	// NonRandom drops the random key from the solution image name.
	NonRandom bool

	// Catsoop also writes a catsoop markdown page.
	Catsoop bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ImageURL: DefaultImageURL,
		LaTeX:    latex.DefaultConfig(),
		Raster:   raster.DefaultConfig(),
		Compile:  compiler.DefaultConfig(),
		Equal:    grader.DefaultEqualOptions(),
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if u := os.Getenv("TEXDND_IMAGE_URL"); u != "" {
		cfg.ImageURL = u
	}
	if r := os.Getenv("TEXDND_RESOLUTION"); r != "" {
		cfg.Resolution = r
	}
	if c := os.Getenv("TEXDND_PDFLATEX"); c != "" {
		cfg.LaTeX.Command = c
	}
	if d := os.Getenv("TEXDND_OUTPUT_DIR"); d != "" {
		cfg.OutputDir = d
	}

	return cfg
}
