// Package latex drives the PDF compiler and reads back the box positions
// it records in the .aux file.
package latex

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Compiler turns a .tex file into a PDF next to it.
type Compiler interface {
	// Compile returns the paths of the produced PDF and .aux files.
	Compile(ctx context.Context, texPath string) (Output, error)
}

// Output locates the files a compile produced.
type Output struct {
	PDF string
	Aux string
}

// Config configures the pdflatex runner.
type Config struct {
	// Command is the pdflatex executable. Default: "pdflatex".
	Command string

	// Interaction is passed as -interaction. Default: "nonstopmode".
	Interaction string

	// Runs is how many passes are made. zref positions are only correct
	// from the second pass on. Default: 2.
	Runs int
}

// DefaultConfig returns the standard pdflatex settings.
func DefaultConfig() Config {
	return Config{
		Command:     "pdflatex",
		Interaction: "nonstopmode",
		Runs:        2,
	}
}

// CompileError carries the tail of the compiler log.
type CompileError struct {
	Command string
	Log     string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s failed: %v\n%s", e.Command, e.Err, e.Log)
}

func (e *CompileError) Unwrap() error { return e.Err }

// PDFLaTeX runs pdflatex in the directory of the .tex file, with that
// directory added to TEXINPUTS so dnd.sty is found.
type PDFLaTeX struct {
	cfg Config
	log zerolog.Logger
}

// NewPDFLaTeX returns a runner. Zero fields of cfg take their defaults.
func NewPDFLaTeX(cfg Config, log zerolog.Logger) *PDFLaTeX {
	def := DefaultConfig()
	if cfg.Command == "" {
		cfg.Command = def.Command
	}
	if cfg.Interaction == "" {
		cfg.Interaction = def.Interaction
	}
	if cfg.Runs < 1 {
		cfg.Runs = def.Runs
	}
	return &PDFLaTeX{cfg: cfg, log: log}
}

func (p *PDFLaTeX) Compile(ctx context.Context, texPath string) (Output, error) {
	dir, file := filepath.Split(texPath)
	if dir == "" {
		dir = "."
	}
	base := strings.TrimSuffix(file, filepath.Ext(file))

	for run := 1; run <= p.cfg.Runs; run++ {
		cmd := exec.CommandContext(ctx, p.cfg.Command, "-interaction="+p.cfg.Interaction, file)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "TEXINPUTS="+texInputs(dir))

		p.log.Debug().Str("cmd", cmd.String()).Int("run", run).Msg("running latex")
		out, err := cmd.CombinedOutput()
		if err != nil {
			return Output{}, &CompileError{Command: p.cfg.Command, Log: tail(out, 40), Err: err}
		}
		p.log.Trace().Str("output", string(out)).Msg("latex output")
	}

	return Output{
		PDF: filepath.Join(dir, base+".pdf"),
		Aux: filepath.Join(dir, base+".aux"),
	}, nil
}

// texInputs prepends dir to TEXINPUTS. The trailing separator keeps the
// default search path.
func texInputs(dir string) string {
	sep := string(os.PathListSeparator)
	if cur := os.Getenv("TEXINPUTS"); cur != "" {
		return dir + sep + strings.TrimSuffix(cur, sep) + sep
	}
	return dir + sep
}

func tail(out []byte, n int) string {
	lines := bytes.Split(bytes.TrimRight(out, "\n"), []byte("\n"))
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return string(bytes.Join(lines, []byte("\n")))
}
