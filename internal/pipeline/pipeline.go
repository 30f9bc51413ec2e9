// Package pipeline runs a problem file through every stage: parse,
// compile, self-test, LaTeX, images, descriptor, check artifact and
// history.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/kr/pretty"
	"github.com/rs/zerolog"

	"github.com/abhisek/texdnd/internal/compiler"
	"github.com/abhisek/texdnd/internal/dndspec"
	"github.com/abhisek/texdnd/internal/dndtex"
	"github.com/abhisek/texdnd/internal/edx"
	"github.com/abhisek/texdnd/internal/grader"
	"github.com/abhisek/texdnd/internal/latex"
	"github.com/abhisek/texdnd/internal/raster"
	"github.com/abhisek/texdnd/internal/store"
)

// Pipeline compiles problem files into LMS-ready output.
type Pipeline struct {
	cfg    Config
	latex  latex.Compiler
	raster raster.Rasterizer
	runs   store.RunRepo
	log    zerolog.Logger
}

// New returns a Pipeline. runs may be nil to disable history.
func New(cfg Config, lc latex.Compiler, rz raster.Rasterizer, runs store.RunRepo, log zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, latex: lc, raster: rz, runs: runs, log: log}
}

// Result describes a finished compile.
type Result struct {
	Problem  *compiler.Problem
	Artifact *grader.Artifact
	Tests    []grader.TestResult

	// Files lists every written file in write order.
	Files []string
	Bytes int64

	// SolutionKey is the random part of the solution image name.
	SolutionKey string

	Run *store.Run
}

// Run compiles the problem file at path. The run is recorded in the
// history whether or not it succeeds.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	res := &Result{}
	err := p.run(ctx, path, res)

	run := p.record(ctx, path, res, err, time.Since(start))
	res.Run = run
	if err != nil {
		return res, err
	}

	p.log.Info().
		Str("problem", run.Name).
		Int("files", len(res.Files)).
		Str("size", humanize.Bytes(uint64(res.Bytes))).
		Dur("took", run.Duration).
		Msg("compiled")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, path string, res *Result) error {
	if strings.EqualFold(filepath.Ext(path), ".tex") {
		return p.runTex(ctx, path, res)
	}

	spec, err := dndspec.ParseFile(path)
	if err != nil {
		return err
	}
	p.log.Debug().Str("file", path).Int("labels", len(spec.Labels())).Msg("parsed problem")

	prob, err := compiler.Compile(spec, p.cfg.Compile)
	if err != nil {
		return fmt.Errorf("compile %s: %w", spec.Name, err)
	}
	if err := p.check(prob, res); err != nil {
		return err
	}

	out := p.outputDir(path)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	files := newFileSet(out)
	defer func() { res.Files, res.Bytes = files.names, files.bytes }()
	base := spec.Name + "_dnd"

	tex, err := dndtex.Render(dndtex.Document{
		Expression:  prob.Expression,
		Comment:     prob.Comment,
		Labels:      prob.Labels,
		BoxWidth:    spec.BoxWidth,
		BoxHeight:   spec.BoxHeight,
		ExtraHeader: spec.ExtraHeaderTex,
	})
	if err != nil {
		return err
	}
	texPath, err := files.write(base+".tex", tex)
	if err != nil {
		return err
	}
	if _, err := dndtex.WriteStyle(out); err != nil {
		return err
	}

	if p.cfg.OutputTex {
		return nil
	}

	pdf := latex.Output{
		PDF: filepath.Join(out, base+".pdf"),
		Aux: filepath.Join(out, base+".aux"),
	}
	if !p.cfg.SkipLaTeX {
		if pdf, err = p.latex.Compile(ctx, texPath); err != nil {
			return err
		}
	}
	return p.publish(ctx, prob, pdf, files, base, res)
}

// runTex compiles an authored .tex file. Its labels, boxes, formula and
// tests come from the .dnd file dnd.sty writes during the LaTeX run.
func (p *Pipeline) runTex(ctx context.Context, path string, res *Result) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Dir(path)
	if _, err := dndtex.WriteStyle(dir); err != nil {
		return err
	}

	pdf := latex.Output{
		PDF: filepath.Join(dir, name+".pdf"),
		Aux: filepath.Join(dir, name+".aux"),
	}
	if !p.cfg.SkipLaTeX {
		var err error
		if pdf, err = p.latex.Compile(ctx, path); err != nil {
			return err
		}
	}
	d, err := latex.ParseDndFile(latex.DndPath(pdf.Aux))
	if err != nil {
		return err
	}
	p.log.Debug().Str("file", path).Int("labels", len(d.Labels)).Int("boxes", len(d.Boxes)).Msg("read dnd records")

	prob, err := compiler.FromDnd(name, d, p.cfg.Compile)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	if err := p.check(prob, res); err != nil {
		return err
	}

	out := p.outputDir(path)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	files := newFileSet(out)
	defer func() { res.Files, res.Bytes = files.names, files.bytes }()
	return p.publish(ctx, prob, pdf, files, name+"_dnd", res)
}

// check builds the artifact and runs the self-tests. The command line
// check function and label reuse win over the problem's own options.
func (p *Pipeline) check(prob *compiler.Problem, res *Result) error {
	res.Problem = prob
	cfn, canReuse := p.cfg.Cfn, p.cfg.CanReuse
	if cfn == "" {
		cfn, _ = prob.Spec.Options.Get("custom_cfn")
	}
	if !canReuse {
		canReuse = prob.Spec.Options.Flag("can_reuse")
	}
	res.Artifact = prob.Artifact(cfn, canReuse)
	if e := p.log.Trace(); e.Enabled() {
		e.Msg(pretty.Sprint(res.Artifact))
	}

	var err error
	res.Tests, err = prob.SelfTest(cfn, p.cfg.Equal)
	if err != nil {
		return err
	}
	p.log.Debug().Int("tests", len(res.Tests)).Msg("self-tests passed")
	return nil
}

// publish turns a compiled PDF into images, the descriptor, the check
// artifact and the self-test report.
func (p *Pipeline) publish(ctx context.Context, prob *compiler.Problem, pdf latex.Output, files *fileSet, base string, res *Result) error {
	pos, err := latex.ParseAuxFile(pdf.Aux)
	if err != nil {
		return err
	}

	imgs, targets, err := p.images(ctx, prob, pdf.PDF, pos, files, base, res)
	if err != nil {
		return err
	}

	x, err := edx.Build(edx.Input{
		Problem:  prob,
		Artifact: res.Artifact,
		Images:   imgs,
		Targets:  targets,
	})
	if err != nil {
		return err
	}
	xb, err := x.Marshal()
	if err != nil {
		return err
	}
	if _, err := files.write(base+".xml", xb); err != nil {
		return err
	}

	if err := files.writeJSON(base+"_check.json", res.Artifact); err != nil {
		return err
	}
	if err := files.writeJSON(base+"_tests.json", res.Tests); err != nil {
		return err
	}

	spec := prob.Spec
	if p.cfg.Catsoop {
		md, err := edx.Catsoop(spec.Name, x, res.Artifact, spec.Feedback)
		if err != nil {
			return err
		}
		if _, err := files.write(spec.Name+".md", md); err != nil {
			return err
		}
	}

	if p.cfg.Cleanup {
		p.removeIntermediates(filepath.Dir(pdf.PDF), strings.TrimSuffix(filepath.Base(pdf.PDF), ".pdf"))
	}
	return nil
}

// images renders the problem, solution and draggable images and returns
// the target rectangles on the problem image.
func (p *Pipeline) images(ctx context.Context, prob *compiler.Problem, pdf string, pos latex.Positions, files *fileSet, base string, res *Result) (edx.Images, map[int]image.Rectangle, error) {
	resSpec := p.cfg.Resolution
	if resSpec == "" {
		resSpec = prob.Spec.Resolution
	}
	resolution, err := raster.ParseResolution(resSpec)
	if err != nil {
		return edx.Images{}, nil, err
	}

	page1, err := p.raster.Crop(ctx, pdf, 1)
	if err != nil {
		return edx.Images{}, nil, err
	}
	dpi := resolution.DPI
	if resolution.Fit {
		dpi = latex.FitDPI(page1.BBox, dpi, resolution.MaxWidth)
	}
	p.log.Debug().Float64("dpi", dpi).Str("resolution", resolution.String()).Msg("rendering")

	diagram, err := p.raster.Render(ctx, page1, dpi)
	if err != nil {
		return edx.Images{}, nil, err
	}

	targets := make(map[int]image.Rectangle)
	var rects []image.Rectangle
	for _, l := range prob.Match {
		for _, k := range l.Indices() {
			box, err := pos.Box(k)
			if err != nil {
				return edx.Images{}, nil, err
			}
			r := latex.PixelRect(box, page1.BBox, dpi)
			targets[k] = r
			rects = append(rects, r)
		}
	}

	// The fitted dpi is floored, so this only trims rounding overshoot.
	if resolution.Fit && diagram.Bounds().Dx() > resolution.MaxWidth {
		f := float64(resolution.MaxWidth) / float64(diagram.Bounds().Dx())
		diagram = raster.ScaleToWidth(diagram, resolution.MaxWidth)
		for k, r := range targets {
			targets[k] = scaleRect(r, f)
		}
		for i, r := range rects {
			rects[i] = scaleRect(r, f)
		}
	}

	imgs := edx.Images{
		URL:     p.cfg.ImageURL,
		Problem: base + ".png",
		Labels:  make(map[int]string, len(prob.Labels)),
	}
	if err := files.png(imgs.Problem, raster.WhiteOut(diagram, rects)); err != nil {
		return edx.Images{}, nil, err
	}

	if p.cfg.Cleanup {
		stale, _ := filepath.Glob(filepath.Join(files.dir, base+"_sol_??????.png"))
		for _, f := range stale {
			p.log.Debug().Str("file", f).Msg("removing stale solution image")
			if err := os.Remove(f); err != nil {
				p.log.Warn().Err(err).Str("file", f).Msg("cleanup")
			}
		}
	}
	imgs.Solution = base + "_sol.png"
	if !p.cfg.NonRandom {
		res.SolutionKey = uuid.NewString()[:6]
		imgs.Solution = base + "_sol_" + res.SolutionKey + ".png"
	}
	if err := files.png(imgs.Solution, diagram); err != nil {
		return edx.Images{}, nil, err
	}

	page2, err := p.raster.Crop(ctx, pdf, 2)
	if err != nil {
		return edx.Images{}, nil, err
	}
	sheet, err := p.raster.Render(ctx, page2, dpi)
	if err != nil {
		return edx.Images{}, nil, err
	}
	for _, l := range prob.Registry.Labels() {
		box, err := pos.Label(l.Image)
		if err != nil {
			return edx.Images{}, nil, err
		}
		icon, err := raster.Extract(sheet, latex.PixelRect(box, page2.BBox, dpi))
		if err != nil {
			return edx.Images{}, nil, fmt.Errorf("draggable %s: %w", l.DraggableID, err)
		}
		name := fmt.Sprintf("%s_label%d.png", base, l.Image)
		if err := files.png(name, icon); err != nil {
			return edx.Images{}, nil, err
		}
		imgs.Labels[l.Index] = name
	}
	return imgs, targets, nil
}

func (p *Pipeline) removeIntermediates(dir, base string) {
	pages, _ := filepath.Glob(filepath.Join(dir, base+"-page*.pdf"))
	pngs, _ := filepath.Glob(filepath.Join(dir, base+"-page*.png"))
	for _, f := range append(pages, pngs...) {
		if err := os.Remove(f); err != nil {
			p.log.Warn().Err(err).Str("file", f).Msg("cleanup")
		}
	}
}

func (p *Pipeline) outputDir(path string) string {
	if p.cfg.OutputDir != "" {
		return p.cfg.OutputDir
	}
	return filepath.Dir(path)
}

// record appends the run to the history. A failure to record is logged,
// never returned.
func (p *Pipeline) record(ctx context.Context, path string, res *Result, runErr error, took time.Duration) *store.Run {
	run := &store.Run{
		SpecPath:    path,
		Name:        filepath.Base(path),
		Outcome:     store.OutcomeOK,
		OutputDir:   p.outputDir(path),
		OutputBytes: res.Bytes,
		Duration:    took,
	}
	if prob := res.Problem; prob != nil {
		run.Name = prob.Spec.Name
		run.Labels = len(prob.Registry.Labels())
		for _, l := range prob.Match {
			run.Boxes += len(l.Indices())
		}
		run.Tests = len(prob.Assertions)
		run.Samples = prob.Samples
		run.BoxedFormula = prob.BoxedFormula
	}
	for _, t := range res.Tests {
		if t.Passed {
			run.TestsPassed++
		}
	}

	var ste *grader.SelfTestError
	switch {
	case errors.As(runErr, &ste):
		run.Outcome = store.OutcomeSelfTestFailed
		run.Error = runErr.Error()
	case runErr != nil:
		run.Outcome = store.OutcomeFailed
		run.Error = runErr.Error()
	}

	if p.runs == nil {
		return run
	}
	if err := p.runs.Append(ctx, run); err != nil {
		p.log.Warn().Err(err).Msg("failed to record compile run")
	}
	return run
}

func scaleRect(r image.Rectangle, f float64) image.Rectangle {
	s := func(v int) int { return int(math.Round(float64(v) * f)) }
	return image.Rect(s(r.Min.X), s(r.Min.Y), s(r.Max.X), s(r.Max.Y))
}

// fileSet writes output files and keeps track of what it wrote.
type fileSet struct {
	dir   string
	names []string
	bytes int64
}

func newFileSet(dir string) *fileSet { return &fileSet{dir: dir} }

func (fs *fileSet) write(name string, data []byte) (string, error) {
	path := filepath.Join(fs.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	fs.add(path)
	return path, nil
}

func (fs *fileSet) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err = fs.write(name, append(b, '\n'))
	return err
}

func (fs *fileSet) png(name string, img image.Image) error {
	path := filepath.Join(fs.dir, name)
	if err := raster.SavePNG(path, img); err != nil {
		return err
	}
	fs.add(path)
	return nil
}

func (fs *fileSet) add(path string) {
	fs.names = append(fs.names, path)
	if st, err := os.Stat(path); err == nil {
		fs.bytes += st.Size()
	}
}
