// Package compiler turns a parsed problem description into a compiled
// Problem: registered labels, the boxed diagram, the boxed check formula,
// the sampling spec and the translated test assertions. It does no I/O.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/abhisek/texdnd/internal/dndspec"
	"github.com/abhisek/texdnd/internal/dndtex"
	"github.com/abhisek/texdnd/internal/formula"
	"github.com/abhisek/texdnd/internal/grader"
	"github.com/abhisek/texdnd/internal/label"
)

// DefaultCfn is the check function name used for formula grading.
const DefaultCfn = "dnd_check"

// Config holds compile settings that are not part of the spec file.
type Config struct {
	Label   label.Config
	Samples formula.SampleConfig

	// Validators replaces the default authoring validator chain when set.
	Validators []dndspec.Validator
}

// DefaultConfig returns the standard compile settings.
func DefaultConfig() Config {
	return Config{
		Label:   label.DefaultConfig(),
		Samples: formula.DefaultSampleConfig(),
	}
}

// Problem is a compiled drag-and-drop problem.
type Problem struct {
	Spec     *dndspec.Spec
	Registry *label.Registry

	// Labels holds every label in spec order (ALL_LABELS, or match labels
	// followed by distractors).
	Labels []*label.Label
	Match  []*label.Label

	// Expression is the diagram with box placeholders; Comment is the
	// original diagram as a LaTeX comment block.
	Expression string
	Comment    string

	// BoxedFormula and Canonical are empty for problems without a check
	// formula.
	BoxedFormula string
	Canonical    []int

	Variables []string
	Samples   string

	// Assertions starts with the answer key itself, followed by one entry
	// per TEST_CORRECT / TEST_INCORRECT line.
	Assertions []formula.Assertion

	Options grader.Options
}

// Compile validates s and compiles it.
func Compile(s *dndspec.Spec, cfg Config) (*Problem, error) {
	if err := dndspec.Validate(s, cfg.Validators...); err != nil {
		return nil, err
	}

	lcfg := cfg.Label
	if len(s.MathExp) > 0 {
		merged := make(map[string]string, len(lcfg.MathExp)+len(s.MathExp))
		for k, v := range lcfg.MathExp {
			merged[k] = v
		}
		for k, v := range s.MathExp {
			merged[k] = v
		}
		lcfg.MathExp = merged
	}
	reg := label.NewRegistry(lcfg)

	p := &Problem{Spec: s, Registry: reg}
	for _, text := range s.MatchLabels {
		l, err := reg.Register(text, label.KindMatch)
		if err != nil {
			return nil, fmt.Errorf("register match label: %w", err)
		}
		p.Match = append(p.Match, l)
	}
	for _, text := range s.Labels() {
		l, ok := reg.Lookup(text)
		if !ok {
			var err error
			if l, err = reg.Register(text, label.KindDistractor); err != nil {
				return nil, fmt.Errorf("register distractor: %w", err)
			}
		}
		p.Labels = append(p.Labels, l)
	}

	expr, err := dndtex.Assemble(s.Expression, p.Match, reg)
	if err != nil {
		return nil, err
	}
	p.Expression = expr
	p.Comment = dndtex.Comment(s.Expression)

	p.Variables = label.Variables(p.Labels)
	samples, err := sampleConfig(cfg.Samples, s.Options)
	if err != nil {
		return nil, err
	}
	p.Samples = formula.Build(p.Variables, samples)

	p.Options = grader.Options{
		AllowEmpty:       s.Options.Flag("allow_empty"),
		HideFormulaInput: s.Options.Flag("hide_formula_input"),
	}
	p.Options.ErrMsg, _ = s.Options.Get("err_msg")

	if s.HasFormula() {
		if err := p.boxFormula(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Problem) boxFormula() error {
	s := p.Spec
	if s.CheckFormulaBoxes != "" {
		p.BoxedFormula = s.CheckFormulaBoxes
	} else {
		boxed, err := formula.Box(s.CheckFormula, p.Match, false)
		if err != nil {
			return fmt.Errorf("box CHECK_FORMULA: %w", err)
		}
		p.BoxedFormula = boxed
	}

	if err := p.setCanonical(); err != nil {
		return err
	}

	key := formula.Assertion{
		Expect:     formula.Correct,
		Formula:    s.CheckFormula,
		Boxed:      p.BoxedFormula,
		Targets:    make([]string, len(p.Canonical)),
		Draggables: make([]string, len(p.Canonical)),
	}
	for i, k := range p.Canonical {
		owner, _ := p.Registry.ByIndex(k)
		key.Targets[i] = formula.TargetID(k)
		key.Draggables[i] = owner.DraggableID
	}
	p.Assertions = append(p.Assertions, key)

	all := p.Registry.Labels()
	for _, tc := range s.Tests {
		a, err := formula.BuildAssertion(tc, all, p.Canonical)
		if err != nil {
			return err
		}
		p.Assertions = append(p.Assertions, a)
	}
	return nil
}

// setCanonical reads the box order of BoxedFormula. Every box must be
// used once and belong to a label.
func (p *Problem) setCanonical() error {
	p.Canonical = formula.ExtractBoxIDs(p.BoxedFormula)
	if len(p.Canonical) == 0 {
		return fmt.Errorf("check formula %q contains no boxes", p.BoxedFormula)
	}
	seen := make(map[int]bool, len(p.Canonical))
	for _, k := range p.Canonical {
		if seen[k] {
			return fmt.Errorf("check formula %q: box [%d] used twice", p.BoxedFormula, k)
		}
		seen[k] = true
		if _, ok := p.Registry.ByIndex(k); !ok {
			return fmt.Errorf("check formula %q: box [%d] is not in the diagram", p.BoxedFormula, k)
		}
	}
	return nil
}

// Artifact builds the check artifact for the grading host. Formula
// problems graded by the default check function get the formula bag;
// everything else gets the exact-placement answer key.
func (p *Problem) Artifact(cfn string, canReuse bool) *grader.Artifact {
	if cfn == "" {
		cfn = DefaultCfn
	}
	a := &grader.Artifact{Cfn: cfn, Options: p.Options, CanReuse: canReuse}

	if p.BoxedFormula != "" && cfn == DefaultCfn {
		a.Formula = p.BoxedFormula
		a.Samples = p.Samples
		a.Expect = p.Spec.CheckFormula
		a.DraggableMap = make(map[string]string, len(p.Labels))
		for _, l := range p.Registry.Labels() {
			a.DraggableMap[l.DraggableID] = l.MathExp
		}
		return a
	}

	for _, l := range p.Match {
		for _, k := range l.Indices() {
			a.Answer = append(a.Answer, grader.Assignment{Draggable: l.DraggableID, Target: formula.TargetID(k)})
		}
	}
	return a
}

// SelfTest grades every assertion with the problem's own artifact. A
// failing assertion comes back as *grader.SelfTestError.
func (p *Problem) SelfTest(cfn string, opts grader.EqualOptions) ([]grader.TestResult, error) {
	if p.BoxedFormula == "" || (cfn != "" && cfn != DefaultCfn) {
		return nil, nil
	}
	return grader.RunSelfTests(p.Artifact(cfn, false), p.Assertions, opts)
}

func sampleConfig(base formula.SampleConfig, opts dndspec.Options) (formula.SampleConfig, error) {
	cfg := base
	if v, ok := opts.Get("nsamples"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("option nsamples=%q: want a positive integer", v)
		}
		cfg.N = n
	}
	if v, ok := opts.Get("sample_range"); ok {
		lo, hi, err := formula.ParseRange(v)
		if err != nil {
			return cfg, fmt.Errorf("option sample_range: %w", err)
		}
		cfg.Lo, cfg.Hi = lo, hi
	}
	return cfg, nil
}
