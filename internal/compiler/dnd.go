package compiler

import (
	"fmt"

	"github.com/abhisek/texdnd/internal/dndspec"
	"github.com/abhisek/texdnd/internal/formula"
	"github.com/abhisek/texdnd/internal/grader"
	"github.com/abhisek/texdnd/internal/label"
	"github.com/abhisek/texdnd/internal/latex"
)

// FromDnd builds a Problem from the records an authored .tex file left in
// its .dnd file. Draggable ids, label numbers and box indices are the
// author's. The diagram is the author's own, so Expression stays empty.
func FromDnd(name string, d *latex.Dnd, cfg Config) (*Problem, error) {
	s := &dndspec.Spec{
		Name:              name,
		CheckFormula:      d.Expect,
		CheckFormulaBoxes: d.Formula,
		Options:           dndspec.Options(d.Options),
	}
	if s.Options == nil {
		s.Options = dndspec.Options{}
	}
	reg := label.NewRegistry(cfg.Label)
	p := &Problem{Spec: s, Registry: reg}

	declared := make(map[string]bool, len(d.Labels))
	for _, l := range d.Labels {
		declared[l.Name] = true
	}
	boxes := make(map[string][]int)
	for _, b := range d.Boxes {
		if !declared[b.Answer] {
			return nil, &label.AuthoringError{Label: b.Answer, Message: fmt.Sprintf("answer of box %d has no \\DDlabel", b.Box)}
		}
		boxes[b.Answer] = append(boxes[b.Answer], b.Box)
	}
	if len(d.Boxes) == 0 {
		return nil, fmt.Errorf("%s: no \\DDB boxes recorded", name)
	}

	byName := make(map[string]*label.Label, len(d.Labels))
	adopt := func(l latex.DndLabel, match bool) error {
		if match != (len(boxes[l.Name]) > 0) {
			return nil
		}
		got, err := reg.Adopt(l.Contents, l.Name, l.MathExp(), l.Number, boxes[l.Name])
		if err != nil {
			return fmt.Errorf("label %d: %w", l.Number, err)
		}
		byName[l.Name] = got
		if match {
			p.Match = append(p.Match, got)
		}
		return nil
	}
	for _, pass := range []bool{true, false} {
		for _, l := range d.Labels {
			if err := adopt(l, pass); err != nil {
				return nil, err
			}
		}
	}
	for _, l := range d.Labels {
		p.Labels = append(p.Labels, byName[l.Name])
	}
	p.Variables = label.Variables(p.Labels)

	p.Options = grader.Options{
		AllowEmpty:       s.Options.Flag("allow_empty"),
		HideFormulaInput: s.Options.Flag("hide_formula_input"),
		ErrMsg:           d.Err,
	}
	if p.Options.ErrMsg == "" {
		p.Options.ErrMsg, _ = s.Options.Get("err_msg")
	}

	if d.Formula == "" {
		return p, nil
	}
	if d.Expect == "" {
		return nil, fmt.Errorf("%s: \\DDformula has no expected formula", name)
	}
	p.Samples = d.Samples
	if p.Samples == "" {
		samples, err := sampleConfig(cfg.Samples, s.Options)
		if err != nil {
			return nil, err
		}
		p.Samples = formula.Build(p.Variables, samples)
	}
	p.BoxedFormula = d.Formula
	if err := p.setCanonical(); err != nil {
		return nil, err
	}

	key := formula.Assertion{Expect: formula.Correct, Formula: d.Expect, Boxed: d.Formula}
	for _, b := range d.Boxes {
		key.Targets = append(key.Targets, formula.TargetID(b.Box))
		key.Draggables = append(key.Draggables, b.Answer)
	}
	p.Assertions = append(p.Assertions, key)
	for _, t := range d.Tests {
		p.Assertions = append(p.Assertions, formula.Assertion{
			Expect:     formula.Outcome(t.Expect),
			Targets:    t.Targets,
			Draggables: t.Draggables,
		})
	}
	return p, nil
}
