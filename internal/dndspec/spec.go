// Package dndspec reads the line-oriented problem description that
// authors write for drag-and-drop formula problems.
package dndspec

import (
	"sort"
	"strings"

	"github.com/abhisek/texdnd/internal/formula"
)

// Spec is a parsed problem description.
type Spec struct {
	// Name is the problem name, usually the spec file name without
	// extension. Output files are named after it.
	Name string

	MatchLabels      []string
	DistractorLabels []string
	AllLabels        []string

	// MathExp holds explicit label -> math expression overrides.
	MathExp map[string]string

	// Expression is the verbatim LaTeX between BEGIN_EXPRESSION and
	// END_EXPRESSION.
	Expression string

	CheckFormula      string
	CheckFormulaBoxes string
	Tests             []formula.TestCase

	BoxWidth       string
	BoxHeight      string
	Delimiter      string
	Resolution     string
	Feedback       string
	ExtraHeaderTex string

	Options Options
}

// Labels returns the ordered label list used for registration and for
// sampling order: ALL_LABELS when given, otherwise match labels followed
// by distractors.
func (s *Spec) Labels() []string {
	if len(s.AllLabels) > 0 {
		return s.AllLabels
	}
	out := make([]string, 0, len(s.MatchLabels)+len(s.DistractorLabels))
	seen := make(map[string]bool)
	for _, l := range append(append([]string(nil), s.MatchLabels...), s.DistractorLabels...) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// HasFormula reports whether the problem is graded by formula.
func (s *Spec) HasFormula() bool {
	return s.CheckFormula != "" || s.CheckFormulaBoxes != ""
}

// Options is the OPTIONS bag. Entries are "key=value" pairs or bare
// flags; a bare flag is stored with the value "true".
type Options map[string]string

// Flag reports whether a boolean option is set.
func (o Options) Flag(name string) bool {
	switch strings.ToLower(o[name]) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Get returns an option value.
func (o Options) Get(name string) (string, bool) {
	v, ok := o[name]
	return v, ok
}

// Keys returns the option names, sorted.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
