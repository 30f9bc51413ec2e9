package dndspec

import "fmt"

// Validator checks a parsed spec for authoring mistakes before anything
// is compiled. Implementations should be stateless.
type Validator interface {
	// Name returns a short identifier used in error messages, e.g.
	// "structural" or "labelset".
	Name() string

	Validate(s *Spec) *ValidationError
}

// ValidationError describes why a spec was rejected.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// DefaultValidators returns the standard validator chain in run order.
func DefaultValidators() []Validator {
	return []Validator{
		&StructuralValidator{},
		&LabelSetValidator{},
		&FormulaValidator{},
	}
}

// Validate runs validators in order and returns the first failure.
func Validate(s *Spec, validators ...Validator) error {
	if len(validators) == 0 {
		validators = DefaultValidators()
	}
	for _, v := range validators {
		if err := v.Validate(s); err != nil {
			return err
		}
	}
	return nil
}

// StructuralValidator checks that the required sections are present.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(s *Spec) *ValidationError {
	if len(s.MatchLabels) == 0 {
		return &ValidationError{Validator: v.Name(), Message: "MATCH_LABELS is empty"}
	}
	if s.Expression == "" {
		return &ValidationError{Validator: v.Name(), Message: "no BEGIN_EXPRESSION ... END_EXPRESSION block"}
	}
	return nil
}

// LabelSetValidator checks that the label lists agree with each other.
type LabelSetValidator struct{}

func (v *LabelSetValidator) Name() string { return "labelset" }

func (v *LabelSetValidator) Validate(s *Spec) *ValidationError {
	if dup := firstDuplicate(s.MatchLabels); dup != "" {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("match label %q listed twice", dup)}
	}
	if len(s.AllLabels) == 0 {
		return nil
	}
	if dup := firstDuplicate(s.AllLabels); dup != "" {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("label %q listed twice in ALL_LABELS", dup)}
	}
	all := make(map[string]bool, len(s.AllLabels))
	for _, l := range s.AllLabels {
		all[l] = true
	}
	for _, l := range s.MatchLabels {
		if !all[l] {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("match label %q missing from ALL_LABELS", l)}
		}
	}
	for _, l := range s.DistractorLabels {
		if !all[l] {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("distractor label %q missing from ALL_LABELS", l)}
		}
	}
	return nil
}

// FormulaValidator checks that formula-related directives are coherent.
type FormulaValidator struct{}

func (v *FormulaValidator) Name() string { return "formula" }

func (v *FormulaValidator) Validate(s *Spec) *ValidationError {
	if len(s.Tests) > 0 && s.CheckFormula == "" {
		return &ValidationError{Validator: v.Name(), Message: "TEST_CORRECT/TEST_INCORRECT need a CHECK_FORMULA"}
	}
	if s.CheckFormulaBoxes != "" && s.CheckFormula == "" {
		return &ValidationError{Validator: v.Name(), Message: "CHECK_FORMULA_BOXES needs a CHECK_FORMULA"}
	}
	for _, k := range []string{"nsamples", "sample_range"} {
		if val, ok := s.Options[k]; ok && val == "" {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("option %s has no value", k)}
		}
	}
	return nil
}

func firstDuplicate(items []string) string {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			return it
		}
		seen[it] = true
	}
	return ""
}
