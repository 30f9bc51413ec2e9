package grader

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/texdnd/internal/formula"
)

// Options is the option bag shipped with a check artifact.
type Options struct {
	// AllowEmpty treats an unfilled target as the multiplicative identity.
	AllowEmpty bool `json:"allow_empty,omitempty"`

	// HideFormulaInput suppresses echoing the reconstructed expression.
	HideFormulaInput bool `json:"hide_formula_input,omitempty"`

	// ErrMsg is appended (as HTML) to the message of an incorrect answer.
	ErrMsg string `json:"err_msg,omitempty"`
}

// Artifact is everything the grading host needs to check a submission.
// Formula problems carry Formula/DraggableMap/Samples/Expect; problems
// without a check formula carry the exact-placement Answer key instead.
type Artifact struct {
	Cfn          string            `json:"cfn"`
	Formula      string            `json:"formula,omitempty"`
	DraggableMap map[string]string `json:"draggable_map,omitempty"`
	Samples      string            `json:"samples,omitempty"`
	Expect       string            `json:"expect,omitempty"`
	Options      Options           `json:"options"`
	Answer       []Assignment      `json:"answer,omitempty"`
	CanReuse     bool              `json:"can_reuse,omitempty"`
}

// Assignment is one draggable dropped on one target. On the wire it is
// the single-key object {"<draggable_id>": "<target_id>"}.
type Assignment struct {
	Draggable string
	Target    string
}

func (a Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{a.Draggable: a.Target})
}

func (a *Assignment) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("assignment must have exactly one draggable, got %d", len(m))
	}
	for k, v := range m {
		a.Draggable, a.Target = k, v
	}
	return nil
}

// ParseSubmission decodes a submission list.
func ParseSubmission(data []byte) ([]Assignment, error) {
	var sub []Assignment
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("parse submission: %w", err)
	}
	return sub, nil
}

// Result is the verdict returned to the grading host.
type Result struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

const incompleteMsg = "Sorry, your input is incomplete"

// Check grades a submission. Everything a submission can trigger
// (incomplete input, a bad sampling spec, a formula that fails to
// evaluate at a sample point) comes back as a failing Result with the
// reason in Msg. An error means the artifact itself is unusable.
func Check(a *Artifact, sub []Assignment, opts EqualOptions) (Result, error) {
	if a.Formula == "" {
		return checkPlacement(a, sub), nil
	}
	if len(formula.ExtractBoxIDs(a.Formula)) == 0 {
		return Result{}, &ArtifactError{Err: fmt.Errorf("formula %q has no [n] targets", a.Formula)}
	}

	values := make(map[string]string, len(sub))
	for _, s := range sub {
		if exp, ok := a.DraggableMap[s.Draggable]; ok {
			values[s.Target] = exp
		}
	}

	policy := FailOnMissing
	if a.Options.AllowEmpty {
		policy = MissingIsOne
	}
	given, err := Substitute(formula.Template(a.Formula), values, policy)
	if err != nil {
		return Result{OK: false, Msg: incompleteMsg}, nil
	}

	var msg string
	if !a.Options.HideFormulaInput {
		msg = "You have input the expression: " + given
	}

	ok, err := FormulasEqual(a.Expect, given, a.Samples, opts)
	if err != nil {
		ok = false
		msg += "<br/>error " + htmlEscaper.Replace(err.Error())
	}
	if !ok && a.Options.ErrMsg != "" {
		msg += `<br/><font color="red">` + a.Options.ErrMsg + `</font>`
	}
	return Result{OK: ok, Msg: msg}, nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// checkPlacement grades against an exact answer key. With reusable
// draggables a submission only needs to contain every required placement.
func checkPlacement(a *Artifact, sub []Assignment) Result {
	got := make(map[Assignment]bool, len(sub))
	for _, s := range sub {
		got[s] = true
	}
	for _, want := range a.Answer {
		if !got[want] {
			return Result{OK: false, Msg: a.Options.ErrMsg}
		}
	}
	if !a.CanReuse && len(got) != len(a.Answer) {
		return Result{OK: false, Msg: a.Options.ErrMsg}
	}
	return Result{OK: true}
}

