package formula

import (
	"fmt"
	"strconv"

	"github.com/abhisek/texdnd/internal/label"
)

// Outcome is the declared result of a test case.
type Outcome string

const (
	Correct   Outcome = "correct"
	Incorrect Outcome = "incorrect"
)

// TestCase is one TEST_CORRECT or TEST_INCORRECT declaration.
type TestCase struct {
	Formula string
	Expect  Outcome
	Line    int
}

// Assertion is a test case translated into a drag-and-drop submission:
// Draggables[i] is dropped on Targets[i].
type Assertion struct {
	Expect     Outcome  `json:"etype"`
	Targets    []string `json:"target_ids"`
	Draggables []string `json:"draggable_ids"`
	Formula    string   `json:"formula,omitempty"`
	Boxed      string   `json:"boxed,omitempty"`
}

// TestError reports a test formula whose boxes cannot be zipped against
// the canonical check formula.
type TestError struct {
	Test TestCase
	Got  int
	Want int
	Err  error
}

func (e *TestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("test %q (line %d): %v", e.Test.Formula, e.Test.Line, e.Err)
	}
	return fmt.Sprintf("test %q (line %d): incomplete or malformed test, found %d boxes but the check formula has %d",
		e.Test.Formula, e.Test.Line, e.Got, e.Want)
}

func (e *TestError) Unwrap() error { return e.Err }

// TargetID is the diagram target id of box k.
func TargetID(k int) string {
	return strconv.Itoa(k)
}

// BuildAssertion boxes a test formula against every label and zips its box
// sequence against the canonical one: the label owning the i-th box of the
// test is the draggable dropped on the i-th canonical target.
func BuildAssertion(tc TestCase, labels []*label.Label, canonical []int) (Assertion, error) {
	boxed, err := Box(tc.Formula, labels, true)
	if err != nil {
		return Assertion{}, &TestError{Test: tc, Err: err}
	}
	ids := ExtractBoxIDs(boxed)
	if len(ids) != len(canonical) {
		return Assertion{}, &TestError{Test: tc, Got: len(ids), Want: len(canonical)}
	}

	owners := make(map[int]*label.Label)
	for _, l := range labels {
		for _, k := range l.Indices() {
			owners[k] = l
		}
	}

	a := Assertion{
		Expect:     tc.Expect,
		Formula:    tc.Formula,
		Boxed:      boxed,
		Targets:    make([]string, len(ids)),
		Draggables: make([]string, len(ids)),
	}
	for i, k := range ids {
		owner, ok := owners[k]
		if !ok {
			return Assertion{}, &TestError{Test: tc, Err: fmt.Errorf("box [%d] has no label", k)}
		}
		a.Targets[i] = TargetID(canonical[i])
		a.Draggables[i] = owner.DraggableID
	}
	return a, nil
}
