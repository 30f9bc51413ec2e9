package label

import (
	"errors"
	"fmt"
)

// Kind distinguishes labels that belong in the diagram from decoys.
type Kind string

const (
	// KindMatch labels appear in the target expression and own a correct box.
	KindMatch Kind = "match"

	// KindDistractor labels are decoys with no required placement.
	KindDistractor Kind = "distractor"
)

// Label is a single draggable unit of a compiled problem.
type Label struct {
	// Text is the raw author-supplied LaTeX or plain text.
	Text string

	Kind Kind

	// MathExp is the normalized expression substituted into formulas.
	MathExp string

	// Variable is the sampled free variable, or "" for constants.
	Variable string

	// Unmapped is the math expression a distractor had before its variable
	// was replaced by the dummy. Empty when no remapping happened.
	Unmapped string

	// DraggableID is unique within the registry and letters-only.
	DraggableID string

	// Index is the primary box index assigned at registration.
	Index int

	// Image numbers the label's standalone draggable on the label sheet.
	Image int

	// Extra holds indices minted for additional diagram occurrences,
	// in mint order.
	Extra []int
}

// Indices returns the primary index followed by every additional
// occurrence index.
func (l *Label) Indices() []int {
	out := make([]int, 0, 1+len(l.Extra))
	out = append(out, l.Index)
	return append(out, l.Extra...)
}

// Expressions returns the spellings a formula may use for this label:
// MathExp, then Unmapped when set.
func (l *Label) Expressions() []string {
	if l.Unmapped == "" || l.Unmapped == l.MathExp {
		return []string{l.MathExp}
	}
	return []string{l.MathExp, l.Unmapped}
}

// Constant reports whether the label denotes a pure number.
func (l *Label) Constant() bool {
	return l.Variable == ""
}

// ErrIndexTaken signals that a box index was handed out twice. Sequential
// assignment never triggers it; seeing it means a registry invariant broke.
var ErrIndexTaken = errors.New("box index already taken")

// AuthoringError reports a label the author must fix.
type AuthoringError struct {
	Label   string
	Message string
}

func (e *AuthoringError) Error() string {
	return fmt.Sprintf("label %q: %s", e.Label, e.Message)
}

// Variables returns the de-duplicated math variables of labels in
// first-seen order. Constant labels contribute nothing.
func Variables(labels []*Label) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		if l.Variable == "" || seen[l.Variable] {
			continue
		}
		seen[l.Variable] = true
		out = append(out, l.Variable)
	}
	return out
}
