// Package dndtex rewrites the author's LaTeX diagram into numbered
// drag-and-drop boxes and renders the LaTeX document the images are cut
// from.
package dndtex

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/abhisek/texdnd/internal/label"
)

// MissingLabelError reports a match label that never occurs in the
// diagram expression.
type MissingLabelError struct {
	Label string
}

func (e *MissingLabelError) Error() string {
	return fmt.Sprintf("match label %q does not appear in the expression (labels must be separated by whitespace)", e.Label)
}

// Placeholder is the LaTeX box macro for box idx holding draggable id.
func Placeholder(idx int, draggableID string) string {
	return fmt.Sprintf(`\DDB{%d}{%s}`, idx, draggableID)
}

// Assemble replaces every whitespace-delimited occurrence of each match
// label in expr with a box placeholder. The first occurrence of a label
// takes its primary index; every further occurrence mints a new index in
// reg.
func Assemble(expr string, match []*label.Label, reg *label.Registry) (string, error) {
	out := expr
	for _, l := range match {
		re, err := regexp2.Compile(`(?<=^|\s)`+regexp2.Escape(l.Text)+`(?=\s|$)`, regexp2.None)
		if err != nil {
			return "", fmt.Errorf("compile pattern for %q: %w", l.Text, err)
		}

		n := 0
		var mintErr error
		out, err = re.ReplaceFunc(out, func(m regexp2.Match) string {
			if mintErr != nil {
				return m.String()
			}
			idx := l.Index
			if n > 0 {
				idx, mintErr = reg.AddOccurrence(l)
				if mintErr != nil {
					return m.String()
				}
			}
			n++
			return Placeholder(idx, l.DraggableID)
		}, -1, -1)
		if err != nil {
			return "", fmt.Errorf("assemble %q: %w", l.Text, err)
		}
		if mintErr != nil {
			return "", mintErr
		}
		if n == 0 {
			return "", &MissingLabelError{Label: l.Text}
		}
	}
	return out, nil
}

// Comment turns expr into an inert LaTeX comment block.
func Comment(expr string) string {
	lines := strings.Split(expr, "\n")
	for i, line := range lines {
		lines[i] = "% " + line
	}
	return strings.Join(lines, "\n")
}
