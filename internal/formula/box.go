// Package formula translates answer formulas written over label math
// expressions into boxed form, where each label occurrence becomes a
// bracketed reference to the diagram box it stands for.
package formula

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/abhisek/texdnd/internal/label"
)

// Boundary classes for occurrence matching. A math expression is only
// replaced when it is not glued to an identifier, a number, an exponent
// or an existing box reference.
const (
	notBefore = `(?<![A-Za-z0-9_.^\[])`
	notAfter  = `(?![A-Za-z0-9_.^\]])`
)

var boxRefRe = regexp.MustCompile(`\[(\d+)\]`)

// BoxingError reports a formula that cannot be mapped onto the diagram.
type BoxingError struct {
	Formula string
	Label   string
	Message string
}

func (e *BoxingError) Error() string {
	return fmt.Sprintf("formula %q, label %q: %s", e.Formula, e.Label, e.Message)
}

// Box rewrites every occurrence of each label's math expression in f as
// "([k])". The n-th occurrence of a label consumes its n-th box index
// (primary first, then additional diagram occurrences in mint order).
// A remapped distractor also matches its original spelling.
//
// Labels are substituted longest math expression first so that "m_12" is
// not split by "m_1". When missingOK is false every label must appear at
// least once.
func Box(f string, labels []*label.Label, missingOK bool) (string, error) {
	ordered := make([]*label.Label, len(labels))
	copy(ordered, labels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return longest(ordered[i].Expressions()) > longest(ordered[j].Expressions())
	})

	out := f
	for _, l := range ordered {
		if l.MathExp == "" {
			continue
		}
		re, err := occurrenceRegexp(l.Expressions())
		if err != nil {
			return "", fmt.Errorf("compile pattern for %q: %w", l.Text, err)
		}

		indices := l.Indices()
		n := 0
		var overflow bool
		out, err = re.ReplaceFunc(out, func(m regexp2.Match) string {
			if n >= len(indices) {
				overflow = true
				return m.String()
			}
			k := indices[n]
			n++
			return "([" + strconv.Itoa(k) + "])"
		}, -1, -1)
		if err != nil {
			return "", fmt.Errorf("box %q: %w", l.Text, err)
		}
		if overflow {
			return "", &BoxingError{
				Formula: f,
				Label:   l.Text,
				Message: fmt.Sprintf("more matches than diagram occurrences (%d)", len(indices)),
			}
		}
		if n == 0 && !missingOK {
			return "", &BoxingError{
				Formula: f,
				Label:   l.Text,
				Message: fmt.Sprintf("math expression %q does not appear in the formula", l.MathExp),
			}
		}
	}
	return out, nil
}

// ExtractBoxIDs returns the box references of a boxed formula in textual
// order.
func ExtractBoxIDs(boxed string) []int {
	var ids []int
	for _, m := range boxRefRe.FindAllStringSubmatch(boxed, -1) {
		k, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, k)
	}
	return ids
}

// Template turns a boxed formula into a substitution template where box
// k becomes the placeholder "{k}". The grader fills placeholders with the
// math expression of whatever was dropped on target k.
func Template(boxed string) string {
	return boxRefRe.ReplaceAllString(boxed, "{$1}")
}

// occurrenceRegexp matches any of the spellings, longest first.
func occurrenceRegexp(exprs []string) (*regexp2.Regexp, error) {
	alts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if e != "" {
			alts = append(alts, e)
		}
	}
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	for i, a := range alts {
		alts[i] = regexp2.Escape(a)
	}
	return regexp2.Compile(notBefore+"(?:"+strings.Join(alts, "|")+")"+notAfter, regexp2.None)
}

func longest(ss []string) int {
	n := 0
	for _, s := range ss {
		n = max(n, len(s))
	}
	return n
}
