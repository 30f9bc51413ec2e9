package latex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alexflint/go-restructure"
)

// Records written to <jobname>.dnd by dnd.sty, one per line:
//
//	LABEL: 3 = Bprime /// $B^\prime$
//	BOX: 1 = Bprime
//	FORMULA: [1] * [2]
//	FORMULA_SAMPLES: B@1:20\#10
//	FORMULA_EXPECT: B * v
//	FORMULA_ERR: Check the field
//	TEST: incorrect /// 1,2 /// v,Bprime
//	OPTIONS: allow_empty custom_cfn=my_check
type dndLabelLine struct {
	_        string `^LABEL:\s*`
	Number   string `\d+`
	_        string `\s*=\s*`
	Name     string `.*?`
	_        string `\s*///\s?`
	Contents string `.*`
}

type dndBoxLine struct {
	_      string `^BOX:\s*`
	Box    string `[^ ]+`
	_      string `\s*=\s*`
	Answer string `.*`
}

type dndTestLine struct {
	_          string `^TEST:\s*`
	Expect     string `[^/]+`
	_          string `///`
	Targets    string `[^/]+`
	_          string `///`
	Draggables string `[^/]+`
}

type dndField struct {
	_     string `^`
	Key   string `FORMULA_SAMPLES|FORMULA_EXPECT|FORMULA_ERR|FORMULA|OPTIONS`
	_     string `:\s?`
	Value string `.*`
}

var (
	dndLabelPattern = restructure.MustCompile(&dndLabelLine{}, restructure.Options{})
	dndBoxPattern   = restructure.MustCompile(&dndBoxLine{}, restructure.Options{})
	dndTestPattern  = restructure.MustCompile(&dndTestLine{}, restructure.Options{})
	dndFieldPattern = restructure.MustCompile(&dndField{}, restructure.Options{})
)

// DndLabel is a draggable declared with \DDlabel.
type DndLabel struct {
	// Number locates the standalone draggable (boxLABEL<n>).
	Number int

	// Name is the draggable id.
	Name string

	// Contents is the math expression given as the optional argument,
	// or else the label's typeset contents.
	Contents string
}

// MathExp returns Contents without surrounding $ delimiters.
func (l DndLabel) MathExp() string {
	s := strings.TrimSpace(l.Contents)
	if len(s) >= 2 && strings.HasPrefix(s, "$") && strings.HasSuffix(s, "$") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// DndBox is a target placed with \DDB.
type DndBox struct {
	Box    int
	Answer string
}

// DndTest is a \DDtest declaration: Draggables[i] dropped on Targets[i].
type DndTest struct {
	Expect     string
	Targets    []string
	Draggables []string
	Line       int
}

// Dnd is the problem description an authored .tex file leaves behind.
type Dnd struct {
	Labels []DndLabel
	Boxes  []DndBox

	// Formula keeps its [n] box references.
	Formula string
	Samples string
	Expect  string
	Err     string

	Tests []DndTest

	// Options holds \DDoptions entries. Bare keys map to "true".
	Options map[string]string
}

// ParseDnd reads a .dnd file. Unrecognized lines are ignored.
func ParseDnd(r io.Reader) (*Dnd, error) {
	d := &Dnd{Options: make(map[string]string)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")

		var l dndLabelLine
		if dndLabelPattern.Find(&l, text) {
			n, err := strconv.Atoi(l.Number)
			if err != nil {
				return nil, fmt.Errorf("dnd line %d: label number: %w", line, err)
			}
			d.Labels = append(d.Labels, DndLabel{Number: n, Name: strings.TrimSpace(l.Name), Contents: strings.TrimSpace(l.Contents)})
			continue
		}

		var b dndBoxLine
		if dndBoxPattern.Find(&b, text) {
			n, err := strconv.Atoi(b.Box)
			if err != nil {
				return nil, fmt.Errorf("dnd line %d: box %q: want a number", line, b.Box)
			}
			d.Boxes = append(d.Boxes, DndBox{Box: n, Answer: strings.TrimSpace(b.Answer)})
			continue
		}

		var t dndTestLine
		if dndTestPattern.Find(&t, text) {
			tc := DndTest{
				Expect:     strings.ToLower(strings.TrimSpace(t.Expect)),
				Targets:    splitIDs(t.Targets),
				Draggables: splitIDs(t.Draggables),
				Line:       line,
			}
			if tc.Expect != "correct" && tc.Expect != "incorrect" {
				return nil, fmt.Errorf("dnd line %d: test outcome %q: want correct or incorrect", line, tc.Expect)
			}
			if len(tc.Targets) != len(tc.Draggables) {
				return nil, fmt.Errorf("dnd line %d: test names %d targets but %d draggables", line, len(tc.Targets), len(tc.Draggables))
			}
			d.Tests = append(d.Tests, tc)
			continue
		}

		var f dndField
		if !dndFieldPattern.Find(&f, text) {
			continue
		}
		v := strings.TrimSpace(f.Value)
		switch f.Key {
		case "FORMULA":
			d.Formula = v
		case "FORMULA_SAMPLES":
			d.Samples = strings.ReplaceAll(v, `\#`, "#")
		case "FORMULA_EXPECT":
			d.Expect = v
		case "FORMULA_ERR":
			d.Err = v
		case "OPTIONS":
			for _, opt := range strings.Fields(v) {
				k, val, ok := strings.Cut(opt, "=")
				if !ok {
					val = "true"
				}
				d.Options[strings.ToLower(k)] = val
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dnd: %w", err)
	}
	return d, nil
}

// ParseDndFile reads the .dnd file at path.
func ParseDndFile(path string) (*Dnd, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dnd (did latex run?): %w", err)
	}
	defer f.Close()
	return ParseDnd(f)
}

// DndPath returns the .dnd file written next to an .aux file.
func DndPath(aux string) string {
	return strings.TrimSuffix(aux, ".aux") + ".dnd"
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
