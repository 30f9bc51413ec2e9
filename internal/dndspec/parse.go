package dndspec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-restructure"

	"github.com/abhisek/texdnd/internal/formula"
)

// DefaultDelimiter separates list items unless DELIMETER says otherwise.
const DefaultDelimiter = ","

// ParseError names the offending line of a spec file.
type ParseError struct {
	Line    int
	Content string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Message, e.Content)
}

// a "KEY: value" directive line
type directive struct {
	_     string `^`
	Key   string `[A-Z][A-Z_]*`
	_     string `\s*:`
	Value string `.*`
	_     string `$`
}

var directivePattern = restructure.MustCompile(&directive{}, restructure.Options{})

const (
	beginExpression = "BEGIN_EXPRESSION"
	endExpression   = "END_EXPRESSION"
)

// ParseFile reads a spec file. The problem name is the file name without
// its extension.
func ParseFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spec: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(f, name)
}

// rawList is a list directive value kept unsplit until the delimiter is
// known; DELIMETER may appear anywhere in the file.
type rawList struct {
	line  int
	value string
}

// Parse reads a spec from r.
func Parse(r io.Reader, name string) (*Spec, error) {
	s := &Spec{
		Name:      name,
		MathExp:   make(map[string]string),
		Options:   make(Options),
		Delimiter: DefaultDelimiter,
	}

	var (
		match, distract, all, mathExp []rawList
		exprLines                     []string
		inExpr                        bool
		exprStart                     int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimRight(sc.Text(), "\r")
		line := strings.TrimSpace(raw)

		if inExpr {
			if line == endExpression {
				inExpr = false
				continue
			}
			exprLines = append(exprLines, raw)
			continue
		}

		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}
		if line == beginExpression {
			if exprLines != nil {
				return nil, &ParseError{Line: lineNo, Content: line, Message: "second expression block"}
			}
			inExpr, exprStart = true, lineNo
			exprLines = []string{}
			continue
		}

		var d directive
		if !directivePattern.Find(&d, line) {
			return nil, &ParseError{Line: lineNo, Content: line, Message: "unrecognized line"}
		}
		value := strings.TrimSpace(d.Value)

		switch d.Key {
		case "MATCH_LABELS":
			match = append(match, rawList{lineNo, value})
		case "DISTRACTOR_LABELS":
			distract = append(distract, rawList{lineNo, value})
		case "ALL_LABELS":
			all = append(all, rawList{lineNo, value})
		case "MATH_EXP":
			mathExp = append(mathExp, rawList{lineNo, value})
		case "CHECK_FORMULA":
			s.CheckFormula = value
		case "CHECK_FORMULA_BOXES":
			s.CheckFormulaBoxes = value
		case "TEST_CORRECT":
			s.Tests = append(s.Tests, formula.TestCase{Formula: value, Expect: formula.Correct, Line: lineNo})
		case "TEST_INCORRECT":
			s.Tests = append(s.Tests, formula.TestCase{Formula: value, Expect: formula.Incorrect, Line: lineNo})
		case "BOX_WIDTH":
			s.BoxWidth = value
		case "BOX_HEIGHT":
			s.BoxHeight = value
		case "DELIMETER", "DELIMITER":
			if value != "" {
				s.Delimiter = value
			}
		case "RESOLUTION":
			s.Resolution = value
		case "OPTIONS":
			parseOptions(s.Options, value)
		case "FEEDBACK":
			s.Feedback = appendLine(s.Feedback, value)
		case "EXTRA_HEADER_TEX":
			s.ExtraHeaderTex = appendLine(s.ExtraHeaderTex, value)
		default:
			return nil, &ParseError{Line: lineNo, Content: line, Message: "unknown directive " + d.Key}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	if inExpr {
		return nil, &ParseError{Line: exprStart, Content: beginExpression, Message: "missing " + endExpression}
	}
	s.Expression = strings.Join(exprLines, "\n")

	s.MatchLabels = splitLists(match, s.Delimiter)
	s.DistractorLabels = splitLists(distract, s.Delimiter)
	s.AllLabels = splitLists(all, s.Delimiter)

	for _, m := range mathExp {
		text, exp, ok := strings.Cut(m.value, s.Delimiter)
		text, exp = strings.TrimSpace(text), strings.TrimSpace(exp)
		if !ok || text == "" || exp == "" {
			return nil, &ParseError{Line: m.line, Content: m.value, Message: "MATH_EXP wants: label" + s.Delimiter + " expression"}
		}
		s.MathExp[text] = exp
	}
	return s, nil
}

func splitLists(lists []rawList, delim string) []string {
	var out []string
	for _, l := range lists {
		for _, item := range strings.Split(l.value, delim) {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// parseOptions reads comma-separated entries. An entry is either
// "key=value" (the value may contain spaces) or whitespace-separated
// bare flags. A value wrapped in double quotes may contain commas.
func parseOptions(o Options, value string) {
	for _, entry := range splitOutsideQuotes(value, ',') {
		if k, v, ok := strings.Cut(entry, "="); ok {
			v = strings.TrimSpace(v)
			if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
				v = v[1 : len(v)-1]
			}
			o[strings.TrimSpace(k)] = v
			continue
		}
		for _, flag := range strings.Fields(entry) {
			o[flag] = "true"
		}
	}
}

func splitOutsideQuotes(s string, sep rune) []string {
	var (
		out    []string
		quoted bool
		start  int
	)
	for i, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case r == sep && !quoted:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return s + "\n" + line
}
