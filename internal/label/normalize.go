package label

import (
	"regexp"
	"strings"
)

// Normalized is the derivation of a single raw label text.
type Normalized struct {
	// MathExp is the evaluator-parsable form, e.g. "m_1", "d^2", "-pi", "1/2".
	MathExp string

	// Variable is the free variable MathExp contributes to numeric sampling.
	// Empty when the label is a pure numeric constant.
	Variable string

	// IDSeed is the letters-only candidate for the draggable id. The
	// registry appends a filler when the seed is already taken.
	IDSeed string
}

// rule recognises one structural label pattern. Rules are tried in order;
// the first whose pattern matches the whole text wins.
type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(m []string) (mathExp, variable string)
}

var rules = []rule{
	{
		name: "fraction",
		re:   regexp.MustCompile(`^\\frac\{(-?\d+)\}\{(\d+)\}$`),
		apply: func(m []string) (string, string) {
			return m[1] + "/" + m[2], ""
		},
	},
	{
		name: "subscript-exponent",
		re:   regexp.MustCompile(`^([A-Za-z]+)_\{?(\d+)\}?\^\{?(\d+)\}?$`),
		apply: func(m []string) (string, string) {
			v := m[1] + "_" + m[2]
			return v + "^" + m[3], v
		},
	},
	{
		// Exponentiation never introduces a new sampled variable.
		name: "exponent",
		re:   regexp.MustCompile(`^([A-Za-z]+)\^\{?(\d+)\}?$`),
		apply: func(m []string) (string, string) {
			return m[1] + "^" + m[2], m[1]
		},
	},
	{
		name: "subscript",
		re:   regexp.MustCompile(`^([A-Za-z]+)_\{?(\d+)\}?$`),
		apply: func(m []string) (string, string) {
			v := m[1] + "_" + m[2]
			return v, v
		},
	},
}

var (
	constantRe    = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)(/\d+)?$`)
	exponentTail  = regexp.MustCompile(`\^\d+$`)
	digitNames    = [...]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	idTranslation = map[rune]string{
		'+':  "plus",
		'-':  "minus",
		'\'': "prime",
		'.':  "point",
		'/':  "over",
	}
)

// Normalize derives the math expression, math variable and draggable id
// seed of a raw label. It is total: the worst case is an empty MathExp or
// IDSeed, which the registry rejects.
func Normalize(text string) Normalized {
	n := Normalized{IDSeed: idSeed(text)}

	if isAlnum(text) {
		n.MathExp = text
		n.Variable = variableOf(text)
		return n
	}

	for _, r := range rules {
		if m := r.re.FindStringSubmatch(text); m != nil {
			n.MathExp, n.Variable = r.apply(m)
			return n
		}
	}

	n.MathExp = mathExpFallback(text)
	n.Variable = variableOf(n.MathExp)
	return n
}

// IsConstant reports whether a math expression is a plain number, an
// optionally signed decimal, or a simple n/m fraction.
func IsConstant(mathExp string) bool {
	return constantRe.MatchString(mathExp)
}

// variableOf strips sign and numeric exponent from a math expression.
func variableOf(mathExp string) string {
	if mathExp == "" || IsConstant(mathExp) {
		return ""
	}
	v := strings.TrimPrefix(mathExp, "-")
	v = exponentTail.ReplaceAllString(v, "")
	return v
}

// mathExpFallback scans text character by character, keeping what an
// arithmetic evaluator can use.
func mathExpFallback(text string) string {
	rs := []rune(text)
	var b strings.Builder
	for i, c := range rs {
		prev, next := at(rs, i-1), at(rs, i+1)
		switch {
		case isLetter(c) || isDigit(c) || c == '_':
			b.WriteRune(c)
		case c == '^':
			// x^{2} keeps its exponent, x^\prime does not.
			if isDigit(next) || (next == '{' && isDigit(at(rs, i+2))) {
				b.WriteRune(c)
			}
		case c == '-':
			if isDigit(next) || isLetter(next) || next == '\\' {
				b.WriteRune(c)
			} else {
				b.WriteString("minus")
			}
		case c == '+':
			b.WriteString("plus")
		case c == '\'':
			b.WriteString("prime")
		case c == '.':
			if isDigit(next) {
				b.WriteRune(c)
			}
		case c == '/':
			if isDigit(prev) && isDigit(next) {
				b.WriteRune(c)
			}
		}
	}

	exp := b.String()
	if strings.HasPrefix(exp, "_") {
		exp = "x" + exp
	}
	return strings.TrimRight(exp, "_")
}

// idSeed derives a letters-only identifier: digits and operator
// characters are spelled out, everything else is dropped.
func idSeed(text string) string {
	if isLetters(text) {
		return text
	}
	var b strings.Builder
	for _, c := range text {
		switch {
		case isLetter(c):
			b.WriteRune(c)
		case isDigit(c):
			b.WriteString(digitNames[c-'0'])
		default:
			b.WriteString(idTranslation[c])
		}
	}
	return b.String()
}

func at(rs []rune, i int) rune {
	if i < 0 || i >= len(rs) {
		return 0
	}
	return rs[i]
}

func isLetter(c rune) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c rune) bool  { return c >= '0' && c <= '9' }

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isLetter(c) && !isDigit(c) {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isLetter(c) {
			return false
		}
	}
	return true
}
