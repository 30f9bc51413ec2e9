package compiler

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/texdnd/internal/dndspec"
	"github.com/abhisek/texdnd/internal/dndtex"
	"github.com/abhisek/texdnd/internal/formula"
	"github.com/abhisek/texdnd/internal/grader"
)

func parse(t *testing.T, src string) *dndspec.Spec {
	t.Helper()
	s, err := dndspec.Parse(strings.NewReader(src), "problem")
	require.NoError(t, err)
	return s
}

func seeded() grader.EqualOptions {
	opts := grader.DefaultEqualOptions()
	opts.Rand = rand.New(rand.NewPCG(7, 11))
	return opts
}

const magneticSpec = `
MATCH_LABELS: -\pi, B^\prime, d^2, v
ALL_LABELS: -\pi, v, d^2, B^\prime
BEGIN_EXPRESSION
F = -\pi B^\prime d^2 / v
END_EXPRESSION
CHECK_FORMULA: -pi * (Bprime * d^2) / (v)
`

func TestCompile_MagneticExample(t *testing.T) {
	p, err := Compile(parse(t, magneticSpec), DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "([1]) * (([2]) * ([3])) / (([4]))", p.BoxedFormula)
	assert.Equal(t, []int{1, 2, 3, 4}, p.Canonical)
	assert.Equal(t, []string{"pi", "v", "d", "Bprime"}, p.Variables)
	assert.Equal(t, "pi,v,d,Bprime@1,1,1,1:20,20,20,20#20", p.Samples)
	assert.Equal(t, `F = \DDB{1}{minuspi} \DDB{2}{Bprime} \DDB{3}{dtwo} / \DDB{4}{v}`, p.Expression)
	assert.Equal(t, `% F = -\pi B^\prime d^2 / v`, p.Comment)

	require.Len(t, p.Assertions, 1)
	key := p.Assertions[0]
	assert.Equal(t, formula.Correct, key.Expect)
	assert.Equal(t, []string{"1", "2", "3", "4"}, key.Targets)
	assert.Equal(t, []string{"minuspi", "Bprime", "dtwo", "v"}, key.Draggables)

	results, err := p.SelfTest("", seeded())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Result.OK)
}

func TestCompile_GravityFixture(t *testing.T) {
	s, err := dndspec.ParseFile("../dndspec/testdata/gravity.dndspec")
	require.NoError(t, err)

	p, err := Compile(s, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"G", "m_1", "m_2", "R"}, p.Variables, "exponentiated distractors add no variables")
	assert.Equal(t, "G,m_1,m_2,R@1,1,1,1:20,20,20,20#10", p.Samples)
	assert.Len(t, p.Labels, 6)
	assert.Equal(t, grader.Options{AllowEmpty: true, ErrMsg: "Check the exponents"}, p.Options)

	require.Len(t, p.Assertions, 3)
	assert.Equal(t, []string{"mtwo", "G", "mone", "R"}, p.Assertions[1].Draggables)
	assert.Equal(t, []string{"Gtwo", "mone", "mtwo", "R"}, p.Assertions[2].Draggables)

	results, err := p.SelfTest("", seeded())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[1].Result.OK)
	assert.False(t, results[2].Result.OK)
	for _, r := range results {
		assert.True(t, r.Passed)
	}
}

func TestCompile_MisplacedOperandsFailSelfTest(t *testing.T) {
	src := `
MATCH_LABELS: G, m_1, m_2, R^2
BEGIN_EXPRESSION
F = G m_1 m_2 / R^2
END_EXPRESSION
CHECK_FORMULA: G * m_1 * m_2 / R^2
TEST_CORRECT: m_1 * m_2 * G / R^2
TEST_CORRECT: G * R^2 * m_2 / m_1
`
	p, err := Compile(parse(t, src), DefaultConfig())
	require.NoError(t, err)

	results, err := p.SelfTest("", seeded())
	var ste *grader.SelfTestError
	require.ErrorAs(t, err, &ste)
	assert.Equal(t, 3, ste.Index)
	assert.Len(t, results, 3)
	assert.True(t, results[1].Passed)
}

func TestCompile_IncorrectTestHittingDomainErrorPasses(t *testing.T) {
	src := `
MATCH_LABELS: a, -5
BEGIN_EXPRESSION
y = \sqrt{ a } \cdot -5
END_EXPRESSION
CHECK_FORMULA: sqrt(a) * -5
TEST_INCORRECT: sqrt(-5) * a
`
	p, err := Compile(parse(t, src), DefaultConfig())
	require.NoError(t, err)

	results, err := p.SelfTest("", seeded())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Result.OK)
	assert.True(t, results[1].Passed)
	assert.False(t, results[1].Result.OK)
	assert.Contains(t, results[1].Result.Msg, "math domain error")
}

func TestCompile_MatchMissingFromAllLabels(t *testing.T) {
	src := `
MATCH_LABELS: a, b
ALL_LABELS: a, c
BEGIN_EXPRESSION
a b
END_EXPRESSION
`
	_, err := Compile(parse(t, src), DefaultConfig())
	var ve *dndspec.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "missing from ALL_LABELS")
}

func TestCompile_MatchLabelNotInDiagram(t *testing.T) {
	src := `
MATCH_LABELS: a, b
BEGIN_EXPRESSION
a + c
END_EXPRESSION
`
	_, err := Compile(parse(t, src), DefaultConfig())
	var me *dndtex.MissingLabelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "b", me.Label)
}

func TestCompile_TestBoxCountMismatch(t *testing.T) {
	src := `
MATCH_LABELS: a, b
BEGIN_EXPRESSION
a + b
END_EXPRESSION
CHECK_FORMULA: a + b
TEST_CORRECT: a + a
`
	_, err := Compile(parse(t, src), DefaultConfig())
	var te *formula.TestError
	require.ErrorAs(t, err, &te)
}

func TestCompile_RepeatedDiagramLabel(t *testing.T) {
	src := `
MATCH_LABELS: x, y
DISTRACTOR_LABELS: z
BEGIN_EXPRESSION
x + y + x
END_EXPRESSION
CHECK_FORMULA: x + y + x
TEST_INCORRECT: x + y + z
`
	p, err := Compile(parse(t, src), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "([1]) + ([2]) + ([4])", p.BoxedFormula)
	assert.Equal(t, []string{"x", "y", "zzz"}, p.Variables)

	a := p.Artifact("", false)
	assert.Equal(t, "zzz", a.DraggableMap["z"])

	_, err = p.SelfTest("", seeded())
	require.NoError(t, err)
}

func TestCompile_CheckFormulaBoxesOverride(t *testing.T) {
	src := `
MATCH_LABELS: a, b
BEGIN_EXPRESSION
a b
END_EXPRESSION
CHECK_FORMULA: a / b
CHECK_FORMULA_BOXES: [1] / [2]
`
	p, err := Compile(parse(t, src), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "[1] / [2]", p.BoxedFormula)

	bad := parse(t, strings.Replace(src, "[1] / [2]", "[1] / [1]", 1))
	_, err = Compile(bad, DefaultConfig())
	assert.ErrorContains(t, err, "used twice")

	bad = parse(t, strings.Replace(src, "[1] / [2]", "[1] / [9]", 1))
	_, err = Compile(bad, DefaultConfig())
	assert.ErrorContains(t, err, "not in the diagram")
}

func TestCompile_MathExpOverrideAndSampleOptions(t *testing.T) {
	src := `
MATCH_LABELS: \omega_0, t
MATH_EXP: \omega_0, w
OPTIONS: sample_range=0.1:2, nsamples=5, hide_formula_input
BEGIN_EXPRESSION
\cos( \omega_0 t )
END_EXPRESSION
`
	p, err := Compile(parse(t, src), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "w", p.Labels[0].MathExp)
	assert.Equal(t, "w,t@0.1,0.1:2,2#5", p.Samples)
	assert.True(t, p.Options.HideFormulaInput)
	assert.Empty(t, p.BoxedFormula)
	assert.Empty(t, p.Assertions)
}

func TestCompile_BadSampleOption(t *testing.T) {
	src := "MATCH_LABELS: a\nOPTIONS: nsamples=lots\nBEGIN_EXPRESSION\na\nEND_EXPRESSION\n"
	_, err := Compile(parse(t, src), DefaultConfig())
	assert.ErrorContains(t, err, "nsamples")
}

func TestArtifact_PlacementKey(t *testing.T) {
	src := `
MATCH_LABELS: x, y
BEGIN_EXPRESSION
x y x
END_EXPRESSION
CHECK_FORMULA: x * y
`
	p, err := Compile(parse(t, src), DefaultConfig())
	require.NoError(t, err)

	a := p.Artifact("my_check", true)
	assert.Equal(t, "my_check", a.Cfn)
	assert.Empty(t, a.Formula)
	assert.True(t, a.CanReuse)
	assert.Equal(t, []grader.Assignment{
		{Draggable: "x", Target: "1"},
		{Draggable: "x", Target: "3"},
		{Draggable: "y", Target: "2"},
	}, a.Answer)

	results, err := p.SelfTest("my_check", seeded())
	assert.NoError(t, err)
	assert.Nil(t, results)

	f := p.Artifact("", false)
	assert.Equal(t, DefaultCfn, f.Cfn)
	assert.Equal(t, "([1]) * ([2])", f.Formula)
	assert.Equal(t, "x * y", f.Expect)
}
