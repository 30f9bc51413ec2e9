package grader

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/texdnd/internal/formula"
)

func seeded() EqualOptions {
	opts := DefaultEqualOptions()
	opts.Rand = rand.New(rand.NewPCG(1, 2))
	return opts
}

func TestFormulasEqual(t *testing.T) {
	samples := "m_1,m_2,G,R@1,1,1,1:20,20,20,20#20"

	ok, err := FormulasEqual("G*m_1*m_2/R^2", "m_2*G*m_1/(R*R)", samples, seeded())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = FormulasEqual("G*m_1*m_2/R^2", "G*R^2*m_2/m_1", samples, seeded())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = FormulasEqual("G*m_1*m_2/R^2", "G*m_1*m_2/R^2 + 0.001", samples, seeded())
	require.NoError(t, err)
	assert.True(t, ok, "within tolerance")
}

func TestFormulasEqual_MalformedSamples(t *testing.T) {
	_, err := FormulasEqual("a", "a", "a,b@1:2#5", seeded())
	var se *formula.SamplesError
	assert.ErrorAs(t, err, &se)
}

func TestFormulasEqual_EvaluatorFailureCarriesContext(t *testing.T) {
	_, err := FormulasEqual("a", "a + b", "a@1:2#5", seeded())
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "a + b", ee.Formula)
	assert.Contains(t, ee.Vars, "a")
}

func TestSubstitute(t *testing.T) {
	values := map[string]string{"1": "G", "2": "m_1"}

	out, err := Substitute("({1}) * ({2})", values, FailOnMissing)
	require.NoError(t, err)
	assert.Equal(t, "(G) * (m_1)", out)

	_, err = Substitute("({1}) * ({3}) * ({2}) * ({4})", values, FailOnMissing)
	assert.ErrorIs(t, err, ErrIncomplete)
	var ie *IncompleteError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, []string{"3", "4"}, ie.Missing)

	out, err = Substitute("({1}) * ({3})", values, MissingIsOne)
	require.NoError(t, err)
	assert.Equal(t, "(G) * (1)", out)
}

func gravityArtifact() *Artifact {
	return &Artifact{
		Cfn:     "dnd_check",
		Formula: "([1]) * ([2]) * ([3]) / ([4])",
		DraggableMap: map[string]string{
			"G": "G", "mone": "m_1", "mtwo": "m_2", "Rtwo": "R^2", "Gtwo": "G^2",
		},
		Samples: "G,m_1,m_2,R@1,1,1,1:20,20,20,20#20",
		Expect:  "G * m_1 * m_2 / R^2",
	}
}

func TestCheck_Correct(t *testing.T) {
	sub := []Assignment{{"mtwo", "1"}, {"G", "2"}, {"mone", "3"}, {"Rtwo", "4"}}
	res, err := Check(gravityArtifact(), sub, seeded())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "You have input the expression: (m_2) * (G) * (m_1) / (R^2)", res.Msg)
}

func TestCheck_IncorrectWithErrMsg(t *testing.T) {
	a := gravityArtifact()
	a.Options.ErrMsg = "Check the exponent."
	sub := []Assignment{{"Gtwo", "1"}, {"mone", "2"}, {"mtwo", "3"}, {"Rtwo", "4"}}
	res, err := Check(a, sub, seeded())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Msg, `<font color="red">Check the exponent.</font>`)
}

func TestCheck_Incomplete(t *testing.T) {
	sub := []Assignment{{"G", "1"}, {"mone", "2"}}
	res, err := Check(gravityArtifact(), sub, seeded())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "Sorry, your input is incomplete", res.Msg)
}

func TestCheck_AllowEmpty(t *testing.T) {
	a := gravityArtifact()
	a.Options.AllowEmpty = true
	a.Options.HideFormulaInput = true
	sub := []Assignment{{"G", "1"}, {"mone", "2"}, {"mtwo", "3"}}
	res, err := Check(a, sub, seeded())
	require.NoError(t, err)
	assert.False(t, res.OK, "R^2 defaulted to 1 is a different formula")
	assert.Empty(t, res.Msg)
}

func TestCheck_BadSamplesIsUserFacing(t *testing.T) {
	a := gravityArtifact()
	a.Samples = "G@1:20"
	sub := []Assignment{{"G", "1"}, {"mone", "2"}, {"mtwo", "3"}, {"Rtwo", "4"}}
	res, err := Check(a, sub, seeded())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Msg, "bad sampling spec")
}

func TestCheck_EvaluatorFailureIsAFailingResult(t *testing.T) {
	a := gravityArtifact()
	a.Samples = "G,m_1@1,1:20,20#5"
	a.Options.ErrMsg = "Try again."
	sub := []Assignment{{"G", "1"}, {"mone", "2"}, {"mtwo", "3"}, {"Rtwo", "4"}}
	res, err := Check(a, sub, seeded())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Msg, "You have input the expression: ")
	assert.Contains(t, res.Msg, "<br/>error evaluate")
	assert.Contains(t, res.Msg, "undefined variable")
	assert.Contains(t, res.Msg, `<font color="red">Try again.</font>`)
}

func TestCheck_DomainErrorIsAFailingResult(t *testing.T) {
	a := &Artifact{
		Cfn:          "dnd_check",
		Formula:      "sqrt([1]) * ([2])",
		DraggableMap: map[string]string{"a": "a", "minusfive": "-5"},
		Samples:      "a@1:20#20",
		Expect:       "sqrt(a) * -5",
	}

	res, err := Check(a, []Assignment{{"a", "1"}, {"minusfive", "2"}}, seeded())
	require.NoError(t, err)
	assert.True(t, res.OK, res.Msg)

	res, err = Check(a, []Assignment{{"minusfive", "1"}, {"a", "2"}}, seeded())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Msg, "math domain error")
}

func TestCheck_ErrorTextIsEscaped(t *testing.T) {
	a := gravityArtifact()
	a.Expect = "G > m_1"
	sub := []Assignment{{"G", "1"}, {"mone", "2"}, {"mtwo", "3"}, {"Rtwo", "4"}}
	res, err := Check(a, sub, seeded())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Msg, "G &gt; m_1")
	assert.NotContains(t, res.Msg, "G > m_1")
}

func TestCheck_FormulaWithoutTargets(t *testing.T) {
	a := gravityArtifact()
	a.Formula = "G * m_1"
	_, err := Check(a, nil, seeded())
	var ae *ArtifactError
	assert.ErrorAs(t, err, &ae)
}

func TestCheck_Placement(t *testing.T) {
	a := &Artifact{
		Cfn:    "dnd_check",
		Answer: []Assignment{{"a", "1"}, {"b", "2"}},
	}
	res, _ := Check(a, []Assignment{{"b", "2"}, {"a", "1"}}, seeded())
	assert.True(t, res.OK)

	res, _ = Check(a, []Assignment{{"a", "2"}, {"b", "1"}}, seeded())
	assert.False(t, res.OK)

	res, _ = Check(a, []Assignment{{"a", "1"}, {"b", "2"}, {"c", "3"}}, seeded())
	assert.False(t, res.OK, "extra placement")

	a.CanReuse = true
	res, _ = Check(a, []Assignment{{"a", "1"}, {"b", "2"}, {"a", "3"}}, seeded())
	assert.True(t, res.OK)
}

func TestParseSubmission(t *testing.T) {
	sub, err := ParseSubmission([]byte(`[{"G": "1"}, {"mone": "2"}]`))
	require.NoError(t, err)
	assert.Equal(t, []Assignment{{"G", "1"}, {"mone", "2"}}, sub)

	_, err = ParseSubmission([]byte(`[{"G": "1", "mone": "2"}]`))
	assert.Error(t, err)
}
