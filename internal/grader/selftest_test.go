package grader

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/texdnd/internal/formula"
)

func gravityTests() []formula.Assertion {
	targets := []string{"1", "2", "3", "4"}
	return []formula.Assertion{
		{Expect: formula.Correct, Targets: targets, Draggables: []string{"G", "mone", "mtwo", "Rtwo"}},
		{Expect: formula.Correct, Targets: targets, Draggables: []string{"mtwo", "G", "mone", "Rtwo"}, Formula: "m_2 * G * m_1 / R^2"},
		{Expect: formula.Incorrect, Targets: targets, Draggables: []string{"Gtwo", "mone", "mtwo", "Rtwo"}, Formula: "G^2 * m_1 * m_2 / R^2"},
	}
}

func TestRunSelfTests_AllPass(t *testing.T) {
	results, err := RunSelfTests(gravityArtifact(), gravityTests(), seeded())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i+1, r.Index)
		assert.True(t, r.Passed)
	}
	assert.False(t, results[2].Result.OK)
}

func TestRunSelfTests_StopsAtFirstDisagreement(t *testing.T) {
	tests := gravityTests()
	tests[1].Expect = formula.Incorrect

	results, err := RunSelfTests(gravityArtifact(), tests, seeded())
	var ste *SelfTestError
	require.ErrorAs(t, err, &ste)
	assert.Equal(t, 2, ste.Index)
	assert.Contains(t, ste.Error(), "m_2 * G * m_1 / R^2")
	assert.Len(t, results, 2)
	assert.False(t, results[1].Passed)
}

func TestSubmission(t *testing.T) {
	sub := Submission(gravityTests()[0])
	assert.Equal(t, Assignment{Draggable: "G", Target: "1"}, sub[0])
	assert.Len(t, sub, 4)
}

func TestLoadArtifact(t *testing.T) {
	raw, err := json.Marshal(gravityArtifact())
	require.NoError(t, err)

	a, err := LoadArtifact(raw)
	require.NoError(t, err)
	assert.Equal(t, gravityArtifact(), a)
}

func TestLoadArtifact_PlacementKey(t *testing.T) {
	raw := []byte(`{"cfn":"dnd_check","options":{},"answer":[{"a":"1"},{"b":"2"}]}`)
	a, err := LoadArtifact(raw)
	require.NoError(t, err)
	assert.Equal(t, []Assignment{{"a", "1"}, {"b", "2"}}, a.Answer)
}

func TestLoadArtifact_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"missing cfn", `{"options":{}}`},
		{"formula without samples", `{"cfn":"c","options":{},"formula":"([1])","draggable_map":{},"expect":"a"}`},
		{"formula without boxes", `{"cfn":"c","options":{},"formula":"a","draggable_map":{},"samples":"a@1:2#3","expect":"a"}`},
		{"bad samples", `{"cfn":"c","options":{},"formula":"([1])","draggable_map":{},"samples":"a","expect":"a"}`},
		{"unknown option", `{"cfn":"c","options":{"strict":true}}`},
		{"unknown field", `{"cfn":"c","options":{},"extra":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadArtifact([]byte(tt.raw))
			var ae *ArtifactError
			assert.ErrorAs(t, err, &ae)
		})
	}
}
