package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/texdnd/internal/formula"
	"github.com/abhisek/texdnd/internal/grader"
	"github.com/abhisek/texdnd/internal/label"
	"github.com/abhisek/texdnd/internal/latex"
)

const fieldDnd = `LABEL: 1 = Btwo /// B^2
LABEL: 2 = B /// $B$
LABEL: 3 = v /// v
BOX: 4 = B
BOX: 5 = v
FORMULA: [4] * [5]
FORMULA_SAMPLES: B,v@1,1:20,20\#10
FORMULA_EXPECT: B * v
FORMULA_ERR:
TEST: correct /// 4,5 /// v,B
TEST: incorrect /// 4,5 /// Btwo,v
OPTIONS: allow_empty err_msg=units?
`

func parseDnd(t *testing.T, src string) *latex.Dnd {
	t.Helper()
	d, err := latex.ParseDnd(strings.NewReader(src))
	require.NoError(t, err)
	return d
}

func TestFromDnd(t *testing.T) {
	p, err := FromDnd("field", parseDnd(t, fieldDnd), DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "field", p.Spec.Name)
	require.Len(t, p.Labels, 3)
	assert.Equal(t, "Btwo", p.Labels[0].DraggableID)
	assert.Equal(t, label.KindDistractor, p.Labels[0].Kind)
	assert.Equal(t, 6, p.Labels[0].Index)
	assert.Equal(t, 1, p.Labels[0].Image)
	assert.Equal(t, "B", p.Labels[1].MathExp)
	assert.Equal(t, 4, p.Labels[1].Index)
	assert.Equal(t, 2, p.Labels[1].Image)

	require.Len(t, p.Match, 2)
	assert.Equal(t, []string{"B", "v"}, []string{p.Match[0].DraggableID, p.Match[1].DraggableID})
	assert.Equal(t, []string{"B", "v"}, p.Variables)
	assert.Equal(t, "B,v@1,1:20,20#10", p.Samples)
	assert.Equal(t, []int{4, 5}, p.Canonical)
	assert.Equal(t, grader.Options{AllowEmpty: true, ErrMsg: "units?"}, p.Options)

	require.Len(t, p.Assertions, 3)
	assert.Equal(t, []string{"4", "5"}, p.Assertions[0].Targets)
	assert.Equal(t, []string{"B", "v"}, p.Assertions[0].Draggables)
	assert.Equal(t, formula.Incorrect, p.Assertions[2].Expect)

	a := p.Artifact("", false)
	assert.Equal(t, "[4] * [5]", a.Formula)
	assert.Equal(t, "B * v", a.Expect)
	assert.Equal(t, "B^2", a.DraggableMap["Btwo"])

	results, err := p.SelfTest("", seeded())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Passed)
	}
}

func TestFromDnd_PlacementAndDefaultSamples(t *testing.T) {
	src := "LABEL: 1 = x /// x\nLABEL: 2 = y /// y\nBOX: 1 = x\nBOX: 2 = y\nBOX: 3 = x\n"
	p, err := FromDnd("place", parseDnd(t, src), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, p.BoxedFormula)
	assert.Empty(t, p.Assertions)
	assert.Equal(t, []int{1, 3}, p.Match[0].Indices())

	a := p.Artifact("", false)
	assert.Equal(t, []grader.Assignment{
		{Draggable: "x", Target: "1"},
		{Draggable: "x", Target: "3"},
		{Draggable: "y", Target: "2"},
	}, a.Answer)

	p, err = FromDnd("sum", parseDnd(t, src+"FORMULA: [1] + [2]\nFORMULA_EXPECT: x + y\n"), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "x,y@1,1:20,20#20", p.Samples)
}

func TestFromDnd_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no boxes", "LABEL: 1 = x /// x\n", "no \\DDB boxes"},
		{"undeclared answer", "LABEL: 1 = x /// x\nBOX: 1 = y\n", "has no \\DDlabel"},
		{"repeated label", "LABEL: 1 = x /// x\nLABEL: 2 = x /// x\nBOX: 1 = x\n", "used twice"},
		{"no expect", "LABEL: 1 = x /// x\nBOX: 1 = x\nFORMULA: [1]\n", "no expected formula"},
		{"unknown box", "LABEL: 1 = x /// x\nBOX: 1 = x\nFORMULA: [1] * [9]\nFORMULA_EXPECT: x\n", "not in the diagram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDnd("p", parseDnd(t, tt.src), DefaultConfig())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
