package edx

import (
	"encoding/xml"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/texdnd/internal/compiler"
	"github.com/abhisek/texdnd/internal/dndspec"
	"github.com/abhisek/texdnd/internal/grader"
)

const src = `
MATCH_LABELS: x, y
DISTRACTOR_LABELS: 2
BEGIN_EXPRESSION
x + y
END_EXPRESSION
CHECK_FORMULA: x + y
FEEDBACK: Add **both** terms.
`

func compile(t *testing.T, text string) *compiler.Problem {
	t.Helper()
	s, err := dndspec.Parse(strings.NewReader(text), "sum")
	require.NoError(t, err)
	p, err := compiler.Compile(s, compiler.DefaultConfig())
	require.NoError(t, err)
	return p
}

func input(p *compiler.Problem, a *grader.Artifact) Input {
	return Input{
		Problem:  p,
		Artifact: a,
		Images: Images{
			URL:      "/static/images/",
			Problem:  "sum_dnd.png",
			Solution: "sum_dnd_sol_ab12cd.png",
			Labels:   map[int]string{1: "sum_dnd_label1.png", 2: "sum_dnd_label2.png", 3: "sum_dnd_label3.png"},
		},
		Targets: map[int]image.Rectangle{
			2: image.Rect(60, 10, 90, 40),
			1: image.Rect(10, 10, 40, 40),
		},
	}
}

func TestBuild_FormulaProblem(t *testing.T) {
	p := compile(t, src)
	x, err := Build(input(p, p.Artifact("", false)))
	require.NoError(t, err)

	assert.Equal(t, "dnd_check", x.Response.Cfn)
	dnd := x.Response.Input
	assert.Equal(t, "/static/images/sum_dnd.png", dnd.Img)
	require.Len(t, dnd.Draggables, 3)
	assert.Equal(t, Draggable{ID: "x", Icon: "/static/images/sum_dnd_label1.png"}, dnd.Draggables[0])

	require.Len(t, dnd.Targets, 2)
	assert.Equal(t, Target{ID: "1", X: 10, Y: 10, W: 30, H: 30, Comment: " x "}, dnd.Targets[0])
	assert.Equal(t, "2", dnd.Targets[1].ID)

	require.NotNil(t, x.Response.Script)
	assert.Nil(t, x.Response.Answer)
	assert.Contains(t, x.Response.Script.Body, `"formula":"([1]) + ([2])"`)

	require.NotNil(t, x.Solution.Feedback)
	assert.Equal(t, "<p>Add <strong>both</strong> terms.</p>", x.Solution.Feedback.HTML)
	assert.Equal(t, "/static/images/sum_dnd_sol_ab12cd.png", x.Solution.Img.Src)
}

func TestBuild_PlacementProblem(t *testing.T) {
	p := compile(t, src)
	x, err := Build(input(p, p.Artifact("custom_check", true)))
	require.NoError(t, err)

	assert.Equal(t, "custom_check", x.Response.Cfn)
	assert.Nil(t, x.Response.Script)
	require.NotNil(t, x.Response.Answer)
	assert.JSONEq(t, `[{"x":"1"},{"y":"2"}]`, x.Response.Answer.Body)
	assert.Equal(t, "true", x.Response.Input.Draggables[0].CanReuse)
}

func TestBuild_MissingLabelImage(t *testing.T) {
	p := compile(t, src)
	in := input(p, p.Artifact("", false))
	delete(in.Images.Labels, 3)
	_, err := Build(in)
	assert.ErrorContains(t, err, "no image for draggable")
}

func TestMarshal(t *testing.T) {
	p := compile(t, src)
	x, err := Build(input(p, p.Artifact("", false)))
	require.NoError(t, err)

	b, err := x.Marshal()
	require.NoError(t, err)
	out := string(b)
	assert.True(t, strings.HasPrefix(out, "<span>"))
	assert.Contains(t, out, `<customresponse cfn="dnd_check">`)
	assert.Contains(t, out, `target_outline="false" one_per_target="true" no_labels="true"`)
	assert.Contains(t, out, `<target id="1" x="10" y="10" w="30" h="30">`)
	assert.Contains(t, out, `<!-- x -->`)
	assert.Contains(t, out, `<script type="application/json"><![CDATA[{"cfn":"dnd_check"`)
	assert.Contains(t, out, `<div class="detailed-solution"><p>Add <strong>both</strong> terms.</p></div>`)

	var back Problem
	require.NoError(t, xml.Unmarshal(b, &back))
	assert.Equal(t, "dnd_check", back.Response.Cfn)
	assert.Len(t, back.Response.Input.Targets, 2)
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "a.png", ImageURL("", "a.png"))
	assert.Equal(t, "/static/a.png", ImageURL("/static/", "a.png"))
	assert.Equal(t, "https://cdn.example.org/img/a.png", ImageURL("https://cdn.example.org/img", "out/a.png"))
}

func TestCatsoop(t *testing.T) {
	p := compile(t, src)
	a := p.Artifact("", false)
	x, err := Build(input(p, a))
	require.NoError(t, err)

	b, err := Catsoop("sum", x, a, p.Spec.Feedback)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "csq_name = 'sum'")
	assert.Contains(t, out, "csq_cfn = 'dnd_check'")
	assert.Contains(t, out, `<customresponse cfn="dnd_check">`)
	assert.Contains(t, out, `"samples": "x,y@1,1:20,20#20"`)
	assert.Contains(t, out, "<solution>\nAdd **both** terms.\n</solution>")
}
