package dndtex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/texdnd/internal/label"
)

func register(t *testing.T, match []string, distractors ...string) (*label.Registry, []*label.Label) {
	t.Helper()
	r := label.NewRegistry(label.DefaultConfig())
	var out []*label.Label
	for _, text := range match {
		l, err := r.Register(text, label.KindMatch)
		require.NoError(t, err)
		out = append(out, l)
	}
	for _, text := range distractors {
		_, err := r.Register(text, label.KindDistractor)
		require.NoError(t, err)
	}
	return r, out
}

func TestAssemble(t *testing.T) {
	r, match := register(t, []string{"G", "m_1", "m_2", "R"}, "G^2")

	out, err := Assemble(`F = \frac{ G m_1 m_2 }{ R^2 }`+"\n"+`R`, match, r)
	require.NoError(t, err)
	assert.Equal(t, `F = \frac{ \DDB{1}{G} \DDB{2}{mone} \DDB{3}{mtwo} }{ R^2 }`+"\n"+`\DDB{4}{R}`, out)
}

func TestAssemble_MetacharactersMatchLiterally(t *testing.T) {
	r, match := register(t, []string{`B^\prime`, `\frac{1}{2}`, `|x|`, `(a+b)*`})

	out, err := Assemble(`E = \frac{1}{2} B^\prime |x| (a+b)*`, match, r)
	require.NoError(t, err)
	assert.Equal(t, `E = \DDB{2}{fraconetwo} \DDB{1}{Bprime} \DDB{3}{x} \DDB{4}{aplusb}`, out)
}

func TestAssemble_RepeatedLabelMintsIndices(t *testing.T) {
	r, match := register(t, []string{"x", "y"}, "z")

	out, err := Assemble("x + y + x * x", match, r)
	require.NoError(t, err)
	assert.Equal(t, `\DDB{1}{x} + \DDB{2}{y} + \DDB{4}{x} * \DDB{5}{x}`, out)
	assert.Equal(t, []int{1, 4, 5}, match[0].Indices())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, r.Indices())
}

func TestAssemble_WhitespaceDelimited(t *testing.T) {
	r, match := register(t, []string{"m"})

	_, err := Assemble("m_1 mm", match, r)
	var me *MissingLabelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "m", me.Label)
}

func TestComment(t *testing.T) {
	assert.Equal(t, "% a\n% b", Comment("a\nb"))
}

func TestRender(t *testing.T) {
	r, match := register(t, []string{"G", "R"}, "R^2")
	expr := "G / R"
	out, err := Assemble(expr, match, r)
	require.NoError(t, err)

	tex, err := Render(Document{
		Expression:  out,
		Comment:     Comment(expr),
		Labels:      r.Labels(),
		BoxWidth:    "6ex",
		ExtraHeader: `\usepackage{bm}`,
	})
	require.NoError(t, err)
	s := string(tex)

	assert.Contains(t, s, `\usepackage{dnd}`)
	assert.Contains(t, s, `\usepackage{bm}`)
	assert.Contains(t, s, `\setlength{\DDboxwidth}{6ex}`)
	assert.NotContains(t, s, `\DDboxheight}{`)
	assert.Contains(t, s, `\DDlabeldef{Rtwo}{R^2}`)
	assert.Contains(t, s, "% G / R")
	assert.Contains(t, s, `\DDB{1}{G} / \DDB{2}{R}`)
	assert.Contains(t, s, `\DDlabelbox{3}{Rtwo}`)
	assert.Less(t, strings.Index(s, `\newpage`), strings.Index(s, `\DDlabelbox{1}{G}`))
}

func TestWriteStyle(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteStyle(dir)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `\zsavepos{box#1-ll}`)
	for _, record := range []string{"LABEL:", "BOX:", "FORMULA:", "FORMULA_SAMPLES:", "FORMULA_EXPECT:", "FORMULA_ERR:", "TEST:", "OPTIONS:"} {
		assert.Contains(t, string(b), `\DD@write{`+record, "dnd.sty writes %s records", record)
	}
	assert.Contains(t, string(b), `\openout\DD@out=\jobname.dnd`)

	custom := filepath.Join(dir, StyleFile)
	require.NoError(t, os.WriteFile(custom, []byte("% mine"), 0o644))
	_, err = WriteStyle(dir)
	require.NoError(t, err)
	b, _ = os.ReadFile(custom)
	assert.Equal(t, "% mine", string(b))
}
