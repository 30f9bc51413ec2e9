package dndtex

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/abhisek/texdnd/internal/label"
)

//go:embed assets/dnd.sty assets/template.tex
var assets embed.FS

// StyleFile is the name the LaTeX package is written under.
const StyleFile = "dnd.sty"

// LaTeX braces collide with the default {{ }} delimiters.
var docTemplate = template.Must(
	template.New("template.tex").Delims("<<", ">>").ParseFS(assets, "assets/template.tex"),
)

// Document is the input of the LaTeX template.
type Document struct {
	// Expression is the assembled diagram (page 1).
	Expression string

	// Comment is the original expression as a comment block.
	Comment string

	// Labels are every draggable, rendered one per line on page 2.
	Labels []*label.Label

	BoxWidth    string
	BoxHeight   string
	ExtraHeader string
}

// Render executes the document template.
func Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("execute latex template: %w", err)
	}
	return buf.Bytes(), nil
}

// Style returns the contents of dnd.sty.
func Style() []byte {
	b, err := assets.ReadFile("assets/dnd.sty")
	if err != nil {
		panic(err)
	}
	return b
}

// WriteStyle writes dnd.sty into dir unless a file of that name is
// already there, so a locally customised package wins.
func WriteStyle(dir string) (string, error) {
	path := filepath.Join(dir, StyleFile)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, Style(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", StyleFile, err)
	}
	return path, nil
}
