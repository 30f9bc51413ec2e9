// Package edx renders a compiled problem as an edX customresponse
// drag-and-drop descriptor, and as catsoop markdown.
package edx

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"image"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/abhisek/texdnd/internal/compiler"
	"github.com/abhisek/texdnd/internal/formula"
	"github.com/abhisek/texdnd/internal/grader"
)

// LabelBgColor is the draggable background expected by the images.
const LabelBgColor = "rgb(222,139,238)"

type Problem struct {
	XMLName  xml.Name       `xml:"span"`
	Response CustomResponse `xml:"customresponse"`
	Solution Solution       `xml:"solution"`
}

type CustomResponse struct {
	Cfn    string           `xml:"cfn,attr"`
	Input  DragAndDropInput `xml:"drag_and_drop_input"`
	Script *Payload         `xml:"script,omitempty"`
	Answer *Payload         `xml:"answer,omitempty"`
}

type DragAndDropInput struct {
	Img           string      `xml:"img,attr"`
	TargetOutline bool        `xml:"target_outline,attr"`
	OnePerTarget  bool        `xml:"one_per_target,attr"`
	NoLabels      bool        `xml:"no_labels,attr"`
	LabelBgColor  string      `xml:"label_bg_color,attr"`
	Draggables    []Draggable `xml:"draggable"`
	Targets       []Target    `xml:"target"`
}

type Draggable struct {
	ID       string `xml:"id,attr"`
	Icon     string `xml:"icon,attr"`
	CanReuse string `xml:"can_reuse,attr,omitempty"`
}

// Target is a drop zone in pixels of the problem image. The comment
// names the draggable that belongs there.
type Target struct {
	ID      string `xml:"id,attr"`
	X       int    `xml:"x,attr"`
	Y       int    `xml:"y,attr"`
	W       int    `xml:"w,attr"`
	H       int    `xml:"h,attr"`
	Comment string `xml:",comment"`
}

// Payload is JSON carried in a CDATA section.
type Payload struct {
	Type string `xml:"type,attr"`
	Body string `xml:",cdata"`
}

type Solution struct {
	Feedback *Feedback `xml:"div,omitempty"`
	Img      Img       `xml:"img"`
}

type Feedback struct {
	Class string `xml:"class,attr"`
	HTML  string `xml:",innerxml"`
}

type Img struct {
	Src string `xml:"src,attr"`
}

// Images names the files the descriptor refers to, relative to the image
// URL base.
type Images struct {
	URL      string
	Problem  string
	Solution string

	// Labels maps a label's primary box index to its draggable image.
	Labels map[int]string
}

// Input is everything Build needs besides the compiled problem.
type Input struct {
	Problem  *compiler.Problem
	Artifact *grader.Artifact
	Images   Images

	// Targets maps box indices to pixel rectangles on the problem image.
	Targets map[int]image.Rectangle
}

// Build assembles the descriptor.
func Build(in Input) (*Problem, error) {
	p, a := in.Problem, in.Artifact
	img := func(name string) string { return ImageURL(in.Images.URL, name) }

	dnd := DragAndDropInput{
		Img:          img(in.Images.Problem),
		OnePerTarget: true,
		NoLabels:     true,
		LabelBgColor: LabelBgColor,
	}
	for _, l := range p.Registry.Labels() {
		icon, ok := in.Images.Labels[l.Index]
		if !ok {
			return nil, fmt.Errorf("no image for draggable %q", l.DraggableID)
		}
		d := Draggable{ID: l.DraggableID, Icon: img(icon)}
		if a.CanReuse {
			d.CanReuse = "true"
		}
		dnd.Draggables = append(dnd.Draggables, d)
	}

	idx := make([]int, 0, len(in.Targets))
	for k := range in.Targets {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	for _, k := range idx {
		owner, ok := p.Registry.ByIndex(k)
		if !ok {
			return nil, fmt.Errorf("target %d has no label", k)
		}
		r := in.Targets[k]
		dnd.Targets = append(dnd.Targets, Target{
			ID:      formula.TargetID(k),
			X:       r.Min.X,
			Y:       r.Min.Y,
			W:       r.Dx(),
			H:       r.Dy(),
			Comment: " " + owner.DraggableID + " ",
		})
	}

	resp := CustomResponse{Cfn: a.Cfn, Input: dnd}
	if a.Formula != "" {
		body, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode check artifact: %w", err)
		}
		resp.Script = &Payload{Type: "application/json", Body: string(body)}
	} else {
		body, err := json.Marshal(a.Answer)
		if err != nil {
			return nil, fmt.Errorf("encode answer key: %w", err)
		}
		resp.Answer = &Payload{Type: "application/json", Body: string(body)}
	}

	out := &Problem{
		Response: resp,
		Solution: Solution{Img: Img{Src: img(in.Images.Solution)}},
	}
	if p.Spec.Feedback != "" {
		fb, err := RenderFeedback(p.Spec.Feedback)
		if err != nil {
			return nil, err
		}
		out.Solution.Feedback = &Feedback{Class: "detailed-solution", HTML: fb}
	}
	return out, nil
}

// ImageURL joins an image name onto a URL base.
func ImageURL(base, name string) string {
	if base == "" {
		return name
	}
	return strings.TrimSuffix(base, "/") + "/" + path.Base(name)
}

// Marshal returns the indented descriptor.
func (p *Problem) Marshal() ([]byte, error) {
	b, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	return append(b, '\n'), nil
}

var markdown = goldmark.New(goldmark.WithRendererOptions(html.WithXHTML()))

// RenderFeedback converts markdown to XHTML so it can be embedded in the
// descriptor.
func RenderFeedback(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render feedback: %w", err)
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}
