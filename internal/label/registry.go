package label

import (
	"fmt"
	"sort"
	"strings"
)

// Config controls label registration.
type Config struct {
	// DummyVariable replaces the variable of a distractor that would
	// otherwise add a new sampled dimension.
	DummyVariable string

	// Filler is appended to a draggable id until it is unique.
	Filler string

	// MathExp holds explicit math expression overrides keyed by label text.
	MathExp map[string]string
}

// DefaultConfig returns the standard registration settings.
func DefaultConfig() Config {
	return Config{
		DummyVariable: "zzz",
		Filler:        "x",
	}
}

// Registry owns every Label of one compile run. It guarantees that box
// indices and draggable ids are unique across the whole problem.
// A Registry is not safe for concurrent use.
type Registry struct {
	cfg     Config
	byIndex map[int]*Label
	byID    map[string]*Label
	byText  map[string]*Label
	order   []*Label
	known   map[string]bool
	next    int
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.DummyVariable == "" {
		cfg.DummyVariable = DefaultConfig().DummyVariable
	}
	if cfg.Filler == "" {
		cfg.Filler = DefaultConfig().Filler
	}
	return &Registry{
		cfg:     cfg,
		byIndex: make(map[int]*Label),
		byID:    make(map[string]*Label),
		byText:  make(map[string]*Label),
		known:   make(map[string]bool),
	}
}

// Register normalizes text and assigns it the next sequential box index.
// Match labels must be registered before distractors so that distractor
// variables can be checked against the match variables.
func (r *Registry) Register(text string, kind Kind) (*Label, error) {
	if _, ok := r.byText[text]; ok {
		return nil, &AuthoringError{Label: text, Message: "registered twice"}
	}

	n := Normalize(text)
	if exp, ok := r.cfg.MathExp[text]; ok {
		n.MathExp = strings.TrimSpace(exp)
		n.Variable = Normalize(n.MathExp).Variable
	}
	if n.MathExp == "" {
		return nil, &AuthoringError{Label: text, Message: "no usable math expression; add a MATH_EXP line"}
	}
	if n.IDSeed == "" {
		return nil, &AuthoringError{Label: text, Message: "no letters or digits to build a draggable id from"}
	}

	var unmapped string
	if kind == KindDistractor && n.Variable != "" && !r.known[n.Variable] {
		unmapped = n.MathExp
		n.MathExp = strings.Replace(n.MathExp, n.Variable, r.cfg.DummyVariable, 1)
		n.Variable = r.cfg.DummyVariable
	}

	l := &Label{
		Text:        text,
		Kind:        kind,
		MathExp:     n.MathExp,
		Variable:    n.Variable,
		Unmapped:    unmapped,
		DraggableID: r.uniqueID(n.IDSeed),
	}
	if err := r.assign(l, r.next+1); err != nil {
		return nil, err
	}
	r.next++
	l.Index = r.next
	l.Image = l.Index

	r.byID[l.DraggableID] = l
	r.byText[text] = l
	r.order = append(r.order, l)
	if l.Variable != "" {
		r.known[l.Variable] = true
	}
	return l, nil
}

// Adopt registers a label whose draggable id, math expression, image
// number and boxes were chosen by the author. A label without boxes is a
// distractor and gets one past the largest index in use, so adopt every
// match label first.
func (r *Registry) Adopt(text, id, mathExp string, image int, boxes []int) (*Label, error) {
	if id == "" {
		return nil, &AuthoringError{Label: text, Message: "empty draggable id"}
	}
	if _, ok := r.byID[id]; ok {
		return nil, &AuthoringError{Label: id, Message: "draggable id used twice"}
	}
	mathExp = strings.TrimSpace(mathExp)
	if mathExp == "" {
		return nil, &AuthoringError{Label: id, Message: "no math expression"}
	}

	l := &Label{
		Text:        text,
		Kind:        KindMatch,
		MathExp:     mathExp,
		Variable:    Normalize(mathExp).Variable,
		DraggableID: id,
		Image:       image,
	}
	if len(boxes) == 0 {
		l.Kind = KindDistractor
		boxes = []int{r.maxIndex() + 1}
	}
	for i, k := range boxes {
		if err := r.assign(l, k); err != nil {
			return nil, err
		}
		if i > 0 {
			l.Extra = append(l.Extra, k)
		}
	}
	l.Index = boxes[0]
	if l.Index > r.next {
		r.next = l.Index
	}

	r.byID[id] = l
	if _, ok := r.byText[text]; !ok {
		r.byText[text] = l
	}
	r.order = append(r.order, l)
	if l.Variable != "" {
		r.known[l.Variable] = true
	}
	return l, nil
}

// AddOccurrence mints a fresh box index for another appearance of l in
// the diagram. The new index is one past the largest index in use.
func (r *Registry) AddOccurrence(l *Label) (int, error) {
	idx := r.maxIndex() + 1
	if err := r.assign(l, idx); err != nil {
		return 0, err
	}
	l.Extra = append(l.Extra, idx)
	return idx, nil
}

// Lookup returns the label registered for text.
func (r *Registry) Lookup(text string) (*Label, bool) {
	l, ok := r.byText[text]
	return l, ok
}

// ByIndex returns the label owning a box index.
func (r *Registry) ByIndex(idx int) (*Label, bool) {
	l, ok := r.byIndex[idx]
	return l, ok
}

// ByDraggableID returns the label with the given draggable id.
func (r *Registry) ByDraggableID(id string) (*Label, bool) {
	l, ok := r.byID[id]
	return l, ok
}

// Labels returns every label in registration order.
func (r *Registry) Labels() []*Label {
	out := make([]*Label, len(r.order))
	copy(out, r.order)
	return out
}

// Indices returns every box index in use, ascending.
func (r *Registry) Indices() []int {
	out := make([]int, 0, len(r.byIndex))
	for idx := range r.byIndex {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// DummyVariable is the shared placeholder variable for distractors.
func (r *Registry) DummyVariable() string {
	return r.cfg.DummyVariable
}

func (r *Registry) assign(l *Label, idx int) error {
	if owner, ok := r.byIndex[idx]; ok {
		return fmt.Errorf("assign box %d to %q (held by %q): %w", idx, l.Text, owner.Text, ErrIndexTaken)
	}
	r.byIndex[idx] = l
	return nil
}

func (r *Registry) uniqueID(seed string) string {
	id := seed
	for {
		if _, taken := r.byID[id]; !taken {
			return id
		}
		id += r.cfg.Filler
	}
}

func (r *Registry) maxIndex() int {
	hi := 0
	for idx := range r.byIndex {
		if idx > hi {
			hi = idx
		}
	}
	return hi
}
