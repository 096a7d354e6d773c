package model

import "fmt"

// Position says where an annotation sits relative to its anchor element.
type Position uint8

const (
	// Before places the annotation immediately before the anchor element.
	Before Position = iota
	// FirstChild places it as the first child of an empty anchor.
	FirstChild
	// LastChild places it after the last child of the anchor.
	LastChild
	// After places it immediately after the anchor element.
	After
	// Inline places it after the text of a leaf anchor.
	Inline
)

var positionNames = []string{"before", "first-child", "last-child", "after", "inline"}

func (p Position) String() string {
	if int(p) < len(positionNames) {
		return positionNames[p]
	}
	return fmt.Sprintf("position(%d)", uint8(p))
}

// MarshalText encodes the position name.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a position name.
func (p *Position) UnmarshalText(b []byte) error {
	for i, name := range positionNames {
		if string(b) == name {
			*p = Position(i)
			return nil
		}
	}
	return fmt.Errorf("unknown anchor position %q", b)
}

// Anchor ties an annotation to an element by keyed path.
type Anchor struct {
	Path     string   `json:"path"`
	Position Position `json:"position"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

// AnnotationKind distinguishes comments from processing instructions.
type AnnotationKind uint8

const (
	AnnotationComment AnnotationKind = iota
	AnnotationPI
)

// Annotation is a comment or processing instruction outside the model.
type Annotation struct {
	Kind   AnnotationKind `json:"kind"`
	Target string         `json:"target,omitempty"`
	Text   string         `json:"text"`
	Anchor Anchor         `json:"anchor"`
}

// Fragment is an element the model does not represent, kept as a
// self-contained XML subtree under its owner.
type Fragment struct {
	Owner     string            `json:"owner"`
	Namespace string            `json:"namespace,omitempty"`
	Local     string            `json:"local"`
	XML       string            `json:"xml"`
	Prefixes  map[string]string `json:"prefixes,omitempty"`
	// Unknown is set for unqualified names outside the dialect vocabulary.
	Unknown bool `json:"unknown,omitempty"`
}

// ExtraAttr is an attribute on a modelled element that the model does not
// represent.
type ExtraAttr struct {
	Path      string `json:"path"`
	Namespace string `json:"namespace,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Local     string `json:"local"`
	Value     string `json:"value"`
	// ValueNamespace is set when the value is a QName.
	ValueNamespace string `json:"valueNamespace,omitempty"`
}

// Binding is a namespace declaration in document order.
type Binding struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
	Path   string `json:"path"`
}

// Sidecar carries the artifacts that let parse-then-build reproduce the
// input: annotations, fragments, extra attributes, original attribute
// order, prefix choices and CDATA boundaries.
type Sidecar struct {
	Annotations    []Annotation        `json:"annotations,omitempty"`
	Fragments      []Fragment          `json:"fragments,omitempty"`
	Attributes     []ExtraAttr         `json:"attributes,omitempty"`
	AttributeOrder map[string][]string `json:"attributeOrder,omitempty"`
	Bindings       []Binding           `json:"bindings,omitempty"`
	CDATA          []string            `json:"cdata,omitempty"`
	Banner         string              `json:"banner,omitempty"`
	// Qualified is set when schema children carry the ERN namespace rather
	// than being unqualified.
	Qualified bool `json:"qualified,omitempty"`
	// Unqualified is set when the document element has no namespace.
	Unqualified bool `json:"unqualified,omitempty"`
}

// Comments returns the comment annotations.
func (s *Sidecar) Comments() []Annotation {
	return s.filter(AnnotationComment)
}

// PIs returns the processing-instruction annotations.
func (s *Sidecar) PIs() []Annotation {
	return s.filter(AnnotationPI)
}

func (s *Sidecar) filter(kind AnnotationKind) []Annotation {
	if s == nil {
		return nil
	}
	var out []Annotation
	for _, a := range s.Annotations {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Empty reports whether the sidecar carries nothing.
func (s *Sidecar) Empty() bool {
	return s == nil || (len(s.Annotations) == 0 && len(s.Fragments) == 0 &&
		len(s.Attributes) == 0 && len(s.AttributeOrder) == 0 &&
		len(s.Bindings) == 0 && len(s.CDATA) == 0)
}

// PreferredPrefix returns the first prefix bound to uri in document order.
func (s *Sidecar) PreferredPrefix(uri string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, b := range s.Bindings {
		if b.URI == uri {
			return b.Prefix, true
		}
	}
	return "", false
}
