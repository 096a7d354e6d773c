package xmltext

// Kind identifies the syntactic kind of an XML token.
type Kind byte

const (
	KindNone Kind = iota
	KindStartElement
	KindEndElement
	KindCharData
	KindComment
	KindPI
	KindDirective
	KindCDATA
)

var kindNames = [...]string{
	KindNone:         "None",
	KindStartElement: "StartElement",
	KindEndElement:   "EndElement",
	KindCharData:     "CharData",
	KindComment:      "Comment",
	KindPI:           "PI",
	KindDirective:    "Directive",
	KindCDATA:        "CDATA",
}

// String returns a stable name for the kind, suitable for debugging.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Structural reports whether the kind opens or closes an element.
func (k Kind) Structural() bool {
	return k == KindStartElement || k == KindEndElement
}
