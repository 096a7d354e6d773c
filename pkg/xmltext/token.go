package xmltext

import "strings"

// Name is a raw qualified name split at the first colon.
type Name struct {
	Prefix string
	Local  string
}

// ParseName splits a raw qualified name.
func ParseName(raw string) Name {
	if prefix, local, ok := strings.Cut(raw, ":"); ok {
		return Name{Prefix: prefix, Local: local}
	}
	return Name{Local: raw}
}

// String returns the name in prefix:local form.
func (n Name) String() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// Attr is one attribute in source order. Value has entities expanded and
// literal whitespace normalized to spaces.
type Attr struct {
	Name  Name
	Value string
}

// Token is one lexical unit. Text holds character data, comment body,
// PI data, CDATA body or the directive body depending on Kind.
// For KindPI, Name.Local holds the target.
type Token struct {
	Kind        Kind
	Name        Name
	Attrs       []Attr
	Text        string
	SelfClosing bool
	Depth       int
	Line        int
	Column      int
	Offset      int64
}

// IsWhitespace reports whether a character data token holds only XML whitespace.
func (t Token) IsWhitespace() bool {
	if t.Kind != KindCharData {
		return false
	}
	return IsSpace(t.Text)
}

// IsSpace reports whether s consists only of XML whitespace.
func IsSpace(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isSpaceByte(s[i]) {
			return false
		}
	}
	return true
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
