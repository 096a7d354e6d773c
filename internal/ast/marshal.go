package ast

import (
	"bytes"
	"context"
	"strings"

	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

// AppendText escapes character data: & < > always, and CR as a character
// reference so it survives parsing.
func AppendText(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			dst = append(dst, "&amp;"...)
		case '<':
			dst = append(dst, "&lt;"...)
		case '>':
			dst = append(dst, "&gt;"...)
		case '\r':
			dst = append(dst, "&#xD;"...)
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// AppendAttr escapes an attribute value for the given quote character.
// Tab, LF and CR become character references so attribute-value
// normalization does not alter them on re-read.
func AppendAttr(dst []byte, s string, quote byte) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			dst = append(dst, "&amp;"...)
		case '<':
			dst = append(dst, "&lt;"...)
		case '"':
			if quote == '"' {
				dst = append(dst, "&quot;"...)
			} else {
				dst = append(dst, c)
			}
		case '\'':
			if quote == '\'' {
				dst = append(dst, "&apos;"...)
			} else {
				dst = append(dst, c)
			}
		case '\t':
			dst = append(dst, "&#x9;"...)
		case '\n':
			dst = append(dst, "&#xA;"...)
		case '\r':
			dst = append(dst, "&#xD;"...)
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// SafeComment rewrites "--" to "- -" and pads a trailing hyphen so the
// value is a legal comment body.
func SafeComment(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	if strings.HasSuffix(s, "-") {
		s += " "
	}
	return s
}

// Marshal serializes e as a self-contained fragment: every prefix the
// subtree uses is declared where it is first needed.
func Marshal(e *Element) []byte {
	m := marshaler{scopes: []map[string]string{{"": "", "xml": xmlstream.XMLNamespace}}}
	m.element(e)
	return m.buf
}

// ParseFragment parses a fragment produced by Marshal.
func ParseFragment(ctx context.Context, data []byte, opts Options) (*Element, error) {
	doc, err := Parse(ctx, bytes.NewReader(data), opts)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

type marshaler struct {
	buf    []byte
	scopes []map[string]string
}

func (m *marshaler) lookup(prefix string) (string, bool) {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		if uri, ok := m.scopes[i][prefix]; ok {
			return uri, true
		}
	}
	return "", false
}

func (m *marshaler) element(e *Element) {
	scope := make(map[string]string)
	var decls []xmlstream.NamespaceDecl
	need := func(prefix, uri string) {
		if prefix == "xml" {
			return
		}
		if got, ok := scope[prefix]; ok && got == uri {
			return
		}
		if _, ok := scope[prefix]; !ok {
			if got, ok := m.lookup(prefix); ok && got == uri {
				return
			}
		}
		scope[prefix] = uri
		decls = append(decls, xmlstream.NamespaceDecl{Prefix: prefix, URI: uri})
	}
	need(e.Prefix, e.Name.Space)
	for _, a := range e.Attrs {
		if a.Name.Space != "" {
			need(a.Prefix, a.Name.Space)
		}
		if a.ValueSpace != "" {
			if p, _, ok := splitQNameValue(a.Value); ok {
				need(p, a.ValueSpace)
			}
		}
	}
	m.scopes = append(m.scopes, scope)
	defer func() { m.scopes = m.scopes[:len(m.scopes)-1] }()

	m.buf = append(m.buf, '<')
	m.buf = appendName(m.buf, e.Prefix, e.Name.Local)
	for _, d := range decls {
		m.buf = append(m.buf, ' ')
		m.buf = appendName(m.buf, "xmlns", d.Prefix)
		m.buf = append(m.buf, `="`...)
		m.buf = AppendAttr(m.buf, d.URI, '"')
		m.buf = append(m.buf, '"')
	}
	for _, a := range e.Attrs {
		m.buf = append(m.buf, ' ')
		m.buf = appendName(m.buf, a.Prefix, a.Name.Local)
		m.buf = append(m.buf, `="`...)
		m.buf = AppendAttr(m.buf, a.Value, '"')
		m.buf = append(m.buf, '"')
	}
	if len(e.Children) == 0 {
		m.buf = append(m.buf, "/>"...)
		return
	}
	m.buf = append(m.buf, '>')
	for _, n := range e.Children {
		switch c := n.(type) {
		case *Element:
			m.element(c)
		case *Fragment:
			m.element(c.Root)
		case *Text:
			m.buf = AppendText(m.buf, c.Value)
		case *CDATA:
			m.buf = append(m.buf, "<![CDATA["...)
			m.buf = append(m.buf, c.Value...)
			m.buf = append(m.buf, "]]>"...)
		case *Comment:
			m.buf = append(m.buf, "<!--"...)
			m.buf = append(m.buf, SafeComment(c.Value)...)
			m.buf = append(m.buf, "-->"...)
		case *ProcInst:
			m.buf = append(m.buf, "<?"...)
			m.buf = append(m.buf, c.Target...)
			if c.Data != "" {
				m.buf = append(m.buf, ' ')
				m.buf = append(m.buf, c.Data...)
			}
			m.buf = append(m.buf, "?>"...)
		}
	}
	m.buf = append(m.buf, "</"...)
	m.buf = appendName(m.buf, e.Prefix, e.Name.Local)
	m.buf = append(m.buf, '>')
}

// appendName writes prefix:local, or local alone for an empty prefix. For
// xmlns with an empty local it writes the default declaration name.
func appendName(dst []byte, prefix, local string) []byte {
	switch {
	case prefix == "":
		return append(dst, local...)
	case local == "" && prefix == "xmlns":
		return append(dst, prefix...)
	}
	dst = append(dst, prefix...)
	dst = append(dst, ':')
	return append(dst, local...)
}
