package xmlstream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

func collect(t *testing.T, input string) []Event {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, ev)
	}
}

func TestReaderResolvesNestedScopes(t *testing.T) {
	input := `<ern:M xmlns:ern="urn:a" xmlns:x="urn:x"><C x:k="v"><x:E xmlns:x="urn:y"/></C></ern:M>`
	evs := collect(t, input)
	if got := evs[0].Name; got != (QName{Space: "urn:a", Local: "M"}) {
		t.Fatalf("root = %v, want {urn:a}M", got)
	}
	if len(evs[0].Decls) != 2 || evs[0].Decls[0].Prefix != "ern" {
		t.Fatalf("root decls = %+v", evs[0].Decls)
	}
	if got := evs[1].Name; got != (QName{Local: "C"}) {
		t.Fatalf("child = %v, want unqualified C", got)
	}
	if got := evs[1].Attrs[0].Name; got != (QName{Space: "urn:x", Local: "k"}) {
		t.Fatalf("attr = %v, want {urn:x}k", got)
	}
	if got := evs[2].Name.Space; got != "urn:y" {
		t.Fatalf("overridden prefix resolved to %q, want urn:y", got)
	}
	if evs[3].Kind != xmltext.KindEndElement || evs[3].Name.Space != "urn:y" {
		t.Fatalf("end event = %+v", evs[3])
	}
}

func TestReaderDefaultNamespace(t *testing.T) {
	evs := collect(t, `<r xmlns="urn:d"><c a="1"/></r>`)
	if evs[1].Name.Space != "urn:d" {
		t.Fatalf("child namespace = %q, want urn:d", evs[1].Name.Space)
	}
	if evs[1].Attrs[0].Name.Space != "" {
		t.Fatalf("unprefixed attribute namespace = %q, want empty", evs[1].Attrs[0].Name.Space)
	}
}

func TestReaderUnboundPrefix(t *testing.T) {
	r := NewReader(strings.NewReader(`<p:r/>`))
	_, err := r.Next()
	if !errors.Is(err, ErrUnboundPrefix) {
		t.Fatalf("Next() error = %v, want ErrUnboundPrefix", err)
	}
	var syn *xmltext.SyntaxError
	if !errors.As(err, &syn) || syn.Line != 1 {
		t.Fatalf("error = %T, want *xmltext.SyntaxError with line", err)
	}
}

func TestReaderInScope(t *testing.T) {
	r := NewReader(strings.NewReader(`<a xmlns:p="urn:p"><b xmlns:q="urn:q"/></a>`))
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	got := r.InScope()
	if got["p"] != "urn:p" || got["q"] != "urn:q" || len(got) != 2 {
		t.Fatalf("InScope() = %v", got)
	}
}
