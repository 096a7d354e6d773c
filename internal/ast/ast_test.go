package ast

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<!--prolog-->
<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/43" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:lbl="urn:label" xsi:type="ern:Thing">
  <ResourceList>
    <SoundRecording><ResourceReference>A2</ResourceReference></SoundRecording>
    <!--first-->
    <SoundRecording><ResourceReference>A1</ResourceReference><lbl:Mood lbl:level="3">calm &amp; slow</lbl:Mood></SoundRecording>
    <SoundRecording/>
  </ResourceList>
  <Note><![CDATA[<raw>]]></Note>
</ern:NewReleaseMessage>
<?trailer done?>`

func foreign(uri string) bool { return uri == "urn:label" }

func resourceKey(parent string) (string, bool) {
	if parent == "ResourceList" {
		return "ResourceReference", true
	}
	return "", false
}

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(context.Background(), strings.NewReader(sample), Options{Foreign: foreign})
	require.NoError(t, err)
	return doc
}

func TestParseTree(t *testing.T) {
	doc := parseSample(t)
	require.Len(t, doc.Prolog, 1)
	assert.Equal(t, "prolog", doc.Prolog[0].(*Comment).Value)
	require.Len(t, doc.Epilog, 1)
	assert.Equal(t, "trailer", doc.Epilog[0].(*ProcInst).Target)
	assert.Equal(t, "done", doc.Epilog[0].(*ProcInst).Data)

	root := doc.Root
	assert.Equal(t, "NewReleaseMessage", root.Name.Local)
	assert.Equal(t, "ern", root.Prefix)
	assert.Len(t, root.Decls, 3)
	require.Len(t, root.Attrs, 1)
	assert.Equal(t, "http://ddex.net/xml/ern/43", root.Attrs[0].ValueSpace)

	list := root.Child("ResourceList")
	require.NotNil(t, list)
	recordings := list.Elements()
	require.Len(t, recordings, 3)
	require.Len(t, recordings[1].Children, 2)
	frag, ok := recordings[1].Children[1].(*Fragment)
	require.True(t, ok, "foreign element should be wrapped in a fragment")
	assert.Equal(t, "calm & slow", frag.Root.Text())

	note := root.Child("Note")
	assert.True(t, note.HasCDATA())
	assert.Equal(t, "<raw>", note.Text())
}

func TestStepsAndIndex(t *testing.T) {
	doc := parseSample(t)
	list := doc.Root.Child("ResourceList")
	var got []string
	for _, s := range Steps(list, resourceKey) {
		if s != "" {
			got = append(got, s)
		}
	}
	assert.Equal(t, []string{"SoundRecording{A2}", "SoundRecording{A1}", "SoundRecording[3]"}, got)

	idx := Index(doc.Root, resourceKey)
	loc, ok := idx["/NewReleaseMessage/ResourceList/SoundRecording{A1}/{urn:label}Mood"]
	require.True(t, ok)
	_, isFragment := loc.Node.(*Fragment)
	assert.True(t, isFragment)
	assert.Equal(t, "SoundRecording", loc.Parent.Name.Local)
	_, ok = idx["/NewReleaseMessage/Note"]
	assert.True(t, ok)
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := parseSample(t)
	frag := doc.Root.Child("ResourceList").Elements()[1].Children[1].(*Fragment)
	out := Marshal(frag.Root)
	assert.Equal(t, `<lbl:Mood xmlns:lbl="urn:label" lbl:level="3">calm &amp; slow</lbl:Mood>`, string(out))

	back, err := ParseFragment(context.Background(), out, Options{})
	require.NoError(t, err)
	assert.Equal(t, frag.Root.Name, back.Name)
	assert.Equal(t, "calm & slow", back.Text())
}

func TestMarshalDefaultNamespaceUndeclare(t *testing.T) {
	in := `<x:Ext xmlns:x="urn:x" xmlns="urn:d"><Inner/><Plain xmlns=""/></x:Ext>`
	doc, err := Parse(context.Background(), strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, `<x:Ext xmlns:x="urn:x"><Inner xmlns="urn:d"/><Plain/></x:Ext>`, string(Marshal(doc.Root)))
}

func TestEscaping(t *testing.T) {
	assert.Equal(t, "a&amp;b&lt;c&gt;d&#xD;'\"", string(AppendText(nil, "a&b<c>d\r'\"")))
	assert.Equal(t, "&quot;'&#x9;&#xA;", string(AppendAttr(nil, "\"'\t\n", '"')))
	assert.Equal(t, "\"&apos;", string(AppendAttr(nil, "\"'", '\'')))
	assert.Equal(t, "a- -b- ", SafeComment("a--b-"))
	assert.Equal(t, "- - - ", SafeComment("---"))
}

func TestParseFailures(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("<a><b></a>"), Options{})
	assert.Equal(t, ddexerrors.CodeXML, ddexerrors.CodeOf(err))

	deep := strings.Repeat("<a>", 10) + strings.Repeat("</a>", 10)
	_, err = Parse(context.Background(), strings.NewReader(deep), Options{Limits: xmltext.MaxDepth(4)})
	assert.Equal(t, ddexerrors.CodeSecurityViolation, ddexerrors.CodeOf(err))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err = Parse(ctx, strings.NewReader(sample), Options{})
	assert.Equal(t, ddexerrors.CodeTimeout, ddexerrors.CodeOf(err))
}

func TestBuilderHelpers(t *testing.T) {
	e := NewElement("PartyName")
	e.SetAttr("LanguageAndScriptCode", "en")
	e.SetAttr("LanguageAndScriptCode", "fr")
	v, ok := e.Attr("LanguageAndScriptCode")
	assert.True(t, ok)
	assert.Equal(t, "fr", v)
	assert.Nil(t, e.Leaf("FullName", ""))
	full := e.Leaf("FullName", "Artist")
	require.NotNil(t, full)
	assert.Equal(t, 0, e.IndexOf(full))
	e.InsertAt(0, &Comment{Value: "c"})
	assert.Equal(t, 1, e.IndexOf(full))

	var seen []string
	Walk(e, func(el *Element) bool {
		seen = append(seen, el.Name.Local)
		return true
	})
	assert.Equal(t, []string{"PartyName", "FullName"}, seen)
}
