package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/model"
)

const release = "/NewReleaseMessage/ReleaseList/Release{R1}"

func message() *model.Message {
	ns := dialect.V43.Namespace()
	return &model.Message{
		ID:              "M1",
		Version:         dialect.V43,
		SchemaVersionID: dialect.V43.SchemaVersionID(),
		SchemaLocation:  dialect.V43.SchemaLocation(),
		Sidecar: &model.Sidecar{
			Bindings:   []model.Binding{{Prefix: "ern", URI: ns, Path: "/NewReleaseMessage"}},
			Attributes: []model.ExtraAttr{{Path: release, Namespace: ns, Prefix: "ern", Local: "flag", Value: "1"}},
			AttributeOrder: map[string][]string{
				release: {"{" + ns + "}flag", "b"},
			},
			Fragments: []model.Fragment{
				{Owner: release, Local: "ResourceId", XML: "<ResourceId><ProprietaryId>X1</ProprietaryId></ResourceId>"},
				{Owner: release, Namespace: ns, Local: "Genre", XML: `<ern:Genre xmlns:ern="` + ns + `"><GenreText>Pop</GenreText></ern:Genre>`, Prefixes: map[string]string{"ern": ns}},
				{Owner: release, Namespace: "urn:label", Local: "Mood", XML: `<lbl:Mood xmlns:lbl="urn:label">calm</lbl:Mood>`, Prefixes: map[string]string{"lbl": "urn:label"}},
				{Owner: release, Local: "Widget", XML: "<Widget/>", Unknown: true},
			},
		},
	}
}

func TestRetargetRewritesVersion(t *testing.T) {
	src := message()
	out, diags := Retarget(src, dialect.V382, Options{})

	assert.Equal(t, dialect.V382, out.Version)
	assert.Equal(t, "ern/382", out.SchemaVersionID)
	assert.Equal(t, dialect.V382.SchemaLocation(), out.SchemaLocation)

	ns := dialect.V382.Namespace()
	require.Len(t, out.Sidecar.Bindings, 1)
	assert.Equal(t, ns, out.Sidecar.Bindings[0].URI)
	assert.Equal(t, ns, out.Sidecar.Attributes[0].Namespace)
	assert.Equal(t, []string{"{" + ns + "}flag", "b"}, out.Sidecar.AttributeOrder[release])

	var locals []string
	for _, f := range out.Sidecar.Fragments {
		locals = append(locals, f.Local)
	}
	assert.Equal(t, []string{"Genre", "Mood", "Widget"}, locals)
	genre := out.Sidecar.Fragments[0]
	assert.Equal(t, ns, genre.Namespace)
	assert.Contains(t, genre.XML, `"`+ns+`"`)
	assert.Equal(t, ns, genre.Prefixes["ern"])

	require.Len(t, diags, 1)
	assert.Equal(t, ddexerrors.CodeUnknownElement, diags[0].Code)
	assert.Equal(t, ddexerrors.SeverityWarning, diags[0].Severity)
	assert.Equal(t, "ResourceId", diags[0].Subject)
	assert.Equal(t, release+"/ResourceId", diags[0].Location.Path)

	// the source message is untouched
	assert.Equal(t, dialect.V43, src.Version)
	assert.Equal(t, dialect.V43.Namespace(), src.Sidecar.Bindings[0].URI)
	assert.Equal(t, dialect.V43.Namespace(), src.Sidecar.Fragments[1].Prefixes["ern"])
	assert.Len(t, src.Sidecar.Fragments, 4)
}

func TestRetargetKeepsUnsupportedWhenAsked(t *testing.T) {
	out, diags := Retarget(message(), dialect.V382, Options{KeepUnsupported: true})
	require.Len(t, out.Sidecar.Fragments, 4)
	assert.Equal(t, "ResourceId", out.Sidecar.Fragments[0].Local)
	assert.True(t, out.Sidecar.Fragments[0].Unknown)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "kept")
}

func TestRetargetWithoutVersionAttributes(t *testing.T) {
	msg := &model.Message{ID: "M1", Version: dialect.V42}
	out, diags := Retarget(msg, dialect.V43, Options{})
	assert.Empty(t, diags)
	assert.Equal(t, dialect.V43, out.Version)
	assert.Empty(t, out.SchemaVersionID)
	assert.Empty(t, out.SchemaLocation)
	assert.Nil(t, out.Sidecar)
}
