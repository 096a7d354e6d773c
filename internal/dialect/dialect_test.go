package dialect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
)

func TestClassifyLongestPrefix(t *testing.T) {
	tests := []struct {
		uri     string
		version Version
		class   Class
		prefix  string
	}{
		{"http://ddex.net/xml/ern/43", V43, ClassVersionSpecific, "ern"},
		{"http://ddex.net/xml/ern/42", V42, ClassVersionSpecific, "ern"},
		{"http://ddex.net/xml/ern/382", V382, ClassVersionSpecific, "ern"},
		{"http://ddex.net/xml/ern/43/release-notification", V43, ClassVersionSpecific, "ern"},
		{"http://ddex.net/xml/avs/avs", VersionUnknown, ClassAuxiliary, "avs"},
		{"http://www.w3.org/2001/XMLSchema-instance", VersionUnknown, ClassStandard, "xsi"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			ns, ok := Classify(tt.uri)
			require.True(t, ok)
			assert.Equal(t, tt.version, ns.Version)
			assert.Equal(t, tt.class, ns.Class)
			assert.Equal(t, tt.prefix, ns.Prefix)
		})
	}

	ns, ok := Classify("http://ddex.net/xml/ern/430")
	assert.False(t, ok, "segment boundary must be respected")
	assert.Equal(t, ClassCustom, ns.Class)
}

func TestParseVersion(t *testing.T) {
	for in, want := range map[string]Version{
		"4.3":                         V43,
		"ern/42":                      V42,
		"382":                         V382,
		"http://ddex.net/xml/ern/382": V382,
	} {
		got, err := ParseVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseVersion("5.0")
	assert.Error(t, err)
}

const nested = `<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/42" xmlns:x="urn:x">
  <ResourceList>
    <SoundRecording xmlns:x="urn:y" xmlns:z="urn:z"><x:Ext/></SoundRecording>
    <SoundRecording/>
  </ResourceList>
</ern:NewReleaseMessage>`

func TestResolveScopeTree(t *testing.T) {
	res, err := Resolve(strings.NewReader(nested), true)
	require.NoError(t, err)
	assert.Equal(t, V42, res.Version)
	assert.Len(t, res.Declarations, 4)
	assert.Equal(t, 5, res.Scopes.Len())

	uri, ok := res.Scopes.URIFor("x", "/NewReleaseMessage/ResourceList/SoundRecording/Ext")
	require.True(t, ok)
	assert.Equal(t, "urn:y", uri)

	uri, ok = res.Scopes.URIFor("x", "/NewReleaseMessage/ResourceList/SoundRecording[2]")
	require.True(t, ok)
	assert.Equal(t, "urn:x", uri)

	_, ok = res.Scopes.URIFor("z", "/NewReleaseMessage/ResourceList/SoundRecording[2]")
	assert.False(t, ok)

	prefix, ok := res.Scopes.PrefixFor("http://ddex.net/xml/ern/42", "/NewReleaseMessage/ResourceList")
	require.True(t, ok)
	assert.Equal(t, "ern", prefix)

	_, ok = res.Scopes.PrefixFor("urn:x", "/NewReleaseMessage/ResourceList/SoundRecording")
	assert.False(t, ok, "urn:x is shadowed inside the first SoundRecording")

	bindings := res.Scopes.Bindings("/NewReleaseMessage/ResourceList/SoundRecording")
	require.Len(t, bindings, 3)
	assert.True(t, bindings[0].Local)
	assert.False(t, bindings[2].Local)
}

func TestDetectVersionFallback(t *testing.T) {
	doc := []byte(`<NewReleaseMessage xmlns="urn:unknown"/>`)

	_, _, err := DetectVersion(doc, true)
	require.Error(t, err)
	assert.Equal(t, ddexerrors.CodeInvalidVersion, ddexerrors.CodeOf(err))

	v, diags, err := DetectVersion(doc, false)
	require.NoError(t, err)
	assert.Equal(t, Latest, v)
	require.Len(t, diags, 1)
	assert.Equal(t, ddexerrors.CodeVersionFallback, diags[0].Code)
	assert.Equal(t, ddexerrors.SeverityWarning, diags[0].Severity)
}

func TestSchemaTablesDifferByVersion(t *testing.T) {
	s382, s43 := For(V382), For(V43)
	assert.Equal(t, "SoundRecordingId", s382.ResourceIDElement("SoundRecording"))
	assert.Equal(t, "ResourceId", s43.ResourceIDElement("SoundRecording"))
	assert.True(t, s382.Known("Usage"))
	assert.False(t, s43.Known("Usage"))

	order, ok := s43.ChildOrder("MessageHeader")
	require.True(t, ok)
	assert.Equal(t, "MessageId", order[1])

	key, ok := s43.SortKey("ResourceList")
	require.True(t, ok)
	assert.Equal(t, "ResourceReference", key)
	assert.Equal(t, ValueDateTime, s43.ValueKind("MessageCreatedDateTime"))
	assert.True(t, s43.Open("TechnicalDetails"))
}
