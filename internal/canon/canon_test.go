package canon

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daddykev/ddex-suite/config"
	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/digest"
)

func run(t *testing.T, input string, cfg config.Config) *Result {
	t.Helper()
	doc, err := ast.Parse(context.Background(), strings.NewReader(input), ast.Options{})
	require.NoError(t, err)
	res, err := Canonicalize(context.Background(), doc, Options{Config: cfg})
	require.NoError(t, err)
	return res
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

const messy = `<?xml version="1.0"?>
<!-- top -->
<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/43" xmlns:unused="urn:unused" MessageSchemaVersionId="ern/43" LanguageAndScriptCode="en">
  <ResourceList>
    <SoundRecording><ResourceReference>A2</ResourceReference><Duration>PT03M00S</Duration></SoundRecording>
    <SoundRecording><ResourceReference>A1</ResourceReference></SoundRecording>
  </ResourceList>
  <MessageHeader>
    <MessageId>  M1  </MessageId>
  </MessageHeader>
</ern:NewReleaseMessage>`

var messyCanonical = lines(
	`<?xml version="1.0" encoding="UTF-8"?>`,
	`<!-- top -->`,
	`<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/43" LanguageAndScriptCode="en" MessageSchemaVersionId="ern/43">`,
	`  <MessageHeader>`,
	`    <MessageId>M1</MessageId>`,
	`  </MessageHeader>`,
	`  <ResourceList>`,
	`    <SoundRecording>`,
	`      <ResourceReference>A1</ResourceReference>`,
	`    </SoundRecording>`,
	`    <SoundRecording>`,
	`      <ResourceReference>A2</ResourceReference>`,
	`      <Duration>PT3M</Duration>`,
	`    </SoundRecording>`,
	`  </ResourceList>`,
	`</ern:NewReleaseMessage>`,
)

func TestCanonicalizeOrdersAndNormalizes(t *testing.T) {
	res := run(t, messy, config.Default())
	assert.Equal(t, messyCanonical, string(res.Bytes))
	assert.Empty(t, res.Banner)
	assert.Equal(t, digest.Of(config.HashSHA256, res.Bytes), res.Digest)
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	first := run(t, messy, config.Default())
	second := run(t, string(first.Bytes), config.Default())
	assert.Equal(t, string(first.Bytes), string(second.Bytes))
	assert.True(t, first.Digest.Equal(second.Digest))
}

func TestBanner(t *testing.T) {
	cfg := config.Default().WithBanner(true)
	res := run(t, messy, cfg)
	plain := run(t, messy, config.Default())

	got := strings.Split(string(res.Bytes), "\n")
	require.Greater(t, len(got), 2)
	assert.Equal(t, "<!--"+res.Banner+"-->", got[1])
	assert.True(t, strings.HasPrefix(res.Banner, cfg.Banner()+" digest="))
	assert.True(t, strings.HasSuffix(res.Banner, plain.Digest.Hex()))
	assert.Equal(t, plain.Digest, res.Digest)

	// the banner is recognized and replaced on the next pass
	again := run(t, string(res.Bytes), cfg)
	assert.Equal(t, string(res.Bytes), string(again.Bytes))
	assert.True(t, IsBanner(" "+res.Banner))
	assert.False(t, IsBanner("just a note"))
}

func TestCommentsTravelWithFollowingElement(t *testing.T) {
	input := `<NewReleaseMessage>
  <ReleaseList/>
  <!-- header note -->
  <MessageHeader><MessageId>M<!--c-->1</MessageId></MessageHeader>
  <!-- tail -->
</NewReleaseMessage>`
	want := lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<NewReleaseMessage>`,
		`  <!-- header note -->`,
		`  <MessageHeader>`,
		`    <MessageId>M1<!--c--></MessageId>`,
		`  </MessageHeader>`,
		`  <ReleaseList/>`,
		`  <!-- tail -->`,
		`</NewReleaseMessage>`,
	)
	assert.Equal(t, want, string(run(t, input, config.Default()).Bytes))

	noComments := config.Default().WithPreserve(config.Preservation{})
	want = lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<NewReleaseMessage>`,
		`  <MessageHeader>`,
		`    <MessageId>M1</MessageId>`,
		`  </MessageHeader>`,
		`  <ReleaseList/>`,
		`</NewReleaseMessage>`,
	)
	assert.Equal(t, want, string(run(t, input, noComments).Bytes))
}

func TestCDATA(t *testing.T) {
	input := `<MessageHeader><MessageId><![CDATA[ a<b ]]></MessageId></MessageHeader>`
	kept := run(t, input, config.Default())
	assert.Contains(t, string(kept.Bytes), `<MessageId><![CDATA[a<b]]></MessageId>`)

	dropped := run(t, input, config.Default().WithPreserve(config.Preservation{}))
	assert.Contains(t, string(dropped.Bytes), `<MessageId>a&lt;b</MessageId>`)
}

func TestPrefixLockRenamesCollidingCustomPrefix(t *testing.T) {
	input := `<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43" xmlns:ern="urn:custom"><ern:Mood>x</ern:Mood><MessageHeader/></NewReleaseMessage>`
	want := lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/43" xmlns:ern1="urn:custom">`,
		`  <ern:MessageHeader/>`,
		`  <ern1:Mood>x</ern1:Mood>`,
		`</ern:NewReleaseMessage>`,
	)
	assert.Equal(t, want, string(run(t, input, config.Default()).Bytes))

	doc, err := ast.Parse(context.Background(), strings.NewReader(input), ast.Options{})
	require.NoError(t, err)
	_, err = Canonicalize(context.Background(), doc, Options{Config: config.Default().WithCollision(config.CollisionReject)})
	require.Error(t, err)
	assert.Equal(t, ddexerrors.CodeNamespaceLockViolation, ddexerrors.CodeOf(err))
}

func TestPrefixInheritKeepsInputPrefixes(t *testing.T) {
	input := `<r:NewReleaseMessage xmlns:r="http://ddex.net/xml/ern/43"><x:Ext xmlns:x="urn:x"/><MessageHeader/></r:NewReleaseMessage>`
	want := lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<r:NewReleaseMessage xmlns:r="http://ddex.net/xml/ern/43" xmlns:x="urn:x">`,
		`  <MessageHeader/>`,
		`  <x:Ext/>`,
		`</r:NewReleaseMessage>`,
	)
	assert.Equal(t, want, string(run(t, input, config.Default().WithPrefixes(config.PrefixInherit)).Bytes))
}

func TestDefaultBoundCustomNamespaceGetsGeneratedPrefix(t *testing.T) {
	input := `<NewReleaseMessage><Ext xmlns="urn:x"><Inner/></Ext></NewReleaseMessage>`
	want := lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<NewReleaseMessage xmlns:ns1="urn:x">`,
		`  <ns1:Ext>`,
		`    <ns1:Inner/>`,
		`  </ns1:Ext>`,
		`</NewReleaseMessage>`,
	)
	assert.Equal(t, want, string(run(t, input, config.Default()).Bytes))
}

func TestQNameValuesFollowPrefixChanges(t *testing.T) {
	input := `<e:NewReleaseMessage xmlns:e="http://ddex.net/xml/ern/43" xmlns:x="http://www.w3.org/2001/XMLSchema-instance" x:type="e:Foo"/>`
	want := lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/43" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:type="ern:Foo"/>`,
	)
	assert.Equal(t, want, string(run(t, input, config.Default()).Bytes))
}

func TestUnicodeNormalization(t *testing.T) {
	input := "<MessageHeader><MessageId>Beyonce\u0301</MessageId></MessageHeader>"
	assert.Contains(t, string(run(t, input, config.Default()).Bytes), "<MessageId>Beyonc\u00e9</MessageId>")
	assert.Contains(t, string(run(t, input, config.Default().WithNormalization(config.NFD)).Bytes), "<MessageId>Beyonce\u0301</MessageId>")
}

func TestCompactAndLineEndings(t *testing.T) {
	input := `<MessageHeader> <MessageId>M1</MessageId> <MessageThreadId>T</MessageThreadId> </MessageHeader>`
	compact := run(t, input, config.Default().WithMode(config.ModeCompact))
	assert.Equal(t, lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<MessageHeader><MessageThreadId>T</MessageThreadId><MessageId>M1</MessageId></MessageHeader>`,
	), string(compact.Bytes))

	crlf := run(t, input, config.Default().WithLineEnding(config.CRLF).WithIndent(config.IndentTab, 1))
	assert.Equal(t, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\r\n"+
		"<MessageHeader>\r\n\t<MessageThreadId>T</MessageThreadId>\r\n\t<MessageId>M1</MessageId>\r\n</MessageHeader>\r\n",
		string(crlf.Bytes))
}

func TestSortStrategies(t *testing.T) {
	input := `<ReleaseList><Release><ReleaseReference>R2</ReleaseReference></Release><Release><ReleaseReference>R1</ReleaseReference></Release></ReleaseList>`

	canonical := string(run(t, input, config.Default().WithMode(config.ModeCompact)).Bytes)
	assert.Less(t, strings.Index(canonical, "R1"), strings.Index(canonical, "R2"))

	inputOrder := string(run(t, input, config.Default().WithMode(config.ModeCompact).WithSort(config.SortInputOrder)).Bytes)
	assert.Less(t, strings.Index(inputOrder, "R2"), strings.Index(inputOrder, "R1"))

	header := `<MessageHeader><MessageId>M</MessageId><MessageThreadId>T</MessageThreadId></MessageHeader>`
	custom := config.Default().WithMode(config.ModeCompact).
		WithCustomOrder(map[string][]string{"MessageHeader": {"MessageId", "MessageThreadId"}})
	assert.Contains(t, string(run(t, header, custom).Bytes), `<MessageHeader><MessageId>M</MessageId><MessageThreadId>T</MessageThreadId></MessageHeader>`)
}

func TestAttributeOrderOutsideCanonicalMode(t *testing.T) {
	input := `<PartyId b="2" a="1">X</PartyId>`
	assert.Contains(t, string(run(t, input, config.Default()).Bytes), `<PartyId a="1" b="2">X</PartyId>`)
	assert.Contains(t, string(run(t, input, config.Default().WithMode(config.ModePretty)).Bytes), `<PartyId b="2" a="1">X</PartyId>`)
	assert.Contains(t, string(run(t, input, config.Default().WithQuote(config.QuoteSingle)).Bytes), `<PartyId a='1' b='2'>X</PartyId>`)
}

func TestExtensionsDroppedWhenNotPreserved(t *testing.T) {
	input := `<NewReleaseMessage xmlns:x="urn:x" x:flag="1"><x:Ext/><MessageHeader/></NewReleaseMessage>`
	doc, err := ast.Parse(context.Background(), strings.NewReader(input), ast.Options{
		Foreign: func(uri string) bool { return uri == "urn:x" },
	})
	require.NoError(t, err)
	res, err := Canonicalize(context.Background(), doc, Options{Config: config.Default().WithPreserve(config.Preservation{})})
	require.NoError(t, err)
	assert.Equal(t, lines(
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<NewReleaseMessage>`,
		`  <MessageHeader/>`,
		`</NewReleaseMessage>`,
	), string(res.Bytes))
}

func largeDocument(n int) *ast.Document {
	list := ast.NewElement("ResourceList")
	for i := range n {
		sr := ast.NewElement("SoundRecording")
		sr.Leaf("ResourceReference", "A"+strconv.Itoa(i+1))
		sr.Leaf("Duration", "PT3M")
		list.Append(sr)
	}
	return &ast.Document{Root: ast.NewElement("NewReleaseMessage").Append(list)}
}

func TestCanonicalizeHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := Canonicalize(ctx, largeDocument(5000), Options{Config: config.Default()})
	require.Error(t, err)
	assert.Equal(t, ddexerrors.CodeTimeout, ddexerrors.CodeOf(err))
	e, ok := ddexerrors.AsError(err)
	require.True(t, ok)
	assert.Equal(t, ddexerrors.PhaseCanonical, e.Phase)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWriteStopsWhenCancelled(t *testing.T) {
	doc := largeDocument(100)
	require.NoError(t, Apply(context.Background(), doc, Options{Config: config.Default()}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Write(ctx, doc, config.Default())
	assert.Nil(t, res)
	assert.Equal(t, ddexerrors.CodeTimeout, ddexerrors.CodeOf(err))
}
