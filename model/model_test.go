package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() *Message {
	return &Message{
		ID:        "MSG-1",
		Type:      Update,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Sender:    MessageParty{IDs: []Identifier{{Namespace: "DPID", Value: "PADPIDA2014120301A"}}, Names: []LocalizedString{{Text: "Label"}}},
		Parties:   []Party{{Reference: "P1", Names: []LocalizedString{{Text: "Band"}}}},
		Resources: []Resource{
			{Kind: "SoundRecording", Reference: "A1", ISRC: "USRC17607839", Title: Title{Text: "One"}, Duration: "PT3M25S",
				DisplayArtists: []Artist{{PartyReference: "P1"}, {Name: "Band"}}},
			{Kind: "SoundRecording", Reference: "A2", Title: Title{Text: "Two"}, Duration: "bogus"},
		},
		Releases: []Release{{
			Reference:    "R1",
			Title:        Title{Text: "Album"},
			Genres:       []Genre{{Text: "Pop"}},
			ResourceRefs: []ResourceRef{{Reference: "A1"}, {Reference: "A2"}, {Reference: "A9"}},
		}},
		Deals: []Deal{{Reference: "D1", ReleaseReferences: []string{"R1"}, UseTypes: []string{"Stream"}}},
	}
}

func TestFlatten(t *testing.T) {
	flat := Flatten(sampleMessage())
	assert.Equal(t, "Update", flat.Type)
	assert.Equal(t, FlatParty{ID: "PADPIDA2014120301A", Name: "Label"}, flat.Sender)
	assert.Equal(t, []FlatParty{{Reference: "P1", Name: "Band"}}, flat.Parties)

	require.Len(t, flat.Releases, 1)
	tracks := flat.Releases[0].Tracks
	require.Len(t, tracks, 3)
	assert.Equal(t, FlatTrack{Position: 1, Reference: "A1", ISRC: "USRC17607839", Title: "One", Artist: "Band", Duration: "PT3M25S", Seconds: 205}, tracks[0])
	assert.Zero(t, tracks[1].Seconds)
	assert.Equal(t, FlatTrack{Position: 3, Reference: "A9"}, tracks[2])
	assert.Equal(t, "Pop", flat.Releases[0].Genre)

	assert.Equal(t, FlatStats{Releases: 1, Tracks: 3, Deals: 1, TotalDuration: 205 * time.Second}, flat.Stats)
	assert.Equal(t, "Two", flat.Resources["A2"].Title)
}

func TestDetails(t *testing.T) {
	var d Details
	d = d.Set("BitRate", "320")
	d = d.Set(ContentHashDetail, "abc")
	d = d.Set("BitRate", "256")
	assert.Equal(t, Details{{Name: "BitRate", Value: "256"}, {Name: "HashSum", Value: "abc"}}, d)
	v, ok := d.Get("HashSum")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	_, ok = d.Get("Codec")
	assert.False(t, ok)
}

func TestMessageTypeText(t *testing.T) {
	for _, mt := range []MessageType{NewRelease, Update, Takedown} {
		b, err := mt.MarshalText()
		require.NoError(t, err)
		var got MessageType
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, mt, got)
	}
	var mt MessageType
	assert.Error(t, mt.UnmarshalText([]byte("Purge")))
	assert.Equal(t, "PurgeReleaseMessage", Takedown.RootElement())
	assert.Equal(t, "NewReleaseMessage", Update.RootElement())
}

func TestSidecarHelpers(t *testing.T) {
	var nilSidecar *Sidecar
	assert.True(t, nilSidecar.Empty())
	assert.Nil(t, nilSidecar.Comments())
	_, ok := nilSidecar.PreferredPrefix("urn:x")
	assert.False(t, ok)

	sc := &Sidecar{
		Annotations: []Annotation{
			{Kind: AnnotationComment, Text: "a"},
			{Kind: AnnotationPI, Target: "pi", Text: "b"},
		},
		Bindings: []Binding{{Prefix: "x", URI: "urn:x"}, {Prefix: "y", URI: "urn:x"}},
	}
	assert.False(t, sc.Empty())
	assert.Len(t, sc.Comments(), 1)
	assert.Equal(t, "pi", sc.PIs()[0].Target)
	p, ok := sc.PreferredPrefix("urn:x")
	assert.True(t, ok)
	assert.Equal(t, "x", p)
}

func TestPositionText(t *testing.T) {
	var p Position
	require.NoError(t, p.UnmarshalText([]byte("inline")))
	assert.Equal(t, Inline, p)
	assert.Error(t, p.UnmarshalText([]byte("sideways")))
}

func TestEntitiesAndAdd(t *testing.T) {
	msg := sampleMessage()
	ents := msg.Entities()
	require.Len(t, ents, 5)
	assert.Equal(t, KindParty, ents[0].EntityKind())
	assert.Equal(t, "D1", ents[4].Ref())

	var out Message
	for _, e := range ents {
		out.Add(e)
	}
	assert.Equal(t, msg.Resources, out.Resources)
	assert.Equal(t, "Deal", KindDeal.String())
}
