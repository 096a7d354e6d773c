package stableid

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/model"
)

func TestHashIsDomainSeparated(t *testing.T) {
	got := Hash(config.HashSHA256, TagResource, "USRC17607839", "225")
	assert.Equal(t, "hktxd2oo4lgaayagzroz", got)
	assert.NotEqual(t, got, Hash(config.HashSHA256, TagRelease, "USRC17607839", "225"))
	assert.NotEqual(t, got, Hash(config.HashSHA256, TagResource, "USRC17607839225"))
	assert.NotEqual(t, got, Hash(config.HashBLAKE2b256, TagResource, "USRC17607839", "225"))
	assert.Len(t, Hash(config.HashSHA3_256, TagDeal), 20)
}

func TestStableHashCollisionRehashes(t *testing.T) {
	g := New(config.IDStableHash, config.HashSHA256)
	first := g.Next(Resource, "USRC17607839", "225")
	second := g.Next(Resource, "USRC17607839", "225")
	assert.Equal(t, "Ahktxd2oo4lgaayagzroz", first)
	assert.Equal(t, "Aw2qlfmbqshniq6cvfqha", second)
}

func TestSequential(t *testing.T) {
	g := New(config.IDSequential, config.HashSHA256)
	g.Reserve("A1")
	assert.Equal(t, "A2", g.Next(Resource))
	assert.Equal(t, "R1", g.Next(Release))
	assert.Equal(t, "A3", g.Next(Resource))
}

func TestTimeOrderedUsesInjectedClock(t *testing.T) {
	clock := func() time.Time { return time.UnixMilli(1700000000000) }
	g := New(config.IDTimeOrderedUUID, config.HashSHA256,
		WithClock(clock),
		WithEntropy(bytes.NewReader(make([]byte, 64))))
	ref := g.Next(Release)
	assert.Equal(t, "R018bcfe5680070008000000000000000", ref)
}

func TestRandom128(t *testing.T) {
	g := New(config.IDRandom128, config.HashSHA256, WithEntropy(bytes.NewReader(make([]byte, 16))))
	ref := g.Next(Deal)
	assert.Equal(t, "D00000000000040008000000000000000", ref)
}

func TestAssignFillsOnlyEmptyReferences(t *testing.T) {
	build := func() *model.Message {
		return &model.Message{
			CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			Sender:    model.MessageParty{IDs: []model.Identifier{{Value: "PADPIDA2014120301U"}}},
			Resources: []model.Resource{
				{ISRC: "USRC17607839", Duration: "PT3M45S"},
				{Reference: "A9", ISRC: "USRC17607840"},
			},
			Releases: []model.Release{{ICPN: "0123456789012", ResourceRefs: []model.ResourceRef{{Reference: "A9"}}}},
			Deals:    []model.Deal{{CommercialModels: []string{"SubscriptionModel"}, Territories: []string{"US", "GB"}}},
		}
	}
	a, b := build(), build()
	New(config.IDStableHash, config.HashSHA256).Assign(a)
	New(config.IDStableHash, config.HashSHA256).Assign(b)

	require.Equal(t, a, b, "stable assignment must be a pure function of content")
	assert.True(t, strings.HasPrefix(a.ID, "M"))
	assert.Equal(t, "Ahktxd2oo4lgaayagzroz", a.Resources[0].Reference)
	assert.Equal(t, "A9", a.Resources[1].Reference)
	assert.True(t, strings.HasPrefix(a.Releases[0].Reference, "R"))
	assert.True(t, strings.HasPrefix(a.Deals[0].Reference, "D"))
}

func TestResourceFieldsIncludeContentHash(t *testing.T) {
	r := &model.Resource{ISRC: "X", Duration: "PT1M", TechnicalDetails: model.Details{{Name: "HashSum", Value: "abc"}}}
	assert.Equal(t, []string{"X", "60", "abc"}, ResourceFields(r))
	assert.Equal(t, "GB,US", Sorted([]string{"US", "GB", "US"}))
}

func TestAssignSkipLeavesKindEmpty(t *testing.T) {
	msg := &model.Message{
		ID:       "MSG-1",
		Releases: []model.Release{{ICPN: "0123456789012"}},
		Deals:    []model.Deal{{ReleaseReferences: []string{"R1"}}},
	}
	New(config.IDSequential, config.HashSHA256, Skip(Deal)).Assign(msg)
	assert.Empty(t, msg.Deals[0].Reference)
	assert.Equal(t, "R1", msg.Releases[0].Reference)
}
