package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/model"
)

func message() *model.Message {
	return &model.Message{
		Parties:   []model.Party{{Reference: "P1"}},
		Resources: []model.Resource{{Reference: "A1", DisplayArtists: []model.Artist{{PartyReference: "P1"}}}, {Reference: "A2"}},
		Releases: []model.Release{{
			Reference:    "R1",
			ResourceRefs: []model.ResourceRef{{Reference: "A1"}, {Reference: "A2"}},
		}},
		Deals: []model.Deal{{ReleaseReferences: []string{"R1"}}},
	}
}

func TestLinkClean(t *testing.T) {
	table, diags := Link(message(), true)
	assert.Empty(t, diags)
	assert.Equal(t, 4, table.Len())
	target, ok := table.Lookup("A2")
	require.True(t, ok)
	assert.Equal(t, model.KindResource, target.Kind)
	assert.Equal(t, 1, target.Index)
	assert.Equal(t, []string{"P1", "A1", "A2", "R1"}, table.References())
}

func TestLinkUnresolvedSeverityFollowsStrictness(t *testing.T) {
	msg := message()
	msg.Releases[0].ResourceRefs = append(msg.Releases[0].ResourceRefs, model.ResourceRef{Reference: "A9"})

	_, diags := Link(msg, false)
	require.Len(t, diags, 1)
	assert.Equal(t, ddexerrors.CodeUnresolvedReference, diags[0].Code)
	assert.Equal(t, ddexerrors.SeverityWarning, diags[0].Severity)
	assert.Equal(t, "/Releases[0]/ResourceRefs[2]", diags[0].Location.Path)

	_, diags = Link(msg, true)
	require.Len(t, diags, 1)
	assert.Equal(t, ddexerrors.SeverityError, diags[0].Severity)
}

func TestLinkDuplicateAcrossKinds(t *testing.T) {
	msg := message()
	msg.Releases[0].Reference = "A1"
	msg.Deals[0].ReleaseReferences = []string{"A1"}
	_, diags := Link(msg, false)
	dup, ok := diags.Find(ddexerrors.CodeDuplicateReference)
	require.True(t, ok)
	assert.Equal(t, "A1", dup.Subject)
	mismatch, ok := diags.Find(ddexerrors.CodeReferenceTypeMismatch)
	require.True(t, ok, "deal pointing at a resource must be a mismatch")
	assert.Equal(t, ddexerrors.SeverityError, mismatch.Severity)
}

func TestLinkReleaseCycle(t *testing.T) {
	msg := message()
	msg.Releases = append(msg.Releases, model.Release{Reference: "R2", Related: []model.RelatedRelease{{Reference: "R1"}}})
	msg.Releases[0].Related = []model.RelatedRelease{{Reference: "R2"}}
	_, diags := Link(msg, false)
	cycle, ok := diags.Find(ddexerrors.CodeReferenceCycle)
	require.True(t, ok)
	assert.Contains(t, cycle.Message, "R1 -> R2 -> R1")
	assert.True(t, diags.HasErrors())
}

func TestLinkCycleWalkSkipsNonReleases(t *testing.T) {
	msg := message()
	msg.Releases[0].Related = []model.RelatedRelease{{Reference: "A1"}, {Reference: "R9"}}
	_, diags := Link(msg, false)
	_, ok := diags.Find(ddexerrors.CodeReferenceCycle)
	assert.False(t, ok)
	_, ok = diags.Find(ddexerrors.CodeReferenceTypeMismatch)
	assert.True(t, ok)
	_, ok = diags.Find(ddexerrors.CodeUnresolvedReference)
	assert.True(t, ok)
}
