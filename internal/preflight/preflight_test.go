package preflight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/model"
)

func validMessage() *model.Message {
	return &model.Message{
		ID:        "MSG-1",
		Sender:    model.MessageParty{IDs: []model.Identifier{{Namespace: "DPID", Value: "PADPIDA2014120301A"}}},
		Recipient: model.MessageParty{Names: []model.LocalizedString{{Text: "Store"}}},
		Resources: []model.Resource{{Kind: "SoundRecording", Reference: "A1", ISRC: "USRC17607839", Title: model.Title{Text: "One"}, Duration: "PT3M"}},
		Releases: []model.Release{{
			Reference:      "R1",
			Type:           "Album",
			ICPN:           "0602445790128",
			Title:          model.Title{Text: "Album"},
			DisplayArtists: []model.Artist{{Name: "Band"}},
			ReleaseDate:    "2024-03-15",
			Territories:    []string{"Worldwide"},
			ResourceRefs:   []model.ResourceRef{{Reference: "A1"}},
		}},
		Deals: []model.Deal{{
			Reference:         "D1",
			ReleaseReferences: []string{"R1"},
			Territories:       []string{"US", "GB"},
			Validity:          model.Period{Start: "2024-03-15", End: "2025-03-15"},
		}},
	}
}

func codes(l ddexerrors.List) []ddexerrors.Code {
	var out []ddexerrors.Code
	for _, d := range l {
		out = append(out, d.Code)
	}
	return out
}

func TestCheckPassesValidMessage(t *testing.T) {
	rep, err := Check(validMessage(), config.PreflightStrict, Rules{})
	require.NoError(t, err)
	assert.True(t, rep.Passed)
	assert.Empty(t, rep.Diagnostics)
}

func TestCheckNoneSkips(t *testing.T) {
	rep, err := Check(&model.Message{}, config.PreflightNone, Rules{})
	require.NoError(t, err)
	assert.True(t, rep.Passed)
	assert.Empty(t, rep.Diagnostics)
}

func TestCheckRequiredFields(t *testing.T) {
	msg := validMessage()
	msg.Releases = nil
	msg.Deals = nil
	rep, err := Check(msg, config.PreflightWarn, Rules{})
	require.NoError(t, err)
	assert.False(t, rep.Passed)
	d, ok := rep.Diagnostics.Find(ddexerrors.CodeRequiredFieldMissing)
	require.True(t, ok)
	assert.Equal(t, "/NewReleaseMessage/ReleaseList", d.Location.Path)

	msg = validMessage()
	msg.Releases[0].Title.Text = ""
	msg.Releases[0].DisplayArtists = nil
	rep, err = Check(msg, config.PreflightWarn, Rules{})
	require.NoError(t, err)
	require.Len(t, rep.Errors(), 2)
	assert.Equal(t, "/NewReleaseMessage/ReleaseList/Release{R1}/ReferenceTitle/TitleText", rep.Errors()[0].Location.Path)
	assert.Equal(t, "DisplayArtist", rep.Errors()[1].Subject)
}

func TestCheckIdentifierFormats(t *testing.T) {
	msg := validMessage()
	msg.Resources[0].ISRC = "US-RC1-76-07839"
	msg.Releases[0].ICPN = "0602445790129"
	msg.Sender.IDs[0].Value = "PADPIDA12"
	rep, err := Check(msg, config.PreflightWarn, Rules{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []ddexerrors.Code{
		ddexerrors.CodeInvalidFormat,
		ddexerrors.CodeInvalidChecksum,
		ddexerrors.CodeInvalidFormat,
	}, codes(rep.Diagnostics))

	d, ok := rep.Diagnostics.Find(ddexerrors.CodeInvalidChecksum)
	require.True(t, ok)
	assert.Equal(t, "0602445790129", d.Subject)
	assert.NotEmpty(t, d.Hint)
}

func TestCheckDates(t *testing.T) {
	msg := validMessage()
	msg.Deals[0].Validity = model.Period{Start: "2025-01-01", End: "2024-01-01"}
	msg.Releases[0].ReleaseDate = "15/03/2024"
	rep, err := Check(msg, config.PreflightWarn, Rules{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []ddexerrors.Code{ddexerrors.CodeInvalidDateOrder, ddexerrors.CodeInvalidFormat}, codes(rep.Diagnostics))
}

func TestCheckProfileConstraints(t *testing.T) {
	rules := Rules{
		Profile:        "AudioSingle",
		RequiredFields: []string{FieldGenre, FieldISRC},
		MaxResources:   1,
		ReleaseTypes:   []string{"Single"},
		Territories:    []string{"US"},
	}
	msg := validMessage()
	msg.Resources = append(msg.Resources, model.Resource{Kind: "SoundRecording", Reference: "A2", Title: model.Title{Text: "Two"}})
	msg.Releases[0].ResourceRefs = append(msg.Releases[0].ResourceRefs, model.ResourceRef{Reference: "A2"})
	rep, err := Check(msg, config.PreflightWarn, rules)
	require.NoError(t, err)

	var profile, required int
	for _, d := range rep.Diagnostics {
		switch d.Code {
		case ddexerrors.CodeProfileConstraint:
			profile++
		case ddexerrors.CodeRequiredFieldMissing:
			required++
		}
	}
	// release type, resource count, Worldwide, GB
	assert.Equal(t, 4, profile)
	// genre, ISRC of A2
	assert.Equal(t, 2, required)
}

func TestCheckUnresolvedReference(t *testing.T) {
	msg := validMessage()
	msg.Releases[0].ResourceRefs = append(msg.Releases[0].ResourceRefs, model.ResourceRef{Reference: "A7"})

	rep, err := Check(msg, config.PreflightWarn, Rules{})
	require.NoError(t, err)
	d, ok := rep.Diagnostics.Find(ddexerrors.CodeUnresolvedReference)
	require.True(t, ok)
	assert.Equal(t, ddexerrors.SeverityWarning, d.Severity)
	assert.Equal(t, "A7", d.Subject)
	assert.True(t, rep.Passed)

	rep, err = Check(msg, config.PreflightStrict, Rules{})
	require.Error(t, err)
	assert.Equal(t, ddexerrors.CodeValidationFailed, ddexerrors.CodeOf(err))
	assert.False(t, rep.Passed)
	e, ok := ddexerrors.AsError(err)
	require.True(t, ok)
	d, ok = e.Diagnostics.Find(ddexerrors.CodeUnresolvedReference)
	require.True(t, ok)
	assert.Equal(t, "A7", d.Subject)
}

func TestGTINCheck(t *testing.T) {
	for code, want := range map[string]bool{
		"0602445790128": true,
		"5012345678900": true,
		"036000291452":  true,
		"036000291453":  false,
		"12345":         false,
		"06024457901A8": false,
	} {
		assert.Equal(t, want, GTINCheck(code), code)
	}
}

func TestIdentifierPatterns(t *testing.T) {
	assert.True(t, ValidISRC("GBAYE0601498"))
	assert.False(t, ValidISRC("gbaye0601498"))
	assert.True(t, ValidDPID("PADPIDA2014120301A"))
	assert.False(t, ValidDPID("PADPIDA201412030"))
	assert.True(t, ValidGRid("A10302B0001234567C"))
	assert.True(t, ValidTerritory("Worldwide"))
	assert.False(t, ValidTerritory("USA"))
}
