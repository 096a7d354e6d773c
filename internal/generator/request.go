package generator

import (
	"fmt"
	"time"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/stableid"
	"github.com/daddykev/ddex-suite/model"
)

const (
	soundRecordingType = "MusicalWorkSoundRecording"
	mainArtist         = "MainArtist"
)

// FromRequest assembles a message from a build request. Missing references
// come from ids; resources are referenced first so release fingerprints
// can include their recording codes. A deal without release references
// applies to every release. Every track needs an ISRC; tracks without one
// fail with REQUIRED_FIELD_MISSING before anything is assembled.
func FromRequest(req model.BuildRequest, ids *stableid.Generator, now time.Time) (*model.Message, error) {
	if missing := missingISRCs(req); len(missing) > 0 {
		e := ddexerrors.ValidationFailed(missing)
		e.Phase = ddexerrors.PhaseGenerate
		e.Hint = "every track of a build request needs an ISRC"
		return nil, e
	}
	msg := &model.Message{
		ID:          req.Header.MessageID,
		ThreadID:    req.Header.ThreadID,
		ControlType: req.Header.ControlType,
		CreatedAt:   now.UTC(),
		Sender:      messageParty(req.Header.Sender),
		Recipient:   messageParty(req.Header.Recipient),
		Version:     dialect.Latest,
		Profile:     req.Profile,
		Language:    req.Language,
	}
	if req.Version != "" {
		v, err := dialect.ParseVersion(req.Version)
		if err != nil {
			return nil, err
		}
		msg.Version = v
	}
	if req.Header.Type != "" {
		if err := msg.Type.UnmarshalText([]byte(req.Header.Type)); err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
	}

	ids.Reserve(req.Header.MessageID)
	for _, r := range req.Releases {
		ids.Reserve(r.Reference)
		for _, t := range r.Tracks {
			ids.Reserve(t.Reference)
		}
	}
	for _, d := range req.Deals {
		ids.Reserve(d.Reference)
	}

	for _, rr := range req.Releases {
		rel := model.Release{
			Reference:   rr.Reference,
			Type:        rr.ReleaseType,
			ICPN:        rr.ReleaseID,
			ReleaseDate: rr.ReleaseDate,
			Territories: append([]string(nil), rr.Territories...),
		}
		if len(rr.Title) > 0 {
			rel.Title = model.Title{Text: rr.Title[0].Text, Language: rr.Title[0].Language}
		}
		if rr.Artist != "" {
			rel.DisplayArtists = []model.Artist{{Name: rr.Artist, Role: mainArtist}}
		}
		if rr.Genre != "" {
			rel.Genres = []model.Genre{{Text: rr.Genre}}
		}
		for _, t := range rr.Tracks {
			res := track(t, rr.Artist)
			if res.Reference == "" {
				res.Reference = ids.Next(stableid.Resource, stableid.ResourceFields(&res)...)
			}
			msg.Resources = append(msg.Resources, res)
			rel.ResourceRefs = append(rel.ResourceRefs, model.ResourceRef{Reference: res.Reference})
		}
		msg.Releases = append(msg.Releases, rel)
	}
	ids.Assign(msg)

	for _, dr := range req.Deals {
		refs := dr.ReleaseReferences
		if len(refs) == 0 {
			for _, rel := range msg.Releases {
				refs = append(refs, rel.Reference)
			}
		}
		d := model.Deal{
			Reference:         dr.Reference,
			ReleaseReferences: append([]string(nil), refs...),
			UseTypes:          append([]string(nil), dr.Terms.UseTypes...),
			Territories:       append([]string(nil), dr.Terms.Territories...),
			Validity:          model.Period{Start: dr.Terms.Start, End: dr.Terms.End},
		}
		if dr.Terms.CommercialModel != "" {
			d.CommercialModels = []string{dr.Terms.CommercialModel}
		}
		msg.Deals = append(msg.Deals, d)
	}
	ids.Assign(msg)
	return msg, nil
}

func missingISRCs(req model.BuildRequest) ddexerrors.List {
	var out ddexerrors.List
	for i, rr := range req.Releases {
		for j, t := range rr.Tracks {
			if t.ISRC != "" {
				continue
			}
			path := fmt.Sprintf("Releases[%d].Tracks[%d].ISRC", i, j)
			out = append(out, ddexerrors.Newf(ddexerrors.CodeRequiredFieldMissing, "track %q has no ISRC", t.Title).
				WithSubject("ISRC").
				At(ddexerrors.Location{Path: path}))
		}
	}
	return out
}

func messageParty(p model.PartyRequest) model.MessageParty {
	var mp model.MessageParty
	if p.ID != "" {
		mp.IDs = []model.Identifier{{Namespace: p.Namespace, Value: p.ID}}
	}
	for _, n := range p.Names {
		mp.Names = append(mp.Names, model.LocalizedString{Text: n.Text, Language: n.Language})
	}
	return mp
}

func track(t model.TrackRequest, releaseArtist string) model.Resource {
	r := model.Resource{
		Kind:      dialect.ResourceKinds[0],
		Reference: t.Reference,
		Type:      soundRecordingType,
		ISRC:      t.ISRC,
		Title:     model.Title{Text: t.Title},
		Duration:  t.Duration,
	}
	artist := t.Artist
	if artist == "" {
		artist = releaseArtist
	}
	if artist != "" {
		r.DisplayArtists = []model.Artist{{Name: artist, Role: mainArtist}}
	}
	if t.HashSum != "" {
		r.TechnicalDetails = r.TechnicalDetails.Set(model.ContentHashDetail, t.HashSum)
	}
	return r
}
