package model

import (
	"time"

	"github.com/daddykev/ddex-suite/internal/value"
)

// FlatMessage is the consumer-oriented projection of a Message.
type FlatMessage struct {
	ID        string                  `json:"id"`
	Type      string                  `json:"type"`
	Date      time.Time               `json:"date"`
	Sender    FlatParty               `json:"sender"`
	Recipient FlatParty               `json:"recipient"`
	Version   string                  `json:"version"`
	Profile   string                  `json:"profile,omitempty"`
	Releases  []FlatRelease           `json:"releases"`
	Resources map[string]FlatResource `json:"resources"`
	Deals     []FlatDeal              `json:"deals"`
	Parties   []FlatParty             `json:"parties"`
	Stats     FlatStats               `json:"stats"`
}

// FlatParty is a party reduced to its primary id and name.
type FlatParty struct {
	Reference string `json:"reference,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
}

// FlatRelease is a release with its tracks resolved.
type FlatRelease struct {
	Reference   string      `json:"reference"`
	ICPN        string      `json:"icpn,omitempty"`
	Title       string      `json:"title"`
	Artist      string      `json:"artist,omitempty"`
	Type        string      `json:"type,omitempty"`
	Genre       string      `json:"genre,omitempty"`
	ReleaseDate string      `json:"releaseDate,omitempty"`
	Territories []string    `json:"territories,omitempty"`
	Tracks      []FlatTrack `json:"tracks"`
}

// FlatTrack is a resolved release resource.
type FlatTrack struct {
	Position  int    `json:"position"`
	Reference string `json:"reference"`
	ISRC      string `json:"isrc,omitempty"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Seconds   int64  `json:"seconds,omitempty"`
}

// FlatResource is a resource keyed by reference.
type FlatResource struct {
	Kind     string `json:"kind"`
	ISRC     string `json:"isrc,omitempty"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
}

// FlatDeal is a deal reduced to its terms.
type FlatDeal struct {
	Reference        string   `json:"reference,omitempty"`
	Releases         []string `json:"releases"`
	CommercialModels []string `json:"commercialModels,omitempty"`
	UseTypes         []string `json:"useTypes,omitempty"`
	Territories      []string `json:"territories,omitempty"`
	Start            string   `json:"start,omitempty"`
	End              string   `json:"end,omitempty"`
}

// FlatStats summarizes the projection.
type FlatStats struct {
	Releases      int           `json:"releases"`
	Tracks        int           `json:"tracks"`
	Deals         int           `json:"deals"`
	TotalDuration time.Duration `json:"totalDuration"`
}

// Flatten derives the flat projection. Unresolved resource references are
// kept as tracks with only a reference.
func Flatten(m *Message) FlatMessage {
	flat := FlatMessage{
		ID:        m.ID,
		Type:      m.Type.String(),
		Date:      m.CreatedAt,
		Sender:    FlatParty{ID: m.Sender.ID(), Name: m.Sender.Name()},
		Recipient: FlatParty{ID: m.Recipient.ID(), Name: m.Recipient.Name()},
		Version:   m.Version.String(),
		Profile:   m.Profile,
		Resources: make(map[string]FlatResource, len(m.Resources)),
		Releases:  make([]FlatRelease, 0, len(m.Releases)),
		Deals:     make([]FlatDeal, 0, len(m.Deals)),
		Parties:   make([]FlatParty, 0, len(m.Parties)),
	}
	byRef := make(map[string]*Resource, len(m.Resources))
	for i := range m.Resources {
		r := &m.Resources[i]
		byRef[r.Reference] = r
		flat.Resources[r.Reference] = FlatResource{Kind: r.Kind, ISRC: r.ISRC, Title: r.Title.Text, Duration: r.Duration}
	}
	for _, p := range m.Parties {
		fp := FlatParty{Reference: p.Reference}
		if len(p.IDs) > 0 {
			fp.ID = p.IDs[0].Value
		}
		if len(p.Names) > 0 {
			fp.Name = p.Names[0].Text
		}
		flat.Parties = append(flat.Parties, fp)
	}
	for _, rel := range m.Releases {
		fr := FlatRelease{
			Reference:   rel.Reference,
			ICPN:        rel.ICPN,
			Title:       rel.Title.Text,
			Artist:      firstArtist(rel.DisplayArtists),
			Type:        rel.Type,
			ReleaseDate: rel.ReleaseDate,
			Territories: rel.Territories,
			Tracks:      make([]FlatTrack, 0, len(rel.ResourceRefs)),
		}
		if len(rel.Genres) > 0 {
			fr.Genre = rel.Genres[0].Text
		}
		for i, ref := range rel.ResourceRefs {
			track := FlatTrack{Position: i + 1, Reference: ref.Reference}
			if r, ok := byRef[ref.Reference]; ok {
				track.ISRC = r.ISRC
				track.Title = r.Title.Text
				track.Artist = firstArtist(r.DisplayArtists)
				track.Duration = r.Duration
				if d, err := value.ParseDuration(r.Duration); err == nil {
					track.Seconds = d.TotalSeconds()
					flat.Stats.TotalDuration += time.Duration(track.Seconds) * time.Second
				}
			}
			fr.Tracks = append(fr.Tracks, track)
		}
		flat.Stats.Tracks += len(fr.Tracks)
		flat.Releases = append(flat.Releases, fr)
	}
	for _, d := range m.Deals {
		flat.Deals = append(flat.Deals, FlatDeal{
			Reference:        d.Reference,
			Releases:         d.ReleaseReferences,
			CommercialModels: d.CommercialModels,
			UseTypes:         d.UseTypes,
			Territories:      d.Territories,
			Start:            d.Validity.Start,
			End:              d.Validity.End,
		})
	}
	flat.Stats.Releases = len(flat.Releases)
	flat.Stats.Deals = len(flat.Deals)
	return flat
}

func firstArtist(artists []Artist) string {
	for _, a := range artists {
		if a.Name != "" {
			return a.Name
		}
	}
	return ""
}
