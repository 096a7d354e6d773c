// Package model is the graph view of an ERN message and its flattened
// projection. The graph is authoritative; Flatten derives the projection.
package model

import (
	"fmt"
	"time"

	"github.com/daddykev/ddex-suite/internal/dialect"
)

// MessageType is the kind of notification.
type MessageType uint8

const (
	NewRelease MessageType = iota
	Update
	Takedown
)

var messageTypeNames = []string{"NewRelease", "Update", "Takedown"}

func (t MessageType) String() string {
	if int(t) < len(messageTypeNames) {
		return messageTypeNames[t]
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// MarshalText encodes the type name.
func (t MessageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *MessageType) UnmarshalText(b []byte) error {
	for i, name := range messageTypeNames {
		if string(b) == name {
			*t = MessageType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown message type %q", b)
}

// RootElement returns the document element name for the type.
func (t MessageType) RootElement() string {
	if t == Takedown {
		return "PurgeReleaseMessage"
	}
	return "NewReleaseMessage"
}

// UpdateIndicatorUpdate marks an update message in the UpdateIndicator leaf.
const UpdateIndicatorUpdate = "UpdateMessage"

// Identifier is a namespaced identifier value.
type Identifier struct {
	Namespace string `json:"namespace,omitempty"`
	Value     string `json:"value"`
}

// LocalizedString is text with an optional language and script code.
type LocalizedString struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// MessageParty identifies the sender or recipient in the header.
type MessageParty struct {
	IDs         []Identifier      `json:"ids,omitempty"`
	Names       []LocalizedString `json:"names,omitempty"`
	TradingName string            `json:"tradingName,omitempty"`
}

// ID returns the first identifier value.
func (p MessageParty) ID() string {
	if len(p.IDs) == 0 {
		return ""
	}
	return p.IDs[0].Value
}

// Name returns the first name.
func (p MessageParty) Name() string {
	if len(p.Names) == 0 {
		return ""
	}
	return p.Names[0].Text
}

// Message is the top-level container. Collections are serialized in slice
// order unless the canonicalizer re-sorts them by reference.
type Message struct {
	ID              string          `json:"id"`
	ThreadID        string          `json:"threadId,omitempty"`
	Type            MessageType     `json:"type"`
	ControlType     string          `json:"controlType,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	Sender          MessageParty    `json:"sender"`
	Recipient       MessageParty    `json:"recipient"`
	Version         dialect.Version `json:"version"`
	Profile         string          `json:"profile,omitempty"`
	Language        string          `json:"language,omitempty"`
	// SchemaVersionID is the MessageSchemaVersionId attribute. Empty on a
	// message without a sidecar means the dialect default.
	SchemaVersionID string `json:"schemaVersionId,omitempty"`
	SchemaLocation  string          `json:"schemaLocation,omitempty"`
	UpdateIndicator string          `json:"updateIndicator,omitempty"`

	Parties   []Party    `json:"parties,omitempty"`
	Resources []Resource `json:"resources,omitempty"`
	Releases  []Release  `json:"releases,omitempty"`
	Deals     []Deal     `json:"deals,omitempty"`

	Sidecar *Sidecar `json:"sidecar,omitempty"`
}

// Party is a party declared in the PartyList.
type Party struct {
	Reference string            `json:"reference"`
	IDs       []Identifier      `json:"ids,omitempty"`
	Names     []LocalizedString `json:"names,omitempty"`
}

// Title is a reference title.
type Title struct {
	Text     string `json:"text"`
	Subtitle string `json:"subtitle,omitempty"`
	Language string `json:"language,omitempty"`
}

// Artist is a display artist credit.
type Artist struct {
	PartyReference string `json:"partyReference,omitempty"`
	Name           string `json:"name,omitempty"`
	Role           string `json:"role,omitempty"`
}

// Detail is one entry of an ordered technical-details map.
type Detail struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Details is an ordered map of technical details.
type Details []Detail

// Get returns the value stored under name.
func (d Details) Get(name string) (string, bool) {
	for _, e := range d {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Set replaces the value under name or appends a new entry.
func (d Details) Set(name, value string) Details {
	for i := range d {
		if d[i].Name == name {
			d[i].Value = value
			return d
		}
	}
	return append(d, Detail{Name: name, Value: value})
}

// ContentHashDetail names the technical detail used as a content hash.
const ContentHashDetail = "HashSum"

// Resource is a sound recording, video or image.
type Resource struct {
	Kind             string       `json:"kind"`
	Reference        string       `json:"reference"`
	Type             string       `json:"type,omitempty"`
	ISRC             string       `json:"isrc,omitempty"`
	ProprietaryIDs   []Identifier `json:"proprietaryIds,omitempty"`
	Title            Title        `json:"title"`
	DisplayArtists   []Artist     `json:"displayArtists,omitempty"`
	Duration         string       `json:"duration,omitempty"`
	TechnicalDetails Details      `json:"technicalDetails,omitempty"`
}

// Genre is a genre with an optional sub-genre.
type Genre struct {
	Text string `json:"text"`
	Sub  string `json:"sub,omitempty"`
}

// ResourceRef links a release to one of its resources.
type ResourceRef struct {
	Reference string `json:"reference"`
	Type      string `json:"type,omitempty"`
}

// RelatedRelease links a release to another release in the message.
type RelatedRelease struct {
	Type      string `json:"type,omitempty"`
	Reference string `json:"reference"`
}

// TerritoryDetails is a ReleaseDetailsByTerritory block.
type TerritoryDetails struct {
	Territories         []string `json:"territories,omitempty"`
	ExcludedTerritories []string `json:"excludedTerritories,omitempty"`
	DisplayArtistName   string   `json:"displayArtistName,omitempty"`
	LabelName           string   `json:"labelName,omitempty"`
	Genres              []Genre  `json:"genres,omitempty"`
	OriginalReleaseDate string   `json:"originalReleaseDate,omitempty"`
}

// Release aggregates resources.
type Release struct {
	Reference           string             `json:"reference"`
	Type                string             `json:"type,omitempty"`
	ICPN                string             `json:"icpn,omitempty"`
	GRid                string             `json:"grid,omitempty"`
	ProprietaryIDs      []Identifier       `json:"proprietaryIds,omitempty"`
	Title               Title              `json:"title"`
	DisplayArtists      []Artist           `json:"displayArtists,omitempty"`
	Genres              []Genre            `json:"genres,omitempty"`
	ReleaseDate         string             `json:"releaseDate,omitempty"`
	Territories         []string           `json:"territories,omitempty"`
	ExcludedTerritories []string           `json:"excludedTerritories,omitempty"`
	ResourceRefs        []ResourceRef      `json:"resourceRefs,omitempty"`
	Related             []RelatedRelease   `json:"related,omitempty"`
	Details             []TerritoryDetails `json:"details,omitempty"`
}

// Period is a validity window of dates.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Deal is a set of commercial terms for one or more releases. Adjacent
// deals with identical release references and the same Block share a
// ReleaseDeal element.
type Deal struct {
	Reference         string   `json:"reference,omitempty"`
	ReleaseReferences []string `json:"releaseReferences"`
	// Block numbers the source ReleaseDeal element, starting at 1. Zero
	// lets adjacent deals group by release references alone.
	Block               int      `json:"block,omitempty"`
	CommercialModels    []string `json:"commercialModels,omitempty"`
	UseTypes            []string `json:"useTypes,omitempty"`
	Territories         []string `json:"territories,omitempty"`
	ExcludedTerritories []string `json:"excludedTerritories,omitempty"`
	Validity            Period   `json:"validity,omitempty"`
}
