package dialect

import "slices"

// ValueKind is the lexical type of a leaf element.
type ValueKind uint8

const (
	ValueText ValueKind = iota
	ValueDateTime
	ValueDate
	ValueDuration
	ValueInteger
	ValueDecimal
	ValueBoolean
)

// ResourceKinds lists the resource element names in canonical type order.
var ResourceKinds = []string{"SoundRecording", "Video", "Image"}

// Schema is the read-only vocabulary of one dialect.
type Schema struct {
	version  Version
	order    map[string][]string
	sortKeys map[string]string
	attrs    map[string][]string
	known    map[string]bool
	open     map[string]bool
}

var (
	valueKinds = map[string]ValueKind{
		"MessageCreatedDateTime": ValueDateTime,
		"ReleaseDate":            ValueDate,
		"OriginalReleaseDate":    ValueDate,
		"StartDate":              ValueDate,
		"EndDate":                ValueDate,
		"Duration":               ValueDuration,
		"NumberOfChannels":       ValueInteger,
		"BitsPerSample":          ValueInteger,
		"SequenceNumber":         ValueInteger,
		"DiscNumber":             ValueInteger,
		"TrackNumber":            ValueInteger,
		"BitRate":                ValueDecimal,
		"SamplingRate":           ValueDecimal,
		"IsPreview":              ValueBoolean,
		"IsHidden":               ValueBoolean,
		"IsBonus":                ValueBoolean,
	}
	mixedContent = map[string]bool{
		"MarketingComment": true,
		"Synopsis":         true,
	}
	sortKeys = map[string]string{
		"PartyList":    "PartyReference",
		"ResourceList": "ResourceReference",
		"ReleaseList":  "ReleaseReference",
		"DealList":     "DealReleaseReference",
	}
	// TechnicalDetails holds an open, ordered set of leaf elements.
	openElements = map[string]bool{"TechnicalDetails": true}
)

func baseOrder() map[string][]string {
	party := []string{"PartyId", "PartyName", "TradingName"}
	title := []string{"TitleText", "SubTitle"}
	return map[string][]string{
		"NewReleaseMessage":            {"MessageHeader", "UpdateIndicator", "PartyList", "ResourceList", "ReleaseList", "DealList"},
		"PurgeReleaseMessage":          {"MessageHeader", "UpdateIndicator", "PartyList", "ResourceList", "ReleaseList", "DealList"},
		"MessageHeader":                {"MessageThreadId", "MessageId", "MessageSender", "MessageRecipient", "MessageCreatedDateTime", "MessageControlType"},
		"MessageSender":                party,
		"MessageRecipient":             party,
		"PartyName":                    {"FullName"},
		"PartyList":                    {"Party"},
		"Party":                        {"PartyReference", "PartyId", "PartyName"},
		"ResourceList":                 ResourceKinds,
		"ReferenceTitle":               title,
		"DisplayArtist":                {"ArtistPartyReference", "PartyName", "DisplayArtistRole"},
		"ReleaseList":                  {"Release"},
		"Release":                      {"ReleaseReference", "ReleaseType", "ReleaseId", "ReferenceTitle", "DisplayArtist", "Genre", "ReleaseDate", "TerritoryCode", "ExcludedTerritoryCode", "ReleaseResourceReferenceList", "RelatedRelease", "ReleaseDetailsByTerritory"},
		"ReleaseId":                    {"GRid", "ICPN", "ProprietaryId"},
		"Genre":                        {"GenreText", "SubGenre"},
		"ReleaseResourceReferenceList": {"ReleaseResourceReference"},
		"RelatedRelease":               {"ReleaseRelationshipType", "ReleaseReference"},
		"ReleaseDetailsByTerritory":    {"TerritoryCode", "ExcludedTerritoryCode", "DisplayArtistName", "LabelName", "Genre", "OriginalReleaseDate", "MarketingComment"},
		"DealList":                     {"ReleaseDeal"},
		"ReleaseDeal":                  {"DealReleaseReference", "Deal"},
		"Deal":                         {"DealReference", "DealTerms"},
		"DealTerms":                    {"CommercialModelType", "UseType", "TerritoryCode", "ExcludedTerritoryCode", "ValidityPeriod"},
		"ValidityPeriod":               {"StartDate", "EndDate"},
		"ResourceId":                   {"ISRC", "ProprietaryId"},
		"SoundRecording":               {"ResourceReference", "SoundRecordingType", "ResourceId", "ReferenceTitle", "DisplayArtist", "Duration", "TechnicalDetails"},
		"Video":                        {"ResourceReference", "VideoType", "ResourceId", "ReferenceTitle", "DisplayArtist", "Duration", "TechnicalDetails"},
		"Image":                        {"ResourceReference", "ImageType", "ResourceId", "ReferenceTitle", "DisplayArtist", "TechnicalDetails"},
	}
}

func baseAttrs() map[string][]string {
	return map[string][]string{
		"NewReleaseMessage":        {"MessageSchemaVersionId", "LanguageAndScriptCode", "ReleaseProfileVersionId"},
		"PurgeReleaseMessage":      {"MessageSchemaVersionId", "LanguageAndScriptCode", "ReleaseProfileVersionId"},
		"PartyId":                  {"Namespace"},
		"ProprietaryId":            {"Namespace"},
		"PartyName":                {"LanguageAndScriptCode"},
		"ReferenceTitle":           {"LanguageAndScriptCode"},
		"ReleaseResourceReference": {"ReleaseResourceType"},
	}
}

// 3.8.2 identifies resources with kind-specific id blocks, keeps
// ReleaseId first in Release, and nests UseType inside Usage.
func apply382(order map[string][]string) {
	order["SoundRecording"] = []string{"SoundRecordingType", "SoundRecordingId", "ResourceReference", "ReferenceTitle", "DisplayArtist", "Duration", "TechnicalDetails"}
	order["Video"] = []string{"VideoType", "VideoId", "ResourceReference", "ReferenceTitle", "DisplayArtist", "Duration", "TechnicalDetails"}
	order["Image"] = []string{"ImageType", "ImageId", "ResourceReference", "ReferenceTitle", "DisplayArtist", "TechnicalDetails"}
	order["SoundRecordingId"] = []string{"ISRC", "ProprietaryId"}
	order["VideoId"] = []string{"ISRC", "ProprietaryId"}
	order["ImageId"] = []string{"ProprietaryId"}
	delete(order, "ResourceId")
	order["Release"] = []string{"ReleaseId", "ReleaseReference", "ReferenceTitle", "ReleaseResourceReferenceList", "ReleaseType", "DisplayArtist", "Genre", "ReleaseDate", "TerritoryCode", "ExcludedTerritoryCode", "RelatedRelease", "ReleaseDetailsByTerritory"}
	order["DealTerms"] = []string{"CommercialModelType", "Usage", "TerritoryCode", "ExcludedTerritoryCode", "ValidityPeriod"}
	order["Usage"] = []string{"UseType"}
}

// 4.2 lists DisplayArtist after ReleaseDate.
func apply42(order map[string][]string) {
	order["Release"] = []string{"ReleaseReference", "ReleaseType", "ReleaseId", "ReferenceTitle", "Genre", "ReleaseDate", "DisplayArtist", "TerritoryCode", "ExcludedTerritoryCode", "ReleaseResourceReferenceList", "RelatedRelease", "ReleaseDetailsByTerritory"}
}

var schemas = func() map[Version]*Schema {
	out := make(map[Version]*Schema, len(versionNames))
	for _, v := range Versions() {
		order := baseOrder()
		switch v {
		case V382:
			apply382(order)
		case V42:
			apply42(order)
		}
		s := &Schema{
			version:  v,
			order:    order,
			sortKeys: sortKeys,
			attrs:    baseAttrs(),
			known:    make(map[string]bool),
			open:     openElements,
		}
		for parent, children := range order {
			s.known[parent] = true
			for _, c := range children {
				s.known[c] = true
			}
		}
		out[v] = s
	}
	return out
}()

// For returns the schema of v, falling back to Latest.
func For(v Version) *Schema {
	if s, ok := schemas[v]; ok {
		return s
	}
	return schemas[Latest]
}

// Version returns the dialect version.
func (s *Schema) Version() Version {
	return s.version
}

// ChildOrder returns the canonical child order for a parent element.
func (s *Schema) ChildOrder(parent string) ([]string, bool) {
	order, ok := s.order[parent]
	return order, ok
}

// SortKey returns the child element whose text orders repeated children of parent.
func (s *Schema) SortKey(parent string) (string, bool) {
	key, ok := s.sortKeys[parent]
	return key, ok
}

// ValueKind returns the lexical type of a leaf element.
func (s *Schema) ValueKind(local string) ValueKind {
	return valueKinds[local]
}

// Mixed reports whether an element keeps significant whitespace.
func (s *Schema) Mixed(local string) bool {
	return mixedContent[local]
}

// Known reports whether an element name belongs to the dialect vocabulary.
func (s *Schema) Known(local string) bool {
	return s.known[local] || valueKinds[local] != ValueText
}

// Open reports whether parent accepts arbitrary leaf children.
func (s *Schema) Open(parent string) bool {
	return s.open[parent]
}

// KnownAttr reports whether an unqualified attribute is modelled on element.
func (s *Schema) KnownAttr(element, attr string) bool {
	return slices.Contains(s.attrs[element], attr)
}

// ResourceIDElement returns the identifier block name for a resource kind.
func (s *Schema) ResourceIDElement(kind string) string {
	if s.version == V382 {
		return kind + "Id"
	}
	return "ResourceId"
}

// UsageWrapped reports whether UseType is nested in a Usage element.
func (s *Schema) UsageWrapped() bool {
	return s.version == V382
}

// TypeElement returns the type element name for a resource kind.
func TypeElement(kind string) string {
	return kind + "Type"
}
