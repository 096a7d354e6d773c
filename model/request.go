package model

// BuildRequest is the programmatic input for assembling a message. Empty
// references are assigned by the configured identifier strategy.
type BuildRequest struct {
	Header   HeaderRequest    `json:"header" yaml:"header"`
	Version  string           `json:"version,omitempty" yaml:"version,omitempty"`
	Profile  string           `json:"profile,omitempty" yaml:"profile,omitempty"`
	Language string           `json:"language,omitempty" yaml:"language,omitempty"`
	Releases []ReleaseRequest `json:"releases" yaml:"releases"`
	Deals    []DealRequest    `json:"deals,omitempty" yaml:"deals,omitempty"`
}

// HeaderRequest describes the message header.
type HeaderRequest struct {
	MessageID   string       `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	ThreadID    string       `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	Sender      PartyRequest `json:"message_sender" yaml:"message_sender"`
	Recipient   PartyRequest `json:"message_recipient" yaml:"message_recipient"`
	ControlType string       `json:"message_control_type,omitempty" yaml:"message_control_type,omitempty"`
	Type        string       `json:"message_type,omitempty" yaml:"message_type,omitempty"`
}

// PartyRequest names a header party.
type PartyRequest struct {
	Names     []LocalizedStringRequest `json:"party_name" yaml:"party_name"`
	ID        string                   `json:"party_id,omitempty" yaml:"party_id,omitempty"`
	Namespace string                   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// LocalizedStringRequest is text with an optional language code.
type LocalizedStringRequest struct {
	Text     string `json:"text" yaml:"text"`
	Language string `json:"language_code,omitempty" yaml:"language_code,omitempty"`
}

// ReleaseRequest describes a release and its tracks.
type ReleaseRequest struct {
	ReleaseID   string                   `json:"release_id,omitempty" yaml:"release_id,omitempty"`
	Reference   string                   `json:"release_reference,omitempty" yaml:"release_reference,omitempty"`
	Title       []LocalizedStringRequest `json:"title" yaml:"title"`
	Artist      string                   `json:"artist" yaml:"artist"`
	ReleaseType string                   `json:"release_type,omitempty" yaml:"release_type,omitempty"`
	Genre       string                   `json:"genre,omitempty" yaml:"genre,omitempty"`
	Territories []string                 `json:"territories,omitempty" yaml:"territories,omitempty"`
	ReleaseDate string                   `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	Tracks      []TrackRequest           `json:"tracks" yaml:"tracks"`
}

// TrackRequest describes one sound recording.
type TrackRequest struct {
	Reference string `json:"resource_reference,omitempty" yaml:"resource_reference,omitempty"`
	ISRC      string `json:"isrc" yaml:"isrc"`
	Title     string `json:"title" yaml:"title"`
	Duration  string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Artist    string `json:"artist,omitempty" yaml:"artist,omitempty"`
	HashSum   string `json:"hash_sum,omitempty" yaml:"hash_sum,omitempty"`
}

// DealRequest describes commercial terms for releases.
type DealRequest struct {
	Reference         string    `json:"deal_reference,omitempty" yaml:"deal_reference,omitempty"`
	ReleaseReferences []string  `json:"release_references" yaml:"release_references"`
	Terms             DealTerms `json:"deal_terms" yaml:"deal_terms"`
}

// DealTerms are the terms of a DealRequest.
type DealTerms struct {
	CommercialModel string   `json:"commercial_model_type" yaml:"commercial_model_type"`
	UseTypes        []string `json:"use_types,omitempty" yaml:"use_types,omitempty"`
	Territories     []string `json:"territory_code" yaml:"territory_code"`
	Start           string   `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	End             string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}
