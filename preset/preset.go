// Package preset provides named bundles of build settings and preflight
// rules for common release shapes.
package preset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/preflight"
	"github.com/daddykev/ddex-suite/model"
)

// Source records where a preset's rules come from.
type Source string

const (
	SourceBuiltin   Source = "builtin"
	SourcePublicDoc Source = "public-docs"
	SourceCommunity Source = "community"
	SourceFile      Source = "file"
)

// Overrides replaces individual config settings. Nil fields keep the
// caller's value.
type Overrides struct {
	Preflight        *config.PreflightLevel `yaml:"preflight,omitempty" toml:"preflight,omitempty"`
	IDs              *config.IDStrategy     `yaml:"id_strategy,omitempty" toml:"id_strategy,omitempty"`
	Hash             *config.HashAlgorithm  `yaml:"hash,omitempty" toml:"hash,omitempty"`
	Sort             *config.SortStrategy   `yaml:"sort,omitempty" toml:"sort,omitempty"`
	EmitBanner       *bool                  `yaml:"emit_banner,omitempty" toml:"emit_banner,omitempty"`
	VerifyIterations *int                   `yaml:"verify_iterations,omitempty" toml:"verify_iterations,omitempty"`
	StrictVersion    *bool                  `yaml:"strict_version,omitempty" toml:"strict_version,omitempty"`
	Preserve         *config.Preservation   `yaml:"preserve,omitempty" toml:"preserve,omitempty"`
}

// Apply returns c with the set overrides.
func (o Overrides) Apply(c config.Config) config.Config {
	if o.Preflight != nil {
		c = c.WithPreflight(*o.Preflight)
	}
	if o.IDs != nil {
		c = c.WithIDs(*o.IDs)
	}
	if o.Hash != nil {
		c = c.WithHash(*o.Hash)
	}
	if o.Sort != nil {
		c = c.WithSort(*o.Sort)
	}
	if o.EmitBanner != nil {
		c = c.WithBanner(*o.EmitBanner)
	}
	if o.VerifyIterations != nil {
		c = c.WithVerifyIterations(*o.VerifyIterations)
	}
	if o.StrictVersion != nil {
		c = c.WithStrictVersion(*o.StrictVersion)
	}
	if o.Preserve != nil {
		c = c.WithPreserve(*o.Preserve)
	}
	return c
}

// Defaults fill blanks in a build request.
type Defaults struct {
	MessageControlType   string   `yaml:"message_control_type,omitempty" toml:"message_control_type,omitempty"`
	Territories          []string `yaml:"territories,omitempty" toml:"territories,omitempty"`
	DistributionChannels []string `yaml:"distribution_channels,omitempty" toml:"distribution_channels,omitempty"`
	CommercialModel      string   `yaml:"commercial_model,omitempty" toml:"commercial_model,omitempty"`
	UseTypes             []string `yaml:"use_types,omitempty" toml:"use_types,omitempty"`
}

// Constraints are the profile checks run by preflight.
type Constraints struct {
	ReleaseTypes []string `yaml:"release_types,omitempty" toml:"release_types,omitempty"`
	MinResources int      `yaml:"min_resources,omitempty" toml:"min_resources,omitempty"`
	MaxResources int      `yaml:"max_resources,omitempty" toml:"max_resources,omitempty"`
	ResourceKind string   `yaml:"resource_kind,omitempty" toml:"resource_kind,omitempty"`
	Territories  []string `yaml:"territories,omitempty" toml:"territories,omitempty"`
}

// Preset is a named bundle of settings.
type Preset struct {
	Name          string `yaml:"name" toml:"name"`
	Description   string `yaml:"description,omitempty" toml:"description,omitempty"`
	Source        Source `yaml:"source,omitempty" toml:"source,omitempty"`
	ProvenanceURL string `yaml:"provenance_url,omitempty" toml:"provenance_url,omitempty"`
	Disclaimer    string `yaml:"disclaimer,omitempty" toml:"disclaimer,omitempty"`
	// Version is the preset revision, not the ERN version.
	Version string `yaml:"version,omitempty" toml:"version,omitempty"`
	// ERN is the dialect version messages are built in.
	ERN string `yaml:"ern,omitempty" toml:"ern,omitempty"`
	// Profile is written as ReleaseProfileVersionId.
	Profile        string      `yaml:"profile,omitempty" toml:"profile,omitempty"`
	Locked         bool        `yaml:"locked,omitempty" toml:"locked,omitempty"`
	Config         Overrides   `yaml:"config,omitempty" toml:"config,omitempty"`
	Defaults       Defaults    `yaml:"defaults,omitempty" toml:"defaults,omitempty"`
	RequiredFields []string    `yaml:"required_fields,omitempty" toml:"required_fields,omitempty"`
	Constraints    Constraints `yaml:"constraints,omitempty" toml:"constraints,omitempty"`
}

var knownFields = []string{
	preflight.FieldICPN,
	preflight.FieldISRC,
	preflight.FieldReleaseDate,
	preflight.FieldGenre,
	preflight.FieldDuration,
	preflight.FieldTerritory,
	preflight.FieldLabelName,
	preflight.FieldDeal,
	preflight.FieldRecipient,
}

// Validate checks that the preset names a dialect and fields the
// validator knows.
func (p Preset) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("preset name is required"))
	}
	if p.ERN != "" {
		if _, err := dialect.ParseVersion(p.ERN); err != nil {
			errs = append(errs, fmt.Errorf("preset %s: %w", p.Name, err))
		}
	}
	for _, f := range p.RequiredFields {
		if !slices.Contains(knownFields, f) {
			errs = append(errs, fmt.Errorf("preset %s: unknown required field %q", p.Name, f))
		}
	}
	c := p.Constraints
	if c.MinResources < 0 || c.MaxResources < 0 || (c.MaxResources > 0 && c.MinResources > c.MaxResources) {
		errs = append(errs, fmt.Errorf("preset %s: invalid resource bounds [%d,%d]", p.Name, c.MinResources, c.MaxResources))
	}
	if err := p.Apply(config.Default()).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("preset %s: %w", p.Name, err))
	}
	return errors.Join(errs...)
}

// Apply returns c with the preset's overrides.
func (p Preset) Apply(c config.Config) config.Config {
	return p.Config.Apply(c)
}

// Rules returns the preflight rules of the preset.
func (p Preset) Rules() preflight.Rules {
	return preflight.Rules{
		Profile:        p.Name,
		RequiredFields: slices.Clone(p.RequiredFields),
		MinResources:   p.Constraints.MinResources,
		MaxResources:   p.Constraints.MaxResources,
		ResourceKind:   p.Constraints.ResourceKind,
		ReleaseTypes:   slices.Clone(p.Constraints.ReleaseTypes),
		Territories:    slices.Clone(p.Constraints.Territories),
	}
}

// Fill returns a copy of req with blanks taken from the preset.
func (p Preset) Fill(req model.BuildRequest) model.BuildRequest {
	d := p.Defaults
	if req.Version == "" {
		req.Version = p.ERN
	}
	if req.Profile == "" {
		req.Profile = p.Profile
	}
	if req.Header.ControlType == "" {
		req.Header.ControlType = d.MessageControlType
	}
	req.Releases = slices.Clone(req.Releases)
	for i := range req.Releases {
		if len(req.Releases[i].Territories) == 0 {
			req.Releases[i].Territories = slices.Clone(d.Territories)
		}
	}
	req.Deals = slices.Clone(req.Deals)
	for i := range req.Deals {
		t := &req.Deals[i].Terms
		if len(t.Territories) == 0 {
			t.Territories = slices.Clone(d.Territories)
		}
		if t.CommercialModel == "" {
			t.CommercialModel = d.CommercialModel
		}
		if len(t.UseTypes) == 0 {
			t.UseTypes = slices.Clone(d.UseTypes)
		}
	}
	return req
}

// Parse decodes a preset. format is "yaml" or "toml". Unknown keys are
// rejected.
func Parse(data []byte, format string) (Preset, error) {
	var p Preset
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Preset{}, fmt.Errorf("decode preset: %w", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Preset{}, fmt.Errorf("decode preset: %w", err)
		}
	default:
		return Preset{}, fmt.Errorf("unsupported preset format %q", format)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// LoadFile reads a .yaml, .yml or .toml preset.
func LoadFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}
	p, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return Preset{}, fmt.Errorf("%s: %w", path, err)
	}
	if p.Source == "" {
		p.Source = SourceFile
	}
	return p, nil
}
