package preset

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sync"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Registry is an immutable set of presets keyed by name.
type Registry struct {
	byName map[string]Preset
	names  []string
}

// NewRegistry validates presets and indexes them. Names must be unique.
func NewRegistry(presets ...Preset) (*Registry, error) {
	r := &Registry{byName: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		r.byName[p.Name] = p
		r.names = append(r.names, p.Name)
	}
	slices.Sort(r.names)
	return r, nil
}

// Get returns the preset called name.
func (r *Registry) Get(name string) (Preset, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names returns the preset names in sorted order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// All returns the presets sorted by name.
func (r *Registry) All() []Preset {
	out := make([]Preset, len(r.names))
	for i, n := range r.names {
		out[i] = r.byName[n]
	}
	return out
}

// With returns a new registry holding r's presets plus extra. r is
// unchanged.
func (r *Registry) With(extra ...Preset) (*Registry, error) {
	return NewRegistry(append(r.All(), extra...)...)
}

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}
	var presets []Preset
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			return nil, err
		}
		p, err := Parse(data, "yaml")
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", e.Name(), err)
		}
		if p.Source == "" {
			p.Source = SourceBuiltin
		}
		presets = append(presets, p)
	}
	return NewRegistry(presets...)
})

// Default returns the built-in presets. The registry is loaded once and
// shared by the process.
func Default() *Registry {
	r, err := loadDefault()
	if err != nil {
		panic("preset: invalid builtin presets: " + err.Error())
	}
	return r
}

// Lookup returns a built-in preset.
func Lookup(name string) (Preset, bool) {
	return Default().Get(name)
}
