package ddex

import (
	"context"
	"sync"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/model"
	"github.com/daddykev/ddex-suite/preset"
)

// Builder carries options across builds. Applying a locked preset freezes
// the options until the builder is discarded. A Builder is safe for
// concurrent use.
type Builder struct {
	mu     sync.RWMutex
	opts   Options
	preset *preset.Preset
	locked bool
}

// NewBuilder returns a builder using opts.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// ApplyPreset merges p into the current options. With lock, later calls to
// SetOptions and ApplyPreset fail with CONFIG_LOCKED; a preset marked
// Locked always locks.
func (b *Builder) ApplyPreset(p preset.Preset, lock bool) error {
	if err := p.Validate(); err != nil {
		return invalidConfig(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked {
		return ddexerrors.ConfigLocked(b.preset.Name)
	}
	b.opts = b.opts.WithPreset(p)
	b.preset = &p
	b.locked = lock || p.Locked
	return nil
}

// SetOptions replaces the options. The applied preset, if any, is applied
// again on top of opts.
func (b *Builder) SetOptions(opts Options) error {
	if err := opts.Validate(); err != nil {
		return invalidConfig(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked {
		return ddexerrors.ConfigLocked(b.preset.Name)
	}
	if b.preset != nil {
		opts = opts.WithPreset(*b.preset)
	}
	b.opts = opts
	return nil
}

// Options returns the current options.
func (b *Builder) Options() Options {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.opts
}

// Locked reports whether a locked preset was applied.
func (b *Builder) Locked() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.locked
}

// Preset returns the applied preset.
func (b *Builder) Preset() (preset.Preset, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.preset == nil {
		return preset.Preset{}, false
	}
	return *b.preset, true
}

// Build serializes msg with the current options.
func (b *Builder) Build(ctx context.Context, msg *model.Message) (*BuildResult, error) {
	return Build(ctx, msg, b.Options())
}

// BuildRequest assembles and serializes req with the current options.
func (b *Builder) BuildRequest(ctx context.Context, req model.BuildRequest) (*BuildResult, error) {
	return BuildRequest(ctx, req, b.Options())
}
