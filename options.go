package ddex

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/preflight"
	"github.com/daddykev/ddex-suite/preset"
)

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved() int {
	if !o.set {
		return 0
	}
	return o.value
}

// Options configures every operation. The zero value is not valid; start
// from NewOptions. With methods return a modified copy.
type Options struct {
	cfg             config.Config
	maxDepth        intOption
	maxAttrs        intOption
	maxTokenSize    intOption
	maxTotalBytes   intOption
	maxEntityRefs   intOption
	timeout         time.Duration
	logger          *zap.Logger
	recorder        recorder
	clock           func() time.Time
	rules           preflight.Rules
	preset          *preset.Preset
	locale          language.Tag
	keepUnsupported bool
}

// NewOptions returns the DB-C14N/1.0 defaults.
func NewOptions() Options {
	return Options{cfg: config.Default()}
}

// Config returns the canonicalization and build settings.
func (o Options) Config() config.Config {
	return o.cfg
}

// Validate checks every setting.
func (o Options) Validate() error {
	var errs []error
	if err := o.cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := o.limits(); err != nil {
		errs = append(errs, err)
	}
	if o.timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %s", o.timeout))
	}
	return errors.Join(errs...)
}

// WithConfig replaces the canonicalization and build settings.
func (o Options) WithConfig(c config.Config) Options {
	o.cfg = c
	return o
}

// WithMaxDepth sets the element nesting limit (0 uses default).
func (o Options) WithMaxDepth(n int) Options {
	o.maxDepth = intOption{value: n, set: true}
	return o
}

// WithMaxAttrs sets the per-element attribute limit (0 uses default).
func (o Options) WithMaxAttrs(n int) Options {
	o.maxAttrs = intOption{value: n, set: true}
	return o
}

// WithMaxTokenSize sets the single token size limit (0 uses default).
func (o Options) WithMaxTokenSize(n int) Options {
	o.maxTokenSize = intOption{value: n, set: true}
	return o
}

// WithMaxTotalBytes sets the input size limit (0 uses default).
func (o Options) WithMaxTotalBytes(n int) Options {
	o.maxTotalBytes = intOption{value: n, set: true}
	return o
}

// WithMaxEntityRefs sets the entity reference expansion limit (0 uses default).
func (o Options) WithMaxEntityRefs(n int) Options {
	o.maxEntityRefs = intOption{value: n, set: true}
	return o
}

// WithTimeout bounds each parse and build (0 means no timeout).
func (o Options) WithTimeout(d time.Duration) Options {
	o.timeout = d
	return o
}

// WithLogger sets the structured logger.
func (o Options) WithLogger(l *zap.Logger) Options {
	o.logger = l
	return o
}

// WithMetrics registers operation metrics on r. A nil r disables them.
func (o Options) WithMetrics(r prometheus.Registerer) Options {
	o.recorder = nil
	if r != nil {
		o.recorder = newPromRecorder(r)
	}
	return o
}

// WithClock replaces time.Now for generated timestamps and time-ordered
// identifiers.
func (o Options) WithClock(clock func() time.Time) Options {
	o.clock = clock
	return o
}

// WithLocale sets the locale of human-readable output such as
// BuildResult.Summary. Serialized bytes never depend on it.
func (o Options) WithLocale(tag language.Tag) Options {
	o.locale = tag
	return o
}

// WithKeepUnsupported makes Convert keep elements the target version
// lacks as unknown elements instead of dropping them.
func (o Options) WithKeepUnsupported(keep bool) Options {
	o.keepUnsupported = keep
	return o
}

// WithRules sets the profile rules checked by preflight.
func (o Options) WithRules(r preflight.Rules) Options {
	o.rules = r
	return o
}

// WithPreset applies the preset's overrides and rules.
func (o Options) WithPreset(p preset.Preset) Options {
	o.cfg = p.Apply(o.cfg)
	o.rules = p.Rules()
	o.preset = &p
	return o
}

func (o Options) log() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

func (o Options) now() time.Time {
	if o.clock == nil {
		return time.Now()
	}
	return o.clock()
}
