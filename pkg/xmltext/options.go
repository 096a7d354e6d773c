package xmltext

import "cmp"

// Default limits applied when an option is unset or zero.
const (
	DefaultMaxDepth      = 256
	DefaultMaxAttrs      = 256
	DefaultMaxTokenSize  = 4 << 20
	DefaultMaxTotalBytes = 64 << 20
	DefaultMaxEntityRefs = 10000
)

type limitOption struct {
	value int64
	set   bool
}

// Options holds decoder configuration values.
// The zero value means no overrides.
type Options struct {
	maxDepth      limitOption
	maxAttrs      limitOption
	maxTokenSize  limitOption
	maxTotalBytes limitOption
	maxEntityRefs limitOption
}

// JoinOptions combines multiple option sets into one in declaration order.
// Later options override earlier ones when set.
func JoinOptions(srcs ...Options) Options {
	var merged Options
	for _, src := range srcs {
		merged.merge(src)
	}
	return merged
}

func (opts *Options) merge(src Options) {
	for _, pair := range []struct {
		dst *limitOption
		src limitOption
	}{
		{&opts.maxDepth, src.maxDepth},
		{&opts.maxAttrs, src.maxAttrs},
		{&opts.maxTokenSize, src.maxTokenSize},
		{&opts.maxTotalBytes, src.maxTotalBytes},
		{&opts.maxEntityRefs, src.maxEntityRefs},
	} {
		if pair.src.set {
			*pair.dst = pair.src
		}
	}
}

// MaxDepth caps element nesting.
func MaxDepth(n int) Options {
	return Options{maxDepth: limitOption{value: int64(n), set: true}}
}

// MaxAttrs caps attributes per element.
func MaxAttrs(n int) Options {
	return Options{maxAttrs: limitOption{value: int64(n), set: true}}
}

// MaxTokenSize caps the decoded size of one token.
func MaxTokenSize(n int) Options {
	return Options{maxTokenSize: limitOption{value: int64(n), set: true}}
}

// MaxTotalBytes caps the number of input bytes consumed.
func MaxTotalBytes(n int64) Options {
	return Options{maxTotalBytes: limitOption{value: n, set: true}}
}

// MaxEntityRefs caps the number of entity and character references expanded.
func MaxEntityRefs(n int) Options {
	return Options{maxEntityRefs: limitOption{value: int64(n), set: true}}
}

type limits struct {
	maxDepth      int64
	maxAttrs      int64
	maxTokenSize  int64
	maxTotalBytes int64
	maxEntityRefs int64
}

func (opts Options) resolve() limits {
	return limits{
		maxDepth:      cmp.Or(opts.maxDepth.value, DefaultMaxDepth),
		maxAttrs:      cmp.Or(opts.maxAttrs.value, DefaultMaxAttrs),
		maxTokenSize:  cmp.Or(opts.maxTokenSize.value, DefaultMaxTokenSize),
		maxTotalBytes: cmp.Or(opts.maxTotalBytes.value, DefaultMaxTotalBytes),
		maxEntityRefs: cmp.Or(opts.maxEntityRefs.value, DefaultMaxEntityRefs),
	}
}
