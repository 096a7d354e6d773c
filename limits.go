package ddex

import (
	"cmp"
	"fmt"

	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

type parseLimits struct {
	maxDepth      int
	maxAttrs      int
	maxTokenSize  int
	maxTotalBytes int
	maxEntityRefs int
}

func (o Options) limits() (parseLimits, error) {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"max depth", o.maxDepth.resolved()},
		{"max attrs", o.maxAttrs.resolved()},
		{"max token size", o.maxTokenSize.resolved()},
		{"max total bytes", o.maxTotalBytes.resolved()},
		{"max entity refs", o.maxEntityRefs.resolved()},
	} {
		if v.value < 0 {
			return parseLimits{}, fmt.Errorf("xml %s must be >= 0", v.name)
		}
	}
	return parseLimits{
		maxDepth:      cmp.Or(o.maxDepth.resolved(), xmltext.DefaultMaxDepth),
		maxAttrs:      cmp.Or(o.maxAttrs.resolved(), xmltext.DefaultMaxAttrs),
		maxTokenSize:  cmp.Or(o.maxTokenSize.resolved(), xmltext.DefaultMaxTokenSize),
		maxTotalBytes: cmp.Or(o.maxTotalBytes.resolved(), xmltext.DefaultMaxTotalBytes),
		maxEntityRefs: cmp.Or(o.maxEntityRefs.resolved(), xmltext.DefaultMaxEntityRefs),
	}, nil
}

func (l parseLimits) options() xmltext.Options {
	return xmltext.JoinOptions(
		xmltext.MaxDepth(l.maxDepth),
		xmltext.MaxAttrs(l.maxAttrs),
		xmltext.MaxTokenSize(l.maxTokenSize),
		xmltext.MaxTotalBytes(int64(l.maxTotalBytes)),
		xmltext.MaxEntityRefs(l.maxEntityRefs),
	)
}
