// Package canon implements DB-C14N/1.0: it normalizes an ast.Document in
// place and serializes it. Documents built from a Message and documents
// parsed from bytes go through the same rules, which is what makes
// parse-then-build reproduce canonical input byte for byte.
package canon

import (
	"bytes"
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/daddykev/ddex-suite/config"
	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/digest"
	"github.com/daddykev/ddex-suite/internal/value"
)

// BannerPrefix starts every reproducibility banner comment.
const BannerPrefix = config.Version

// Declaration is the only XML declaration emitted.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// Options configures a canonicalization run.
type Options struct {
	Config config.Config
	Schema *dialect.Schema
}

// Result is a serialized document.
type Result struct {
	// Bytes is the full output, banner included when enabled.
	Bytes []byte
	// Digest covers the output without the banner, so it does not depend
	// on whether the banner is emitted.
	Digest digest.Digest
	// Banner is the banner text, empty when disabled.
	Banner string
}

// Canonicalize normalizes doc in place and serializes it. ctx is checked
// once per element; cancellation returns a TIMEOUT error.
func Canonicalize(ctx context.Context, doc *ast.Document, opts Options) (*Result, error) {
	if err := Apply(ctx, doc, opts); err != nil {
		return nil, err
	}
	return Write(ctx, doc, opts.Config)
}

// Apply runs every normalization rule over doc.
func Apply(ctx context.Context, doc *ast.Document, opts Options) error {
	started := time.Now()
	if opts.Schema == nil {
		opts.Schema = dialect.For(dialect.Latest)
	}
	n := normalizer{ctx: ctx, cfg: opts.Config, schema: opts.Schema, format: value.FormatFrom(opts.Config)}
	doc.Prolog = n.topLevel(doc.Prolog)
	doc.Epilog = n.topLevel(doc.Epilog)
	if doc.Root == nil {
		return nil
	}
	n.element(doc.Root, false)
	if n.err != nil {
		return timeout(started, n.err)
	}
	if err := lockNamespaces(ctx, doc.Root, opts.Config); err != nil {
		if _, ok := ddexerrors.AsError(err); ok {
			return err
		}
		return timeout(started, err)
	}
	sortAttributes(doc.Root, opts.Config)
	return nil
}

// Write serializes an already normalized document.
func Write(ctx context.Context, doc *ast.Document, cfg config.Config) (*Result, error) {
	started := time.Now()
	body, err := serialize(ctx, doc, cfg)
	if err != nil {
		return nil, timeout(started, err)
	}
	res := &Result{Digest: digest.Of(cfg.Hash, body)}
	if !cfg.EmitBanner {
		res.Bytes = body
		return res, nil
	}
	res.Banner = cfg.Banner() + " digest=" + res.Digest.Hex()
	eol := cfg.LineEnding.Bytes()
	head := len(Declaration) + len(eol)
	var out bytes.Buffer
	out.Grow(len(body) + len(res.Banner) + 16)
	out.Write(body[:head])
	out.WriteString("<!--")
	out.WriteString(res.Banner)
	out.WriteString("-->")
	out.Write(eol)
	out.Write(body[head:])
	res.Bytes = out.Bytes()
	return res, nil
}

func timeout(started time.Time, err error) error {
	return ddexerrors.Timeout(ddexerrors.PhaseCanonical, time.Since(started), err)
}

// IsBanner reports whether a comment body is a reproducibility banner.
func IsBanner(comment string) bool {
	return strings.HasPrefix(strings.TrimSpace(comment), BannerPrefix)
}

func form(n config.Normalization) norm.Form {
	switch n {
	case config.NFD:
		return norm.NFD
	case config.NFKC:
		return norm.NFKC
	case config.NFKD:
		return norm.NFKD
	default:
		return norm.NFC
	}
}
