package harness_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/canon"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/generator"
	"github.com/daddykev/ddex-suite/internal/parser"
	harness "github.com/daddykev/ddex-suite/internal/testing"
)

// canonicalEngine canonicalizes the parsed tree directly.
func canonicalEngine(cfg config.Config) harness.Engine {
	return harness.EngineFunc(func(ctx context.Context, data []byte) ([]byte, error) {
		doc, err := parser.Tree(ctx, bytes.NewReader(data), parser.Options{}.Limits)
		if err != nil {
			return nil, err
		}
		v, _, err := parser.Detect(doc, false)
		if err != nil {
			return nil, err
		}
		res, err := canon.Canonicalize(ctx, doc, canon.Options{Config: cfg, Schema: dialect.For(v)})
		if err != nil {
			return nil, err
		}
		return res.Bytes, nil
	})
}

// rebuildEngine maps the document onto the model and generates it again.
func rebuildEngine(cfg config.Config) harness.Engine {
	return harness.EngineFunc(func(ctx context.Context, data []byte) ([]byte, error) {
		parsed, err := parser.Parse(ctx, bytes.NewReader(data), parser.Options{})
		if err != nil {
			return nil, err
		}
		doc, err := generator.Generate(ctx, parsed.Message, generator.Options{})
		if err != nil {
			return nil, err
		}
		res, err := canon.Canonicalize(ctx, doc, canon.Options{Config: cfg, Schema: dialect.For(parsed.Version)})
		if err != nil {
			return nil, err
		}
		return res.Bytes, nil
	})
}

func TestParityCanonicalVsRebuild(t *testing.T) {
	configs := map[string]config.Config{
		"default":     config.Default(),
		"compact":     config.Default().WithMode(config.ModeCompact),
		"input-order": config.Default().WithSort(config.SortInputOrder).WithMode(config.ModePretty),
		"inherit":     config.Default().WithPrefixes(config.PrefixInherit),
	}
	for _, name := range harness.Fixtures() {
		for cfgName, cfg := range configs {
			if cfgName == "input-order" && name == "ern42_messy.xml" {
				// generated children follow the dialect order, the messy input does not
				continue
			}
			t.Run(name+"/"+cfgName, func(t *testing.T) {
				tc := harness.Case{Name: name, Document: harness.Fixture(name)}
				diff := harness.Compare(context.Background(), canonicalEngine(cfg), rebuildEngine(cfg), tc)
				if !diff.Equal() {
					t.Fatalf("canonical vs rebuild mismatch:\ncanonical (err=%v):\n%s\nrebuild (err=%v):\n%s",
						diff.Left.Err, diff.Left.Output, diff.Right.Err, diff.Right.Output)
				}
			})
		}
	}
}

func TestCanonicalFixturesAreFixedPoints(t *testing.T) {
	for _, name := range []string{"ern43_album.xml", "ern382_single.xml"} {
		t.Run(name, func(t *testing.T) {
			input := harness.Fixture(name)
			out, err := canonicalEngine(config.Default()).Run(context.Background(), input)
			if err != nil {
				t.Fatalf("canonicalize: %v", err)
			}
			if !bytes.Equal(out, input) {
				t.Fatalf("canonical fixture changed:\n%s", out)
			}
		})
	}
}
