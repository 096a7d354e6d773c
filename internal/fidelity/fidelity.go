// Package fidelity compares an original message with its rebuilt form and
// scores how much of the non-schema content survived.
package fidelity

import (
	"bytes"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/model"
)

// Window is how many bytes around a byte difference are reported.
const Window = 32

// Input is one parse, build, parse cycle.
type Input struct {
	Original []byte
	Rebuilt  []byte
	Before   *ast.Document
	After    *ast.Document
	// BeforeModel and AfterModel are optional; when both are set their
	// semantic content is compared as well.
	BeforeModel *model.Message
	AfterModel  *model.Message
	// Key names the identifying child of repeated elements so paths survive
	// reordering.
	Key ast.KeyFunc
	// Context is the number of unified diff context lines; zero means 3.
	Context int
	// Labels name both sides in the unified diff; empty labels read
	// original and rebuilt.
	Labels [2]string
}

// ByteDiff is the first differing byte of the two streams.
type ByteDiff struct {
	Offset int
	Line   int
	Column int
	// Expected and Actual are Window bytes on each side of Offset.
	Expected string
	Actual   string
}

func (d *ByteDiff) String() string {
	return fmt.Sprintf("offset %d (line %d, column %d): expected %q, got %q",
		d.Offset, d.Line, d.Column, d.Expected, d.Actual)
}

// Report is the result of a comparison.
type Report struct {
	// Identical is set when the rebuilt bytes equal the original.
	Identical  bool
	Byte       *ByteDiff
	Attributes []AttrDiff
	Structure  []StructDiff
	Scores     []Score
	// Overall is the mean of the category percentages that had anything to
	// preserve.
	Overall float64
	// ModelEqual reports whether both models carry the same semantic
	// content; ModelDiff renders the difference when they do not.
	ModelEqual bool
	ModelDiff  string
	// Unified is a line diff of the two streams.
	Unified string
}

// Lossless reports whether the models agree and the trees differ in
// nothing but bytes.
func (r *Report) Lossless() bool {
	return r.ModelEqual && (r.Identical || len(r.Attributes) == 0 && len(r.Structure) == 0)
}

// Score returns the score of category c.
func (r *Report) Score(c Category) (Score, bool) {
	for _, s := range r.Scores {
		if s.Category == c {
			return s, true
		}
	}
	return Score{}, false
}

// Compare classifies the differences of a cycle. Identical streams pass
// without a tree comparison.
func Compare(in Input) *Report {
	rep := &Report{ModelEqual: true}
	if in.BeforeModel != nil && in.AfterModel != nil {
		rep.ModelDiff = cmp.Diff(in.BeforeModel, in.AfterModel,
			cmpopts.IgnoreFields(model.Message{}, "Sidecar"),
			cmpopts.EquateEmpty())
		rep.ModelEqual = rep.ModelDiff == ""
	}
	if bytes.Equal(in.Original, in.Rebuilt) {
		rep.Identical = true
		rep.Scores = perfect()
		rep.Overall = 100
		return rep
	}
	rep.Byte = firstDifference(in.Original, in.Rebuilt)
	rep.Unified = unified(in.Original, in.Rebuilt, in.Context, in.Labels)
	if in.Before == nil || in.After == nil || in.Before.Root == nil || in.After.Root == nil {
		return rep
	}
	a := index(in.Before.Root, in.Key)
	b := index(in.After.Root, in.Key)
	rep.Structure, rep.Attributes = structural(a, b, in.Key)
	rep.Scores = score(in.Before, in.After, a, b)
	rep.Overall = overall(rep.Scores)
	return rep
}

func firstDifference(want, got []byte) *ByteDiff {
	off := 0
	for off < len(want) && off < len(got) && want[off] == got[off] {
		off++
	}
	line, col := 1, 1
	for _, c := range want[:off] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	start := max(off-Window, 0)
	return &ByteDiff{
		Offset:   off,
		Line:     line,
		Column:   col,
		Expected: string(want[start:min(off+Window, len(want))]),
		Actual:   string(got[start:min(off+Window, len(got))]),
	}
}

func unified(want, got []byte, context int, labels [2]string) string {
	if context <= 0 {
		context = 3
	}
	if labels[0] == "" {
		labels[0] = "original"
	}
	if labels[1] == "" {
		labels[1] = "rebuilt"
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(want)),
		B:        difflib.SplitLines(string(got)),
		FromFile: labels[0],
		ToFile:   labels[1],
		Context:  context,
	})
	if err != nil {
		return ""
	}
	return text
}
