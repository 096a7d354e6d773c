package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	ddex "github.com/daddykev/ddex-suite"
)

type batchResult struct {
	path   string
	digest ddex.Digest
	size   int
	err    error
}

func (a *app) batchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <pattern>",
		Short: "Canonicalize every document matching a glob such as 'feeds/**/*.xml'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			outDir, _ := cmd.Flags().GetString("out")
			workers, _ := cmd.Flags().GetInt("workers")
			if workers <= 0 {
				workers = runtime.GOMAXPROCS(0)
			}

			base, _ := doublestar.SplitPattern(filepath.ToSlash(args[0]))
			matches, err := doublestar.FilepathGlob(args[0], doublestar.WithFilesOnly())
			if err != nil {
				return fmt.Errorf("glob %q: %w", args[0], err)
			}
			if len(matches) == 0 {
				return fmt.Errorf("no files match %q", args[0])
			}

			started := time.Now()
			results := make([]batchResult, len(matches))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for i, path := range matches {
				g.Go(func() error {
					results[i] = a.canonicalizeFile(ctx, opts, path, base, outDir)
					return nil
				})
			}
			_ = g.Wait()

			var (
				total  uint64
				failed []error
			)
			for _, r := range results {
				if r.err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", r.path, r.err))
					a.ui.errorf("%s: %v", r.path, r.err)
					continue
				}
				total += uint64(r.size)
				a.ui.line("%s  %8s  %s", r.digest, humanize.Bytes(uint64(r.size)), r.path)
			}
			a.logger.Info("batch finished",
				zap.Int("files", len(matches)),
				zap.Int("failed", len(failed)),
				zap.Duration("elapsed", time.Since(started)))
			summary := fmt.Sprintf("%d of %d file(s), %s canonical output", len(matches)-len(failed), len(matches), humanize.Bytes(total))
			if len(failed) > 0 {
				a.ui.line("%s", summary)
				return errors.Join(failed...)
			}
			a.ui.success("%s", summary)
			return nil
		},
	}
	cmd.Flags().String("out", "", "write canonical files under this directory, mirroring the input tree")
	cmd.Flags().IntP("workers", "j", 0, "concurrent documents (0 uses GOMAXPROCS)")
	return cmd
}

func (a *app) canonicalizeFile(ctx context.Context, opts ddex.Options, path, base, outDir string) batchResult {
	res := batchResult{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.err = err
		return res
	}
	out, err := ddex.Canonicalize(ctx, data, opts)
	if err != nil {
		res.err = err
		return res
	}
	res.size = len(out)
	res.digest, res.err = ddex.CanonicalHash(ctx, out, opts)
	if res.err != nil || outDir == "" {
		return res
	}
	rel, err := filepath.Rel(filepath.FromSlash(base), path)
	if err != nil {
		rel = filepath.Base(path)
	}
	target := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		res.err = err
		return res
	}
	res.err = os.WriteFile(target, out, 0o644)
	return res
}
