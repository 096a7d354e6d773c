package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	ddex "github.com/daddykev/ddex-suite"
	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/model"
)

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, ddexerrors.IO(ddexerrors.PhaseParse, "read "+path, err)
	}
	return data, nil
}

// writeOutput writes to the --output file, or stdout when it is empty.
func (a *app) writeOutput(cmd *cobra.Command, data []byte) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ddexerrors.IO(ddexerrors.PhaseGenerate, "write "+path, err)
	}
	return nil
}

func (a *app) detectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Report the ERN version and namespace declarations of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			det, err := ddex.DetectVersionWithOptions(data, opts)
			if err != nil {
				return err
			}
			a.ui.field("version", det.Version)
			a.ui.field("namespace", det.RootNamespace)
			if det.Fallback {
				a.ui.field("fallback", "yes")
			}
			for _, d := range det.Declarations {
				prefix := d.Prefix
				if prefix == "" {
					prefix = "(default)"
				}
				a.ui.line("  %-10s %-45s %s %s", prefix, d.URI, d.Class, a.ui.muted.Render(d.Path))
			}
			a.ui.diagnostics(det.Diagnostics, false)
			return nil
		},
	}
}

func (a *app) parseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a document and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := ddex.Parse(cmd.Context(), data, opts)
			if err != nil {
				return err
			}
			a.ui.diagnostics(res.Diagnostics, false)

			var v any = model.Flatten(res.Message)
			if full, _ := cmd.Flags().GetBool("full"); full {
				v = res.Message
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			return a.writeOutput(cmd, append(out, '\n'))
		},
	}
	cmd.Flags().Bool("full", false, "print the full message model instead of the flat projection")
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

func (a *app) buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <request.yaml|request.json>",
		Short: "Build a message from a build request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var req model.BuildRequest
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(&req); err != nil {
				return fmt.Errorf("decode build request %s: %w", args[0], err)
			}
			res, err := ddex.BuildRequest(cmd.Context(), req, opts)
			if err != nil {
				return err
			}
			a.ui.diagnostics(res.Diagnostics, false)
			a.logger.Info("built message",
				zap.Int("releases", res.Stats.Releases),
				zap.Int("resources", res.Stats.Resources),
				zap.Int("deals", res.Stats.Deals),
				zap.String("size", humanize.Bytes(uint64(res.Stats.Bytes))),
				zap.Stringer("digest", res.Hash))
			return a.writeOutput(cmd, res.XML)
		},
	}
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

func (a *app) canonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canon <file>",
		Short: "Rewrite a document into canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := ddex.Canonicalize(cmd.Context(), data, opts)
			if err != nil {
				return err
			}
			return a.writeOutput(cmd, out)
		},
	}
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

func (a *app) hashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the canonical digest of each document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				d, err := ddex.CanonicalHash(cmd.Context(), data, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				a.ui.line("%s  %s", d, path)
			}
			return nil
		},
	}
}
