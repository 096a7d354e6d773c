package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	ddex "github.com/daddykev/ddex-suite"
)

func (a *app) verifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Build a parsed document repeatedly and check every run is identical",
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
			parsed, err := ddex.Parse(cmd.Context(), data, opts)
			if err != nil {
				return err
			}
			iterations, _ := cmd.Flags().GetInt("iterations")
			rep, err := ddex.VerifyDeterminism(cmd.Context(), parsed.Message, opts, iterations)
			if rep == nil {
				return err
			}
			a.ui.field("iterations", rep.Iterations)
			a.ui.field("elapsed", rep.Elapsed)
			if len(rep.Hashes) > 0 {
				a.ui.field("digest", rep.Hashes[0])
			}
			if len(rep.Secondary) > 0 {
				a.ui.field("secondary", rep.Secondary[0])
			}
			if err != nil {
				if rep.Divergence != nil {
					a.ui.field("divergence", rep.Divergence)
				}
				a.ui.diagnostics(rep.Failures, true)
				return err
			}
			a.ui.success("deterministic")
			return nil
		},
	}
	cmd.Flags().IntP("iterations", "n", 0, "number of builds (0 uses the configured count)")
	return cmd
}

var errLossy = errors.New("round trip is not lossless")

func (a *app) roundTripCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roundtrip <file>",
		Short: "Parse, build and parse again, then report what changed",
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
			rep, err := ddex.RoundTrip(cmd.Context(), data, opts)
			if err != nil {
				return err
			}
			a.ui.field("size", humanize.Bytes(uint64(len(data))))
			a.ui.field("identical", rep.Identical)
			a.ui.field("model", map[bool]string{true: "equal", false: "differs"}[rep.ModelEqual])
			if rep.Byte != nil {
				a.ui.field("first diff", rep.Byte)
			}
			for _, s := range rep.Scores {
				a.ui.line("  %-20s %6.1f%%  %s", s.Category, s.Percent(), a.ui.muted.Render(fmt.Sprintf("%d/%d", s.Kept, s.Total)))
			}
			a.ui.field("overall", fmt.Sprintf("%.1f%%", rep.Overall))
			for _, d := range rep.Structure {
				a.ui.line("  %-16s %s", d.Kind, d.Path)
			}
			for _, d := range rep.Attributes {
				a.ui.line("  %-16s %s@%s", d.Kind, d.Path, d.Name)
			}
			if showDiff, _ := cmd.Flags().GetBool("diff"); showDiff {
				if rep.Unified != "" {
					a.ui.line("%s", rep.Unified)
				}
				if rep.ModelDiff != "" {
					a.ui.line("%s", rep.ModelDiff)
				}
			}
			if !rep.Lossless() {
				return errLossy
			}
			a.ui.success("lossless")
			return nil
		},
	}
	cmd.Flags().Bool("diff", false, "print the unified diff and model difference")
	return cmd
}
