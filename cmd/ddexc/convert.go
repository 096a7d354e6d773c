package main

import (
	"errors"

	"github.com/spf13/cobra"

	ddex "github.com/daddykev/ddex-suite"
	ddexerrors "github.com/daddykev/ddex-suite/errors"
)

func (a *app) convertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Rewrite a document for another ERN version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			to, _ := cmd.Flags().GetString("to")
			target, err := ddex.ParseVersion(to)
			if err != nil {
				return ddexerrors.Wrap(ddexerrors.PhaseConfigure, ddexerrors.New(ddexerrors.CodeInvalidVersion, err.Error()), err)
			}
			if keep, _ := cmd.Flags().GetBool("keep-unsupported"); keep {
				opts = opts.WithKeepUnsupported(true)
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := ddex.Convert(cmd.Context(), data, target, opts)
			if err != nil {
				return err
			}
			a.ui.diagnostics(res.Diagnostics, false)
			return a.writeOutput(cmd, res.XML)
		},
	}
	cmd.Flags().String("to", "4.3", "target version (3.8.2, 4.2, 4.3)")
	cmd.Flags().Bool("keep-unsupported", false, "keep elements the target version lacks instead of dropping them")
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

var errDiffer = errors.New("documents differ")

func (a *app) diffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Compare two documents after canonicalization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			left, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			right, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			rep, err := ddex.Diff(cmd.Context(), left, right, opts)
			if err != nil {
				return err
			}
			a.ui.field("identical", rep.Identical)
			a.ui.field("model", map[bool]string{true: "equal", false: "differs"}[rep.ModelEqual])
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
			if !rep.Identical {
				return errDiffer
			}
			a.ui.success("no differences")
			return nil
		},
	}
	cmd.Flags().Bool("diff", false, "print the unified diff and model difference")
	return cmd
}
