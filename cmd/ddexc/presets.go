package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/daddykev/ddex-suite/preset"
)

func (a *app) presetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List and inspect presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the builtin presets",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, p := range preset.Default().All() {
				lock := ""
				if p.Locked {
					lock = " (locked)"
				}
				a.ui.line("%-14s %-10s %s%s", p.Name, a.ui.muted.Render(string(p.Source)), p.Description, lock)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <name|file>",
		Short: "Print a preset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := loadPreset(args[0])
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode preset %s: %w", p.Name, err)
			}
			_, err = a.stdout.Write(out)
			return err
		},
	})
	return cmd
}
