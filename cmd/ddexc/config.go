package main

import (
	"encoding"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ddex "github.com/daddykev/ddex-suite"
	"github.com/daddykev/ddex-suite/preset"
)

// initConfig layers the config file and DDEXC_* environment under the
// command line flags.
func (a *app) initConfig(cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName(".ddexc")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
	}
	a.v.SetEnvPrefix("DDEXC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || a.v.ConfigFileUsed() != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// options resolves the effective library options. A preset is applied
// first; explicit settings override it.
func (a *app) options() (ddex.Options, error) {
	opts := ddex.NewOptions().WithLogger(a.logger)
	if name := a.v.GetString("preset"); name != "" {
		p, err := loadPreset(name)
		if err != nil {
			return opts, err
		}
		opts = opts.WithPreset(p)
	}

	cfg := opts.Config()
	for _, s := range []struct {
		key    string
		target encoding.TextUnmarshaler
	}{
		{"preflight", &cfg.Preflight},
		{"id-strategy", &cfg.IDs},
		{"hash", &cfg.Hash},
		{"mode", &cfg.Mode},
		{"sort", &cfg.Sort},
	} {
		if text := a.v.GetString(s.key); text != "" {
			if err := s.target.UnmarshalText([]byte(text)); err != nil {
				return opts, fmt.Errorf("--%s: %w", s.key, err)
			}
		}
	}
	if a.v.IsSet("banner") {
		cfg = cfg.WithBanner(a.v.GetBool("banner"))
	}
	if a.v.IsSet("strict-version") {
		cfg = cfg.WithStrictVersion(a.v.GetBool("strict-version"))
	}
	opts = opts.WithConfig(cfg).WithTimeout(a.v.GetDuration("timeout"))

	if size := a.v.GetString("max-size"); size != "" {
		n, err := humanize.ParseBytes(size)
		if err != nil {
			return opts, fmt.Errorf("--max-size: %w", err)
		}
		opts = opts.WithMaxTotalBytes(int(n))
	}
	if n := a.v.GetInt("max-depth"); n != 0 {
		opts = opts.WithMaxDepth(n)
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// loadPreset treats names with a preset file extension as paths.
func loadPreset(name string) (preset.Preset, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return preset.LoadFile(name)
	}
	p, ok := preset.Lookup(name)
	if !ok {
		return preset.Preset{}, fmt.Errorf("unknown preset %q (known: %s)", name, strings.Join(preset.Default().Names(), ", "))
	}
	return p, nil
}
