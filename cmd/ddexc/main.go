// Command ddexc parses, builds, canonicalizes and verifies ERN messages.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(os.Args[1:], os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	cmd := app.rootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		app.ui.errorf("%v", err)
		return 1
	}
	return 0
}

// app holds what every subcommand shares. Each invocation gets its own
// viper instance so repeated runs in one process do not leak settings.
type app struct {
	v      *viper.Viper
	ui     *printer
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		ui:     newPrinter(stdout, stderr),
		stdout: stdout,
		stderr: stderr,
		logger: zap.NewNop(),
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ddexc",
		Short:         "Deterministic ERN canonicalization and fidelity tool",
		Long:          "ddexc parses, builds and canonicalizes DDEX ERN 3.8.2, 4.2 and 4.3 messages under DB-C14N/1.0.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .ddexc.yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("preset", "", "builtin preset name or preset file")
	flags.String("preflight", "", "preflight level (none, warn, strict)")
	flags.String("id-strategy", "", "reference strategy (stable-hash, random128, time-ordered-uuid, sequential)")
	flags.String("hash", "", "digest algorithm (sha256, sha512-256, blake2b-256, sha3-256)")
	flags.String("mode", "", "output mode (dbc14n, pretty, compact)")
	flags.String("sort", "", "child ordering (canonical, input-order, custom)")
	flags.Bool("banner", false, "emit the reproducibility banner")
	flags.Bool("strict-version", false, "reject documents without a known ERN namespace")
	flags.Duration("timeout", 0, "time budget per document (0 disables)")
	flags.String("max-size", "", "largest accepted document, e.g. 64MB")
	flags.Int("max-depth", 0, "deepest accepted element nesting")
	flags.String("cpuprofile", "", "write CPU profile to file")
	flags.String("memprofile", "", "write memory profile to file")
	for _, name := range []string{"log-level", "preset", "preflight", "id-strategy", "hash", "mode", "sort", "banner", "strict-version", "timeout", "max-size", "max-depth"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	var stopProfile func() error
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := a.initConfig(cmd); err != nil {
			return err
		}
		logger, err := newLogger(a.v.GetString("log-level"))
		if err != nil {
			return err
		}
		a.logger = logger
		if path, _ := cmd.Flags().GetString("cpuprofile"); path != "" {
			stop, err := startCPUProfile(path)
			if err != nil {
				return err
			}
			stopProfile = stop
		}
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		_ = a.logger.Sync()
		if stopProfile != nil {
			if err := stopProfile(); err != nil {
				return err
			}
		}
		if path, _ := cmd.Flags().GetString("memprofile"); path != "" {
			return writeMemProfile(path)
		}
		return nil
	}

	root.AddCommand(
		a.detectCommand(),
		a.parseCommand(),
		a.buildCommand(),
		a.canonCommand(),
		a.hashCommand(),
		a.verifyCommand(),
		a.roundTripCommand(),
		a.convertCommand(),
		a.diffCommand(),
		a.batchCommand(),
		a.presetsCommand(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	return cfg.Build()
}

func startCPUProfile(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile %s: %w", path, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return nil, fmt.Errorf("start cpu profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return nil, fmt.Errorf("start cpu profile %s: %w", path, err)
	}
	return func() error {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			return fmt.Errorf("close cpu profile %s: %w", path, err)
		}
		return nil
	}, nil
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create memory profile %s: %w", path, err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return fmt.Errorf("write memory profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return fmt.Errorf("write memory profile %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close memory profile %s: %w", path, err)
	}
	return nil
}
