// # internal/ui/cli/root.go
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ploc/internal/core/config"
	"ploc/internal/core/errors"
	"ploc/internal/shared/observability"
	"ploc/internal/ui/report"

	"github.com/spf13/cobra"
)

// Exit codes of the ploc command.
const (
	ExitClean  = 0
	ExitFound  = 1
	ExitFailed = 2
)

var version = "dev"

func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

type globalOptions struct {
	configPath string
	cache      string
	verbose    bool
}

// session carries what every subcommand shares. code is set by the command
// that ran.
type session struct {
	opts     globalOptions
	stdout   io.Writer
	stderr   io.Writer
	reporter *report.Reporter
	code     int
}

// Execute runs the ploc command line with args and returns the process exit
// code.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{stdout: stdout, stderr: stderr, reporter: report.NewReporter(stdout)}
	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if _, ok := errors.CodeOf(err); ok {
			report.NewReporter(stderr).Error(err)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return ExitFailed
	}
	return s.code
}

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:     "ploc",
		Version: version,
		Short:   "Detect and rewrite indirect imports of Python packages",
		Long: `ploc finds names imported from a module that merely re-exports them,
and rewrites those imports to point at the module defining the name.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("ploc {{.Version}}\n")

	root.PersistentFlags().StringVar(&s.opts.configPath, "config", "", "pyproject.toml holding a [tool.ploc] table (default: DIR/pyproject.toml)")
	root.PersistentFlags().StringVar(&s.opts.cache, "cache", "", "cache mode overriding the configuration: on, off or rebuild")
	root.PersistentFlags().BoolVarP(&s.opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCheckCmd(s), newFixCmd(s), newInterfaceCmd(s))
	return root
}

// loadConfig validates dir and loads its configuration, applying the
// command line cache override.
func (s *session) loadConfig(dir string) (string, *config.Config, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "resolve directory"), errors.CtxPath, dir)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "directory not found"), errors.CtxPath, root)
	}
	if !info.IsDir() {
		return "", nil, errors.AddContext(errors.New(errors.CodeValidationError, "not a directory"), errors.CtxPath, root)
	}

	cfg, err := config.LoadForRoot(root, s.opts.configPath)
	if err != nil {
		return "", nil, err
	}
	if s.opts.cache != "" {
		cfg.Cache = s.opts.cache
	}
	return root, cfg, nil
}

// telemetry starts tracing as configured and returns the function flushing
// spans and metrics at the end of the command.
func (s *session) telemetry(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := observability.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, version)
	if err != nil {
		fmt.Fprintf(s.stderr, "warning: tracing disabled: %v\n", err)
		shutdown = func(context.Context) error { return nil }
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			fmt.Fprintf(s.stderr, "warning: flush traces: %v\n", err)
		}
		if err := observability.WriteTextfile(cfg.Telemetry.MetricsTextfile); err != nil {
			fmt.Fprintf(s.stderr, "warning: write metrics: %v\n", err)
		}
	}
}
