package cli

import (
	"time"

	"ploc/internal/core/app"
	"ploc/internal/engine/parser"

	"github.com/spf13/cobra"
)

func newFixCmd(s *session) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "fix DIR",
		Short: "Rewrite the indirect imports of a Python source tree in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer configureLogging(s.stderr, opts.ui, s.opts.verbose)()

			root, cfg, err := s.loadConfig(args[0])
			if err != nil {
				return err
			}
			defer s.telemetry(cmd.Context(), cfg)()

			started := time.Now()
			plan, err := s.analyse(cmd.Context(), root, cfg, opts.ui)
			if err != nil {
				return err
			}
			s.reporter.Replacements(plan.Replacements, plan.FilesCount, plan.Elapsed)
			if plan.Empty() {
				s.code = ExitClean
				return nil
			}

			written, err := app.Fix(cmd.Context(), root, cfg, plan, parser.NewParser())
			if err != nil {
				return err
			}
			s.reporter.Fixed(written, time.Since(started))
			s.code = ExitFound
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.ui, "ui", false, "show a progress view while analysing (logs go to the state directory)")
	return cmd
}
