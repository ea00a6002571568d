package cli

import (
	"context"

	"ploc/internal/core/app"
	"ploc/internal/core/config"
	"ploc/internal/core/ports"
	"ploc/internal/engine/parser"

	"github.com/spf13/cobra"
)

type runOptions struct {
	watch bool
	ui    bool
}

func newCheckCmd(s *session) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "check DIR",
		Short: "Report the indirect imports of a Python source tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer configureLogging(s.stderr, opts.ui, s.opts.verbose)()

			root, cfg, err := s.loadConfig(args[0])
			if err != nil {
				return err
			}
			defer s.telemetry(cmd.Context(), cfg)()

			run := func(ctx context.Context) error {
				plan, err := s.analyse(ctx, root, cfg, opts.ui)
				if err != nil {
					return err
				}
				s.reporter.Replacements(plan.Replacements, plan.FilesCount, plan.Elapsed)
				s.code = ExitClean
				if !plan.Empty() {
					s.code = ExitFound
				}
				return nil
			}

			if opts.watch {
				return app.Watch(cmd.Context(), root, cfg, func(ctx context.Context) error {
					if err := run(ctx); err != nil {
						s.reporter.Error(err)
						return err
					}
					return nil
				})
			}
			return run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-run the check whenever a Python file changes")
	cmd.Flags().BoolVar(&opts.ui, "ui", false, "show a progress view while analysing (logs go to the state directory)")
	return cmd
}

// analyse runs the planner, behind a progress view when ui is set.
func (s *session) analyse(ctx context.Context, root string, cfg *config.Config, ui bool) (*app.Plan, error) {
	if !ui {
		return app.NewPlanner(parser.NewParser(), nil).Analyse(ctx, root, cfg)
	}
	var plan *app.Plan
	err := withProgressView(ctx, s.stderr, func(progress ports.Progress) error {
		var err error
		plan, err = app.NewPlanner(parser.NewParser(), progress).Analyse(ctx, root, cfg)
		return err
	})
	return plan, err
}
