package cli

import (
	"ploc/internal/core/app"
	"ploc/internal/engine/parser"

	"github.com/spf13/cobra"
)

func newInterfaceCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "interface FILE",
		Short: "Print the imported and exported names of one Python file",
		Long: `interface extracts the interface of FILE without any cache. The file's
directory is taken as the package root, so a package __init__.py lists its
sibling modules as submodules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer configureLogging(s.stderr, false, s.opts.verbose)()

			iface, err := app.InspectFile(parser.NewParser(), args[0])
			if err != nil {
				return err
			}
			s.reporter.Interface(iface)
			s.code = ExitClean
			return nil
		},
	}
}
