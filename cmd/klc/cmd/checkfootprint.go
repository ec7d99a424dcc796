package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/klcheck/pkg/klc"
	"github.com/OpenTraceLab/klcheck/pkg/klc/fprules"
)

func newCheckFootprintCmd(root *rootFlags, setExit func(int)) *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check-footprint <files...>",
		Short: "Check .kicad_mod footprints against the KLC rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts := flags.options(cfg)

			logger := loggerFromContext(cmd.Context())
			logger.Debug("checking footprints", "files", len(args))

			reports, err := klc.CheckFootprintFiles(cmd.Context(), args, fprules.All(), opts)
			if reports == nil {
				return err
			}

			printer := &klc.Printer{
				Out:     cmd.OutOrStdout(),
				Verbose: root.verbose,
				NoColor: cfg.NoColor,
				Silent:  flags.silent,
			}
			code, err := flags.report("footprint", reports, printer)
			if err != nil {
				return err
			}
			setExit(code)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
