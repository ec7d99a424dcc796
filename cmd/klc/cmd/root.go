// Package cmd implements the klc command-line interface: KLC rule
// checking for symbol and footprint libraries, library comparison and
// canonical reformatting.
package cmd

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/klcheck/internal/config"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

var version = "0.9.0"

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	verbose    int
	noColor    bool
	configPath string
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadPath(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.noColor {
		cfg.NoColor = true
	}
	return cfg, nil
}

// Execute runs the klc CLI and returns the process exit code: 0 for a
// clean run, 2 when only warnings were found, 3 on rule errors and 1
// on usage or I/O problems.
func Execute() int {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "klc",
		Short:         "KiCad library convention checker",
		Long: `klc checks KiCad symbol and footprint libraries against the KiCad
Library Conventions, compares library revisions, and reformats library
files into their canonical form.

Examples:
  klc check-symbol Device.kicad_sym             # check every symbol
  klc check-symbol -c LM358 -vv Device.kicad_sym
  klc check-footprint Resistor_SMD.pretty/*.kicad_mod
  klc compare --old v1/ --new v2/ --check
  klc format -w Device.kicad_sym`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.WarnLevel
			if flags.verbose > 0 {
				level = charmlog.DebugLevel
			}
			logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Level: level})
			cmd.SetContext(withLogger(cmd.Context(), logger))
		},
	}

	root.PersistentFlags().CountVarP(&flags.verbose, "verbose", "v", "print rule messages, twice for extra detail")
	root.PersistentFlags().BoolVar(&flags.noColor, "nocolor", false, "disable colored output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default klc.toml if present)")

	exit := klc.ExitPass
	setExit := func(code int) {
		if code > exit {
			exit = code
		}
	}

	root.AddCommand(newCheckSymbolCmd(flags, setExit))
	root.AddCommand(newCheckFootprintCmd(flags, setExit))
	root.AddCommand(newCompareCmd(flags, setExit))
	root.AddCommand(newFormatCmd(flags))

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return klc.ExitUsage
	}
	return exit
}
