package cmd

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/klcheck/internal/config"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
	"github.com/OpenTraceLab/klcheck/pkg/klc/symrules"
)

// checkFlags are the flags shared by check-symbol and check-footprint.
type checkFlags struct {
	component         string
	pattern           string
	rules             []string
	exclude           []string
	silent            bool
	noWarnings        bool
	disableExceptions bool
	metricsFile       string
	junitFile         string
	footprintsDir     string
	workers           int
}

func (f *checkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.component, "component", "c", "", "check only the named component")
	cmd.Flags().StringVarP(&f.pattern, "pattern", "p", "", "check only components matching the regex")
	cmd.Flags().StringSliceVarP(&f.rules, "rule", "r", nil, "check only the listed rules, e.g. S3.1,S4.2")
	cmd.Flags().StringSliceVarP(&f.exclude, "exclude", "e", nil, "skip the listed rules")
	cmd.Flags().BoolVarP(&f.silent, "silent", "s", false, "print only errors")
	cmd.Flags().BoolVarP(&f.noWarnings, "nowarnings", "w", false, "hide entities that only have warnings")
	cmd.Flags().BoolVar(&f.disableExceptions, "disable-exceptions", false, "ignore documented KLC exception properties")
	cmd.Flags().StringVarP(&f.metricsFile, "metrics", "m", "", "write violation counters to the file")
	cmd.Flags().StringVar(&f.junitFile, "junit", "", "write a JUnit XML report to the file")
	cmd.Flags().StringVar(&f.footprintsDir, "footprints", "", "footprint library root for cross-reference checks")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "parallel file checks (default one per CPU)")
}

// options merges config file defaults under the explicit flags.
func (f *checkFlags) options(cfg *config.Config) *klc.Options {
	opts := &klc.Options{
		SelectedRules:     f.rules,
		ExcludedRules:     f.exclude,
		DisableExceptions: f.disableExceptions,
		NoWarnings:        f.noWarnings,
		FootprintsDir:     f.footprintsDir,
		Workers:           f.workers,
	}
	if len(opts.SelectedRules) == 0 {
		opts.SelectedRules = cfg.Rules
	}
	if len(opts.ExcludedRules) == 0 {
		opts.ExcludedRules = cfg.Exclude
	}
	if opts.FootprintsDir == "" {
		opts.FootprintsDir = cfg.Footprints
	}
	if opts.Workers == 0 {
		opts.Workers = cfg.Workers
	}
	switch {
	case f.pattern != "":
		opts.Component = f.pattern
	case f.component != "":
		opts.Component = regexp.QuoteMeta(f.component)
	}
	if f.metricsFile == "" {
		f.metricsFile = cfg.Metrics
	}
	if f.junitFile == "" {
		f.junitFile = cfg.Junit
	}
	return opts
}

// report prints the check results and writes the optional metrics and
// JUnit outputs. It returns the process exit code for the run.
func (f *checkFlags) report(kind string, reports []*klc.Report, printer *klc.Printer) (int, error) {
	for _, r := range reports {
		printer.PrintReport(kind, r)
	}
	if !f.silent {
		printer.PrintSummary(reports)
	}

	if f.metricsFile != "" {
		var lines []string
		for _, r := range reports {
			lines = append(lines, r.Metrics()...)
		}
		if err := os.WriteFile(f.metricsFile, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
			return klc.ExitUsage, fmt.Errorf("write metrics: %w", err)
		}
	}
	if f.junitFile != "" {
		out, err := os.Create(f.junitFile)
		if err != nil {
			return klc.ExitUsage, fmt.Errorf("write junit report: %w", err)
		}
		defer out.Close()
		if err := klc.WriteJUnit(out, reports); err != nil {
			return klc.ExitUsage, fmt.Errorf("write junit report: %w", err)
		}
	}

	errors, warnings := klc.Totals(reports)
	return klc.ExitCode(errors, warnings), nil
}

func newCheckSymbolCmd(root *rootFlags, setExit func(int)) *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check-symbol <files...>",
		Short: "Check symbol libraries against the KLC rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts := flags.options(cfg)

			logger := loggerFromContext(cmd.Context())
			logger.Debug("checking symbol libraries", "files", len(args))

			reports, err := klc.CheckSymbolFiles(cmd.Context(), args, symrules.All(), opts)
			if reports == nil {
				return err
			}

			printer := &klc.Printer{
				Out:     cmd.OutOrStdout(),
				Verbose: root.verbose,
				NoColor: cfg.NoColor,
				Silent:  flags.silent,
			}
			code, err := flags.report("symbol", reports, printer)
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
