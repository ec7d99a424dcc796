package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/klcheck/pkg/compare"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
	"github.com/OpenTraceLab/klcheck/pkg/klc/symrules"
)

func newCompareCmd(root *rootFlags, setExit func(int)) *cobra.Command {
	var (
		oldPaths       []string
		newPaths       []string
		check          bool
		checkDerived   bool
		designBreaking bool
		footprintsDir  string
		showNoChanges  bool
	)

	cmd := &cobra.Command{
		Use:   "compare --old <paths...> --new <paths...>",
		Short: "Compare two revisions of a symbol library set",
		Long: `compare classifies every symbol in the new revision as added, removed,
changed or unchanged against the old revision. Derived symbols can be
re-checked for inherited changes, and pin movements that would break
existing schematics can be flagged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if footprintsDir == "" {
				footprintsDir = cfg.Footprints
			}

			oldLibs, err := compare.CollectLibraries(oldPaths)
			if err != nil {
				return err
			}
			newLibs, err := compare.CollectLibraries(newPaths)
			if err != nil {
				return err
			}

			opts := &compare.Options{
				CheckDerived:   checkDerived,
				DesignBreaking: designBreaking,
				FootprintsDir:  footprintsDir,
			}
			if check {
				opts.Rules = symrules.All()
				opts.RuleOptions = &klc.Options{
					ExcludedRules: cfg.Exclude,
					FootprintsDir: footprintsDir,
				}
			}

			diffs, cmpErr := compare.Compare(oldLibs, newLibs, opts)

			var rulePrinter *klc.Printer
			if check {
				rulePrinter = &klc.Printer{
					Out:     cmd.OutOrStdout(),
					Verbose: root.verbose,
					NoColor: cfg.NoColor,
					Silent:  true,
				}
			}
			printer := &compare.Printer{
				Out:           cmd.OutOrStdout(),
				Verbose:       root.verbose > 0,
				ShowUnchanged: showNoChanges,
				NoColor:       cfg.NoColor,
			}
			printer.PrintAll(diffs, rulePrinter)

			if cmpErr != nil {
				loggerFromContext(cmd.Context()).Error("comparison incomplete", "err", cmpErr)
			}
			_, _, _, _, breaking, errors := compare.Totals(diffs)
			switch {
			case errors > 0:
				setExit(klc.ExitErrors)
			case designBreaking && breaking > 0:
				setExit(klc.ExitWarnings)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&oldPaths, "old", nil, "old revision files or directories")
	cmd.Flags().StringSliceVar(&newPaths, "new", nil, "new revision files or directories")
	cmd.Flags().BoolVar(&check, "check", false, "run the KLC rules on added and changed symbols")
	cmd.Flags().BoolVar(&checkDerived, "check-derived", false, "re-classify derived symbols when an ancestor changed")
	cmd.Flags().BoolVar(&designBreaking, "design-breaking-changes", false, "flag pin changes that would break existing designs")
	cmd.Flags().StringVar(&footprintsDir, "footprints", "", "footprint library root for cross-reference checks")
	cmd.Flags().BoolVar(&showNoChanges, "shownochanges", false, "also list libraries without changes")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}
