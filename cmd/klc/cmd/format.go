package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
)

func newFormatCmd(root *rootFlags) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "format <files...>",
		Short: "Reformat library files into canonical form",
		Long: `format parses each file and prints it back in the canonical layout
KiCad itself writes. Unknown constructs survive untouched, so the
output is a faithful normalization, not a lossy rewrite.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				text, err := formatFile(path)
				if err != nil {
					return err
				}
				if write {
					if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
						return err
					}
					loggerFromContext(cmd.Context()).Debug("rewrote", "file", path)
					continue
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite files in place instead of printing")
	return cmd
}

func formatFile(path string) (string, error) {
	switch filepath.Ext(path) {
	case ".kicad_sym":
		lib, err := symbol.LoadFile(path)
		if err != nil {
			return "", err
		}
		return lib.Dump(), nil
	case ".kicad_mod":
		fp, err := footprint.LoadFile(path)
		if err != nil {
			return "", err
		}
		return fp.Dump(), nil
	}
	return "", fmt.Errorf("%s: not a .kicad_sym or .kicad_mod file", path)
}
