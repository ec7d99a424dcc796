package klc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
)

func alwaysError(name string) SymbolRule {
	return SymbolRule{
		Name:        name,
		Description: "always fails",
		Check: func(ctx *SymbolContext, r *Result) {
			r.Errorf("%s is broken", ctx.Symbol.Name)
		},
	}
}

func alwaysPass(name string) SymbolRule {
	return SymbolRule{Name: name, Description: "always passes", Check: func(*SymbolContext, *Result) {}}
}

func TestCheckSymbolExceptionDemotes(t *testing.T) {
	sym := symbol.NewSymbol("R", "Device")
	sym.Properties = append(sym.Properties, symbol.NewProperty("KLC_S3.1", "legacy outline kept for compatibility"))

	entity := CheckSymbol(sym, nil, []SymbolRule{alwaysError("S3.1")}, &Options{})
	if entity.ErrorCount() != 0 {
		t.Errorf("excepted rule still counts %d errors", entity.ErrorCount())
	}
	note, ok := entity.Exceptions["S3.1"]
	if !ok {
		t.Fatal("exception not recorded")
	}
	if !strings.Contains(note, "legacy outline kept for compatibility") {
		t.Errorf("note = %q", note)
	}

	// -x turns the exception off again.
	entity = CheckSymbol(sym, nil, []SymbolRule{alwaysError("S3.1")}, &Options{DisableExceptions: true})
	if entity.ErrorCount() != 1 {
		t.Errorf("with exceptions disabled got %d errors, want 1", entity.ErrorCount())
	}
}

func TestCheckSymbolRuleSelection(t *testing.T) {
	sym := symbol.NewSymbol("R", "Device")
	rules := []SymbolRule{alwaysError("S3.1"), alwaysError("S4.1"), alwaysPass("G1.1")}

	entity := CheckSymbol(sym, nil, rules, &Options{SelectedRules: []string{"S4.1"}})
	if len(entity.Results) != 1 || entity.Results[0].Rule != "S4.1" {
		t.Fatalf("selection ran %d results", len(entity.Results))
	}

	entity = CheckSymbol(sym, nil, rules, &Options{ExcludedRules: []string{"S3.1", "S4.1"}})
	if entity.ErrorCount() != 0 {
		t.Errorf("exclusion left %d errors", entity.ErrorCount())
	}
}

func TestCheckSymbolNoWarnings(t *testing.T) {
	warnRule := SymbolRule{Name: "S6.2", Check: func(_ *SymbolContext, r *Result) {
		r.Warning("minor")
	}}
	sym := symbol.NewSymbol("R", "Device")

	entity := CheckSymbol(sym, nil, []SymbolRule{warnRule, alwaysError("S3.1")}, &Options{NoWarnings: true})
	if len(entity.Results) != 1 {
		t.Fatalf("got %d results, want only the error one", len(entity.Results))
	}
	if entity.Results[0].Rule != "S3.1" {
		t.Errorf("kept rule = %s", entity.Results[0].Rule)
	}
}

const runnerTestLib = `(kicad_symbol_lib
  (version 20251024)
  (generator klcheck)
  (symbol "R"
    (pin_numbers (hide yes))
    (in_bom yes)
    (on_board yes)
    (property "Reference" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))
    (property "Value" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))
  )
)
`

func TestCheckSymbolFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "Device.kicad_sym")
	bad := filepath.Join(dir, "Broken.kicad_sym")
	if err := os.WriteFile(good, []byte(runnerTestLib), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("(kicad_symbol_lib (version"), 0o644); err != nil {
		t.Fatal(err)
	}

	reports, err := CheckSymbolFiles(context.Background(), []string{good, bad},
		[]SymbolRule{alwaysError("S3.1")}, &Options{})
	if err == nil {
		t.Error("expected aggregate error for the broken file")
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	// Sorted by filename, so Broken comes first.
	if reports[0].Failure == nil {
		t.Error("broken file should carry a failure")
	}
	if reports[0].ErrorCount() != 1 {
		t.Errorf("failed file counts %d errors, want 1", reports[0].ErrorCount())
	}
	if reports[1].Library != "Device" || reports[1].ErrorCount() != 1 {
		t.Errorf("good report: lib=%q errors=%d", reports[1].Library, reports[1].ErrorCount())
	}
}

func TestCheckSymbolFilesComponentFilter(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Device.kicad_sym")
	if err := os.WriteFile(file, []byte(runnerTestLib), 0o644); err != nil {
		t.Fatal(err)
	}

	reports, err := CheckSymbolFiles(context.Background(), []string{file},
		[]SymbolRule{alwaysError("S3.1")}, &Options{Component: "C.*"})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports[0].Entities) != 0 {
		t.Errorf("filter should have skipped everything, got %d entities", len(reports[0].Entities))
	}

	if _, err := CheckSymbolFiles(context.Background(), []string{file},
		nil, &Options{Component: "("}); err == nil {
		t.Error("bad pattern should be rejected")
	}
}
