package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

func symbolBlock(name, extends string, pin2Y float64, pin2Type string) string {
	if extends != "" {
		return fmt.Sprintf(`  (symbol %q
    (extends %q)
    (property "Reference" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))
    (property "Value" %q (at 0 0 0) (effects (font (size 1.27 1.27))))
  )
`, name, extends, name)
	}
	return fmt.Sprintf(`  (symbol %q
    (in_bom yes)
    (on_board yes)
    (property "Reference" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))
    (property "Value" %q (at 0 0 0) (effects (font (size 1.27 1.27))))
    (symbol "%s_1_1"
      (pin passive line
        (at 0 3.81 270)
        (length 1.27)
        (name "~" (effects (font (size 1.27 1.27))))
        (number "1" (effects (font (size 1.27 1.27))))
      )
      (pin %s line
        (at 0 %v 90)
        (length 1.27)
        (name "~" (effects (font (size 1.27 1.27))))
        (number "2" (effects (font (size 1.27 1.27))))
      )
    )
  )
`, name, name, name, pin2Type, pin2Y)
}

func libraryText(blocks ...string) string {
	text := "(kicad_symbol_lib\n  (version 20251024)\n  (generator \"klcheck\")\n"
	for _, b := range blocks {
		text += b
	}
	return text + ")\n"
}

func writeLib(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func diffFor(t *testing.T, diffs []*LibraryDiff, name string) *SymbolDiff {
	t.Helper()
	for _, lib := range diffs {
		for _, sd := range lib.Symbols {
			if sd.Name == name {
				return sd
			}
		}
	}
	t.Fatalf("no diff for symbol %s", name)
	return nil
}

func TestCompareClassification(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	writeLib(t, oldDir, "Device.kicad_sym", libraryText(
		symbolBlock("C", "", -3.81, "passive"),
		symbolBlock("D", "", -3.81, "passive"),
		symbolBlock("R", "", -3.81, "passive"),
		symbolBlock("R_US", "R", 0, ""),
	))
	writeLib(t, newDir, "Device.kicad_sym", libraryText(
		symbolBlock("C", "", -3.81, "passive"),
		symbolBlock("L", "", -3.81, "passive"),
		symbolBlock("R", "", -5.08, "passive"),
		symbolBlock("R_US", "R", 0, ""),
	))

	oldLibs, err := CollectLibraries([]string{oldDir})
	if err != nil {
		t.Fatal(err)
	}
	newLibs, err := CollectLibraries([]string{newDir})
	if err != nil {
		t.Fatal(err)
	}

	diffs, err := Compare(oldLibs, newLibs, &Options{CheckDerived: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 1 || diffs[0].Status != Changed {
		t.Fatalf("library diff: %+v", diffs)
	}

	want := map[string]Status{
		"C": Unchanged, "D": Removed, "L": Added, "R": Changed, "R_US": Changed,
	}
	if len(diffs[0].Symbols) != len(want) {
		t.Fatalf("got %d symbol diffs, want %d", len(diffs[0].Symbols), len(want))
	}
	for name, status := range want {
		if sd := diffFor(t, diffs, name); sd.Status != status {
			t.Errorf("%s: status %v, want %v", name, sd.Status, status)
		}
	}
	if sd := diffFor(t, diffs, "R_US"); !sd.Inherited {
		t.Error("R_US should be marked as an inherited change")
	}
	if sd := diffFor(t, diffs, "R"); sd.Inherited {
		t.Error("R changed on its own, not via inheritance")
	}

	added, removed, changed, unchanged, _, _ := Totals(diffs)
	if added+removed+changed+unchanged != 5 {
		t.Errorf("verdicts sum to %d, want 5", added+removed+changed+unchanged)
	}
}

func TestCompareWithoutDerivedPropagation(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	writeLib(t, oldDir, "Device.kicad_sym", libraryText(
		symbolBlock("R", "", -3.81, "passive"),
		symbolBlock("R_US", "R", 0, ""),
	))
	writeLib(t, newDir, "Device.kicad_sym", libraryText(
		symbolBlock("R", "", -5.08, "passive"),
		symbolBlock("R_US", "R", 0, ""),
	))

	oldLibs, _ := CollectLibraries([]string{oldDir})
	newLibs, _ := CollectLibraries([]string{newDir})

	diffs, err := Compare(oldLibs, newLibs, &Options{IncludeDerived: true})
	if err != nil {
		t.Fatal(err)
	}
	if sd := diffFor(t, diffs, "R_US"); sd.Status != Unchanged {
		t.Errorf("R_US status %v without propagation, want unchanged", sd.Status)
	}
}

func TestCompareIdenticalLibraries(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	text := libraryText(symbolBlock("R", "", -3.81, "passive"))
	writeLib(t, oldDir, "Device.kicad_sym", text)
	writeLib(t, newDir, "Device.kicad_sym", text)

	oldLibs, _ := CollectLibraries([]string{oldDir})
	newLibs, _ := CollectLibraries([]string{newDir})
	diffs, err := Compare(oldLibs, newLibs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diffs[0].Status != Unchanged || len(diffs[0].Symbols) != 0 {
		t.Errorf("identical libraries should short-circuit: %+v", diffs[0])
	}
}

func TestCompareLibraryLevel(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	text := libraryText(symbolBlock("R", "", -3.81, "passive"))
	writeLib(t, oldDir, "Old.kicad_sym", text)
	writeLib(t, newDir, "New.kicad_sym", text)

	oldLibs, _ := CollectLibraries([]string{oldDir})
	newLibs, _ := CollectLibraries([]string{newDir})
	diffs, err := Compare(oldLibs, newLibs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 2 {
		t.Fatalf("got %d library diffs, want 2", len(diffs))
	}
	// New revision libraries sort first.
	if diffs[0].Name != "New.kicad_sym" || diffs[0].Status != Added {
		t.Errorf("new library: %+v", diffs[0])
	}
	if len(diffs[0].Symbols) != 1 || diffs[0].Symbols[0].Status != Added {
		t.Errorf("created library should list its symbols as added: %+v", diffs[0].Symbols)
	}
	if diffs[1].Name != "Old.kicad_sym" || diffs[1].Status != Removed {
		t.Errorf("old library: %+v", diffs[1])
	}
}

func TestCompareParseFailure(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	text := libraryText(symbolBlock("R", "", -3.81, "passive"))
	writeLib(t, oldDir, "Device.kicad_sym", text)
	writeLib(t, newDir, "Device.kicad_sym", "(kicad_symbol_lib (version")

	oldLibs, _ := CollectLibraries([]string{oldDir})
	newLibs, _ := CollectLibraries([]string{newDir})
	diffs, err := Compare(oldLibs, newLibs, nil)
	if err == nil {
		t.Error("expected aggregate error for broken library")
	}
	if diffs[0].Failure == nil {
		t.Error("broken library should carry a failure")
	}
}

func TestComparePins(t *testing.T) {
	oldLib, err := symbol.Parse(libraryText(symbolBlock("R", "", -3.81, "no_connect")), "Device.kicad_sym")
	if err != nil {
		t.Fatal(err)
	}
	newLib, err := symbol.Parse(libraryText(symbolBlock("R", "", -5.08, "no_connect")), "Device.kicad_sym")
	if err != nil {
		t.Fatal(err)
	}

	c := comparePins(oldLib.Symbol("R"), newLib.Symbol("R"))
	if diff := cmp.Diff(PinChanges{NCMoved: 1}, c); diff != "" {
		t.Errorf("pin changes mismatch (-want +got):\n%s", diff)
	}
	if c.Breaking() || !c.NCOnly() {
		t.Errorf("moved NC pin must not count as breaking: %+v", c)
	}

	// Dropping a connected pin is breaking.
	newLib.Symbol("R").Pins = newLib.Symbol("R").Pins[:1]
	oldLib.Symbol("R").Pins[1].EType = "passive"
	c = comparePins(oldLib.Symbol("R"), newLib.Symbol("R"))
	if c.Missing != 1 || !c.Breaking() {
		t.Errorf("pin changes: %+v", c)
	}
}

func TestCompareDesignBreaking(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	writeLib(t, oldDir, "Device.kicad_sym", libraryText(symbolBlock("R", "", -3.81, "passive")))
	writeLib(t, newDir, "Device.kicad_sym", libraryText(symbolBlock("R", "", -5.08, "passive")))

	oldLibs, _ := CollectLibraries([]string{oldDir})
	newLibs, _ := CollectLibraries([]string{newDir})
	diffs, err := Compare(oldLibs, newLibs, &Options{DesignBreaking: true})
	if err != nil {
		t.Fatal(err)
	}
	sd := diffFor(t, diffs, "R")
	if sd.Pins == nil || sd.Pins.Moved != 1 {
		t.Fatalf("pin analysis missing: %+v", sd.Pins)
	}
	_, _, _, _, breaking, _ := Totals(diffs)
	if breaking != 1 {
		t.Errorf("breaking = %d, want 1", breaking)
	}
}

func TestCompareRuleCheck(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	writeLib(t, oldDir, "Device.kicad_sym", libraryText(symbolBlock("R", "", -3.81, "passive")))
	writeLib(t, newDir, "Device.kicad_sym", libraryText(
		symbolBlock("L", "", -3.81, "passive"),
		symbolBlock("R", "", -3.81, "passive"),
	))

	failAll := klc.SymbolRule{
		Name:        "S3.1",
		Description: "always fails",
		Check: func(ctx *klc.SymbolContext, r *klc.Result) {
			r.Error("boom")
		},
	}

	oldLibs, _ := CollectLibraries([]string{oldDir})
	newLibs, _ := CollectLibraries([]string{newDir})
	diffs, err := Compare(oldLibs, newLibs, &Options{Rules: []klc.SymbolRule{failAll}})
	if err != nil {
		t.Fatal(err)
	}
	if sd := diffFor(t, diffs, "L"); sd.Check == nil || sd.Check.ErrorCount() != 1 {
		t.Errorf("added symbol should be rule-checked: %+v", sd.Check)
	}
	if sd := diffFor(t, diffs, "R"); sd.Check != nil {
		t.Error("unchanged symbol must not be rule-checked")
	}
}

func TestCompareMissingFootprint(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	fpDir := t.TempDir()

	withFootprint := func(pin1Y float64) string {
		return libraryText(fmt.Sprintf(`  (symbol "R"
    (in_bom yes)
    (on_board yes)
    (property "Reference" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))
    (property "Value" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))
    (property "Footprint" "Resistor_SMD:R_0805" (at 0 0 0) (hide yes) (effects (font (size 1.27 1.27))))
    (symbol "R_1_1"
      (pin passive line
        (at 0 %v 270)
        (length 1.27)
        (name "~" (effects (font (size 1.27 1.27))))
        (number "1" (effects (font (size 1.27 1.27))))
      )
    )
  )
`, pin1Y))
	}
	writeLib(t, oldDir, "Device.kicad_sym", withFootprint(-3.81))
	writeLib(t, newDir, "Device.kicad_sym", withFootprint(-5.08))

	oldLibs, _ := CollectLibraries([]string{oldDir})
	newLibs, _ := CollectLibraries([]string{newDir})
	diffs, err := Compare(oldLibs, newLibs, &Options{FootprintsDir: fpDir})
	if err != nil {
		t.Fatal(err)
	}
	if sd := diffFor(t, diffs, "R"); sd.MissingFootprint != "Resistor_SMD:R_0805" {
		t.Errorf("missing footprint not flagged: %+v", sd)
	}

	if err := os.MkdirAll(filepath.Join(fpDir, "Resistor_SMD.pretty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fpDir, "Resistor_SMD.pretty", "R_0805.kicad_mod"), []byte("(footprint)"), 0o644); err != nil {
		t.Fatal(err)
	}
	diffs, err = Compare(oldLibs, newLibs, &Options{FootprintsDir: fpDir})
	if err != nil {
		t.Fatal(err)
	}
	if sd := diffFor(t, diffs, "R"); sd.MissingFootprint != "" {
		t.Errorf("existing footprint flagged as missing: %+v", sd)
	}
}
