package symrules

import (
	"strconv"
	"strings"
	"testing"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

func run(t *testing.T, rule string, sym *symbol.Symbol) *klc.Result {
	t.Helper()
	for _, r := range All() {
		if r.Name == rule {
			res := klc.NewResult(r.Name, r.Description)
			r.Check(&klc.SymbolContext{Symbol: sym}, res)
			return res
		}
	}
	t.Fatalf("no rule %s registered", rule)
	return nil
}

// testPin builds a pin on the mil grid with the default 50mil text.
func testPin(name, number, etype string, xMil, yMil, rotation float64) *symbol.Pin {
	p := &symbol.Pin{
		Name:         name,
		Number:       number,
		EType:        etype,
		PosX:         symbol.MilToMM(xMil),
		PosY:         symbol.MilToMM(yMil),
		Rotation:     rotation,
		Shape:        "line",
		Length:       symbol.MilToMM(100),
		NameEffect:   symbol.DefaultTextEffect(),
		NumberEffect: symbol.DefaultTextEffect(),
		Unit:         1,
		DeMorgan:     1,
	}
	if n, err := strconv.Atoi(number); err == nil {
		p.NumberInt = &n
	}
	return p
}

func TestAllSortedAndNamed(t *testing.T) {
	rules := All()
	if len(rules) < 15 {
		t.Fatalf("registry holds %d rules", len(rules))
	}
	for _, r := range rules {
		if r.Check == nil {
			t.Errorf("rule %s has no check", r.Name)
		}
		if r.Description == "" {
			t.Errorf("rule %s has no description", r.Name)
		}
	}
}

func TestNameChars(t *testing.T) {
	ok := symbol.NewSymbol("LM358", "Amplifier_Operational")
	if res := run(t, "G1.1", ok); res.HasErrors() {
		t.Errorf("LM358 flagged: %v", res.Entries)
	}

	power := symbol.NewSymbol("#PWR", "power")
	if res := run(t, "G1.1", power); res.HasErrors() {
		t.Error("leading # should be allowed")
	}

	bad := symbol.NewSymbol("bad name!", "Device")
	res := run(t, "G1.1", bad)
	if !res.HasErrors() {
		t.Fatal("space and ! should be illegal")
	}
	if !strings.Contains(res.Entries[0].Extras[0], "' !'") {
		t.Errorf("extra = %q", res.Entries[0].Extras[0])
	}
}

func TestOriginCentered(t *testing.T) {
	sym := symbol.NewSymbol("U1", "Device")
	sym.UnitCount = 1
	sym.Pins = []*symbol.Pin{
		testPin("A", "1", "passive", -100, 300, 0),
		testPin("B", "2", "passive", -100, 100, 0),
	}
	res := run(t, "S3.1", sym)
	if !res.HasErrors() {
		t.Error("pins centered at (−100, 200) should fail")
	}

	// 50mil offset on a small symbol is tolerated outright.
	sym.Pins = []*symbol.Pin{
		testPin("A", "1", "passive", 0, 150, 0),
		testPin("B", "2", "passive", 0, -250, 0),
	}
	if res := run(t, "S3.1", sym); res.HasOutput() {
		t.Errorf("50mil offset on a 400mil symbol is fine: %v", res.Entries)
	}

	// The same offset on a large symbol is worth a warning.
	sym.Pins = []*symbol.Pin{
		testPin("A", "1", "passive", 0, 450, 0),
		testPin("B", "2", "passive", 0, -550, 0),
	}
	res = run(t, "S3.1", sym)
	if res.HasErrors() {
		t.Errorf("50mil offset should not be an error: %v", res.Entries)
	}
	if !res.HasWarnings() {
		t.Error("50mil offset on a 1000mil span should warn")
	}

	derived := symbol.NewSymbol("U2", "Device")
	derived.Extends = "U1"
	derived.Pins = []*symbol.Pin{testPin("A", "1", "passive", 123, 0, 0)}
	if res := run(t, "S3.1", derived); res.HasOutput() {
		t.Error("derived symbols are not checked")
	}
}

func TestTextSizes(t *testing.T) {
	sym := symbol.NewSymbol("R", "Device")
	sym.Pins = []*symbol.Pin{testPin("~", "1", "passive", 0, 100, 270)}
	if res := run(t, "S3.2", sym); res.HasOutput() {
		t.Errorf("default sizes should pass: %v", res.Entries)
	}

	sym.Properties[0].Effect.SizeX = symbol.MilToMM(60)
	if res := run(t, "S3.2", sym); !res.HasErrors() {
		t.Error("60mil field should fail")
	}

	sym.Properties[0].Effect.SizeX = 1.27
	sym.Pins[0].NameEffect = symbol.TextEffectMil(40)
	res := run(t, "S3.2", sym)
	if res.HasErrors() {
		t.Errorf("40mil pin name is in range: %v", res.Entries)
	}
	if !res.HasWarnings() {
		t.Error("40mil pin name should warn toward 50mil")
	}

	sym.Pins[0].NameEffect = symbol.TextEffectMil(10)
	if res := run(t, "S3.2", sym); !res.HasErrors() {
		t.Error("10mil pin name is below range")
	}
}

func TestPinNameOffset(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	sym.PinNamesOffset = symbol.MilToMM(20)
	if res := run(t, "S3.6", sym); res.HasOutput() {
		t.Errorf("20mil offset is the preferred value: %v", res.Entries)
	}

	sym.PinNamesOffset = symbol.MilToMM(60)
	if res := run(t, "S3.6", sym); !res.HasErrors() {
		t.Error("60mil offset must fail")
	}

	sym.PinNamesOffset = symbol.MilToMM(10)
	if res := run(t, "S3.6", sym); !res.HasWarnings() {
		t.Error("10mil offset should warn")
	}

	sym.PinNamesOffset = 0
	if res := run(t, "S3.6", sym); res.HasOutput() {
		t.Error("zero offset places names outside, no check applies")
	}

	sym.PinNamesOffset = symbol.MilToMM(60)
	sym.HidePinNames = true
	if res := run(t, "S3.6", sym); res.HasOutput() {
		t.Error("hidden names make the offset irrelevant")
	}
}

func TestPinRequirements(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	for i, mil := range []float64{300, 200, 100, 0, -100} {
		sym.Pins = append(sym.Pins, testPin("P", string(rune('1'+i)), "passive", -300, mil, 0))
	}
	if res := run(t, "S4.1", sym); res.HasOutput() {
		t.Errorf("clean 100mil pins should pass: %v", res.Entries)
	}

	// Off-grid pin.
	offgrid := testPin("X", "9", "passive", 130, 0, 180)
	sym.Pins = append(sym.Pins, offgrid)
	if res := run(t, "S4.1", sym); !res.HasErrors() {
		t.Error("130mil position is off the 100mil grid")
	}
	sym.Pins = sym.Pins[:5]

	// Short pin.
	short := testPin("S", "9", "passive", 100, 0, 180)
	short.Length = symbol.MilToMM(40)
	sym.Pins = append(sym.Pins, short)
	if res := run(t, "S4.1", sym); !res.HasErrors() {
		t.Error("40mil pin is too short for a standard symbol")
	}
	sym.Pins = sym.Pins[:5]

	// Duplicate number.
	dup := testPin("D", "1", "passive", 100, 0, 180)
	sym.Pins = append(sym.Pins, dup)
	res := run(t, "S4.1", sym)
	found := false
	for _, e := range res.Entries {
		if strings.Contains(e.Message, "duplicated") {
			found = true
		}
	}
	if !found {
		t.Error("duplicate pin 1 not reported")
	}
}

func TestPinGrouping(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	// GND pointing up is correct; VCC pointing down (top edge) is
	// correct when there are no power outputs.
	sym.Pins = []*symbol.Pin{
		testPin("GND", "1", "power_in", 0, -300, 90),
		testPin("VCC", "2", "power_in", 0, 300, 270),
	}
	if res := run(t, "S4.2", sym); res.HasOutput() {
		t.Errorf("good power placement flagged: %v", res.Entries)
	}

	sym.Pins[0].Rotation = 180
	if res := run(t, "S4.2", sym); !res.HasWarnings() {
		t.Error("sideways GND should warn")
	}

	sym.Pins[0].Rotation = 90
	sym.Pins[1].Rotation = 0
	if res := run(t, "S4.2", sym); !res.HasErrors() {
		t.Error("VCC not at top should fail")
	}

	// With a power output the inputs belong on the left instead.
	sym.Pins = []*symbol.Pin{
		testPin("VIN", "1", "power_in", -300, 0, 0),
		testPin("VOUT", "2", "power_out", 300, 0, 180),
	}
	if res := run(t, "S4.2", sym); res.HasOutput() {
		t.Errorf("regulator layout flagged: %v", res.Entries)
	}
}

func TestPinStacks(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	sym.UnitCount = 1
	a := testPin("GND", "1", "power_in", 0, -300, 90)
	b := testPin("GND", "2", "passive", 0, -300, 90)
	b.Hidden = true
	sym.Pins = []*symbol.Pin{a, b}
	if res := run(t, "S4.3", sym); res.HasErrors() {
		t.Errorf("power_in over hidden passive is the canonical stack: %v", res.Entries)
	}

	// NC pin in a stack is always an error.
	nc := testPin("NC", "3", "no_connect", 0, -300, 90)
	sym.Pins = append(sym.Pins, nc)
	if res := run(t, "S4.3", sym); !res.HasErrors() {
		t.Error("stacked NC pin must fail")
	}
	sym.Pins = sym.Pins[:2]

	// Two visible pins in one stack.
	b.Hidden = false
	b.Name = "GND"
	b.EType = "power_in"
	res := run(t, "S4.3", sym)
	foundVisible := false
	for _, e := range res.Entries {
		if strings.Contains(e.Message, "exactly one (1) visible pin") {
			foundVisible = true
		}
	}
	if !foundVisible {
		t.Errorf("double visible stack not reported: %v", res.Entries)
	}
}

func TestPinTypes(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	sym.UnitCount = 1
	sym.Pins = []*symbol.Pin{testPin("VCC", "1", "input", 0, 300, 270)}
	if res := run(t, "S4.4", sym); !res.HasErrors() {
		t.Error("VCC as input should fail")
	}

	sym.Pins = []*symbol.Pin{testPin("SDA", "1", "input", -300, 0, 0)}
	res := run(t, "S4.4", sym)
	if res.HasErrors() {
		t.Errorf("suggestions are warnings only: %v", res.Entries)
	}
	if !res.HasWarnings() {
		t.Error("SDA should suggest bidirectional")
	}

	inverted := testPin("~{RESET}", "1", "input", -300, 0, 0)
	inverted.Shape = "inverted"
	sym.Pins = []*symbol.Pin{inverted}
	if res := run(t, "S4.4", sym); !res.HasErrors() {
		t.Error("double inversion must fail")
	}
}

func TestMissingPinNumbers(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	sym.Pins = []*symbol.Pin{
		testPin("A", "1", "passive", 0, 0, 0),
		testPin("B", "4", "passive", 0, -100, 0),
	}
	res := run(t, "S4.5", sym)
	if !res.HasWarnings() {
		t.Fatal("missing pins 2, 3 should warn")
	}
	if !strings.Contains(res.Entries[0].Message, "2, 3") {
		t.Errorf("message = %q", res.Entries[0].Message)
	}
}

func TestNCPins(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	nc := testPin("NC", "5", "passive", 300, 0, 180)
	sym.Pins = []*symbol.Pin{nc}
	res := run(t, "S4.6", sym)
	if !res.HasErrors() {
		t.Error("NC pin with passive type must fail")
	}
	if !res.HasWarnings() {
		t.Error("visible NC pin should warn")
	}

	nc.EType = "no_connect"
	nc.Hidden = true
	if res := run(t, "S4.6", sym); res.HasOutput() {
		t.Errorf("hidden no_connect NC is correct: %v", res.Entries)
	}
}

func TestFootprintLink(t *testing.T) {
	sym := symbol.NewSymbol("R", "Device")
	sym.Pins = []*symbol.Pin{testPin("~", "1", "passive", 0, 100, 270)}
	sym.Property("Footprint").Value = "Resistor_SMD"
	if res := run(t, "S5.1", sym); !res.HasErrors() {
		t.Error("footprint without Library: prefix must fail")
	}

	sym.Property("Footprint").Value = "Resistor_SMD:R_0805_2012Metric"
	if res := run(t, "S5.1", sym); res.HasOutput() {
		t.Errorf("well-formed footprint link flagged: %v", res.Entries)
	}
}

func TestFootprintFilters(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	sym.Pins = []*symbol.Pin{testPin("A", "1", "passive", 0, 100, 270)}
	sym.Property("ki_fp_filters").Value = "R?0805*"
	if res := run(t, "S5.2", sym); res.HasErrors() {
		t.Errorf("good filter flagged: %v", res.Entries)
	}

	sym.Property("ki_fp_filters").Value = "R_0805"
	res := run(t, "S5.2", sym)
	if !res.HasErrors() {
		t.Error("filter without wildcard must fail")
	}

	sym.Property("ki_fp_filters").Value = ""
	if res := run(t, "S5.2", sym); !res.HasWarnings() {
		t.Error("missing filters should warn")
	}
}

func TestMetadata(t *testing.T) {
	sym := symbol.NewSymbol("LM358", "Amplifier_Operational")
	sym.Pins = []*symbol.Pin{testPin("V+", "8", "power_in", 0, 300, 270)}
	sym.Property("Datasheet").Value = "https://www.ti.com/lit/ds/symlink/lm358.pdf"
	sym.Property("Description").Value = "Dual operational amplifier"
	sym.Property("ki_keywords").Value = "dual opamp operational-amplifier"
	if res := run(t, "S6.2", sym); res.HasErrors() {
		t.Errorf("clean metadata flagged: %v", res.Entries)
	}

	sym.Property("Value").Value = "LM358N"
	if res := run(t, "S6.2", sym); !res.HasErrors() {
		t.Error("value not matching name must fail")
	}
	sym.Property("Value").Value = "LM358"

	sym.Property("Description").Value = "Dual opamp LM358"
	if res := run(t, "S6.2", sym); !res.HasWarnings() {
		t.Error("name inside description should warn")
	}
	sym.Property("Description").Value = "Dual operational amplifier"

	sym.Property("ki_keywords").Value = "dual and single opamp operational-amplifier"
	if res := run(t, "S6.2", sym); !res.HasErrors() {
		t.Error("filler word 'and' in keywords must fail")
	}
}

func TestPowerFlag(t *testing.T) {
	sym := symbol.NewSymbol("GND", "power")
	sym.IsPower = true
	sym.Property("Reference").Value = "#PWR"
	pin := testPin("GND", "1", "power_in", 0, 0, 90)
	pin.Hidden = true
	sym.Pins = []*symbol.Pin{pin}
	if res := run(t, "S7.1", sym); res.HasOutput() {
		t.Errorf("correct power flag flagged: %v", res.Entries)
	}

	pin.Hidden = false
	pin.EType = "passive"
	res := run(t, "S7.1", sym)
	if res.ErrorCount() < 2 {
		t.Errorf("visible passive pin should raise two errors, got %v", res.Entries)
	}
}

func TestGraphicSymbol(t *testing.T) {
	sym := symbol.NewSymbol("Logo_OSHW", "Graphic")
	sym.Property("Reference").Value = "#SYM"
	sym.Property("Reference").Hidden = true
	sym.Property("Value").Hidden = true
	sym.InBom = false
	sym.OnBoard = false
	// A graphic symbol has no pins and an empty footprint field.
	if !sym.IsGraphicSymbol() {
		t.Fatal("fixture is not recognized as graphic")
	}
	if res := run(t, "S7.2", sym); res.HasOutput() {
		t.Errorf("correct graphic symbol flagged: %v", res.Entries)
	}

	sym.Pins = []*symbol.Pin{testPin("A", "1", "passive", 0, 0, 0)}
	sym.InBom = true
	if res := run(t, "S7.2", sym); res.ErrorCount() < 2 {
		t.Errorf("pins and in_bom should both fail: %v", res.Entries)
	}
}

func TestGeometry(t *testing.T) {
	sym := symbol.NewSymbol("U", "Device")
	sym.Circles = []*symbol.Circle{
		{CenterX: 0, CenterY: 0, Radius: 0.5},
		{CenterX: 0, CenterY: 0, Radius: 0.5},
	}
	res := run(t, "EC01", sym)
	if !res.HasWarnings() {
		t.Error("duplicate circle should warn")
	}

	sym.Circles = nil
	sym.Polylines = []*symbol.Polyline{
		{Points: []symbol.Point{{X: 0, Y: 0}, {X: 2.54, Y: 0.01}}},
	}
	res = run(t, "EC01", sym)
	if !res.HasWarnings() {
		t.Error("nearly-horizontal segment should warn")
	}
}

func TestFieldPlacement(t *testing.T) {
	build := func() *symbol.Symbol {
		sym := symbol.NewSymbol("U1", "Device")
		sym.UnitCount = 1
		sym.Rectangles = []*symbol.Rectangle{symbol.RectangleMil(-200, 200, 200, -200)}
		sym.Pins = []*symbol.Pin{
			testPin("A", "1", "passive", -300, 100, 0),
			testPin("B", "2", "passive", -300, -100, 0),
		}
		sym.Property("Reference").SetPosMil(0, 325, 0)
		sym.Property("Value").SetPosMil(0, 250, 0)
		sym.Property("Footprint").SetPosMil(0, -250, 0)
		return sym
	}

	sym := build()
	if res := run(t, "EC02", sym); res.HasOutput() {
		t.Fatalf("well placed fields flagged: %v", res.Entries)
	}

	warned := func(res *klc.Result, substr string) bool {
		for _, e := range res.Entries {
			if strings.Contains(e.Message, substr) {
				return true
			}
		}
		return false
	}

	sym = build()
	sym.Property("Reference").SetPosMil(100, 325, 0)
	res := run(t, "EC02", sym)
	if !warned(res, "field: reference") {
		t.Fatalf("misplaced reference not flagged: %v", res.Entries)
	}

	// A pin entering from the top pushes the reference to the left of
	// it, right aligned.
	sym = build()
	sym.Pins = append(sym.Pins, testPin("C", "3", "passive", 200, 300, 270))
	res = run(t, "EC02", sym)
	if !warned(res, "recommended @ (100, 325)") {
		t.Fatalf("centered reference accepted with top pin: %v", res.Entries)
	}
	if !warned(res, "justification center, recommended right") {
		t.Fatalf("alignment not flagged: %v", res.Entries)
	}

	// No outline, no recommendation.
	sym = build()
	sym.Rectangles = nil
	sym.Property("Reference").SetPosMil(500, 500, 0)
	if res := run(t, "EC02", sym); res.HasOutput() {
		t.Fatalf("symbol without body outline flagged: %v", res.Entries)
	}
}
