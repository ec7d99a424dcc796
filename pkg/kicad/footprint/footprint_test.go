package footprint

import (
	"errors"
	"strings"
	"testing"
)

const chipResistor = `(footprint "R_0805_2012Metric"
  (version 20240108)
  (generator "pcbnew")
  (layer "F.Cu")
  (descr "Resistor SMD 0805 (2012 Metric), square (rectangular) end terminal, IPC_7351 nominal, (Body size source: IPC-SM-782 page 72, https://www.pcb-3d.com/wordpress/wp-content/uploads/ipc-sm-782a_amendment_1_and_2.pdf), generated with kicad-footprint-generator")
  (tags "resistor")
  (attr smd)
  (property "Reference" "REF**"
    (at 0 -1.65 0)
    (layer "F.SilkS")
    (effects
      (font
        (size 1 1)
        (thickness 0.15)
      )
    )
  )
  (property "Value" "R_0805_2012Metric"
    (at 0 1.65 0)
    (layer "F.Fab")
    (effects
      (font
        (size 1 1)
        (thickness 0.15)
      )
    )
  )
  (fp_line
    (start -0.227064 -0.735)
    (end 0.227064 -0.735)
    (stroke
      (width 0.12)
      (type solid)
    )
    (layer "F.SilkS")
  )
  (fp_line
    (start -1 -0.625)
    (end 1 -0.625)
    (stroke
      (width 0.1)
      (type solid)
    )
    (layer "F.Fab")
  )
  (fp_line
    (start -1 0.625)
    (end -1 -0.625)
    (stroke
      (width 0.1)
      (type solid)
    )
    (layer "F.Fab")
  )
  (fp_text user "${REFERENCE}"
    (at 0 0 0)
    (layer "F.Fab")
    (effects
      (font
        (size 0.5 0.5)
        (thickness 0.08)
      )
    )
  )
  (pad "1" smd roundrect
    (at -0.9125 0)
    (size 1.025 1.4)
    (layers "F.Cu" "F.Paste" "F.Mask")
    (roundrect_rratio 0.243902)
  )
  (pad "2" smd roundrect
    (at 0.9125 0)
    (size 1.025 1.4)
    (layers "F.Cu" "F.Paste" "F.Mask")
    (roundrect_rratio 0.243902)
  )
  (model "${KICAD9_3DMODEL_DIR}/Resistor_SMD.3dshapes/R_0805_2012Metric.step"
    (offset
      (xyz 0 0 0)
    )
    (scale
      (xyz 1 1 1)
    )
    (rotate
      (xyz 0 0 0)
    )
  )
)
`

func parseFootprint(t *testing.T, data string) *Footprint {
	t.Helper()
	fp, err := Parse(data, "Resistor_SMD.pretty/R_0805_2012Metric.kicad_mod")
	if err != nil {
		t.Fatalf("parse footprint: %v", err)
	}
	return fp
}

func TestLoadBasicFootprint(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	if fp.Name != "R_0805_2012Metric" {
		t.Errorf("name = %q", fp.Name)
	}
	if fp.Type != "smd" {
		t.Errorf("type = %q, want smd", fp.Type)
	}
	if fp.Layer != "F.Cu" {
		t.Errorf("layer = %q", fp.Layer)
	}
	if fp.Tags != "resistor" {
		t.Errorf("tags = %q", fp.Tags)
	}
	if len(fp.Pads) != 2 {
		t.Fatalf("got %d pads, want 2", len(fp.Pads))
	}
	if len(fp.Lines) != 3 {
		t.Errorf("got %d lines, want 3", len(fp.Lines))
	}
	if len(fp.Models) != 1 {
		t.Fatalf("got %d models, want 1", len(fp.Models))
	}
}

func TestPadDetails(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	p := fp.Pads[0]
	if p.Number != "1" || p.Type != "smd" || p.Shape != "roundrect" {
		t.Errorf("pad basics = %s/%s/%s", p.Number, p.Type, p.Shape)
	}
	if p.PosX != -0.9125 {
		t.Errorf("posx = %v", p.PosX)
	}
	if p.SizeX != 1.025 || p.SizeY != 1.4 {
		t.Errorf("size = %v x %v", p.SizeX, p.SizeY)
	}
	if len(p.Layers) != 3 || p.Layers[0] != "F.Cu" {
		t.Errorf("layers = %v", p.Layers)
	}
}

func TestFieldsAndUserText(t *testing.T) {
	fp := parseFootprint(t, chipResistor)

	ref := fp.Reference()
	if ref == nil {
		t.Fatal("Reference field missing")
	}
	if ref.Layer != "F.SilkS" {
		t.Errorf("reference layer = %q", ref.Layer)
	}
	if ref.Font.Height != 1 || ref.Font.Thickness != 0.15 {
		t.Errorf("reference font = %+v", ref.Font)
	}

	val := fp.Value()
	if val == nil || val.Text != "R_0805_2012Metric" {
		t.Fatal("Value field wrong or missing")
	}

	users := fp.UserTexts()
	if len(users) != 1 || users[0].Text != "${REFERENCE}" {
		t.Fatalf("user texts = %+v", users)
	}
	if users[0].Layer != "F.Fab" {
		t.Errorf("user text layer = %q", users[0].Layer)
	}
}

func TestFilterPadsAndGraphs(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	if got := len(fp.FilterPads("smd")); got != 2 {
		t.Errorf("smd pads = %d", got)
	}
	if got := len(fp.FilterPads("thru_hole")); got != 0 {
		t.Errorf("tht pads = %d", got)
	}
	if got := len(fp.Graphs("F.Fab")); got != 2 {
		t.Errorf("fab graphs = %d", got)
	}
	if got := len(fp.Graphs("")); got != 3 {
		t.Errorf("all graphs = %d", got)
	}
}

func TestPadsCenter(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	x, y, ok := fp.PadsCenter()
	if !ok {
		t.Fatal("no pads center")
	}
	if x != 0 || y != 0 {
		t.Errorf("pads center = (%v, %v), want origin", x, y)
	}
}

func TestModelDetails(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	m := fp.Models[0]
	if !strings.HasPrefix(m.Path, "${KICAD9_3DMODEL_DIR}/") {
		t.Errorf("model path = %q", m.Path)
	}
	if m.Offset != [3]float64{0, 0, 0} {
		t.Errorf("offset = %v", m.Offset)
	}
	if m.Scale != [3]float64{1, 1, 1} {
		t.Errorf("scale = %v", m.Scale)
	}
	if m.Hidden {
		t.Error("model must not be hidden")
	}
}

func TestLibraryDir(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	if got := fp.LibraryDir(); got != "Resistor_SMD" {
		t.Errorf("library dir = %q", got)
	}
}

func TestVirtualDetection(t *testing.T) {
	data := `(footprint "Mount"
  (version 20240108)
  (generator "pcbnew")
  (layer "F.Cu")
  (attr exclude_from_pos_files exclude_from_bom)
)`
	fp, err := Parse(data, "x.kicad_mod")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !fp.IsVirtual() {
		t.Error("footprint excluded from bom and pos must count as virtual")
	}
	if fp.Type != "" {
		t.Errorf("type = %q, want unspecified", fp.Type)
	}
}

func TestDumpStable(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	first := fp.Dump()
	refp, err := Parse(first, fp.Filename)
	if err != nil {
		t.Fatalf("reparse dumped footprint: %v", err)
	}
	if second := refp.Dump(); first != second {
		t.Error("dump is not stable across a reload")
	}
}

func TestRawPreserved(t *testing.T) {
	fp := parseFootprint(t, chipResistor)
	out := fp.Dump()
	if !strings.Contains(out, "(roundrect_rratio 0.243902)") {
		t.Error("pad roundrect ratio was dropped on dump")
	}
}

func TestNotAFootprint(t *testing.T) {
	_, err := Parse(`(kicad_symbol_lib (version 20251024))`, "x.kicad_mod")
	var ffe *FileFormatError
	if !errors.As(err, &ffe) {
		t.Fatalf("expected *FileFormatError, got %T: %v", err, err)
	}
}
