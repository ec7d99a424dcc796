package symbol

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// EmbeddedFile is a file embedded in a symbol, e.g. a simulation model
// or a font.
type EmbeddedFile struct {
	Name     string
	Type     string
	Data     string // base64 of the compressed content
	Checksum string
}

func (f *EmbeddedFile) ToNode() *sexp.Node {
	return sexp.Key("file",
		sexp.Key("name", sexp.Str(f.Name)),
		sexp.Key("type", sexp.Atom(f.Type)),
		sexp.Key("data", sexp.Atom(f.Data)),
		sexp.Key("checksum", sexp.Str(f.Checksum)),
	)
}

func embeddedFileFromNode(n *sexp.Node) *EmbeddedFile {
	return &EmbeddedFile{
		Name:     sexp.ChildString(n, "name"),
		Type:     sexp.ChildString(n, "type"),
		Data:     sexp.ChildString(n, "data"),
		Checksum: sexp.ChildString(n, "checksum"),
	}
}

// Symbol is one schematic symbol in a library. Geometry is flattened:
// pins and graphic items carry their unit and body-style (DeMorgan)
// index instead of nesting in subsymbol groups.
type Symbol struct {
	Name     string
	LibName  string
	Filename string

	Properties []*Property
	Pins       []*Pin
	Rectangles []*Rectangle
	Circles    []*Circle
	Arcs       []*Arc
	Polylines  []*Polyline
	Beziers    []*Bezier
	Texts      []*Text

	PinNamesOffset float64
	HidePinNames   bool
	HidePinNumbers bool
	IsPower        bool
	ExcludeFromSim bool
	InBom          bool
	OnBoard        bool
	Extends        string
	UnitCount      int
	DeMorganCount  int
	EmbeddedFonts  bool
	Files          []*EmbeddedFile
	UnitNames      map[int]string

	// Unknown top-level children survive load and dump untouched so a
	// checker built for today's format does not destroy tomorrow's.
	// UnitRaw holds the same for items found inside unit subsymbols.
	Raw     []*sexp.Node
	UnitRaw []*RawItem

	// Resolved inheritance chain: direct parent first, root last.
	// Populated by Library.ResolveInheritance.
	inheritance []*Symbol
}

// RawItem is an unrecognized item inside a unit subsymbol, kept with
// its unit and body-style group.
type RawItem struct {
	Node     *sexp.Node
	Unit     int
	DeMorgan int
}

func (r *RawItem) ToNode() *sexp.Node { return r.Node }

func (r *RawItem) onUnit(unit, demorgan int) bool {
	return r.Unit == unit && r.DeMorgan == demorgan
}

// NewSymbol builds an empty symbol with the standard default fields.
func NewSymbol(name, libname string) *Symbol {
	s := &Symbol{
		Name:           name,
		LibName:        libname,
		Filename:       libname + ".kicad_sym",
		PinNamesOffset: 0.508,
		InBom:          true,
		OnBoard:        true,
		UnitNames:      map[int]string{},
	}
	defaults := []struct {
		name   string
		value  string
		hidden bool
	}{
		{"Reference", "U", false},
		{"Value", name, false},
		{"Footprint", "", true},
		{"Datasheet", "", true},
		{"Description", "", true},
		{"ki_keywords", "", true},
		{"ki_fp_filters", "", true},
	}
	for _, d := range defaults {
		p := NewProperty(d.name, d.value)
		p.Hidden = d.hidden
		s.Properties = append(s.Properties, p)
	}
	return s
}

// Property returns the named property or nil.
func (s *Symbol) Property(name string) *Property {
	for _, p := range s.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PropertyValue returns the value of the named property, or "".
func (s *Symbol) PropertyValue(name string) string {
	if p := s.Property(name); p != nil {
		return p.Value
	}
	return ""
}

// Reference returns the reference designator prefix, e.g. "R" or "#PWR".
func (s *Symbol) Reference() string { return s.PropertyValue("Reference") }

// FPFilters returns the footprint filter entries.
func (s *Symbol) FPFilters() []string {
	p := s.Property("ki_fp_filters")
	if p == nil || p.Value == "" {
		return nil
	}
	return strings.Fields(p.Value)
}

// IsGraphicSymbol reports whether the symbol is a drawing-only symbol
// such as a logo: it has no pins or carries the #SYM reference.
func (s *Symbol) IsGraphicSymbol() bool {
	if s.Extends != "" {
		return false
	}
	return len(s.Pins) == 0 || s.Reference() == "#SYM"
}

// IsPowerSymbol reports whether the symbol is a power-flag symbol.
func (s *Symbol) IsPowerSymbol() bool { return s.IsPower }

// IsLocked reports whether the symbol carries the ki_locked marker.
func (s *Symbol) IsLocked() bool { return s.Property("ki_locked") != nil }

// IsDerived reports whether the symbol extends another one.
func (s *Symbol) IsDerived() bool { return s.Extends != "" }

// Parent returns the direct parent of a derived symbol, or the symbol
// itself for root symbols. Requires ResolveInheritance.
func (s *Symbol) Parent() *Symbol {
	if len(s.inheritance) > 0 {
		return s.inheritance[0]
	}
	return s
}

// Root returns the root of the inheritance chain, or the symbol itself.
func (s *Symbol) Root() *Symbol {
	if len(s.inheritance) > 0 {
		return s.inheritance[len(s.inheritance)-1]
	}
	return s
}

// InheritanceDepth returns the number of extends hops to the root.
func (s *Symbol) InheritanceDepth() int { return len(s.inheritance) }

// PinsByName returns all pins with the given name.
func (s *Symbol) PinsByName(name string) []*Pin {
	var pins []*Pin
	for _, p := range s.Pins {
		if p.Name == name {
			pins = append(pins, p)
		}
	}
	return pins
}

// PinByNumber returns the pin with the given number, or nil.
func (s *Symbol) PinByNumber(number string) *Pin {
	for _, p := range s.Pins {
		if p.Number == number {
			return p
		}
	}
	return nil
}

// PinStacks groups pins by position, expanded per unit and body style.
// Pins on unit or style 0 are shared and appear in every concrete
// unit's stack.
func (s *Symbol) PinStacks() map[string][]*Pin {
	stacks := map[string][]*Pin{}
	for _, pin := range s.Pins {
		units := []int{pin.Unit}
		if pin.Unit == 0 {
			units = units[:0]
			for u := 1; u <= s.UnitCount; u++ {
				units = append(units, u)
			}
		}
		styles := []int{pin.DeMorgan}
		if pin.DeMorgan == 0 {
			styles = styles[:0]
			for d := 1; d <= s.DeMorganCount; d++ {
				styles = append(styles, d)
			}
		}
		for _, d := range styles {
			for _, u := range units {
				loc := fmt.Sprintf("x%v_y%v_u%d_d%d", pin.PosX, pin.PosY, u, d)
				stacks[loc] = append(stacks[loc], pin)
			}
		}
	}
	return stacks
}

// CenterRectangle returns the rectangle-shaped outline closest to the
// origin, as a polyline, or nil when the symbol has none. When units
// is non-nil only outlines on those units are considered.
func (s *Symbol) CenterRectangle(units []int) *Polyline {
	inUnits := func(u int) bool {
		if units == nil {
			return true
		}
		for _, want := range units {
			if u == want {
				return true
			}
		}
		return false
	}

	var best *Polyline
	bestDist := math.Inf(1)
	consider := func(pl *Polyline) {
		if !inUnits(pl.Unit) {
			return
		}
		x, y := pl.Center()
		dist := math.Hypot(x, y)
		if dist < bestDist {
			bestDist = dist
			best = pl
		}
	}
	for _, r := range s.Rectangles {
		consider(r.AsPolyline())
	}
	for _, pl := range s.Polylines {
		if pl.IsRectangle() {
			consider(pl)
		}
	}
	return best
}

// LargestRectangle returns the rectangle with the largest area on the
// given units, or nil.
func (s *Symbol) LargestRectangle(units []int) *Rectangle {
	var best *Rectangle
	bestArea := 0.0
	for _, r := range s.Rectangles {
		if units != nil {
			found := false
			for _, u := range units {
				if r.Unit == u {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if r.Area() > bestArea {
			bestArea = r.Area()
			best = r
		}
	}
	return best
}

// IsSmallComponent applies the heuristic for discrete parts like
// resistors and diodes: two pins or fewer, or three to four pins with
// no rectangular outline.
func (s *Symbol) IsSmallComponent() bool {
	if len(s.Pins) <= 2 {
		return true
	}
	if len(s.Pins) <= 4 {
		units := make([]int, s.UnitCount)
		for i := range units {
			units[i] = i
		}
		return s.CenterRectangle(units) == nil
	}
	return false
}

// ToNode serializes the symbol to its library tree form, with
// subsymbol groups rebuilt per unit and body style and pins in KiCad's
// save order.
func (s *Symbol) ToNode() *sexp.Node {
	n := sexp.Key("symbol", sexp.Str(s.Name))
	if s.Extends != "" {
		n.Append(sexp.Key("extends", sexp.Str(s.Extends)))
	}

	if s.Extends == "" {
		pn := sexp.Key("pin_names")
		if s.PinNamesOffset != 0.508 {
			pn.Append(sexp.Key("offset", sexp.Float(s.PinNamesOffset)))
		}
		if s.HidePinNames {
			pn.Append(sexp.Key("hide", sexp.Atom("yes")))
		}
		if pn.Len() > 1 {
			n.Append(pn)
		}
		n.Append(sexp.Key("exclude_from_sim", sexp.Yes(s.ExcludeFromSim)))
		n.Append(sexp.Key("in_bom", sexp.Yes(s.InBom)))
		n.Append(sexp.Key("on_board", sexp.Yes(s.OnBoard)))
		if s.IsPower {
			n.Append(sexp.Key("power"))
		}
		if s.HidePinNumbers {
			n.Append(sexp.Key("pin_numbers", sexp.Key("hide", sexp.Atom("yes"))))
		}
	}

	for _, p := range s.Properties {
		n.Append(p.ToNode())
	}

	// Derived symbols inherit geometry and pins from the parent.
	if s.Extends != "" {
		n.Append(s.Raw...)
		return n
	}

	if len(s.Files) > 0 {
		files := sexp.Key("embedded_files")
		for _, f := range s.Files {
			files.Append(f.ToNode())
		}
		n.Append(files)
	}

	pins := make([]*Pin, len(s.Pins))
	copy(pins, s.Pins)
	sort.SliceStable(pins, func(i, j int) bool {
		return pinLess(pins[i], pins[j])
	})

	for d := 0; d <= s.DeMorganCount; d++ {
		for u := 0; u <= s.UnitCount; u++ {
			sub := sexp.Key("symbol", sexp.Str(fmt.Sprintf("%s_%d_%d", s.Name, u, d)))
			count := 0
			appendItems := func(nodes []*sexp.Node) {
				sub.Append(nodes...)
				count += len(nodes)
			}
			appendItems(unitNodes(s.Arcs, u, d))
			appendItems(unitNodes(s.Circles, u, d))
			appendItems(unitNodes(s.Texts, u, d))
			appendItems(unitNodes(s.Rectangles, u, d))
			appendItems(unitNodes(s.Beziers, u, d))
			appendItems(unitNodes(s.Polylines, u, d))
			appendItems(unitNodes(pins, u, d))
			appendItems(unitNodes(s.UnitRaw, u, d))
			if count == 0 {
				continue
			}
			if name, ok := s.UnitNames[u]; ok && name != "" {
				sub.Append(sexp.Key("unit_name", sexp.Str(name)))
			}
			n.Append(sub)
		}
	}

	n.Append(s.Raw...)
	n.Append(sexp.Key("embedded_fonts", sexp.Yes(s.EmbeddedFonts)))
	return n
}

// pinLess is KiCad's pin save order: position (x, then descending y),
// then number, length, rotation, shape, type and visibility.
func pinLess(a, b *Pin) bool {
	if a.PosX != b.PosX {
		return a.PosX < b.PosX
	}
	if a.PosY != b.PosY {
		return a.PosY > b.PosY
	}
	if a.Number != b.Number {
		return a.Number < b.Number
	}
	if a.Length != b.Length {
		return a.Length < b.Length
	}
	if a.Rotation != b.Rotation {
		return a.Rotation < b.Rotation
	}
	if a.Shape != b.Shape {
		return a.Shape < b.Shape
	}
	if a.EType != b.EType {
		return a.EType < b.EType
	}
	return !a.Hidden && b.Hidden
}

// drawable is satisfied by every item that belongs to a unit and body
// style group.
type drawable interface {
	ToNode() *sexp.Node
	onUnit(unit, demorgan int) bool
}

func unitNodes[T drawable](items []T, unit, demorgan int) []*sexp.Node {
	var nodes []*sexp.Node
	for _, item := range items {
		if item.onUnit(unit, demorgan) {
			nodes = append(nodes, item.ToNode())
		}
	}
	return nodes
}
