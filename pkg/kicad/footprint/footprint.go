// Package footprint models .kicad_mod files: the footprint root, its
// pads, text fields, per-layer graphics and 3D model references.
package footprint

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// Footprint is a parsed .kicad_mod file.
type Footprint struct {
	Name      string
	Filename  string
	Version   string
	Generator string
	Layer     string
	Descr     string
	Tags      string

	// Type is the placement type from the attr list: smd,
	// through_hole, or empty for unspecified.
	Type                  string
	ExcludeFromBOM        bool
	ExcludeFromPosFiles   bool
	BoardOnly             bool
	AllowMissingCourtyard bool

	Texts   []*Text
	Pads    []*Pad
	Lines   []*Line
	Rects   []*Rect
	Circles []*Circle
	Arcs    []*Arc
	Polys   []*Poly
	Models  []*Model

	EmbeddedFonts bool
	Files         []*EmbeddedFile

	// Unknown top-level children, preserved across load and dump.
	Raw []*sexp.Node
}

// EmbeddedFile is a file embedded in a footprint, e.g. a font.
type EmbeddedFile struct {
	Name     string
	Type     string
	Data     string // base64 of the compressed content
	Checksum string
}

func (f *EmbeddedFile) toNode() *sexp.Node {
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

// FileFormatError reports a tree that is not a well-formed footprint.
type FileFormatError struct {
	Filename string
	Msg      string
}

func (e *FileFormatError) Error() string {
	if e.Filename == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Msg)
}

// IsVirtual reports whether the footprint represents nothing physical:
// it is excluded from both the BOM and position files, or board-only.
func (f *Footprint) IsVirtual() bool {
	return f.BoardOnly || (f.ExcludeFromBOM && f.ExcludeFromPosFiles)
}

// Reference returns the Reference text field, or nil.
func (f *Footprint) Reference() *Text { return f.Field("Reference") }

// Value returns the Value text field, or nil.
func (f *Footprint) Value() *Text { return f.Field("Value") }

// Field returns the named text field, or nil.
func (f *Footprint) Field(name string) *Text {
	for _, t := range f.Texts {
		if t.Kind == name {
			return t
		}
	}
	return nil
}

// UserTexts returns the free fp_text items.
func (f *Footprint) UserTexts() []*Text {
	var texts []*Text
	for _, t := range f.Texts {
		if !t.IsField() {
			texts = append(texts, t)
		}
	}
	return texts
}

// PadsByNumber returns all pads with the given number.
func (f *Footprint) PadsByNumber(number string) []*Pad {
	var pads []*Pad
	for _, p := range f.Pads {
		if p.Number == number {
			pads = append(pads, p)
		}
	}
	return pads
}

// FilterPads returns all pads of the given type.
func (f *Footprint) FilterPads(padType string) []*Pad {
	var pads []*Pad
	for _, p := range f.Pads {
		if p.Type == padType {
			pads = append(pads, p)
		}
	}
	return pads
}

// Graphs returns every graphic item, optionally restricted to a layer
// (empty layer means all).
func (f *Footprint) Graphs(layer string) []Graph {
	var graphs []Graph
	add := func(g Graph) {
		if layer == "" || g.GraphLayer() == layer {
			graphs = append(graphs, g)
		}
	}
	for _, l := range f.Lines {
		add(l)
	}
	for _, r := range f.Rects {
		add(r)
	}
	for _, c := range f.Circles {
		add(c)
	}
	for _, a := range f.Arcs {
		add(a)
	}
	for _, p := range f.Polys {
		add(p)
	}
	return graphs
}

// BoundingBox returns the extent of all graphics on the given layer.
// ok is false when the layer has no graphics.
func (f *Footprint) BoundingBox(layer string) (minX, minY, maxX, maxY float64, ok bool) {
	graphs := f.Graphs(layer)
	if len(graphs) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, g := range graphs {
		gMinX, gMinY, gMaxX, gMaxY := g.Bounds()
		minX = math.Min(minX, gMinX)
		minY = math.Min(minY, gMinY)
		maxX = math.Max(maxX, gMaxX)
		maxY = math.Max(maxY, gMaxY)
	}
	return minX, minY, maxX, maxY, true
}

// PadsCenter returns the middle of the pad extents, the position a
// pick and place machine would use.
func (f *Footprint) PadsCenter() (float64, float64, bool) {
	if len(f.Pads) == 0 {
		return 0, 0, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range f.Pads {
		minX = math.Min(minX, p.PosX-p.SizeX/2)
		maxX = math.Max(maxX, p.PosX+p.SizeX/2)
		minY = math.Min(minY, p.PosY-p.SizeY/2)
		maxY = math.Max(maxY, p.PosY+p.SizeY/2)
	}
	return (minX + maxX) / 2, (minY + maxY) / 2, true
}

// LoadFile parses a .kicad_mod file.
func LoadFile(filename string) (*Footprint, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	root, err := sexp.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return FromNode(root, filename)
}

// Parse parses footprint text.
func Parse(data, filename string) (*Footprint, error) {
	root, err := sexp.ParseString(data)
	if err != nil {
		return nil, err
	}
	return FromNode(root, filename)
}

// FromNode builds a footprint from a parsed tree. Both the current
// footprint keyword and the legacy module keyword are accepted.
func FromNode(root *sexp.Node, filename string) (*Footprint, error) {
	if kw := root.Keyword(); kw != "footprint" && kw != "module" {
		return nil, &FileFormatError{Filename: filename, Msg: "not a footprint (missing footprint root)"}
	}
	name, err := sexp.GetString(root, 1)
	if err != nil {
		return nil, &FileFormatError{Filename: filename, Msg: "footprint without a name"}
	}

	fp := &Footprint{
		Name:      name,
		Filename:  filename,
		Version:   sexp.ChildString(root, "version"),
		Generator: sexp.ChildString(root, "generator"),
		Layer:     sexp.ChildString(root, "layer"),
		Descr:     sexp.ChildString(root, "descr"),
		Tags:      sexp.ChildString(root, "tags"),
	}

	if attr, ok := sexp.Find(root, "attr"); ok {
		for _, item := range sexp.Items(attr) {
			switch item.Text() {
			case "smd", "through_hole":
				fp.Type = item.Text()
			case "exclude_from_bom":
				fp.ExcludeFromBOM = true
			case "exclude_from_pos_files":
				fp.ExcludeFromPosFiles = true
			case "board_only":
				fp.BoardOnly = true
			case "allow_missing_courtyard":
				fp.AllowMissingCourtyard = true
			}
		}
	}

	for _, child := range sexp.Items(root) {
		if !child.IsList() {
			continue
		}
		switch child.Keyword() {
		case "version", "generator", "generator_version", "layer", "descr", "tags", "attr":
		case "property", "fp_text":
			t, err := textFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Texts = append(fp.Texts, t)
		case "pad":
			p, err := padFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Pads = append(fp.Pads, p)
		case "fp_line":
			l, err := lineFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Lines = append(fp.Lines, l)
		case "fp_rect":
			r, err := rectFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Rects = append(fp.Rects, r)
		case "fp_circle":
			c, err := circleFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Circles = append(fp.Circles, c)
		case "fp_arc":
			a, err := arcFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Arcs = append(fp.Arcs, a)
		case "fp_poly":
			p, err := polyFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Polys = append(fp.Polys, p)
		case "model":
			m, err := modelFromNode(child)
			if err != nil {
				return nil, wrapItemErr(filename, name, err)
			}
			fp.Models = append(fp.Models, m)
		case "embedded_fonts":
			fonts, _ := sexp.GetString(child, 1)
			fp.EmbeddedFonts = fonts == "yes"
		case "embedded_files":
			for _, fileNode := range sexp.FindAll(child, "file") {
				fp.Files = append(fp.Files, embeddedFileFromNode(fileNode))
			}
		default:
			fp.Raw = append(fp.Raw, child)
		}
	}
	return fp, nil
}

func wrapItemErr(filename, name string, err error) error {
	return &FileFormatError{Filename: filename, Msg: fmt.Sprintf("footprint %s: %v", name, err)}
}

// ToNode rebuilds the footprint tree.
func (f *Footprint) ToNode() *sexp.Node {
	n := sexp.Key("footprint", sexp.Str(f.Name))
	if f.Version != "" {
		n.Append(sexp.Key("version", sexp.Atom(f.Version)))
	}
	if f.Generator != "" {
		n.Append(sexp.Key("generator", sexp.Str(f.Generator)))
	}
	n.Append(sexp.Key("layer", sexp.Str(f.Layer)))
	if f.Descr != "" {
		n.Append(sexp.Key("descr", sexp.Str(f.Descr)))
	}
	if f.Tags != "" {
		n.Append(sexp.Key("tags", sexp.Str(f.Tags)))
	}

	attr := sexp.Key("attr")
	if f.Type != "" {
		attr.Append(sexp.Atom(f.Type))
	}
	if f.BoardOnly {
		attr.Append(sexp.Atom("board_only"))
	}
	if f.ExcludeFromPosFiles {
		attr.Append(sexp.Atom("exclude_from_pos_files"))
	}
	if f.ExcludeFromBOM {
		attr.Append(sexp.Atom("exclude_from_bom"))
	}
	if f.AllowMissingCourtyard {
		attr.Append(sexp.Atom("allow_missing_courtyard"))
	}
	if attr.Len() > 1 {
		n.Append(attr)
	}

	for _, t := range f.Texts {
		n.Append(t.toNode())
	}
	for _, l := range f.Lines {
		n.Append(l.toNode())
	}
	for _, r := range f.Rects {
		n.Append(r.toNode())
	}
	for _, c := range f.Circles {
		n.Append(c.toNode())
	}
	for _, a := range f.Arcs {
		n.Append(a.toNode())
	}
	for _, p := range f.Polys {
		n.Append(p.toNode())
	}
	for _, pad := range f.Pads {
		n.Append(pad.toNode())
	}
	n.Append(f.Raw...)
	if len(f.Files) > 0 {
		files := sexp.Key("embedded_files")
		for _, ef := range f.Files {
			files.Append(ef.toNode())
		}
		n.Append(files)
	}
	if f.EmbeddedFonts {
		n.Append(sexp.Key("embedded_fonts", sexp.Atom("yes")))
	}
	for _, m := range f.Models {
		n.Append(m.toNode())
	}
	return n
}

// Dump returns the canonical text of the footprint.
func (f *Footprint) Dump() string {
	return sexp.Format(f.ToNode())
}

// LibraryDir returns the .pretty directory name the footprint lives
// in, without the extension. Empty when the file path has no library
// directory.
func (f *Footprint) LibraryDir() string {
	dir := filepath.Base(filepath.Dir(f.Filename))
	return strings.TrimSuffix(dir, filepath.Ext(dir))
}

// LoadDir parses every .kicad_mod file in a .pretty directory.
func LoadDir(dirname string) ([]*Footprint, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	var footprints []*Footprint
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".kicad_mod") {
			continue
		}
		fp, err := LoadFile(filepath.Join(dirname, entry.Name()))
		if err != nil {
			return nil, err
		}
		footprints = append(footprints, fp)
	}
	return footprints, nil
}
