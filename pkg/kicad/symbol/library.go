package symbol

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// Version is the only file format revision the loader accepts. The
// format changed repeatedly during KiCad development, so older or
// newer files are rejected instead of being misread.
const Version = "20251024"

// Generator is written into dumped libraries.
const Generator = "klcheck"

// Library is a parsed .kicad_sym file.
type Library struct {
	Filename         string
	Symbols          []*Symbol
	Generator        string
	GeneratorVersion string
	Version          string

	// Unknown library-level children, preserved across load and dump.
	Raw []*sexp.Node
}

// NewLibrary builds an empty library for the given file.
func NewLibrary(filename string) *Library {
	return &Library{Filename: filename, Generator: Generator, GeneratorVersion: Version, Version: Version}
}

// Name returns the library name derived from the filename.
func (l *Library) Name() string {
	base := filepath.Base(l.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Symbol returns the named symbol, or nil.
func (l *Library) Symbol(name string) *Symbol {
	for _, s := range l.Symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SymbolNames returns the names of all symbols, sorted.
func (l *Library) SymbolNames() []string {
	names := make([]string, len(l.Symbols))
	for i, s := range l.Symbols {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}

// InheritanceDepth returns the number of extends hops from the symbol
// to its root.
func (l *Library) InheritanceDepth(s *Symbol) int {
	depth := 0
	for s != nil && s.Extends != "" {
		depth++
		s = l.Symbol(s.Extends)
	}
	return depth
}

// LoadFile parses a .kicad_sym file. Inheritance is resolved; a
// missing, self-referential or circular parent fails the load.
func LoadFile(filename string) (*Library, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := sexp.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	lib, err := FromNode(root, filename)
	if err != nil {
		return nil, err
	}
	if err := lib.ResolveInheritance(); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadDir parses a directory of single-symbol .kicad_sym files as one
// library named after the directory.
func LoadDir(dirname string) (*Library, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	lib := NewLibrary(dirname)
	libname := strings.TrimSuffix(filepath.Base(dirname), filepath.Ext(dirname))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".kicad_sym") {
			continue
		}
		path := filepath.Join(dirname, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		root, parseErr := sexp.Parse(f)
		f.Close()
		if parseErr != nil {
			return nil, fmt.Errorf("%s: %w", path, parseErr)
		}
		sub, err := FromNode(root, path)
		if err != nil {
			return nil, err
		}
		if len(sub.Symbols) != 1 {
			return nil, &FileFormatError{Filename: path, Msg: fmt.Sprintf("expected exactly one symbol, found %d", len(sub.Symbols))}
		}
		sym := sub.Symbols[0]
		sym.LibName = libname
		if lib.Symbol(sym.Name) != nil {
			return nil, &FileFormatError{Filename: dirname, Msg: "duplicate symbol: " + sym.Name}
		}
		lib.Symbols = append(lib.Symbols, sym)
	}

	if err := lib.ResolveInheritance(); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadPath loads either a .kicad_sym file or a library directory.
func LoadPath(path string) (*Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// Parse parses library text. Used by tests and by callers that already
// hold the file contents.
func Parse(data, filename string) (*Library, error) {
	root, err := sexp.ParseString(data)
	if err != nil {
		return nil, err
	}
	lib, err := FromNode(root, filename)
	if err != nil {
		return nil, err
	}
	if err := lib.ResolveInheritance(); err != nil {
		return nil, err
	}
	return lib, nil
}

// FromNode builds a library from a parsed tree without resolving
// inheritance.
func FromNode(root *sexp.Node, filename string) (*Library, error) {
	if root.Keyword() != "kicad_symbol_lib" {
		return nil, &FileFormatError{Filename: filename, Msg: "not a symbol library (missing kicad_symbol_lib)"}
	}
	version := sexp.ChildString(root, "version")
	if version != Version {
		return nil, &FileFormatError{Filename: filename, Msg: fmt.Sprintf("unsupported symbol file version %q, want %q", version, Version)}
	}

	lib := NewLibrary(filename)
	lib.Generator = sexp.ChildString(root, "generator")
	lib.GeneratorVersion = sexp.ChildString(root, "generator_version")
	libname := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	for _, child := range sexp.Items(root) {
		if !child.IsList() {
			continue
		}
		switch child.Keyword() {
		case "version", "generator", "generator_version":
		case "symbol":
			sym, err := symbolFromNode(child, libname, filename)
			if err != nil {
				return nil, err
			}
			if lib.Symbol(sym.Name) != nil {
				return nil, &FileFormatError{Filename: filename, Msg: "duplicate symbol: " + sym.Name}
			}
			lib.Symbols = append(lib.Symbols, sym)
		default:
			// Keep future library-level syntax so it survives a dump.
			lib.Raw = append(lib.Raw, child)
		}
	}
	return lib, nil
}

// ResolveInheritance walks every extends chain and records it on the
// symbol. It returns a DanglingReferenceError when a chain cannot be
// completed.
func (l *Library) ResolveInheritance() error {
	for _, sym := range l.Symbols {
		sym.inheritance = nil
		if sym.Extends == "" {
			continue
		}
		if sym.Extends == sym.Name {
			return &DanglingReferenceError{Symbol: sym.Name, Msg: "symbol extends itself"}
		}
		seen := map[string]bool{sym.Name: true}
		cursor := sym
		for cursor.Extends != "" {
			if seen[cursor.Extends] {
				return &DanglingReferenceError{Symbol: sym.Name, Msg: "circular inheritance via " + cursor.Extends}
			}
			parent := l.Symbol(cursor.Extends)
			if parent == nil {
				return &DanglingReferenceError{Symbol: cursor.Name, Parent: cursor.Extends}
			}
			seen[cursor.Extends] = true
			sym.inheritance = append(sym.inheritance, parent)
			cursor = parent
		}
	}
	return nil
}

// ToNode rebuilds the library tree in KiCad's save order: roots before
// the symbols derived from them, names sorted within each depth.
func (l *Library) ToNode() *sexp.Node {
	generatorVersion := l.GeneratorVersion
	if generatorVersion == "" {
		generatorVersion = l.Version
	}
	n := sexp.Key("kicad_symbol_lib",
		sexp.Key("version", sexp.Atom(l.Version)),
		sexp.Key("generator", sexp.Str(l.Generator)),
		sexp.Key("generator_version", sexp.Str(generatorVersion)),
	)

	ordered := make([]*Symbol, len(l.Symbols))
	copy(ordered, l.Symbols)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := l.InheritanceDepth(ordered[i]), l.InheritanceDepth(ordered[j])
		if di != dj {
			return di < dj
		}
		return ordered[i].Name < ordered[j].Name
	})
	for _, sym := range ordered {
		n.Append(sym.ToNode())
	}
	n.Append(l.Raw...)
	return n
}

// Dump returns the canonical text of the library.
func (l *Library) Dump() string {
	return sexp.Format(l.ToNode())
}

// Write saves the library back to its file.
func (l *Library) Write() error {
	return os.WriteFile(l.Filename, []byte(l.Dump()), 0o644)
}

var subsymbolName = regexp.MustCompile(`^(.*)_(\d+)_(\d+)$`)

func symbolFromNode(n *sexp.Node, libname, filename string) (*Symbol, error) {
	name, err := sexp.GetString(n, 1)
	if err != nil {
		return nil, &FileFormatError{Filename: filename, Msg: "symbol without a name"}
	}
	// Legacy files qualify the name as libname:partname.
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		name = name[idx+1:]
	}

	sym := &Symbol{
		Name:           name,
		LibName:        libname,
		Filename:       filename,
		PinNamesOffset: 0.508,
		UnitNames:      map[int]string{},
	}

	sym.Extends = sexp.ChildString(n, "extends")
	sym.ExcludeFromSim = sexp.ChildString(n, "exclude_from_sim") == "yes"
	sym.InBom = sexp.ChildString(n, "in_bom") == "yes"
	sym.OnBoard = sexp.ChildString(n, "on_board") == "yes"
	_, sym.IsPower = sexp.Find(n, "power")
	sym.EmbeddedFonts = sexp.ChildString(n, "embedded_fonts") == "yes"

	if pinNumbers, ok := sexp.Find(n, "pin_numbers"); ok {
		sym.HidePinNumbers = sexp.BoolFlag(pinNumbers, "hide", false)
	}
	if pinNames, ok := sexp.Find(n, "pin_names"); ok {
		sym.HidePinNames = sexp.BoolFlag(pinNames, "hide", false)
		sym.PinNamesOffset = sexp.ChildFloat(pinNames, "offset", 0.508)
	}

	for _, propNode := range sexp.FindAll(n, "property") {
		prop, err := propertyFromNode(propNode)
		if err != nil {
			return nil, &FileFormatError{Filename: filename, Msg: fmt.Sprintf("symbol %s: %v", name, err)}
		}
		sym.Properties = append(sym.Properties, prop)
	}

	if files, ok := sexp.Find(n, "embedded_files"); ok {
		for _, fileNode := range sexp.FindAll(files, "file") {
			sym.Files = append(sym.Files, embeddedFileFromNode(fileNode))
		}
	}

	for _, sub := range sexp.FindAll(n, "symbol") {
		if err := parseSubsymbol(sym, sub); err != nil {
			return nil, &FileFormatError{Filename: filename, Msg: fmt.Sprintf("symbol %s: %v", name, err)}
		}
	}

	// Keep anything this loader does not understand so the file can be
	// dumped without losing it.
	for _, child := range sexp.Items(n) {
		if !child.IsList() {
			continue
		}
		switch child.Keyword() {
		case "extends", "pin_names", "pin_numbers", "exclude_from_sim",
			"in_bom", "on_board", "power", "embedded_fonts",
			"embedded_files", "property", "symbol":
		default:
			sym.Raw = append(sym.Raw, child)
		}
	}
	return sym, nil
}

func parseSubsymbol(sym *Symbol, sub *sexp.Node) error {
	subName, err := sexp.GetString(sub, 1)
	if err != nil {
		return err
	}
	m := subsymbolName.FindStringSubmatch(subName)
	if m == nil || m[1] != sym.Name {
		return fmt.Errorf("invalid subsymbol name %q", subName)
	}
	unit, _ := strconv.Atoi(m[2])
	demorgan, _ := strconv.Atoi(m[3])
	if unit > sym.UnitCount {
		sym.UnitCount = unit
	}
	if demorgan > sym.DeMorganCount {
		sym.DeMorganCount = demorgan
	}

	if unitName := sexp.ChildString(sub, "unit_name"); unitName != "" {
		sym.UnitNames[unit] = unitName
	}

	for _, child := range sexp.Items(sub) {
		if !child.IsList() {
			continue
		}
		switch child.Keyword() {
		case "pin":
			pin, err := pinFromNode(child, unit, demorgan)
			if err != nil {
				return err
			}
			sym.Pins = append(sym.Pins, pin)
		case "circle":
			c, err := circleFromNode(child, unit, demorgan)
			if err != nil {
				return err
			}
			sym.Circles = append(sym.Circles, c)
		case "arc":
			a, err := arcFromNode(child, unit, demorgan)
			if err != nil {
				return err
			}
			sym.Arcs = append(sym.Arcs, a)
		case "rectangle":
			r, err := rectangleFromNode(child, unit, demorgan)
			if err != nil {
				return err
			}
			sym.Rectangles = append(sym.Rectangles, r)
		case "polyline":
			p, err := polylineFromNode(child, unit, demorgan)
			if err != nil {
				return err
			}
			sym.Polylines = append(sym.Polylines, p)
		case "bezier":
			b, err := bezierFromNode(child, unit, demorgan)
			if err != nil {
				return err
			}
			sym.Beziers = append(sym.Beziers, b)
		case "text":
			t, err := textFromNode(child, unit, demorgan)
			if err != nil {
				return err
			}
			sym.Texts = append(sym.Texts, t)
		case "unit_name":
		default:
			// Unknown subsymbol items stay with their unit group so the
			// dump puts them back where they came from.
			sym.UnitRaw = append(sym.UnitRaw, &RawItem{Node: child, Unit: unit, DeMorgan: demorgan})
		}
	}
	return nil
}
