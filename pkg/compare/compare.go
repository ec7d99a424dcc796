// Package compare diffs two revisions of a symbol library set. It
// classifies every symbol as added, removed, changed or unchanged, and
// can flag changes that would break existing schematics using the
// symbol.
package compare

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// Status classifies one symbol or library between the two revisions.
type Status int

const (
	Unchanged Status = iota
	Added
	Removed
	Changed
)

func (s Status) String() string {
	switch s {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// PinChanges counts pin differences between the old and new revision
// of a symbol. No-connect pins are tracked apart because moving them
// rarely breaks a schematic.
type PinChanges struct {
	Moved     int
	Missing   int
	NCMoved   int
	NCMissing int
}

// Breaking reports whether connected pins moved or disappeared.
func (c PinChanges) Breaking() bool { return c.Moved > 0 || c.Missing > 0 }

// NCOnly reports whether only no-connect pins moved or disappeared.
func (c PinChanges) NCOnly() bool {
	return !c.Breaking() && (c.NCMoved > 0 || c.NCMissing > 0)
}

// SymbolDiff is the comparison verdict for one symbol name.
type SymbolDiff struct {
	Library string
	Name    string
	Status  Status

	// Extends values in each revision, empty for root symbols.
	OldExtends string
	NewExtends string

	// Inherited marks a symbol whose own text is identical but whose
	// ancestor changed, so its effective content changed too.
	Inherited bool

	// Pins is filled for changed symbols when design-breaking
	// analysis is requested.
	Pins *PinChanges

	// MissingFootprint holds the Footprint property value when it
	// does not resolve against the footprint directory.
	MissingFootprint string

	// Check holds rule results for added and changed symbols when a
	// rule set was supplied.
	Check *klc.EntityResult
}

// AliasChanged reports whether the symbol switched between root and
// derived, or now derives from a different parent.
func (d *SymbolDiff) AliasChanged() bool {
	return d.Status == Changed && d.OldExtends != d.NewExtends
}

// FullName returns lib:name.
func (d *SymbolDiff) FullName() string { return d.Library + ":" + d.Name }

// LibraryDiff is the comparison verdict for one library file.
type LibraryDiff struct {
	Name    string
	OldPath string
	NewPath string
	Status  Status
	Symbols []*SymbolDiff

	// Failure is set when either revision could not be parsed. The
	// library then carries no symbol diffs.
	Failure error
}

// Options steers a comparison run.
type Options struct {
	// IncludeDerived adds derived symbols to the snapshots. Without
	// it only root symbols are compared, the way the convention
	// sprint reviews work.
	IncludeDerived bool

	// CheckDerived re-classifies a derived symbol as changed when any
	// symbol it derives from changed. Implies IncludeDerived.
	CheckDerived bool

	// DesignBreaking enables the pin movement analysis on changed
	// symbols and counts removed symbols and libraries as breaking.
	DesignBreaking bool

	// FootprintsDir, when set, verifies the Footprint property of
	// added and changed symbols against the directory.
	FootprintsDir string

	// Rules, when non-empty, are run against added and changed
	// symbols. RuleOptions applies to those runs.
	Rules       []klc.SymbolRule
	RuleOptions *klc.Options
}

func (o *Options) includeDerived() bool {
	return o != nil && (o.IncludeDerived || o.CheckDerived)
}

// CollectLibraries expands a list of file and directory paths into a
// map of library basename to absolute path. Directories are walked for
// .kicad_sym files.
func CollectLibraries(paths []string) (map[string]string, error) {
	libs := make(map[string]string)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.HasSuffix(p, ".kicad_sym") {
				abs, err := filepath.Abs(p)
				if err != nil {
					return nil, err
				}
				libs[filepath.Base(p)] = abs
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".kicad_sym") {
				return nil
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			libs[filepath.Base(path)] = abs
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return libs, nil
}

// Compare diffs every library named in either revision. Parse failures
// on one library do not stop the others; they are aggregated into the
// returned error and marked on the affected diff.
func Compare(oldLibs, newLibs map[string]string, opts *Options) ([]*LibraryDiff, error) {
	if opts == nil {
		opts = &Options{}
	}

	var diffs []*LibraryDiff
	var errs *multierror.Error

	names := make([]string, 0, len(newLibs))
	for name := range newLibs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		diff := compareLibrary(name, oldLibs[name], newLibs[name], opts)
		if diff.Failure != nil {
			errs = multierror.Append(errs, diff.Failure)
		}
		diffs = append(diffs, diff)
	}

	// Libraries present only in the old revision were removed.
	removed := make([]string, 0)
	for name := range oldLibs {
		if _, ok := newLibs[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		diffs = append(diffs, &LibraryDiff{
			Name:    name,
			OldPath: oldLibs[name],
			Status:  Removed,
		})
	}

	return diffs, errs.ErrorOrNil()
}

func compareLibrary(name, oldPath, newPath string, opts *Options) *LibraryDiff {
	diff := &LibraryDiff{Name: name, OldPath: oldPath, NewPath: newPath}

	newLib, err := symbol.LoadFile(newPath)
	if err != nil {
		diff.Failure = err
		return diff
	}

	if oldPath == "" {
		diff.Status = Added
		for _, sym := range newLib.Symbols {
			if !opts.includeDerived() && sym.IsDerived() {
				continue
			}
			sd := &SymbolDiff{
				Library:    newLib.Name(),
				Name:       sym.Name,
				Status:     Added,
				NewExtends: sym.Extends,
			}
			inspectSymbol(sd, sym, newLib, opts)
			diff.Symbols = append(diff.Symbols, sd)
		}
		sort.Slice(diff.Symbols, func(i, j int) bool {
			return diff.Symbols[i].Name < diff.Symbols[j].Name
		})
		return diff
	}

	// Byte-identical files need no per-symbol work.
	if same, err := sameFile(oldPath, newPath); err == nil && same {
		return diff
	}

	oldLib, err := symbol.LoadFile(oldPath)
	if err != nil {
		diff.Failure = err
		return diff
	}

	// Two files written by different tools can still carry the same
	// content. Canonical text settles it.
	if oldLib.Dump() == newLib.Dump() {
		return diff
	}
	diff.Status = Changed
	diff.Symbols = diffSymbols(oldLib, newLib, opts)
	return diff
}

func sameFile(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

func symbolText(s *symbol.Symbol) string {
	return sexp.Format(s.ToNode())
}

func diffSymbols(oldLib, newLib *symbol.Library, opts *Options) []*SymbolDiff {
	oldSyms := snapshot(oldLib, opts)
	newSyms := snapshot(newLib, opts)

	var diffs []*SymbolDiff
	ownChanged := make(map[string]bool)

	names := make([]string, 0, len(newSyms))
	for name := range newSyms {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sym := newSyms[name]
		sd := &SymbolDiff{
			Library:    newLib.Name(),
			Name:       name,
			NewExtends: sym.Extends,
		}
		old, ok := oldSyms[name]
		switch {
		case !ok:
			sd.Status = Added
		case symbolText(old) != symbolText(sym):
			sd.Status = Changed
			sd.OldExtends = old.Extends
			ownChanged[name] = true
			if opts.DesignBreaking {
				pins := comparePins(old, sym)
				sd.Pins = &pins
			}
		default:
			sd.OldExtends = old.Extends
		}
		diffs = append(diffs, sd)
	}

	if opts.CheckDerived {
		propagateDerivedChanges(diffs, newLib, ownChanged)
	}

	for _, sd := range diffs {
		if sd.Status == Added || sd.Status == Changed {
			inspectSymbol(sd, newSyms[sd.Name], newLib, opts)
		}
	}

	removed := make([]string, 0)
	for name := range oldSyms {
		if _, ok := newSyms[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		diffs = append(diffs, &SymbolDiff{
			Library:    newLib.Name(),
			Name:       name,
			Status:     Removed,
			OldExtends: oldSyms[name].Extends,
		})
	}

	return diffs
}

func snapshot(lib *symbol.Library, opts *Options) map[string]*symbol.Symbol {
	syms := make(map[string]*symbol.Symbol)
	for _, sym := range lib.Symbols {
		if !opts.includeDerived() && sym.IsDerived() {
			continue
		}
		syms[sym.Name] = sym
	}
	return syms
}

// propagateDerivedChanges marks derived symbols as changed when any
// ancestor changed. Symbols are visited parents before children, so a
// change deep in a multi-level chain reaches every descendant.
func propagateDerivedChanges(diffs []*SymbolDiff, newLib *symbol.Library, ownChanged map[string]bool) {
	byName := make(map[string]*SymbolDiff, len(diffs))
	for _, sd := range diffs {
		byName[sd.Name] = sd
	}

	ordered := make([]*SymbolDiff, len(diffs))
	copy(ordered, diffs)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := newLib.Symbol(ordered[i].Name), newLib.Symbol(ordered[j].Name)
		return newLib.InheritanceDepth(si) < newLib.InheritanceDepth(sj)
	})

	changed := make(map[string]bool, len(ownChanged))
	for name := range ownChanged {
		changed[name] = true
	}
	for _, sd := range ordered {
		sym := newLib.Symbol(sd.Name)
		if sym == nil || sym.Extends == "" || !changed[sym.Extends] {
			continue
		}
		changed[sd.Name] = true
		if sd.Status == Unchanged {
			sd.Status = Changed
			sd.Inherited = true
		}
	}
}

// comparePins counts old pins that moved or vanished in the new
// revision. Pins are matched by number, so renumbering shows up as a
// missing pin.
func comparePins(oldSym, newSym *symbol.Symbol) PinChanges {
	var c PinChanges
	for _, oldPin := range oldSym.Pins {
		newPin := newSym.PinByNumber(oldPin.Number)
		if newPin == nil {
			if oldPin.EType == "no_connect" {
				c.NCMissing++
			} else {
				c.Missing++
			}
			continue
		}
		if oldPin.PosX != newPin.PosX || oldPin.PosY != newPin.PosY {
			if oldPin.EType == "no_connect" && newPin.EType == "no_connect" {
				c.NCMoved++
			} else {
				c.Moved++
			}
		}
	}
	return c
}

// inspectSymbol runs the optional extra checks on an added or changed
// symbol: footprint cross-reference and the rule set.
func inspectSymbol(sd *SymbolDiff, sym *symbol.Symbol, lib *symbol.Library, opts *Options) {
	if sym == nil {
		return
	}
	if opts.FootprintsDir != "" {
		if fp := sym.PropertyValue("Footprint"); fp != "" && !footprintExists(opts.FootprintsDir, fp) {
			sd.MissingFootprint = fp
		}
	}
	if len(opts.Rules) > 0 {
		ruleOpts := opts.RuleOptions
		if ruleOpts == nil {
			ruleOpts = &klc.Options{}
		}
		sd.Check = klc.CheckSymbol(sym, lib, opts.Rules, ruleOpts)
	}
}

func footprintExists(dir, ref string) bool {
	libName, fpName, ok := strings.Cut(ref, ":")
	if !ok {
		return false
	}
	path := filepath.Join(dir, libName+".pretty", fpName+".kicad_mod")
	_, err := os.Stat(path)
	return err == nil
}

// Totals sums the per-symbol verdicts across all library diffs.
// Breaking counts removed symbols, removed libraries and symbols with
// breaking pin changes; Errors counts rule-check failures. The
// breaking tally is always computed, whether or not the caller asked
// to detect breaking changes. The CLI decides from its own flags
// which of the tallies feed the exit code.
func Totals(diffs []*LibraryDiff) (added, removed, changed, unchanged, breaking, errors int) {
	for _, lib := range diffs {
		if lib.Status == Removed && len(lib.Symbols) == 0 {
			breaking++
		}
		if lib.Failure != nil {
			errors++
		}
		for _, sd := range lib.Symbols {
			switch sd.Status {
			case Added:
				added++
			case Removed:
				removed++
				breaking++
			case Changed:
				changed++
				if sd.Pins != nil && (sd.Pins.Breaking() || sd.Pins.NCOnly()) {
					breaking++
				}
			default:
				unchanged++
			}
			if sd.Check != nil && sd.Check.ErrorCount() > 0 {
				errors++
			}
		}
	}
	return
}
