package klc

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
)

// Options configures a check run.
type Options struct {
	// SelectedRules restricts the run to the named rules. Empty means
	// all rules.
	SelectedRules []string

	// ExcludedRules skips the named rules.
	ExcludedRules []string

	// Component filters the entities checked by name, as a regular
	// expression anchored at both ends.
	Component string

	// DisableExceptions ignores documented KLC_<rule> exception
	// properties and reports their violations at full severity.
	DisableExceptions bool

	// NoWarnings drops results that contain only warnings.
	NoWarnings bool

	// FootprintsDir points at a directory of .pretty libraries for
	// symbol/footprint cross-reference checks.
	FootprintsDir string

	// Workers caps batch parallelism. Zero or negative means one
	// worker per CPU.
	Workers int
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func ruleSelected(name string, opts *Options) bool {
	for _, x := range opts.ExcludedRules {
		if strings.EqualFold(x, name) {
			return false
		}
	}
	if len(opts.SelectedRules) == 0 {
		return true
	}
	for _, s := range opts.SelectedRules {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func (o *Options) componentMatcher() (*regexp.Regexp, error) {
	if o.Component == "" {
		return nil, nil
	}
	return regexp.Compile("^(?i:" + o.Component + ")$")
}

// Exception properties are named KLC_<rule> with an optional suffix,
// e.g. KLC_S3.1 or KLC_S3.1_a. The value holds the reviewer's note.
var exceptionRe = regexp.MustCompile(`^KLC_([^_]+)(?:_(.*))?$`)

// symbolExceptions collects the documented exceptions declared as
// properties on a symbol, keyed by rule name.
func symbolExceptions(sym *symbol.Symbol) map[string]string {
	out := map[string]string{}
	for _, p := range sym.Properties {
		m := exceptionRe.FindStringSubmatch(p.Name)
		if m == nil {
			continue
		}
		note := m[2] + ": " + p.Value + "; "
		out[m[1]] += note
	}
	return out
}

// CheckSymbol runs the rules against one symbol.
func CheckSymbol(sym *symbol.Symbol, lib *symbol.Library, rules []SymbolRule, opts *Options) *EntityResult {
	entity := &EntityResult{
		Library:    sym.LibName,
		Name:       sym.Name,
		Exceptions: map[string]string{},
	}
	exceptions := map[string]string{}
	if !opts.DisableExceptions {
		exceptions = symbolExceptions(sym)
	}
	ctx := &SymbolContext{Symbol: sym, Library: lib, FootprintsDir: opts.FootprintsDir}
	for _, rule := range rules {
		if !ruleSelected(rule.Name, opts) {
			continue
		}
		result := NewResult(rule.Name, rule.Description)
		rule.Check(ctx, result)
		if note, ok := exceptions[rule.Name]; ok && result.HasOutput() {
			result.Demote()
			entity.Exceptions[rule.Name] = note
		}
		if opts.NoWarnings && !result.HasErrors() {
			continue
		}
		entity.Results = append(entity.Results, result)
	}
	return entity
}

// CheckSymbolLibrary runs the rules against every symbol in a library
// file.
func CheckSymbolLibrary(lib *symbol.Library, rules []SymbolRule, opts *Options) (*Report, error) {
	matcher, err := opts.componentMatcher()
	if err != nil {
		return nil, err
	}
	report := &Report{Filename: lib.Filename, Library: lib.Name()}
	for _, sym := range lib.Symbols {
		if matcher != nil && !matcher.MatchString(sym.Name) {
			continue
		}
		report.Entities = append(report.Entities, CheckSymbol(sym, lib, rules, opts))
	}
	return report, nil
}

// CheckFootprint runs the rules against one footprint.
func CheckFootprint(fp *footprint.Footprint, rules []FootprintRule, opts *Options) *EntityResult {
	entity := &EntityResult{
		Library:    fp.LibraryDir(),
		Name:       fp.Name,
		Exceptions: map[string]string{},
	}
	ctx := &FootprintContext{Footprint: fp}
	for _, rule := range rules {
		if !ruleSelected(rule.Name, opts) {
			continue
		}
		result := NewResult(rule.Name, rule.Description)
		rule.Check(ctx, result)
		if opts.NoWarnings && !result.HasErrors() {
			continue
		}
		entity.Results = append(entity.Results, result)
	}
	return entity
}
