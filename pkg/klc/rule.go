package klc

import (
	"bytes"
	"os"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
)

// SymbolContext is what a symbol rule gets to look at: the symbol, the
// library it came from, and optionally the on-disk footprint libraries
// for cross-reference checks.
type SymbolContext struct {
	Symbol        *symbol.Symbol
	Library       *symbol.Library
	FootprintsDir string
}

// SymbolRule is one convention check for symbols. Check records its
// findings on the result and must not mutate the symbol.
type SymbolRule struct {
	Name        string // e.g. "S4.1"
	Description string
	Check       func(*SymbolContext, *Result)
}

// FootprintContext is what a footprint rule gets to look at.
type FootprintContext struct {
	Footprint *footprint.Footprint
}

// FootprintRule is one convention check for footprints.
type FootprintRule struct {
	Name        string // e.g. "F6.1"
	Description string
	Check       func(*FootprintContext, *Result)
}

// RuleURL returns the convention page documenting the rule. Extended
// checks have no page.
func RuleURL(name string) string {
	if strings.HasPrefix(name, "EC") {
		return "(extended check)"
	}
	categories := map[byte]string{
		'F': "footprint",
		'G': "general",
		'M': "model",
		'S': "symbol",
	}
	category, ok := categories[name[0]]
	if !ok {
		return "(unknown rule)"
	}
	lower := strings.ToLower(name)
	group := strings.SplitN(lower, ".", 2)[0]
	return "https://klc.kicad.org/" + category + "/" + group + "/" + lower + "/"
}

// IsValidName reports whether a name uses only the characters the
// convention allows: alphanumerics and _-.+, with a leading ~ allowed
// for power and graphic symbols.
func IsValidName(name string, allowTilde bool) bool {
	for i, c := range strings.ToLower(name) {
		if i == 0 && allowTilde && c == '~' {
			continue
		}
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			continue
		}
		if strings.ContainsRune("_-.+,", c) {
			continue
		}
		return false
	}
	return true
}

// HasUnixLineEndings reports whether the file uses bare LF line
// endings. CRLF and bare CR fail.
func HasUnixLineEndings(filename string) (bool, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return false, err
	}
	return !bytes.ContainsRune(data, '\r'), nil
}
