// Package symrules implements the KiCad Library Convention checks for
// schematic symbols.
package symrules

import (
	"fmt"
	"regexp"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// All returns every symbol rule, in ascending code order.
func All() []klc.SymbolRule {
	return []klc.SymbolRule{
		{Name: "G1.1", Description: "Only standard characters are used for naming libraries and components", Check: checkNameChars},
		{Name: "G1.7", Description: "Library files must use Unix-style line endings (LF)", Check: checkLineEndings},
		{Name: "G1.10", Description: "Symbols don't contain embedded files", Check: checkEmbeddedFiles},
		{Name: "G1.11", Description: "All text uses the default KiCad stroke font", Check: checkStrokeFont},
		{Name: "S3.1", Description: "Origin is centered on the middle of the symbol", Check: checkOriginCentered},
		{Name: "S3.2", Description: "Text fields should use a common text size of 50mils", Check: checkTextSizes},
		{Name: "S3.6", Description: "Pin name position offset", Check: checkPinNameOffset},
		{Name: "S4.1", Description: "General pin requirements", Check: checkPinRequirements},
		{Name: "S4.2", Description: "Pins should be grouped by function", Check: checkPinGrouping},
		{Name: "S4.3", Description: "Rules for pin stacking", Check: checkPinStacks},
		{Name: "S4.4", Description: "Pin electrical type should match pin function", Check: checkPinTypes},
		{Name: "S4.5", Description: "Pins not connected on the footprint may be omitted from the symbol", Check: checkMissingPinNumbers},
		{Name: "S4.6", Description: "Hidden pins", Check: checkNCPins},
		{Name: "S5.1", Description: "Footprint field links to a valid footprint", Check: checkFootprintLink},
		{Name: "S5.2", Description: "Footprint filters should match all appropriate footprints", Check: checkFootprintFilters},
		{Name: "S6.1", Description: "Reference designator prefix matches the library", Check: checkReferencePrefix},
		{Name: "S6.2", Description: "Symbol fields and metadata filled out as required", Check: checkMetadata},
		{Name: "S7.1", Description: "Power-flag symbols", Check: checkPowerFlag},
		{Name: "S7.2", Description: "Graphical symbols follow some special rules", Check: checkGraphicSymbol},
		{Name: "EC01", Description: "Basic geometry checks", Check: checkGeometry},
		{Name: "EC02", Description: "Check part reference, name and footprint position and alignment", Check: checkFieldPlacement},
	}
}

// pinString describes a pin in rule output, with the position given in
// mils because that is the unit the convention speaks in.
func pinString(p *symbol.Pin) string {
	return fmt.Sprintf("Pin %s (%s) @ (%v,%v)",
		p.Name, p.Number, symbol.MMToMil(p.PosX), symbol.MMToMil(p.PosY))
}

// matchAny reports whether any of the patterns matches the string,
// case-insensitively.
func matchAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}
