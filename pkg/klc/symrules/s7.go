package symrules

import "github.com/OpenTraceLab/klcheck/pkg/klc"

// S7.1
func checkPowerFlag(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if !sym.IsPowerSymbol() {
		return
	}

	if len(sym.Pins) != 1 {
		r.Error("Power-flag symbols have exactly one pin")
		return
	}
	pin := sym.Pins[0]
	if pin.EType != "power_in" {
		r.Error("The pin in power-flag symbols has to be of a POWER-INPUT")
	}
	if !pin.Hidden {
		r.Error("The pin in power-flag symbols has to be INVISIBLE")
	}
	if pin.Name != sym.Name && "~"+pin.Name != sym.Name {
		r.Errorf("The pin name (%s) in power-flag symbols has to be the same as the component name (%s)", pin.Name, sym.Name)
	}
	if fp := sym.Property("Footprint"); fp != nil && fp.Value != "" {
		r.Errorf("Power symbols have no footprint association (footprint is set to '%s')", fp.Value)
	}
	if ref := sym.Property("Reference"); ref == nil || ref.Value != "#PWR" {
		r.Error("Power symbols have Reference set to '#PWR' ")
	}
	if len(sym.FPFilters()) > 0 {
		r.Error("Power symbols have no footprint filters")
	}
}

// S7.2
func checkGraphicSymbol(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() || !sym.IsGraphicSymbol() {
		return
	}

	if len(sym.Pins) > 0 {
		r.Error("Graphical symbols have no pins")
	}
	if fp := sym.Property("Footprint"); fp != nil && fp.Value != "" {
		r.Errorf("Graphical symbols have no footprint association (footprint was set to '%s')", fp.Value)
	}
	if len(sym.FPFilters()) > 0 {
		r.Error("Graphical symbols have no footprint filters")
	}
	if ref := sym.Property("Reference"); ref == nil {
		r.Error("Graphical symbols have a Reference property")
	} else {
		if ref.Value != "#SYM" {
			r.Error("Graphical symbols have Reference set to '#SYM' ")
		}
		if !ref.Hidden {
			r.Error("Graphical symbols have a hidden Reference")
		}
	}
	if val := sym.Property("Value"); val == nil {
		r.Error("Graphical symbols have a Value property")
	} else if !val.Hidden {
		r.Error("Graphical symbols have a hidden Value")
	}
	if sym.InBom {
		r.Error("Graphical symbols must be 'Excluded from schematic bill of materials'")
	}
	if sym.OnBoard {
		r.Error("Graphical symbols must be 'Excluded from board'")
	}
}
