package symrules

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// S4.1
func checkPinRequirements(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() {
		return
	}

	// Standard symbols keep pins on a 100mil grid with 100mil minimum
	// length; small discretes may use a 50mil grid and shorter pins.
	grid, errLength, warnLength := 100, 49, 99
	if sym.IsSmallComponent() {
		grid, errLength, warnLength = 50, 24, 49
	}

	gridErr := false
	for _, pin := range sym.Pins {
		pinGrid := grid
		if pin.EType == "no_connect" {
			// NC pins on the outline of 50/150mil-long neighbours land
			// off the 100mil grid, and nothing connects to them anyway.
			pinGrid = 50
		}
		posx := int(symbol.MMToMil(pin.PosX))
		posy := int(symbol.MMToMil(pin.PosY))
		if posx%pinGrid != 0 || posy%pinGrid != 0 {
			if !gridErr {
				r.Errorf("Pins not located on %dmil (=%.3gmm) grid:", pinGrid, float64(pinGrid)*0.0254)
				gridErr = true
			}
			r.Errorf(" - %s ", pinString(pin))
		}
	}

	for _, pin := range sym.Pins {
		length := int(symbol.MMToMil(pin.Length))
		if length == 0 {
			// Zero-length pins are hidden power pins.
			continue
		}
		if length <= errLength {
			r.Errorf("%s length (%dmils) is below %dmils", pinString(pin), length, errLength+1)
		} else if length <= warnLength {
			r.Warningf("%s length (%dmils) is below %dmils", pinString(pin), length, warnLength+1)
		}
		if length%50 != 0 {
			r.Warningf("%s length (%dmils) is not a multiple of 50mils", pinString(pin), length)
		}
		if length > 300 {
			r.Errorf("%s length (%dmils) is longer than maximum (300mils)", pinString(pin), length)
		}
	}

	type identity struct {
		number         string
		unit, demorgan int
	}
	seen := map[identity]bool{}
	for _, pin := range sym.Pins {
		id := identity{pin.Number, pin.Unit, pin.DeMorgan}
		if seen[id] {
			r.Errorf("Pin %s is duplicated:", pin.Number)
			r.Extra(pinString(pin))
		}
		seen[id] = true
	}
}

var (
	groundPins        = compileAll([]string{`^[ad]*g(rou)*nd(a)*$`, `^[ad]*v(ss)$`})
	positivePowerPins = compileAll([]string{`^[ad]*v(aa|cc|dd|bat|in)$`, `^in\+?$`})
)

// S4.2
func checkPinGrouping(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() || sym.IsPowerSymbol() {
		return
	}

	var powerIn, powerOut []*symbol.Pin
	for _, pin := range sym.Pins {
		switch pin.EType {
		case "power_in":
			powerIn = append(powerIn, pin)
		case "power_out":
			powerOut = append(powerOut, pin)
		}
	}

	// Ground and negative power pins point up, into the bottom edge.
	first := true
	for _, pin := range sym.Pins {
		if !matchAny(strings.ToLower(pin.Name), groundPins) {
			continue
		}
		if pin.Direction() != "U" {
			if first {
				r.Warning("Ground and negative power pins should be placed at bottom of symbol")
				first = false
			}
			r.Extra(pinString(pin))
		}
	}

	// Positive power inputs go on top, unless the symbol also has
	// power outputs (a regulator), then inputs left, outputs right.
	seen := map[string]bool{}
	for _, pin := range powerIn {
		if !matchAny(pin.Name, positivePowerPins) || seen[pin.Name] {
			continue
		}
		if len(powerOut) == 0 {
			if pin.Direction() != "D" {
				r.Error("Positive power pins should be placed at top of symbol")
				r.Extra("Power conversion devices (e.g. regulators) with both power inputs and outputs are an exception (for these, inputs on left, outputs on right)")
				r.Extra(pinString(pin))
				seen[pin.Name] = true
			}
		} else if pin.Direction() != "R" {
			r.Error("For a power converter symbol, positive power pins should be placed at left of symbol")
			r.Extra("This symbol has power input and output pins, so it is assumed to be a power converter. If this symbol not a power converter, you can ignore this error.")
			r.Extra(pinString(pin))
			seen[pin.Name] = true
		}
	}

	seen = map[string]bool{}
	for _, pin := range powerOut {
		if seen[pin.Name] {
			continue
		}
		if pin.Direction() != "L" {
			r.Error("Power output pins should be placed at right of symbol")
			r.Extra(pinString(pin))
			seen[pin.Name] = true
		}
	}
}

// Electrical types that legitimately mix with passives in a stack.
var specialPowerTypes = map[string]bool{"power_in": true, "power_out": true, "output": true}

func countEType(pins []*symbol.Pin, etype string) int {
	n := 0
	for _, p := range pins {
		if p.EType == etype {
			n++
		}
	}
	return n
}

func smallestPinNumber(pins []*symbol.Pin) int {
	min := math.MaxInt
	for _, p := range pins {
		if p.NumberInt != nil && *p.NumberInt < min {
			min = *p.NumberInt
		}
	}
	return min
}

// S4.3
func checkPinStacks(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() {
		return
	}

	stacks := sym.PinStacks()
	keys := make([]string, 0, len(stacks))
	for k := range stacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var powerStacks []string
	moreThanOneVisible := false
	for _, pos := range keys {
		pins := stacks[pos]
		if len(pins) == 1 {
			continue
		}

		commonName := pins[0].Name
		commonType := pins[0].EType
		minNumber := smallestPinNumber(pins)
		var visible *symbol.Pin
		warnedNonNumeric := false
		namesDiffer := false
		typesDiffer := false

		for _, pin := range pins {
			if pin.NumberInt == nil && !warnedNonNumeric {
				r.Warningf("Found non-numeric pin in a pinstack: %s", pinString(pin))
				warnedNonNumeric = true
			}

			if pin.EType == "no_connect" {
				r.Errorf("NC %s (x=%v, y=%v) is stacked on other pins", pinString(pin), pin.PosX, pin.PosY)
			}

			if pin.Name != commonName && !namesDiffer {
				r.Error("Pin names in the stack have different names")
				namesDiffer = true
				for _, p := range pins {
					r.Extra(pinString(p))
				}
			}

			if !pin.Hidden {
				if visible != nil {
					if !moreThanOneVisible {
						r.Error("A pin stack must have exactly one (1) visible pin")
						for _, p := range pins {
							r.Extraf("%s is visible", pinString(p))
						}
					}
					moreThanOneVisible = true
				} else {
					visible = pin
				}
				if pin.NumberInt != nil && *pin.NumberInt != minNumber {
					r.Warning("The pin with the lowest number in a pinstack should be visible")
					r.Extraf("Pin %s is visible, the lowest number in this stack is %d", pinString(pin), minNumber)
				}
			}

			if pin.EType != commonType && !typesDiffer {
				if specialPowerTypes[pin.EType] || specialPowerTypes[commonType] {
					powerStacks = append(powerStacks, pos)
				} else {
					r.Error("Pin names in the stack have different electrical types")
					for _, p := range pins {
						r.Extraf("%s is of type %s", pinString(p), p.EType)
					}
				}
				typesDiffer = true
			}
		}
	}

	for _, pos := range powerStacks {
		checkPowerStack(r, stacks[pos])
	}
}

// checkPowerStack validates the mixed-type stacks that are allowed
// around power pins: one driving pin shadowed by hidden passives, or a
// stack made entirely of (power) outputs.
func checkPowerStack(r *klc.Result, pins []*symbol.Pin) {
	minNumber := smallestPinNumber(pins)
	nPowerIn := countEType(pins, "power_in")
	nPowerOut := countEType(pins, "power_out")
	nOutput := countEType(pins, "output")
	nPassive := countEType(pins, "passive")
	nTotal := len(pins)

	switch {
	case nPassive == nTotal-1 && (nPowerIn == 1 || nPowerOut == 1 || nOutput == 1):
		for _, pin := range pins {
			if pin.EType == "passive" && !pin.Hidden {
				r.Error("Passive pins in a pinstack are hidden")
				for _, p := range pins {
					if p.EType == "passive" && !p.Hidden {
						r.Extraf("%s is of type %s and visible", pinString(p), p.EType)
					}
				}
				break
			}
		}
		for _, pin := range pins {
			if pin.EType == "passive" {
				continue
			}
			if pin.Hidden {
				r.Error("Non passive pins in a pinstack are visible")
				r.Extraf("%s is of type %s and invisible", pinString(pin), pin.EType)
			}
			if pin.NumberInt != nil && *pin.NumberInt != minNumber {
				r.Warning("The pin with the lowest number in a pinstack should be visible")
				r.Extraf("Pin %s is visible, the lowest number in this stack is %d", pinString(pin), minNumber)
			}
			break
		}

	case nOutput == nTotal || nPowerOut == nTotal:
		var visible *symbol.Pin
		for _, pin := range pins {
			if pin.Hidden {
				continue
			}
			if visible == nil {
				visible = pin
				if pin.NumberInt != nil && *pin.NumberInt != minNumber {
					r.Warning("The pin with the lowest number in a pinstack should be visible")
					r.Extraf("Pin %s is visible, the lowest number in this stack is %d", pinString(pin), minNumber)
				}
			} else {
				r.Error("Only one pin in a pinstack is visible")
				for _, p := range pins {
					if !p.Hidden {
						r.Extraf("Pin %s is visible", pinString(p))
					}
				}
				break
			}
		}

	default:
		r.Errorf("Illegal pin stack configuration next to %s", pinString(pins[0]))
		r.Extraf("Power input pins: %d", nPowerIn)
		r.Extraf("Power output pins: %d", nPowerOut)
		r.Extraf("Output pins: %d", nOutput)
		r.Extraf("Passive pins: %d", nPassive)
		r.Extraf("Other type pins: %d", nTotal-nPowerIn-nPowerOut-nPassive-nOutput)
	}
}

var (
	powerInputNames = compileAll([]string{`^[ad]*g(rou)*nd(a)*$`, `^[ad]*v(aa|cc|dd|ss|bat|in)$`})

	pinTypeSuggestions = []struct {
		etype    string
		patterns []*regexp.Regexp
	}{
		{"power_out", compileAll([]string{`^vout$`})},
		{"input", compileAll([]string{`^sdi$`, `^cl(oc)*k(in)*$`, `^~*cs~*$`, `^[av]ref$`})},
		{"output", compileAll([]string{`^sdo$`, `^cl(oc)*kout$`})},
		{"bidirectional", compileAll([]string{`^sda$`, `^s*dio$`})},
	}

	overlineRe = regexp.MustCompile(`(\~{)(.+)}`)
)

// S4.4
func checkPinTypes(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() {
		return
	}

	// Power pins must carry a power type. Check one representative per
	// stack: the visible pin, or every hidden pin when none is visible.
	stacks := sym.PinStacks()
	keys := make([]string, 0, len(stacks))
	for k := range stacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	powerErrors := 0
	for _, pos := range keys {
		stack := stacks[pos]
		var visible, invisible []*symbol.Pin
		for _, pin := range stack {
			if pin.Hidden {
				invisible = append(invisible, pin)
			} else {
				visible = append(visible, pin)
			}
		}
		checkpins := invisible
		if len(visible) > 0 {
			checkpins = visible[:1]
		}
		for _, pin := range checkpins {
			if matchAny(strings.ToLower(pin.Name), powerInputNames) && strings.ToLower(pin.EType) != "power_in" {
				if powerErrors == 0 {
					r.Error("Power pins should be of type POWER INPUT or POWER OUTPUT")
				}
				powerErrors++
				r.Extraf("%s is of type %s", pinString(pin), pin.EType)
			}
		}
		if len(stack) > 1 && len(visible) > 0 && strings.ToLower(visible[0].EType) == "power_in" {
			for _, pin := range invisible {
				if strings.ToLower(pin.EType) != "passive" {
					if powerErrors == 0 {
						r.Error("Invisible powerpins in stacks should be of type PASSIVE")
						powerErrors++
					}
				}
			}
		}
	}

	// An overline in the label plus an inversion bubble inverts twice.
	inversions := 0
	for _, pin := range sym.Pins {
		if overlineRe.MatchString(pin.Name) && pin.Shape == "inverted" {
			if inversions == 0 {
				r.Error("Pins should not be inverted twice (with inversion-symbol on pin and overline on label)")
			}
			inversions++
			r.Extraf("%s : double inversion (overline + pin type:Inverting)", pinString(pin))
		}
	}

	suggestions := 0
	for _, pin := range sym.Pins {
		name := strings.ToLower(pin.Name)
		for _, candidate := range pinTypeSuggestions {
			if !matchAny(name, candidate.patterns) {
				continue
			}
			if pin.EType != candidate.etype {
				if suggestions == 0 {
					r.Warning("Pin types should match pin function")
				}
				suggestions++
				r.Extraf("%s is type %s : suggested %s", pinString(pin), pin.EType, candidate.etype)
			}
			break
		}
	}
}

// S4.5
func checkMissingPinNumbers(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() {
		return
	}

	max := 0
	numbers := map[int]bool{}
	for _, pin := range sym.Pins {
		if pin.NumberInt == nil {
			continue
		}
		numbers[*pin.NumberInt] = true
		if *pin.NumberInt > max {
			max = *pin.NumberInt
		}
	}
	if len(numbers) == 0 {
		return
	}

	var missing []string
	for i := 1; i <= max; i++ {
		if !numbers[i] {
			missing = append(missing, strconv.Itoa(i))
		}
	}
	if len(missing) == 1 {
		r.Warningf("Pin %s is missing.", missing[0])
	} else if len(missing) > 1 {
		r.Warningf("Pins %s are missing.", strings.Join(missing, ", "))
	}
}

var ncPinNames = compileAll([]string{`^nc$`, `^dnc$`, `^n\.c\.$`})

// S4.6
func checkNCPins(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() {
		return
	}

	var wrongType, visible []*symbol.Pin
	for _, pin := range sym.Pins {
		if !matchAny(strings.ToLower(pin.Name), ncPinNames) && pin.EType != "no_connect" {
			continue
		}
		if pin.EType != "no_connect" {
			wrongType = append(wrongType, pin)
		}
		if !pin.Hidden {
			visible = append(visible, pin)
		}
	}

	if len(wrongType) > 0 {
		r.Error("NC pins are not correct pin-type:")
		for _, pin := range wrongType {
			r.Extraf("%s should be of type NOT CONNECTED, but is of type %s", pinString(pin), pin.EType)
		}
	}
	if len(visible) > 0 {
		r.Warning("NC pins are VISIBLE (should be INVISIBLE):")
		for _, pin := range visible {
			r.Extraf("%s should be INVISIBLE", pinString(pin))
		}
	}
}
