package symrules

import (
	"math"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// Symbols smaller than this (in mils) may sit 50mil off-center, e.g.
// when an even number of 100mil-spaced pins straddles the origin.
const smallSymbolSize = 800.0

// S3.1
func checkOriginCentered(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() {
		return
	}

	unitCount := sym.UnitCount
	if unitCount < 1 {
		unitCount = 1
	}
	for unit := 1; unit <= unitCount; unit++ {
		var x, y, sizeX, sizeY float64
		if outline := sym.CenterRectangle([]int{0, unit}); outline != nil {
			x, y = outline.Center()
			minX, minY, maxX, maxY := outline.BoundingBox()
			sizeX, sizeY = maxX-minX, maxY-minY
		} else {
			minX, minY := math.Inf(1), math.Inf(1)
			maxX, maxY := math.Inf(-1), math.Inf(-1)
			found := false
			for _, pin := range sym.Pins {
				if pin.Unit != unit && pin.Unit != 0 {
					continue
				}
				found = true
				minX, maxX = math.Min(minX, pin.PosX), math.Max(maxX, pin.PosX)
				minY, maxY = math.Min(minY, pin.PosY), math.Max(maxY, pin.PosY)
			}
			if !found {
				continue
			}
			x, y = (minX+maxX)/2, (minY+maxY)/2
			sizeX, sizeY = maxX-minX, maxY-minY
		}

		x, y = symbol.MMToMil(x), symbol.MMToMil(y)
		sizeX, sizeY = symbol.MMToMil(sizeX), symbol.MMToMil(sizeY)

		switch {
		case x == 0 && y == 0:
		case math.Abs(x) == 50 || math.Abs(y) == 50:
			if badOffset(x, sizeX) || badOffset(y, sizeY) {
				r.Warningf("Symbol unit %d slightly off-center", unit)
				r.Extraf("Center calculated @ (%v, %v)", x, y)
			}
		default:
			r.Errorf("Symbol unit %d not centered on origin", unit)
			r.Extraf("Center calculated @ (%v, %v)", x, y)
		}
	}
}

// badOffset reports whether an axis offset is unacceptable: big
// symbols must be exactly centered, small ones may be 50mil off.
func badOffset(offset, size float64) bool {
	if size > smallSymbolSize {
		return math.Abs(offset) != 0
	}
	return math.Abs(offset) != 0 && math.Abs(offset) != 50
}

// S3.2
func checkTextSizes(ctx *klc.SymbolContext, r *klc.Result) {
	for _, prop := range ctx.Symbol.Properties {
		if prop.Effect == nil {
			continue
		}
		size := symbol.MMToMil(prop.Effect.SizeX)
		if size != 50 {
			r.Errorf(" - Field %s at posx %v posy %v size %v",
				prop.Name, symbol.MMToMil(prop.PosX), symbol.MMToMil(prop.PosY), size)
		}
	}

	// Pin number must be 50mils, pin name 20..50mils with 50 preferred.
	for _, pin := range ctx.Symbol.Pins {
		if pin.NameEffect == nil || pin.NumberEffect == nil {
			continue
		}
		nameSize := symbol.MMToMil(pin.NameEffect.SizeX)
		numSize := symbol.MMToMil(pin.NumberEffect.SizeX)
		if nameSize < 20 || nameSize > 50 || numSize < 20 || numSize > 50 {
			r.Errorf(" - Pin %s (%s), text size %v, number size %v", pin.Name, pin.Number, nameSize, numSize)
			continue
		}
		if nameSize != 50 {
			r.Warningf("Pin %s (%s) name text size should be 50mils (or 20...50mils if required by the symbol geometry)", pin.Name, pin.Number)
		}
		if numSize != 50 {
			r.Warningf("Pin %s (%s) number text size should be 50mils (or 20...50mils if required by the symbol geometry)", pin.Name, pin.Number)
		}
	}
}

// S3.6
func checkPinNameOffset(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	if sym.IsDerived() || sym.HidePinNames {
		return
	}
	offset := symbol.MMToMil(sym.PinNamesOffset)
	switch {
	case offset == 0:
		// Zero places the names outside the outline, where the offset
		// rules do not apply.
	case offset > 50:
		r.Error("Pin offset outside allowed range")
		r.Extraf("Pin offset (%v) must not be above 50mils", offset)
	case offset < 20:
		r.Warning("Pin offset outside allowed range")
		r.Extraf("Pin offset (%v) should not be below 20mils", offset)
	case offset > 20:
		r.Warning("Pin offset not preferred value")
		r.Extraf("Pin offset (%v) should be 20mils unless required by symbol geometry", offset)
	}
}
