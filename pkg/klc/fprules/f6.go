package fprules

import (
	"math"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// F6.1
func checkSMDAttribute(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	smdCount := len(fp.FilterPads("smd"))
	pthCount := len(fp.FilterPads("thru_hole"))

	if smdCount == 0 || fp.Type == "smd" {
		return
	}
	if fp.IsVirtual() {
		r.Warning("Footprint placement type set to 'virtual' - ensure this is correct!")
	} else if pthCount == 0 {
		r.Error("Surface Mount attribute not set")
		r.Extra("For SMD footprints, 'Placement type' must be set to 'Surface mount'")
	} else {
		r.Warning("Surface Mount attribute not set")
		r.Extra("Both THT and SMD pads were found")
		r.Extra("Suggest setting 'Placement Type' to 'Surface Mount'")
	}
}

// F6.2
//
// The anchor check assumes a symmetric part whose pick and place
// location is the geometric center. Odd-shaped connectors will fail it
// even when they are correct.
func checkSMDAnchor(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	if fp.Type != "smd" {
		return
	}

	padX, padY, padsOK := fp.PadsCenter()
	minX, minY, maxX, maxY, fabOK := fp.BoundingBox("F.Fab")
	if !padsOK && !fabOK {
		return
	}
	fabX, fabY := (minX+maxX)/2, (minY+maxY)/2

	// Whichever calculated center is closer to the origin wins.
	x, y := padX, padY
	if !padsOK || (fabOK && math.Hypot(fabX, fabY) < math.Hypot(padX, padY)) {
		x, y = fabX, fabY
	}

	const threshold = 0.001
	if math.Abs(x) > threshold || math.Abs(y) > threshold {
		r.Error("Footprint anchor does not match calculated center of Pads or F.Fab")
		if padsOK {
			r.Extraf("calculated center for Pads [%v,%vmm]", round5(padX), round5(padY))
		}
		if fabOK {
			r.Extraf("calculated center for F.Fab [%v,%vmm]", round5(fabX), round5(fabY))
		}
	}
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// F7.1
func checkTHTAttribute(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	pthCount := len(fp.FilterPads("thru_hole"))
	smdCount := len(fp.FilterPads("smd"))

	if fp.Type == "through_hole" {
		if pthCount == 0 {
			r.Error("Through hole footprint type is set, but no THT pads found")
		}
		if fp.ExcludeFromBOM {
			r.Error("Through hole footprints should not be excluded from BOM")
			r.Extra(`If this part isn't physically fitted, perhaps this footprint should be of "unspecified" type.`)
		}
		if fp.ExcludeFromPosFiles {
			r.Error("Through hole footprints should not be excluded from position files")
			r.Extra(`If this part isn't physically fitted, perhaps this footprint should be of "unspecified" type.`)
		}
	}

	if pthCount > 0 && fp.Type != "through_hole" {
		if fp.ExcludeFromBOM || fp.ExcludeFromPosFiles {
			// Without a paste layer to inspect this is only a hunch,
			// so warn where the SMD counterpart errors.
			r.Warning("Footprint is excluded from BOM or position files,  but has plated THT pads")
			r.Extra("Ensure this is correct.")
		} else if smdCount == 0 {
			r.Error("Through Hole attribute not set")
			r.Extra("For THT footprints, 'Placement type' must be set to 'Through hole'")
		}
	}
}

// Pad numbers that conventionally denote the first pin.
var padOneNames = []string{"1", "A", "A1", "P1", "PAD1"}

// F7.2
func checkTHTAnchor(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	if fp.Type != "through_hole" {
		return
	}

	var pads []*footprint.Pad
	num := ""
	for _, name := range padOneNames {
		if pads = fp.PadsByNumber(name); len(pads) > 0 {
			num = name
			break
		}
	}
	if len(pads) == 0 {
		r.Warning("Pad 1 not found in footprint!")
		return
	}
	for _, pad := range pads {
		if pad.PosX == 0 && pad.PosY == 0 {
			return
		}
	}
	if len(pads) > 1 {
		r.Warningf("Multiple Pins exist with number '%s'", num)
		r.Extra("None are located on origin")
	} else {
		r.Errorf("Pad '%s' not located at origin", num)
		r.Extraf("Set origin to location of Pad '%s'", num)
	}
}

// F7.3
func checkPadOneShape(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	if fp.Type != "through_hole" {
		return
	}

	isPadOne := func(number string) bool {
		upper := strings.ToUpper(number)
		for _, n := range padOneNames {
			if upper == n {
				return true
			}
		}
		return false
	}
	rectangular := func(shape string) bool {
		return shape == "rect" || shape == "roundrect"
	}

	padOneRect := true
	othersRect := false
	for _, pad := range fp.Pads {
		if isPadOne(pad.Number) {
			if !rectangular(pad.Shape) {
				padOneRect = false
			}
		} else if rectangular(pad.Shape) {
			othersRect = true
		}
	}

	if !padOneRect && len(fp.Pads) >= 2 {
		r.Warning("Pad 1 should be rectangular")
		r.Extra("Ignore for non-polarized devices")
	}
	if othersRect {
		r.Warning("Only pad 1 should be rectangular")
	}
}
