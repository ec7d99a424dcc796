package fprules

import (
	"fmt"
	"math"
	"strconv"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

func graphItemString(g footprint.Graph) string {
	minX, minY, maxX, maxY := g.Bounds()
	return fmt.Sprintf("Graphic item on layer %s from (%v, %v) to (%v, %v), width %v",
		g.GraphLayer(), minX, minY, maxX, maxY, g.Width())
}

// F5.2
func checkFabLayer(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	checkFabValue(fp, r)

	fabGraphs := append(fp.Graphs("F.Fab"), fp.Graphs("B.Fab")...)
	if len(fabGraphs) == 0 && !fp.IsVirtual() {
		r.Error("No drawings found on fabrication layer")
	}

	checkFabWidths(fabGraphs, r)
	checkSecondRef(fp, r)
}

func checkFabValue(fp *footprint.Footprint, r *klc.Result) {
	val := fp.Value()
	if val == nil {
		r.Error("Missing 'value' field")
		return
	}

	var errors []string
	if val.Text != fp.Name {
		errors = append(errors, "Value text should match footprint name:",
			fmt.Sprintf("Value text is '%s', expected: '%s'", val.Text, fp.Name))
	}

	fMin := math.Min(val.Font.Height, val.Font.Width)
	fMax := math.Max(val.Font.Height, val.Font.Width)

	if val.Layer != "F.Fab" && val.Layer != "B.Fab" {
		errors = append(errors, fmt.Sprintf("Component value is on layer %s but should be on F.Fab or B.Fab", val.Layer))
	}
	if val.Hidden {
		errors = append(errors, "Component value is hidden (should be set to visible)")
	}
	if fMin < klcTextSizeMin {
		errors = append(errors, fmt.Sprintf("Value label size (%vmm) is below minimum allowed value of %vmm", fMin, klcTextSizeMin))
	}
	if fMax > klcTextSizeMax {
		errors = append(errors, fmt.Sprintf("Value label size (%vmm) is above maximum allowed value of %vmm", fMax, klcTextSizeMax))
	}
	if val.Font.Thickness < klcTextThicknessMin || val.Font.Thickness > klcTextThicknessMax {
		errors = append(errors, fmt.Sprintf("Value label thickness (%vmm) is outside allowed range of %vmm - %vmm",
			val.Font.Thickness, klcTextThicknessMin, klcTextThicknessMax))
	}

	if len(errors) > 0 {
		r.Error("Value Label Errors")
		for _, e := range errors {
			r.Extra(e)
		}
	}
}

func checkFabWidths(graphs []footprint.Graph, r *klc.Result) {
	var bad, nonNominal []footprint.Graph
	for _, g := range graphs {
		switch w := g.Width(); {
		case w < klcFabWidthMin || w > klcFabWidthMax:
			bad = append(bad, g)
		case w != klcFabWidth:
			nonNominal = append(nonNominal, g)
		}
	}
	if len(bad) > 0 {
		r.Errorf("Some fabrication layer lines have a width outside allowed range of [%vmm - %vmm]", klcFabWidthMin, klcFabWidthMax)
		for _, g := range bad {
			r.Extra(graphItemString(g))
		}
	}
	if len(nonNominal) > 0 {
		r.Warningf("Some fabrication layer lines are not using the nominal width of %v mm", klcFabWidth)
		for _, g := range nonNominal {
			r.Extra(graphItemString(g))
		}
	}
}

// checkSecondRef wants exactly one ${REFERENCE} marker on the fab
// layer so assembly drawings carry the real designator.
func checkSecondRef(fp *footprint.Footprint, r *klc.Result) {
	var ref *footprint.Text
	count := 0
	for _, text := range fp.UserTexts() {
		if text.Text == "${REFERENCE}" {
			ref = text
			count++
		}
	}
	if count > 1 {
		r.Error("Multiple RefDes markers found with text '${REFERENCE}'")
	}
	if ref == nil {
		if !fp.IsVirtual() {
			r.Error("Second Reference Designator missing")
			r.Extra("Add RefDes to F.Fab layer with '${REFERENCE}'")
		}
		return
	}

	if ref.Layer != "F.Fab" && ref.Layer != "B.Fab" {
		r.Errorf("Reference designator found on layer '%s', expected 'F.Fab'", ref.Layer)
		return
	}

	var errors, warnings []string
	if ref.Font.Height != ref.Font.Width {
		errors = append(errors, "RefDes aspect ratio should be 1:1")
	}
	if ref.Font.Height < klcTextSizeMin || ref.Font.Height > klcTextSizeMax {
		warnings = append(warnings, fmt.Sprintf("RefDes text size (%vmm) is outside allowed range [%vmm - %vmm]",
			ref.Font.Height, klcTextSizeMin, klcTextSizeMax))
	}
	if ref.Font.Thickness < klcTextThicknessMin || ref.Font.Thickness > klcTextThicknessMax {
		warnings = append(warnings, fmt.Sprintf("RefDes text thickness (%vmm) is outside allowed range [%vmm - %vmm]",
			ref.Font.Thickness, klcTextThicknessMin, klcTextThicknessMax))
	}
	if ref.Unlocked {
		errors = append(errors, "RefDes on F.Fab layer should be locked (upright orientation)")
	}

	if len(errors) > 0 {
		r.Error("RefDes errors")
		for _, e := range errors {
			r.Extra(e)
		}
	}
	if len(warnings) > 0 {
		r.Warning("RefDes warnings")
		for _, w := range warnings {
			r.Extra(w)
		}
	}
}

// graphEndpoints returns the start and end points of a chainable
// outline item. Circles close on themselves; filled shapes report no
// endpoints.
func graphEndpoints(g footprint.Graph) (sx, sy, ex, ey float64, ok bool) {
	switch it := g.(type) {
	case *footprint.Line:
		return it.StartX, it.StartY, it.EndX, it.EndY, true
	case *footprint.Arc:
		return it.StartX, it.StartY, it.EndX, it.EndY, true
	case *footprint.Circle:
		return it.EndX, it.EndY, it.EndX, it.EndY, true
	}
	return 0, 0, 0, 0, false
}

// onGrid checks a coordinate against the grid in nanometers so float
// noise does not produce false positives.
func onGrid(mm, grid float64) bool {
	step := int64(math.Round(grid * 1e6))
	return int64(math.Round(mm*1e6))%step == 0
}

// openEnds chains the outline items of one courtyard side end to end
// and returns a witness item when the outline does not close.
func openEnds(graphs []footprint.Graph) []footprint.Graph {
	var chain []footprint.Graph
	for _, g := range graphs {
		if _, _, _, _, ok := graphEndpoints(g); ok {
			chain = append(chain, g)
		}
	}
	if len(chain) == 0 {
		return nil
	}

	same := func(ax, ay, bx, by, tol float64) bool {
		return math.Abs(ax-bx) <= tol && math.Abs(ay-by) <= tol
	}
	isArc := func(g footprint.Graph) bool {
		_, ok := g.(*footprint.Arc)
		return ok
	}

	remaining := append([]footprint.Graph(nil), chain[:len(chain)-1]...)
	curr := chain[len(chain)-1]
	currX, currY, endX, endY, _ := graphEndpoints(curr)

	tol := 0.0
	for len(remaining) > 0 {
		matched := false
		for i, g := range remaining {
			// Arc endpoints carry rounding from the mid-point form.
			tol = 0.0
			if isArc(g) || isArc(curr) {
				tol = 0.01
			}
			sx, sy, ex, ey, _ := graphEndpoints(g)
			switch {
			case same(currX, currY, sx, sy, tol):
				curr, currX, currY = g, ex, ey
			case same(currX, currY, ex, ey, tol):
				curr, currX, currY = g, sx, sy
			default:
				continue
			}
			remaining = append(remaining[:i], remaining[i+1:]...)
			matched = true
			break
		}
		if !matched {
			return []footprint.Graph{curr}
		}
	}
	if same(currX, currY, endX, endY, tol) {
		return nil
	}
	return []footprint.Graph{curr}
}

// F5.3
func checkCourtyard(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	front := fp.Graphs("F.CrtYd")
	back := fp.Graphs("B.CrtYd")
	if len(front) == 0 && len(back) == 0 {
		r.Error("No courtyard found!")
		r.Extra("Add courtyard around footprint")
		return
	}

	var unconnected []footprint.Graph
	unconnected = append(unconnected, openEnds(front)...)
	unconnected = append(unconnected, openEnds(back)...)

	var badWidth, badGrid []footprint.Graph
	for _, g := range append(front, back...) {
		if g.Width() != klcCourtyardWidth {
			badWidth = append(badWidth, g)
		}
		sx, sy, ex, ey, ok := graphEndpoints(g)
		if !ok {
			sx, sy, ex, ey = g.Bounds()
		}
		for _, c := range []float64{sx, sy, ex, ey} {
			if !onGrid(c, klcCourtyardGrid) {
				badGrid = append(badGrid, g)
				break
			}
		}
	}

	if len(badWidth) > 0 {
		r.Errorf("Courtyard width error (expected width = %vmm)", klcCourtyardWidth)
		for _, g := range badWidth {
			r.Extraf("%s on layer '%s' has width '%v'", shapeString(g), g.GraphLayer(), g.Width())
		}
	}
	if len(badGrid) > 0 {
		r.Errorf("Courtyard lines are not on %vmm grid", klcCourtyardGrid)
		for _, g := range badGrid {
			r.Extraf("%s on layer '%s'", shapeString(g), g.GraphLayer())
		}
	}
	if len(unconnected) > 0 {
		r.Error("Courtyard must be closed.")
		r.Extra("The following lines have unconnected endpoints")
		for _, g := range unconnected {
			r.Extraf("%s on layer '%s'", shapeString(g), g.GraphLayer())
		}
	}
}

const segTolerance = 1e-7

// pointOnSegment reports whether the point lies on the segment, within
// tolerance.
func pointOnSegment(l *footprint.Line, px, py float64) bool {
	vx, vy := l.EndX-l.StartX, l.EndY-l.StartY
	wx, wy := px-l.StartX, py-l.StartY
	if math.Abs(vx*wy-vy*wx) > segTolerance {
		return false
	}
	dot := vx*wx + vy*wy
	return dot >= -segTolerance && dot <= vx*vx+vy*vy+segTolerance
}

// sharesOneEndpoint excludes chained segments from overlap detection.
func sharesOneEndpoint(a, b *footprint.Line) bool {
	near := func(x1, y1, x2, y2 float64) bool {
		return math.Hypot(x2-x1, y2-y1) < segTolerance
	}
	switch {
	case near(a.StartX, a.StartY, b.StartX, b.StartY):
		return !near(a.EndX, a.EndY, b.EndX, b.EndY)
	case near(a.StartX, a.StartY, b.EndX, b.EndY):
		return !near(a.EndX, a.EndY, b.StartX, b.StartY)
	case near(a.EndX, a.EndY, b.StartX, b.StartY):
		return !near(a.StartX, a.StartY, b.EndX, b.EndY)
	case near(a.EndX, a.EndY, b.EndX, b.EndY):
		return !near(a.StartX, a.StartY, b.StartX, b.StartY)
	}
	return false
}

func segmentsOverlap(a, b *footprint.Line) bool {
	if sharesOneEndpoint(a, b) {
		return false
	}
	return pointOnSegment(a, b.StartX, b.StartY) || pointOnSegment(a, b.EndX, b.EndY) ||
		pointOnSegment(b, a.StartX, a.StartY) || pointOnSegment(b, a.EndX, a.EndY)
}

type graphPair [2]footprint.Graph

// overlappingLines buckets lines by direction so only colinear
// candidates are compared pairwise.
func overlappingLines(lines []*footprint.Line) []graphPair {
	groups := map[string][]*footprint.Line{}
	var order []string
	for _, l := range lines {
		dx := l.StartX - l.EndX
		dy := l.StartY - l.EndY
		var key string
		switch {
		case dx == 0:
			key = "h"
		case dy == 0:
			key = "v"
		default:
			key = strconv.FormatFloat(math.Round(dx/dy*1000)/1000, 'f', -1, 64)
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], l)
	}

	var pairs []graphPair
	for _, key := range order {
		group := groups[key]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if segmentsOverlap(group[i], group[j]) {
					pairs = append(pairs, graphPair{group[i], group[j]})
				}
			}
		}
	}
	return pairs
}

func duplicateCircles(circles []*footprint.Circle) []graphPair {
	var pairs []graphPair
	for i := 0; i < len(circles); i++ {
		for j := i + 1; j < len(circles); j++ {
			a, b := circles[i], circles[j]
			if a.CenterX == b.CenterX && a.CenterY == b.CenterY && a.EndX == b.EndX && a.EndY == b.EndY {
				pairs = append(pairs, graphPair{a, b})
			}
		}
	}
	return pairs
}

// F5.4
func checkGraphOverlap(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	for _, layer := range graphicLayers {
		var lines []*footprint.Line
		for _, l := range fp.Lines {
			if l.Layer == layer {
				lines = append(lines, l)
			}
		}
		var circles []*footprint.Circle
		for _, c := range fp.Circles {
			if c.Layer == layer {
				circles = append(circles, c)
			}
		}

		pairs := overlappingLines(lines)
		pairs = append(pairs, duplicateCircles(circles)...)
		if len(pairs) == 0 {
			continue
		}
		r.Errorf("%s graphic elements should not overlap.", layer)
		r.Extraf("The following elements overlap at least one other graphic element on layer %s:", layer)
		for _, p := range pairs {
			r.Extraf("%s with %s", shapeString(p[0]), shapeString(p[1]))
		}
	}
}
