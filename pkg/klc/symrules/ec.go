package symrules

import (
	"math"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/symbol"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

const (
	// Lengths below this (mm, about 4 thou) are treated as degenerate.
	nearZeroLength = 0.1
	// Angular deviation below this (radians) from horizontal or
	// vertical is probably a slip of the mouse.
	verySmallAngle = 0.4 * math.Pi / 180
)

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// EC01
func checkGeometry(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	checkDegenerateArcs(sym, r)
	checkDegeneratePolylines(sym, r)
	checkDuplicateSegments(sym, r)
	checkDuplicateCircles(sym, r)
	checkDuplicateArcs(sym, r)
}

func checkDegenerateArcs(sym *symbol.Symbol, r *klc.Result) {
	for _, arc := range sym.Arcs {
		dStartMid := dist(arc.StartX, arc.StartY, arc.MidX, arc.MidY)
		dEndMid := dist(arc.EndX, arc.EndY, arc.MidX, arc.MidY)
		dStartEnd := dist(arc.StartX, arc.StartY, arc.EndX, arc.EndY)

		if dStartMid < nearZeroLength || dEndMid < nearZeroLength {
			r.Warningf("Arc has zero or near-zero size: start (%v, %v), mid (%v, %v), end (%v, %v)",
				arc.StartX, arc.StartY, arc.MidX, arc.MidY, arc.EndX, arc.EndY)
		} else if dStartEnd < nearZeroLength {
			r.Warningf("Arc starts and ends in the same place ((%v, %v)): is it a circle?", arc.StartX, arc.StartY)
		}
	}
}

func checkDegeneratePolylines(sym *symbol.Symbol, r *klc.Result) {
	for _, pl := range sym.Polylines {
		switch len(pl.Points) {
		case 0:
			r.Warning("Polyline contains no points")
			continue
		case 1:
			r.Warningf("Polyline contains only a single point: (%v, %v)", pl.Points[0].X, pl.Points[0].Y)
			continue
		}
		for i := 0; i < len(pl.Points)-1; i++ {
			a, b := pl.Points[i], pl.Points[i+1]
			length := dist(a.X, a.Y, b.X, b.Y)
			if length < nearZeroLength {
				r.Warningf("Polyline contains a zero or near-zero length segment (segment %d of %d): (%v, %v)-(%v, %v), length %f",
					i+1, len(pl.Points)-1, a.X, a.Y, b.X, b.Y, length)
			}

			theta := math.Atan2(b.Y-a.Y, b.X-a.X)
			quarter := math.Mod(theta, math.Pi/2)
			if quarter < 0 {
				quarter += math.Pi / 2
			}
			deviation := math.Pi/4 - math.Abs(math.Pi/4-quarter)
			if deviation > 0 && deviation < verySmallAngle {
				r.Warningf("Polyline contains a segment that is nearly but not exactly horizontal or vertical (segment %d of %d): (%v, %v)-(%v, %v) is %f degrees",
					i+1, len(pl.Points)-1, a.X, a.Y, b.X, b.Y, theta*180/math.Pi)
			}
		}
	}
}

type segKey struct {
	a, b symbol.Point
}

// segment direction does not matter for duplicate detection
func newSegKey(a, b symbol.Point) segKey {
	if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
		a, b = b, a
	}
	return segKey{a, b}
}

func checkDuplicateSegments(sym *symbol.Symbol, r *klc.Result) {
	seen := map[segKey]bool{}
	for _, pl := range sym.Polylines {
		for i := 0; i < len(pl.Points)-1; i++ {
			key := newSegKey(pl.Points[i], pl.Points[i+1])
			if seen[key] {
				r.Warningf("The same segment exists multiple times: (%v, %v)-(%v, %v)",
					key.a.X, key.a.Y, key.b.X, key.b.Y)
			}
			seen[key] = true
		}
	}
}

func checkDuplicateCircles(sym *symbol.Symbol, r *klc.Result) {
	type circleKey struct {
		x, y, radius float64
	}
	seen := map[circleKey]bool{}
	for _, c := range sym.Circles {
		key := circleKey{c.CenterX, c.CenterY, c.Radius}
		if seen[key] {
			r.Warningf("The same circle geometry exists multiple times: (%v, %v), radius %v",
				c.CenterX, c.CenterY, c.Radius)
		}
		seen[key] = true
	}
}

func checkDuplicateArcs(sym *symbol.Symbol, r *klc.Result) {
	type arcKey struct {
		sx, sy, mx, my, ex, ey float64
	}
	seen := map[arcKey]bool{}
	for _, a := range sym.Arcs {
		key := arcKey{a.StartX, a.StartY, a.MidX, a.MidY, a.EndX, a.EndY}
		if seen[key] {
			r.Warningf("The same arc geometry exists multiple times: (%v, %v), midpoint (%v, %v), end (%v, %v)",
				a.StartX, a.StartY, a.MidX, a.MidY, a.EndX, a.EndY)
		}
		seen[key] = true
	}
}

// EC02
//
// The recommendations only hold for simple rectangular bodies, so
// symbols without one are skipped. Everything here is advisory.
func checkFieldPlacement(ctx *klc.SymbolContext, r *klc.Result) {
	sym := ctx.Symbol
	ctr := sym.CenterRectangle([]int{0, 1})
	if ctr == nil {
		return
	}
	_, bottom, _, top := ctr.BoundingBox()

	var downX, upX []float64
	for _, p := range sym.Pins {
		switch p.Direction() {
		case "D":
			downX = append(downX, p.PosX)
		case "U":
			upX = append(upX, p.PosX)
		}
	}

	// Reference and value sit above the body: centered when no pin
	// enters from the top, otherwise right-aligned before the first
	// top pin.
	refX, refAlign := 0.0, "center"
	if len(downX) > 0 {
		refX = minOf(downX) - symbol.MilToMM(100)
		refAlign = "right"
	}
	checkFieldPos(sym, r, "reference", "Reference", refX, top+symbol.MilToMM(125), refAlign)
	checkFieldPos(sym, r, "name", "Value", refX, top+symbol.MilToMM(50), refAlign)

	fpX, fpAlign := 0.0, "center"
	if len(upX) > 0 {
		fpX = maxOf(upX) + symbol.MilToMM(50)
		fpAlign = "left"
	}
	checkFieldPos(sym, r, "footprint", "Footprint", fpX, bottom-symbol.MilToMM(50), fpAlign)
}

func checkFieldPos(sym *symbol.Symbol, r *klc.Result, label, propName string, wantX, wantY float64, wantAlign string) {
	prop := sym.Property(propName)
	if prop == nil {
		return
	}
	if !samePos(prop.PosX, wantX) || !samePos(prop.PosY, wantY) {
		r.Warningf("field: %s, @ (%v, %v), recommended @ (%v, %v)", label,
			symbol.MMToMil(prop.PosX), symbol.MMToMil(prop.PosY),
			symbol.MMToMil(wantX), symbol.MMToMil(wantY))
	}
	if prop.Effect != nil && prop.Effect.HJustify != wantAlign {
		r.Warningf("field: %s, justification %s, recommended %s", label, prop.Effect.HJustify, wantAlign)
	}
}

func samePos(a, b float64) bool {
	return math.Round(a*1e6) == math.Round(b*1e6)
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Max(m, v)
	}
	return m
}
