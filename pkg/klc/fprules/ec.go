package fprules

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// Layers the geometry checks walk, outline layers first.
var graphicLayers = []string{"F.Fab", "B.Fab", "F.SilkS", "B.SilkS", "F.CrtYd", "B.CrtYd"}

const (
	// Angular deviation from horizontal or vertical (radians) below
	// which a line was probably meant to be axis-aligned.
	smallLineAngle = 2.0 * math.Pi / 180
	// Deviation small enough to treat the line as axis-aligned with a
	// rounding error.
	verySmallLineAngle = 0.4 * math.Pi / 180
)

// shapeString names a graphic item by its endpoints.
func shapeString(g footprint.Graph) string {
	switch it := g.(type) {
	case *footprint.Line:
		return fmt.Sprintf("Line (%v,%v) -> (%v,%v)", it.StartX, it.StartY, it.EndX, it.EndY)
	case *footprint.Arc:
		return fmt.Sprintf("Arc (%v,%v) -> (%v,%v)", it.StartX, it.StartY, it.EndX, it.EndY)
	case *footprint.Circle:
		return fmt.Sprintf("Circle @ (%v,%v)", it.CenterX, it.CenterY)
	}
	return "Graphical item"
}

// EC01
func checkGeometry(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	for _, layer := range graphicLayers {
		var nullLines, lowAngle, offAxis []*footprint.Line
		for _, line := range fp.Lines {
			if line.Layer != layer {
				continue
			}
			if line.StartX == line.EndX && line.StartY == line.EndY {
				nullLines = append(nullLines, line)
				continue
			}
			dx := math.Abs(line.EndX - line.StartX)
			dy := math.Abs(line.EndY - line.StartY)
			if dx == 0 || dy == 0 {
				continue
			}
			// Angle between the line and the nearest axis.
			a := math.Atan2(math.Min(dx, dy), math.Max(dx, dy))
			switch {
			case a < verySmallLineAngle:
				lowAngle = append(lowAngle, line)
			case a < smallLineAngle:
				offAxis = append(offAxis, line)
			}
		}

		if len(nullLines) > 0 {
			r.Warning("Zero length lines")
			r.Extra("The following lines have 0 length")
			for _, l := range nullLines {
				r.Extraf("%s on layer '%s'", shapeString(l), layer)
			}
		}
		if len(lowAngle) > 0 {
			r.Warning("Low angle")
			r.Extra("The following lines should be vertical or horizontal")
			for _, l := range lowAngle {
				r.Extraf("%s on layer '%s'", shapeString(l), layer)
			}
		}
		if len(offAxis) > 0 {
			r.Warning("Verticality / horizontality")
			r.Extra("The following lines might be slightly not horizontal or vertical")
			for _, l := range offAxis {
				r.Extraf("%s on layer '%s'", shapeString(l), layer)
			}
		}
	}
}
