package symbol

import "math"

// KiCad symbol editors work in mils internally while the file format
// stores millimeters. Checks that speak in grid units convert here.

// MilToMM converts mils (thousandths of an inch) to millimeters,
// rounded to micrometre precision so converted grid coordinates
// compare exactly.
func MilToMM(mil float64) float64 { return math.Round(mil*0.0254*1e6) / 1e6 }

// MMToMil converts millimeters to whole mils.
func MMToMil(mm float64) float64 { return math.Round(mm / 0.0254) }

// Valid pin rotations in degrees.
var ValidRotations = []float64{0, 90, 180, 270}

// RotationToDirection maps a pin rotation to its compass letter:
// 0=R (pointing right), 90=U, 180=L, 270=D.
func RotationToDirection(rotation float64) (string, bool) {
	switch rotation {
	case 0:
		return "R", true
	case 90:
		return "U", true
	case 180:
		return "L", true
	case 270:
		return "D", true
	}
	return "", false
}

// DirectionToRotation is the inverse of RotationToDirection.
func DirectionToRotation(dir string) (float64, bool) {
	switch dir {
	case "R":
		return 0, true
	case "U":
		return 90, true
	case "L":
		return 180, true
	case "D":
		return 270, true
	}
	return 0, false
}
