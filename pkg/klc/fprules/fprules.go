// Package fprules implements the KiCad Library Convention checks for
// footprints.
package fprules

import (
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

// Nominal text and line dimensions from the convention, in mm.
const (
	klcTextSize         = 1.0
	klcTextSizeMin      = 0.25
	klcTextSizeMax      = 2.0
	klcTextThickness    = 0.15
	klcTextThicknessMin = 0.01
	klcTextThicknessMax = 0.3
	klcFabWidth         = 0.1
	klcFabWidthMin      = 0.01
	klcFabWidthMax      = 0.3
	klcCourtyardWidth   = 0.05
	klcCourtyardGrid    = 0.01
)

// All returns every footprint rule, in ascending code order.
func All() []klc.FootprintRule {
	return []klc.FootprintRule{
		{Name: "G1.1", Description: "Only standard characters are used for naming footprints", Check: checkNameChars},
		{Name: "G1.7", Description: "Library files must use Unix-style line endings (LF)", Check: checkLineEndings},
		{Name: "G1.10", Description: "Footprints don't contain embedded files", Check: checkEmbeddedFiles},
		{Name: "G1.11", Description: "All text uses the default KiCad stroke font", Check: checkStrokeFont},
		{Name: "F5.2", Description: "Fabrication layer requirements", Check: checkFabLayer},
		{Name: "F5.3", Description: "Courtyard layer requirements", Check: checkCourtyard},
		{Name: "F5.4", Description: "Elements on the graphic layer should not overlap", Check: checkGraphOverlap},
		{Name: "F6.1", Description: "For surface-mount devices, placement type must be set to surface mount", Check: checkSMDAttribute},
		{Name: "F6.2", Description: "For surface-mount devices, footprint anchor is placed in the middle of the footprint", Check: checkSMDAnchor},
		{Name: "F7.1", Description: "For through-hole devices, placement type must be set to through hole", Check: checkTHTAttribute},
		{Name: "F7.2", Description: "For through-hole devices, footprint anchor is set on pad 1", Check: checkTHTAnchor},
		{Name: "F7.3", Description: "Pad 1 should be denoted by rectangular pad", Check: checkPadOneShape},
		{Name: "F9.1", Description: "Footprint metadata is filled in as appropriate", Check: checkMetadata},
		{Name: "F9.3", Description: "Footprint 3D model requirements", Check: checkModels},
		{Name: "EC01", Description: "Basic geometry checks", Check: checkGeometry},
	}
}

const allowedNameChars = "abcdefghijklmnopqrstuvwxyz0123456789_-.+,"

// G1.1
func checkNameChars(ctx *klc.FootprintContext, r *klc.Result) {
	illegal := ""
	for _, c := range strings.ToLower(ctx.Footprint.Name) {
		if !strings.ContainsRune(allowedNameChars, c) {
			illegal += string(c)
		}
	}
	if illegal != "" {
		r.Error("Footprint name must contain only legal characters")
		r.Extraf("Name '%s' contains illegal characters '%s'", ctx.Footprint.Name, illegal)
	}
}

// G1.7
func checkLineEndings(ctx *klc.FootprintContext, r *klc.Result) {
	if ctx.Footprint.Filename == "" {
		return
	}
	ok, err := klc.HasUnixLineEndings(ctx.Footprint.Filename)
	if err != nil {
		return
	}
	if !ok {
		r.Error("Incorrect line endings")
		r.Extra("Library files must use Unix-style line endings (LF)")
	}
}

// G1.10
func checkEmbeddedFiles(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	if fp.EmbeddedFonts {
		r.Error("The checkbox 'embedded fonts' must be unchecked.")
	}
	if len(fp.Files) > 0 {
		r.Error("No files should be embedded in footprints")
		for _, f := range fp.Files {
			r.Extraf("Found file %q of type %q", f.Name, f.Type)
		}
	}
}

// G1.11
func checkStrokeFont(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint
	for _, text := range fp.UserTexts() {
		if text.Font.Face != "" {
			r.Errorf("Text uses non kicad font %s", text.Font.Face)
			r.Extraf("Text item %q on layer %s at (%v, %v)", text.Text, text.Layer, text.PosX, text.PosY)
		}
	}
	if ref := fp.Reference(); ref != nil && ref.Font.Face != "" {
		r.Errorf("Reference field uses non kicad font %s", ref.Font.Face)
	}
	if val := fp.Value(); val != nil && val.Font.Face != "" {
		r.Errorf("Value field uses non kicad font %s", val.Font.Face)
	}
}
