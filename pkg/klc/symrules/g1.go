package symrules

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

const allowedNameChars = "abcdefghijklmnopqrstuvwxyz0123456789_-.+,"

// G1.1
func checkNameChars(ctx *klc.SymbolContext, r *klc.Result) {
	name := strings.ToLower(ctx.Symbol.Name)
	illegal := ""
	for i, c := range name {
		if strings.ContainsRune(allowedNameChars, c) {
			continue
		}
		// Power and graphic symbols prefix the name.
		if i == 0 && (c == '~' || c == '#') {
			continue
		}
		illegal += string(c)
	}
	if illegal != "" {
		r.Error("Symbol name must contain only legal characters")
		r.Extraf("Name '%s' contains illegal characters '%s'", ctx.Symbol.Name, illegal)
	}
}

// G1.7
func checkLineEndings(ctx *klc.SymbolContext, r *klc.Result) {
	if ctx.Library == nil || ctx.Library.Filename == "" {
		return
	}
	ok, err := klc.HasUnixLineEndings(ctx.Library.Filename)
	if err != nil {
		return
	}
	if !ok {
		r.Error("Incorrect line endings (.kicad_sym)")
		r.Extra("Library files must use Unix-style line endings (LF)")
	}
}

// G1.10
func checkEmbeddedFiles(ctx *klc.SymbolContext, r *klc.Result) {
	if ctx.Symbol.EmbeddedFonts {
		r.Error("The checkbox 'embed fonts' must be unchecked.")
	}
	if len(ctx.Symbol.Files) > 0 {
		r.Error("No files should be embedded in symbols")
		for _, f := range ctx.Symbol.Files {
			r.Extra(fmt.Sprintf("Found file %q of type %q", f.Name, f.Type))
		}
	}
}

// G1.11
func checkStrokeFont(ctx *klc.SymbolContext, r *klc.Result) {
	for _, prop := range ctx.Symbol.Properties {
		if prop.Effect != nil && prop.Effect.Face != "" {
			r.Errorf("Property uses font %s", prop.Effect.Face)
			r.Extraf("Text item %q with value %q at (%v, %v)", prop.Name, prop.Value, prop.PosX, prop.PosY)
		}
	}
	for _, text := range ctx.Symbol.Texts {
		if text.Effect != nil && text.Effect.Face != "" {
			r.Errorf("Text uses font %s", text.Effect.Face)
			r.Extraf("Text item %q at (%v, %v)", text.Text, text.PosX, text.PosY)
		}
	}
}
