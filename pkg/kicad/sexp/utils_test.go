package sexp

import (
	"errors"
	"testing"
)

func TestFindAndFindAll(t *testing.T) {
	node := mustParse(t, `(symbol "C" (pin 1) (property "Reference" "C") (pin 2))`)

	prop, ok := Find(node, "property")
	if !ok {
		t.Fatal("property not found")
	}
	if name, _ := GetString(prop, 1); name != "Reference" {
		t.Errorf("property name = %q", name)
	}

	pins := FindAll(node, "pin")
	if len(pins) != 2 {
		t.Fatalf("got %d pins, want 2", len(pins))
	}

	if _, ok := Find(node, "missing"); ok {
		t.Error("Find reported a match for an absent key")
	}
}

func TestGetFloatSchemaError(t *testing.T) {
	node := mustParse(t, `(at zero 0)`)
	_, err := GetFloat(node, 1)
	var serr *SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SchemaError, got %T: %v", err, err)
	}
	if serr.Keyword != "at" {
		t.Errorf("keyword = %q, want at", serr.Keyword)
	}
}

func TestGetStringOutOfBounds(t *testing.T) {
	node := mustParse(t, `(at 0 0)`)
	if _, err := GetString(node, 5); err == nil {
		t.Error("expected out of bounds error")
	}
}

func TestChildHelpers(t *testing.T) {
	node := mustParse(t, `(footprint "X" (descr "test part") (clearance 0.3))`)
	if got := ChildString(node, "descr"); got != "test part" {
		t.Errorf("ChildString = %q", got)
	}
	if got := ChildFloat(node, "clearance", 0); got != 0.3 {
		t.Errorf("ChildFloat = %v", got)
	}
	if got := ChildFloat(node, "width", 1.5); got != 1.5 {
		t.Errorf("ChildFloat fallback = %v", got)
	}
}

func TestBoolFlagForms(t *testing.T) {
	bare := mustParse(t, `(effects (font (size 1.27 1.27)) hide)`)
	if !BoolFlag(bare, "hide", false) {
		t.Error("bare atom form not detected")
	}

	listed := mustParse(t, `(pin_numbers (hide yes))`)
	if !BoolFlag(listed, "hide", false) {
		t.Error("(hide yes) form not detected")
	}

	negative := mustParse(t, `(pin_numbers (hide no))`)
	if BoolFlag(negative, "hide", true) {
		t.Error("(hide no) must report false")
	}

	absent := mustParse(t, `(pin_numbers)`)
	if BoolFlag(absent, "hide", false) {
		t.Error("absent flag must use fallback")
	}
}
