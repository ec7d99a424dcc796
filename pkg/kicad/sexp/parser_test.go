package sexp

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSimpleList(t *testing.T) {
	node, err := ParseString(`(version 20251024)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !node.IsList() {
		t.Fatal("expected list node")
	}
	if node.Keyword() != "version" {
		t.Errorf("keyword = %q, want %q", node.Keyword(), "version")
	}
	if node.Len() != 2 {
		t.Errorf("len = %d, want 2", node.Len())
	}
}

func TestParseNestedList(t *testing.T) {
	input := `(symbol "R" (pin passive line (at 0 2.54 270) (length 1.27)))`
	node, err := ParseString(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pin, ok := Find(node, "pin")
	if !ok {
		t.Fatal("pin node not found")
	}
	at, ok := Find(pin, "at")
	if !ok {
		t.Fatal("at node not found")
	}
	y, err := GetFloat(at, 2)
	if err != nil {
		t.Fatalf("GetFloat: %v", err)
	}
	if y != 2.54 {
		t.Errorf("y = %v, want 2.54", y)
	}
}

func TestParsePreservesNumberLexemes(t *testing.T) {
	// 1, 1.0 and 1.00 are numerically equal but must survive as
	// written so unmodified files round-trip byte for byte.
	node, err := ParseString(`(at 1 1.0 1.00)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1", "1.0", "1.00"}
	for i, w := range want {
		got, err := GetString(node, i+1)
		if err != nil {
			t.Fatalf("GetString(%d): %v", i+1, err)
		}
		if got != w {
			t.Errorf("value %d = %q, want %q", i+1, got, w)
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	node, err := ParseString(`(property "Value" "10k \"precision\"\nline2")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, err := GetString(node, 2)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	want := "10k \"precision\"\nline2"
	if val != want {
		t.Errorf("value = %q, want %q", val, want)
	}
}

func TestParseComments(t *testing.T) {
	input := "# leading comment\n(kicad_symbol_lib # trailing\n  (version 20251024)\n)"
	node, err := ParseString(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Keyword() != "kicad_symbol_lib" {
		t.Errorf("keyword = %q", node.Keyword())
	}
}

func TestParseUnbalanced(t *testing.T) {
	_, err := ParseString(`(symbol "R" (pin`)
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}
}

func TestParseUnterminatedString(t *testing.T) {
	_, err := ParseString(`(property "Value" "10k`)
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}
}

func TestParseStrayCloseParen(t *testing.T) {
	_, err := ParseString(`)`)
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}
	if serr.Line != 1 || serr.Col != 1 {
		t.Errorf("position = %d:%d, want 1:1", serr.Line, serr.Col)
	}
}

func TestParseTrailingContent(t *testing.T) {
	_, err := ParseString("(a)(b)")
	if err == nil {
		t.Fatal("expected error for trailing content")
	}
}

func TestParseEmptyInput(t *testing.T) {
	_, err := ParseString("   \n\t  ")
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestParseAllMultipleForms(t *testing.T) {
	nodes, err := ParseAll(strings.NewReader("(a 1)\n(b 2)\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d forms, want 2", len(nodes))
	}
	if nodes[1].Keyword() != "b" {
		t.Errorf("second keyword = %q, want b", nodes[1].Keyword())
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := ParseString("(ok)\n  \"oops")
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}
	if serr.Line != 2 {
		t.Errorf("line = %d, want 2", serr.Line)
	}
}
