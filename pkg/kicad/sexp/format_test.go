package sexp

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, input string) *Node {
	t.Helper()
	node, err := ParseString(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return node
}

func TestFormatFlatList(t *testing.T) {
	node := mustParse(t, `(at   1.27   -2.54   90)`)
	got := Format(node)
	want := "(at 1.27 -2.54 90)\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatNestedList(t *testing.T) {
	node := mustParse(t, `(pin passive line (at 0 0 0) (length 2.54))`)
	got := Format(node)
	want := "(pin passive line\n" +
		"  (at 0 0 0)\n" +
		"  (length 2.54)\n" +
		")\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatIndentationDepth(t *testing.T) {
	node := mustParse(t, `(a (b (c 1)))`)
	got := Format(node)
	want := "(a\n" +
		"  (b\n" +
		"    (c 1)\n" +
		"  )\n" +
		")\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatStringEscaping(t *testing.T) {
	node := List(Atom("descr"), Str("a \"quoted\"\nvalue"))
	got := Format(node)
	want := "(descr \"a \\\"quoted\\\"\\nvalue\")\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatPreservesNumberLexemes(t *testing.T) {
	node := mustParse(t, `(size 1 1.0 1.00)`)
	got := Format(node)
	if got != "(size 1 1.0 1.00)\n" {
		t.Errorf("lexemes not preserved: %q", got)
	}
}

// Formatting must be idempotent: a second parse/format pass over
// already canonical output changes nothing.
func TestFormatRoundTripIdempotent(t *testing.T) {
	inputs := []string{
		`(version 20251024)`,
		"(symbol \"R_Small\" (pin_numbers (hide yes)) (property \"Reference\" \"R\" (at 0 1.27 0)))",
		"(footprint \"R_0805\"\n  (layer \"F.Cu\")\n  (attr smd)\n  (pad \"1\" smd roundrect (at -0.9125 0) (size 1.025 1.4))\n)",
	}
	for _, input := range inputs {
		first := Format(mustParse(t, input))
		second := Format(mustParse(t, first))
		if first != second {
			t.Errorf("not idempotent for %q:\nfirst:\n%s\nsecond:\n%s", input, first, second)
		}
	}
}

func TestFormatCanonicalizesWhitespace(t *testing.T) {
	messy := "(symbol   \"R\"\n\t\t(pin  passive   line\n(at 0 0 0)))"
	tidy := `(symbol "R" (pin passive line (at 0 0 0)))`
	if Format(mustParse(t, messy)) != Format(mustParse(t, tidy)) {
		t.Error("equal trees formatted differently")
	}
}

func TestFormatEndsWithNewline(t *testing.T) {
	got := Format(mustParse(t, `(a 1)`))
	if !strings.HasSuffix(got, "\n") {
		t.Error("output must end with a newline")
	}
}
