package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

const formatTestLib = `(kicad_symbol_lib (version 20251024) (generator "klcheck")
  (symbol "R" (in_bom yes) (on_board yes)
    (property "Reference" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))
    (property "Value" "R" (at 0 0 0) (effects (font (size 1.27 1.27))))))
`

func TestFormatFileIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Device.kicad_sym")
	if err := os.WriteFile(path, []byte(formatTestLib), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := formatFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(first), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := formatFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("canonical formatting is not idempotent")
	}
}

func TestFormatFileUnknownExtension(t *testing.T) {
	if _, err := formatFile("board.kicad_pcb"); err == nil {
		t.Error("expected error for unsupported file type")
	}
}
