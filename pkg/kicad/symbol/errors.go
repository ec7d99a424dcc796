package symbol

import "fmt"

// FileFormatError reports a structurally valid S-expression tree that
// does not describe a well-formed symbol library: wrong version,
// duplicate symbols, malformed subsymbol names and the like.
type FileFormatError struct {
	Filename string
	Msg      string
}

func (e *FileFormatError) Error() string {
	if e.Filename == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Msg)
}

// DanglingReferenceError reports a derived symbol whose extends chain
// cannot be resolved: the parent is missing, the symbol extends
// itself, or the chain loops.
type DanglingReferenceError struct {
	Symbol string
	Parent string
	Msg    string
}

func (e *DanglingReferenceError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("symbol %s: %s", e.Symbol, e.Msg)
	}
	return fmt.Sprintf("parent %s of symbol %s not found", e.Parent, e.Symbol)
}
