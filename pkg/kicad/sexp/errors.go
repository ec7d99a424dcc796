package sexp

import "fmt"

// SyntaxError reports malformed S-expression text: unbalanced
// parentheses, an unterminated string, or a stray token. It is fatal
// for the file being parsed but callers processing a batch should
// continue with the remaining files.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// SchemaError reports a recognized keyword-tagged list with the wrong
// arity or element types for its known meaning.
type SchemaError struct {
	Keyword string
	Msg     string
}

func (e *SchemaError) Error() string {
	if e.Keyword == "" {
		return e.Msg
	}
	return fmt.Sprintf("(%s): %s", e.Keyword, e.Msg)
}
