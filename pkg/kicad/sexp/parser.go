package sexp

import (
	"io"
	"os"
	"strings"
)

// Parser builds node trees from a token stream.
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a new parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

// Parse parses a single top-level S-expression and requires that
// nothing but whitespace follows it. This is the entry point for KiCad
// library files, which hold exactly one root form.
func Parse(r io.Reader) (*Node, error) {
	p := NewParser(r)

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	p.current = tok

	if p.current.Type == TokenEOF {
		return nil, &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "empty input"}
	}

	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	tok, err = p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenEOF {
		return nil, &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "trailing content after root expression"}
	}

	return node, nil
}

// ParseAll parses all top-level S-expressions from the input.
func ParseAll(r io.Reader) ([]*Node, error) {
	p := NewParser(r)
	var result []*Node

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	p.current = tok

	for p.current.Type != TokenEOF {
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, node)

		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok
	}

	return result, nil
}

// ParseString parses a single S-expression from a string.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile reads and parses a file holding a single root expression.
func ParseFile(filename string) (*Node, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// parseExpr parses a single S-expression starting at the current token.
func (p *Parser) parseExpr() (*Node, error) {
	switch p.current.Type {
	case TokenLeftParen:
		return p.parseList()

	case TokenSymbol:
		return Atom(p.current.Value), nil

	case TokenString:
		return Str(p.current.Value), nil

	case TokenRightParen:
		return nil, &SyntaxError{Line: p.current.Line, Col: p.current.Col, Msg: "unexpected ')'"}

	default:
		return nil, &SyntaxError{Line: p.current.Line, Col: p.current.Col, Msg: "unexpected end of input"}
	}
}

// parseList parses a list: ( ... )
func (p *Parser) parseList() (*Node, error) {
	open := p.current
	var children []*Node

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok

		if p.current.Type == TokenRightParen {
			break
		}

		if p.current.Type == TokenEOF {
			return nil, &SyntaxError{Line: open.Line, Col: open.Col, Msg: "unbalanced '(': list is never closed"}
		}

		child, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return &Node{Kind: KindList, Children: children}, nil
}
