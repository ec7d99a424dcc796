// Package sexp implements the S-expression layer shared by all KiCad
// library file formats (.kicad_sym, .kicad_mod). It parses text into a
// generic node tree and serializes a tree back to a canonical textual
// form suitable for byte-level diffing.
//
// Atoms keep their original lexeme so that numeric tokens like "1",
// "1.0" and "1.00" survive a parse/format round trip untouched.
package sexp

import (
	"strconv"
	"strings"
)

// Kind discriminates the node variants.
type Kind int

const (
	// KindAtom is an unquoted token: a keyword, identifier or number.
	KindAtom Kind = iota
	// KindString is a double-quoted string. Value holds the decoded text.
	KindString
	// KindList is a parenthesized list of child nodes.
	KindList
)

// Node is a single S-expression: an atom, a quoted string, or a list.
type Node struct {
	Kind     Kind
	Value    string // atom: raw lexeme; string: decoded value
	Children []*Node
}

// IsList reports whether the node is a list.
func (n *Node) IsList() bool { return n != nil && n.Kind == KindList }

// IsAtom reports whether the node is an unquoted atom.
func (n *Node) IsAtom() bool { return n != nil && n.Kind == KindAtom }

// Len returns the number of children (0 for atoms and strings).
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Nth returns the child at the given index, or nil if out of range.
func (n *Node) Nth(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Keyword returns the leading atom of a list, or "" if the node is not
// a list or does not start with an atom. Example: Keyword of
// (at 1.27 0) is "at".
func (n *Node) Keyword() string {
	if !n.IsList() || len(n.Children) == 0 {
		return ""
	}
	if first := n.Children[0]; first.Kind == KindAtom {
		return first.Value
	}
	return ""
}

// Text returns the textual content of an atom or string node.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return n.Value
}

// Atom builds an unquoted atom node from a raw lexeme.
func Atom(value string) *Node { return &Node{Kind: KindAtom, Value: value} }

// Str builds a quoted string node.
func Str(value string) *Node { return &Node{Kind: KindString, Value: value} }

// Int builds an atom node from an integer.
func Int(v int) *Node { return Atom(strconv.Itoa(v)) }

// Float builds an atom node from a float, using the shortest decimal
// representation that round-trips. This matches how KiCad writes
// coordinates (no trailing zeros, no exponent for library-scale values).
func Float(v float64) *Node {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	// Guard against exponents on extreme values: library coordinates
	// never need them and the file format does not use them.
	if strings.ContainsAny(s, "eE") {
		s = strconv.FormatFloat(v, 'f', 6, 64)
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return Atom(s)
}

// Yes builds the atom "yes" or "no" from a bool.
func Yes(v bool) *Node {
	if v {
		return Atom("yes")
	}
	return Atom("no")
}

// List builds a list node from the given children.
func List(children ...*Node) *Node {
	return &Node{Kind: KindList, Children: children}
}

// Key builds a keyword-tagged list: Key("at", Float(1.27), Float(0))
// produces (at 1.27 0).
func Key(keyword string, rest ...*Node) *Node {
	children := make([]*Node, 0, len(rest)+1)
	children = append(children, Atom(keyword))
	children = append(children, rest...)
	return &Node{Kind: KindList, Children: children}
}

// Append adds children to a list node and returns it.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Value: n.Value}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}
