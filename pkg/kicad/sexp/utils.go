package sexp

import (
	"fmt"
	"strconv"
)

// S-expression navigation helpers

// Find searches the children of a list for the first sub-list whose
// keyword matches key.
// Example: Find(n, "at") finds (at 100 50) in a list.
func Find(n *Node, key string) (*Node, bool) {
	if n == nil || !n.IsList() {
		return nil, false
	}
	for _, child := range n.Children {
		if child.IsList() && child.Keyword() == key {
			return child, true
		}
	}
	return nil, false
}

// FindAll returns every child sub-list whose keyword matches key, in
// document order.
func FindAll(n *Node, key string) []*Node {
	var results []*Node
	if n == nil || !n.IsList() {
		return results
	}
	for _, child := range n.Children {
		if child.IsList() && child.Keyword() == key {
			results = append(results, child)
		}
	}
	return results
}

// Items returns the children of a list excluding the leading keyword.
// Example: Items((layers "F.Cu" "B.Cu")) returns the two string nodes.
func Items(n *Node) []*Node {
	if n == nil || !n.IsList() || len(n.Children) <= 1 {
		return nil
	}
	return n.Children[1:]
}

// Typed value extraction helpers.
// Index 0 is the keyword, 1 is the first value, and so on.

// GetString extracts the textual value at the given index in a list.
// Atoms and quoted strings both satisfy it.
func GetString(n *Node, index int) (string, error) {
	if n == nil || !n.IsList() {
		return "", &SchemaError{Msg: "expected list, got atom"}
	}
	if index < 0 || index >= len(n.Children) {
		return "", &SchemaError{Keyword: n.Keyword(), Msg: fmt.Sprintf("index %d out of bounds (length %d)", index, len(n.Children))}
	}
	child := n.Children[index]
	if child.IsList() {
		return "", &SchemaError{Keyword: n.Keyword(), Msg: fmt.Sprintf("expected value at index %d, got list", index)}
	}
	return child.Value, nil
}

// GetFloat extracts a float64 value at the given index.
func GetFloat(n *Node, index int) (float64, error) {
	str, err := GetString(n, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, &SchemaError{Keyword: n.Keyword(), Msg: fmt.Sprintf("cannot parse %q as number", str)}
	}
	return val, nil
}

// GetInt extracts an int value at the given index.
func GetInt(n *Node, index int) (int, error) {
	str, err := GetString(n, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, &SchemaError{Keyword: n.Keyword(), Msg: fmt.Sprintf("cannot parse %q as integer", str)}
	}
	return val, nil
}

// ChildString finds the sub-list with the given key and returns its
// first value. Missing nodes yield the empty string, no error.
// Example: ChildString(n, "descr") on (footprint ... (descr "...")).
func ChildString(n *Node, key string) string {
	child, ok := Find(n, key)
	if !ok {
		return ""
	}
	s, _ := GetString(child, 1)
	return s
}

// ChildFloat finds the sub-list with the given key and returns its
// first value as a float, or the fallback when absent or malformed.
func ChildFloat(n *Node, key string, fallback float64) float64 {
	child, ok := Find(n, key)
	if !ok {
		return fallback
	}
	f, err := GetFloat(child, 1)
	if err != nil {
		return fallback
	}
	return f
}

// HasAtom reports whether a list contains the bare atom among its
// children. KiCad uses this style for flags like hide or locked.
func HasAtom(n *Node, atom string) bool {
	if n == nil || !n.IsList() {
		return false
	}
	for _, child := range n.Children {
		if child.Kind == KindAtom && child.Value == atom {
			return true
		}
	}
	return false
}

// BoolFlag reads a (key yes|no) child. Both the flat form and the bare
// atom form count; absent means the fallback.
func BoolFlag(n *Node, key string, fallback bool) bool {
	if HasAtom(n, key) {
		return true
	}
	child, ok := Find(n, key)
	if !ok {
		return fallback
	}
	s, err := GetString(child, 1)
	if err != nil {
		return fallback
	}
	return s == "yes" || s == "true"
}
