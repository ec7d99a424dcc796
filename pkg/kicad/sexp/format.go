package sexp

import "strings"

// Format serializes a node tree to the canonical textual form.
//
// The rules match what KiCad's own writer produces for library files:
//   - atoms and quoted strings are emitted verbatim (strings re-escaped)
//   - a list with no list-valued children stays on one line
//   - otherwise the leading run of atom children shares the opening
//     line, every following child gets its own line indented two spaces
//     per nesting level, and the closing parenthesis gets its own line
//
// Two semantically equal trees always format identically, which is what
// the comparator and the round-trip tests rely on.
func Format(n *Node) string {
	var sb strings.Builder
	writeNode(&sb, n, 0)
	sb.WriteByte('\n')
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node, depth int) {
	switch n.Kind {
	case KindAtom:
		sb.WriteString(n.Value)
	case KindString:
		sb.WriteString(Quote(n.Value))
	case KindList:
		writeList(sb, n, depth)
	}
}

func writeList(sb *strings.Builder, n *Node, depth int) {
	if isFlat(n) {
		sb.WriteByte('(')
		for i, child := range n.Children {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeNode(sb, child, depth)
		}
		sb.WriteByte(')')
		return
	}

	// Leading atoms share the opening line; everything from the first
	// list child on is broken one per line.
	head := 0
	for head < len(n.Children) && n.Children[head].Kind != KindList {
		head++
	}

	sb.WriteByte('(')
	for i := 0; i < head; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		writeNode(sb, n.Children[i], depth)
	}
	for _, child := range n.Children[head:] {
		sb.WriteByte('\n')
		writeIndent(sb, depth+1)
		writeNode(sb, child, depth+1)
	}
	sb.WriteByte('\n')
	writeIndent(sb, depth)
	sb.WriteByte(')')
}

func isFlat(n *Node) bool {
	for _, child := range n.Children {
		if child.Kind == KindList {
			return false
		}
	}
	return true
}

func writeIndent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
}

// Quote returns the double-quoted, escaped form of a string value.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
