package rst

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders the tree below n as an indented s-expression with all node
// attributes.
func Format(n *Node, vis Visibility) string {
	var b strings.Builder
	format(&b, n, vis, 0, func(b *strings.Builder, x *Node) {
		if x.UnitID != "" {
			fmt.Fprintf(b, " (msgid %s)", strconv.Quote(x.UnitID))
		}
		fmt.Fprintf(b, " (type %s)", strconv.Quote(x.Kind.String()))
		if x.RelationName != "" {
			fmt.Fprintf(b, " (relname %s) (nucleus %t)", strconv.Quote(x.RelationName), x.IsNucleus)
		}
		if x.TreeStart.IsSet() {
			fmt.Fprintf(b, " (start %s) (end %s)", x.TreeStart, x.TreeEnd)
		}
		if x.Kind == Terminal {
			fmt.Fprintf(b, " (text %s)", strconv.Quote(x.Text))
		}
	})
	return b.String()
}

// FormatMinimal renders the tree below n showing only ids, the given label
// and terminal text. It is used to show annotator differences side by side.
func FormatMinimal(n *Node, vis Visibility, label func(*Node) string) string {
	var b strings.Builder
	format(&b, n, vis, 0, func(b *strings.Builder, x *Node) {
		fmt.Fprintf(b, " %s", label(x))
		if x.Kind == Terminal {
			fmt.Fprintf(b, " %s", strconv.Quote(x.Text))
		}
	})
	return b.String()
}

func format(b *strings.Builder, n *Node, vis Visibility, depth int, attrs func(*strings.Builder, *Node)) {
	b.WriteString(strings.Repeat("\t", depth))
	b.WriteString("(")
	b.WriteString(n.ID)
	attrs(b, n)
	children := append([]*Node(nil), n.internal...)
	if vis.crossesUnits() {
		children = append(children, n.external...)
	}
	sortByTreeSpan(children)
	for _, c := range children {
		b.WriteString("\n")
		format(b, c, vis, depth+1, attrs)
	}
	b.WriteString(")")
}

// FormatForest renders every tree of f, separated by blank lines.
func FormatForest(f *Forest) string {
	trees := f.Trees()
	parts := make([]string, len(trees))
	for i, t := range trees {
		parts[i] = Format(t, All)
	}
	return strings.Join(parts, "\n\n")
}
