package rst

import "sort"

// Visibility selects which edges a traversal follows.
type Visibility int

const (
	// Internal follows only edges inside a unit.
	Internal Visibility = iota + 1
	// All follows every edge, crossing into the trees of linked units.
	All
)

// External is another name for All. A traversal that crosses into linked
// units still includes the unit it starts from.
const External = All

func (v Visibility) crossesUnits() bool { return v == All }

func (v Visibility) String() string {
	switch v {
	case Internal:
		return "internal"
	case All:
		return "all"
	}
	return "unknown"
}

func walk(n *Node, vis Visibility, visit func(*Node)) {
	visit(n)
	for _, c := range n.internal {
		walk(c, vis, visit)
	}
	if vis.crossesUnits() {
		for _, c := range n.external {
			walk(c, vis, visit)
		}
	}
}

// Leaves returns the terminals below n (n itself if it is one), ordered by
// span start.
func Leaves(n *Node, vis Visibility) []*Node {
	var out []*Node
	walk(n, vis, func(x *Node) {
		if x.Kind == Terminal {
			out = append(out, x)
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SpanStart.Compare(out[j].SpanStart) < 0
	})
	return out
}

// Subtrees returns n and all its descendants ordered by (TreeStart, TreeEnd).
func Subtrees(n *Node, vis Visibility) []*Node {
	var out []*Node
	walk(n, vis, func(x *Node) { out = append(out, x) })
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].TreeStart.Compare(out[j].TreeStart); c != 0 {
			return c < 0
		}
		return out[i].TreeEnd.Compare(out[j].TreeEnd) < 0
	})
	return out
}
