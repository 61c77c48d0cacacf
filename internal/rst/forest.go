package rst

import (
	"sort"
)

// CrossLink records that the root of one unit hangs below the root of another.
type CrossLink struct {
	ParentUnit string `json:"parent_unit"`
	ChildUnit  string `json:"child_unit"`
	ParentRoot string `json:"parent_root"`
	ChildRoot  string `json:"child_root"`
	Relation   string `json:"relation"`
}

// Forest is an assembled set of discourse trees. A Forest returned by
// Assembler.Finalize is read-only.
type Forest struct {
	nodes     map[string]*Node
	order     []*Node
	roots     map[*Node]struct{}
	unitRoots map[string]map[*Node]struct{}
	units     *unitSets
	links     map[string]CrossLink
	discRoot  map[string]string
	dirty     bool
}

func newForest() *Forest {
	return &Forest{
		nodes:     make(map[string]*Node),
		roots:     make(map[*Node]struct{}),
		unitRoots: make(map[string]map[*Node]struct{}),
		units:     newUnitSets(),
		links:     make(map[string]CrossLink),
	}
}

// Node returns the node with the given id.
func (f *Forest) Node(id string) (*Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// UnitOf returns the unit the node with the given id belongs to.
func (f *Forest) UnitOf(id string) (string, bool) {
	n, ok := f.nodes[id]
	if !ok || n.UnitID == "" {
		return "", false
	}
	return n.UnitID, true
}

// Len returns the number of nodes in the forest.
func (f *Forest) Len() int { return len(f.order) }

// Nodes returns all nodes in the order they were first referenced.
func (f *Forest) Nodes() []*Node { return append([]*Node(nil), f.order...) }

// Trees returns the root frontier ordered by tree span.
func (f *Forest) Trees() []*Node {
	out := make([]*Node, 0, len(f.roots))
	for n := range f.roots {
		out = append(out, n)
	}
	sortByTreeSpan(out)
	return out
}

// Units returns the ids of all units that own at least one node, ordered by
// discussion index and then by id.
func (f *Forest) Units() []string {
	out := make([]string, 0, len(f.unitRoots))
	for u := range f.unitRoots {
		out = append(out, u)
	}
	idx := func(u string) int {
		for n := range f.unitRoots[u] {
			return n.DiscussionIndex
		}
		return -1
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := idx(out[i]), idx(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

// UnitRoots returns the roots of the given unit's tree, ordered by tree span.
// A finalized forest has at most one.
func (f *Forest) UnitRoots(unit string) []*Node {
	set := f.unitRoots[unit]
	out := make([]*Node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sortByTreeSpan(out)
	return out
}

// UnitRoot returns the single root of a unit in a finalized forest.
func (f *Forest) UnitRoot(unit string) (*Node, bool) {
	roots := f.UnitRoots(unit)
	if len(roots) == 0 {
		return nil, false
	}
	return roots[0], true
}

// DiscussionRoot returns the top-most unit of the discussion containing unit.
func (f *Forest) DiscussionRoot(unit string) string {
	if r, ok := f.discRoot[unit]; ok {
		return r
	}
	return unit
}

// Links returns the cross-unit links, ordered by child unit.
func (f *Forest) Links() []CrossLink {
	out := make([]CrossLink, 0, len(f.links))
	for _, l := range f.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChildUnit < out[j].ChildUnit })
	return out
}

func sortByTreeSpan(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if c := a.TreeStart.Compare(b.TreeStart); c != 0 {
			return c < 0
		}
		if c := a.TreeEnd.Compare(b.TreeEnd); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func (f *Forest) addUnitRoot(n *Node) {
	if n.UnitID == "" {
		return
	}
	set, ok := f.unitRoots[n.UnitID]
	if !ok {
		set = make(map[*Node]struct{})
		f.unitRoots[n.UnitID] = set
	}
	set[n] = struct{}{}
}

func (f *Forest) removeUnitRoot(n *Node) {
	if set, ok := f.unitRoots[n.UnitID]; ok {
		delete(set, n)
	}
}

// recompute rebuilds every tree span bottom-up.
func (f *Forest) recompute() {
	for n := range f.roots {
		recomputeSpan(n)
	}
	f.dirty = false
}

func recomputeSpan(n *Node) {
	for _, c := range n.internal {
		recomputeSpan(c)
	}
	for _, c := range n.external {
		recomputeSpan(c)
	}
	if n.Kind == Terminal {
		n.TreeStart, n.TreeEnd = n.SpanStart, n.SpanEnd
		return
	}
	n.TreeStart, n.TreeEnd = NoPosition, NoPosition
	for _, c := range n.internal {
		n.widen(c.TreeStart, c.TreeEnd)
	}
	if n.spansExternally() {
		for _, c := range n.external {
			n.widen(c.TreeStart, c.TreeEnd)
		}
	}
}

// widen extends the node's tree span to cover [start, end] and reports whether
// anything changed.
func (n *Node) widen(start, end Position) bool {
	changed := false
	if start.IsSet() && (!n.TreeStart.IsSet() || start.Compare(n.TreeStart) < 0) {
		n.TreeStart = start
		changed = true
	}
	if end.IsSet() && (!n.TreeEnd.IsSet() || end.Compare(n.TreeEnd) > 0) {
		n.TreeEnd = end
		changed = true
	}
	return changed
}

// propagateUp widens the ancestors of n until one does not change.
func propagateUp(n *Node) {
	for c := n; c.parent != nil; c = c.parent {
		p := c.parent
		if !p.isInternalChild(c) && !p.spansExternally() {
			return
		}
		if !p.widen(c.TreeStart, c.TreeEnd) {
			return
		}
	}
}
