// Package rst models RST discourse trees and assembles them into forests from
// flat annotation records.
package rst

import "fmt"

// Position is a point in the discussion: the discussion index of a unit
// followed by a character offset inside that unit's text.
type Position struct {
	Discussion int `json:"discussion"`
	Char       int `json:"char"`
}

// NoPosition marks an offset that has not been set.
var NoPosition = Position{Discussion: -1, Char: -1}

// IsSet reports whether p holds a real position.
func (p Position) IsSet() bool { return p != NoPosition }

// Compare orders positions by discussion index, then by character offset.
func (p Position) Compare(q Position) int {
	switch {
	case p.Discussion < q.Discussion:
		return -1
	case p.Discussion > q.Discussion:
		return 1
	case p.Char < q.Char:
		return -1
	case p.Char > q.Char:
		return 1
	}
	return 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Discussion, p.Char)
}

// Kind distinguishes elementary discourse units from span nodes.
type Kind int

const (
	KindUnset Kind = iota
	// Terminal is an elementary discourse unit (EDU) carrying text.
	Terminal
	// Nonterminal is a span node grouping other nodes.
	Nonterminal
)

func (k Kind) String() string {
	switch k {
	case Terminal:
		return "text"
	case Nonterminal:
		return "span"
	}
	return "unset"
}

// ParseKind maps the record value of a node type to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text", "segment", "edu":
		return Terminal, nil
	case "span", "group", "multinuc":
		return Nonterminal, nil
	}
	return KindUnset, badFormat("unknown node type %q", s)
}

// Node is a vertex of a discourse tree.
//
// Children are split into internal ones (same unit) and external ones (a
// different unit, attached through a cross-unit link). The parent pointer is
// only used for lookups; ownership always runs from parent to child.
type Node struct {
	ID              string
	UnitID          string
	DiscussionIndex int
	Kind            Kind
	RelationName    string
	IsNucleus       bool
	Text            string

	SpanStart Position
	SpanEnd   Position
	TreeStart Position
	TreeEnd   Position

	parent   *Node
	internal []*Node
	external []*Node

	// offsets and text as declared, before whitespace trimming
	raw              string
	rawStart, rawEnd int
	hasRaw           bool
}

func newNode(id string) *Node {
	return &Node{
		ID:              id,
		DiscussionIndex: -1,
		SpanStart:       NoPosition,
		SpanEnd:         NoPosition,
		TreeStart:       NoPosition,
		TreeEnd:         NoPosition,
	}
}

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// InternalChildren returns the children that belong to the node's own unit.
func (n *Node) InternalChildren() []*Node { return append([]*Node(nil), n.internal...) }

// ExternalChildren returns the children attached from other units.
func (n *Node) ExternalChildren() []*Node { return append([]*Node(nil), n.external...) }

// IsLeaf reports whether the node is a terminal.
func (n *Node) IsLeaf() bool { return n.Kind == Terminal }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

func (n *Node) hasChild(c *Node) bool {
	for _, x := range n.internal {
		if x == c {
			return true
		}
	}
	for _, x := range n.external {
		if x == c {
			return true
		}
	}
	return false
}

func (n *Node) isInternalChild(c *Node) bool {
	for _, x := range n.internal {
		if x == c {
			return true
		}
	}
	return false
}

// spansExternally reports whether n only exists to group other units' trees,
// in which case its tree span covers its external children too.
func (n *Node) spansExternally() bool {
	return n.Kind != Terminal && len(n.internal) == 0 && len(n.external) > 0
}

func crossesUnits(p, c *Node) bool {
	return p.UnitID != "" && c.UnitID != "" && p.UnitID != c.UnitID
}

// isAncestorOf reports whether n lies on the parent chain of c (or is c).
func (n *Node) isAncestorOf(c *Node) bool {
	for p := c; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}
