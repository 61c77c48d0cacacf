package rst

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// RelationSpan is the relation name given to the nucleus of a hypotactic relation.
const RelationSpan = "span"

// DefaultNucleusRelations are the relation names whose bearers are nuclei.
var DefaultNucleusRelations = []string{
	RelationSpan, "joint", "list", "sequence", "contrast", "conjunction",
	"disjunction", "same-unit", "multinuclear", "textual-organization",
}

// UnitIndex resolves the discussion index of a source unit.
type UnitIndex interface {
	DiscussionIndex(unitID string) (int, bool)
}

// UnitText is implemented by a UnitIndex that also knows the raw text of each
// unit. A terminal declared with offsets but without text then takes its text
// from the unit.
type UnitText interface {
	Text(unitID string) (string, bool)
}

// Offsets are raw character offsets of a terminal inside its unit's text.
type Offsets struct {
	Start int
	End   int
}

// Attrs is a partial attribute update for DeclareNode. Zero values mean
// "leave unchanged".
type Attrs struct {
	UnitID       string
	Kind         Kind
	Offsets      *Offsets
	Text         string
	RelationName string
	ParentID     string
	ChildIDs     []string
}

// SetAttr sets the attribute named key from its record value.
func SetAttr(a *Attrs, key, value string) error {
	switch key {
	case "msgid", "unit":
		a.UnitID = value
	case "type":
		k, err := ParseKind(value)
		if err != nil {
			return err
		}
		a.Kind = k
	case "offsets":
		o, err := ParseOffsets(value)
		if err != nil {
			return err
		}
		a.Offsets = o
	case "text":
		a.Text = value
	case "relname":
		a.RelationName = value
	case "parent":
		a.ParentID = value
	case "children":
		a.ChildIDs = SplitList(value)
	default:
		return badFormat("unknown attribute %q", key)
	}
	return nil
}

// ParseOffsets parses "start,end".
func ParseOffsets(s string) (*Offsets, error) {
	parts := SplitList(s)
	if len(parts) != 2 {
		return nil, badFormat("offsets %q: want start%send", s, ListSep)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, badFormat("offsets %q: %v", s, err)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, badFormat("offsets %q: %v", s, err)
	}
	if start < 0 || end < start {
		return nil, badFormat("offsets %q: invalid range", s)
	}
	return &Offsets{Start: start, End: end}, nil
}

// ListSep separates list items in record values.
const ListSep = ","

// SplitList splits a comma separated value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ListSep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Assembler builds a Forest from attribute and relation records. Records may
// arrive in any order; nodes are created on first reference. A node's unit is
// only taken from a declaration or a cross-unit link, and an edge is internal
// as long as it does not join two different units. Nodes left without a unit
// inherit one in Finalize.
type Assembler struct {
	forest    *Forest
	units     UnitIndex
	nucleus   map[string]bool
	logger    *zap.Logger
	finalized bool
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithLogger sets the logger used for warnings.
func WithLogger(l *zap.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = l }
}

// WithNucleusRelations replaces the set of relation names that mark nuclei.
func WithNucleusRelations(names ...string) AssemblerOption {
	return func(a *Assembler) {
		a.nucleus = make(map[string]bool, len(names))
		for _, n := range names {
			a.nucleus[n] = true
		}
	}
}

// NewAssembler returns an empty assembler. units may be nil, in which case
// every unit gets discussion index 0.
func NewAssembler(units UnitIndex, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		forest: newForest(),
		units:  units,
		logger: zap.NewNop(),
	}
	WithNucleusRelations(DefaultNucleusRelations...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) mustBeOpen(op string) {
	if a.finalized {
		badLogic("%s called after Finalize", op)
	}
}

// peek returns the node id without registering it when it is new, so that a
// failing check leaves the forest untouched.
func (a *Assembler) peek(id string) *Node {
	if n, ok := a.forest.nodes[id]; ok {
		return n
	}
	return newNode(id)
}

func (a *Assembler) register(nodes ...*Node) {
	for _, n := range nodes {
		if _, ok := a.forest.nodes[n.ID]; ok {
			continue
		}
		a.forest.nodes[n.ID] = n
		a.forest.order = append(a.forest.order, n)
		a.forest.roots[n] = struct{}{}
	}
}

func (a *Assembler) isNucleusRelation(rel string) bool {
	return a.nucleus[rel]
}

// DeclareNode creates the node id or merges attrs into it.
func (a *Assembler) DeclareNode(id string, attrs Attrs) error {
	a.mustBeOpen("DeclareNode")
	if id == "" {
		return badFormat("node without id")
	}
	existing, known := a.forest.nodes[id]

	text := attrs.Text
	if text == "" && known {
		text = existing.raw
	}
	if attrs.Offsets != nil {
		o := attrs.Offsets
		if o.End < o.Start {
			return badFormat("node %s: offsets %d,%d out of order", id, o.Start, o.End)
		}
		if text == "" && o.End > o.Start {
			unit := attrs.UnitID
			if unit == "" && known {
				unit = existing.UnitID
			}
			t, err := a.unitSlice(id, unit, o)
			if err != nil {
				return err
			}
			text = t
			attrs.Text = t
		}
		if got := utf8.RuneCountInString(text); got != o.End-o.Start {
			return badFormat("node %s: text length %d does not match offsets %d,%d", id, got, o.Start, o.End)
		}
	} else if attrs.Text != "" && known && existing.hasRaw {
		if got := utf8.RuneCountInString(attrs.Text); got != existing.rawEnd-existing.rawStart {
			return badFormat("node %s: text length %d does not match offsets %d,%d", id, got, existing.rawStart, existing.rawEnd)
		}
	}
	if known && attrs.UnitID != "" && existing.UnitID != "" && existing.UnitID != attrs.UnitID {
		return badStructure("node %s: unit %s conflicts with %s", id, attrs.UnitID, existing.UnitID)
	}
	if known && attrs.Kind == Terminal && len(existing.internal) > 0 {
		return badStructure("node %s: terminal cannot have children", id)
	}
	if attrs.Offsets != nil && (attrs.Kind == Nonterminal || (known && (existing.Kind == Nonterminal || len(existing.internal) > 0))) {
		return badStructure("node %s: span node cannot carry offsets", id)
	}
	if known && existing.hasRaw && attrs.Kind == Nonterminal {
		return badStructure("node %s: terminal redeclared as span", id)
	}
	if known && attrs.RelationName != "" && existing.parent != nil && existing.RelationName != attrs.RelationName {
		return badStructure("node %s: relation %q conflicts with %q", id, attrs.RelationName, existing.RelationName)
	}

	n := a.peek(id)
	unit := n.UnitID
	if unit == "" {
		unit = attrs.UnitID
	}
	rel := n.RelationName
	if n.parent == nil && attrs.RelationName != "" {
		rel = attrs.RelationName
	}
	var parent *Node
	if attrs.ParentID != "" {
		if attrs.ParentID == id {
			return badStructure("node %s cannot be its own parent", id)
		}
		parent = a.peek(attrs.ParentID)
		if err := a.checkAttach(parent, n, rel, parent.UnitID != "" && unit != "" && parent.UnitID != unit); err != nil {
			return err
		}
	}
	children := make([]*Node, 0, len(attrs.ChildIDs))
	for _, cid := range attrs.ChildIDs {
		if cid == id || cid == attrs.ParentID {
			return badStructure("node %s: %s cannot be its child", id, cid)
		}
		c := a.peek(cid)
		external := c.UnitID != "" && unit != "" && c.UnitID != unit
		if !external && (attrs.Kind == Terminal || attrs.Offsets != nil) {
			return badStructure("terminal %s cannot have children", id)
		}
		if err := a.checkAttach(n, c, c.RelationName, external); err != nil {
			return err
		}
		children = append(children, c)
	}

	a.register(n)
	if attrs.UnitID != "" && n.UnitID == "" {
		a.setUnit(n, attrs.UnitID)
	}
	if attrs.Kind != KindUnset {
		n.Kind = attrs.Kind
	}
	if attrs.Text != "" {
		n.raw = attrs.Text
		n.Text = strings.TrimSpace(attrs.Text)
	}
	if attrs.Offsets != nil {
		if n.Kind == KindUnset {
			n.Kind = Terminal
		}
		n.rawStart, n.rawEnd, n.hasRaw = attrs.Offsets.Start, attrs.Offsets.End, true
		a.updateSpan(n)
	} else if attrs.Text != "" && n.hasRaw {
		a.updateSpan(n)
	}
	if attrs.RelationName != "" && n.parent == nil {
		n.RelationName = attrs.RelationName
		n.IsNucleus = a.isNucleusRelation(attrs.RelationName)
	}

	if parent != nil {
		a.register(parent)
		a.link(parent, n, n.RelationName, a.isNucleusRelation(n.RelationName))
	}
	for _, c := range children {
		a.register(c)
		a.link(n, c, c.RelationName, a.isNucleusRelation(c.RelationName))
	}
	return nil
}

// AttachHypotactic makes nucleus and satellite children of span. The nucleus
// is labelled with RelationSpan, the satellite with relname.
func (a *Assembler) AttachHypotactic(spanID, nucleusID, satelliteID, relname string) error {
	a.mustBeOpen("AttachHypotactic")
	if spanID == "" || nucleusID == "" || satelliteID == "" {
		return badFormat("hypotactic relation %q: missing node id", relname)
	}
	if relname == "" {
		return badFormat("hypotactic relation %s/%s: missing relation name", nucleusID, satelliteID)
	}
	if nucleusID == satelliteID || spanID == nucleusID || spanID == satelliteID {
		return badStructure("hypotactic relation %q: %s/%s/%s are not distinct", relname, spanID, nucleusID, satelliteID)
	}
	span, nuc, sat := a.peek(spanID), a.peek(nucleusID), a.peek(satelliteID)
	if err := a.checkAttach(span, nuc, RelationSpan, crossesUnits(span, nuc)); err != nil {
		return err
	}
	if err := a.checkAttach(span, sat, relname, crossesUnits(span, sat)); err != nil {
		return err
	}
	a.register(span, nuc, sat)
	a.link(span, nuc, RelationSpan, true)
	a.link(span, sat, relname, false)
	return nil
}

// AttachParatactic makes every listed nucleus a child of span with relname.
func (a *Assembler) AttachParatactic(spanID string, nucleusIDs []string, relname string) error {
	a.mustBeOpen("AttachParatactic")
	if spanID == "" || len(nucleusIDs) == 0 {
		return badFormat("paratactic relation %q: missing node id", relname)
	}
	if relname == "" {
		return badFormat("paratactic relation under %s: missing relation name", spanID)
	}
	span := a.peek(spanID)
	seen := make(map[string]bool, len(nucleusIDs))
	var nuclei []*Node
	for _, id := range nucleusIDs {
		if id == "" {
			return badFormat("paratactic relation %q under %s: empty nucleus id", relname, spanID)
		}
		if seen[id] {
			a.logger.Warn("nucleus listed twice in paratactic relation",
				zap.String("span", spanID), zap.String("node", id), zap.String("relation", relname))
			continue
		}
		seen[id] = true
		if id == spanID {
			return badStructure("paratactic relation %q: %s is its own nucleus", relname, id)
		}
		n := a.peek(id)
		if err := a.checkAttach(span, n, relname, crossesUnits(span, n)); err != nil {
			return err
		}
		nuclei = append(nuclei, n)
	}
	a.register(span)
	for _, n := range nuclei {
		a.register(n)
		a.link(span, n, relname, true)
	}
	return nil
}

// LinkAcrossUnits attaches the root of childUnit below the root of parentUnit.
// Repeating an identical link is a no-op. Any other link for an already linked
// child unit, or one that would close a cycle, fails without changing the forest.
func (a *Assembler) LinkAcrossUnits(parentUnit, childUnit, parentRootID, childRootID, relname string) error {
	a.mustBeOpen("LinkAcrossUnits")
	if parentUnit == "" || childUnit == "" || parentRootID == "" || childRootID == "" {
		return badFormat("cross-unit link %s->%s: missing field", parentUnit, childUnit)
	}
	if parentUnit == childUnit {
		return badStructure("cross-unit link: unit %s linked to itself", parentUnit)
	}
	link := CrossLink{
		ParentUnit: parentUnit,
		ChildUnit:  childUnit,
		ParentRoot: parentRootID,
		ChildRoot:  childRootID,
		Relation:   relname,
	}
	if prev, ok := a.forest.links[childUnit]; ok {
		if prev == link {
			return nil
		}
		if prev.ParentUnit != parentUnit {
			return badStructure("unit %s already has parent unit %s, cannot link to %s", childUnit, prev.ParentUnit, parentUnit)
		}
		return badStructure("unit %s: conflicting links below %s", childUnit, parentUnit)
	}
	if a.forest.units.find(parentUnit) == a.forest.units.find(childUnit) {
		return badStructure("cross-unit link %s->%s would create a cycle", parentUnit, childUnit)
	}
	if n, ok := a.forest.nodes[parentRootID]; ok && n.UnitID != "" && n.UnitID != parentUnit {
		return badStructure("node %s belongs to unit %s, not %s", parentRootID, n.UnitID, parentUnit)
	}
	if n, ok := a.forest.nodes[childRootID]; ok && n.UnitID != "" && n.UnitID != childUnit {
		return badStructure("node %s belongs to unit %s, not %s", childRootID, n.UnitID, childUnit)
	}
	if parentRootID == childRootID {
		return badStructure("cross-unit link %s->%s: root %s used on both sides", parentUnit, childUnit, parentRootID)
	}
	pr, cr := a.peek(parentRootID), a.peek(childRootID)
	if err := a.checkAttach(pr, cr, relname, true); err != nil {
		return err
	}
	a.register(pr, cr)
	if pr.UnitID == "" {
		a.setUnit(pr, parentUnit)
	}
	if cr.UnitID == "" {
		a.setUnit(cr, childUnit)
	}
	a.forest.units.union(parentUnit, childUnit)
	a.forest.links[childUnit] = link
	a.link(pr, cr, relname, a.isNucleusRelation(relname))
	return nil
}

// Finalize completes span propagation and checks that every unit has a single
// root. The assembler must not be used afterwards.
func (a *Assembler) Finalize() (*Forest, error) {
	a.mustBeOpen("Finalize")
	f := a.forest
	a.inferUnits()
	if f.dirty {
		f.recompute()
	}
	units := make([]string, 0, len(f.unitRoots))
	for u := range f.unitRoots {
		units = append(units, u)
	}
	sort.Strings(units)
	var problems []string
	for _, u := range units {
		roots := f.UnitRoots(u)
		if len(roots) <= 1 {
			continue
		}
		ids := make([]string, len(roots))
		for i, r := range roots {
			ids[i] = r.ID
		}
		problems = append(problems, fmt.Sprintf("unit %s has %d roots (%s)", u, len(roots), strings.Join(ids, ", ")))
	}
	if len(problems) > 0 {
		return nil, badStructure("%s", strings.Join(problems, "; "))
	}
	for _, n := range f.order {
		switch {
		case n.Kind == KindUnset && len(n.internal) > 0:
			n.Kind = Nonterminal
		case n.Kind == KindUnset:
			a.logger.Warn("node referenced but never declared", zap.String("node", n.ID))
		case n.Kind == Terminal && !n.SpanStart.IsSet():
			a.logger.Warn("terminal without offsets", zap.String("node", n.ID), zap.String("unit", n.UnitID))
		}
	}
	f.discRoot = make(map[string]string, len(units))
	for _, u := range units {
		f.discRoot[u] = f.units.root(u)
	}
	a.finalized = true
	return f, nil
}

// checkAttach validates attaching c below p without changing anything.
// Terminals may only receive children from other units.
func (a *Assembler) checkAttach(p, c *Node, relname string, external bool) error {
	if p == c {
		return badStructure("node %s cannot be its own child", p.ID)
	}
	if p.Kind == Terminal && !external {
		return badStructure("terminal %s cannot have children", p.ID)
	}
	if c.parent != nil {
		if c.parent != p {
			return badStructure("node %s already has parent %s, cannot attach to %s", c.ID, c.parent.ID, p.ID)
		}
		if c.RelationName != relname {
			return badStructure("node %s: relation %q conflicts with %q", c.ID, relname, c.RelationName)
		}
		return nil
	}
	if c.isAncestorOf(p) {
		return badStructure("attaching %s below %s would create a cycle", c.ID, p.ID)
	}
	return nil
}

// link attaches c below p. checkAttach must have succeeded.
func (a *Assembler) link(p, c *Node, relname string, nucleus bool) {
	if c.parent == p {
		return
	}
	c.parent = p
	c.RelationName = relname
	c.IsNucleus = nucleus
	if crossesUnits(p, c) {
		p.external = append(p.external, c)
	} else {
		if p.spansExternally() && p.TreeStart.IsSet() {
			a.forest.dirty = true
		}
		if p.Kind == KindUnset {
			p.Kind = Nonterminal
		}
		p.internal = append(p.internal, c)
		a.forest.removeUnitRoot(c)
	}
	delete(a.forest.roots, c)
	propagateUp(c)
}

// setUnit assigns unit to n. Edges that now join two different units become
// external.
func (a *Assembler) setUnit(n *Node, unit string) {
	if n.UnitID != "" {
		return
	}
	n.UnitID = unit
	n.DiscussionIndex = a.discussionIndex(unit)
	a.forest.units.add(unit)
	if n.hasRaw {
		a.updateSpan(n)
	}
	switch p := n.parent; {
	case p == nil, !p.isInternalChild(n):
		a.forest.addUnitRoot(n)
	case crossesUnits(p, n):
		a.externalize(p, n)
	}
	for _, c := range append([]*Node(nil), n.internal...) {
		if crossesUnits(n, c) {
			a.externalize(n, c)
		}
	}
}

// externalize turns the internal edge p->c into an external one, making c
// the root of its unit.
func (a *Assembler) externalize(p, c *Node) {
	if i := slices.Index(p.internal, c); i >= 0 {
		p.internal = slices.Delete(p.internal, i, i+1)
	}
	p.external = append(p.external, c)
	a.forest.addUnitRoot(c)
	a.forest.dirty = true
}

// inferUnits gives every node still without a unit the unit of its nearest
// internal descendant, nuclei first, or failing that of its nearest ancestor.
func (a *Assembler) inferUnits() {
	order := a.forest.order
	for _, n := range order {
		if n.UnitID == "" {
			if u := unitBelow(n); u != "" {
				a.setUnit(n, u)
			}
		}
	}
	for _, n := range order {
		if n.UnitID != "" {
			continue
		}
		for p := n.parent; p != nil; p = p.parent {
			if p.UnitID != "" {
				a.setUnit(n, p.UnitID)
				break
			}
		}
	}
}

func unitBelow(n *Node) string {
	for _, nuclei := range []bool{true, false} {
		for _, c := range n.internal {
			if c.IsNucleus != nuclei {
				continue
			}
			if c.UnitID != "" {
				return c.UnitID
			}
			if u := unitBelow(c); u != "" {
				return u
			}
		}
	}
	return ""
}

// unitSlice cuts the text at o out of the raw text of unit.
func (a *Assembler) unitSlice(id, unit string, o *Offsets) (string, error) {
	src, ok := a.units.(UnitText)
	if !ok || unit == "" {
		return "", badFormat("node %s: offsets %d,%d without text", id, o.Start, o.End)
	}
	text, ok := src.Text(unit)
	if !ok {
		return "", badFormat("node %s: offsets %d,%d without text and unit %s has none", id, o.Start, o.End, unit)
	}
	runes := []rune(text)
	if o.End > len(runes) {
		return "", badFormat("node %s: offsets %d,%d exceed the %d characters of unit %s", id, o.Start, o.End, len(runes), unit)
	}
	return string(runes[o.Start:o.End]), nil
}

func (a *Assembler) discussionIndex(unit string) int {
	if a.units == nil {
		return 0
	}
	idx, ok := a.units.DiscussionIndex(unit)
	if !ok {
		a.logger.Warn("unit not found in source text", zap.String("unit", unit))
		return 0
	}
	return idx
}

// updateSpan recomputes a terminal's span from its raw offsets and text,
// trimming leading and trailing whitespace.
func (a *Assembler) updateSpan(n *Node) {
	runes := []rune(n.raw)
	lead, trail := 0, 0
	for lead < len(runes) && unicode.IsSpace(runes[lead]) {
		lead++
	}
	for trail < len(runes)-lead && unicode.IsSpace(runes[len(runes)-1-trail]) {
		trail++
	}
	disc := n.DiscussionIndex
	if disc < 0 {
		disc = 0
	}
	start := Position{Discussion: disc, Char: n.rawStart + lead}
	end := Position{Discussion: disc, Char: n.rawEnd - trail}
	n.Text = string(runes[lead : len(runes)-trail])
	n.SpanStart, n.SpanEnd = start, end

	oldStart, oldEnd := n.TreeStart, n.TreeEnd
	n.TreeStart, n.TreeEnd = start, end
	if (oldStart.IsSet() && oldStart.Compare(start) < 0) || (oldEnd.IsSet() && oldEnd.Compare(end) > 0) {
		a.forest.dirty = true
		return
	}
	propagateUp(n)
}
