package agreement

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/rstagree/internal/rst"
	"github.com/hyperjump/rstagree/pkg/utils"
)

// TextLookup supplies the raw text of the source units.
type TextLookup interface {
	Units() []string
	Text(unit string) (string, bool)
}

// Options select what Compare measures.
type Options struct {
	Checks        Check
	SegmentStrict bool // omit (nonsegment, nonsegment) credit
	Diff          bool // keep renderings of disagreements
	Sweep         Sweep
}

// Warning reports a unit or discussion that could not be compared.
type Warning struct {
	Unit    string `json:"unit"`
	Message string `json:"message"`
}

func (w Warning) String() string { return w.Unit + ": " + w.Message }

// Evaluator compares pairs of forests.
type Evaluator struct {
	opts   Options
	logger *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator returns an evaluator. A zero Checks value measures everything.
func NewEvaluator(opts Options, options ...Option) *Evaluator {
	if opts.Checks == 0 {
		opts.Checks = CheckAll
	}
	if opts.Sweep == "" {
		opts.Sweep = SweepShared
	}
	e := &Evaluator{opts: opts, logger: zap.NewNop()}
	for _, o := range options {
		o(e)
	}
	return e
}

// Options returns the evaluator's options.
func (e *Evaluator) Options() Options { return e.opts }

// level describes one comparison granularity.
type level struct {
	vis        rst.Visibility
	nuclearity Dimension
	relations  Dimension
	segments   bool
	sweep      Sweep
}

// Compare measures agreement between forests a and b built over text. The
// message-level dimensions are compared unit by unit; the discussion-level
// ones per discussion tree.
func (e *Evaluator) Compare(a, b *rst.Forest, text TextLookup) (Stats, []Warning, error) {
	if a == nil || b == nil {
		return nil, nil, fmt.Errorf("compare: nil forest")
	}
	stats := make(Stats)
	var warnings []Warning
	warn := func(unit, format string, args ...any) {
		w := Warning{Unit: unit, Message: fmt.Sprintf(format, args...)}
		warnings = append(warnings, w)
		e.logger.Warn(w.Message, zap.String("unit", unit))
	}

	if e.opts.Checks.Any(CheckMessage) {
		lv := level{
			vis:        rst.Internal,
			nuclearity: MessageNuclearity,
			relations:  MessageRelations,
			segments:   e.opts.Checks.Has(CheckSegments),
			sweep:      SweepShared,
		}
		for _, unit := range messageUnits(a, b, text) {
			rootsA, rootsB := a.UnitRoots(unit), b.UnitRoots(unit)
			skip := false
			if len(rootsA) == 0 {
				warn(unit, "unit was not annotated by the 1st annotator")
				skip = true
			}
			if len(rootsB) == 0 {
				warn(unit, "unit was not annotated by the 2nd annotator")
				skip = true
			}
			if skip {
				continue
			}
			txt := ""
			if text != nil {
				txt, _ = text.Text(unit)
			}
			if n := e.compareTrees(stats, lv, unit, rootsA, rootsB, txt); n < 0 {
				warn(unit, "annotators mark %d more boundaries than there are tokens", -n)
			}
		}
	}

	if e.opts.Checks.Any(CheckDiscussion) {
		lv := level{
			vis:        rst.All,
			nuclearity: DiscussionNuclearity,
			relations:  DiscussionRelations,
			sweep:      e.opts.Sweep,
		}
		groupsA, groupsB := discussions(a), discussions(b)
		keys := make(map[string]bool)
		for k := range groupsA {
			keys[k] = true
		}
		for k := range groupsB {
			keys[k] = true
		}
		for _, k := range sortedKeys(keys) {
			e.compareTrees(stats, lv, k, groupsA[k], groupsB[k], "")
		}
	}
	return stats, warnings, nil
}

// messageUnits lists the units of the source text, or of both forests when
// there is no text.
func messageUnits(a, b *rst.Forest, text TextLookup) []string {
	if text != nil {
		return text.Units()
	}
	seen := make(map[string]bool)
	var out []string
	for _, u := range append(a.Units(), b.Units()...) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// discussions groups the trees of f by the top-most unit of their discussion.
func discussions(f *rst.Forest) map[string][]*rst.Node {
	out := make(map[string][]*rst.Node)
	for _, t := range f.Trees() {
		unit := t.UnitID
		if unit == "" {
			leaves := rst.Leaves(t, rst.All)
			if len(leaves) == 0 {
				continue
			}
			unit = leaves[0].UnitID
		}
		key := f.DiscussionRoot(unit)
		out[key] = append(out[key], t)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// compareTrees updates stats for one unit or discussion. It returns the
// (nonsegment, nonsegment) count that was computed, which is negative when
// the boundaries outnumber the tokens (the cell is then left alone).
func (e *Evaluator) compareTrees(stats Stats, lv level, unit string, treesA, treesB []*rst.Node, text string) int {
	leavesA, leavesB := collectLeaves(treesA, lv.vis), collectLeaves(treesB, lv.vis)
	nonseg := 0
	if lv.segments {
		nonseg = e.segmentStat(stats.Get(Segments), unit, text, leavesA, leavesB)
	}
	checkNuc := e.opts.Checks.Any(checkOf[lv.nuclearity])
	checkRel := e.opts.Checks.Any(checkOf[lv.relations])
	if !checkNuc && !checkRel {
		return nonseg
	}

	starts, ends := boundaries(leavesA, leavesB)
	if lv.sweep == SweepUnits {
		starts, ends = unitAligned(leavesA, leavesB)
	}
	intervals := candidates(starts, ends)
	idxA, idxB := spanIndex(treesA, lv.vis), spanIndex(treesB, lv.vis)
	topsA, topsB := topSet(treesA), topSet(treesB)

	if checkNuc {
		e.attrStat(stats.Get(lv.nuclearity), lv.vis, intervals, idxA, idxB,
			func(n *rst.Node) string { return nuclearityLabel(n, topsA) },
			func(n *rst.Node) string { return nuclearityLabel(n, topsB) })
	}
	if checkRel {
		e.attrStat(stats.Get(lv.relations), lv.vis, intervals, idxA, idxB,
			func(n *rst.Node) string { return relationLabel(n, topsA) },
			func(n *rst.Node) string { return relationLabel(n, topsB) })
	}
	return nonseg
}

func collectLeaves(trees []*rst.Node, vis rst.Visibility) []*rst.Node {
	var out []*rst.Node
	for _, t := range trees {
		out = append(out, rst.Leaves(t, vis)...)
	}
	return out
}

// segmentStat compares EDU boundaries (leaf ends).
func (e *Evaluator) segmentStat(st *Stat, unit, text string, leavesA, leavesB []*rst.Node) int {
	bA, bB := endSet(leavesA), endSet(leavesB)
	overlap, union := 0, len(bB)
	for p := range bA {
		if bB[p] {
			overlap++
		} else {
			union++
		}
	}
	st.Confusion.Add(Segment, Segment, overlap)
	st.Confusion.Add(Segment, NonSegment, len(bA)-overlap)
	st.Confusion.Add(NonSegment, Segment, len(bB)-overlap)
	nonseg := 0
	if !e.opts.SegmentStrict {
		nonseg = utils.CountTokens(text) - union
		if nonseg >= 0 {
			st.Confusion.Add(NonSegment, NonSegment, nonseg)
		}
	}
	if e.opts.Diff {
		if d, ok := segmentDiff(unit, text, bA, bB); ok {
			st.Diffs = append(st.Diffs, d)
		}
	}
	return nonseg
}

func endSet(leaves []*rst.Node) map[rst.Position]bool {
	out := make(map[rst.Position]bool, len(leaves))
	for _, l := range leaves {
		if l.SpanEnd.IsSet() {
			out[l.SpanEnd] = true
		}
	}
	return out
}

// segmentDiff renders text with boundary markers: <1> and <2> for boundaries
// only one annotator set, <> for shared ones. ok is false when the boundary
// sets are equal.
func segmentDiff(unit, text string, bA, bB map[rst.Position]bool) (string, bool) {
	type mark struct {
		at  int
		tag string
	}
	var marks []mark
	differ := false
	for p := range bA {
		if bB[p] {
			marks = append(marks, mark{p.Char, "<>"})
		} else {
			marks = append(marks, mark{p.Char, "<1>"})
			differ = true
		}
	}
	for p := range bB {
		if !bA[p] {
			marks = append(marks, mark{p.Char, "<2>"})
			differ = true
		}
	}
	if !differ {
		return "", false
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].at != marks[j].at {
			return marks[i].at < marks[j].at
		}
		return marks[i].tag < marks[j].tag
	})
	runes := []rune(text)
	var b strings.Builder
	b.WriteString(unit)
	b.WriteString("\t")
	prev := 0
	for _, m := range marks {
		at := min(max(m.at, prev), len(runes))
		b.WriteString(string(runes[prev:at]))
		b.WriteString(m.tag)
		prev = at
	}
	b.WriteString(string(runes[prev:]))
	return b.String(), true
}

// boundaries returns the sorted unique leaf starts and ends of both annotations.
func boundaries(leavesA, leavesB []*rst.Node) (starts, ends []rst.Position) {
	ss, es := make(map[rst.Position]bool), make(map[rst.Position]bool)
	for _, leaves := range [][]*rst.Node{leavesA, leavesB} {
		for _, l := range leaves {
			if l.SpanStart.IsSet() {
				ss[l.SpanStart] = true
				es[l.SpanEnd] = true
			}
		}
	}
	return sortedPositions(ss), sortedPositions(es)
}

// unitAligned returns, per unit, the first leaf start and the last leaf end
// over both annotations.
func unitAligned(leavesA, leavesB []*rst.Node) (starts, ends []rst.Position) {
	first, last := make(map[string]rst.Position), make(map[string]rst.Position)
	for _, leaves := range [][]*rst.Node{leavesA, leavesB} {
		for _, l := range leaves {
			if !l.SpanStart.IsSet() {
				continue
			}
			if p, ok := first[l.UnitID]; !ok || l.SpanStart.Compare(p) < 0 {
				first[l.UnitID] = l.SpanStart
			}
			if p, ok := last[l.UnitID]; !ok || l.SpanEnd.Compare(p) > 0 {
				last[l.UnitID] = l.SpanEnd
			}
		}
	}
	ss, es := make(map[rst.Position]bool), make(map[rst.Position]bool)
	for _, p := range first {
		ss[p] = true
	}
	for _, p := range last {
		es[p] = true
	}
	return sortedPositions(ss), sortedPositions(es)
}

func sortedPositions(set map[rst.Position]bool) []rst.Position {
	out := make([]rst.Position, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

type interval struct {
	start, end rst.Position
}

// candidates pairs every start with every end not before it. starts and ends
// must be sorted; the end pointer only moves forward.
func candidates(starts, ends []rst.Position) []interval {
	var out []interval
	j := 0
	for _, s := range starts {
		for j < len(ends) && ends[j].Compare(s) < 0 {
			j++
		}
		for _, e := range ends[j:] {
			out = append(out, interval{s, e})
		}
	}
	return out
}

// spanIndex maps tree spans to nodes. When several nodes share a span the
// outermost one wins.
func spanIndex(trees []*rst.Node, vis rst.Visibility) map[interval]*rst.Node {
	out := make(map[interval]*rst.Node)
	for _, t := range trees {
		// Subtrees keeps parents ahead of children with the same span.
		for _, n := range rst.Subtrees(t, vis) {
			if !n.TreeStart.IsSet() {
				continue
			}
			k := interval{n.TreeStart, n.TreeEnd}
			if _, ok := out[k]; !ok {
				out[k] = n
			}
		}
	}
	return out
}

func topSet(trees []*rst.Node) map[*rst.Node]bool {
	out := make(map[*rst.Node]bool, len(trees))
	for _, t := range trees {
		out[t] = true
	}
	return out
}

func nuclearityLabel(n *rst.Node, tops map[*rst.Node]bool) string {
	switch {
	case tops[n] || n.IsRoot():
		return Root
	case n.IsNucleus:
		return Nucleus
	}
	return Satellite
}

func relationLabel(n *rst.Node, tops map[*rst.Node]bool) string {
	if tops[n] || n.IsRoot() || n.RelationName == "" {
		return Root
	}
	return n.RelationName
}

// attrStat compares a node attribute over every candidate interval.
func (e *Evaluator) attrStat(st *Stat, vis rst.Visibility, intervals []interval, idxA, idxB map[interval]*rst.Node, labelA, labelB func(*rst.Node) string) {
	for _, iv := range intervals {
		nA, nB := idxA[iv], idxB[iv]
		switch {
		case nA == nil && nB == nil:
			st.Confusion.Add(None, None, 1)
		case nA == nil:
			st.Confusion.Add(None, labelB(nB), 1)
		case nB == nil:
			st.Confusion.Add(labelA(nA), None, 1)
		default:
			la, lb := labelA(nA), labelB(nB)
			st.Confusion.Add(la, lb, 1)
			if e.opts.Diff && la != lb {
				st.Diffs = append(st.Diffs, rst.FormatMinimal(nA, vis, labelA)+"\nvs.\n"+rst.FormatMinimal(nB, vis, labelB))
			}
		}
	}
}
