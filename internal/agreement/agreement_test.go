package agreement

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/rstagree/internal/rst"
)

type corpusText struct {
	order []string
	texts map[string]string
}

func newText(pairs ...string) *corpusText {
	c := &corpusText{texts: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		c.order = append(c.order, pairs[i])
		c.texts[pairs[i]] = pairs[i+1]
	}
	return c
}

func (c *corpusText) Units() []string { return c.order }

func (c *corpusText) Text(unit string) (string, bool) {
	t, ok := c.texts[unit]
	return t, ok
}

func (c *corpusText) DiscussionIndex(unit string) (int, bool) {
	for i, u := range c.order {
		if u == unit {
			return i, true
		}
	}
	return 0, false
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func edu(t *testing.T, a *rst.Assembler, id, unit string, start int, text string) {
	t.Helper()
	end := start + utf8.RuneCountInString(text)
	must(t, a.DeclareNode(id, rst.Attrs{UnitID: unit, Kind: rst.Terminal, Offsets: &rst.Offsets{Start: start, End: end}, Text: text}))
}

func span(t *testing.T, a *rst.Assembler, id, unit string) {
	t.Helper()
	must(t, a.DeclareNode(id, rst.Attrs{UnitID: unit, Kind: rst.Nonterminal}))
}

func finalize(t *testing.T, a *rst.Assembler) *rst.Forest {
	t.Helper()
	f, err := a.Finalize()
	must(t, err)
	return f
}

// abcForest annotates "A. B. C." as ((A. <elaboration B.) <background C.).
func abcForest(t *testing.T, text *corpusText) *rst.Forest {
	a := rst.NewAssembler(text)
	edu(t, a, "s1", "m1", 0, "A. ")
	edu(t, a, "s2", "m1", 3, "B. ")
	edu(t, a, "s3", "m1", 6, "C.")
	span(t, a, "sp1", "m1")
	span(t, a, "sp2", "m1")
	must(t, a.AttachHypotactic("sp1", "s1", "s2", "elaboration"))
	must(t, a.AttachHypotactic("sp2", "sp1", "s3", "background"))
	return finalize(t, a)
}

func reportKappa(t *testing.T, stats Stats, d Dimension) float64 {
	t.Helper()
	r, err := Summarize(stats, "")
	must(t, err)
	row, ok := r.Row(string(d))
	if !ok {
		t.Fatalf("no row for %s", d)
	}
	return row.Kappa
}

func TestCompare_identicalAnnotations(t *testing.T) {
	text := newText("m1", "A. B. C.")
	a, b := abcForest(t, text), abcForest(t, text)

	stats, warnings, err := NewEvaluator(Options{Checks: CheckMessage}).Compare(a, b, text)
	must(t, err)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	for _, d := range []Dimension{Segments, MessageNuclearity, MessageRelations} {
		if k := reportKappa(t, stats, d); k != 1.0 {
			t.Errorf("%s kappa = %v, want 1", d, k)
		}
	}
	rel := stats[MessageRelations].Confusion
	if got := rel.Total(); got != 6 {
		t.Errorf("relation candidates = %d, want 6", got)
	}
	if got := rel.Get(None, None); got != 1 {
		t.Errorf("(none,none) = %d, want 1", got)
	}
	if got := rel.Get(Root, Root); got != 1 {
		t.Errorf("(root,root) = %d, want 1", got)
	}
}

// boundaryForests: A splits "I think so. Really." after "so.", B does not.
func boundaryForests(t *testing.T, text *corpusText) (*rst.Forest, *rst.Forest) {
	a := rst.NewAssembler(text)
	edu(t, a, "s1", "m1", 0, "I think so. ")
	edu(t, a, "s2", "m1", 12, "Really.")
	span(t, a, "sp1", "m1")
	must(t, a.AttachHypotactic("sp1", "s1", "s2", "elaboration"))

	b := rst.NewAssembler(text)
	edu(t, b, "e1", "m1", 0, "I think so. Really.")
	return finalize(t, a), finalize(t, b)
}

func TestCompare_boundaryDisagreement(t *testing.T) {
	text := newText("m1", "I think so. Really.")
	a, b := boundaryForests(t, text)

	stats, _, err := NewEvaluator(Options{Checks: CheckSegments, Diff: true}).Compare(a, b, text)
	must(t, err)
	seg := stats[Segments].Confusion
	if got := seg.Get(Segment, NonSegment); got != 1 {
		t.Errorf("(segment,nonsegment) = %d, want 1", got)
	}
	if got := seg.Get(Segment, Segment); got != 1 {
		t.Errorf("(segment,segment) = %d, want 1", got)
	}
	if got := seg.Total(); got != 4 {
		t.Errorf("total = %d, want 4", got)
	}
	k := reportKappa(t, stats, Segments)
	if !(k > 0 && k < 1) {
		t.Errorf("kappa = %v, want strictly between 0 and 1", k)
	}
	if math.Abs(k-0.5) > 1e-9 {
		t.Errorf("kappa = %v, want 0.5", k)
	}
	diffs := stats[Segments].Diffs
	if len(diffs) != 1 || diffs[0] != "m1\tI think so.<1> Really.<>" {
		t.Errorf("diffs = %q", diffs)
	}
}

func TestCompare_strictSegments(t *testing.T) {
	text := newText("m1", "I think so. Really.")
	a, b := boundaryForests(t, text)

	stats, _, err := NewEvaluator(Options{Checks: CheckSegments, SegmentStrict: true}).Compare(a, b, text)
	must(t, err)
	seg := stats[Segments].Confusion
	if got := seg.Get(NonSegment, NonSegment); got != 0 {
		t.Errorf("strict (nonsegment,nonsegment) = %d, want 0", got)
	}
	if got := seg.Total(); got != 2 {
		t.Errorf("strict total = %d, want 2", got)
	}
	if k := reportKappa(t, stats, Segments); k != 0 {
		t.Errorf("strict kappa = %v, want 0", k)
	}
}

func TestCompare_relationsAgainstSingleEDU(t *testing.T) {
	text := newText("m1", "I think so. Really.")
	a, b := boundaryForests(t, text)

	stats, _, err := NewEvaluator(Options{Checks: CheckMessageRelations, Diff: true}).Compare(a, b, text)
	must(t, err)
	rel := stats[MessageRelations].Confusion
	if rel.Get(rst.RelationSpan, None) != 1 || rel.Get("elaboration", None) != 1 || rel.Get(Root, Root) != 1 {
		t.Errorf("confusion = %v", rel)
	}
	if _, ok := stats[Segments]; ok {
		t.Error("segments were not requested")
	}
	if len(stats[MessageRelations].Diffs) != 0 {
		t.Errorf("no node pair disagrees, got diffs %q", stats[MessageRelations].Diffs)
	}
}

func TestCompare_missingUnitWarns(t *testing.T) {
	text := newText("m1", "A. B. C.", "m2", "Unannotated.")
	a, b := abcForest(t, text), abcForest(t, text)

	stats, warnings, err := NewEvaluator(Options{Checks: CheckSegments}).Compare(a, b, text)
	must(t, err)
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want one per annotator", warnings)
	}
	for _, w := range warnings {
		if w.Unit != "m2" {
			t.Errorf("warning for %s", w.Unit)
		}
	}
	if got := stats[Segments].Confusion.Total(); got != 3 {
		t.Errorf("total = %d, m2 should be skipped", got)
	}
}

func discussionForest(t *testing.T, text *corpusText, relname string) *rst.Forest {
	a := rst.NewAssembler(text)
	edu(t, a, "r1", "m1", 0, "Hi all.")
	edu(t, a, "r2", "m2", 0, "Hello.")
	must(t, a.LinkAcrossUnits("m1", "m2", "r1", "r2", relname))
	return finalize(t, a)
}

func TestCompare_discussionLevel(t *testing.T) {
	text := newText("m1", "Hi all.", "m2", "Hello.")
	a := discussionForest(t, text, "reply")
	b := discussionForest(t, text, "answer")

	for _, sweep := range []Sweep{SweepShared, SweepUnits} {
		t.Run(string(sweep), func(t *testing.T) {
			e := NewEvaluator(Options{Checks: CheckDiscussion, Diff: true, Sweep: sweep})
			stats, _, err := e.Compare(a, b, text)
			must(t, err)
			rel := stats[DiscussionRelations].Confusion
			if rel.Get("reply", "answer") != 1 || rel.Get(Root, Root) != 1 || rel.Get(None, None) != 1 {
				t.Errorf("confusion = %v", rel)
			}
			diffs := stats[DiscussionRelations].Diffs
			if len(diffs) != 1 || !strings.Contains(diffs[0], "\nvs.\n") || !strings.Contains(diffs[0], "answer") {
				t.Errorf("diffs = %q", diffs)
			}
			nuc := stats[DiscussionNuclearity].Confusion
			if nuc.Overlap() != nuc.Total() {
				t.Errorf("nuclearity should agree fully: %v", nuc)
			}
			if _, ok := stats[MessageRelations]; ok {
				t.Error("message level was not requested")
			}
		})
	}
}

func TestComputeKappa(t *testing.T) {
	tests := []struct {
		name    string
		overlap int
		m1, m2  map[string]int
		total   int
		want    float64
		wantErr bool
	}{
		{"empty", 0, map[string]int{}, map[string]int{}, 0, 0, false},
		{"perfect single label", 5, map[string]int{"x": 5}, map[string]int{"x": 5}, 5, 1, false},
		{"perfect two labels", 4, map[string]int{"x": 2, "y": 2}, map[string]int{"x": 2, "y": 2}, 4, 1, false},
		{"chance level", 2, map[string]int{"x": 2, "y": 2}, map[string]int{"x": 2, "y": 2}, 4, 0, false},
		{"single label disagreement", 0, map[string]int{"x": 3}, map[string]int{"x": 3}, 3, 0, false},
		{"overlap above marginals 1", 3, map[string]int{"x": 2}, map[string]int{"x": 3}, 3, 0, true},
		{"overlap above marginals 2", 3, map[string]int{"x": 3}, map[string]int{"x": 1}, 3, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeKappa(tt.overlap, tt.m1, tt.m2, tt.total)
			if tt.wantErr {
				if !errors.Is(err, ErrInvariant) {
					t.Errorf("err = %v, want ErrInvariant", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("kappa = %v, want %v", got, tt.want)
			}
		})
	}
	for _, total := range []int{1, 7, 100} {
		m := map[string]int{Segment: total}
		if k, err := ComputeKappa(total, m, m, total); err != nil || k != 1 {
			t.Errorf("ComputeKappa(T=%d) = %v, %v; want 1", total, k, err)
		}
	}
}

func TestAccumulator_sumsMatrices(t *testing.T) {
	acc := NewAccumulator()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := make(Stats)
			c := s.Get(Segments).Confusion
			if i%2 == 0 {
				c.Add(Segment, Segment, 1)
			} else {
				c.Add(Segment, NonSegment, 1)
				c.Add(NonSegment, NonSegment, 1)
			}
			acc.Add(s)
		}(i)
	}
	wg.Wait()
	if acc.Files() != 20 {
		t.Errorf("Files() = %d", acc.Files())
	}
	snap := acc.Snapshot()
	c := snap[Segments].Confusion
	if c.Get(Segment, Segment) != 10 || c.Get(Segment, NonSegment) != 10 || c.Total() != 30 {
		t.Errorf("aggregated = %v", c)
	}
	// Kappa comes from the summed matrix, not from per-file values.
	k := reportKappa(t, snap, Segments)
	m1, m2 := c.Marginals()
	want, _ := ComputeKappa(c.Overlap(), m1, m2, c.Total())
	if k != want {
		t.Errorf("kappa = %v, want %v", k, want)
	}
	snap[Segments].Confusion.Add(Segment, Segment, 100)
	if acc.Snapshot()[Segments].Confusion.Get(Segment, Segment) != 10 {
		t.Error("Snapshot must return a copy")
	}
}

func TestParseChecks(t *testing.T) {
	c, err := ParseChecks(nil)
	must(t, err)
	if c != CheckAll {
		t.Errorf("no names = %v", c)
	}
	c, err = ParseChecks([]string{"segments", "discussion_relations"})
	must(t, err)
	if got := c.String(); got != "segments,discussion_relations" {
		t.Errorf("String() = %q", got)
	}
	if !c.Has(CheckSegments) || c.Any(CheckNuclearity) {
		t.Errorf("flags = %b", c)
	}
	if _, err := ParseChecks([]string{"colours"}); err == nil {
		t.Error("expected error for unknown dimension")
	}
	if s, err := ParseSweep(""); err != nil || s != SweepShared {
		t.Errorf("ParseSweep(\"\") = %v, %v", s, err)
	}
	if _, err := ParseSweep("diagonal"); err == nil {
		t.Error("expected error for unknown sweep")
	}
}

func TestSummarize_orderAndDiffs(t *testing.T) {
	stats := make(Stats)
	stats.Get(MessageRelations).Confusion.Add("a", "b", 1)
	stats.Get(MessageRelations).Diffs = []string{"x\nvs.\ny"}
	stats.Get(Segments).Confusion.Add(Segment, Segment, 2)
	r, err := Summarize(stats, "total")
	must(t, err)
	if len(r.Rows) != 2 || r.Rows[0].Element != "segments" || r.Rows[1].Element != "message_relations" {
		t.Fatalf("rows = %+v", r.Rows)
	}
	if r.Rows[1].Overlap != 0 || r.Rows[1].Markables1 != 1 || r.Rows[1].Total != 1 {
		t.Errorf("row = %+v", r.Rows[1])
	}
	if len(r.Diffs) != 1 || r.Diffs[0].Element != "message_relations" {
		t.Errorf("diffs = %+v", r.Diffs)
	}
}
