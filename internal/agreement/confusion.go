package agreement

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Labels used in confusion matrices besides relation names.
const (
	None       = "none"
	Segment    = "segment"
	NonSegment = "nonsegment"
	Nucleus    = "nucleus"
	Satellite  = "satellite"
	Root       = "root"
)

// ErrInvariant means the counts are statistically impossible, which points at
// a counting bug rather than bad input.
var ErrInvariant = errors.New("agreement invariant violated")

// Confusion counts (label from annotator 1, label from annotator 2) pairs.
type Confusion map[string]map[string]int

// Add adds n to the (l1, l2) cell. Zero counts still create the cell so that
// both labels appear in the marginals.
func (c Confusion) Add(l1, l2 string, n int) {
	row, ok := c[l1]
	if !ok {
		row = make(map[string]int)
		c[l1] = row
	}
	row[l2] += n
}

// Get returns the (l1, l2) cell.
func (c Confusion) Get(l1, l2 string) int { return c[l1][l2] }

// Merge adds every cell of o to c.
func (c Confusion) Merge(o Confusion) {
	for l1, row := range o {
		for l2, n := range row {
			c.Add(l1, l2, n)
		}
	}
}

// Overlap is the sum of the diagonal.
func (c Confusion) Overlap() int {
	n := 0
	for l, row := range c {
		n += row[l]
	}
	return n
}

// Marginals returns the row sums (annotator 1) and column sums (annotator 2).
func (c Confusion) Marginals() (m1, m2 map[string]int) {
	m1, m2 = make(map[string]int), make(map[string]int)
	for l1, row := range c {
		for l2, n := range row {
			m1[l1] += n
			m2[l2] += n
		}
	}
	return m1, m2
}

// Total is the number of compared items.
func (c Confusion) Total() int {
	n := 0
	for _, row := range c {
		for _, v := range row {
			n += v
		}
	}
	return n
}

// Labels returns every label occurring on either side, sorted.
func (c Confusion) Labels() []string {
	seen := make(map[string]bool)
	for l1, row := range c {
		seen[l1] = true
		for l2 := range row {
			seen[l2] = true
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (c Confusion) clone() Confusion {
	out := make(Confusion, len(c))
	out.Merge(c)
	return out
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// ComputeKappa returns Cohen's Kappa for overlap matching items out of total,
// given the label marginals of both annotators.
//
// When chance agreement reaches 1 both annotators used a single label for
// everything; Kappa is then 1 if they agree on all items and 0 otherwise.
func ComputeKappa(overlap int, m1, m2 map[string]int, total int) (float64, error) {
	if s := sum(m1); overlap > s {
		return 0, fmt.Errorf("%w: overlap %d exceeds markables of annotator 1 (%d)", ErrInvariant, overlap, s)
	}
	if s := sum(m2); overlap > s {
		return 0, fmt.Errorf("%w: overlap %d exceeds markables of annotator 2 (%d)", ErrInvariant, overlap, s)
	}
	if total == 0 {
		return 0, nil
	}
	observed := float64(overlap) / float64(total)
	var expected float64
	for l, n := range m1 {
		expected += float64(n) * float64(m2[l])
	}
	chance := expected / (float64(total) * float64(total))

	var kappa float64
	switch {
	case chance < 1:
		kappa = (observed - chance) / (1 - chance)
	case overlap == total:
		kappa = 1
	}
	if kappa > 1 {
		return 0, fmt.Errorf("%w: kappa %.4f above 1", ErrInvariant, kappa)
	}
	return kappa, nil
}

// Kappa computes Cohen's Kappa from the matrix.
func (c Confusion) Kappa() (float64, error) {
	m1, m2 := c.Marginals()
	return ComputeKappa(c.Overlap(), m1, m2, c.Total())
}

// Stat is the agreement state of one dimension.
type Stat struct {
	Confusion Confusion
	Diffs     []string
}

func newStat() *Stat { return &Stat{Confusion: make(Confusion)} }

// Stats holds the per-dimension statistics of a file or a corpus.
type Stats map[Dimension]*Stat

// Get returns the stat for d, creating it if needed.
func (s Stats) Get(d Dimension) *Stat {
	st, ok := s[d]
	if !ok {
		st = newStat()
		s[d] = st
	}
	return st
}

// Merge sums the matrices of o into s cell-wise and concatenates the diffs.
func (s Stats) Merge(o Stats) {
	for d, st := range o {
		dst := s.Get(d)
		dst.Confusion.Merge(st.Confusion)
		dst.Diffs = append(dst.Diffs, st.Diffs...)
	}
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	for d, st := range s {
		out[d] = &Stat{Confusion: st.Confusion.clone(), Diffs: append([]string(nil), st.Diffs...)}
	}
	return out
}

// Accumulator collects per-file statistics into corpus totals. It is safe for
// concurrent use.
type Accumulator struct {
	mu    sync.Mutex
	stats Stats
	files int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{stats: make(Stats)}
}

// Add merges the statistics of one file.
func (a *Accumulator) Add(s Stats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Merge(s)
	a.files++
}

// Files returns how many file statistics were added.
func (a *Accumulator) Files() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Accumulator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.Clone()
}
