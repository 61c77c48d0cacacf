// Package agreement measures inter-annotator agreement between two RST
// forests over the same source text with Cohen's Kappa.
package agreement

import (
	"fmt"
	"strings"
)

// Dimension names an aspect of the annotation whose agreement is measured.
type Dimension string

const (
	Segments             Dimension = "segments"
	MessageNuclearity    Dimension = "message_nuclearity"
	DiscussionNuclearity Dimension = "discussion_nuclearity"
	MessageRelations     Dimension = "message_relations"
	DiscussionRelations  Dimension = "discussion_relations"
)

// AllDimensions lists every dimension in report order.
var AllDimensions = []Dimension{
	Segments, MessageNuclearity, DiscussionNuclearity, MessageRelations, DiscussionRelations,
}

// Check is a set of dimensions to measure.
type Check uint8

const (
	CheckSegments Check = 1 << iota
	CheckMessageNuclearity
	CheckDiscussionNuclearity
	CheckMessageRelations
	CheckDiscussionRelations

	CheckNuclearity = CheckMessageNuclearity | CheckDiscussionNuclearity
	CheckRelations  = CheckMessageRelations | CheckDiscussionRelations
	CheckMessage    = CheckSegments | CheckMessageNuclearity | CheckMessageRelations
	CheckDiscussion = CheckDiscussionNuclearity | CheckDiscussionRelations
	CheckAll        = CheckMessage | CheckDiscussion
)

// DimensionAll selects every dimension in ParseDimension and ParseChecks.
const DimensionAll = "all"

var checkOf = map[Dimension]Check{
	Segments:             CheckSegments,
	MessageNuclearity:    CheckMessageNuclearity,
	DiscussionNuclearity: CheckDiscussionNuclearity,
	MessageRelations:     CheckMessageRelations,
	DiscussionRelations:  CheckDiscussionRelations,
}

// ParseDimension maps a dimension name (or "all") to its check flag.
func ParseDimension(name string) (Check, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == DimensionAll {
		return CheckAll, nil
	}
	c, ok := checkOf[Dimension(name)]
	if !ok {
		return 0, fmt.Errorf("unknown dimension %q (want one of %s)", name, strings.Join(DimensionNames(), ", "))
	}
	return c, nil
}

// ParseChecks combines several dimension names. No names means CheckAll.
func ParseChecks(names []string) (Check, error) {
	if len(names) == 0 {
		return CheckAll, nil
	}
	var c Check
	for _, n := range names {
		flag, err := ParseDimension(n)
		if err != nil {
			return 0, err
		}
		c |= flag
	}
	return c, nil
}

// DimensionNames returns the accepted dimension names including "all".
func DimensionNames() []string {
	out := make([]string, 0, len(AllDimensions)+1)
	for _, d := range AllDimensions {
		out = append(out, string(d))
	}
	return append(out, DimensionAll)
}

// Has reports whether every flag in o is set in c.
func (c Check) Has(o Check) bool { return c&o == o }

// Any reports whether c and o share a flag.
func (c Check) Any(o Check) bool { return c&o != 0 }

// Dimensions returns the selected dimensions in report order.
func (c Check) Dimensions() []Dimension {
	var out []Dimension
	for _, d := range AllDimensions {
		if c.Has(checkOf[d]) {
			out = append(out, d)
		}
	}
	return out
}

func (c Check) String() string {
	ds := c.Dimensions()
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = string(d)
	}
	return strings.Join(names, ",")
}

// Sweep selects how candidate intervals are generated for discussion-level
// nuclearity and relations.
type Sweep string

const (
	// SweepShared uses the same interval sweep as the message level, over
	// every EDU boundary in the discussion.
	SweepShared Sweep = "shared"
	// SweepUnits only considers intervals that start at the beginning of a
	// unit and end at the end of a unit.
	SweepUnits Sweep = "units"
)

// ParseSweep validates a sweep name. The empty string means SweepShared.
func ParseSweep(s string) (Sweep, error) {
	switch Sweep(strings.ToLower(s)) {
	case "", SweepShared:
		return SweepShared, nil
	case SweepUnits:
		return SweepUnits, nil
	}
	return "", fmt.Errorf("unknown sweep %q (want shared or units)", s)
}
