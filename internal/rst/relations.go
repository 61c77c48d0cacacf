package rst

import (
	"strings"
)

// RelationInstance is one occurrence of a relation: the nucleus side and the
// satellite side with their text. For multinuclear relations the satellite is
// the next nucleus in text order.
type RelationInstance struct {
	Relation      string `json:"relation"`
	Unit          string `json:"unit"`
	NucleusID     string `json:"nucleus_id"`
	SatelliteID   string `json:"satellite_id"`
	NucleusText   string `json:"nucleus_text"`
	SatelliteText string `json:"satellite_text"`
	Multinuclear  bool   `json:"multinuclear"`
}

// TextOf joins the text of the terminals below n.
func TextOf(n *Node, vis Visibility) string {
	leaves := Leaves(n, vis)
	parts := make([]string, 0, len(leaves))
	for _, l := range leaves {
		if l.Text != "" {
			parts = append(parts, l.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Relations lists every instance of relname in f. An empty relname lists all
// relations except RelationSpan.
func Relations(f *Forest, relname string) []RelationInstance {
	var out []RelationInstance
	for _, p := range f.order {
		children := append(append([]*Node(nil), p.internal...), p.external...)
		sortByTreeSpan(children)
		var nuclei []*Node
		for _, c := range children {
			if c.IsNucleus {
				nuclei = append(nuclei, c)
			}
		}
		for _, c := range children {
			if c.RelationName == RelationSpan || (relname != "" && c.RelationName != relname) {
				continue
			}
			if c.IsNucleus {
				continue
			}
			inst := RelationInstance{
				Relation:      c.RelationName,
				Unit:          c.UnitID,
				SatelliteID:   c.ID,
				SatelliteText: TextOf(c, All),
			}
			if nuc := spanNucleus(nuclei); nuc != nil && p.isInternalChild(c) {
				inst.NucleusID = nuc.ID
				inst.NucleusText = TextOf(nuc, All)
			} else {
				inst.NucleusID = p.ID
				inst.NucleusText = TextOf(p, Internal)
			}
			out = append(out, inst)
		}
		for i := 0; i+1 < len(nuclei); i++ {
			a, b := nuclei[i], nuclei[i+1]
			if a.RelationName == RelationSpan || a.RelationName != b.RelationName {
				continue
			}
			if relname != "" && a.RelationName != relname {
				continue
			}
			out = append(out, RelationInstance{
				Relation:      a.RelationName,
				Unit:          a.UnitID,
				NucleusID:     a.ID,
				SatelliteID:   b.ID,
				NucleusText:   TextOf(a, All),
				SatelliteText: TextOf(b, All),
				Multinuclear:  true,
			})
		}
	}
	return out
}

func spanNucleus(nuclei []*Node) *Node {
	for _, n := range nuclei {
		if n.RelationName == RelationSpan {
			return n
		}
	}
	return nil
}
