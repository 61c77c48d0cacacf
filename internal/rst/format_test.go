package rst

import (
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	f := buildFiveEDUs(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8})
	sp1, _ := f.Node("sp1")
	got := Format(sp1, Internal)
	want := `(sp1 (msgid "m1") (type "span") (relname "span") (nucleus true) (start 0:0) (end 0:9)
	(s1 (msgid "m1") (type "text") (relname "span") (nucleus true) (start 0:0) (end 0:4) (text "One."))
	(s2 (msgid "m1") (type "text") (relname "elaboration") (nucleus false) (start 0:5) (end 0:9) (text "Two.")))`
	if got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatMinimal(t *testing.T) {
	f := buildFiveEDUs(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8})
	sp2, _ := f.Node("sp2")
	got := FormatMinimal(sp2, Internal, func(n *Node) string { return n.RelationName })
	want := "(sp2 background\n\t(s3 list \"Three.\")\n\t(s4 list \"Four.\"))"
	if got != want {
		t.Errorf("FormatMinimal =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatForest(t *testing.T) {
	a := threeUnits(t)
	if err := a.LinkAcrossUnits("m1", "m2", "r1", "r2", "reply"); err != nil {
		t.Fatal(err)
	}
	f, err := a.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	out := FormatForest(f)
	if strings.Count(out, "\n\n") != 1 {
		t.Errorf("expected two trees, got:\n%s", out)
	}
	if !strings.Contains(out, "\t(r2 (msgid \"m2\")") {
		t.Errorf("linked unit not rendered below r1:\n%s", out)
	}
}

func TestRelations(t *testing.T) {
	f := buildFiveEDUs(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8})
	got := Relations(f, "elaboration")
	if len(got) != 1 {
		t.Fatalf("got %d instances", len(got))
	}
	if got[0].NucleusText != "One." || got[0].SatelliteText != "Two." || got[0].Unit != "m1" {
		t.Errorf("unexpected instance %+v", got[0])
	}

	lists := Relations(f, "list")
	if len(lists) != 1 || !lists[0].Multinuclear {
		t.Fatalf("list instances = %+v", lists)
	}
	if lists[0].NucleusText != "Three." || lists[0].SatelliteText != "Four." {
		t.Errorf("list instance %+v", lists[0])
	}

	bg := Relations(f, "background")
	if len(bg) != 1 || bg[0].NucleusText != "One. Two." || bg[0].SatelliteText != "Three. Four." {
		t.Errorf("background instances = %+v", bg)
	}

	all := Relations(f, "")
	if len(all) != 4 {
		t.Errorf("all relations = %d, want 4", len(all))
	}
}
