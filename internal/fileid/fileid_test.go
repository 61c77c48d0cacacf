package fileid

import (
	"strings"
	"testing"
)

func TestPairID(t *testing.T) {
	id1 := PairID("/src/d1.xml", "/a1/d1.rst", "/a2/d1.rst")
	id2 := PairID("/src/d1.xml", "/a1/d1.rst", "/a2/d1.rst")
	if id1 != id2 {
		t.Errorf("same paths should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, pairPrefix) {
		t.Errorf("ID should have prefix %q: got %q", pairPrefix, id1)
	}
	if len(id1) != len(pairPrefix)+64 {
		t.Errorf("unexpected length: %q", id1)
	}
}

func TestPairID_orderMatters(t *testing.T) {
	if PairID("/s", "/a", "/b") == PairID("/s", "/b", "/a") {
		t.Error("swapping annotators should change the ID")
	}
}

func TestPairID_normalized(t *testing.T) {
	id1 := PairID("/src/d1.xml", "/a1/d1.rst", "/a2/d1.rst")
	id2 := PairID("/src/./d1.xml", "/a1/d1.rst", "/a2//d1.rst")
	if id1 != id2 {
		t.Errorf("equivalent paths should match: %q vs %q", id1, id2)
	}
}

func TestPairID_noSeparatorCollision(t *testing.T) {
	if PairID("a", "bc", "d") == PairID("ab", "c", "d") {
		t.Error("field boundaries must be part of the hash")
	}
}

func TestRelationID(t *testing.T) {
	id := RelationID("/a1/d1.rst", "elaboration", "s1", "s2")
	if !strings.HasPrefix(id, relationPrefix) {
		t.Errorf("ID should have prefix %q: got %q", relationPrefix, id)
	}
	if id == RelationID("/a1/d1.rst", "elaboration", "s2", "s1") {
		t.Error("nucleus and satellite are not interchangeable")
	}
	if id != RelationID("/a1/./d1.rst", "elaboration", "s1", "s2") {
		t.Error("path should be cleaned")
	}
}
