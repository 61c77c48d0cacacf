package source

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const threadXML = `<?xml version="1.0" encoding="UTF-8"?>
<corpus>
  <thread id="t1">
    <msg id="m1">
      <text>Is Go a good fit?</text>
      <msg id="m2">
        <text> I think so. Really. </text>
      </msg>
      <msg id="m3"><text>No.</text></msg>
    </msg>
  </thread>
  <thread id="t2">
    <msg id="m4"><text>Other topic.</text></msg>
  </thread>
</corpus>`

func TestParseThreads(t *testing.T) {
	l, err := ParseThreads(strings.NewReader(threadXML))
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Units(); !reflect.DeepEqual(got, []string{"m1", "m2", "m3", "m4"}) {
		t.Errorf("Units() = %v", got)
	}
	if text, _ := l.Text("m2"); text != "I think so. Really." {
		t.Errorf("Text(m2) = %q", text)
	}
	if i, ok := l.DiscussionIndex("m3"); !ok || i != 2 {
		t.Errorf("DiscussionIndex(m3) = %d, %v", i, ok)
	}
	if p, ok := l.Parent("m3"); !ok || p != "m1" {
		t.Errorf("Parent(m3) = %q, %v", p, ok)
	}
	if _, ok := l.Parent("m4"); ok {
		t.Error("m4 should have no parent")
	}
}

func TestParseThreads_duplicateUnit(t *testing.T) {
	_, err := ParseThreads(strings.NewReader(`<thread><msg id="a"><text>x</text></msg><msg id="a"><text>y</text></msg></thread>`))
	if err == nil {
		t.Fatal("expected duplicate unit error")
	}
}

func TestParseTSV(t *testing.T) {
	in := "# comment\nm1\tHello there.\n\nm2\tSecond\tstill text\n"
	l, err := ParseTSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d", l.Len())
	}
	if text, _ := l.Text("m2"); text != "Second\tstill text" {
		t.Errorf("Text(m2) = %q", text)
	}
	if _, err := ParseTSV(strings.NewReader("no tab here\n")); err == nil {
		t.Error("expected error for line without tab")
	}
}

func TestLoad_dispatchByExtension(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "d1.xml")
	tsvPath := filepath.Join(dir, "d1.tsv")
	if err := os.WriteFile(xmlPath, []byte(threadXML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tsvPath, []byte("u1\tone\nu2\ttwo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	x, err := Load(xmlPath)
	if err != nil {
		t.Fatal(err)
	}
	if x.Len() != 4 {
		t.Errorf("xml units = %d", x.Len())
	}
	s, err := Load(tsvPath)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Errorf("tsv units = %d", s.Len())
	}
	if _, err := Load(filepath.Join(dir, "missing.xml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSorted(t *testing.T) {
	l, _ := ParseTSV(strings.NewReader("b\t1\na\t2\n"))
	got := l.Sorted([]string{"z", "a", "b", "y"})
	if want := []string{"b", "a", "y", "z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted = %v, want %v", got, want)
	}
}
