// Package source loads the raw text of discussion units and assigns each unit
// its discussion index.
package source

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Lookup maps unit ids to their raw text and discussion order.
type Lookup struct {
	texts  map[string]string
	index  map[string]int
	parent map[string]string
	order  []string
}

// NewLookup returns an empty lookup.
func NewLookup() *Lookup {
	return &Lookup{
		texts:  make(map[string]string),
		index:  make(map[string]int),
		parent: make(map[string]string),
	}
}

// Add appends a unit. Its discussion index is the number of units added before.
func (l *Lookup) Add(unit, text, parent string) error {
	if unit == "" {
		return fmt.Errorf("unit without id")
	}
	if _, ok := l.texts[unit]; ok {
		return fmt.Errorf("duplicate unit %s", unit)
	}
	l.texts[unit] = text
	l.index[unit] = len(l.order)
	if parent != "" {
		l.parent[unit] = parent
	}
	l.order = append(l.order, unit)
	return nil
}

// Text returns the raw text of unit.
func (l *Lookup) Text(unit string) (string, bool) {
	t, ok := l.texts[unit]
	return t, ok
}

// DiscussionIndex returns the position of unit in discussion order.
func (l *Lookup) DiscussionIndex(unit string) (int, bool) {
	i, ok := l.index[unit]
	return i, ok
}

// Parent returns the unit that unit replies to, if any.
func (l *Lookup) Parent(unit string) (string, bool) {
	p, ok := l.parent[unit]
	return p, ok
}

// Units returns all unit ids in discussion order.
func (l *Lookup) Units() []string { return append([]string(nil), l.order...) }

// Len returns the number of units.
func (l *Lookup) Len() int { return len(l.order) }

type xmlMsg struct {
	ID      string   `xml:"id,attr"`
	Text    string   `xml:"text"`
	Replies []xmlMsg `xml:"msg"`
}

// ParseThreads reads thread/message XML. Messages may nest; a nested message
// replies to its enclosing one. Discussion indices follow document order.
//
//	<thread><msg id="m1"><text>...</text><msg id="m2">...</msg></msg></thread>
func ParseThreads(r io.Reader) (*Lookup, error) {
	l := NewLookup()
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse source XML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "msg" {
			continue
		}
		var m xmlMsg
		if err := dec.DecodeElement(&m, &start); err != nil {
			return nil, fmt.Errorf("failed to parse message: %w", err)
		}
		if err := l.addTree(m, ""); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Lookup) addTree(m xmlMsg, parent string) error {
	if err := l.Add(m.ID, strings.TrimSpace(m.Text), parent); err != nil {
		return err
	}
	for _, r := range m.Replies {
		if err := l.addTree(r, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// ParseTSV reads "id<TAB>text" lines. Discussion indices follow line order.
func ParseTSV(r io.Reader) (*Lookup, error) {
	l := NewLookup()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimRight(sc.Text(), "\r")
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		id, text, ok := strings.Cut(s, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected id and text separated by a tab", line)
		}
		if err := l.Add(id, text, ""); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// Load reads a source file, choosing the parser by extension: .xml files are
// parsed as threads, anything else as id/text lines.
func Load(path string) (*Lookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return ParseThreads(f)
	}
	return ParseTSV(f)
}

// Sorted returns unit ids ordered by discussion index; units unknown to the
// lookup go last in lexical order.
func (l *Lookup) Sorted(units []string) []string {
	out := append([]string(nil), units...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := l.index[out[i]]
		b, bok := l.index[out[j]]
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		}
		return out[i] < out[j]
	})
	return out
}
