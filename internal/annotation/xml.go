package annotation

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/hyperjump/rstagree/internal/rst"
)

type xmlRef struct {
	IDRef string `xml:"idref,attr"`
}

type xmlSegment struct {
	ID       string     `xml:"id,attr"`
	Unit     string     `xml:"msgid,attr"`
	Offsets  string     `xml:"offsets,attr"`
	Relation string     `xml:"relname,attr"`
	Parent   string     `xml:"parent,attr"`
	TextAttr string     `xml:"text,attr"`
	Text     string     `xml:",chardata"`
	Extra    []xml.Attr `xml:",any,attr"`
}

type xmlSpan struct {
	ID       string     `xml:"id,attr"`
	Unit     string     `xml:"msgid,attr"`
	Relation string     `xml:"relname,attr"`
	Parent   string     `xml:"parent,attr"`
	Extra    []xml.Attr `xml:",any,attr"`
}

type xmlHypotactic struct {
	Relation  string     `xml:"relname,attr"`
	Span      xmlRef     `xml:"spannode"`
	Nucleus   xmlRef     `xml:"nucleus"`
	Satellite xmlRef     `xml:"satellite"`
	Extra     []xml.Attr `xml:",any,attr"`
}

type xmlParatactic struct {
	Relation string     `xml:"relname,attr"`
	Span     xmlRef     `xml:"spannode"`
	Nuclei   []xmlRef   `xml:"nucleus"`
	Extra    []xml.Attr `xml:",any,attr"`
}

type xmlCrossUnit struct {
	Relation   string     `xml:"relname,attr"`
	ParentUnit string     `xml:"parentmsg,attr"`
	ChildUnit  string     `xml:"childmsg,attr"`
	ParentRoot string     `xml:"parent,attr"`
	ChildRoot  string     `xml:"child,attr"`
	Extra      []xml.Attr `xml:",any,attr"`
}

// containers may hold annotation elements but carry nothing themselves. The
// document element is accepted under any name.
var containers = map[string]bool{
	"rst":       true,
	"segments":  true,
	"spans":     true,
	"relations": true,
}

// ReadXML parses an XML annotation document. Segment, span and relation
// elements may sit in the document element or in a container; any other
// element is a format error:
//
//	<segment id="s1" msgid="m1" offsets="0,11">I think so.</segment>
//	<span id="sp1" msgid="m1"/>
//	<hypRelation relname="elaboration"><spannode idref="sp1"/><nucleus idref="s1"/><satellite idref="s2"/></hypRelation>
//	<parRelation relname="list"><spannode idref="sp2"/><nucleus idref="s3"/><nucleus idref="s4"/></parRelation>
//	<extRelation relname="reply" parentmsg="m1" childmsg="m2" parent="sp1" child="s5"/>
func ReadXML(r io.Reader) ([]rst.Record, error) {
	var records []rst.Record
	dec := xml.NewDecoder(r)
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", rst.ErrBadFormat, err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			depth--
		case xml.StartElement:
			line, _ := dec.InputPos()
			if depth == 0 || containers[t.Name.Local] {
				depth++
				continue
			}
			rec, err := decodeElement(dec, t, line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func decodeElement(dec *xml.Decoder, start xml.StartElement, line int) (rst.Record, error) {
	switch start.Name.Local {
	case "segment":
		var s xmlSegment
		if err := decode(dec, &start, &s); err != nil {
			return nil, err
		}
		if err := noExtra(s.Extra); err != nil {
			return nil, err
		}
		attrs := rst.Attrs{UnitID: s.Unit, Kind: rst.Terminal, RelationName: s.Relation, ParentID: s.Parent, Text: s.Text}
		if s.TextAttr != "" {
			attrs.Text = s.TextAttr
		}
		if s.Offsets != "" {
			o, err := rst.ParseOffsets(s.Offsets)
			if err != nil {
				return nil, err
			}
			attrs.Offsets = o
		}
		return rst.DeclareRecord{Pos: line, ID: s.ID, Attrs: attrs}, nil
	case "span":
		var s xmlSpan
		if err := decode(dec, &start, &s); err != nil {
			return nil, err
		}
		if err := noExtra(s.Extra); err != nil {
			return nil, err
		}
		return rst.DeclareRecord{Pos: line, ID: s.ID, Attrs: rst.Attrs{
			UnitID: s.Unit, Kind: rst.Nonterminal, RelationName: s.Relation, ParentID: s.Parent,
		}}, nil
	case "hypRelation":
		var h xmlHypotactic
		if err := decode(dec, &start, &h); err != nil {
			return nil, err
		}
		if err := noExtra(h.Extra); err != nil {
			return nil, err
		}
		return rst.HypotacticRecord{
			Pos: line, Span: h.Span.IDRef, Nucleus: h.Nucleus.IDRef,
			Satellite: h.Satellite.IDRef, Relation: h.Relation,
		}, nil
	case "parRelation":
		var p xmlParatactic
		if err := decode(dec, &start, &p); err != nil {
			return nil, err
		}
		if err := noExtra(p.Extra); err != nil {
			return nil, err
		}
		nuclei := make([]string, len(p.Nuclei))
		for i, n := range p.Nuclei {
			nuclei[i] = n.IDRef
		}
		return rst.ParatacticRecord{Pos: line, Span: p.Span.IDRef, Nuclei: nuclei, Relation: p.Relation}, nil
	case "extRelation":
		var e xmlCrossUnit
		if err := decode(dec, &start, &e); err != nil {
			return nil, err
		}
		if err := noExtra(e.Extra); err != nil {
			return nil, err
		}
		return rst.CrossUnitRecord{
			Pos: line, ParentUnit: e.ParentUnit, ChildUnit: e.ChildUnit,
			ParentRoot: e.ParentRoot, ChildRoot: e.ChildRoot, Relation: e.Relation,
		}, nil
	}
	return nil, badFormat("unknown element <%s>", start.Name.Local)
}

func decode(dec *xml.Decoder, start *xml.StartElement, v any) error {
	if err := dec.DecodeElement(v, start); err != nil {
		return fmt.Errorf("%w: <%s>: %v", rst.ErrBadFormat, start.Name.Local, err)
	}
	return nil
}

func noExtra(attrs []xml.Attr) error {
	if len(attrs) == 0 {
		return nil
	}
	return badFormat("unknown attribute %q", attrs[0].Name.Local)
}
