package annotation

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/rstagree/internal/rst"
)

const (
	// FieldSep separates the fields of a TSV record.
	FieldSep = "\t"
	// ValueSep separates an attribute key from its value.
	ValueSep = "\x1c"
)

// TSV record kinds.
const (
	KindNode       = "nid"
	KindHypotactic = "hyp"
	KindParatactic = "par"
	KindCrossUnit  = "msgs2extnid"
)

// ReadTSV parses tab separated annotation records:
//
//	nid          <id>                       key\x1Cvalue...
//	hyp          <span>,<nucleus>,<sat>     relname\x1C<name>
//	par          <span>,<nucleus>,...       relname\x1C<name>
//	msgs2extnid  <parentUnit>,<childUnit>   parent\x1C<id> child\x1C<id> relname\x1C<name>
//
// Empty lines and lines starting with '#' are skipped.
func ReadTSV(r io.Reader) ([]rst.Record, error) {
	var records []rst.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(s) == "" || strings.HasPrefix(s, "#") {
			continue
		}
		rec, err := parseTSVLine(line, s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseTSVLine(line int, s string) (rst.Record, error) {
	fields := strings.Split(s, FieldSep)
	if len(fields) < 2 {
		return nil, badFormat("record needs a kind and ids")
	}
	kind, ids := fields[0], rst.SplitList(fields[1])
	pairs, err := splitPairs(fields[2:])
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindNode:
		if len(ids) != 1 {
			return nil, badFormat("node record needs exactly one id, got %q", fields[1])
		}
		var attrs rst.Attrs
		for _, p := range pairs {
			if err := rst.SetAttr(&attrs, p[0], p[1]); err != nil {
				return nil, err
			}
		}
		return rst.DeclareRecord{Pos: line, ID: ids[0], Attrs: attrs}, nil
	case KindHypotactic:
		if len(ids) != 3 {
			return nil, badFormat("hypotactic record needs span, nucleus and satellite, got %q", fields[1])
		}
		rel, err := onlyKeys(pairs, "relname")
		if err != nil {
			return nil, err
		}
		return rst.HypotacticRecord{Pos: line, Span: ids[0], Nucleus: ids[1], Satellite: ids[2], Relation: rel["relname"]}, nil
	case KindParatactic:
		if len(ids) < 2 {
			return nil, badFormat("paratactic record needs a span and nuclei, got %q", fields[1])
		}
		rel, err := onlyKeys(pairs, "relname")
		if err != nil {
			return nil, err
		}
		return rst.ParatacticRecord{Pos: line, Span: ids[0], Nuclei: ids[1:], Relation: rel["relname"]}, nil
	case KindCrossUnit:
		if len(ids) != 2 {
			return nil, badFormat("cross-unit record needs parent and child unit, got %q", fields[1])
		}
		kv, err := onlyKeys(pairs, "parent", "child", "relname")
		if err != nil {
			return nil, err
		}
		return rst.CrossUnitRecord{
			Pos:        line,
			ParentUnit: ids[0],
			ChildUnit:  ids[1],
			ParentRoot: kv["parent"],
			ChildRoot:  kv["child"],
			Relation:   kv["relname"],
		}, nil
	}
	return nil, badFormat("unknown record kind %q", kind)
}

func splitPairs(fields []string) ([][2]string, error) {
	out := make([][2]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		k, v, ok := strings.Cut(f, ValueSep)
		if !ok || k == "" {
			return nil, badFormat("field %q is not a key%svalue pair", f, "\\x1c")
		}
		out = append(out, [2]string{k, v})
	}
	return out, nil
}

// onlyKeys collects pairs into a map, rejecting keys outside allowed.
func onlyKeys(pairs [][2]string, allowed ...string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		ok := false
		for _, a := range allowed {
			if p[0] == a {
				ok = true
				break
			}
		}
		if !ok {
			return nil, badFormat("unknown attribute %q", p[0])
		}
		out[p[0]] = p[1]
	}
	return out, nil
}

func badFormat(format string, args ...any) error {
	return fmt.Errorf("%w: %s", rst.ErrBadFormat, fmt.Sprintf(format, args...))
}
