package rst

import "fmt"

// Record is one parsed annotation record. Readers for the different file
// formats all produce Records, so the assembler does not depend on the format.
type Record interface {
	Apply(a *Assembler) error
	// Line is the position of the record in its file, for error messages.
	Line() int
}

// DeclareRecord declares or updates a node.
type DeclareRecord struct {
	Pos   int
	ID    string
	Attrs Attrs
}

func (r DeclareRecord) Apply(a *Assembler) error { return a.DeclareNode(r.ID, r.Attrs) }
func (r DeclareRecord) Line() int                { return r.Pos }

// HypotacticRecord is a nucleus-satellite relation below a span node.
type HypotacticRecord struct {
	Pos       int
	Span      string
	Nucleus   string
	Satellite string
	Relation  string
}

func (r HypotacticRecord) Apply(a *Assembler) error {
	return a.AttachHypotactic(r.Span, r.Nucleus, r.Satellite, r.Relation)
}
func (r HypotacticRecord) Line() int { return r.Pos }

// ParatacticRecord is a multinuclear relation below a span node.
type ParatacticRecord struct {
	Pos      int
	Span     string
	Nuclei   []string
	Relation string
}

func (r ParatacticRecord) Apply(a *Assembler) error {
	return a.AttachParatactic(r.Span, r.Nuclei, r.Relation)
}
func (r ParatacticRecord) Line() int { return r.Pos }

// CrossUnitRecord links the tree of one unit below the tree of another.
type CrossUnitRecord struct {
	Pos        int
	ParentUnit string
	ChildUnit  string
	ParentRoot string
	ChildRoot  string
	Relation   string
}

func (r CrossUnitRecord) Apply(a *Assembler) error {
	return a.LinkAcrossUnits(r.ParentUnit, r.ChildUnit, r.ParentRoot, r.ChildRoot, r.Relation)
}
func (r CrossUnitRecord) Line() int { return r.Pos }

// Build applies records in order and finalizes the forest. Errors are
// annotated with the failing record's position.
func Build(records []Record, units UnitIndex, opts ...AssemblerOption) (*Forest, error) {
	a := NewAssembler(units, opts...)
	for _, r := range records {
		if err := r.Apply(a); err != nil {
			return nil, fmt.Errorf("record %d: %w", r.Line(), err)
		}
	}
	return a.Finalize()
}
