package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/rstagree/internal/fileid"
	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/rst"
)

// relationDoc is the indexed form of a relation instance.
type relationDoc struct {
	File         string `json:"file"`
	Unit         string `json:"unit"`
	Relation     string `json:"relation"`
	Nucleus      string `json:"nucleus"`
	Satellite    string `json:"satellite"`
	Multinuclear bool   `json:"multinuclear"`
}

// BleveIndex implements RelationIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("nucleus", textFieldMapping)
	docMapping.AddFieldMappingsAt("satellite", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("file", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("unit", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("relation", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("multinuclear", bleve.NewBooleanFieldMapping())
	im.AddDocumentMapping("relation", docMapping)
	im.DefaultType = "relation"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexFile replaces the relations of file in one batch.
func (b *BleveIndex) IndexFile(ctx context.Context, file string, instances []rst.RelationInstance) error {
	old, err := b.fileDocIDs(file)
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, id := range old {
		batch.Delete(id)
	}
	for _, inst := range instances {
		id := fileid.RelationID(file, inst.Relation, inst.NucleusID, inst.SatelliteID)
		doc := relationDoc{
			File:         file,
			Unit:         inst.Unit,
			Relation:     inst.Relation,
			Nucleus:      inst.NucleusText,
			Satellite:    inst.SatelliteText,
			Multinuclear: inst.Multinuclear,
		}
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("failed to index relation %s: %w", id, err)
		}
	}
	return b.index.Batch(batch)
}

// DeleteFile removes every relation indexed for file.
func (b *BleveIndex) DeleteFile(ctx context.Context, file string) error {
	ids, err := b.fileDocIDs(file)
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

func (b *BleveIndex) fileDocIDs(file string) ([]string, error) {
	q := bleve.NewTermQuery(file)
	q.SetField("file")
	count, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	ids := make([]string, len(results.Hits))
	for i, hit := range results.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Search matches q.Query against nucleus and satellite text, optionally
// restricted to q.Relation. An empty query lists instances of the relation.
func (b *BleveIndex) Search(ctx context.Context, q *models.RelationQuery, opts *SearchOptions) ([]*models.RelationHit, error) {
	fuzzy, fuzziness := false, 1
	if opts != nil {
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var text blevequery.Query
	switch {
	case strings.TrimSpace(q.Query) == "":
		text = bleve.NewMatchAllQuery()
	case fuzzy:
		text = buildFuzzyQuery(q.Query, fuzziness)
	default:
		nq := bleve.NewMatchQuery(q.Query)
		nq.SetField("nucleus")
		sq := bleve.NewMatchQuery(q.Query)
		sq.SetField("satellite")
		text = bleve.NewDisjunctionQuery(nq, sq)
	}
	query := text
	if q.Relation != "" {
		rq := bleve.NewTermQuery(q.Relation)
		rq.SetField("relation")
		query = bleve.NewConjunctionQuery(text, rq)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequest(query)
	req.Size = limit
	req.Fields = []string{"*"}
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*models.RelationHit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &models.RelationHit{
			ID:            hit.ID,
			File:          stringField(hit.Fields, "file"),
			Unit:          stringField(hit.Fields, "unit"),
			Relation:      stringField(hit.Fields, "relation"),
			NucleusText:   stringField(hit.Fields, "nucleus"),
			SatelliteText: stringField(hit.Fields, "satellite"),
			Multinuclear:  boolField(hit.Fields, "multinuclear"),
			Score:         hit.Score,
		}
	}
	return out, nil
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

func boolField(fields map[string]interface{}, name string) bool {
	switch v := fields[name].(type) {
	case bool:
		return v
	case string:
		return v == "T" || v == "true"
	}
	return false
}

// buildFuzzyQuery ORs a FuzzyQuery per term and text field.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(queryStr))
	queries := make([]blevequery.Query, 0, 2*len(terms))
	for _, term := range terms {
		for _, field := range []string{"nucleus", "satellite"} {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			fq.SetField(field)
			queries = append(queries, fq)
		}
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// RelationNames returns the distinct relation names from the index dictionary.
func (b *BleveIndex) RelationNames() ([]string, error) {
	dict, err := b.index.FieldDict("relation")
	if err != nil {
		return nil, fmt.Errorf("failed to read relation dictionary: %w", err)
	}
	defer dict.Close()
	var names []string
	for {
		entry, err := dict.Next()
		if err != nil || entry == nil {
			break
		}
		names = append(names, entry.Term)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of relation instances in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
