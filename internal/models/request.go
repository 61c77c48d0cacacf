package models

import "fmt"

// RunRequest asks for a corpus agreement measurement.
type RunRequest struct {
	SourceDir        string   `json:"source_dir"`
	Anno1Dir         string   `json:"anno1_dir"`
	Anno2Dir         string   `json:"anno2_dir"`
	Dimensions       []string `json:"dimensions,omitempty"`
	SegmentStrict    *bool    `json:"segment_strict,omitempty"` // nil uses the configured default
	OutputDifference bool     `json:"output_difference,omitempty"`
	Store            bool     `json:"store,omitempty"`
}

// Validate checks that all three directories are given.
func (r *RunRequest) Validate() error {
	switch {
	case r.SourceDir == "":
		return fmt.Errorf("source_dir cannot be empty")
	case r.Anno1Dir == "":
		return fmt.Errorf("anno1_dir cannot be empty")
	case r.Anno2Dir == "":
		return fmt.Errorf("anno2_dir cannot be empty")
	}
	return nil
}

// RelationQuery searches indexed relation instances.
type RelationQuery struct {
	Query    string `json:"query"`
	Relation string `json:"relation,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Validate ensures the query has text or a relation filter and normalizes the limit.
func (q *RelationQuery) Validate() error {
	if q.Query == "" && q.Relation == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// RelationHit is an indexed relation instance returned by a search.
type RelationHit struct {
	ID            string  `json:"id"`
	File          string  `json:"file"`
	Unit          string  `json:"unit"`
	Relation      string  `json:"relation"`
	NucleusText   string  `json:"nucleus_text"`
	SatelliteText string  `json:"satellite_text"`
	Multinuclear  bool    `json:"multinuclear"`
	Score         float64 `json:"score"`
}
