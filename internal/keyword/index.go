// Package keyword indexes RST relation instances for full-text search over
// the text of their nucleus and satellite.
package keyword

import (
	"context"

	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/rst"
)

// SearchOptions optional parameters for relation search. Nil means use defaults.
type SearchOptions struct {
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 1 when FuzzyEnabled is true.
	Fuzziness int
}

// RelationIndex defines relation indexing and search operations.
type RelationIndex interface {
	// IndexFile replaces every relation indexed for file with instances.
	IndexFile(ctx context.Context, file string, instances []rst.RelationInstance) error
	Search(ctx context.Context, q *models.RelationQuery, opts *SearchOptions) ([]*models.RelationHit, error)
	DeleteFile(ctx context.Context, file string) error
	// RelationNames returns the distinct relation names in the index.
	RelationNames() ([]string, error)
	// DocCount returns the total number of relation instances in the index.
	DocCount() (uint64, error)
	Close() error
}
