// Package fileid provides deterministic ids derived from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	pairPrefix     = "pair:"
	relationPrefix = "rel:"
)

// PairID returns a stable id for a (source, annotation 1, annotation 2) file
// triple. Paths are cleaned first, so equivalent spellings give the same id.
func PairID(source, anno1, anno2 string) string {
	return pairPrefix + digest(filepath.Clean(source), filepath.Clean(anno1), filepath.Clean(anno2))
}

// RelationID returns a stable id for a relation instance between two nodes of
// the annotation file at path. Used to index, update and delete by file.
func RelationID(path, relation, nucleusID, satelliteID string) string {
	return relationPrefix + digest(filepath.Clean(path), relation, nucleusID, satelliteID)
}

func digest(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}
