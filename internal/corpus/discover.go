// Package corpus pairs source files with the annotation files of two
// annotators and measures agreement over the whole corpus.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/hyperjump/rstagree/internal/fileid"
)

// DefaultIgnoreFile lists source files to leave out, in .gitignore syntax.
const DefaultIgnoreFile = ".rstignore"

// Pair is a source file with the two annotations of it.
type Pair struct {
	ID     string `json:"id"`
	Base   string `json:"base"`
	Source string `json:"source"`
	Anno1  string `json:"anno1"`
	Anno2  string `json:"anno2"`
}

// Layout describes where the files of a corpus live.
type Layout struct {
	SourceDir     string
	Anno1Dir      string
	Anno2Dir      string
	SourcePattern string // shell pattern of source files inside SourceDir
	AnnoSuffix    string // appended to the source base name to find annotations
	IgnoreFile    string // name of the ignore file inside SourceDir
}

// Discover lists the source files matching the layout's pattern and pairs
// each with its annotations. Sources lacking either annotation are logged
// and left out.
func Discover(l Layout, logger *zap.Logger) ([]Pair, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pattern := l.SourcePattern
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(l.SourceDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	gi := loadIgnore(l.SourceDir, l.IgnoreFile)

	var pairs []Pair
	for _, src := range matches {
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		name := filepath.Base(src)
		if name == ignoreName(l.IgnoreFile) {
			continue
		}
		if gi != nil {
			if rel, err := filepath.Rel(l.SourceDir, src); err == nil && gi.MatchesPath(rel) {
				logger.Debug("Source ignored", zap.String("path", src))
				continue
			}
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		anno1, ok := findAnnotation(l.Anno1Dir, base, l.AnnoSuffix)
		if !ok {
			logger.Warn("No annotation by the 1st annotator", zap.String("source", src))
			continue
		}
		anno2, ok := findAnnotation(l.Anno2Dir, base, l.AnnoSuffix)
		if !ok {
			logger.Warn("No annotation by the 2nd annotator", zap.String("source", src))
			continue
		}
		pairs = append(pairs, Pair{
			ID:     fileid.PairID(src, anno1, anno2),
			Base:   base,
			Source: src,
			Anno1:  anno1,
			Anno2:  anno2,
		})
	}
	return pairs, nil
}

// findAnnotation returns the first readable file matching base+suffix in dir.
// The suffix may itself contain glob characters.
func findAnnotation(dir, base, suffix string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, base+suffix))
	if err != nil {
		return "", false
	}
	sort.Strings(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			return m, true
		}
	}
	return "", false
}

func ignoreName(name string) string {
	if name == "" {
		return DefaultIgnoreFile
	}
	return name
}

func loadIgnore(dir, name string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ignoreName(name)))
	if err != nil {
		return nil
	}
	return gi
}

// BaseOf returns the base name used to pair the file at path.
func BaseOf(path, annoSuffix string) string {
	name := filepath.Base(path)
	if annoSuffix != "" && !strings.ContainsAny(annoSuffix, "*?[") && strings.HasSuffix(name, annoSuffix) {
		return strings.TrimSuffix(name, annoSuffix)
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
