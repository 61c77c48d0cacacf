package keyword

import (
	"sort"
	"strings"
)

// DefaultMaxDistance is the largest edit distance SuggestRelations accepts.
const DefaultMaxDistance = 2

// DamerauLevenshteinDistance counts the single-character insertions,
// deletions, substitutions and adjacent transpositions turning a into b.
func DamerauLevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[la][lb]
}

// SuggestRelations returns the known relation names closest to name, at most
// maxDist edits away, nearest first. An exact (case-insensitive) match
// returns nil.
func SuggestRelations(name string, known []string, maxDist int) []string {
	if maxDist <= 0 {
		maxDist = DefaultMaxDistance
	}
	name = strings.ToLower(name)
	type candidate struct {
		name string
		dist int
	}
	var cands []candidate
	for _, k := range known {
		d := DamerauLevenshteinDistance(name, strings.ToLower(k))
		if d == 0 {
			return nil
		}
		if d <= maxDist {
			cands = append(cands, candidate{k, d})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].name < cands[j].name
	})
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out
}
