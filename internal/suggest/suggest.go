// Package suggest provides fuzzy matching for mistyped names using
// Levenshtein distance.
package suggest

import (
	"sort"
	"strings"
)

// levenshtein calculates the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Similar returns up to three candidates close to unknown, best first.
// Matching ignores case and a dotted prefix typed on its own ("batch_size"
// finds "sync.batch_size").
func Similar(unknown string, candidates []string) []string {
	unknown = strings.ToLower(strings.TrimLeft(unknown, "-"))
	if unknown == "" {
		return nil
	}

	type scored struct {
		name  string
		score int
	}
	var matches []scored
	maxDist := max(3, len(unknown)/2)
	for _, c := range candidates {
		lc := strings.ToLower(c)
		dist := levenshtein(unknown, lc)
		if i := strings.LastIndex(lc, "."); i >= 0 {
			dist = min(dist, levenshtein(unknown, lc[i+1:]))
		}
		if dist <= maxDist {
			matches = append(matches, scored{c, dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score < matches[j].score })

	var result []string
	for i := 0; i < len(matches) && i < 3; i++ {
		result = append(result, matches[i].name)
	}
	return result
}
