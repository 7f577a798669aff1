package keyword

import (
	"sort"
	"strings"
)

// maxSuggestDistance bounds how far a suggested term may be from the typed one.
const maxSuggestDistance = 2

// Suggest returns query with each unknown term replaced by the closest indexed
// name term, or "" when every term is known or nothing is close enough.
func (n *NameIndex) Suggest(query string) string {
	terms := tokenize(query)
	if len(terms) == 0 {
		return ""
	}
	dict := make([]string, 0, len(n.terms))
	for t := range n.terms {
		dict = append(dict, t)
	}
	sort.Strings(dict)

	changed := false
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term
		if _, ok := n.terms[term]; ok {
			continue
		}
		best, bestDist, bestFreq := "", maxSuggestDistance+1, 0
		for _, cand := range dict {
			if abs(len(cand)-len(term)) > maxSuggestDistance {
				continue
			}
			d := LevenshteinDistance(term, cand)
			// Closer wins; among equals the more common term, then the alphabetically first.
			if d < bestDist || (d == bestDist && n.terms[cand] > bestFreq) {
				best, bestDist, bestFreq = cand, d, n.terms[cand]
			}
		}
		if best != "" {
			out[i] = best
			changed = true
		}
	}
	if !changed {
		return ""
	}
	return strings.Join(out, " ")
}

// LevenshteinDistance is the number of single-rune insertions, deletions or
// substitutions turning a into b.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
