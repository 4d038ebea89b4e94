package syntax

import "sort"

// maxSuggestDistance bounds how dissimilar a candidate may be and still
// be offered as a suggestion.
const maxSuggestDistance = 2

type suggestion struct {
	text string
	dist int
}

// BestMatches ranks candidates by Levenshtein distance to target and
// returns the closest few, for "did you mean" diagnostics.
func BestMatches(candidates []string, target string) []string {
	seen := make(map[string]bool, len(candidates))
	var scored []suggestion
	for _, c := range candidates {
		if c == "" || c == target || seen[c] {
			continue
		}
		seen[c] = true
		d := editDistance(c, target)
		if d <= maxSuggestDistance {
			scored = append(scored, suggestion{text: c, dist: d})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].dist != scored[j].dist {
			return scored[i].dist < scored[j].dist
		}
		return scored[i].text < scored[j].text
	})
	if len(scored) > 3 {
		scored = scored[:3]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.text
	}
	return out
}

func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
