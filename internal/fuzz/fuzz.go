// Package fuzz scores string similarity on a 0–100 scale. All functions work
// on runes, treat their inputs literally (no case folding or punctuation
// stripping) and are symmetric.
package fuzz

import (
	"sort"
	"strings"
)

const (
	unbaseScale = 0.95
	// partial matching is trusted less the more the lengths diverge
	partialScale     = 0.9
	partialScaleWide = 0.6
)

// Ratio is the normalized indel similarity: 100 * 2*LCS / (len(a)+len(b)).
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	return ratio([]rune(a), []rune(b))
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcs(a, b)) / float64(total)
}

// lcs returns the length of the longest common subsequence.
func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// PartialRatio is the best Ratio of the shorter string against any
// same-length window of the longer one, including windows clipped at either
// end.
//
// With equal lengths neither side is "shorter", so both directions are scored
// and the better one wins.
func PartialRatio(a, b string) float64 {
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}
	if len(s) == len(l) && len(s) > 0 {
		return max(partial(s, l), partial(l, s))
	}
	return partial(s, l)
}

// partial slides s over l; len(s) <= len(l).
func partial(s, l []rune) float64 {
	if len(s) == 0 {
		if len(l) == 0 {
			return 100
		}
		return 0
	}
	n := len(s)
	best := 0.0
	try := func(w []rune) bool {
		if r := ratio(s, w); r > best {
			best = r
		}
		return best == 100
	}
	for k := 1; k < n; k++ {
		if try(l[:k]) {
			return best
		}
	}
	for i := 0; i+n <= len(l); i++ {
		if try(l[i : i+n]) {
			return best
		}
	}
	for k := n - 1; k >= 1; k-- {
		if try(l[len(l)-k:]) {
			return best
		}
	}
	return best
}

// TokenSortRatio compares a and b after sorting their whitespace-separated
// tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedJoin(strings.Fields(a)), sortedJoin(strings.Fields(b)))
}

// TokenSetRatio compares the shared tokens of a and b against each side's
// remainder, so extra words on one side do not hurt.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter, onlyA, onlyB := splitSets(ta, tb)
	if len(inter) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}
	sect := strings.Join(inter, " ")
	withA := joinNonEmpty(sect, strings.Join(onlyA, " "))
	withB := joinNonEmpty(sect, strings.Join(onlyB, " "))

	best := Ratio(withA, withB)
	if sect != "" {
		best = max(best, Ratio(sect, withA), Ratio(sect, withB))
	}
	return best
}

// PartialTokenRatio is the partial counterpart of the token ratios. Any shared
// token scores 100.
func PartialTokenRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter, onlyA, onlyB := splitSets(ta, tb)
	if len(inter) > 0 {
		return 100
	}
	best := PartialRatio(sortedJoin(strings.Fields(a)), sortedJoin(strings.Fields(b)))
	return max(best, PartialRatio(strings.Join(onlyA, " "), strings.Join(onlyB, " ")))
}

// WRatio picks between plain, token and partial ratios depending on how much
// the lengths of a and b differ. Empty input scores 0.
func WRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))
	end := Ratio(a, b)
	if lenRatio < 1.5 {
		tokens := max(TokenSortRatio(a, b), TokenSetRatio(a, b))
		return max(end, tokens*unbaseScale)
	}
	scale := partialScale
	if lenRatio >= 8 {
		scale = partialScaleWide
	}
	end = max(end, PartialRatio(a, b)*scale)
	return max(end, PartialTokenRatio(a, b)*unbaseScale*scale)
}

func sortedJoin(tokens []string) string {
	out := append([]string(nil), tokens...)
	sort.Strings(out)
	return strings.Join(out, " ")
}

// tokenSet returns the sorted unique tokens of s.
func tokenSet(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range strings.Fields(s) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// splitSets partitions two sorted sets into intersection and differences,
// each sorted.
func splitSets(a, b []string) (inter, onlyA, onlyB []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter = append(inter, a[i])
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)
	return inter, onlyA, onlyB
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
