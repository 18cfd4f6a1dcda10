package resolver

import (
	"strings"
	"unicode/utf8"

	"wikisearch/internal/fuzz"
	"wikisearch/internal/titleindex"
)

const (
	// exactScore sits above the heuristic range (at most 100*0.4*2 + 20).
	exactScore = 200.0

	rawWeight   = 0.4
	lemmaWeight = 0.4
	wordBonus   = 20.0

	maxLenDiff = 20
	lenDiffDiv = 40.0
)

// query is a tokenized, lemmatized lookup.
type query struct {
	lower  string
	runes  int
	words  []string
	lemmas []string // per word
	joined string   // lemmas joined by spaces
}

func (q query) score(rec titleindex.Record) float64 {
	title := strings.ToLower(rec.Title)
	if q.lower == title {
		return exactScore
	}
	raw := fuzz.WRatio(q.lower, title)
	lem := fuzz.TokenSetRatio(q.joined, rec.Lemmas)
	matches := 0
	for i, w := range q.words {
		if strings.Contains(title, w) || strings.Contains(rec.Lemmas, q.lemmas[i]) {
			matches++
		}
	}
	bonus := float64(matches) / float64(len(q.words)) * wordBonus
	return blend(raw, lem, bonus, lengthPenalty(q.runes, utf8.RuneCountInString(title)))
}

func blend(raw, lemma, bonus, penalty float64) float64 {
	return (raw*rawWeight + lemma*lemmaWeight + bonus) * penalty
}

// lengthPenalty scales from 1.0 for equal lengths down to 0.5 once the
// lengths differ by maxLenDiff runes or more.
func lengthPenalty(queryLen, titleLen int) float64 {
	d := queryLen - titleLen
	if d < 0 {
		d = -d
	}
	return 1.0 - float64(min(d, maxLenDiff))/lenDiffDiv
}
