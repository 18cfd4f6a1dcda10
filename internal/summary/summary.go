// Package summary turns a page extract into a short teaser.
package summary

import (
	"strings"
	"unicode"
)

// Sentences is how many leading sentences Format keeps.
const Sentences = 2

const combiningAcute = '\u0301'

// Format strips parenthetical spans, keeps the first two sentences, drops
// stress marks and trailing terminal punctuation and appends "...".
// An extract with no sentences left yields just "...".
func Format(text string) string {
	s := StripParens(text)
	s = strings.Join(FirstSentences(s, Sentences), " ")
	s = strings.Map(func(r rune) rune {
		if r == combiningAcute {
			return -1
		}
		return r
	}, s)
	if n := len(s); n > 0 && strings.ContainsRune(".!?", rune(s[n-1])) {
		s = s[:n-1]
	}
	return s + "..."
}

// StripParens removes every balanced (...) span, nested ones included, along
// with the whitespace right before it. Unmatched parentheses stay in place.
func StripParens(s string) string {
	rs := []rune(s)
	// match[i] is the index of the ')' closing the '(' at i, or -1.
	match := make([]int, len(rs))
	var stack []int
	for i, r := range rs {
		match[i] = -1
		switch r {
		case '(':
			stack = append(stack, i)
		case ')':
			if len(stack) > 0 {
				match[stack[len(stack)-1]] = i
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); i++ {
		if rs[i] == '(' && match[i] >= 0 {
			for len(out) > 0 && unicode.IsSpace(out[len(out)-1]) {
				out = out[:len(out)-1]
			}
			i = match[i]
			continue
		}
		out = append(out, rs[i])
	}
	return string(out)
}

// FirstSentences splits after '.', '!' or '?' followed by whitespace and
// returns up to n non-empty trimmed sentences.
func FirstSentences(s string, n int) []string {
	var (
		out   []string
		start int
	)
	rs := []rune(s)
	emit := func(end int) {
		if part := strings.TrimSpace(string(rs[start:end])); part != "" {
			out = append(out, part)
		}
	}
	for i := 0; i < len(rs) && len(out) < n; i++ {
		if !strings.ContainsRune(".!?", rs[i]) || i+1 >= len(rs) || !unicode.IsSpace(rs[i+1]) {
			continue
		}
		emit(i + 1)
		j := i + 1
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if len(out) < n && start < len(rs) {
		emit(len(rs))
	}
	return out
}
