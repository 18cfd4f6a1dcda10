// Package textnorm holds the title and query normalization rules shared by
// the index builder and the resolver. Both sides must agree on them or
// lookups silently miss.
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinTitleLen is the shortest title, in runes, admitted to the index.
const MinTitleLen = 3

var (
	wordRun = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	// Cyrillic letters, whitespace, decimal digits, ASCII punctuation,
	// en/em dashes and guillemets.
	titleChars = regexp.MustCompile("^[а-яА-ЯёЁ\\s\\v\\p{Z}\\x{1c}-\\x{1f}\\x{85}\\p{Nd}!-/:-@\\[-`{-~–—«»]+$")
)

var yoFolder = strings.NewReplacer("ё", "е")

// Normalize lowercases s and folds ё into е.
func Normalize(s string) string {
	return yoFolder.Replace(strings.ToLower(s))
}

// FoldYo folds ё into е without changing case.
func FoldYo(s string) string { return yoFolder.Replace(s) }

// Words returns the alphanumeric runs of s in order.
func Words(s string) []string {
	return wordRun.FindAllString(s, -1)
}

// CleanTitle turns a raw dump line into a display title.
func CleanTitle(line string) string {
	return strings.TrimSpace(strings.ReplaceAll(line, "_", " "))
}

// ValidTitle reports whether a cleaned title may be indexed.
func ValidTitle(title string) bool {
	if utf8.RuneCountInString(title) < MinTitleLen {
		return false
	}
	return titleChars.MatchString(title)
}

// Phrase quotes w as an FTS5 string literal.
func Phrase(w string) string {
	return `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
}
